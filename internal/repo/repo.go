package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"planline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r Repo) InsertPlanTx(ctx context.Context, tx *sql.Tx, p domain.Plan) error {
	return insertPlan(ctx, tx, p)
}

func (r Repo) InsertPlan(ctx context.Context, p domain.Plan) error {
	return insertPlan(ctx, r.DB, p)
}

func insertPlan(ctx context.Context, ex execer, p domain.Plan) error {
	doc, err := json.Marshal(p.Document)
	if err != nil {
		return fmt.Errorf("marshal plan document: %w", err)
	}
	_, err = ex.ExecContext(ctx, `INSERT INTO plans(id,name,task_count,document_json,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		p.ID, p.Name, len(p.Document.Tasks), string(doc), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	var (
		p   domain.Plan
		doc string
	)
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,task_count,document_json,created_at,updated_at FROM plans WHERE id=?`, id).
		Scan(&p.ID, &p.Name, &p.TaskCount, &doc, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	parsed, err := domain.ParseDocument([]byte(doc))
	if err != nil {
		return p, fmt.Errorf("plan %s: %w", id, err)
	}
	p.Document = parsed
	return p, nil
}

// ListPlans returns plan headers, newest first. Documents are not loaded.
func (r Repo) ListPlans(ctx context.Context, limit int) ([]domain.Plan, error) {
	query := `SELECT id,name,task_count,created_at,updated_at FROM plans ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Plan
	for rows.Next() {
		var p domain.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.TaskCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) DeletePlanTx(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM plans WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertRunTx(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	sched := run.Schedule
	if sched == nil {
		sched = []domain.ScheduleEntry{}
	}
	schedJSON, err := json.Marshal(sched)
	if err != nil {
		return fmt.Errorf("marshal schedule: %w", err)
	}
	path := run.CriticalPath
	if path == nil {
		path = []string{}
	}
	pathJSON, err := json.Marshal(path)
	if err != nil {
		return fmt.Errorf("marshal critical path: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs(id,plan_id,scenario,feasible,total_duration,total_cost,schedule_json,critical_path_json,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		run.ID, nullable(run.PlanID), run.Scenario, run.Feasible, run.TotalDuration, run.TotalCost, string(schedJSON), string(pathJSON), run.CreatedAt)
	return err
}

const runColumns = `id,COALESCE(plan_id,''),scenario,feasible,total_duration,total_cost,schedule_json,critical_path_json,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.Run, error) {
	var (
		run            domain.Run
		sched, critPth string
	)
	if err := row.Scan(&run.ID, &run.PlanID, &run.Scenario, &run.Feasible, &run.TotalDuration, &run.TotalCost, &sched, &critPth, &run.CreatedAt); err != nil {
		return run, err
	}
	if err := json.Unmarshal([]byte(sched), &run.Schedule); err != nil {
		return run, fmt.Errorf("run %s schedule: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(critPth), &run.CriticalPath); err != nil {
		return run, fmt.Errorf("run %s critical path: %w", run.ID, err)
	}
	if len(run.CriticalPath) == 0 {
		run.CriticalPath = nil
	}
	if run.Feasible && run.TotalDuration != 0 {
		avg := run.TotalCost / run.TotalDuration
		run.AverageCostPerHour = &avg
	}
	return run, nil
}

func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	run, err := scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	return run, err
}

// ListRuns returns runs newest first, optionally scoped to a plan.
func (r Repo) ListRuns(ctx context.Context, planID string, limit int) ([]domain.Run, error) {
	clauses := []string{"1=1"}
	var args []any
	if planID != "" {
		clauses = append(clauses, "plan_id=?")
		args = append(args, planID)
	}
	query := `SELECT ` + runColumns + ` FROM runs WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

// LatestEvents returns events newest first. Empty filters match everything;
// a positive cursor returns only events older than it.
func (r Repo) LatestEvents(ctx context.Context, limit int, cursor int64, planID, evtType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if planID != "" {
		clauses = append(clauses, "plan_id=?")
		args = append(args, planID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(plan_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE %s ORDER BY id DESC LIMIT ?`,
		strings.Join(clauses, " AND "))
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.PlanID, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
