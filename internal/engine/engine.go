package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"planline/internal/config"
	"planline/internal/domain"
	"planline/internal/events"
	"planline/internal/lp"
	"planline/internal/lp/simplex"
	"planline/internal/repo"
	"planline/internal/schedule"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Solver lp.Solver
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{},
		Config: cfg,
		Solver: simplex.New(),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) rates() (schedule.Rates, error) {
	if e.Config == nil {
		return nil, errors.New("config not loaded")
	}
	return e.Config.Rates(), nil
}

func (e Engine) scenario(requested string) string {
	if e.Config == nil {
		return requested
	}
	return e.Config.Scenario(requested)
}

// ImportOptions are parameters for storing a task document as a plan.
type ImportOptions struct {
	ID       string
	Name     string
	Document []byte
	ActorID  string
}

// ImportPlan parses and stores a task document. The id defaults to a
// name-based uuid so the same name imported at different times gets
// different ids.
func (e Engine) ImportPlan(ctx context.Context, opts ImportOptions) (domain.Plan, error) {
	doc, err := domain.ParseDocument(opts.Document)
	if err != nil {
		return domain.Plan{}, err
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "plan"
	}
	now := e.now().UTC()
	stamp := now.Format(time.RFC3339)
	id := opts.ID
	if id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(name+"|"+now.Format(time.RFC3339Nano))).String()
	}
	p := domain.Plan{
		ID:        id,
		Name:      name,
		TaskCount: len(doc.Tasks),
		Document:  doc,
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Plan{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertPlanTx(ctx, tx, p); err != nil {
		return domain.Plan{}, fmt.Errorf("insert plan: %w", err)
	}
	payload := events.Payload{"name": p.Name, "tasks": p.TaskCount}
	if err := e.Events.Append(ctx, tx, events.PlanImported, p.ID, "plan", p.ID, opts.ActorID, payload); err != nil {
		return domain.Plan{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Plan{}, err
	}
	return p, nil
}

func (e Engine) ListPlans(ctx context.Context, limit int) ([]domain.Plan, error) {
	return e.Repo.ListPlans(ctx, limit)
}

func (e Engine) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	return e.Repo.GetPlan(ctx, id)
}

// DeletePlan removes a plan and its runs.
func (e Engine) DeletePlan(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE plan_id=?`, id); err != nil {
		return fmt.Errorf("delete runs: %w", err)
	}
	if err := e.Repo.DeletePlanTx(ctx, tx, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.PlanDeleted, id, "plan", id, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// SolveDocument solves a task document without storing anything.
func (e Engine) SolveDocument(ctx context.Context, doc domain.Document, scenario string) (schedule.Result, error) {
	rates, err := e.rates()
	if err != nil {
		return schedule.Result{}, err
	}
	return schedule.Solve(ctx, e.Solver, doc, e.scenario(scenario), rates)
}

// SolvePlan re-reads the stored plan, solves one scenario and records the
// run. An infeasible model is a stored run, not an error.
func (e Engine) SolvePlan(ctx context.Context, planID, scenario, actorID string) (domain.Run, error) {
	plan, err := e.Repo.GetPlan(ctx, planID)
	if err != nil {
		return domain.Run{}, err
	}
	res, err := e.SolveDocument(ctx, plan.Document, scenario)
	if err != nil {
		return domain.Run{}, err
	}
	run := res.Run()
	now := e.now().UTC()
	run.ID = uuid.NewString()
	run.PlanID = planID
	run.CreatedAt = now.Format(time.RFC3339)

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Run{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRunTx(ctx, tx, run); err != nil {
		return domain.Run{}, fmt.Errorf("insert run: %w", err)
	}
	evtType := events.ScheduleSolved
	payload := events.Payload{"scenario": run.Scenario}
	if run.Feasible {
		payload["total_duration"] = run.TotalDuration
		payload["total_cost"] = run.TotalCost
	} else {
		evtType = events.ScheduleInfeasible
	}
	if err := e.Events.Append(ctx, tx, evtType, planID, "run", run.ID, actorID, payload); err != nil {
		return domain.Run{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

func (e Engine) ListRuns(ctx context.Context, planID string, limit int) ([]domain.Run, error) {
	if planID != "" {
		if _, err := e.Repo.GetPlan(ctx, planID); err != nil {
			return nil, err
		}
	}
	return e.Repo.ListRuns(ctx, planID, limit)
}

func (e Engine) GetRun(ctx context.Context, id string) (domain.Run, error) {
	return e.Repo.GetRun(ctx, id)
}

func (e Engine) LatestEvents(ctx context.Context, limit int, planID, evtType string) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, limit, 0, planID, evtType)
}
