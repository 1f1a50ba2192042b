package schedule

import (
	"math"
	"sort"

	"planline/internal/domain"
	"planline/internal/lp"
)

// Result is the outcome of one solve. An infeasible result carries no
// schedule and no totals.
type Result struct {
	Scenario      string                 `json:"scenario"`
	Feasible      bool                   `json:"feasible"`
	Schedule      []domain.ScheduleEntry `json:"schedule"`
	TotalDuration float64                `json:"total_duration"`
	TotalCost     float64                `json:"total_cost"`
	CriticalPath  []string               `json:"critical_path,omitempty"`
}

// AverageCostPerHour is total cost over total duration. The second return
// is false when the value is undefined: infeasible, or zero duration.
func (r Result) AverageCostPerHour() (float64, bool) {
	if !r.Feasible || r.TotalDuration == 0 {
		return math.NaN(), false
	}
	return r.TotalCost / r.TotalDuration, true
}

// Run converts the result into its stored form.
func (r Result) Run() domain.Run {
	run := domain.Run{
		Scenario:      r.Scenario,
		Feasible:      r.Feasible,
		TotalDuration: r.TotalDuration,
		TotalCost:     r.TotalCost,
		Schedule:      r.Schedule,
		CriticalPath:  r.CriticalPath,
	}
	if avg, ok := r.AverageCostPerHour(); ok {
		run.AverageCostPerHour = &avg
	}
	if run.Schedule == nil {
		run.Schedule = []domain.ScheduleEntry{}
	}
	return run
}

// Assemble reads a solution back through the model's side tables. Entries
// are sorted by start time; ties keep input order.
func Assemble(m Model, sol lp.Solution) Result {
	res := Result{Scenario: m.Scenario, Feasible: sol.Feasible}
	if !sol.Feasible {
		return res
	}
	res.Schedule = make([]domain.ScheduleEntry, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		start := 0.0
		if v, ok := m.StartVar(t.ID); ok {
			start = clean(sol.Value(v))
		}
		cost := m.Costs[t.ID]
		res.Schedule = append(res.Schedule, domain.ScheduleEntry{
			TaskID:      t.ID,
			Description: t.Description,
			Start:       start,
			End:         start + m.Durations[t.ID],
			Cost:        cost,
		})
		res.TotalCost += cost
	}
	res.TotalDuration = clean(sol.Value(m.MakespanVar()))
	sort.SliceStable(res.Schedule, func(i, j int) bool {
		return res.Schedule[i].Start < res.Schedule[j].Start
	})
	return res
}

// clean drops floating point noise from solver output so equal starts
// compare equal.
func clean(v float64) float64 {
	r := math.Round(v*1e9) / 1e9
	if r == 0 {
		return 0
	}
	return r
}
