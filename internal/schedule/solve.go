package schedule

import (
	"context"
	"fmt"

	goerrors "github.com/TudorHulban/go-errors"

	"planline/internal/cpm"
	"planline/internal/domain"
	"planline/internal/lp"
)

// Solve builds, solves and assembles one scenario. Each call works on its
// own model; nothing is kept between calls. When the solve is feasible and
// the graph is acyclic the entries are annotated with slack and the
// critical path.
func Solve(ctx context.Context, solver lp.Solver, doc domain.Document, scenario string, rates Rates) (Result, error) {
	if solver == nil {
		return Result{}, goerrors.ErrValidation{
			Caller: "Solve",
			Issue: goerrors.ErrNilInput{
				InputName: "solver",
			},
		}
	}
	m := Build(doc.Tasks, doc.Predecessors, scenario, rates)
	sol, err := solver.Solve(ctx, m.Problem)
	if err != nil {
		return Result{}, fmt.Errorf("solve scenario %s: %w", scenario, err)
	}
	res := Assemble(m, sol)
	if res.Feasible {
		annotate(&res, m, doc.Predecessors)
	}
	return res, nil
}

func annotate(res *Result, m Model, preds map[string][]string) {
	analysis, err := cpm.Analyze(m.Tasks, preds, m.Durations)
	if err != nil {
		return
	}
	res.CriticalPath = analysis.CriticalPath
	for i := range res.Schedule {
		ts, ok := analysis.Tasks[res.Schedule[i].TaskID]
		if !ok {
			continue
		}
		slack := ts.Slack
		res.Schedule[i].Slack = &slack
		res.Schedule[i].Critical = ts.IsCritical
	}
}
