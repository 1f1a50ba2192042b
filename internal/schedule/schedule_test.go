package schedule

import (
	"context"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"planline/internal/domain"
	"planline/internal/lp"
	"planline/internal/lp/simplex"
)

const tolerance = 1e-6

func loadProject(t *testing.T) domain.Document {
	t.Helper()
	data, err := os.ReadFile("testdata/project.json")
	require.NoError(t, err)
	doc, err := domain.ParseDocument(data)
	require.NoError(t, err)
	return doc
}

func task(id string, metrics map[string]float64) domain.Task {
	return domain.Task{ID: id, Description: "task " + id, Metrics: metrics}
}

func findConstraint(t *testing.T, p lp.Problem, name string) lp.Constraint {
	t.Helper()
	for _, c := range p.Constraints {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("constraint %s not found", name)
	return lp.Constraint{}
}

func TestTaskCost(t *testing.T) {
	rates := DefaultRates()

	t.Run(
		"1. sums hours times rate",
		func(t *testing.T) {
			tk := task("A", map[string]float64{"projectManager": 2, "dataEngineer": 1, "best": 4})
			require.Equal(t, float64(2*150+135), TaskCost(tk, rates))
		},
	)

	t.Run(
		"2. unknown roles and missing hours are zero",
		func(t *testing.T) {
			tk := task("A", map[string]float64{"intern": 40})
			require.Zero(t, TaskCost(tk, rates))
			require.Zero(t, TaskCost(domain.Task{ID: "B"}, rates))
		},
	)

	t.Run(
		"3. independent of scenario",
		func(t *testing.T) {
			tk := task("A", map[string]float64{"best": 1, "worst": 9, "cloudDevops": 3})
			best := Build([]domain.Task{tk}, nil, "best", rates)
			worst := Build([]domain.Task{tk}, nil, "worst", rates)
			require.Equal(t, best.Costs["A"], worst.Costs["A"])
			require.Equal(t, float64(3*140), best.Costs["A"])
		},
	)
}

func TestRatesValidate(t *testing.T) {
	require.NoError(t, DefaultRates().Validate())
	require.Error(t, Rates{"": 10}.Validate())
	require.Error(t, Rates{"dev": -1}.Validate())
	require.Equal(t, []string{"cloudDevops", "dataEngineer", "fullStackDev1", "fullStackDev2", "projectManager"}, DefaultRates().Roles())
}

func TestBuild(t *testing.T) {
	tasks := []domain.Task{
		task("A", map[string]float64{"likely": 3}),
		task("B", map[string]float64{"likely": 2}),
	}
	preds := map[string][]string{"B": {"A"}}

	m := Build(tasks, preds, "likely", DefaultRates())

	require.Len(t, m.Problem.Variables, 3)
	require.Equal(t, CompletionVariable, m.Problem.Variables[m.MakespanVar()].Name)
	require.Equal(t, float64(1), m.Problem.Variables[m.MakespanVar()].Objective)

	a, ok := m.StartVar("A")
	require.True(t, ok)
	b, ok := m.StartVar("B")
	require.True(t, ok)
	require.Zero(t, m.Problem.Variables[a].Objective)

	// finish x2, precedence x1, nonneg x2 plus the makespan bound.
	require.Len(t, m.Problem.Constraints, 6)

	finish := findConstraint(t, m.Problem, "finish:A")
	require.Equal(t, float64(3), finish.Lower)
	require.Equal(t, []lp.Term{{Var: m.MakespanVar(), Coef: 1}, {Var: a, Coef: -1}}, finish.Terms)

	prec := findConstraint(t, m.Problem, "precedence:A->B")
	require.Equal(t, float64(3), prec.Lower)
	require.Equal(t, []lp.Term{{Var: b, Coef: 1}, {Var: a, Coef: -1}}, prec.Terms)

	nonneg := findConstraint(t, m.Problem, "nonneg:B")
	require.Zero(t, nonneg.Lower)
	require.Equal(t, []lp.Term{{Var: b, Coef: 1}}, nonneg.Terms)

	require.NoError(t, m.Problem.Validate())
}

func TestBuildTolerantInput(t *testing.T) {
	t.Run(
		"1. unknown scenario yields zero durations",
		func(t *testing.T) {
			m := Build([]domain.Task{task("A", map[string]float64{"best": 5})}, nil, "nope", DefaultRates())
			require.Zero(t, m.Durations["A"])
			require.Zero(t, findConstraint(t, m.Problem, "finish:A").Lower)
		},
	)

	t.Run(
		"2. predecessor outside the task list contributes no term",
		func(t *testing.T) {
			m := Build([]domain.Task{task("A", map[string]float64{"best": 5})}, map[string][]string{"A": {"ghost"}}, "best", DefaultRates())
			c := findConstraint(t, m.Problem, "precedence:ghost->A")
			require.Zero(t, c.Lower)
			require.Len(t, c.Terms, 1)
			require.NoError(t, m.Problem.Validate())
		},
	)

	t.Run(
		"3. predecessor key without task adds nothing",
		func(t *testing.T) {
			m := Build([]domain.Task{task("A", nil)}, map[string][]string{"ghost": {"A"}}, "best", DefaultRates())
			require.Len(t, m.Problem.Constraints, 3)
		},
	)
}

func TestAssemble(t *testing.T) {
	tasks := []domain.Task{
		task("late", map[string]float64{"s": 1, "projectManager": 1}),
		task("tie1", map[string]float64{"s": 2}),
		task("early", map[string]float64{"s": 3, "dataEngineer": 2}),
		task("tie2", map[string]float64{"s": 4}),
	}
	m := Build(tasks, nil, "s", DefaultRates())

	values := make([]float64, len(m.Problem.Variables))
	set := func(id string, v float64) {
		i, ok := m.StartVar(id)
		require.True(t, ok)
		values[i] = v
	}
	set("late", 9)
	set("tie1", 2)
	set("early", 0)
	set("tie2", 2)
	values[m.MakespanVar()] = 10

	res := Assemble(m, lp.Solution{Feasible: true, Values: values})
	require.True(t, res.Feasible)

	var order []string
	for _, e := range res.Schedule {
		order = append(order, e.TaskID)
	}
	require.Equal(t, []string{"early", "tie1", "tie2", "late"}, order)
	require.Equal(t, float64(10), res.Schedule[3].End)
	require.Equal(t, float64(150+2*135), res.TotalCost)
	require.Equal(t, float64(10), res.TotalDuration)

	avg, ok := res.AverageCostPerHour()
	require.True(t, ok)
	require.InDelta(t, res.TotalCost/10, avg, tolerance)
}

func TestAssembleMissingValuesDefaultToZero(t *testing.T) {
	m := Build([]domain.Task{task("A", map[string]float64{"s": 2})}, nil, "s", DefaultRates())

	res := Assemble(m, lp.Solution{Feasible: true})
	require.Len(t, res.Schedule, 1)
	require.Zero(t, res.Schedule[0].Start)
	require.Equal(t, float64(2), res.Schedule[0].End)
	require.Zero(t, res.TotalDuration)

	avg, ok := res.AverageCostPerHour()
	require.False(t, ok)
	require.True(t, math.IsNaN(avg))
}

func TestAssembleInfeasible(t *testing.T) {
	m := Build([]domain.Task{task("A", nil)}, nil, "s", DefaultRates())

	res := Assemble(m, lp.Solution{Feasible: false})
	require.False(t, res.Feasible)
	require.Empty(t, res.Schedule)
	require.Zero(t, res.TotalCost)

	run := res.Run()
	require.Nil(t, run.AverageCostPerHour)
	require.NotNil(t, run.Schedule)
	require.Empty(t, run.Schedule)
}

func TestSolveTwoTaskChain(t *testing.T) {
	doc := domain.Document{
		Tasks: []domain.Task{
			task("A", map[string]float64{"likely": 3}),
			task("B", map[string]float64{"likely": 2}),
		},
		Predecessors: map[string][]string{"B": {"A"}},
	}

	res, err := Solve(context.Background(), simplex.New(), doc, "likely", DefaultRates())
	require.NoError(t, err)
	require.True(t, res.Feasible)
	require.GreaterOrEqual(t, res.TotalDuration, 5-tolerance)

	starts := map[string]float64{}
	for _, e := range res.Schedule {
		starts[e.TaskID] = e.Start
	}
	require.GreaterOrEqual(t, starts["B"], starts["A"]+3-tolerance)
	require.Equal(t, []string{"A", "B"}, res.CriticalPath)
}

func TestSolveNonFiniteDurationString(t *testing.T) {
	doc, err := domain.ParseDocument([]byte(`{
		"tasks": [{"id": "A", "likely": "Infinity"}, {"id": "B", "likely": 2}],
		"predecessors": {"B": ["A"]}
	}`))
	require.NoError(t, err)

	res, err := Solve(context.Background(), simplex.New(), doc, "likely", DefaultRates())
	require.NoError(t, err)
	require.True(t, res.Feasible)
	require.InDelta(t, 2, res.TotalDuration, tolerance)
}

func TestSolveLargeDurations(t *testing.T) {
	doc := domain.Document{
		Tasks: []domain.Task{
			task("A", map[string]float64{"likely": 1e20}),
			task("B", map[string]float64{"likely": 1e20}),
		},
		Predecessors: map[string][]string{"B": {"A"}},
	}

	res, err := Solve(context.Background(), simplex.New(), doc, "likely", DefaultRates())
	require.NoError(t, err)
	require.True(t, res.Feasible)
	require.InEpsilon(t, 2e20, res.TotalDuration, 1e-6)
}

func TestSolveConcurrentTasks(t *testing.T) {
	doc := domain.Document{
		Tasks: []domain.Task{
			task("A", map[string]float64{"s": 4}),
			task("B", map[string]float64{"s": 4}),
			task("C", map[string]float64{"s": 4}),
		},
	}

	res, err := Solve(context.Background(), simplex.New(), doc, "s", DefaultRates())
	require.NoError(t, err)
	require.True(t, res.Feasible)
	require.InDelta(t, 4, res.TotalDuration, tolerance)
	for _, e := range res.Schedule {
		require.GreaterOrEqual(t, e.Start, float64(0))
	}
}

func TestSolveCycleIsInfeasible(t *testing.T) {
	doc := domain.Document{
		Tasks: []domain.Task{
			task("A", map[string]float64{"s": 1}),
			task("B", map[string]float64{"s": 1}),
		},
		Predecessors: map[string][]string{"A": {"B"}, "B": {"A"}},
	}

	res, err := Solve(context.Background(), simplex.New(), doc, "s", DefaultRates())
	require.NoError(t, err)
	require.False(t, res.Feasible)
	require.Empty(t, res.Schedule)
	require.Empty(t, res.CriticalPath)
}

func TestSolveProjectScenarios(t *testing.T) {
	doc := loadProject(t)

	for scenario, makespan := range map[string]float64{"best": 60, "expected": 114, "worst": 181} {
		t.Run(scenario, func(t *testing.T) {
			res, err := Solve(context.Background(), simplex.New(), doc, scenario, DefaultRates())
			require.NoError(t, err)
			require.True(t, res.Feasible)
			require.InDelta(t, makespan, res.TotalDuration, tolerance)
			require.Len(t, res.Schedule, len(doc.Tasks))

			for i := 1; i < len(res.Schedule); i++ {
				require.LessOrEqual(t, res.Schedule[i-1].Start, res.Schedule[i].Start)
			}

			byID := map[string]domain.ScheduleEntry{}
			for _, e := range res.Schedule {
				byID[e.TaskID] = e
				require.LessOrEqual(t, e.End, res.TotalDuration+tolerance)
			}
			for id, preds := range doc.Predecessors {
				for _, p := range preds {
					require.GreaterOrEqual(t, byID[id].Start, byID[p].End-tolerance, "%s after %s", id, p)
				}
			}
			require.Contains(t, res.CriticalPath, "D4")
			require.Contains(t, res.CriticalPath, "H")
		})
	}
}

func TestSolveProjectCostIsScenarioIndependent(t *testing.T) {
	doc := loadProject(t)

	best, err := Solve(context.Background(), simplex.New(), doc, "best", DefaultRates())
	require.NoError(t, err)
	worst, err := Solve(context.Background(), simplex.New(), doc, "worst", DefaultRates())
	require.NoError(t, err)
	require.Equal(t, best.TotalCost, worst.TotalCost)
}

func TestSolveEmptyPlan(t *testing.T) {
	res, err := Solve(context.Background(), simplex.New(), domain.Document{}, "best", DefaultRates())
	require.NoError(t, err)
	require.True(t, res.Feasible)
	require.Empty(t, res.Schedule)
	require.Zero(t, res.TotalDuration)

	_, ok := res.AverageCostPerHour()
	require.False(t, ok)
}

func TestSolveErrors(t *testing.T) {
	t.Run(
		"1. nil solver",
		func(t *testing.T) {
			_, err := Solve(context.Background(), nil, domain.Document{}, "best", DefaultRates())
			require.Error(t, err)
		},
	)

	t.Run(
		"2. solver failure is wrapped",
		func(t *testing.T) {
			failing := lp.SolverFunc(func(context.Context, lp.Problem) (lp.Solution, error) {
				return lp.Solution{}, context.DeadlineExceeded
			})
			_, err := Solve(context.Background(), failing, domain.Document{}, "best", DefaultRates())
			require.ErrorIs(t, err, context.DeadlineExceeded)
		},
	)
}
