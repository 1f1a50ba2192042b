// Package schedule turns a task list and predecessor map into a makespan
// minimizing linear program and turns the solved program back into a
// schedule.
package schedule

import (
	"planline/internal/domain"
	"planline/internal/lp"
)

// CompletionVariable names the overall completion time variable.
const CompletionVariable = "makespan"

// Model is a built program plus the side tables needed to read its
// solution back.
type Model struct {
	Scenario  string
	Problem   lp.Problem
	Tasks     []domain.Task
	Durations map[string]float64
	Costs     map[string]float64

	starts   map[string]int
	makespan int
}

// StartVar returns the variable index holding the start time of task id.
func (m Model) StartVar(id string) (int, bool) {
	i, ok := m.starts[id]
	return i, ok
}

// MakespanVar returns the index of the completion time variable.
func (m Model) MakespanVar() int {
	return m.makespan
}

// Build encodes the scheduling problem for scenario:
//
//	minimize  makespan
//	s.t.      makespan - start(t) >= duration(t)          for every task t
//	          start(t) - start(p) >= duration(p)          for every edge p -> t
//	          start(t) >= 0, makespan >= 0
//
// Durations missing for the scenario are 0. A predecessor that is not in
// the task list contributes no term. Tasks sharing an id share a variable;
// the later task's duration and cost win.
func Build(tasks []domain.Task, preds map[string][]string, scenario string, rates Rates) Model {
	m := Model{
		Scenario:  scenario,
		Problem:   lp.Problem{Name: "schedule:" + scenario},
		Tasks:     tasks,
		Durations: make(map[string]float64, len(tasks)),
		Costs:     make(map[string]float64, len(tasks)),
		starts:    make(map[string]int, len(tasks)),
	}
	for _, t := range tasks {
		m.Durations[t.ID] = t.Duration(scenario)
		m.Costs[t.ID] = TaskCost(t, rates)
	}

	for _, t := range tasks {
		if _, ok := m.starts[t.ID]; ok {
			continue
		}
		m.starts[t.ID] = m.Problem.AddVariable(t.ID, 0)
	}
	m.makespan = m.Problem.AddVariable(CompletionVariable, 1)

	for _, t := range tasks {
		m.Problem.AddConstraint("finish:"+t.ID, m.Durations[t.ID],
			lp.Term{Var: m.makespan, Coef: 1},
			lp.Term{Var: m.starts[t.ID], Coef: -1},
		)
	}

	for _, t := range tasks {
		for _, p := range preds[t.ID] {
			terms := []lp.Term{{Var: m.starts[t.ID], Coef: 1}}
			if pv, ok := m.starts[p]; ok {
				terms = append(terms, lp.Term{Var: pv, Coef: -1})
			}
			m.Problem.AddConstraint("precedence:"+p+"->"+t.ID, m.Durations[p], terms...)
		}
	}

	for _, t := range tasks {
		m.Problem.AddConstraint("nonneg:"+t.ID, 0, lp.Term{Var: m.starts[t.ID], Coef: 1})
	}
	m.Problem.AddConstraint("nonneg:"+CompletionVariable, 0, lp.Term{Var: m.makespan, Coef: 1})

	return m
}
