// Package lp describes linear programs independently of any solver.
//
// A Problem minimizes the sum of Objective*x over its variables subject to
// constraints of the form sum(Coef*x[Var]) >= Lower. Variables are referred
// to by index so names never act as join keys.
package lp

import (
	"context"
	"fmt"
)

type Variable struct {
	Name      string  `json:"name"`
	Objective float64 `json:"objective"`
}

type Term struct {
	Var  int     `json:"var"`
	Coef float64 `json:"coef"`
}

type Constraint struct {
	Name  string  `json:"name"`
	Lower float64 `json:"lower"`
	Terms []Term  `json:"terms"`
}

type Problem struct {
	Name        string       `json:"name"`
	Variables   []Variable   `json:"variables"`
	Constraints []Constraint `json:"constraints"`
}

// AddVariable appends a variable and returns its index.
func (p *Problem) AddVariable(name string, objective float64) int {
	p.Variables = append(p.Variables, Variable{Name: name, Objective: objective})
	return len(p.Variables) - 1
}

// AddConstraint appends sum(terms) >= lower.
func (p *Problem) AddConstraint(name string, lower float64, terms ...Term) {
	p.Constraints = append(p.Constraints, Constraint{Name: name, Lower: lower, Terms: terms})
}

// Validate checks that every term references a declared variable.
func (p Problem) Validate() error {
	for _, c := range p.Constraints {
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.Variables) {
				return fmt.Errorf("constraint %s references unknown variable %d", c.Name, t.Var)
			}
		}
	}
	return nil
}

// Solution holds one value per problem variable, index-aligned with
// Problem.Variables. Values is nil when Feasible is false.
type Solution struct {
	Feasible  bool      `json:"feasible"`
	Objective float64   `json:"objective"`
	Values    []float64 `json:"values,omitempty"`
}

// Value returns the solved value of variable i, 0 when the solver did not
// report one.
func (s Solution) Value(i int) float64 {
	if i < 0 || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

// Solver minimizes a Problem. Infeasibility is reported through
// Solution.Feasible, not as an error.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

// SolverFunc adapts a function to Solver.
type SolverFunc func(ctx context.Context, p Problem) (Solution, error)

func (f SolverFunc) Solve(ctx context.Context, p Problem) (Solution, error) {
	return f(ctx, p)
}
