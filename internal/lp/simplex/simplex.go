// Package simplex solves lp.Problem values with gonum's simplex method.
package simplex

import (
	"context"
	"errors"
	"fmt"
	"math"

	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"
	"gonum.org/v1/gonum/mat"

	"planline/internal/lp"
)

const defaultTolerance = 1e-10

type Solver struct {
	Tolerance float64
}

func New() Solver {
	return Solver{Tolerance: defaultTolerance}
}

// Solve converts the >= rows into G x <= h, lets gonum split the free
// variables and recombines x = x+ - x-. Bounds are scaled by their largest
// magnitude before solving and values scaled back afterwards.
func (s Solver) Solve(ctx context.Context, p lp.Problem) (sol lp.Solution, err error) {
	defer func() {
		if r := recover(); r != nil {
			sol = lp.Solution{}
			err = fmt.Errorf("simplex %s: %v", p.Name, r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return lp.Solution{}, err
	}
	if err := p.Validate(); err != nil {
		return lp.Solution{}, err
	}
	n := len(p.Variables)
	if n == 0 {
		return lp.Solution{Feasible: true}, nil
	}
	c := make([]float64, n)
	for i, v := range p.Variables {
		c[i] = v.Objective
	}
	m := len(p.Constraints)
	if m == 0 {
		return unconstrained(c)
	}
	scale := boundScale(p.Constraints)
	if math.IsInf(scale, 0) || math.IsNaN(scale) {
		return lp.Solution{}, fmt.Errorf("simplex %s: non-finite bound", p.Name)
	}
	g := mat.NewDense(m, n, nil)
	h := make([]float64, m)
	for i, con := range p.Constraints {
		for _, t := range con.Terms {
			g.Set(i, t.Var, g.At(i, t.Var)-t.Coef)
		}
		h[i] = -con.Lower / scale
	}
	cNew, aNew, bNew := gonumlp.Convert(c, g, h, nil, nil)
	tol := s.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	opt, x, err := gonumlp.Simplex(cNew, aNew, bNew, tol, nil)
	if err != nil {
		if errors.Is(err, gonumlp.ErrInfeasible) {
			return lp.Solution{Feasible: false}, nil
		}
		return lp.Solution{}, fmt.Errorf("simplex %s: %w", p.Name, err)
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = (x[i] - x[n+i]) * scale
	}
	return lp.Solution{Feasible: true, Objective: opt * scale, Values: values}, nil
}

// boundScale is the largest absolute lower bound, or 1 when every bound is 0.
func boundScale(constraints []lp.Constraint) float64 {
	var scale float64
	for _, con := range constraints {
		if math.IsNaN(con.Lower) {
			return math.NaN()
		}
		scale = math.Max(scale, math.Abs(con.Lower))
	}
	if scale == 0 {
		return 1
	}
	return scale
}

// unconstrained handles a problem with no rows: it is bounded only when no
// variable has a non-zero objective.
func unconstrained(c []float64) (lp.Solution, error) {
	for _, v := range c {
		if v != 0 {
			return lp.Solution{}, errors.New("simplex: problem is unbounded")
		}
	}
	return lp.Solution{Feasible: true, Values: make([]float64, len(c))}, nil
}
