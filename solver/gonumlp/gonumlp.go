// Package gonumlp is a pure-Go LP backend built on gonum's dense simplex
// (gonum.org/v1/gonum/optimize/convex/lp). It needs no cgo and no external
// binaries, which makes it the backend of choice for tests and small
// problems. It produces no dual values and accepts neither quadratic
// objectives nor integer variables.
package gonumlp

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/consortia-dev/consortia/solver"
)

// Backend solves LPs with gonum's simplex. The zero value is ready to use.
type Backend struct {
	// Tol is the simplex pivot tolerance; 0 selects gonum's default.
	Tol float64
}

// New returns a simplex backend with default tolerance.
func New() *Backend { return &Backend{} }

// Name implements solver.Backend.
func (b *Backend) Name() string { return "gonum-simplex" }

// Capabilities implements solver.Backend.
func (b *Backend) Capabilities() solver.Capabilities {
	return solver.Capabilities{}
}

// feasTol absorbs float rounding when a fully substituted row is checked
// against its bounds.
const feasTol = 1e-9

// Solve lowers the problem into gonum's general form and runs the simplex.
//
// Steps:
//  1. Substitute fixed columns (lb == ub) out of every row and the
//     objective. Emitting them as equality rows makes the standard-form
//     basis rank deficient once whole variable groups are pinned (a taxon
//     knockout fixes dozens of fluxes at zero) and the simplex reports a
//     singular basis instead of the optimum.
//  2. Negate costs for maximization (the simplex minimizes).
//  3. Emit every remaining row and every finite variable bound as a
//     general-form constraint: equalities into A·x = b, everything else
//     into G·x <= h.
//  4. lp.Convert to standard form, lp.Simplex, then map the split
//     positive/negative parts back onto the original variables.
//
// Infeasible and unbounded problems come back as terminal statuses, not
// errors. Complexity is dominated by the dense simplex.
func (b *Backend) Solve(p *solver.Problem) (*solver.Outcome, error) {
	if len(p.Quad) > 0 {
		return nil, solver.ErrQuadraticUnsupported
	}
	for i := range p.Cols {
		if p.Cols[i].Integer {
			return nil, solver.ErrIntegerUnsupported
		}
	}

	total := len(p.Cols)
	fixed := make([]float64, total)
	colOf := make([]int, total) // original index -> reduced index, -1 when fixed
	var free []int
	for i := range p.Cols {
		if p.Cols[i].LB == p.Cols[i].UB {
			fixed[i] = p.Cols[i].LB
			colOf[i] = -1
			continue
		}
		colOf[i] = len(free)
		free = append(free, i)
	}
	n := len(free)

	c := make([]float64, n)
	for j, i := range free {
		c[j] = p.Cols[i].Cost
		if p.Direction == solver.Maximize {
			c[j] = -c[j]
		}
	}

	var (
		gRows [][]float64
		h     []float64
		aRows [][]float64
		bVec  []float64
	)
	// dense reduces a term list to the free columns and accumulates the
	// contribution of the fixed ones.
	dense := func(terms []solver.Term) (row []float64, shift float64, empty bool) {
		row = make([]float64, n)
		empty = true
		for _, t := range terms {
			if j := colOf[t.Col]; j >= 0 {
				row[j] += t.Coef
				if t.Coef != 0 {
					empty = false
				}
			} else {
				shift += t.Coef * fixed[t.Col]
			}
		}

		return row, shift, empty
	}
	negated := func(row []float64) []float64 {
		out := make([]float64, len(row))
		for i := range row {
			out[i] = -row[i]
		}

		return out
	}
	for _, r := range p.Rows {
		row, shift, empty := dense(r.Terms)
		lb, ub := r.LB, r.UB
		if !math.IsInf(lb, -1) {
			lb -= shift
		}
		if !math.IsInf(ub, 1) {
			ub -= shift
		}
		if empty {
			// Fully substituted row: a pure feasibility check.
			if lb > feasTol || ub < -feasTol {
				return &solver.Outcome{Status: solver.StatusInfeasible}, nil
			}
			continue
		}
		switch {
		case lb == ub:
			aRows = append(aRows, row)
			bVec = append(bVec, ub)
		default:
			if !math.IsInf(ub, 1) {
				gRows = append(gRows, row)
				h = append(h, ub)
			}
			if !math.IsInf(lb, -1) {
				gRows = append(gRows, negated(row))
				h = append(h, -lb)
			}
		}
	}
	unit := func(col int, scale float64) []float64 {
		row := make([]float64, n)
		row[col] = scale

		return row
	}
	for j, i := range free {
		lb, ub := p.Cols[i].LB, p.Cols[i].UB
		if !math.IsInf(ub, 1) {
			gRows = append(gRows, unit(j, 1))
			h = append(h, ub)
		}
		if !math.IsInf(lb, -1) {
			gRows = append(gRows, unit(j, -1))
			h = append(h, -lb)
		}
	}

	finish := func(xFree []float64) *solver.Outcome {
		x := make([]float64, total)
		obj := p.Offset
		for i := range p.Cols {
			if j := colOf[i]; j >= 0 {
				x[i] = xFree[j]
			} else {
				x[i] = fixed[i]
			}
			obj += p.Cols[i].Cost * x[i]
		}

		return &solver.Outcome{
			Status:    solver.StatusOptimal,
			Objective: obj,
			ColPrimal: x,
		}
	}

	var g, a mat.Matrix
	if len(gRows) > 0 {
		g = mat.NewDense(len(gRows), n, flatten(gRows))
	}
	if len(aRows) > 0 {
		a = mat.NewDense(len(aRows), n, flatten(aRows))
	}
	if g == nil && a == nil {
		// No constraints on the free variables: any nonzero cost makes the
		// problem unbounded.
		for i := range c {
			if c[i] != 0 {
				return &solver.Outcome{Status: solver.StatusUnbounded}, nil
			}
		}

		return finish(make([]float64, n)), nil
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, a, bVec)
	_, xStd, err := lp.Simplex(cStd, aStd, bStd, b.Tol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &solver.Outcome{Status: solver.StatusInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return &solver.Outcome{Status: solver.StatusUnbounded}, nil
	case err != nil:
		return &solver.Outcome{Status: solver.StatusFailed}, nil
	}

	xFree := make([]float64, n)
	for j := 0; j < n; j++ {
		xFree[j] = xStd[j] - xStd[n+j]
	}

	return finish(xFree), nil
}

func flatten(rows [][]float64) []float64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]float64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}

	return out
}
