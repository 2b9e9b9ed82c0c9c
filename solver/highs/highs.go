// Package highs is an LP backend backed by the HiGHS solver through the
// gohighs binding. It returns dual values (shadow prices and reduced
// costs), which the community analyses need for metabolite valuation and
// for LP dualization checks.
package highs

import (
	"math"

	gohighs "github.com/bartolsthoorn/gohighs/highs"

	"github.com/consortia-dev/consortia/solver"
)

// Backend solves LPs with HiGHS. The zero value is ready to use; every
// Solve builds a fresh HiGHS model, so backends may be shared across
// problems (but not across goroutines).
type Backend struct {
	// Output enables HiGHS log output, off by default.
	Output bool
}

// New returns a HiGHS backend with logging disabled.
func New() *Backend { return &Backend{} }

// Name implements solver.Backend.
func (b *Backend) Name() string { return "highs" }

// Capabilities implements solver.Backend.
func (b *Backend) Capabilities() solver.Capabilities {
	return solver.Capabilities{Duals: true}
}

// Reset implements solver.Resetter. The binding rebuilds its model on every
// Solve, so there is no factorization or basis to discard.
func (b *Backend) Reset() error { return nil }

// Solve hands the problem to HiGHS.
//
// HiGHS minimizes, so maximization problems are solved with negated costs
// and the objective and all dual values are negated back on the way out.
func (b *Backend) Solve(p *solver.Problem) (*solver.Outcome, error) {
	if len(p.Quad) > 0 {
		return nil, solver.ErrQuadraticUnsupported
	}
	for i := range p.Cols {
		if p.Cols[i].Integer {
			return nil, solver.ErrIntegerUnsupported
		}
	}

	n := len(p.Cols)
	sign := 1.0
	if p.Direction == solver.Maximize {
		sign = -1.0
	}
	m := gohighs.Model{
		ColCosts: make([]float64, n),
		ColLower: make([]float64, n),
		ColUpper: make([]float64, n),
	}
	for i := range p.Cols {
		m.ColCosts[i] = sign * p.Cols[i].Cost
		m.ColLower[i] = p.Cols[i].LB
		m.ColUpper[i] = p.Cols[i].UB
	}
	for _, r := range p.Rows {
		coefs := make([]float64, n)
		for _, t := range r.Terms {
			coefs[t.Col] += t.Coef
		}
		m.AddDenseRow(r.LB, coefs, r.UB)
	}

	sol, err := m.Solve(gohighs.WithOutput(b.Output))
	if err != nil {
		return nil, err
	}

	var st solver.Status
	switch {
	case sol.IsOptimal():
		st = solver.StatusOptimal
	case sol.IsInfeasible():
		st = solver.StatusInfeasible
	case sol.IsUnbounded():
		st = solver.StatusUnbounded
	case sol.IsTimeLimit():
		st = solver.StatusTimeLimit
	case sol.HasSolution():
		st = solver.StatusFeasible
	default:
		st = solver.StatusFailed
	}

	out := &solver.Outcome{Status: st}
	if !sol.HasSolution() {
		return out, nil
	}
	out.ColPrimal = append([]float64(nil), sol.ColValues...)
	out.Objective = sign*sol.Objective + p.Offset
	if len(sol.ColDuals) == n {
		out.ColDual = make([]float64, n)
		for i, d := range sol.ColDuals {
			out.ColDual[i] = sign * d
		}
	}
	if len(sol.RowDuals) == len(p.Rows) {
		out.RowDual = make([]float64, len(p.Rows))
		for i, d := range sol.RowDuals {
			out.RowDual[i] = sign * d
		}
	}
	if math.IsNaN(out.Objective) {
		out.Status = solver.StatusNumeric
	}

	return out, nil
}
