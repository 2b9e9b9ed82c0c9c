// Package solvertest provides a scripted backend for exercising solver
// consumers without a real LP/QP engine: tests declare the capabilities the
// backend should advertise and the outcomes it should return, then assert on
// the problems it recorded.
package solvertest

import (
	"fmt"

	"github.com/consortia-dev/consortia/solver"
)

// Step is one scripted Solve answer.
type Step struct {
	Out *solver.Outcome
	Err error
}

// Optimal scripts a clean optimum with the given objective and primals.
func Optimal(objective float64, primal ...float64) Step {
	return Step{Out: &solver.Outcome{
		Status:    solver.StatusOptimal,
		Objective: objective,
		ColPrimal: primal,
	}}
}

// Terminal scripts a solve ending in the given status with no point.
func Terminal(status solver.Status) Step {
	return Step{Out: &solver.Outcome{Status: status}}
}

// Fail scripts a backend error.
func Fail(err error) Step { return Step{Err: err} }

// Backend replays a script of outcomes and records every problem it is
// handed. When OnSolve is set it overrides the script entirely.
type Backend struct {
	// Caps is what Capabilities reports. Set Quadratic/Integer to unlock
	// QP and MILP code paths under test.
	Caps solver.Capabilities

	// Script is consumed one Step per Solve call.
	Script []Step

	// OnSolve, when non-nil, computes the answer instead of the script.
	OnSolve func(p *solver.Problem) (*solver.Outcome, error)

	// Problems accumulates a snapshot of every compiled problem seen.
	Problems []*solver.Problem

	// Resets counts Reset calls made by retry machinery.
	Resets int

	calls int
}

// Name implements solver.Backend.
func (b *Backend) Name() string { return "solvertest" }

// Capabilities implements solver.Backend.
func (b *Backend) Capabilities() solver.Capabilities { return b.Caps }

// Reset implements solver.Resetter.
func (b *Backend) Reset() error {
	b.Resets++

	return nil
}

// Solve implements solver.Backend.
func (b *Backend) Solve(p *solver.Problem) (*solver.Outcome, error) {
	b.Problems = append(b.Problems, p)
	if b.OnSolve != nil {
		return b.OnSolve(p)
	}
	if b.calls >= len(b.Script) {
		return nil, fmt.Errorf("solvertest: no scripted outcome for call %d", b.calls+1)
	}
	step := b.Script[b.calls]
	b.calls++
	if step.Err != nil {
		return nil, step.Err
	}
	out := step.Out
	if out.ColPrimal != nil && len(out.ColPrimal) < len(p.Cols) {
		// Pad short primal scripts so tests only list the variables they
		// care about (scripts address columns in insertion order).
		padded := make([]float64, len(p.Cols))
		copy(padded, out.ColPrimal)
		cp := *out
		cp.ColPrimal = padded
		out = &cp
	}

	return out, nil
}

// LastProblem returns the most recently recorded problem, or nil.
func (b *Backend) LastProblem() *solver.Problem {
	if len(b.Problems) == 0 {
		return nil
	}

	return b.Problems[len(b.Problems)-1]
}

// Col returns the column with the given name from p, or nil.
func Col(p *solver.Problem, name string) *solver.Col {
	for i := range p.Cols {
		if p.Cols[i].Name == name {
			return &p.Cols[i]
		}
	}

	return nil
}

// Row returns the row with the given name from p, or nil.
func Row(p *solver.Problem, name string) *solver.Row {
	for i := range p.Rows {
		if p.Rows[i].Name == name {
			return &p.Rows[i]
		}
	}

	return nil
}
