package solver

import (
	"fmt"

	"github.com/consortia-dev/consortia/logging"
)

// Optimize compiles the model and solves it with the given backend.
//
// Steps:
//  1. Refuse quadratic objectives and integer variables the backend cannot
//     handle (ErrQuadraticUnsupported, ErrIntegerUnsupported).
//  2. Compile to column/row form and hand it to the backend.
//  3. Wrap the outcome into a Result keyed by model entities.
//
// Infeasible or unbounded problems are not errors: the Result carries the
// terminal status and callers decide how to react. An error means the
// backend itself failed.
func (m *Model) Optimize(b Backend) (*Result, error) {
	caps := b.Capabilities()
	if m.obj.IsQuadratic() && !caps.Quadratic {
		return nil, fmt.Errorf("backend %s: %w", b.Name(), ErrQuadraticUnsupported)
	}
	if m.hasInteger() && !caps.Integer {
		return nil, fmt.Errorf("backend %s: %w", b.Name(), ErrIntegerUnsupported)
	}

	p := m.Compile()
	out, err := b.Solve(p)
	if err != nil {
		return nil, fmt.Errorf("backend %s: solve %s: %w", b.Name(), m.name, err)
	}
	logging.L().Debug().
		Str("model", m.name).
		Str("backend", b.Name()).
		Int("cols", len(p.Cols)).
		Int("rows", len(p.Rows)).
		Str("status", string(out.Status)).
		Float64("objective", out.Objective).
		Msg("solved")

	return newResult(m, out), nil
}
