package solver

import (
	"errors"
	"math"
)

// Sentinel errors for model construction and solving.
var (
	// ErrEmptyName indicates a variable or constraint with an empty name.
	ErrEmptyName = errors.New("solver: name is empty")

	// ErrDuplicateName indicates a variable or constraint name already in use.
	ErrDuplicateName = errors.New("solver: duplicate name")

	// ErrNotFound indicates a lookup for an unknown variable or constraint.
	ErrNotFound = errors.New("solver: not found")

	// ErrForeign indicates an entity that belongs to a different model.
	ErrForeign = errors.New("solver: entity belongs to another model")

	// ErrBadBounds indicates a lower bound above an upper bound.
	ErrBadBounds = errors.New("solver: lower bound exceeds upper bound")

	// ErrNoTransaction indicates Rollback without a matching Begin.
	ErrNoTransaction = errors.New("solver: no open transaction")

	// ErrQuadraticUnsupported indicates a quadratic objective handed to a
	// backend without QP support.
	ErrQuadraticUnsupported = errors.New("solver: backend does not support quadratic objectives")

	// ErrIntegerUnsupported indicates integer variables handed to a backend
	// without MILP support.
	ErrIntegerUnsupported = errors.New("solver: backend does not support integer variables")

	// ErrNoDuals indicates dual values requested from a backend that did not
	// produce any.
	ErrNoDuals = errors.New("solver: backend produced no dual values")
)

// Inf is positive infinity, the canonical "no bound" value.
var Inf = math.Inf(1)

// VarType describes the domain of a variable.
type VarType int8

const (
	// Continuous variables may take any value within their bounds.
	Continuous VarType = iota
	// Binary variables are restricted to {0, 1}.
	Binary
	// Integer variables are restricted to whole numbers within bounds.
	Integer
)

// Direction is the optimization sense of an objective.
type Direction int8

const (
	// Maximize the objective.
	Maximize Direction = iota
	// Minimize the objective.
	Minimize
)

// Status reports the state a backend left the problem in. The string values
// are stable and appear in Solution records and logs.
type Status string

const (
	// StatusOptimal is a proven optimum with a clean basis.
	StatusOptimal Status = "optimal"
	// StatusFeasible is a feasible but not proven-optimal point.
	StatusFeasible Status = "feasible"
	// StatusSuboptimal is a near-optimal point, typical of barrier/QP codes.
	StatusSuboptimal Status = "suboptimal"
	// StatusNumeric signals the solver stopped on numerical difficulties but
	// still produced a usable point.
	StatusNumeric Status = "numeric"
	// StatusIterationLimit signals the iteration limit was hit.
	StatusIterationLimit Status = "iteration limit"
	// StatusTimeLimit signals the time limit was hit.
	StatusTimeLimit Status = "time limit"
	// StatusInfeasible is a proven-infeasible problem.
	StatusInfeasible Status = "infeasible"
	// StatusUnbounded is a proven-unbounded problem.
	StatusUnbounded Status = "unbounded"
	// StatusUndetermined covers "infeasible or unbounded" answers.
	StatusUndetermined Status = "infeasible or unbounded"
	// StatusFailed is everything else.
	StatusFailed Status = "failed"
)

// Usable reports whether a solution point may be read back under this
// status. Non-clean statuses are usable but should go through crossover.
func (s Status) Usable() bool {
	switch s {
	case StatusOptimal, StatusFeasible, StatusSuboptimal, StatusNumeric, StatusIterationLimit:
		return true
	default:
		return false
	}
}

// Capabilities advertises what a backend can do. The core checks these
// before compiling a problem and adapts (or refuses) accordingly.
type Capabilities struct {
	// Quadratic objectives are accepted.
	Quadratic bool
	// Integer and binary variables are accepted.
	Integer bool
	// Duals reports whether row duals (shadow prices) and column duals
	// (reduced costs) are returned.
	Duals bool
	// NativeQP marks direct QP solvers whose QP answers do not profit from
	// an LP crossover cleanup.
	NativeQP bool
}

// Term is one column coefficient inside a compiled row.
type Term struct {
	Col  int
	Coef float64
}

// Col is one compiled variable.
type Col struct {
	Name    string
	LB, UB  float64
	Cost    float64
	Integer bool
}

// Row is one compiled constraint with LB <= terms <= UB.
type Row struct {
	Name   string
	LB, UB float64
	Terms  []Term
}

// QuadEntry is one objective term Coef * x[I] * x[J].
type QuadEntry struct {
	I, J int
	Coef float64
}

// Problem is the immutable column/row form handed to a Backend.
type Problem struct {
	Name      string
	Direction Direction
	Cols      []Col
	Rows      []Row
	Quad      []QuadEntry
	Offset    float64
}

// Outcome is what a Backend returns. Dual slices are nil when the backend
// does not produce duals (or none are available for the problem class).
type Outcome struct {
	Status    Status
	Objective float64
	ColPrimal []float64
	ColDual   []float64
	RowDual   []float64
}

// Backend solves compiled problems. Implementations must be safe to reuse
// across problems but are not required to be safe for concurrent use.
type Backend interface {
	Name() string
	Capabilities() Capabilities
	Solve(p *Problem) (*Outcome, error)
}

// Resetter is an optional recovery hook: backends that keep internal state
// (a basis, a factorization) implement it so the numerical stabilizer can
// discard that state between retry attempts.
type Resetter interface {
	Reset() error
}
