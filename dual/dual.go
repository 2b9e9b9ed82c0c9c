// Package dual converts a standard-form LP (all variables continuous and
// non-negative) into its dual, expressed inside the same model: for every
// primal constraint and every binding primal bound it adds one dual
// variable, and for every primal variable carrying an objective coefficient
// it adds one dual constraint. The returned coefficients form the dual
// objective.
//
// The construction never solves anything. Under strong duality the dual
// objective evaluated at a dual-optimal point equals the primal optimum,
// which is what lets bilevel optimality be encoded as linear constraints.
package dual

import (
	"errors"
	"fmt"
	"math"

	"github.com/consortia-dev/consortia/solver"
)

// Sentinel errors for rejected primal problems.
var (
	// ErrNonLinear indicates a quadratic primal objective.
	ErrNonLinear = errors.New("dual: primal objective is not linear")

	// ErrNotContinuous indicates integer or binary primal variables.
	ErrNotContinuous = errors.New("dual: primal variables must be continuous")

	// ErrNotStandardForm indicates a primal variable with a negative lower
	// bound; the dual rules assume x >= 0.
	ErrNotStandardForm = errors.New("dual: primal variable has negative lower bound")
)

// DefaultPrefix names dual entities when callers pass "".
const DefaultPrefix = "dual_"

// lbActive is the threshold above which a primal lower bound gets its own
// dual variable; implicit zero bounds contribute none.
const lbActive = 1e-8

// Coefficient is one dual variable's entry in the dual objective, tagged
// with the primal entity it derives from so callers can group dual
// variables by namespace suffix.
type Coefficient struct {
	Var    *solver.Variable
	Coef   float64
	Source string
}

// Dualize adds the dual variables and dual constraints of the model's
// current LP to the model itself and returns the dual objective.
//
// Rules (sign = +1 for a maximization primal, -1 for minimization):
//  1. Constraints with an empty expression or no finite bound are skipped.
//  2. An equality constraint yields one free dual variable; a one- or
//     two-sided inequality yields one non-negative dual variable per
//     finite bound.
//  3. Every primal lower bound above zero and every finite upper bound
//     yields one non-negative dual variable.
//  4. For each primal variable with a non-zero objective coefficient c, one
//     dual constraint bounds the signed sum of its dual coefficients
//     against c: >= c for maximization, <= c for minimization.
//
// Run inside a transaction when the dual should be temporary. Complexity:
// O(nnz + V + C).
func Dualize(m *solver.Model, prefix string) ([]Coefficient, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	obj := m.Objective()
	if obj.IsQuadratic() {
		return nil, ErrNonLinear
	}
	primalVars := m.Variables()
	primalCons := m.Constraints()
	for _, v := range primalVars {
		if v.Type() != solver.Continuous {
			return nil, fmt.Errorf("variable %q: %w", v.Name(), ErrNotContinuous)
		}
		if v.LB() < 0 {
			return nil, fmt.Errorf("variable %q lb %g: %w", v.Name(), v.LB(), ErrNotStandardForm)
		}
	}

	sign := 1.0
	if obj.Direction == solver.Minimize {
		sign = -1.0
	}

	var dualObj []Coefficient
	// table maps primal variable -> dual variable -> coefficient in that
	// primal variable's dual constraint.
	table := make(map[*solver.Variable]solver.Lin)
	entry := func(v *solver.Variable) solver.Lin {
		if table[v] == nil {
			table[v] = solver.NewLin()
		}

		return table[v]
	}

	for _, c := range primalCons {
		expr := c.Expr()
		if len(expr) == 0 {
			continue
		}
		lb, ub := c.LB(), c.UB()
		switch {
		case math.IsInf(lb, -1) && math.IsInf(ub, 1):
			continue
		case lb == ub:
			dv, err := m.AddVariable(prefix+c.Name()+"_constraint", -solver.Inf, solver.Inf, solver.Continuous)
			if err != nil {
				return nil, err
			}
			if lb != 0 {
				dualObj = append(dualObj, Coefficient{Var: dv, Coef: sign * lb, Source: c.Name()})
			}
			for _, v := range expr.Vars() {
				entry(v).Add(dv, sign*expr[v])
			}
		default:
			if !math.IsInf(lb, -1) {
				dv, err := m.AddVariable(prefix+c.Name()+"_constraint_lb", 0, solver.Inf, solver.Continuous)
				if err != nil {
					return nil, err
				}
				if lb != 0 {
					dualObj = append(dualObj, Coefficient{Var: dv, Coef: -sign * lb, Source: c.Name()})
				}
				for _, v := range expr.Vars() {
					entry(v).Add(dv, -sign*expr[v])
				}
			}
			if !math.IsInf(ub, 1) {
				dv, err := m.AddVariable(prefix+c.Name()+"_constraint_ub", 0, solver.Inf, solver.Continuous)
				if err != nil {
					return nil, err
				}
				if ub != 0 {
					dualObj = append(dualObj, Coefficient{Var: dv, Coef: sign * ub, Source: c.Name()})
				}
				for _, v := range expr.Vars() {
					entry(v).Add(dv, sign*expr[v])
				}
			}
		}
	}

	for _, v := range primalVars {
		if v.LB() > lbActive {
			dv, err := m.AddVariable(prefix+v.Name()+"_lb", 0, solver.Inf, solver.Continuous)
			if err != nil {
				return nil, err
			}
			dualObj = append(dualObj, Coefficient{Var: dv, Coef: -sign * v.LB(), Source: v.Name()})
			entry(v).Add(dv, -sign)
		}
		if !math.IsInf(v.UB(), 1) {
			dv, err := m.AddVariable(prefix+v.Name()+"_ub", 0, solver.Inf, solver.Continuous)
			if err != nil {
				return nil, err
			}
			if v.UB() != 0 {
				dualObj = append(dualObj, Coefficient{Var: dv, Coef: sign * v.UB(), Source: v.Name()})
			}
			entry(v).Add(dv, sign)
		}
	}

	for _, v := range obj.Linear.Vars() {
		cv := obj.Linear[v]
		if cv == 0 {
			continue
		}
		lb, ub := cv, solver.Inf
		if obj.Direction == solver.Minimize {
			lb, ub = -solver.Inf, cv
		}
		if _, err := m.AddConstraint(prefix+"obj_"+v.Name(), table[v], lb, ub); err != nil {
			return nil, err
		}
	}

	return dualObj, nil
}

// Objective folds a dual objective into a Lin expression.
func Objective(coefs []Coefficient) solver.Lin {
	out := solver.NewLin()
	for _, c := range coefs {
		out.Add(c.Var, c.Coef)
	}

	return out
}
