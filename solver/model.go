package solver

import "fmt"

// Variable is one decision variable owned by a Model. Bound changes go
// through SetBounds so that open transactions can revert them.
type Variable struct {
	name   string
	lb, ub float64
	typ    VarType
	idx    int
	m      *Model
}

// Name returns the unique variable name.
func (v *Variable) Name() string { return v.name }

// LB returns the lower bound.
func (v *Variable) LB() float64 { return v.lb }

// UB returns the upper bound.
func (v *Variable) UB() float64 { return v.ub }

// Type returns the variable domain.
func (v *Variable) Type() VarType { return v.typ }

// SetBounds updates both bounds, journaling the previous values.
func (v *Variable) SetBounds(lb, ub float64) error {
	if lb > ub {
		return fmt.Errorf("variable %q [%g, %g]: %w", v.name, lb, ub, ErrBadBounds)
	}
	oldLB, oldUB := v.lb, v.ub
	v.m.record(func() { v.lb, v.ub = oldLB, oldUB })
	v.lb, v.ub = lb, ub

	return nil
}

// SetLB updates only the lower bound.
func (v *Variable) SetLB(lb float64) error { return v.SetBounds(lb, v.ub) }

// SetUB updates only the upper bound.
func (v *Variable) SetUB(ub float64) error { return v.SetBounds(v.lb, ub) }

// Constraint is one linear constraint LB <= expr <= UB owned by a Model.
type Constraint struct {
	name   string
	coefs  Lin
	lb, ub float64
	m      *Model
}

// Name returns the unique constraint name.
func (c *Constraint) Name() string { return c.name }

// LB returns the lower bound (-Inf when one-sided).
func (c *Constraint) LB() float64 { return c.lb }

// UB returns the upper bound (+Inf when one-sided).
func (c *Constraint) UB() float64 { return c.ub }

// Coef returns the coefficient of v in the constraint (0 when absent).
func (c *Constraint) Coef(v *Variable) float64 { return c.coefs[v] }

// Expr returns an independent copy of the constraint expression.
func (c *Constraint) Expr() Lin { return c.coefs.Clone() }

// Vars returns the constraint's variables ordered by model index.
func (c *Constraint) Vars() []*Variable { return c.coefs.Vars() }

// SetBounds updates both bounds, journaling the previous values.
func (c *Constraint) SetBounds(lb, ub float64) error {
	if lb > ub {
		return fmt.Errorf("constraint %q [%g, %g]: %w", c.name, lb, ub, ErrBadBounds)
	}
	oldLB, oldUB := c.lb, c.ub
	c.m.record(func() { c.lb, c.ub = oldLB, oldUB })
	c.lb, c.ub = lb, ub

	return nil
}

// SetLB updates only the lower bound.
func (c *Constraint) SetLB(lb float64) error { return c.SetBounds(lb, c.ub) }

// SetUB updates only the upper bound.
func (c *Constraint) SetUB(ub float64) error { return c.SetBounds(c.lb, ub) }

// SetCoef sets (or with 0, clears) the coefficient of v, journaled.
func (c *Constraint) SetCoef(v *Variable, coef float64) error {
	if v.m != c.m {
		return ErrForeign
	}
	old, had := c.coefs[v]
	c.m.record(func() {
		if had {
			c.coefs[v] = old
		} else {
			delete(c.coefs, v)
		}
	})
	if coef == 0 {
		delete(c.coefs, v)
	} else {
		c.coefs[v] = coef
	}

	return nil
}

// AddCoef accumulates coef onto the existing coefficient of v, journaled.
func (c *Constraint) AddCoef(v *Variable, coef float64) error {
	return c.SetCoef(v, c.coefs[v]+coef)
}

// Model is a mutable LP/QP: ordered variables and constraints, one
// objective and an undo journal powering scoped transactions. Not safe for
// concurrent use.
type Model struct {
	name      string
	vars      []*Variable
	varByName map[string]*Variable
	cons      []*Constraint
	conByName map[string]*Constraint
	obj       Objective

	undo  []func()
	marks []int
}

// NewModel creates an empty model with a zero maximization objective.
func NewModel(name string) *Model {
	return &Model{
		name:      name,
		varByName: make(map[string]*Variable),
		conByName: make(map[string]*Constraint),
		obj:       NewObjective(Maximize),
	}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// NumVariables returns the number of variables.
func (m *Model) NumVariables() int { return len(m.vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.cons) }

// Var returns the variable with the given name, or nil.
func (m *Model) Var(name string) *Variable { return m.varByName[name] }

// Constraint returns the constraint with the given name, or nil.
func (m *Model) Constraint(name string) *Constraint { return m.conByName[name] }

// Variables returns a copy of the variable list in insertion order.
func (m *Model) Variables() []*Variable {
	return append([]*Variable(nil), m.vars...)
}

// Constraints returns a copy of the constraint list in insertion order.
func (m *Model) Constraints() []*Constraint {
	return append([]*Constraint(nil), m.cons...)
}

// AddVariable creates a new variable. Names must be unique across the model.
func (m *Model) AddVariable(name string, lb, ub float64, typ VarType) (*Variable, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, ok := m.varByName[name]; ok {
		return nil, fmt.Errorf("variable %q: %w", name, ErrDuplicateName)
	}
	if lb > ub {
		return nil, fmt.Errorf("variable %q [%g, %g]: %w", name, lb, ub, ErrBadBounds)
	}
	v := &Variable{name: name, lb: lb, ub: ub, typ: typ, idx: len(m.vars), m: m}
	m.vars = append(m.vars, v)
	m.varByName[name] = v
	m.record(func() {
		m.vars = m.vars[:len(m.vars)-1]
		delete(m.varByName, v.name)
	})

	return v, nil
}

// AddConstraint creates a new constraint LB <= expr <= UB. The expression is
// copied; later changes to the caller's Lin do not affect the constraint.
func (m *Model) AddConstraint(name string, expr Lin, lb, ub float64) (*Constraint, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, ok := m.conByName[name]; ok {
		return nil, fmt.Errorf("constraint %q: %w", name, ErrDuplicateName)
	}
	if lb > ub {
		return nil, fmt.Errorf("constraint %q [%g, %g]: %w", name, lb, ub, ErrBadBounds)
	}
	for v := range expr {
		if v.m != m {
			return nil, fmt.Errorf("constraint %q: %w", name, ErrForeign)
		}
	}
	c := &Constraint{name: name, coefs: expr.Clone(), lb: lb, ub: ub, m: m}
	m.cons = append(m.cons, c)
	m.conByName[name] = c
	m.record(func() { m.dropConstraint(c) })

	return c, nil
}

// RemoveConstraint deletes c from the model. A rollback re-adds it at the
// end of the constraint list (order, not identity, may differ afterwards).
func (m *Model) RemoveConstraint(c *Constraint) error {
	if c.m != m {
		return ErrForeign
	}
	if _, ok := m.conByName[c.name]; !ok {
		return fmt.Errorf("constraint %q: %w", c.name, ErrNotFound)
	}
	m.dropConstraint(c)
	m.record(func() {
		m.cons = append(m.cons, c)
		m.conByName[c.name] = c
	})

	return nil
}

func (m *Model) dropConstraint(c *Constraint) {
	for i, cc := range m.cons {
		if cc == c {
			m.cons = append(m.cons[:i], m.cons[i+1:]...)
			break
		}
	}
	delete(m.conByName, c.name)
}

// Objective returns a copy of the current objective.
func (m *Model) Objective() Objective { return m.obj.clone() }

// SetObjective replaces the objective, journaling the previous one.
func (m *Model) SetObjective(o Objective) {
	old := m.obj
	m.record(func() { m.obj = old })
	m.obj = o.clone()
}

// Begin opens a transaction: a restore point for every subsequent edit.
// Transactions nest.
func (m *Model) Begin() {
	m.marks = append(m.marks, len(m.undo))
}

// Rollback reverts all edits made since the most recent Begin, in reverse
// order, and closes that transaction.
func (m *Model) Rollback() error {
	if len(m.marks) == 0 {
		return ErrNoTransaction
	}
	mark := m.marks[len(m.marks)-1]
	m.marks = m.marks[:len(m.marks)-1]
	for i := len(m.undo) - 1; i >= mark; i-- {
		m.undo[i]()
	}
	m.undo = m.undo[:mark]

	return nil
}

// OnRollback registers an external undo hook that runs when the enclosing
// transaction rolls back, interleaved with model edits in reverse order.
// Callers use it to keep shadow state (e.g. network metadata) in sync with
// journaled model edits. No-op outside a transaction.
func (m *Model) OnRollback(f func()) { m.record(f) }

// InTransaction reports whether at least one transaction is open.
func (m *Model) InTransaction() bool { return len(m.marks) > 0 }

// record appends an undo step when a transaction is open. Outside of any
// transaction edits are permanent and nothing is journaled.
func (m *Model) record(f func()) {
	if len(m.marks) > 0 {
		m.undo = append(m.undo, f)
	}
}
