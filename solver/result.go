package solver

// Result exposes a solved point of a model. It is a snapshot: values stay
// valid after later model edits, but they describe the model as it was at
// solve time. Entities from other models yield zero values.
type Result struct {
	status    Status
	objective float64
	values    map[*Variable]float64
	reduced   map[*Variable]float64
	shadow    map[*Constraint]float64
	hasDuals  bool
}

// Status returns the backend status of this solve.
func (r *Result) Status() Status { return r.status }

// Objective returns the objective value at the solved point.
func (r *Result) Objective() float64 { return r.objective }

// Value returns the primal value of v at the solved point.
func (r *Result) Value(v *Variable) float64 { return r.values[v] }

// ValueOf evaluates a linear expression at the solved point.
func (r *Result) ValueOf(e Lin) float64 { return e.Value(r.values) }

// Activity returns the value of the constraint expression at the solved
// point, recomputed from the primal values.
func (r *Result) Activity(c *Constraint) float64 { return c.coefs.Value(r.values) }

// HasDuals reports whether dual information was produced.
func (r *Result) HasDuals() bool { return r.hasDuals }

// Dual returns the shadow price of c. ErrNoDuals when the backend produced
// no dual values.
func (r *Result) Dual(c *Constraint) (float64, error) {
	if !r.hasDuals {
		return 0, ErrNoDuals
	}

	return r.shadow[c], nil
}

// ReducedCost returns the reduced cost of v. ErrNoDuals when the backend
// produced no dual values.
func (r *Result) ReducedCost(v *Variable) (float64, error) {
	if !r.hasDuals {
		return 0, ErrNoDuals
	}

	return r.reduced[v], nil
}

// newResult maps a backend outcome back onto model entities. The model must
// not have been edited between Compile and newResult.
func newResult(m *Model, out *Outcome) *Result {
	r := &Result{
		status:    out.Status,
		objective: out.Objective,
		values:    make(map[*Variable]float64, len(m.vars)),
	}
	for i, v := range m.vars {
		if i < len(out.ColPrimal) {
			r.values[v] = out.ColPrimal[i]
		}
	}
	if out.RowDual != nil || out.ColDual != nil {
		r.hasDuals = true
		r.reduced = make(map[*Variable]float64, len(out.ColDual))
		for i, v := range m.vars {
			if i < len(out.ColDual) {
				r.reduced[v] = out.ColDual[i]
			}
		}
		r.shadow = make(map[*Constraint]float64, len(out.RowDual))
		for i, c := range m.cons {
			if i < len(out.RowDual) {
				r.shadow[c] = out.RowDual[i]
			}
		}
	}

	return r
}
