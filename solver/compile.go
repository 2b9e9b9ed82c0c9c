package solver

// Compile lowers the model into the immutable column/row form backends
// consume. Columns follow variable insertion order, rows follow constraint
// insertion order, so the same model always compiles to the same Problem.
//
// Steps:
//  1. Emit one Col per variable, folding the objective's linear
//     coefficients into the column costs.
//  2. Emit one Row per constraint with terms ordered by column index.
//  3. Emit quadratic objective entries with I <= J.
//
// Complexity: O(V + Σ nnz(row) + Q).
func (m *Model) Compile() *Problem {
	p := &Problem{
		Name:      m.name,
		Direction: m.obj.Direction,
		Cols:      make([]Col, len(m.vars)),
		Rows:      make([]Row, 0, len(m.cons)),
		Offset:    m.obj.Offset,
	}
	for i, v := range m.vars {
		p.Cols[i] = Col{
			Name:    v.name,
			LB:      v.lb,
			UB:      v.ub,
			Cost:    m.obj.Linear[v],
			Integer: v.typ != Continuous,
		}
		if v.typ == Binary {
			// Binary domain is encoded as integer with clamped bounds.
			if p.Cols[i].LB < 0 {
				p.Cols[i].LB = 0
			}
			if p.Cols[i].UB > 1 {
				p.Cols[i].UB = 1
			}
		}
	}
	for _, c := range m.cons {
		row := Row{Name: c.name, LB: c.lb, UB: c.ub, Terms: make([]Term, 0, len(c.coefs))}
		for _, v := range c.coefs.Vars() {
			row.Terms = append(row.Terms, Term{Col: v.idx, Coef: c.coefs[v]})
		}
		p.Rows = append(p.Rows, row)
	}
	if len(m.obj.Quad) > 0 {
		p.Quad = make([]QuadEntry, 0, len(m.obj.Quad))
		for _, q := range m.obj.Quad {
			i, j := q.I.idx, q.J.idx
			if i > j {
				i, j = j, i
			}
			p.Quad = append(p.Quad, QuadEntry{I: i, J: j, Coef: q.Coef})
		}
	}

	return p
}

// hasInteger reports whether any variable is integer or binary.
func (m *Model) hasInteger() bool {
	for _, v := range m.vars {
		if v.typ != Continuous {
			return true
		}
	}

	return false
}
