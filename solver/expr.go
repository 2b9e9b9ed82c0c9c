package solver

import "sort"

// Lin is a linear expression: a sparse map from variable to coefficient.
// The zero value is unusable; create with NewLin or a map literal.
type Lin map[*Variable]float64

// NewLin returns an empty linear expression.
func NewLin() Lin { return make(Lin) }

// Add accumulates coef onto v's coefficient and returns e for chaining.
func (e Lin) Add(v *Variable, coef float64) Lin {
	e[v] += coef

	return e
}

// AddExpr accumulates scale*o onto e and returns e.
func (e Lin) AddExpr(o Lin, scale float64) Lin {
	for v, c := range o {
		e[v] += c * scale
	}

	return e
}

// Clone returns an independent copy of e.
func (e Lin) Clone() Lin {
	out := make(Lin, len(e))
	for v, c := range e {
		out[v] = c
	}

	return out
}

// Vars returns the variables of e ordered by model index, giving every
// caller a deterministic iteration order.
func (e Lin) Vars() []*Variable {
	out := make([]*Variable, 0, len(e))
	for v := range e {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].idx < out[j].idx })

	return out
}

// Value evaluates e under the assignment in values (absent variables count
// as zero).
func (e Lin) Value(values map[*Variable]float64) float64 {
	var sum float64
	for v, c := range e {
		sum += c * values[v]
	}

	return sum
}

// QuadTerm is one quadratic objective term Coef * I * J.
type QuadTerm struct {
	I, J *Variable
	Coef float64
}

// Square expands (Σ e)² into quadratic terms with I.idx <= J.idx. Cross
// terms are merged, so Square(a·x + b·y) yields a²·x², 2ab·x·y, b²·y².
func Square(e Lin) []QuadTerm {
	vars := e.Vars()
	out := make([]QuadTerm, 0, len(vars)*(len(vars)+1)/2)
	for i, vi := range vars {
		ci := e[vi]
		out = append(out, QuadTerm{I: vi, J: vi, Coef: ci * ci})
		for _, vj := range vars[i+1:] {
			out = append(out, QuadTerm{I: vi, J: vj, Coef: 2 * ci * e[vj]})
		}
	}

	return out
}

// Objective is a linear-plus-quadratic optimization target. Offset is a
// constant added to the objective value (it never influences the argmax).
type Objective struct {
	Direction Direction
	Linear    Lin
	Quad      []QuadTerm
	Offset    float64
}

// NewObjective returns an empty objective with the given direction.
func NewObjective(dir Direction) Objective {
	return Objective{Direction: dir, Linear: NewLin()}
}

// IsQuadratic reports whether the objective carries quadratic terms.
func (o Objective) IsQuadratic() bool { return len(o.Quad) > 0 }

// clone returns a deep copy; SetObjective stores clones so that caller-side
// mutation of the maps cannot corrupt the model or its journal.
func (o Objective) clone() Objective {
	cp := o
	cp.Linear = o.Linear.Clone()
	cp.Quad = append([]QuadTerm(nil), o.Quad...)

	return cp
}
