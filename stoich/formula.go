package stoich

import (
	"fmt"
	"strconv"
)

// Formula is an elemental chemical formula such as "C6H12O6". Element counts
// may be fractional, which is common for lumped biomass metabolites.
type Formula string

// atomicWeights covers the elements appearing in genome-scale metabolic
// reconstructions. Values in g/mol.
var atomicWeights = map[string]float64{
	"H": 1.008, "He": 4.0026, "Li": 6.94, "B": 10.81, "C": 12.011,
	"N": 14.007, "O": 15.999, "F": 18.998, "Na": 22.990, "Mg": 24.305,
	"Al": 26.982, "Si": 28.085, "P": 30.974, "S": 32.06, "Cl": 35.45,
	"K": 39.098, "Ca": 40.078, "Ti": 47.867, "V": 50.942, "Cr": 51.996,
	"Mn": 54.938, "Fe": 55.845, "Co": 58.933, "Ni": 58.693, "Cu": 63.546,
	"Zn": 65.38, "As": 74.922, "Se": 78.971, "Br": 79.904, "Mo": 95.95,
	"Ag": 107.87, "Cd": 112.41, "Sn": 118.71, "I": 126.90, "W": 183.84,
	"Hg": 200.59, "R": 0, "X": 0, // generic residues weigh nothing
}

// Elements parses the formula into element → count. An empty formula yields
// an empty map. Returns ErrBadFormula on anything that is not a sequence of
// element symbols with optional (possibly fractional) counts.
func (f Formula) Elements() (map[string]float64, error) {
	out := make(map[string]float64)
	s := string(f)
	i := 0
	for i < len(s) {
		c := s[i]
		if c < 'A' || c > 'Z' {
			return nil, fmt.Errorf("%w: %q at offset %d", ErrBadFormula, s, i)
		}
		j := i + 1
		for j < len(s) && s[j] >= 'a' && s[j] <= 'z' {
			j++
		}
		elem := s[i:j]
		i = j
		for j < len(s) && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
			j++
		}
		count := 1.0
		if j > i {
			v, err := strconv.ParseFloat(s[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q at offset %d", ErrBadFormula, s, i)
			}
			count = v
		}
		out[elem] += count
		i = j
	}

	return out, nil
}

// Element returns the count of one element, or 0 when absent or unparsable.
func (f Formula) Element(symbol string) float64 {
	elems, err := f.Elements()
	if err != nil {
		return 0
	}

	return elems[symbol]
}

// Weight returns the molecular weight in g/mol. Unknown element symbols and
// unparsable formulas yield 0, mirroring the forgiving behavior growth-media
// weighting expects (callers substitute a floor weight).
func (f Formula) Weight() float64 {
	elems, err := f.Elements()
	if err != nil {
		return 0
	}
	var w float64
	for elem, count := range elems {
		w += atomicWeights[elem] * count
	}

	return w
}
