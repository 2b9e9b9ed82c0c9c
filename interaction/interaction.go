// Package interaction analyzes metabolite flows between community members:
// which species a focal taxon provides to or receives from its partners,
// summarized as total, mass, carbon and nitrogen fluxes, plus metabolic
// distance matrices between members and elasticity coefficients of fluxes
// with respect to the diet and the taxon abundances.
package interaction

import (
	"math"
	"sort"

	"github.com/consortia-dev/consortia/community"
)

// fluxTol is the medium-flux magnitude below which a taxon is considered
// inactive on a metabolite.
const fluxTol = 1e-6

// Class labels the direction of one focal-vs-partners metabolite flow.
type Class string

// Flow classes.
const (
	// Provided: the focal taxon secretes while partners consume.
	Provided Class = "provided"
	// Received: the focal taxon consumes while partners secrete.
	Received Class = "received"
	// CoConsumed: focal taxon and partners compete for the metabolite.
	CoConsumed Class = "co-consumed"
)

// Flow is one classified metabolite exchange between the focal taxon and
// the rest of the community. Fluxes are medium-directed and abundance
// scaled: positive values feed the shared pool.
type Flow struct {
	Metabolite  string
	Class       Class
	FocalFlux   float64
	PartnerFlux float64
}

// Flows classifies every medium metabolite the focal taxon trades with its
// partners. The Solution must carry fluxes. Metabolites where either side
// is inactive are omitted; results are ordered by metabolite ID.
func Flows(c *community.Community, sol *community.Solution, focal string) ([]Flow, error) {
	perTaxon, err := c.MediumFlows(sol)
	if err != nil {
		return nil, err
	}
	if _, ok := perTaxon[focal]; !ok {
		return nil, community.ErrTaxonNotFound
	}

	partner := make(map[string]float64)
	for tid, flows := range perTaxon {
		if tid == focal {
			continue
		}
		for mid, v := range flows {
			partner[mid] += v
		}
	}

	var out []Flow
	for mid, f := range perTaxon[focal] {
		p := partner[mid]
		var class Class
		switch {
		case f > fluxTol && p < -fluxTol:
			class = Provided
		case f < -fluxTol && p > fluxTol:
			class = Received
		case f < -fluxTol && p < -fluxTol:
			class = CoConsumed
		default:
			continue
		}
		out = append(out, Flow{Metabolite: mid, Class: class, FocalFlux: f, PartnerFlux: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metabolite < out[j].Metabolite })

	return out, nil
}

// Summary aggregates one taxon's classified flows into per-class totals:
// raw flux, mass flux (g-scale) and elemental carbon/nitrogen fluxes.
type Summary struct {
	Taxon    string
	Counts   map[Class]int
	Flux     map[Class]float64
	MassFlux map[Class]float64
	Carbon   map[Class]float64
	Nitrogen map[Class]float64
}

// Summarize classifies and aggregates the focal taxon's metabolite flows.
func Summarize(c *community.Community, sol *community.Solution, focal string) (*Summary, error) {
	flows, err := Flows(c, sol, focal)
	if err != nil {
		return nil, err
	}
	s := &Summary{
		Taxon:    focal,
		Counts:   make(map[Class]int),
		Flux:     make(map[Class]float64),
		MassFlux: make(map[Class]float64),
		Carbon:   make(map[Class]float64),
		Nitrogen: make(map[Class]float64),
	}
	for _, f := range flows {
		met := c.Network().Metabolite(f.Metabolite)
		mag := math.Abs(f.FocalFlux)
		s.Counts[f.Class]++
		s.Flux[f.Class] += mag
		if met != nil {
			s.MassFlux[f.Class] += mag * met.Formula.Weight() / 1000
			s.Carbon[f.Class] += mag * met.Formula.Element("C")
			s.Nitrogen[f.Class] += mag * met.Formula.Element("N")
		}
	}

	return s, nil
}
