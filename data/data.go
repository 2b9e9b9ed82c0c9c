// Package data ships small programmatic networks and taxonomies used by
// tests and examples. The fixtures are deliberately tiny but metabolically
// sensible: an import -> transport -> biomass chain, plus a producer and a
// consumer forming a cross-feeding pair.
package data

import (
	"fmt"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/stoich"
)

// GrowthNetwork builds the minimal growth chain: glucose import, transport
// into the cytosol and a biomass drain. Maximal growth equals the glucose
// import bound (10).
func GrowthNetwork(id string) *stoich.Network {
	n := stoich.NewNetwork(id)
	mustAdd(n,
		&stoich.Metabolite{ID: "glc_e", Name: "glucose", Compartment: "e", Formula: "C6H12O6"},
		&stoich.Metabolite{ID: "glc_c", Name: "glucose", Compartment: "c", Formula: "C6H12O6"},
	)
	mustAddRxns(n,
		&stoich.Reaction{
			ID: "EX_glc_e", Name: "glucose exchange",
			Stoichiometry: map[string]float64{"glc_e": -1},
			LowerBound:    -10, UpperBound: 1000,
		},
		&stoich.Reaction{
			ID: "GLCt", Name: "glucose transport",
			Stoichiometry: map[string]float64{"glc_e": -1, "glc_c": 1},
			LowerBound:    0, UpperBound: 1000,
		},
		&stoich.Reaction{
			ID: "BIOMASS", Name: "biomass drain",
			Stoichiometry: map[string]float64{"glc_c": -1},
			LowerBound:    0, UpperBound: 1000,
		},
	)
	mustObjective(n, map[string]float64{"BIOMASS": 1})

	return n
}

// ProducerNetwork grows on glucose and can ferment part of it to acetate,
// which leaves through an export-only exchange.
func ProducerNetwork(id string) *stoich.Network {
	n := stoich.NewNetwork(id)
	mustAdd(n,
		&stoich.Metabolite{ID: "glc_e", Name: "glucose", Compartment: "e", Formula: "C6H12O6"},
		&stoich.Metabolite{ID: "ac_e", Name: "acetate", Compartment: "e", Formula: "C2H3O2"},
		&stoich.Metabolite{ID: "glc_c", Name: "glucose", Compartment: "c", Formula: "C6H12O6"},
	)
	mustAddRxns(n,
		&stoich.Reaction{
			ID: "EX_glc_e", Name: "glucose exchange",
			Stoichiometry: map[string]float64{"glc_e": -1},
			LowerBound:    -10, UpperBound: 1000,
		},
		&stoich.Reaction{
			ID: "EX_ac_e", Name: "acetate exchange",
			Stoichiometry: map[string]float64{"ac_e": -1},
			LowerBound:    0, UpperBound: 1000,
		},
		&stoich.Reaction{
			ID: "GLCt", Name: "glucose transport",
			Stoichiometry: map[string]float64{"glc_e": -1, "glc_c": 1},
			LowerBound:    0, UpperBound: 1000,
		},
		&stoich.Reaction{
			ID: "FERM", Name: "acetate fermentation",
			Stoichiometry: map[string]float64{"glc_c": -1, "ac_e": 2},
			LowerBound:    0, UpperBound: 1000,
		},
		&stoich.Reaction{
			ID: "BIOMASS", Name: "biomass drain",
			Stoichiometry: map[string]float64{"glc_c": -1},
			LowerBound:    0, UpperBound: 1000,
		},
	)
	mustObjective(n, map[string]float64{"BIOMASS": 1})

	return n
}

// ConsumerNetwork grows on acetate only; in a community with a producer it
// lives off cross-fed fermentation products.
func ConsumerNetwork(id string) *stoich.Network {
	n := stoich.NewNetwork(id)
	mustAdd(n,
		&stoich.Metabolite{ID: "ac_e", Name: "acetate", Compartment: "e", Formula: "C2H3O2"},
		&stoich.Metabolite{ID: "ac_c", Name: "acetate", Compartment: "c", Formula: "C2H3O2"},
	)
	mustAddRxns(n,
		&stoich.Reaction{
			ID: "EX_ac_e", Name: "acetate exchange",
			Stoichiometry: map[string]float64{"ac_e": -1},
			LowerBound:    -20, UpperBound: 1000,
		},
		&stoich.Reaction{
			ID: "ACt", Name: "acetate transport",
			Stoichiometry: map[string]float64{"ac_e": -1, "ac_c": 1},
			LowerBound:    0, UpperBound: 1000,
		},
		&stoich.Reaction{
			ID: "BIOMASS", Name: "biomass drain",
			Stoichiometry: map[string]float64{"ac_c": -1},
			LowerBound:    0, UpperBound: 1000,
		},
	)
	mustObjective(n, map[string]float64{"BIOMASS": 1})

	return n
}

// EqualTaxonomy builds n identical growth-chain taxa with equal abundance.
func EqualTaxonomy(n int, prefix string) []community.Taxon {
	taxa := make([]community.Taxon, n)
	for i := range taxa {
		id := fmt.Sprintf("%s%d", prefix, i+1)
		taxa[i] = community.Taxon{ID: id, Abundance: 1, Network: GrowthNetwork(id)}
	}

	return taxa
}

// CrossFeedingTaxonomy builds a producer/consumer pair with the given
// abundances.
func CrossFeedingTaxonomy(producerAb, consumerAb float64) []community.Taxon {
	return []community.Taxon{
		{ID: "producer", Abundance: producerAb, Network: ProducerNetwork("producer")},
		{ID: "consumer", Abundance: consumerAb, Network: ConsumerNetwork("consumer")},
	}
}

// Loader resolves the fixture names "growth", "producer" and "consumer";
// "<name>:<id>" picks the network ID explicitly.
func Loader() stoich.Loader {
	return stoich.LoaderFunc(func(ref string) (*stoich.Network, error) {
		name, id := ref, ref
		for i := range ref {
			if ref[i] == ':' {
				name, id = ref[:i], ref[i+1:]
				break
			}
		}
		switch name {
		case "growth":
			return GrowthNetwork(id), nil
		case "producer":
			return ProducerNetwork(id), nil
		case "consumer":
			return ConsumerNetwork(id), nil
		default:
			return nil, fmt.Errorf("data: unknown fixture %q", ref)
		}
	})
}

func mustAdd(n *stoich.Network, mets ...*stoich.Metabolite) {
	for _, m := range mets {
		if err := n.AddMetabolite(m); err != nil {
			panic(err)
		}
	}
}

func mustAddRxns(n *stoich.Network, rxns ...*stoich.Reaction) {
	for _, r := range rxns {
		if err := n.AddReaction(r); err != nil {
			panic(err)
		}
	}
}

func mustObjective(n *stoich.Network, coefs map[string]float64) {
	if err := n.SetObjective(coefs); err != nil {
		panic(err)
	}
}
