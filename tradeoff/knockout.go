package tradeoff

import (
	"fmt"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/solver"
)

// Knockout reports how removing one taxon shifts the growth of the others.
type Knockout struct {
	// Taxon is the removed member.
	Taxon string

	// Growth maps each remaining taxon to its growth rate after the
	// knockout.
	Growth map[string]float64

	// Change is Growth minus the baseline (non-knockout) rate.
	Change map[string]float64

	// RelChange is Change divided by the baseline rate (0 when the
	// baseline is 0).
	RelChange map[string]float64
}

// Knockouts removes each listed taxon in turn (all taxa when the list is
// empty), re-runs the cooperative tradeoff at the given fraction and
// reports the growth shifts of the remaining members. Every knockout runs
// in its own nested transaction; the community is left untouched.
func Knockouts(c *community.Community, be solver.Backend, taxa []string, fraction float64, opts Options) ([]Knockout, error) {
	if len(taxa) == 0 {
		taxa = c.Taxa()
	}

	baseline, err := One(c, be, fraction, opts)
	if err != nil {
		return nil, err
	}
	if baseline == nil {
		return nil, fmt.Errorf("baseline tradeoff had no usable optimum: %w", community.ErrNotOptimal)
	}

	out := make([]Knockout, 0, len(taxa))
	for _, ko := range taxa {
		var sol *community.Solution
		err := c.Atomic(func() error {
			if err := c.KnockoutTaxon(ko); err != nil {
				return err
			}
			var err error
			sol, err = One(c, be, fraction, opts)

			return err
		})
		if err != nil {
			return nil, err
		}

		k := Knockout{
			Taxon:     ko,
			Growth:    make(map[string]float64),
			Change:    make(map[string]float64),
			RelChange: make(map[string]float64),
		}
		for _, tid := range c.Taxa() {
			if tid == ko {
				continue
			}
			base := baseline.Member(tid).GrowthRate
			g := 0.0
			if sol != nil {
				g = sol.Member(tid).GrowthRate
			}
			k.Growth[tid] = g
			k.Change[tid] = g - base
			if base != 0 {
				k.RelChange[tid] = (g - base) / base
			}
		}
		out = append(out, k)
	}

	return out, nil
}
