package interaction

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/consortia-dev/consortia/community"
)

// JaccardDistance computes pairwise metabolic distances between members as
// 1 - |A∩B| / |A∪B| over their sets of (global) reaction IDs. Returns the
// symmetric matrix and the taxon order of its rows.
func JaccardDistance(c *community.Community) (*mat.SymDense, []string) {
	taxa := c.Taxa()
	sets := make([]map[string]bool, len(taxa))
	idx := make(map[string]int, len(taxa))
	for i, tid := range taxa {
		sets[i] = make(map[string]bool)
		idx[tid] = i
	}
	for _, r := range c.Network().Reactions() {
		if i, ok := idx[r.CommunityID]; ok {
			sets[i][r.GlobalID] = true
		}
	}

	d := mat.NewSymDense(len(taxa), nil)
	for i := range taxa {
		for j := i + 1; j < len(taxa); j++ {
			inter, union := 0, len(sets[j])
			for rid := range sets[i] {
				if sets[j][rid] {
					inter++
				} else {
					union++
				}
			}
			dist := 1.0
			if union > 0 {
				dist = 1 - float64(inter)/float64(union)
			}
			d.SetSym(i, j, dist)
		}
	}

	return d, taxa
}

// EuclideanDistance computes pairwise distances between members over their
// flux vectors (indexed by global reaction ID, absent reactions count as
// zero). The Solution must carry fluxes.
func EuclideanDistance(c *community.Community, sol *community.Solution) (*mat.SymDense, []string, error) {
	if sol == nil || sol.Fluxes == nil {
		return nil, nil, community.ErrNoFluxes
	}
	taxa := c.Taxa()
	d := mat.NewSymDense(len(taxa), nil)
	for i := range taxa {
		for j := i + 1; j < len(taxa); j++ {
			fi, fj := sol.Fluxes[taxa[i]], sol.Fluxes[taxa[j]]
			sum := 0.0
			for rid, vi := range fi {
				diff := vi - fj[rid]
				sum += diff * diff
			}
			for rid, vj := range fj {
				if _, shared := fi[rid]; !shared {
					sum += vj * vj
				}
			}
			d.SetSym(i, j, math.Sqrt(sum))
		}
	}

	return d, taxa, nil
}
