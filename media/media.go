// Package media searches growth media: the minimal medium sustaining a
// target community growth (by total weighted import flux or by number of
// components) and the completion of a partial medium with the fewest or
// smallest additional imports.
package media

import (
	"errors"
	"fmt"
	"math"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
	"github.com/consortia-dev/consortia/stoich"
)

// ErrStrictConflict indicates a strict medium entry that does not match any
// community exchange.
var ErrStrictConflict = errors.New("media: strict medium entry matches no exchange")

// Defaults used by the medium searches.
const (
	// DefaultOpenBound is the symmetric exchange bound applied by
	// OpenExchanges.
	DefaultOpenBound = 1000.0

	// DefaultTolerance is the flux magnitude below which an import is
	// treated as absent.
	DefaultTolerance = 1e-6

	// DefaultMaxImport caps candidate imports during medium completion.
	DefaultMaxImport = 100.0

	// missingWeightFloor substitutes for unknown molecular masses and
	// absent elements so no candidate becomes free to import.
	missingWeightFloor = 1e-2
)

// Weighting selects the import weights of the linear minimal-medium
// objective. The zero value weighs all imports uniformly.
type Weighting struct {
	// Mass weighs each import by molecular mass (kDa-scaled).
	Mass bool

	// Element weighs each import by its content of one element ("C",
	// "N", ...). Takes precedence over Mass when set.
	Element string
}

func (w Weighting) weight(f stoich.Formula) float64 {
	switch {
	case w.Element != "":
		if n := f.Element(w.Element); n > 0 {
			return n
		}

		return missingWeightFloor
	case w.Mass:
		if m := f.Weight(); m > 0 {
			return m / 1000
		}

		return missingWeightFloor
	default:
		return 1
	}
}

// Options tunes a minimal-medium search.
type Options struct {
	// CommunityGrowth is the growth rate the medium must sustain.
	CommunityGrowth float64

	// MinGrowth gives per-taxon floors; nil means none.
	MinGrowth map[string]float64

	// MinimizeComponents counts medium components (a MILP with one binary
	// indicator per exchange) instead of minimizing total import flux.
	MinimizeComponents bool

	// Weights selects the linear-objective weighting; ignored with
	// MinimizeComponents.
	Weights Weighting

	// OpenExchanges relaxes all exchange bounds to ±OpenBound first, so
	// the result reflects only the growth requirement.
	OpenExchanges bool
	OpenBound     float64

	// Exports includes export fluxes (as negative values) in the result.
	Exports bool

	// Tolerance is the flux cutoff; zero selects DefaultTolerance.
	Tolerance float64

	// AbsTol and RelTol relax the growth floors; zero selects 1e-6.
	AbsTol float64
	RelTol float64
}

func (o *Options) fill() {
	if o.OpenBound == 0 {
		o.OpenBound = DefaultOpenBound
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.AbsTol == 0 {
		o.AbsTol = 1e-6
	}
	if o.RelTol == 0 {
		o.RelTol = 1e-6
	}
}

// MinimalMedium computes the smallest growth medium sustaining the target
// community growth, as exchange reaction ID -> import flux. An infeasible
// problem yields a nil map with the status logged.
//
// Steps:
//  1. Optionally open all exchange bounds to a wide symmetric range.
//  2. Floor the community objective at CommunityGrowth and apply the
//     per-taxon floors.
//  3. Minimize either the weighted sum of import fluxes (LP; the import
//     magnitude is exactly the reverse split variable of each exchange) or
//     the number of active imports via binary indicators linked by a big-M
//     constraint (MILP, M = the largest bound magnitude across exchanges).
//
// All edits happen inside a scoped transaction.
func MinimalMedium(c *community.Community, be solver.Backend, opts Options) (map[string]float64, error) {
	opts.fill()

	var medium map[string]float64
	err := c.Atomic(func() error {
		exchanges := c.Exchanges()
		if opts.OpenExchanges {
			for _, ex := range exchanges {
				if err := c.SetReactionBounds(ex.ID, -opts.OpenBound, opts.OpenBound); err != nil {
					return err
				}
			}
		}
		if err := c.ObjectiveVar().SetLB(opts.CommunityGrowth); err != nil {
			return err
		}
		if opts.MinGrowth != nil {
			if err := c.ApplyMinGrowth(opts.MinGrowth, opts.AbsTol, opts.RelTol); err != nil {
				return err
			}
		}

		obj := solver.NewObjective(solver.Minimize)
		if opts.MinimizeComponents {
			bigM := 0.0
			for _, ex := range exchanges {
				bigM = math.Max(bigM, math.Max(math.Abs(ex.LowerBound), math.Abs(ex.UpperBound)))
			}
			for _, ex := range exchanges {
				y, err := c.Model().AddVariable("ind_"+ex.ID, 0, 1, solver.Binary)
				if err != nil {
					return err
				}
				link := solver.NewLin().Add(c.ReverseVar(ex.ID), 1).Add(y, -bigM)
				if _, err := c.Model().AddConstraint("ind_"+ex.ID+"_link", link, -solver.Inf, 0); err != nil {
					return err
				}
				obj.Linear.Add(y, 1)
			}
		} else {
			for _, ex := range exchanges {
				met := c.ExchangeMetabolite(ex.ID)
				obj.Linear.Add(c.ReverseVar(ex.ID), opts.Weights.weight(met.Formula))
			}
		}
		c.Model().SetObjective(obj)

		res, err := c.OptimizeCurrent(be)
		if err != nil {
			return err
		}
		if !res.Status().Usable() {
			logging.L().Warn().Str("community", c.ID()).Str("status", string(res.Status())).
				Float64("growth", opts.CommunityGrowth).
				Msg("no medium sustains the requested growth")

			return nil
		}

		medium = make(map[string]float64)
		for _, ex := range exchanges {
			flux := c.Flux(res, ex.ID)
			switch {
			case flux < -opts.Tolerance:
				medium[ex.ID] = -flux
			case opts.Exports && flux > opts.Tolerance:
				medium[ex.ID] = -flux
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return medium, nil
}

// CompleteOptions tunes a medium completion.
type CompleteOptions struct {
	// CommunityGrowth is the growth rate the completed medium must
	// sustain.
	CommunityGrowth float64

	// MinGrowth gives per-taxon floors; nil means none.
	MinGrowth map[string]float64

	// Strict pins the listed exchanges exactly to the caller's flux; a
	// conflict makes the completion infeasible instead of widening.
	Strict []string

	// MaxImport caps the import of non-strict candidates; zero selects
	// DefaultMaxImport.
	MaxImport float64

	// MinimizeComponents counts added components instead of minimizing
	// added flux.
	MinimizeComponents bool

	// Weights selects the added-flux weighting.
	Weights Weighting

	// Tolerance is the flux cutoff; zero selects DefaultTolerance.
	Tolerance float64

	// AbsTol and RelTol relax the growth floors; zero selects 1e-6.
	AbsTol float64
	RelTol float64
}

func (o *CompleteOptions) fill() {
	if o.MaxImport == 0 {
		o.MaxImport = DefaultMaxImport
	}
	if o.Tolerance == 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.AbsTol == 0 {
		o.AbsTol = 1e-6
	}
	if o.RelTol == 0 {
		o.RelTol = 1e-6
	}
}

// CompleteMedium minimally augments a partial medium until the community
// sustains the target growth. It returns the completed medium (exchange ID
// -> import flux), or nil when even the widened problem is infeasible —
// which is always the outcome when a Strict entry conflicts with the growth
// requirement.
//
// Non-strict exchanges may import up to MaxImport, but any amount beyond
// the caller's medium is charged to the objective through one slack
// variable per exchange; strict exchanges are pinned and get no slack.
func CompleteMedium(c *community.Community, be solver.Backend, medium map[string]float64, opts CompleteOptions) (map[string]float64, error) {
	opts.fill()
	strict := make(map[string]bool, len(opts.Strict))
	for _, rid := range opts.Strict {
		strict[rid] = true
	}

	var completed map[string]float64
	err := c.Atomic(func() error {
		exchanges := c.Exchanges()
		known := make(map[string]bool, len(exchanges))
		for _, ex := range exchanges {
			known[ex.ID] = true
		}
		for rid := range strict {
			if !known[rid] {
				return fmt.Errorf("%q: %w", rid, ErrStrictConflict)
			}
		}

		if err := c.ObjectiveVar().SetLB(opts.CommunityGrowth); err != nil {
			return err
		}
		if opts.MinGrowth != nil {
			if err := c.ApplyMinGrowth(opts.MinGrowth, opts.AbsTol, opts.RelTol); err != nil {
				return err
			}
		}

		obj := solver.NewObjective(solver.Minimize)
		for _, ex := range exchanges {
			target := math.Abs(medium[ex.ID])
			if strict[ex.ID] {
				if err := c.SetReactionBounds(ex.ID, -target, ex.UpperBound); err != nil {
					return err
				}
				continue
			}
			bound := math.Max(target, opts.MaxImport)
			if err := c.SetReactionBounds(ex.ID, -bound, ex.UpperBound); err != nil {
				return err
			}
			// added_<ex> >= import beyond the provided medium
			s, err := c.Model().AddVariable("added_"+ex.ID, 0, solver.Inf, solver.Continuous)
			if err != nil {
				return err
			}
			link := solver.NewLin().Add(c.ReverseVar(ex.ID), 1).Add(s, -1)
			if _, err := c.Model().AddConstraint("added_"+ex.ID+"_link", link, -solver.Inf, target); err != nil {
				return err
			}
			if opts.MinimizeComponents {
				y, err := c.Model().AddVariable("added_ind_"+ex.ID, 0, 1, solver.Binary)
				if err != nil {
					return err
				}
				ind := solver.NewLin().Add(s, 1).Add(y, -opts.MaxImport)
				if _, err := c.Model().AddConstraint("added_ind_"+ex.ID+"_link", ind, -solver.Inf, 0); err != nil {
					return err
				}
				obj.Linear.Add(y, 1)
			} else {
				met := c.ExchangeMetabolite(ex.ID)
				obj.Linear.Add(s, opts.Weights.weight(met.Formula))
			}
		}
		c.Model().SetObjective(obj)

		res, err := c.OptimizeCurrent(be)
		if err != nil {
			return err
		}
		if !res.Status().Usable() {
			logging.L().Warn().Str("community", c.ID()).Str("status", string(res.Status())).
				Msg("medium completion is infeasible")

			return nil
		}

		completed = make(map[string]float64)
		for _, ex := range exchanges {
			if flux := c.Flux(res, ex.ID); flux < -opts.Tolerance {
				completed[ex.ID] = -flux
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return completed, nil
}
