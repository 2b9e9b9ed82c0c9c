// Package tradeoff implements the cooperative tradeoff analysis: community
// growth is first maximized, then an L2 "egoistic" objective distributes
// that growth across members as evenly as the network allows while the
// community rate is held at a fraction of its maximum. It also provides
// taxon knockouts on top of the same machinery.
package tradeoff

import (
	"fmt"
	"sort"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
)

// degenerateTol excludes effectively fixed variables from the L2 penalty.
const degenerateTol = 1e-6

// Options tunes a cooperative tradeoff run.
type Options struct {
	// MinGrowth gives per-taxon hard growth floors; nil means none.
	MinGrowth map[string]float64

	// Fractions of the maximal community growth to scan; nil means {1}.
	// Processed largest-first regardless of input order.
	Fractions []float64

	// Fluxes, PFBA and Duals select the Solution contents.
	Fluxes bool
	PFBA   bool
	Duals  bool

	// AbsTol and RelTol relax the growth floors; zero selects 1e-6.
	AbsTol float64
	RelTol float64
}

func (o *Options) fill() {
	if len(o.Fractions) == 0 {
		o.Fractions = []float64{1}
	}
	if o.AbsTol == 0 {
		o.AbsTol = 1e-6
	}
	if o.RelTol == 0 {
		o.RelTol = 1e-6
	}
}

// Result pairs one scanned fraction with its Solution (nil when that
// fraction's problem had no usable optimum).
type Result struct {
	Fraction float64
	Solution *community.Solution
}

// Run executes the cooperative tradeoff scan.
//
// Steps:
//  1. Apply the growth floors and solve for the maximal community growth
//     (the 100% reference); failure here is an error since nothing else
//     can be computed.
//  2. Replace the objective with the negated sum of squares of every
//     non-degenerate variable in each taxon's objective support (a QP,
//     maximized).
//  3. For each fraction, largest first: bound the community-objective
//     variable to [fraction*max, max] and solve; fuzzy optima on backends
//     without native QP support go through crossover.
//
// All edits happen inside one scoped transaction.
func Run(c *community.Community, be solver.Backend, opts Options) ([]Result, error) {
	opts.fill()
	fractions := append([]float64(nil), opts.Fractions...)
	sort.Sort(sort.Reverse(sort.Float64Slice(fractions)))

	var results []Result
	err := c.Atomic(func() error {
		if err := c.SetModification("l2 regularization"); err != nil {
			return err
		}
		if opts.MinGrowth != nil {
			if err := c.ApplyMinGrowth(opts.MinGrowth, opts.AbsTol, opts.RelTol); err != nil {
				return err
			}
		}

		ref, err := c.OptimizeCurrent(be)
		if err != nil {
			return err
		}
		if !ref.Status().Usable() {
			return fmt.Errorf("reference growth solve ended %s: %w", ref.Status(), community.ErrNotOptimal)
		}
		maxGrowth := ref.Value(c.ObjectiveVar())

		c.Model().SetObjective(egoisticObjective(c))

		for _, f := range fractions {
			if err := c.ObjectiveVar().SetBounds(f*maxGrowth, maxGrowth); err != nil {
				return err
			}
			sol, err := solveFraction(c, be, opts)
			if err != nil {
				return err
			}
			if sol == nil {
				logging.L().Warn().Str("community", c.ID()).Float64("fraction", f).
					Msg("tradeoff fraction had no usable optimum")
			}
			results = append(results, Result{Fraction: f, Solution: sol})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// One runs the tradeoff for a single fraction.
func One(c *community.Community, be solver.Backend, fraction float64, opts Options) (*community.Solution, error) {
	opts.Fractions = []float64{fraction}
	results, err := Run(c, be, opts)
	if err != nil {
		return nil, err
	}

	return results[0].Solution, nil
}

// egoisticObjective builds the negated L2 distance: the sum of squares of
// every variable in each taxon's objective support whose bounds are
// non-degenerate, negated and maximized.
func egoisticObjective(c *community.Community) solver.Objective {
	obj := solver.NewObjective(solver.Maximize)
	for _, tid := range c.Taxa() {
		for _, v := range c.GrowthExpression(tid).Vars() {
			if v.UB()-v.LB() > degenerateTol {
				obj.Quad = append(obj.Quad, solver.QuadTerm{I: v, J: v, Coef: -1})
			}
		}
	}

	return obj
}

func solveFraction(c *community.Community, be solver.Backend, opts Options) (*community.Solution, error) {
	res, err := c.OptimizeCurrent(be)
	if err != nil {
		return nil, err
	}
	st := res.Status()
	if !st.Usable() {
		return nil, nil
	}
	sOpts := community.SolveOptions{Fluxes: opts.Fluxes, PFBA: opts.PFBA, Duals: opts.Duals}
	if st != solver.StatusOptimal && !be.Capabilities().NativeQP {
		growths := make(map[string]float64, len(c.Taxa()))
		for _, tid := range c.Taxa() {
			growths[tid] = res.ValueOf(c.GrowthExpression(tid))
		}
		logging.L().Info().Str("community", c.ID()).Str("status", string(st)).
			Msg("running crossover on fuzzy quadratic optimum")

		return c.Crossover(be, growths, sOpts)
	}

	return c.Extract(res, be, sOpts)
}
