package community

import (
	"math"

	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
)

// crossoverTol is the width of the growth window pinned during crossover.
const crossoverTol = 1e-6

// optimizeWithRetry solves the model once and, when the backend leaves it
// in a non-usable state that is not proven infeasible/unbounded, resets the
// backend (if it supports resets) and tries once more. Both statuses are
// logged when the retry also fails.
func (c *Community) optimizeWithRetry(be solver.Backend) (*solver.Result, error) {
	res, err := c.model.Optimize(be)
	if err != nil {
		return nil, err
	}
	st := res.Status()
	if st.Usable() || st == solver.StatusInfeasible || st == solver.StatusUnbounded {
		return res, nil
	}
	r, ok := be.(solver.Resetter)
	if !ok {
		return res, nil
	}
	logging.L().Warn().Str("community", c.id).Str("status", string(st)).
		Msg("solve failed, resetting backend and retrying")
	if err := r.Reset(); err != nil {
		return nil, err
	}
	res2, err := c.model.Optimize(be)
	if err != nil {
		return nil, err
	}
	if !res2.Status().Usable() {
		logging.L().Error().Str("community", c.id).
			Str("status", string(st)).Str("retry_status", string(res2.Status())).
			Msg("solve failed after backend reset")
	}

	return res2, nil
}

// OptimizeCurrent solves the model exactly as currently configured (the
// caller's transaction owns any temporary objective or bounds), applying
// the retry recovery. Strategy packages build on it.
func (c *Community) OptimizeCurrent(be solver.Backend) (*solver.Result, error) {
	return c.optimizeWithRetry(be)
}

// Crossover recovers a clean LP optimum from a numerically fuzzy (usually
// QP) point: inside a scoped transaction it pins every taxon's growth
// window to [g, g+tol] around the handed-in rates, swaps in a plain
// maximize-community-growth objective and re-solves. Returns nil when the
// recovery solve is not usable.
func (c *Community) Crossover(be solver.Backend, growths map[string]float64, opts SolveOptions) (*Solution, error) {
	var sol *Solution
	err := c.Atomic(func() error {
		for _, tid := range c.taxa {
			g := math.Max(0, growths[tid])
			if err := c.growthCons[tid].SetBounds(g, g+crossoverTol); err != nil {
				return err
			}
		}
		obj := solver.NewObjective(solver.Maximize)
		obj.Linear.Add(c.objVar, 1)
		c.model.SetObjective(obj)

		res, err := c.optimizeWithRetry(be)
		if err != nil {
			return err
		}
		if !res.Status().Usable() {
			logging.L().Warn().Str("community", c.id).Str("status", string(res.Status())).
				Msg("crossover failed to recover a clean optimum")

			return nil
		}
		sol, err = c.Extract(res, be, opts)

		return err
	})

	return sol, err
}
