package community

import (
	"fmt"
	"math"

	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
)

// SolveOptions selects what a Solution carries and how non-optimal statuses
// are treated.
type SolveOptions struct {
	// Fluxes includes the stratified per-taxon flux table.
	Fluxes bool

	// PFBA re-solves with pinned growth rates minimizing total absolute
	// flux, selecting a unique low-activity flux distribution.
	PFBA bool

	// Duals includes reduced costs and shadow prices when the backend
	// produces them.
	Duals bool

	// RaiseOnNonOptimal turns infeasible/unbounded/failed statuses into an
	// ErrNotOptimal error instead of a nil Solution.
	RaiseOnNonOptimal bool
}

// Member is one taxon's share of a Solution.
type Member struct {
	Taxon       string
	Abundance   float64
	GrowthRate  float64
	Reactions   int
	Metabolites int
}

// Solution is the immutable outcome of one community optimization:
// objective and status, per-member growth rates, the community growth rate,
// and optional stratified flux/dual tables keyed by CommunityID ("medium"
// for shared entities) and GlobalID.
type Solution struct {
	Objective    float64
	Status       solver.Status
	Strategy     string
	GrowthRate   float64
	Members      []Member
	Fluxes       map[string]map[string]float64
	ReducedCosts map[string]map[string]float64
	ShadowPrices map[string]float64
}

// Member returns the entry for one taxon, or nil.
func (s *Solution) Member(taxon string) *Member {
	for i := range s.Members {
		if s.Members[i].Taxon == taxon {
			return &s.Members[i]
		}
	}

	return nil
}

// Optimize maximizes the community objective and extracts a Solution. All
// edits (including the pFBA re-solve) happen inside a scoped transaction.
// Infeasible or unbounded problems yield a nil Solution and a logged status
// unless RaiseOnNonOptimal is set.
func (c *Community) Optimize(be solver.Backend, opts SolveOptions) (*Solution, error) {
	var sol *Solution
	err := c.Atomic(func() error {
		res, err := c.optimizeWithRetry(be)
		if err != nil {
			return err
		}
		if !res.Status().Usable() {
			logging.L().Warn().Str("community", c.id).Str("status", string(res.Status())).
				Msg("community optimization did not reach a usable point")
			if opts.RaiseOnNonOptimal {
				return fmt.Errorf("status %s: %w", res.Status(), ErrNotOptimal)
			}

			return nil
		}
		sol, err = c.Extract(res, be, opts)

		return err
	})

	return sol, err
}

// Extract assembles a Solution from a solved point. Must run inside the
// transaction that produced res when PFBA is requested, since the pFBA pass
// edits growth bounds and the objective.
func (c *Community) Extract(res *solver.Result, be solver.Backend, opts SolveOptions) (*Solution, error) {
	sol := &Solution{
		Objective:  res.Objective(),
		Status:     res.Status(),
		Strategy:   c.modification,
		GrowthRate: res.Value(c.objVar),
	}

	counts := c.memberCounts()
	for _, tid := range c.taxa {
		sol.Members = append(sol.Members, Member{
			Taxon:       tid,
			Abundance:   c.abundance[tid],
			GrowthRate:  res.ValueOf(c.growthExpr[tid]),
			Reactions:   counts[tid][0],
			Metabolites: counts[tid][1],
		})
	}

	fluxRes := res
	if opts.PFBA {
		pres, err := c.pfba(be, res)
		if err != nil {
			return nil, err
		}
		if pres != nil {
			fluxRes = pres
		}
	}

	if opts.Fluxes {
		sol.Fluxes = make(map[string]map[string]float64)
		for _, r := range c.net.Reactions() {
			group := sol.Fluxes[r.CommunityID]
			if group == nil {
				group = make(map[string]float64)
				sol.Fluxes[r.CommunityID] = group
			}
			group[r.GlobalID] = c.Flux(fluxRes, r.ID)
		}
	}

	if opts.Duals && fluxRes.HasDuals() {
		sol.ReducedCosts = make(map[string]map[string]float64)
		for _, r := range c.net.Reactions() {
			rc, err := fluxRes.ReducedCost(c.fwd[r.ID])
			if err != nil {
				return nil, err
			}
			group := sol.ReducedCosts[r.CommunityID]
			if group == nil {
				group = make(map[string]float64)
				sol.ReducedCosts[r.CommunityID] = group
			}
			group[r.GlobalID] = rc
		}
		sol.ShadowPrices = make(map[string]float64)
		for _, m := range c.net.Metabolites() {
			sp, err := fluxRes.Dual(c.model.Constraint(m.ID))
			if err != nil {
				return nil, err
			}
			sol.ShadowPrices[m.ID] = sp
		}
	}

	return sol, nil
}

// pfba pins every taxon's growth floor to its just-solved rate and
// re-solves minimizing total absolute flux. Returns nil when the secondary
// solve is not usable (the primary point is kept in that case).
func (c *Community) pfba(be solver.Backend, res *solver.Result) (*solver.Result, error) {
	for _, tid := range c.taxa {
		g := res.ValueOf(c.growthExpr[tid])
		lb := g - 1e-9*math.Max(1, math.Abs(g))
		if lb < 0 {
			lb = 0
		}
		if err := c.growthCons[tid].SetLB(lb); err != nil {
			return nil, err
		}
	}
	obj := solver.NewObjective(solver.Minimize)
	for _, r := range c.net.Reactions() {
		obj.Linear.Add(c.fwd[r.ID], 1).Add(c.rev[r.ID], 1)
	}
	c.model.SetObjective(obj)

	pres, err := c.optimizeWithRetry(be)
	if err != nil {
		return nil, err
	}
	if !pres.Status().Usable() {
		logging.L().Warn().Str("community", c.id).Str("status", string(pres.Status())).
			Msg("pFBA pass failed, keeping primary flux distribution")

		return nil, nil
	}

	return pres, nil
}

// MediumFlows derives, from a Solution with fluxes, each taxon's net flux
// into the medium per medium metabolite (positive = secretion into the
// shared pool, negative = uptake, scaled by abundance through the coupling
// coefficients).
func (c *Community) MediumFlows(sol *Solution) (map[string]map[string]float64, error) {
	if sol == nil || sol.Fluxes == nil {
		return nil, ErrNoFluxes
	}
	out := make(map[string]map[string]float64, len(c.taxa))
	for _, tid := range c.taxa {
		flows := make(map[string]float64)
		for _, cp := range c.couplings[tid] {
			r := c.net.Reaction(cp.rid)
			flows[cp.medID] += r.Stoichiometry[cp.medID] * sol.Fluxes[tid][r.GlobalID]
		}
		out[tid] = flows
	}

	return out, nil
}

// memberCounts tallies reactions and metabolites per taxon.
func (c *Community) memberCounts() map[string][2]int {
	out := make(map[string][2]int, len(c.taxa))
	for _, r := range c.net.Reactions() {
		e := out[r.CommunityID]
		e[0]++
		out[r.CommunityID] = e
	}
	for _, m := range c.net.Metabolites() {
		e := out[m.CommunityID]
		e[1]++
		out[m.CommunityID] = e
	}

	return out
}
