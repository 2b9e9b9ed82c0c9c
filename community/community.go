package community

import (
	"fmt"
	"math"
	"sort"

	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
	"github.com/consortia-dev/consortia/stoich"
)

// Community is the assembled shared-environment model: the combined
// stoichiometric network, the solver model over it, per-taxon growth
// machinery and the single modification slot. Build with New; not safe for
// concurrent use.
type Community struct {
	id    string
	net   *stoich.Network
	model *solver.Model

	taxa         []string
	abundance    map[string]float64
	relThreshold float64
	mass         float64
	exclude      []string

	fwd, rev   map[string]*solver.Variable
	growthExpr map[string]solver.Lin
	growthCons map[string]*solver.Constraint
	objVar     *solver.Variable
	objBalance *solver.Constraint

	couplings   map[string][]coupling
	exchangeIDs []string

	modification string
}

// ID returns the community identifier.
func (c *Community) ID() string { return c.id }

// Network returns the combined stoichiometric network. Callers must treat
// it as read-only; flux bounds are changed through SetReactionBounds.
func (c *Community) Network() *stoich.Network { return c.net }

// Model returns the underlying solver model. Strategy packages edit it only
// inside Atomic transactions.
func (c *Community) Model() *solver.Model { return c.model }

// Taxa returns the retained taxa in assembly order.
func (c *Community) Taxa() []string { return append([]string(nil), c.taxa...) }

// Abundance returns the relative abundance of one taxon (0 when unknown).
func (c *Community) Abundance(taxon string) float64 { return c.abundance[taxon] }

// Abundances returns a copy of the abundance table.
func (c *Community) Abundances() map[string]float64 {
	out := make(map[string]float64, len(c.abundance))
	for t, a := range c.abundance {
		out[t] = a
	}

	return out
}

// ObjectiveVar returns the community-objective variable.
func (c *Community) ObjectiveVar() *solver.Variable { return c.objVar }

// GrowthConstraint returns the "objective_<taxon>" constraint whose
// expression is the taxon's growth rate, or nil.
func (c *Community) GrowthConstraint(taxon string) *solver.Constraint {
	return c.growthCons[taxon]
}

// GrowthExpression returns a copy of the taxon's growth expression, or nil.
func (c *Community) GrowthExpression(taxon string) solver.Lin {
	e, ok := c.growthExpr[taxon]
	if !ok {
		return nil
	}

	return e.Clone()
}

// ForwardVar and ReverseVar return the split flux variables of a reaction.
func (c *Community) ForwardVar(rid string) *solver.Variable { return c.fwd[rid] }

// ReverseVar returns the reverse-direction flux variable of a reaction.
func (c *Community) ReverseVar(rid string) *solver.Variable { return c.rev[rid] }

// Flux returns the net flux of a reaction at a solved point.
func (c *Community) Flux(res *solver.Result, rid string) float64 {
	return res.Value(c.fwd[rid]) - res.Value(c.rev[rid])
}

// Exchanges returns the community-level medium exchange reactions in
// creation order.
func (c *Community) Exchanges() []*stoich.Reaction {
	out := make([]*stoich.Reaction, 0, len(c.exchangeIDs))
	for _, rid := range c.exchangeIDs {
		out = append(out, c.net.Reaction(rid))
	}

	return out
}

// ExchangeMetabolite returns the medium metabolite traded by a community
// exchange reaction, or nil.
func (c *Community) ExchangeMetabolite(exID string) *stoich.Metabolite {
	ex := c.net.Reaction(exID)
	if ex == nil {
		return nil
	}
	for mid := range ex.Stoichiometry {
		return c.net.Metabolite(mid)
	}

	return nil
}

// InternalExchanges returns the taxon-side exchange reactions coupled into
// the medium, grouped by taxon.
func (c *Community) InternalExchanges() map[string][]*stoich.Reaction {
	out := make(map[string][]*stoich.Reaction, len(c.couplings))
	for tid, cps := range c.couplings {
		for _, cp := range cps {
			out[tid] = append(out[tid], c.net.Reaction(cp.rid))
		}
	}

	return out
}

// SetReactionBounds changes a reaction's flux bounds, keeping network and
// solver views in sync. Outside a transaction the change is permanent.
func (c *Community) SetReactionBounds(rid string, lb, ub float64) error {
	r := c.net.Reaction(rid)
	if r == nil {
		return fmt.Errorf("reaction %q: %w", rid, stoich.ErrReactionNotFound)
	}

	return c.setReactionBounds(r, lb, ub)
}

// Modification returns the tag of the objective-rewriting procedure
// currently applied, or "".
func (c *Community) Modification() string { return c.modification }

// SetModification claims the single modification slot. Claiming while a
// different modification is active is a configuration error; re-claiming
// the same tag is a no-op.
func (c *Community) SetModification(tag string) error {
	if c.modification != "" && c.modification != tag {
		return fmt.Errorf("%q blocked by active %q: %w", tag, c.modification, ErrModificationActive)
	}
	c.modification = tag

	return nil
}

// ClearModification releases the modification slot.
func (c *Community) ClearModification() { c.modification = "" }

// Atomic runs fn inside a scoped transaction: every solver-model edit made
// by fn, and the modification slot, are reverted when fn returns — on
// success, error and panic alike. Transactions nest.
func (c *Community) Atomic(fn func() error) error {
	c.model.Begin()
	saved := c.modification
	defer func() {
		c.modification = saved
		if err := c.model.Rollback(); err != nil {
			logging.L().Error().Err(err).Str("community", c.id).Msg("transaction rollback failed")
		}
	}()

	return fn()
}

// SetAbundances changes the community composition in place.
//
// The new vector must cover exactly the retained taxa. With normalize set,
// values are rescaled to sum 1 and entries below the relative threshold are
// floored to the threshold; no second normalization pass runs after
// flooring, so the total may exceed 1 by up to taxa*threshold.
//
// Medium-coupling coefficients of changed taxa and the community-objective
// equality are updated in place, O(exchanges + objective terms); the model
// is never rebuilt. Outside a transaction the change is permanent.
func (c *Community) SetAbundances(values map[string]float64, normalize bool) error {
	if len(values) != len(c.taxa) {
		return fmt.Errorf("%d values for %d taxa: %w", len(values), len(c.taxa), ErrAbundanceMismatch)
	}
	next := make(map[string]float64, len(c.taxa))
	sum := 0.0
	for _, tid := range c.taxa {
		v, ok := values[tid]
		if !ok {
			return fmt.Errorf("missing taxon %q: %w", tid, ErrAbundanceMismatch)
		}
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("taxon %q abundance %v: %w", tid, v, ErrBadTaxonomy)
		}
		next[tid] = v
		sum += v
	}
	if normalize {
		if sum <= 0 {
			return fmt.Errorf("total abundance is zero: %w", ErrBadTaxonomy)
		}
		for tid := range next {
			next[tid] /= sum
			if next[tid] < c.relThreshold {
				next[tid] = c.relThreshold
			}
		}
	}

	for _, tid := range c.taxa {
		tid, a := tid, next[tid]
		if a == c.abundance[tid] {
			continue
		}
		old := c.abundance[tid]
		c.model.OnRollback(func() { c.abundance[tid] = old })
		for _, cp := range c.couplings[tid] {
			sign := 1.0
			if !cp.export {
				sign = -1.0
			}
			stoichiometry := c.net.Reaction(cp.rid).Stoichiometry
			medID, prev := cp.medID, stoichiometry[cp.medID]
			c.model.OnRollback(func() { stoichiometry[medID] = prev })
			stoichiometry[medID] = sign * a
			row := c.model.Constraint(cp.medID)
			if err := row.SetCoef(c.fwd[cp.rid], sign*a); err != nil {
				return err
			}
			if err := row.SetCoef(c.rev[cp.rid], -sign*a); err != nil {
				return err
			}
		}
		c.abundance[tid] = a
	}

	total := solver.NewLin()
	for _, tid := range c.taxa {
		total.AddExpr(c.growthExpr[tid], c.abundance[tid])
	}
	total.Add(c.objVar, -1)
	for _, v := range total.Vars() {
		if err := c.objBalance.SetCoef(v, total[v]); err != nil {
			return err
		}
	}

	return nil
}

// Medium returns the current growth medium: positive import bounds of all
// community exchanges, keyed by exchange reaction ID. Exchanges that allow
// no import are omitted.
func (c *Community) Medium() map[string]float64 {
	out := make(map[string]float64)
	for _, ex := range c.Exchanges() {
		if ex.LowerBound < 0 {
			out[ex.ID] = -ex.LowerBound
		}
	}

	return out
}

// SetMedium applies a growth medium: each listed exchange's import bound is
// set to the given flux, every other community exchange is closed for
// import. IDs not matching any community exchange are reported back and a
// warning is logged; a medium without any carbon source is flagged too.
// Outside a transaction the change is permanent.
func (c *Community) SetMedium(medium map[string]float64) ([]string, error) {
	known := make(map[string]*stoich.Reaction, len(c.exchangeIDs))
	for _, ex := range c.Exchanges() {
		known[ex.ID] = ex
	}
	var unmatched []string
	hasCarbon := false
	for rid, flux := range medium {
		ex, ok := known[rid]
		if !ok {
			unmatched = append(unmatched, rid)
			continue
		}
		if err := c.setReactionBounds(ex, -math.Abs(flux), ex.UpperBound); err != nil {
			return unmatched, err
		}
		for mid := range ex.Stoichiometry {
			if m := c.net.Metabolite(mid); m != nil && m.Formula.Element("C") > 0 {
				hasCarbon = true
			}
		}
	}
	for rid, ex := range known {
		if _, listed := medium[rid]; !listed {
			if err := c.setReactionBounds(ex, math.Min(0, ex.UpperBound), ex.UpperBound); err != nil {
				return unmatched, err
			}
		}
	}
	sort.Strings(unmatched)
	if len(unmatched) > 0 {
		logging.L().Warn().Str("community", c.id).Strs("ids", unmatched).
			Msg("medium entries do not match any community exchange")
	}
	if !hasCarbon {
		logging.L().Warn().Str("community", c.id).
			Msg("medium contains no carbon source")
	}

	return unmatched, nil
}

// KnockoutTaxon zeroes the flux bounds of every reaction owned by the given
// taxon. Run inside Atomic to make the knockout temporary.
func (c *Community) KnockoutTaxon(taxon string) error {
	if _, ok := c.abundance[taxon]; !ok {
		return fmt.Errorf("%q: %w", taxon, ErrTaxonNotFound)
	}
	for _, r := range c.net.Reactions() {
		if r.CommunityID != taxon {
			continue
		}
		if err := c.fwd[r.ID].SetBounds(0, 0); err != nil {
			return err
		}
		if err := c.rev[r.ID].SetBounds(0, 0); err != nil {
			return err
		}
	}

	return nil
}

// ApplyMinGrowth imposes hard per-taxon growth floors by raising the lower
// bound of every growth constraint to (1-rtol)*floor - atol (never below 0).
// Taxa missing from minGrowth keep their current floor. Run inside Atomic.
func (c *Community) ApplyMinGrowth(minGrowth map[string]float64, atol, rtol float64) error {
	for _, tid := range c.taxa {
		mg, ok := minGrowth[tid]
		if !ok || mg <= atol {
			continue
		}
		lb := (1-rtol)*mg - atol
		if lb < 0 {
			lb = 0
		}
		if err := c.growthCons[tid].SetLB(lb); err != nil {
			return err
		}
	}

	return nil
}

// UniformMinGrowth builds a per-taxon floor map with the same value for
// every taxon.
func (c *Community) UniformMinGrowth(v float64) map[string]float64 {
	out := make(map[string]float64, len(c.taxa))
	for _, tid := range c.taxa {
		out[tid] = v
	}

	return out
}

// OptimizeSingle maximizes one taxon's growth inside a scoped transaction
// and returns the achieved rate. The community state is left untouched.
func (c *Community) OptimizeSingle(taxon string, be solver.Backend) (float64, error) {
	expr, ok := c.growthExpr[taxon]
	if !ok {
		return 0, fmt.Errorf("%q: %w", taxon, ErrTaxonNotFound)
	}
	var growth float64
	err := c.Atomic(func() error {
		obj := solver.NewObjective(solver.Maximize)
		obj.Linear = expr.Clone()
		c.model.SetObjective(obj)
		res, err := c.optimizeWithRetry(be)
		if err != nil {
			return err
		}
		if !res.Status().Usable() {
			return fmt.Errorf("taxon %q: status %s: %w", taxon, res.Status(), ErrNotOptimal)
		}
		growth = res.ValueOf(expr)

		return nil
	})

	return growth, err
}

// OptimizeAll maximizes every taxon individually (the all-vs-all pass used
// by the lagrangian and moma strategies) and returns taxon -> maximal
// growth.
func (c *Community) OptimizeAll(be solver.Backend) (map[string]float64, error) {
	out := make(map[string]float64, len(c.taxa))
	for _, tid := range c.taxa {
		g, err := c.OptimizeSingle(tid, be)
		if err != nil {
			return nil, err
		}
		out[tid] = g
	}

	return out, nil
}
