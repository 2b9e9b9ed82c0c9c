package community

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
	"github.com/consortia-dev/consortia/stoich"
)

// MediumCompartment is the compartment name of the shared environment.
const MediumCompartment = "m"

// MediumID is the CommunityID carried by shared (non taxon-owned) entities.
const MediumID = "medium"

var idSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitizeID replaces characters outside [A-Za-z0-9_] with underscores.
func sanitizeID(id string) string {
	return idSanitizer.ReplaceAllString(id, "_")
}

// coupling records one taxon exchange reaction's link into the medium.
type coupling struct {
	rid    string // namespaced taxon exchange reaction
	medID  string // medium metabolite it trades
	export bool   // true when forward flux secretes into the medium
}

// New assembles a community model from a taxonomy.
//
// Steps:
//  1. Validate the taxonomy and sanitize taxon IDs.
//  2. Normalize abundances to sum 1, drop taxa at or below the relative
//     threshold and renormalize the survivors.
//  3. Load (or clone) each taxon's network; any load failure aborts the
//     whole assembly.
//  4. For each taxon in input order: rename entities to "<id>__<taxon>",
//     add them to the combined network and solver model, wire every
//     exchange reaction into the shared medium compartment, and register
//     the taxon growth constraint "objective_<taxon>" (lower bound 0).
//  5. Tie the free "community_objective" variable to the abundance-weighted
//     sum of taxon growth expressions and set it as the maximization target.
//
// Construction is deterministic: the same taxonomy and networks always
// yield the same ids, ordering and bounds.
func New(id string, taxa []Taxon, opts ...Option) (*Community, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	order, abundance, err := normalizeTaxonomy(taxa, cfg.relThreshold)
	if err != nil {
		return nil, err
	}

	nets := make(map[string]*stoich.Network, len(order))
	for _, t := range taxa {
		tid := sanitizeID(t.ID)
		if _, keep := abundance[tid]; !keep {
			continue
		}
		net, err := resolveNetwork(t, cfg.loader)
		if err != nil {
			return nil, err
		}
		nets[tid] = net
	}

	c := &Community{
		id:           id,
		net:          stoich.NewNetwork(id),
		model:        solver.NewModel(id),
		taxa:         order,
		abundance:    abundance,
		relThreshold: cfg.relThreshold,
		mass:         cfg.mass,
		exclude:      append([]string(nil), cfg.exclude...),
		fwd:          make(map[string]*solver.Variable),
		rev:          make(map[string]*solver.Variable),
		growthExpr:   make(map[string]solver.Lin),
		growthCons:   make(map[string]*solver.Constraint),
		couplings:    make(map[string][]coupling),
	}
	c.net.Name = id

	total := solver.NewLin()
	for _, tid := range order {
		expr, err := c.absorbTaxon(tid, nets[tid], cfg)
		if err != nil {
			return nil, err
		}
		total.AddExpr(expr, abundance[tid])
	}

	c.objVar, err = c.model.AddVariable("community_objective", 0, solver.Inf, solver.Continuous)
	if err != nil {
		return nil, err
	}
	total.Add(c.objVar, -1)
	c.objBalance, err = c.model.AddConstraint("community_objective_balance", total, 0, 0)
	if err != nil {
		return nil, err
	}
	obj := solver.NewObjective(solver.Maximize)
	obj.Linear.Add(c.objVar, 1)
	c.model.SetObjective(obj)

	logging.L().Info().
		Str("community", id).
		Int("taxa", len(order)).
		Int("reactions", c.net.NumReactions()).
		Int("metabolites", c.net.NumMetabolites()).
		Msg("community assembled")

	return c, nil
}

// normalizeTaxonomy validates, sanitizes and normalizes the taxonomy,
// returning the retained taxon order and their final abundances.
func normalizeTaxonomy(taxa []Taxon, relThreshold float64) ([]string, map[string]float64, error) {
	if len(taxa) == 0 {
		return nil, nil, ErrEmptyTaxonomy
	}
	seen := make(map[string]struct{}, len(taxa))
	sum := 0.0
	for i := range taxa {
		t := &taxa[i]
		if t.ID == "" {
			return nil, nil, fmt.Errorf("entry %d has no ID: %w", i, ErrBadTaxonomy)
		}
		if math.IsNaN(t.Abundance) || t.Abundance < 0 {
			return nil, nil, fmt.Errorf("taxon %q abundance %v: %w", t.ID, t.Abundance, ErrBadTaxonomy)
		}
		if t.Network == nil && len(t.Refs) == 0 {
			return nil, nil, fmt.Errorf("taxon %q has no network source: %w", t.ID, ErrBadTaxonomy)
		}
		tid := sanitizeID(t.ID)
		if tid != t.ID {
			logging.L().Warn().Str("taxon", t.ID).Str("sanitized", tid).
				Msg("taxon ID contains non-alphanumeric characters")
		}
		if _, dup := seen[tid]; dup {
			return nil, nil, fmt.Errorf("taxon %q: %w", tid, ErrDuplicateTaxon)
		}
		seen[tid] = struct{}{}
		sum += t.Abundance
	}
	if sum <= 0 {
		return nil, nil, fmt.Errorf("total abundance is zero: %w", ErrBadTaxonomy)
	}

	var order []string
	abundance := make(map[string]float64)
	dropped := 0
	kept := 0.0
	for i := range taxa {
		tid := sanitizeID(taxa[i].ID)
		a := taxa[i].Abundance / sum
		if a <= relThreshold {
			dropped++
			continue
		}
		order = append(order, tid)
		abundance[tid] = a
		kept += a
	}
	if dropped > 0 {
		logging.L().Info().Int("dropped", dropped).Float64("threshold", relThreshold).
			Msg("taxa below abundance threshold removed")
	}
	if len(order) == 0 {
		return nil, nil, ErrAllTaxaDropped
	}
	for tid := range abundance {
		abundance[tid] /= kept
	}

	return order, abundance, nil
}

// resolveNetwork clones a directly supplied network or loads (and joins)
// the referenced sources.
func resolveNetwork(t Taxon, loader stoich.Loader) (*stoich.Network, error) {
	if t.Network != nil {
		return t.Network.Clone(), nil
	}
	if loader == nil {
		return nil, fmt.Errorf("taxon %q: %w", t.ID, ErrNoLoader)
	}
	nets := make([]*stoich.Network, 0, len(t.Refs))
	for _, ref := range t.Refs {
		n, err := loader.Load(ref)
		if err != nil {
			return nil, fmt.Errorf("taxon %q ref %q: %w: %v", t.ID, ref, ErrLoad, err)
		}
		nets = append(nets, n)
	}
	if len(nets) == 1 {
		return nets[0], nil
	}
	joined, err := stoich.Join(sanitizeID(t.ID), nets...)
	if err != nil {
		return nil, fmt.Errorf("taxon %q: %w: %v", t.ID, ErrLoad, err)
	}

	return joined, nil
}

// absorbTaxon renames one taxon's network into the community namespace,
// wires its exchanges into the medium and registers its growth constraint.
// Returns the taxon's growth expression.
func (c *Community) absorbTaxon(tid string, src *stoich.Network, cfg config) (solver.Lin, error) {
	external, err := FindExternalCompartment(src)
	if err != nil {
		return nil, err
	}
	exchangeIDs := make(map[string]bool)
	for _, r := range src.Reactions() {
		if IsExchange(src, r, external, cfg.exclude) {
			exchangeIDs[r.ID] = true
		}
	}

	suffix := func(id string) string { return sanitizeID(id) + "__" + tid }

	sanitized := 0
	for _, m := range src.Metabolites() {
		if sanitizeID(m.ID) != m.ID {
			sanitized++
		}
		nm := &stoich.Metabolite{
			ID:          suffix(m.ID),
			Name:        m.Name,
			Compartment: m.Compartment + "__" + tid,
			Formula:     m.Formula,
			GlobalID:    m.ID,
			CommunityID: tid,
		}
		if err := c.net.AddMetabolite(nm); err != nil {
			return nil, err
		}
		if err := c.addBalance(nm.ID); err != nil {
			return nil, err
		}
	}

	var added []*stoich.Reaction
	for _, r := range src.Reactions() {
		if sanitizeID(r.ID) != r.ID {
			sanitized++
		}
		nr := &stoich.Reaction{
			ID:            suffix(r.ID),
			Name:          r.Name,
			Stoichiometry: make(map[string]float64, len(r.Stoichiometry)),
			LowerBound:    r.LowerBound,
			UpperBound:    r.UpperBound,
			GlobalID:      r.ID,
			CommunityID:   tid,
		}
		for mid, coef := range r.Stoichiometry {
			nr.Stoichiometry[suffix(mid)] = coef
		}
		if err := c.net.AddReaction(nr); err != nil {
			return nil, err
		}
		added = append(added, nr)
		if exchangeIDs[r.ID] {
			if err := c.wireExchange(tid, nr, external, cfg); err != nil {
				return nil, err
			}
		}
	}
	if sanitized > 0 {
		logging.L().Warn().Str("taxon", tid).Int("ids", sanitized).
			Msg("non-alphanumeric characters in IDs were sanitized")
	}

	for _, nr := range added {
		if err := c.addReactionVars(nr); err != nil {
			return nil, err
		}
	}

	// Rewrite the source objective against the community variable space
	// through the renamed-ID lookup; variables are never shared across
	// networks.
	expr := solver.NewLin()
	for rid, coef := range src.Objective() {
		nid := suffix(rid)
		fv, rv := c.fwd[nid], c.rev[nid]
		if fv == nil {
			return nil, fmt.Errorf("taxon %q objective references %q: %w", tid, rid, stoich.ErrReactionNotFound)
		}
		expr.Add(fv, coef).Add(rv, -coef)
	}
	c.growthExpr[tid] = expr
	c.growthCons[tid], err = c.model.AddConstraint("objective_"+tid, expr, 0, solver.Inf)
	if err != nil {
		return nil, err
	}

	return expr, nil
}

// wireExchange links one taxon exchange reaction into the medium: it
// creates or widens the shared metabolite/exchange pair, adds the medium
// term with coefficient ±abundance, and relaxes the taxon-side bounds to
// the internal exchange cap so that the medium-facing bound governs
// availability.
func (c *Community) wireExchange(tid string, r *stoich.Reaction, external string, cfg config) error {
	var metID string
	for mid := range r.Stoichiometry {
		metID = mid
	}
	met := c.net.Metabolite(metID)
	export := r.Stoichiometry[metID] < 0

	// Orient the bounds toward the medium; only the import-direction bound
	// is normalized by community mass. Bounds closer to zero than the
	// solver feasibility tolerance are widened away from it.
	lb, ub := r.LowerBound, r.UpperBound
	if !export {
		lb, ub = -r.UpperBound, -r.LowerBound
	}
	lb /= c.mass
	if lb < 0 && lb > -boundStabilizationTol {
		logging.L().Debug().Str("reaction", r.ID).Msg("tiny import bound widened to stabilize")
		lb = -boundStabilizationTol
	}
	if ub > 0 && ub < boundStabilizationTol {
		logging.L().Debug().Str("reaction", r.ID).Msg("tiny export bound widened to stabilize")
		ub = boundStabilizationTol
	}

	medID := sanitizeID(stripCompartment(met.GlobalID, external)) + "_" + MediumCompartment
	exID := "EX_" + medID
	if c.net.Metabolite(medID) == nil {
		mm := &stoich.Metabolite{
			ID:          medID,
			Name:        strings.TrimSpace(met.Name),
			Compartment: MediumCompartment,
			Formula:     met.Formula,
			GlobalID:    medID,
			CommunityID: MediumID,
		}
		if err := c.net.AddMetabolite(mm); err != nil {
			return err
		}
		if err := c.addBalance(medID); err != nil {
			return err
		}
		ex := &stoich.Reaction{
			ID:            exID,
			Name:          mm.Name + " medium exchange",
			Stoichiometry: map[string]float64{medID: -1},
			LowerBound:    lb,
			UpperBound:    ub,
			GlobalID:      exID,
			CommunityID:   MediumID,
		}
		if err := c.net.AddReaction(ex); err != nil {
			return err
		}
		if err := c.addReactionVars(ex); err != nil {
			return err
		}
		c.exchangeIDs = append(c.exchangeIDs, exID)
	} else {
		ex := c.net.Reaction(exID)
		if err := c.setReactionBounds(ex, math.Min(ex.LowerBound, lb), math.Max(ex.UpperBound, ub)); err != nil {
			return err
		}
	}

	sign := 1.0
	if !export {
		sign = -1.0
	}
	r.Stoichiometry[medID] = sign * c.abundance[tid]
	r.LowerBound = -cfg.maxExchange
	r.UpperBound = cfg.maxExchange
	c.couplings[tid] = append(c.couplings[tid], coupling{rid: r.ID, medID: medID, export: export})

	return nil
}

// addBalance creates the empty steady-state row for one metabolite.
func (c *Community) addBalance(metID string) error {
	_, err := c.model.AddConstraint(metID, solver.NewLin(), 0, 0)

	return err
}

// addReactionVars creates the forward/reverse flux variables of r and adds
// their terms to every touched metabolite balance row. Flux = fwd - rev,
// both variables non-negative, which keeps the model in standard form for
// dualization and gives pFBA its absolute-flux terms.
func (c *Community) addReactionVars(r *stoich.Reaction) error {
	fv, err := c.model.AddVariable(r.ID, math.Max(0, r.LowerBound), math.Max(0, r.UpperBound), solver.Continuous)
	if err != nil {
		return err
	}
	rv, err := c.model.AddVariable(r.ID+"__rev", math.Max(0, -r.UpperBound), math.Max(0, -r.LowerBound), solver.Continuous)
	if err != nil {
		return err
	}
	c.fwd[r.ID] = fv
	c.rev[r.ID] = rv
	for mid, coef := range r.Stoichiometry {
		row := c.model.Constraint(mid)
		if row == nil {
			return fmt.Errorf("reaction %q references %q: %w", r.ID, mid, stoich.ErrMetaboliteNotFound)
		}
		if err := row.AddCoef(fv, coef); err != nil {
			return err
		}
		if err := row.AddCoef(rv, -coef); err != nil {
			return err
		}
	}

	return nil
}

// setReactionBounds updates a reaction's bounds in both the network and the
// solver variables (journaled when a transaction is open).
func (c *Community) setReactionBounds(r *stoich.Reaction, lb, ub float64) error {
	if lb > ub {
		return fmt.Errorf("reaction %q [%g, %g]: %w", r.ID, lb, ub, stoich.ErrBadBounds)
	}
	oldLB, oldUB := r.LowerBound, r.UpperBound
	c.model.OnRollback(func() { r.LowerBound, r.UpperBound = oldLB, oldUB })
	r.LowerBound, r.UpperBound = lb, ub
	if fv := c.fwd[r.ID]; fv != nil {
		if err := fv.SetBounds(math.Max(0, lb), math.Max(0, ub)); err != nil {
			return err
		}
	}
	if rv := c.rev[r.ID]; rv != nil {
		if err := rv.SetBounds(math.Max(0, -ub), math.Max(0, -lb)); err != nil {
			return err
		}
	}

	return nil
}

// stripCompartment removes a trailing compartment tag from a metabolite id:
// either "_<comp>" or "<sep><comp><sep>" with bracket-like separators, as in
// "glc__D_e" or "glc__D[e]".
func stripCompartment(id, comp string) string {
	plain := regexp.MustCompile("_" + regexp.QuoteMeta(comp) + "$")
	wrapped := regexp.MustCompile(`[^a-zA-Z0-9 :]` + regexp.QuoteMeta(comp) + `[^a-zA-Z0-9 :]$`)
	if plain.MatchString(id) {
		return plain.ReplaceAllString(id, "")
	}
	if wrapped.MatchString(id) {
		return wrapped.ReplaceAllString(id, "")
	}

	return id
}
