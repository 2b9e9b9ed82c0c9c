package stoich

import (
	"fmt"
	"sort"
)

// Network is one stoichiometric model: metabolites, reactions and a linear
// growth objective over reaction fluxes. Insertion order is preserved so
// that identical construction sequences yield identical iteration order.
type Network struct {
	// ID identifies the network (usually the organism or taxon name).
	ID string

	// Name is an optional human-readable label.
	Name string

	mets    []*Metabolite
	metIdx  map[string]*Metabolite
	rxns    []*Reaction
	rxnIdx  map[string]*Reaction
	objCoef map[string]float64 // reaction ID -> objective coefficient
}

// NewNetwork creates an empty network with the given ID.
func NewNetwork(id string) *Network {
	return &Network{
		ID:      id,
		metIdx:  make(map[string]*Metabolite),
		rxnIdx:  make(map[string]*Reaction),
		objCoef: make(map[string]float64),
	}
}

// AddMetabolite inserts m into the network.
func (n *Network) AddMetabolite(m *Metabolite) error {
	if m.ID == "" {
		return ErrEmptyID
	}
	if _, ok := n.metIdx[m.ID]; ok {
		return fmt.Errorf("metabolite %q: %w", m.ID, ErrDuplicateID)
	}
	n.mets = append(n.mets, m)
	n.metIdx[m.ID] = m

	return nil
}

// AddReaction inserts r into the network. All metabolites referenced by the
// reaction stoichiometry must already exist.
func (n *Network) AddReaction(r *Reaction) error {
	if r.ID == "" {
		return ErrEmptyID
	}
	if _, ok := n.rxnIdx[r.ID]; ok {
		return fmt.Errorf("reaction %q: %w", r.ID, ErrDuplicateID)
	}
	if r.LowerBound > r.UpperBound {
		return fmt.Errorf("reaction %q: %w", r.ID, ErrBadBounds)
	}
	for mid := range r.Stoichiometry {
		if _, ok := n.metIdx[mid]; !ok {
			return fmt.Errorf("reaction %q references %q: %w", r.ID, mid, ErrMetaboliteNotFound)
		}
	}
	n.rxns = append(n.rxns, r)
	n.rxnIdx[r.ID] = r

	return nil
}

// Metabolite returns the metabolite with the given ID, or nil.
func (n *Network) Metabolite(id string) *Metabolite { return n.metIdx[id] }

// Reaction returns the reaction with the given ID, or nil.
func (n *Network) Reaction(id string) *Reaction { return n.rxnIdx[id] }

// Metabolites returns all metabolites in insertion order. The returned slice
// must not be modified.
func (n *Network) Metabolites() []*Metabolite { return n.mets }

// Reactions returns all reactions in insertion order. The returned slice
// must not be modified.
func (n *Network) Reactions() []*Reaction { return n.rxns }

// NumMetabolites returns the number of metabolites.
func (n *Network) NumMetabolites() int { return len(n.mets) }

// NumReactions returns the number of reactions.
func (n *Network) NumReactions() int { return len(n.rxns) }

// SetObjective replaces the linear growth objective. The map assigns an
// objective coefficient to each contributing reaction ID; reactions must
// exist in the network.
func (n *Network) SetObjective(coefs map[string]float64) error {
	for rid := range coefs {
		if _, ok := n.rxnIdx[rid]; !ok {
			return fmt.Errorf("objective references %q: %w", rid, ErrReactionNotFound)
		}
	}
	n.objCoef = make(map[string]float64, len(coefs))
	for rid, c := range coefs {
		n.objCoef[rid] = c
	}

	return nil
}

// Objective returns a copy of the objective coefficients by reaction ID.
func (n *Network) Objective() map[string]float64 {
	out := make(map[string]float64, len(n.objCoef))
	for rid, c := range n.objCoef {
		out[rid] = c
	}

	return out
}

// ObjectiveReactions returns the IDs of reactions with a non-zero objective
// coefficient, sorted.
func (n *Network) ObjectiveReactions() []string {
	ids := make([]string, 0, len(n.objCoef))
	for rid, c := range n.objCoef {
		if c != 0 {
			ids = append(ids, rid)
		}
	}
	sort.Strings(ids)

	return ids
}

// Compartments returns the set of compartment names present, sorted.
func (n *Network) Compartments() []string {
	seen := make(map[string]struct{})
	for _, m := range n.mets {
		seen[m.Compartment] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)

	return out
}

// Clone returns a deep copy of the network. Community assembly clones every
// source network before rewriting IDs so that callers keep their originals.
func (n *Network) Clone() *Network {
	cp := NewNetwork(n.ID)
	cp.Name = n.Name
	for _, m := range n.mets {
		mc := *m
		// errors impossible: IDs were unique in the source
		_ = cp.AddMetabolite(&mc)
	}
	for _, r := range n.rxns {
		_ = cp.AddReaction(r.Clone())
	}
	for rid, c := range n.objCoef {
		cp.objCoef[rid] = c
	}

	return cp
}

// Join merges several networks that share one ID namespace into a single
// network carrying a combined growth objective: the union of all reactions
// (first occurrence wins) plus each source objective weighted by 1/len(nets).
func Join(id string, nets ...*Network) (*Network, error) {
	if len(nets) == 0 {
		return nil, fmt.Errorf("stoich: join of zero networks: %w", ErrReactionNotFound)
	}
	out := NewNetwork(id)
	obj := make(map[string]float64)
	w := 1.0 / float64(len(nets))
	for _, src := range nets {
		for _, m := range src.mets {
			if out.Metabolite(m.ID) == nil {
				mc := *m
				_ = out.AddMetabolite(&mc)
			}
		}
		for _, r := range src.rxns {
			if out.Reaction(r.ID) == nil {
				_ = out.AddReaction(r.Clone())
			}
		}
		for rid, c := range src.objCoef {
			obj[rid] += c * w
		}
	}
	if err := out.SetObjective(obj); err != nil {
		return nil, err
	}

	return out, nil
}
