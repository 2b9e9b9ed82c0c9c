package stoich

import (
	"errors"
	"sort"
)

// Sentinel errors for network construction and lookup.
var (
	// ErrEmptyID indicates an entity with an empty ID was added.
	ErrEmptyID = errors.New("stoich: entity ID is empty")

	// ErrDuplicateID indicates an entity with an already-used ID was added.
	ErrDuplicateID = errors.New("stoich: duplicate entity ID")

	// ErrMetaboliteNotFound indicates a reaction references an unknown metabolite.
	ErrMetaboliteNotFound = errors.New("stoich: metabolite not found")

	// ErrReactionNotFound indicates a lookup for a non-existent reaction.
	ErrReactionNotFound = errors.New("stoich: reaction not found")

	// ErrBadBounds indicates a reaction with lower bound above upper bound.
	ErrBadBounds = errors.New("stoich: lower bound exceeds upper bound")

	// ErrBadFormula indicates a chemical formula that could not be parsed.
	ErrBadFormula = errors.New("stoich: malformed chemical formula")
)

// Metabolite is one chemical species in one compartment.
type Metabolite struct {
	// ID uniquely identifies the metabolite within its network.
	ID string

	// Name is an optional human-readable label.
	Name string

	// Compartment names the cellular compartment ("c", "e", "m", ...).
	Compartment string

	// Formula is the elemental formula, e.g. "C6H12O6". May be empty.
	Formula Formula

	// GlobalID is the pre-suffix ID once absorbed into a community.
	// Empty for plain single-organism networks.
	GlobalID string

	// CommunityID is the owning taxon inside a community, or "medium".
	// Empty for plain single-organism networks.
	CommunityID string
}

// Reaction is one biochemical conversion with flux bounds. Stoichiometry
// maps metabolite IDs to coefficients: negative for substrates (reactants),
// positive for products.
type Reaction struct {
	// ID uniquely identifies the reaction within its network.
	ID string

	// Name is an optional human-readable label.
	Name string

	// Stoichiometry maps metabolite ID to its coefficient in this reaction.
	Stoichiometry map[string]float64

	// LowerBound and UpperBound limit the flux through this reaction.
	// Use math.Inf for unbounded directions.
	LowerBound float64
	UpperBound float64

	// GlobalID and CommunityID mirror the Metabolite fields.
	GlobalID    string
	CommunityID string
}

// Reactants returns the IDs of metabolites consumed by the reaction
// (coefficient < 0) in sorted order.
func (r *Reaction) Reactants() []string {
	return r.side(func(c float64) bool { return c < 0 })
}

// Products returns the IDs of metabolites produced by the reaction
// (coefficient > 0) in sorted order.
func (r *Reaction) Products() []string {
	return r.side(func(c float64) bool { return c > 0 })
}

// Boundary reports whether the reaction is a boundary reaction, i.e. it
// touches exactly one metabolite and therefore crosses the system boundary.
func (r *Reaction) Boundary() bool {
	return len(r.Stoichiometry) == 1
}

// side collects metabolite IDs whose coefficient satisfies keep, sorted for
// deterministic iteration.
func (r *Reaction) side(keep func(float64) bool) []string {
	ids := make([]string, 0, len(r.Stoichiometry))
	for mid, coef := range r.Stoichiometry {
		if keep(coef) {
			ids = append(ids, mid)
		}
	}
	sort.Strings(ids)

	return ids
}

// Clone returns a deep copy of the reaction.
func (r *Reaction) Clone() *Reaction {
	cp := *r
	cp.Stoichiometry = make(map[string]float64, len(r.Stoichiometry))
	for mid, coef := range r.Stoichiometry {
		cp.Stoichiometry[mid] = coef
	}
	return &cp
}

// Loader resolves a network reference (a file path, database key, URL, ...)
// into an in-memory network. Implementations live outside this module;
// package data ships a programmatic one for tests and examples.
type Loader interface {
	Load(ref string) (*Network, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(ref string) (*Network, error)

// Load implements Loader.
func (f LoaderFunc) Load(ref string) (*Network, error) { return f(ref) }
