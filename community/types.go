package community

import (
	"errors"

	"github.com/consortia-dev/consortia/stoich"
)

// Sentinel errors for community construction and state management.
var (
	// ErrEmptyTaxonomy indicates construction from zero taxa.
	ErrEmptyTaxonomy = errors.New("community: taxonomy is empty")

	// ErrBadTaxonomy indicates a taxon with missing or invalid fields.
	ErrBadTaxonomy = errors.New("community: malformed taxonomy entry")

	// ErrDuplicateTaxon indicates two taxonomy entries with the same ID.
	ErrDuplicateTaxon = errors.New("community: duplicate taxon ID")

	// ErrAllTaxaDropped indicates every taxon fell at or below the relative
	// abundance threshold.
	ErrAllTaxaDropped = errors.New("community: all taxa below abundance threshold")

	// ErrLoad indicates a taxon's source network could not be loaded.
	ErrLoad = errors.New("community: network load failed")

	// ErrNoLoader indicates a taxonomy references networks by name but no
	// loader was configured.
	ErrNoLoader = errors.New("community: no network loader configured")

	// ErrNoExternalCompartment indicates the external compartment of a
	// network could not be detected.
	ErrNoExternalCompartment = errors.New("community: cannot identify external compartment")

	// ErrTaxonNotFound indicates a lookup for an unknown taxon.
	ErrTaxonNotFound = errors.New("community: taxon not found")

	// ErrAbundanceMismatch indicates SetAbundances got the wrong taxon set.
	ErrAbundanceMismatch = errors.New("community: abundance vector does not match taxa")

	// ErrModificationActive indicates a second objective-rewriting procedure
	// was applied while another one is active.
	ErrModificationActive = errors.New("community: another modification is active")

	// ErrNotOptimal indicates a solve requested with RaiseOnNonOptimal ended
	// in a non-usable status.
	ErrNotOptimal = errors.New("community: solve did not reach a usable optimum")

	// ErrNoFluxes indicates an analysis needing a Solution with a flux table
	// got one without.
	ErrNoFluxes = errors.New("community: solution carries no fluxes")
)

// Defaults for community construction, chosen to match common genome-scale
// model conventions.
const (
	// DefaultRelThreshold is the relative abundance at or below which a
	// taxon is dropped during assembly.
	DefaultRelThreshold = 1e-6

	// DefaultMaxExchange caps the absolute flux of taxon-side exchange
	// reactions once the medium-facing exchange carries the real bound.
	DefaultMaxExchange = 100.0

	// DefaultMass is the community biomass (gDW) used to normalize
	// medium-facing exchange bounds.
	DefaultMass = 1.0

	// boundStabilizationTol widens exchange bounds smaller in magnitude
	// than typical solver feasibility tolerances away from zero.
	boundStabilizationTol = 1e-6
)

// Taxon is one taxonomy entry: a member organism, its source network and its
// relative abundance. Either Network is set directly or Refs names one or
// more sources resolved through the configured stoich.Loader (multiple refs
// are joined into one network with an averaged objective).
type Taxon struct {
	ID        string
	Abundance float64
	Network   *stoich.Network
	Refs      []string
}

// Option configures community assembly.
type Option func(*config)

type config struct {
	relThreshold float64
	maxExchange  float64
	mass         float64
	exclude      []string
	loader       stoich.Loader
}

func defaultConfig() config {
	return config{
		relThreshold: DefaultRelThreshold,
		maxExchange:  DefaultMaxExchange,
		mass:         DefaultMass,
		exclude:      DefaultExclusionPatterns,
	}
}

// WithRelThreshold sets the abundance threshold below which taxa are dropped.
func WithRelThreshold(t float64) Option {
	return func(c *config) { c.relThreshold = t }
}

// WithMaxExchange sets the taxon-side exchange flux cap.
func WithMaxExchange(b float64) Option {
	return func(c *config) { c.maxExchange = b }
}

// WithMass sets the community biomass used to normalize medium exchange
// bounds.
func WithMass(m float64) Option {
	return func(c *config) { c.mass = m }
}

// WithExclusionPatterns replaces the exchange-classifier exclusion list.
func WithExclusionPatterns(patterns []string) Option {
	return func(c *config) { c.exclude = patterns }
}

// WithLoader sets the loader resolving Taxon.Refs into networks.
func WithLoader(l stoich.Loader) Option {
	return func(c *config) { c.loader = l }
}
