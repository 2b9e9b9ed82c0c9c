// Package stoich defines the in-memory representation of stoichiometric
// metabolic networks consumed by the rest of consortia: metabolites,
// reactions with flux bounds, networks with a linear growth objective, and
// chemical formulas with element counts and molecular weights.
//
// The package deliberately contains no file-format parsing. Networks enter
// the library through the Loader interface, implemented by external format
// adapters (SBML, JSON, ...) or programmatic builders such as package data.
//
// Identity model for community use:
//
//   - ID is unique within one network. When a network is absorbed into a
//     community, every ID is rewritten to "<original>__<taxon>".
//   - GlobalID retains the original (pre-suffix) ID.
//   - CommunityID records the owning taxon, or "medium" for shared entities.
//
// (GlobalID, CommunityID) therefore re-identifies the source entity inside
// any combined network.
package stoich
