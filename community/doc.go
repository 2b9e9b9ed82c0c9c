// Package community assembles independent stoichiometric networks into one
// shared-environment model and exposes the optimization surface every
// analysis strategy builds on.
//
// Assembly renames every taxon-owned reaction and metabolite to
// "<id>__<taxon>" (the original id survives as GlobalID, the owner as
// CommunityID), joins all taxa through a shared medium compartment "m" with
// one community-level exchange per exchanged species, and ties a free
// community-objective variable to the abundance-weighted sum of the member
// growth objectives.
//
// A Community owns both views of the assembled system: the stoichiometric
// network (structure, formulas, ids) and the solver model (variables,
// constraints, objective). All strategy packages mutate the solver model only
// inside Atomic transactions, so a Community survives arbitrarily many solves
// unchanged.
//
// A Community is not safe for concurrent use; parallel analyses build one
// Community per worker (see package workflow).
package community
