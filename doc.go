// Package consortia predicts growth of microbial (or tissue) communities by
// joining per-organism flux-balance models into one shared-environment model
// and solving a family of constrained optimization problems over it.
//
// 🚀 What is consortia?
//
//	A library for community-scale constraint-based metabolic modeling:
//		• Community assembly: merge N stoichiometric networks into one
//		  linear system with a shared "medium" compartment and an
//		  abundance-weighted community objective
//		• Cooperative tradeoff: L2-regularized balance between collective
//		  and individual (egoistic) growth
//		• OptCom strategies: linear, lagrangian, original (dualized),
//		  MOMA and linear MOMA bilevel formulations
//		• LP duality: fast dual construction used to encode bilevel
//		  optimality as linear constraints
//		• Growth media: minimal and completed growth media via LP/MILP
//		• Interactions: cross-feeding classification, metabolic distances
//		  and parameter elasticities between community members
//
// ✨ Why choose consortia?
//
//   - Solver-agnostic – pluggable LP/QP backends (HiGHS, pure-Go simplex)
//     behind one small interface
//   - Transactional – every optimization runs inside a scoped transaction,
//     so the base community survives arbitrarily many solves unchanged
//   - Deterministic – identical inputs build isomorphic models, always
//
// Everything is organized in focused subpackages:
//
//	stoich/      — metabolites, reactions, networks, formulas, Loader
//	solver/      — LP/QP model primitives, transactions, Backend interface
//	community/   — assembly, live community state, solutions, stabilization
//	dual/        — dual formulation builder
//	tradeoff/    — cooperative tradeoff and taxon knockouts
//	optcom/      — the OptCom strategy family
//	media/       — minimal and completed growth media
//	interaction/ — cross-feeding analysis, metabolic distances, elasticities
//	workflow/    — parallel growth analysis over many samples
//	modeldb/     — SQLite-backed model manifest registry
//	data/        — programmatic fixture networks and taxonomies
//
// Quick start: build a Community from a taxonomy and a network Loader, then
// run tradeoff.CooperativeTradeoff or optcom.Solve on it. See the package
// examples for full walkthroughs.
//
//	go get github.com/consortia-dev/consortia
package consortia
