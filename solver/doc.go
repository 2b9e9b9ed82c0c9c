// Package solver provides the linear/quadratic-programming abstraction used
// by consortia: variables, linear constraints, a linear-plus-quadratic
// objective, journaled transactions, and a small Backend interface behind
// which interchangeable solvers live (HiGHS, a pure-Go simplex, or any
// external LP/QP engine).
//
// The package never solves anything itself. A Model is compiled into a
// column/row Problem and handed to a Backend; the Outcome is wrapped into a
// Result that exposes primal values, constraint activities and — when the
// backend supports them — dual values and reduced costs.
//
// # Transactions
//
// Optimization procedures routinely add and remove dozens of constraints and
// variables per solve. Begin marks a restore point; Rollback reverts every
// edit made since, in reverse order, including added variables/constraints,
// bound changes, coefficient changes and objective replacement. Transactions
// nest: each Begin must be matched by exactly one Rollback. Edits made
// outside any transaction are permanent.
//
// # Determinism
//
// Variables and constraints keep insertion order; compiling the same model
// twice yields identical Problems. All expression iteration is ordered by
// variable index.
package solver
