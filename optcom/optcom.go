// Package optcom implements the OptCom family of multi-level community
// optimization strategies: plain growth maximization under member floors,
// lagrangian individual-vs-collective compromises, the dualized bilevel
// ("original") formulation and MOMA-style distance minimization.
package optcom

import (
	"errors"
	"fmt"
	"strings"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/dual"
	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
)

// Strategy selects the OptCom formulation.
type Strategy string

// The supported strategies.
const (
	// Linear maximizes community growth under per-taxon floors.
	Linear Strategy = "linear"
	// Lagrangian maximizes (1-t)*community - t*sum((max_i - growth_i)^2).
	Lagrangian Strategy = "lagrangian"
	// LinearLagrangian uses the linear cost sum(max_i - growth_i) instead.
	LinearLagrangian Strategy = "linear lagrangian"
	// Original encodes bilevel optimality through LP duality and returns
	// one point on the Pareto front.
	Original Strategy = "original"
	// MOMA minimizes the squared distance to individually maximal growth
	// rates under dualized optimality constraints.
	MOMA Strategy = "moma"
	// LMOMA is MOMA with a linear distance.
	LMOMA Strategy = "lmoma"
)

// ErrUnknownStrategy indicates an unrecognized strategy name. Raised before
// any solver call.
var ErrUnknownStrategy = errors.New("optcom: unknown strategy")

// DefaultTradeoff weights the lagrangian compromise between community and
// individual growth.
const DefaultTradeoff = 0.5

// Options tunes an OptCom solve.
type Options struct {
	// MinGrowth gives per-taxon growth floors; nil means no floors.
	MinGrowth map[string]float64

	// Tradeoff is the lagrangian weight t in [0, 1]; 0 selects
	// DefaultTradeoff. Ignored by the other strategies.
	Tradeoff float64

	// Fluxes, PFBA and Duals select the Solution contents.
	Fluxes bool
	PFBA   bool
	Duals  bool

	// AbsTol and RelTol relax the growth floors; zero selects 1e-6.
	AbsTol float64
	RelTol float64
}

func (o *Options) fill() {
	if o.Tradeoff == 0 {
		o.Tradeoff = DefaultTradeoff
	}
	if o.AbsTol == 0 {
		o.AbsTol = 1e-6
	}
	if o.RelTol == 0 {
		o.RelTol = 1e-6
	}
}

func (o Options) solveOptions() community.SolveOptions {
	return community.SolveOptions{Fluxes: o.Fluxes, PFBA: o.PFBA, Duals: o.Duals}
}

// Solve runs one OptCom strategy on the community inside a scoped
// transaction. An infeasible or unbounded problem yields a nil Solution
// with the status logged, never an error.
func Solve(c *community.Community, be solver.Backend, strategy Strategy, opts Options) (*community.Solution, error) {
	opts.fill()
	switch strategy {
	case Linear, Lagrangian, LinearLagrangian, Original, MOMA, LMOMA:
	default:
		return nil, fmt.Errorf("%q: %w", strategy, ErrUnknownStrategy)
	}

	var sol *community.Solution
	err := c.Atomic(func() error {
		if err := c.SetModification(string(strategy) + " optcom"); err != nil {
			return err
		}
		if opts.MinGrowth != nil {
			if err := c.ApplyMinGrowth(opts.MinGrowth, opts.AbsTol, opts.RelTol); err != nil {
				return err
			}
		}

		var err error
		switch strategy {
		case Linear:
			sol, err = solveLinear(c, be, opts)
		case Lagrangian, LinearLagrangian:
			sol, err = solveLagrangian(c, be, strategy == Lagrangian, opts)
		case Original:
			sol, err = solveOriginal(c, be, opts)
		case MOMA, LMOMA:
			sol, err = solveMOMA(c, be, strategy == MOMA, opts)
		}

		return err
	})

	return sol, err
}

func solveLinear(c *community.Community, be solver.Backend, opts Options) (*community.Solution, error) {
	return finish(c, be, opts, false)
}

// solveLagrangian maximizes (1-t)*community - t*cost where cost penalizes
// each taxon's distance to its individual maximum (squared or linear).
func solveLagrangian(c *community.Community, be solver.Backend, quadratic bool, opts Options) (*community.Solution, error) {
	maxg, err := c.OptimizeAll(be)
	if err != nil {
		return nil, err
	}

	t := opts.Tradeoff
	obj := solver.NewObjective(solver.Maximize)
	obj.Linear.Add(c.ObjectiveVar(), 1-t)
	for _, tid := range c.Taxa() {
		expr := c.GrowthExpression(tid)
		m := maxg[tid]
		if quadratic {
			// -t*(g - m)^2 = -t*g^2 + 2*t*m*g - t*m^2
			obj.Quad = append(obj.Quad, scaleQuad(solver.Square(expr), -t)...)
			obj.Linear.AddExpr(expr, 2*t*m)
			obj.Offset -= t * m * m
		} else {
			// growth never exceeds the individual maximum, so
			// |m - g| = m - g.
			obj.Linear.AddExpr(expr, t)
			obj.Offset -= t * m
		}
	}
	c.Model().SetObjective(obj)

	return finish(c, be, opts, quadratic)
}

// solveOriginal encodes bilevel (Stackelberg) optimality: under the
// temporary objective "sum of member growths" the LP is dualized, then each
// taxon's growth expression is pinned to the dual value attributable to that
// taxon's rows and bounds. The community objective is restored before the
// final solve.
func solveOriginal(c *community.Community, be solver.Backend, opts Options) (*community.Solution, error) {
	if err := addDualityConstraints(c); err != nil {
		return nil, err
	}
	obj := solver.NewObjective(solver.Maximize)
	obj.Linear.Add(c.ObjectiveVar(), 1)
	c.Model().SetObjective(obj)

	return finish(c, be, opts, false)
}

// solveMOMA adds the dualized optimality constraints and then minimizes the
// (squared or linear) distance to each taxon's individual maximum.
func solveMOMA(c *community.Community, be solver.Backend, quadratic bool, opts Options) (*community.Solution, error) {
	maxg, err := c.OptimizeAll(be)
	if err != nil {
		return nil, err
	}
	if err := addDualityConstraints(c); err != nil {
		return nil, err
	}

	obj := solver.NewObjective(solver.Minimize)
	for _, tid := range c.Taxa() {
		expr := c.GrowthExpression(tid)
		m := maxg[tid]
		if quadratic {
			// (g - m)^2 = g^2 - 2*m*g + m^2
			obj.Quad = append(obj.Quad, solver.Square(expr)...)
			obj.Linear.AddExpr(expr, -2*m)
			obj.Offset += m * m
		} else {
			obj.Linear.AddExpr(expr, -1)
			obj.Offset += m
		}
	}
	c.Model().SetObjective(obj)

	return finish(c, be, opts, quadratic)
}

// addDualityConstraints temporarily swaps the objective for the sum of all
// member growth expressions, dualizes the LP and adds one suboptimality
// constraint per taxon equating its primal growth with its share of the
// dual objective.
func addDualityConstraints(c *community.Community) error {
	sum := solver.NewLin()
	for _, tid := range c.Taxa() {
		sum.AddExpr(c.GrowthExpression(tid), 1)
	}
	obj := solver.NewObjective(solver.Maximize)
	obj.Linear = sum
	c.Model().SetObjective(obj)

	coefs, err := dual.Dualize(c.Model(), dual.DefaultPrefix)
	if err != nil {
		return err
	}
	for _, tid := range c.Taxa() {
		lin := c.GrowthExpression(tid)
		for _, co := range coefs {
			if belongsTo(co.Source, tid) {
				lin.Add(co.Var, -co.Coef)
			}
		}
		if _, err := c.Model().AddConstraint("optcom_suboptimality_"+tid, lin, 0, 0); err != nil {
			return err
		}
	}

	return nil
}

// belongsTo reports whether a primal entity name is owned by the taxon:
// its namespaced suffix "__<taxon>" (possibly followed by the reverse-flux
// tag) or its growth constraint.
func belongsTo(source, taxon string) bool {
	return strings.HasSuffix(source, "__"+taxon) ||
		strings.Contains(source, "__"+taxon+"__") ||
		source == "objective_"+taxon
}

// finish solves the prepared model, applying crossover to fuzzy quadratic
// answers on backends without native QP support.
func finish(c *community.Community, be solver.Backend, opts Options, quadratic bool) (*community.Solution, error) {
	res, err := c.OptimizeCurrent(be)
	if err != nil {
		return nil, err
	}
	st := res.Status()
	if !st.Usable() {
		logging.L().Warn().Str("community", c.ID()).Str("status", string(st)).
			Msg("optcom solve did not reach a usable point")

		return nil, nil
	}
	if quadratic && st != solver.StatusOptimal && !be.Capabilities().NativeQP {
		growths := make(map[string]float64, len(c.Taxa()))
		for _, tid := range c.Taxa() {
			growths[tid] = res.ValueOf(c.GrowthExpression(tid))
		}
		logging.L().Info().Str("community", c.ID()).Str("status", string(st)).
			Msg("running crossover on fuzzy quadratic optimum")

		return c.Crossover(be, growths, opts.solveOptions())
	}

	return c.Extract(res, be, opts.solveOptions())
}

func scaleQuad(terms []solver.QuadTerm, s float64) []solver.QuadTerm {
	out := make([]solver.QuadTerm, len(terms))
	for i, t := range terms {
		out[i] = solver.QuadTerm{I: t.I, J: t.J, Coef: t.Coef * s}
	}

	return out
}
