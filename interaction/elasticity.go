package interaction

import (
	"fmt"
	"math"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
	"github.com/consortia-dev/consortia/stoich"
	"github.com/consortia-dev/consortia/tradeoff"
)

// elasticityStep is the log-scale perturbation applied to each effector:
// the parameter is multiplied by exp(elasticityStep).
const elasticityStep = 0.1

// EffectorType tells which parameter class was perturbed.
type EffectorType string

// Effector types.
const (
	// EffectorExchange perturbs a medium import bound (the diet).
	EffectorExchange EffectorType = "exchange"
	// EffectorAbundance perturbs one taxon's relative abundance.
	EffectorAbundance EffectorType = "abundance"
)

// Direction labels the sign regime of a response flux across the
// perturbation.
type Direction string

// Flux directions.
const (
	Forward Direction = "forward"
	Reverse Direction = "reverse"
	Zero    Direction = "zero"
)

// Elasticity is one response/effector pair: the scaled sensitivity
// d log|flux| / d log parameter of a reaction flux to a community parameter.
type Elasticity struct {
	Reaction   string // response reaction GlobalID
	Taxon      string // owning taxon, or "medium"
	Effector   string // perturbed exchange ID or taxon ID
	Type       EffectorType
	Direction  Direction
	Elasticity float64
}

// ElasticityOptions tunes an elasticity scan.
type ElasticityOptions struct {
	// Fraction > 0 runs every solve as a cooperative tradeoff at that
	// fraction of maximal community growth (needs a quadratic-capable
	// backend); 0 uses plain community FBA.
	Fraction float64

	// Reactions restricts the responses to the given community reaction
	// IDs; nil measures every reaction.
	Reactions []string
}

// Elasticities measures how strongly each response flux reacts to the
// community's parameters: every currently importing medium exchange and
// every taxon abundance is scaled by exp(0.1) in turn and the fluxes are
// re-solved. Elasticities are finite-difference log derivatives against the
// unperturbed base solution.
//
// All perturbations run inside scoped transactions; the community is
// unchanged afterwards. A base or perturbed solve without a usable optimum
// aborts the scan with ErrNotOptimal.
func Elasticities(c *community.Community, be solver.Backend, opts ElasticityOptions) ([]Elasticity, error) {
	responses, err := responseReactions(c, opts.Reactions)
	if err != nil {
		return nil, err
	}

	var out []Elasticity
	err = c.Atomic(func() error {
		base, err := solveFluxes(c, be, opts)
		if err != nil {
			return err
		}
		before := responseFluxes(base, responses)

		// Diet effectors: every medium exchange with an active import.
		for _, ex := range c.Exchanges() {
			if base.Fluxes[community.MediumID][ex.GlobalID] > -fluxTol {
				continue
			}
			exID, lb, ub := ex.ID, ex.LowerBound, ex.UpperBound
			err := c.Atomic(func() error {
				if err := c.SetReactionBounds(exID, lb*math.Exp(elasticityStep), ub); err != nil {
					return err
				}
				sol, err := solveFluxes(c, be, opts)
				if err != nil {
					return err
				}
				out = append(out, derive(responses, before, responseFluxes(sol, responses), exID, EffectorExchange)...)

				return nil
			})
			if err != nil {
				return err
			}
		}

		// Abundance effectors, perturbed without renormalization so only
		// one taxon moves.
		abundances := c.Abundances()
		for _, tid := range c.Taxa() {
			perturbed := make(map[string]float64, len(abundances))
			for k, v := range abundances {
				perturbed[k] = v
			}
			perturbed[tid] *= math.Exp(elasticityStep)
			err := c.Atomic(func() error {
				if err := c.SetAbundances(perturbed, false); err != nil {
					return err
				}
				sol, err := solveFluxes(c, be, opts)
				if err != nil {
					return err
				}
				out = append(out, derive(responses, before, responseFluxes(sol, responses), tid, EffectorAbundance)...)

				return nil
			})
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

// responseReactions resolves the requested response set, defaulting to every
// community reaction in insertion order.
func responseReactions(c *community.Community, ids []string) ([]*stoich.Reaction, error) {
	net := c.Network()
	if ids == nil {
		return net.Reactions(), nil
	}
	out := make([]*stoich.Reaction, 0, len(ids))
	for _, id := range ids {
		r := net.Reaction(id)
		if r == nil {
			return nil, fmt.Errorf("reaction %q: %w", id, stoich.ErrReactionNotFound)
		}
		out = append(out, r)
	}

	return out, nil
}

func solveFluxes(c *community.Community, be solver.Backend, opts ElasticityOptions) (*community.Solution, error) {
	if opts.Fraction > 0 {
		sol, err := tradeoff.One(c, be, opts.Fraction, tradeoff.Options{Fluxes: true})
		if err != nil {
			return nil, err
		}
		if sol == nil {
			return nil, community.ErrNotOptimal
		}

		return sol, nil
	}

	return c.Optimize(be, community.SolveOptions{Fluxes: true, RaiseOnNonOptimal: true})
}

func responseFluxes(sol *community.Solution, rs []*stoich.Reaction) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = sol.Fluxes[r.CommunityID][r.GlobalID]
	}

	return out
}

// derive turns a before/after flux pair into elasticity rows. The epsilon
// inside the logs keeps vanished fluxes finite.
func derive(rs []*stoich.Reaction, before, after []float64, effector string, typ EffectorType) []Elasticity {
	out := make([]Elasticity, len(rs))
	for i, r := range rs {
		b, a := before[i], after[i]
		dir := Zero
		switch {
		case b < -fluxTol || a < -fluxTol:
			dir = Reverse
		case b > fluxTol || a > fluxTol:
			dir = Forward
		}
		if b*a < 0 {
			logging.L().Warn().Str("reaction", r.ID).Str("effector", effector).
				Msg("response flux changed sign across the perturbation")
		}
		out[i] = Elasticity{
			Reaction:   r.GlobalID,
			Taxon:      r.CommunityID,
			Effector:   effector,
			Type:       typ,
			Direction:  dir,
			Elasticity: (math.Log(math.Abs(a)+fluxTol) - math.Log(math.Abs(b)+fluxTol)) / elasticityStep,
		}
	}

	return out
}
