package interaction_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/data"
	"github.com/consortia-dev/consortia/interaction"
	"github.com/consortia-dev/consortia/solver/gonumlp"
	"github.com/consortia-dev/consortia/stoich"
)

func crossFeeders(t *testing.T) (*community.Community, *community.Solution) {
	t.Helper()
	c, err := community.New("cf", data.CrossFeedingTaxonomy(1, 1))
	require.NoError(t, err)
	_, err = c.SetMedium(map[string]float64{"EX_glc_m": 10})
	require.NoError(t, err)

	sol, err := c.Optimize(gonumlp.New(), community.SolveOptions{Fluxes: true})
	require.NoError(t, err)
	require.NotNil(t, sol)

	return c, sol
}

func TestFlows_CrossFeedingClassification(t *testing.T) {
	c, sol := crossFeeders(t)

	flows, err := interaction.Flows(c, sol, "producer")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	require.Equal(t, "ac_m", flows[0].Metabolite)
	require.Equal(t, interaction.Provided, flows[0].Class)
	require.Greater(t, flows[0].FocalFlux, 0.0)
	require.Less(t, flows[0].PartnerFlux, 0.0)

	flows, err = interaction.Flows(c, sol, "consumer")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	require.Equal(t, "ac_m", flows[0].Metabolite)
	require.Equal(t, interaction.Received, flows[0].Class)
}

func TestFlows_CoConsumption(t *testing.T) {
	c, err := community.New("pair", data.EqualTaxonomy(2, "t"))
	require.NoError(t, err)

	// Force both members to grow so the shared glucose pool is contested.
	var sol *community.Solution
	err = c.Atomic(func() error {
		if err := c.ApplyMinGrowth(c.UniformMinGrowth(8), 1e-6, 1e-6); err != nil {
			return err
		}
		var err error
		sol, err = c.Optimize(gonumlp.New(), community.SolveOptions{Fluxes: true})

		return err
	})
	require.NoError(t, err)
	require.NotNil(t, sol)

	flows, err := interaction.Flows(c, sol, "t1")
	require.NoError(t, err)
	require.Len(t, flows, 1)
	require.Equal(t, "glc_m", flows[0].Metabolite)
	require.Equal(t, interaction.CoConsumed, flows[0].Class)
}

func TestFlows_Errors(t *testing.T) {
	c, sol := crossFeeders(t)

	_, err := interaction.Flows(c, sol, "ghost")
	require.ErrorIs(t, err, community.ErrTaxonNotFound)

	_, err = interaction.Flows(c, nil, "producer")
	require.ErrorIs(t, err, community.ErrNoFluxes)
}

func TestSummarize(t *testing.T) {
	c, sol := crossFeeders(t)

	s, err := interaction.Summarize(c, sol, "producer")
	require.NoError(t, err)
	require.Equal(t, "producer", s.Taxon)
	require.Equal(t, 1, s.Counts[interaction.Provided])
	require.InDelta(t, 20.0, s.Flux[interaction.Provided], 1e-6)

	// Acetate (C2H3O2) carries two carbons and no nitrogen.
	require.InDelta(t, 40.0, s.Carbon[interaction.Provided], 1e-6)
	require.InDelta(t, 0.0, s.Nitrogen[interaction.Provided], 1e-6)
	require.Greater(t, s.MassFlux[interaction.Provided], 0.0)
}

func TestJaccardDistance(t *testing.T) {
	c, err := community.New("cf", data.CrossFeedingTaxonomy(1, 1))
	require.NoError(t, err)

	d, taxa := interaction.JaccardDistance(c)
	require.Equal(t, []string{"producer", "consumer"}, taxa)
	require.Equal(t, 0.0, d.At(0, 0))

	// Producer: 5 reactions, consumer: 3, shared: EX_ac_e and BIOMASS.
	require.InDelta(t, 1.0-2.0/6.0, d.At(0, 1), 1e-12)
	require.Equal(t, d.At(0, 1), d.At(1, 0))

	// Identical members are at distance zero.
	c2, err := community.New("pair", data.EqualTaxonomy(2, "t"))
	require.NoError(t, err)
	d2, _ := interaction.JaccardDistance(c2)
	require.Equal(t, 0.0, d2.At(0, 1))
}

func TestElasticities_SoloFBA(t *testing.T) {
	c, err := community.New("solo", data.EqualTaxonomy(1, "s"))
	require.NoError(t, err)

	rows, err := interaction.Elasticities(c, gonumlp.New(), interaction.ElasticityOptions{
		Reactions: []string{"BIOMASS__s1"},
	})
	require.NoError(t, err)

	// One effector per active import plus one per taxon.
	require.Len(t, rows, 2)

	// Widening the glucose import by exp(0.1) scales growth by the same
	// factor: elasticity one.
	diet := rows[0]
	require.Equal(t, "BIOMASS", diet.Reaction)
	require.Equal(t, "s1", diet.Taxon)
	require.Equal(t, "EX_glc_m", diet.Effector)
	require.Equal(t, interaction.EffectorExchange, diet.Type)
	require.Equal(t, interaction.Forward, diet.Direction)
	require.InDelta(t, 1.0, diet.Elasticity, 1e-3)

	// Raising the abundance spreads the same glucose over more biomass:
	// per-taxon growth shrinks by the same factor.
	ab := rows[1]
	require.Equal(t, "s1", ab.Effector)
	require.Equal(t, interaction.EffectorAbundance, ab.Type)
	require.InDelta(t, -1.0, ab.Elasticity, 1e-3)

	// The scan is transactional.
	require.Equal(t, -10.0, c.Network().Reaction("EX_glc_m").LowerBound)
	require.Equal(t, 1.0, c.Abundance("s1"))
}

func TestElasticities_UnknownReaction(t *testing.T) {
	c, err := community.New("solo", data.EqualTaxonomy(1, "s"))
	require.NoError(t, err)

	_, err = interaction.Elasticities(c, gonumlp.New(), interaction.ElasticityOptions{
		Reactions: []string{"ghost"},
	})
	require.ErrorIs(t, err, stoich.ErrReactionNotFound)
}

func TestEuclideanDistance(t *testing.T) {
	c, sol := crossFeeders(t)

	d, taxa, err := interaction.EuclideanDistance(c, sol)
	require.NoError(t, err)
	require.Len(t, taxa, 2)
	require.Greater(t, d.At(0, 1), 0.0)

	_, _, err = interaction.EuclideanDistance(c, nil)
	require.ErrorIs(t, err, community.ErrNoFluxes)
}
