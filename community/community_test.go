package community_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/data"
	"github.com/consortia-dev/consortia/solver"
	"github.com/consortia-dev/consortia/solver/solvertest"
	"github.com/consortia-dev/consortia/stoich"
)

func equalPair(t *testing.T) *community.Community {
	t.Helper()
	c, err := community.New("pair", data.EqualTaxonomy(2, "t"))
	require.NoError(t, err)

	return c
}

func TestNew_TaxonomyValidation(t *testing.T) {
	_, err := community.New("c", nil)
	require.ErrorIs(t, err, community.ErrEmptyTaxonomy)

	_, err = community.New("c", []community.Taxon{{ID: "", Abundance: 1, Network: data.GrowthNetwork("g")}})
	require.ErrorIs(t, err, community.ErrBadTaxonomy)

	_, err = community.New("c", []community.Taxon{{ID: "a", Abundance: -1, Network: data.GrowthNetwork("g")}})
	require.ErrorIs(t, err, community.ErrBadTaxonomy)

	_, err = community.New("c", []community.Taxon{{ID: "a", Abundance: 1}})
	require.ErrorIs(t, err, community.ErrBadTaxonomy)

	_, err = community.New("c", []community.Taxon{
		{ID: "a", Abundance: 1, Network: data.GrowthNetwork("g")},
		{ID: "a", Abundance: 1, Network: data.GrowthNetwork("g")},
	})
	require.ErrorIs(t, err, community.ErrDuplicateTaxon)

	// Sanitization can collide two distinct input IDs.
	_, err = community.New("c", []community.Taxon{
		{ID: "t 1", Abundance: 1, Network: data.GrowthNetwork("g")},
		{ID: "t_1", Abundance: 1, Network: data.GrowthNetwork("g")},
	})
	require.ErrorIs(t, err, community.ErrDuplicateTaxon)
}

func TestNew_AbundanceNormalization(t *testing.T) {
	c := equalPair(t)
	require.Equal(t, []string{"t1", "t2"}, c.Taxa())
	require.InDelta(t, 0.5, c.Abundance("t1"), 1e-12)
	require.InDelta(t, 0.5, c.Abundance("t2"), 1e-12)

	sum := 0.0
	for _, a := range c.Abundances() {
		sum += a
	}
	require.InDelta(t, 1.0, sum, 1e-12)
}

func TestNew_DropsRareTaxaAndRenormalizes(t *testing.T) {
	taxa := []community.Taxon{
		{ID: "major", Abundance: 1, Network: data.GrowthNetwork("major")},
		{ID: "trace", Abundance: 1e-9, Network: data.GrowthNetwork("trace")},
	}
	c, err := community.New("c", taxa)
	require.NoError(t, err)
	require.Equal(t, []string{"major"}, c.Taxa())
	require.InDelta(t, 1.0, c.Abundance("major"), 1e-12)

	// A threshold no single taxon can clear drops them all.
	_, err = community.New("c", []community.Taxon{
		{ID: "a", Abundance: 1, Network: data.GrowthNetwork("a")},
		{ID: "b", Abundance: 1, Network: data.GrowthNetwork("b")},
	}, community.WithRelThreshold(0.9))
	require.ErrorIs(t, err, community.ErrAllTaxaDropped)
}

func TestNew_MassNormalizesImportBoundOnly(t *testing.T) {
	// Community biomass scales the import direction of the medium exchange;
	// the export direction keeps the source bound.
	c, err := community.New("c", data.EqualTaxonomy(1, "s"), community.WithMass(2))
	require.NoError(t, err)

	ex := c.Network().Reaction("EX_glc_m")
	require.NotNil(t, ex)
	require.Equal(t, -5.0, ex.LowerBound)
	require.Equal(t, 1000.0, ex.UpperBound)
}

func TestNew_WidensTinyExchangeBounds(t *testing.T) {
	// Bounds below solver accuracy are pushed away from zero, not removed.
	net := data.GrowthNetwork("g")
	src := net.Reaction("EX_glc_e")
	src.LowerBound, src.UpperBound = -1e-9, 1e-9

	c, err := community.New("c", []community.Taxon{{ID: "s", Abundance: 1, Network: net}})
	require.NoError(t, err)

	med := c.Network().Reaction("EX_glc_m")
	require.Equal(t, -1e-6, med.LowerBound)
	require.Equal(t, 1e-6, med.UpperBound)
}

func TestNew_NamespacingAndIdentity(t *testing.T) {
	c := equalPair(t)
	net := c.Network()

	m := net.Metabolite("glc_c__t1")
	require.NotNil(t, m)
	require.Equal(t, "glc_c", m.GlobalID)
	require.Equal(t, "t1", m.CommunityID)
	require.Equal(t, "c__t1", m.Compartment)

	r := net.Reaction("BIOMASS__t2")
	require.NotNil(t, r)
	require.Equal(t, "BIOMASS", r.GlobalID)
	require.Equal(t, "t2", r.CommunityID)

	med := net.Metabolite("glc_m")
	require.NotNil(t, med)
	require.Equal(t, community.MediumCompartment, med.Compartment)
	require.Equal(t, community.MediumID, med.CommunityID)
}

func TestNew_MediumExchangeCreateOrWiden(t *testing.T) {
	c := equalPair(t)

	// Both taxa trade glucose: one shared exchange, widest bounds win.
	exchanges := c.Exchanges()
	require.Len(t, exchanges, 1)
	ex := exchanges[0]
	require.Equal(t, "EX_glc_m", ex.ID)
	require.Equal(t, -10.0, ex.LowerBound)
	require.Equal(t, 1000.0, ex.UpperBound)

	// Taxon-side exchanges move to the internal cap; the medium bound rules.
	internal := c.Network().Reaction("EX_glc_e__t1")
	require.Equal(t, -community.DefaultMaxExchange, internal.LowerBound)
	require.Equal(t, community.DefaultMaxExchange, internal.UpperBound)

	// The coupling coefficient is the taxon abundance.
	require.InDelta(t, 0.5, internal.Stoichiometry["glc_m"], 1e-12)
}

func TestNew_WidensImportFromSecondTaxon(t *testing.T) {
	c, err := community.New("cf", data.CrossFeedingTaxonomy(1, 1))
	require.NoError(t, err)

	// The producer opens acetate export-only; the consumer widens the
	// import side to its own bound.
	ex := c.Network().Reaction("EX_ac_m")
	require.NotNil(t, ex)
	require.Equal(t, -20.0, ex.LowerBound)
	require.Equal(t, 1000.0, ex.UpperBound)
}

func TestNew_GrowthMachinery(t *testing.T) {
	c := equalPair(t)

	for _, tid := range c.Taxa() {
		cons := c.GrowthConstraint(tid)
		require.NotNil(t, cons)
		require.Equal(t, 0.0, cons.LB())
		require.True(t, math.IsInf(cons.UB(), 1))

		expr := c.GrowthExpression(tid)
		require.InDelta(t, 1.0, expr[c.ForwardVar("BIOMASS__"+tid)], 1e-12)
		require.InDelta(t, -1.0, expr[c.ReverseVar("BIOMASS__"+tid)], 1e-12)
	}

	obj := c.Model().Objective()
	require.Equal(t, solver.Maximize, obj.Direction)
	require.InDelta(t, 1.0, obj.Linear[c.ObjectiveVar()], 1e-12)

	balance := c.Model().Constraint("community_objective_balance")
	require.NotNil(t, balance)
	require.Equal(t, 0.0, balance.LB())
	require.Equal(t, 0.0, balance.UB())
	require.InDelta(t, -1.0, balance.Coef(c.ObjectiveVar()), 1e-12)
	require.InDelta(t, 0.5, balance.Coef(c.ForwardVar("BIOMASS__t1")), 1e-12)
}

func TestNew_Deterministic(t *testing.T) {
	names := func() []string {
		c, err := community.New("pair", data.EqualTaxonomy(2, "t"))
		require.NoError(t, err)
		var out []string
		for _, v := range c.Model().Variables() {
			out = append(out, v.Name())
		}

		return out
	}
	require.Equal(t, names(), names())
}

func TestNew_SanitizesTaxonIDs(t *testing.T) {
	c, err := community.New("c", []community.Taxon{
		{ID: "E. coli", Abundance: 1, Network: data.GrowthNetwork("g")},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"E__coli"}, c.Taxa())
	require.NotNil(t, c.Network().Reaction("BIOMASS__E__coli"))
}

func TestNew_LoaderRefs(t *testing.T) {
	taxa := []community.Taxon{{ID: "mix", Abundance: 1, Refs: []string{"growth:a", "producer:b"}}}

	_, err := community.New("c", taxa)
	require.ErrorIs(t, err, community.ErrNoLoader)

	c, err := community.New("c", taxa, community.WithLoader(data.Loader()))
	require.NoError(t, err)
	require.NotNil(t, c.Network().Reaction("FERM__mix"))
	require.NotNil(t, c.Network().Reaction("GLCt__mix"))

	taxa[0].Refs = []string{"plasmid"}
	_, err = community.New("c", taxa, community.WithLoader(data.Loader()))
	require.ErrorIs(t, err, community.ErrLoad)
}

func TestAtomic_RevertsEverything(t *testing.T) {
	c := equalPair(t)
	ex := c.Network().Reaction("EX_glc_m")
	fwd := c.ForwardVar("EX_glc_m")
	internal := c.Network().Reaction("EX_glc_e__t1")

	err := c.Atomic(func() error {
		require.NoError(t, c.SetModification("probe"))
		require.NoError(t, c.SetReactionBounds("EX_glc_m", -3, 500))
		require.NoError(t, c.KnockoutTaxon("t2"))
		require.NoError(t, c.SetAbundances(map[string]float64{"t1": 0.9, "t2": 0.1}, false))

		require.Equal(t, -3.0, ex.LowerBound)
		require.Equal(t, 0.9, c.Abundance("t1"))
		require.InDelta(t, 0.9, internal.Stoichiometry["glc_m"], 1e-12)

		return nil
	})
	require.NoError(t, err)

	// Network, solver and shadow state are all back.
	require.Equal(t, "", c.Modification())
	require.Equal(t, -10.0, ex.LowerBound)
	require.Equal(t, 1000.0, ex.UpperBound)
	require.Equal(t, 0.0, fwd.LB())
	require.Equal(t, 1000.0, fwd.UB())
	require.Equal(t, 1000.0, c.ForwardVar("BIOMASS__t2").UB())
	require.InDelta(t, 0.5, c.Abundance("t1"), 1e-12)
	require.InDelta(t, 0.5, internal.Stoichiometry["glc_m"], 1e-12)
	require.InDelta(t, 0.5, c.Model().Constraint("glc_m").Coef(c.ForwardVar("EX_glc_e__t1")), 1e-12)
}

func TestSetAbundances(t *testing.T) {
	c := equalPair(t)

	err := c.SetAbundances(map[string]float64{"t1": 1}, false)
	require.ErrorIs(t, err, community.ErrAbundanceMismatch)

	err = c.SetAbundances(map[string]float64{"t1": 1, "ghost": 1}, false)
	require.ErrorIs(t, err, community.ErrAbundanceMismatch)

	err = c.SetAbundances(map[string]float64{"t1": -1, "t2": 1}, false)
	require.ErrorIs(t, err, community.ErrBadTaxonomy)

	// Normalization rescales and floors, without a second pass.
	require.NoError(t, c.SetAbundances(map[string]float64{"t1": 3, "t2": 1}, true))
	require.InDelta(t, 0.75, c.Abundance("t1"), 1e-12)
	require.InDelta(t, 0.25, c.Abundance("t2"), 1e-12)

	// Couplings and the objective balance follow the new composition.
	require.InDelta(t, 0.75, c.Network().Reaction("EX_glc_e__t1").Stoichiometry["glc_m"], 1e-12)
	require.InDelta(t, 0.75, c.Model().Constraint("glc_m").Coef(c.ForwardVar("EX_glc_e__t1")), 1e-12)
	require.InDelta(t, -0.75, c.Model().Constraint("glc_m").Coef(c.ReverseVar("EX_glc_e__t1")), 1e-12)
	balance := c.Model().Constraint("community_objective_balance")
	require.InDelta(t, 0.75, balance.Coef(c.ForwardVar("BIOMASS__t1")), 1e-12)
	require.InDelta(t, 0.25, balance.Coef(c.ForwardVar("BIOMASS__t2")), 1e-12)
}

func TestSetAbundances_FloorsRareTaxaWithoutRenormalizing(t *testing.T) {
	taxa := []community.Taxon{
		{ID: "t1", Abundance: 1, Network: data.GrowthNetwork("t1")},
		{ID: "t2", Abundance: 1, Network: data.GrowthNetwork("t2")},
		{ID: "t3", Abundance: 1, Network: data.GrowthNetwork("t3")},
		{ID: "t4", Abundance: 1, Network: data.GrowthNetwork("t4")},
	}
	c, err := community.New("c", taxa)
	require.NoError(t, err)

	err = c.SetAbundances(map[string]float64{"t1": 1, "t2": 2, "t3": 1e-8, "t4": 3}, true)
	require.NoError(t, err)

	// The rare taxon is floored to exactly the threshold; the others keep
	// their normalized shares, so no second normalization pass runs and the
	// total exceeds one by the floored amount.
	require.Equal(t, community.DefaultRelThreshold, c.Abundance("t3"))
	require.InDelta(t, 1.0/6, c.Abundance("t1"), 1e-9)
	require.InDelta(t, 2.0/6, c.Abundance("t2"), 1e-9)
	require.InDelta(t, 3.0/6, c.Abundance("t4"), 1e-9)
	sum := 0.0
	for _, a := range c.Abundances() {
		sum += a
	}
	require.Greater(t, sum, 1.0)

	// The floored abundance reaches the medium coupling.
	internal := c.Network().Reaction("EX_glc_e__t3")
	require.Equal(t, community.DefaultRelThreshold, internal.Stoichiometry["glc_m"])
}

func TestMediumAndSetMedium(t *testing.T) {
	c := equalPair(t)
	require.Equal(t, map[string]float64{"EX_glc_m": 10}, c.Medium())

	unmatched, err := c.SetMedium(map[string]float64{"EX_glc_m": 4, "EX_bogus_m": 1})
	require.NoError(t, err)
	require.Equal(t, []string{"EX_bogus_m"}, unmatched)
	require.Equal(t, map[string]float64{"EX_glc_m": 4}, c.Medium())

	// Unlisted exchanges are closed for import.
	unmatched, err = c.SetMedium(map[string]float64{})
	require.NoError(t, err)
	require.Empty(t, unmatched)
	require.Empty(t, c.Medium())
}

func TestModificationSlot(t *testing.T) {
	c := equalPair(t)
	require.NoError(t, c.SetModification("first"))
	require.NoError(t, c.SetModification("first")) // re-claim is a no-op

	err := c.SetModification("second")
	require.ErrorIs(t, err, community.ErrModificationActive)

	c.ClearModification()
	require.NoError(t, c.SetModification("second"))
}

func TestKnockoutTaxon_UnknownTaxon(t *testing.T) {
	c := equalPair(t)
	err := c.KnockoutTaxon("ghost")
	require.ErrorIs(t, err, community.ErrTaxonNotFound)
}

func TestApplyMinGrowth(t *testing.T) {
	c := equalPair(t)
	err := c.Atomic(func() error {
		floors := map[string]float64{"t1": 5, "t2": 0} // below atol: skipped
		require.NoError(t, c.ApplyMinGrowth(floors, 1e-6, 1e-6))
		require.InDelta(t, 5.0, c.GrowthConstraint("t1").LB(), 1e-4)
		require.Equal(t, 0.0, c.GrowthConstraint("t2").LB())

		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 0.0, c.GrowthConstraint("t1").LB())

	require.Len(t, c.UniformMinGrowth(2), 2)
}

func TestOptimizeCurrent_RetriesAfterReset(t *testing.T) {
	c := equalPair(t)
	be := &solvertest.Backend{Script: []solvertest.Step{
		solvertest.Terminal(solver.StatusFailed),
		solvertest.Optimal(10),
	}}

	res, err := c.OptimizeCurrent(be)
	require.NoError(t, err)
	require.Equal(t, 1, be.Resets)
	require.Equal(t, solver.StatusOptimal, res.Status())
}

func TestOptimizeCurrent_NoRetryOnInfeasible(t *testing.T) {
	c := equalPair(t)
	be := &solvertest.Backend{Script: []solvertest.Step{
		solvertest.Terminal(solver.StatusInfeasible),
	}}

	res, err := c.OptimizeCurrent(be)
	require.NoError(t, err)
	require.Equal(t, 0, be.Resets)
	require.Len(t, be.Problems, 1)
	require.Equal(t, solver.StatusInfeasible, res.Status())
}

func TestSetReactionBounds_Validation(t *testing.T) {
	c := equalPair(t)

	err := c.SetReactionBounds("ghost", 0, 1)
	require.ErrorIs(t, err, stoich.ErrReactionNotFound)

	err = c.SetReactionBounds("EX_glc_m", 5, -5)
	require.ErrorIs(t, err, stoich.ErrBadBounds)
}
