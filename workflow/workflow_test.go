package workflow_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consortia-dev/consortia/data"
	"github.com/consortia-dev/consortia/solver"
	"github.com/consortia-dev/consortia/solver/gonumlp"
	"github.com/consortia-dev/consortia/solver/solvertest"
	"github.com/consortia-dev/consortia/workflow"
)

func TestGrow_RequiresBackend(t *testing.T) {
	_, err := workflow.Grow(context.Background(), nil, workflow.Options{})
	require.ErrorIs(t, err, workflow.ErrNoBackend)
}

func TestGrow_TwoSamples(t *testing.T) {
	samples := []workflow.Sample{
		{ID: "s1", Taxa: data.EqualTaxonomy(1, "a")},
		{
			ID:     "s2",
			Taxa:   data.CrossFeedingTaxonomy(1, 1),
			Medium: map[string]float64{"EX_glc_m": 10},
		},
	}

	results, err := workflow.Grow(context.Background(), samples, workflow.Options{
		Backend: func() solver.Backend { return gonumlp.New() },
		Workers: 2,
	})
	require.NoError(t, err)

	// Rows follow sample input order regardless of completion order.
	require.Len(t, results.Growth, 3)
	require.Equal(t, "s1", results.Growth[0].Sample)
	require.Equal(t, "a1", results.Growth[0].Taxon)
	require.InDelta(t, 10.0, results.Growth[0].GrowthRate, 1e-6)

	require.Equal(t, "s2", results.Growth[1].Sample)
	byTaxon := map[string]float64{}
	for _, g := range results.Growth[1:] {
		byTaxon[g.Taxon] = g.GrowthRate
	}
	require.InDelta(t, 0.0, byTaxon["producer"], 1e-6)
	require.InDelta(t, 40.0, byTaxon["consumer"], 1e-6)

	// Exchange rows carry medium-directed fluxes.
	require.NotEmpty(t, results.Exchanges)
	var sawImport bool
	for _, ex := range results.Exchanges {
		if ex.Sample == "s1" && ex.Metabolite == "glc_m" {
			require.InDelta(t, -10.0, ex.Flux, 1e-6)
			sawImport = true
		}
	}
	require.True(t, sawImport)
}

func TestGrow_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := workflow.Grow(ctx, []workflow.Sample{
		{ID: "s1", Taxa: data.EqualTaxonomy(1, "a")},
	}, workflow.Options{
		Backend: func() solver.Backend { return gonumlp.New() },
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestGrow_BadSampleFailsBatch(t *testing.T) {
	_, err := workflow.Grow(context.Background(), []workflow.Sample{
		{ID: "bad"}, // no taxa
	}, workflow.Options{
		Backend: func() solver.Backend { return gonumlp.New() },
	})
	require.Error(t, err)
}

func TestTradeoffScan(t *testing.T) {
	samples := []workflow.Sample{{ID: "s1", Taxa: data.EqualTaxonomy(1, "a")}}

	rows, err := workflow.TradeoffScan(context.Background(), samples, []float64{0.5, 1.0}, workflow.Options{
		Backend: func() solver.Backend {
			return &solvertest.Backend{
				Caps: solver.Capabilities{Quadratic: true},
				OnSolve: func(p *solver.Problem) (*solver.Outcome, error) {
					return &solver.Outcome{Status: solver.StatusOptimal, Objective: 7}, nil
				},
			}
		},
	})
	require.NoError(t, err)

	// One row per (fraction, taxon), fractions scanned largest first.
	require.Len(t, rows, 2)
	require.Equal(t, 1.0, rows[0].Fraction)
	require.Equal(t, 0.5, rows[1].Fraction)
	require.Equal(t, "a1", rows[0].Taxon)
	require.Equal(t, "s1", rows[0].Sample)
}
