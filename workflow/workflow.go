// Package workflow runs growth analyses over many independent samples with
// bounded parallelism. Each sample gets its own community and its own
// backend instance (communities and backends are not safe for concurrent
// use); results are collected into flat, sample-keyed tables.
package workflow

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/logging"
	"github.com/consortia-dev/consortia/solver"
	"github.com/consortia-dev/consortia/tradeoff"
)

// ErrNoBackend indicates a run without a backend factory.
var ErrNoBackend = errors.New("workflow: no backend factory configured")

// Sample is one (taxonomy, medium) input of a batch run.
type Sample struct {
	ID     string
	Taxa   []community.Taxon
	Medium map[string]float64
}

// Options tunes a batch run.
type Options struct {
	// Backend builds one solver backend per worker. Required.
	Backend func() solver.Backend

	// Workers bounds the parallelism; 0 selects GOMAXPROCS.
	Workers int

	// Tradeoff selects the cooperative-tradeoff fraction for Grow; 0 runs
	// a plain community FBA instead (the only mode LP-only backends can
	// serve).
	Tradeoff float64

	// MinGrowth gives per-taxon floors applied in every sample.
	MinGrowth map[string]float64

	// PFBA selects parsimonious flux distributions.
	PFBA bool

	// Community passes assembly options through to every sample.
	Community []community.Option
}

func (o *Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}

	return runtime.GOMAXPROCS(0)
}

// Growth is one taxon's growth in one sample.
type Growth struct {
	Sample     string
	Taxon      string
	Abundance  float64
	GrowthRate float64
}

// ExchangeFlux is one taxon's medium-directed flux of one metabolite in
// one sample (positive = secretion into the shared pool).
type ExchangeFlux struct {
	Sample     string
	Taxon      string
	Metabolite string
	Flux       float64
}

// GrowthResults aggregates a batch run. Rows follow sample input order.
type GrowthResults struct {
	Growth    []Growth
	Exchanges []ExchangeFlux
}

// Grow analyzes every sample: assemble the community, apply its medium and
// solve (cooperative tradeoff when Options.Tradeoff > 0, plain FBA
// otherwise). Samples with no usable optimum contribute no rows but are
// logged; any hard error cancels the whole batch.
func Grow(ctx context.Context, samples []Sample, opts Options) (*GrowthResults, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}

	type partial struct {
		growth    []Growth
		exchanges []ExchangeFlux
	}
	parts := make([]partial, len(samples))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range samples {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := samples[i]
			sol, com, err := solveSample(s, opts)
			if err != nil {
				return err
			}
			if sol == nil {
				logging.L().Warn().Str("sample", s.ID).Msg("sample had no usable optimum")

				return nil
			}
			for _, m := range sol.Members {
				parts[i].growth = append(parts[i].growth, Growth{
					Sample:     s.ID,
					Taxon:      m.Taxon,
					Abundance:  m.Abundance,
					GrowthRate: m.GrowthRate,
				})
			}
			flows, err := com.MediumFlows(sol)
			if err != nil {
				return err
			}
			for _, tid := range com.Taxa() {
				mids := make([]string, 0, len(flows[tid]))
				for mid := range flows[tid] {
					mids = append(mids, mid)
				}
				sort.Strings(mids)
				for _, mid := range mids {
					parts[i].exchanges = append(parts[i].exchanges, ExchangeFlux{
						Sample:     s.ID,
						Taxon:      tid,
						Metabolite: mid,
						Flux:       flows[tid][mid],
					})
				}
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &GrowthResults{}
	for i := range parts {
		out.Growth = append(out.Growth, parts[i].growth...)
		out.Exchanges = append(out.Exchanges, parts[i].exchanges...)
	}

	return out, nil
}

func solveSample(s Sample, opts Options) (*community.Solution, *community.Community, error) {
	com, err := community.New(s.ID, s.Taxa, opts.Community...)
	if err != nil {
		return nil, nil, err
	}
	if s.Medium != nil {
		if _, err := com.SetMedium(s.Medium); err != nil {
			return nil, nil, err
		}
	}
	be := opts.Backend()

	var sol *community.Solution
	if opts.Tradeoff > 0 {
		sol, err = tradeoff.One(com, be, opts.Tradeoff, tradeoff.Options{
			MinGrowth: opts.MinGrowth,
			Fluxes:    true,
			PFBA:      opts.PFBA,
		})
	} else {
		err = com.Atomic(func() error {
			if opts.MinGrowth != nil {
				if aerr := com.ApplyMinGrowth(opts.MinGrowth, 1e-6, 1e-6); aerr != nil {
					return aerr
				}
			}
			res, oerr := com.OptimizeCurrent(be)
			if oerr != nil {
				return oerr
			}
			if !res.Status().Usable() {
				return nil
			}
			sol, oerr = com.Extract(res, be, community.SolveOptions{Fluxes: true, PFBA: opts.PFBA})

			return oerr
		})
	}
	if err != nil {
		return nil, nil, err
	}

	return sol, com, nil
}

// FractionGrowth is one taxon's growth at one tradeoff fraction.
type FractionGrowth struct {
	Sample     string
	Fraction   float64
	Taxon      string
	GrowthRate float64
}

// TradeoffScan runs the cooperative tradeoff over a fraction grid for every
// sample, reporting per-taxon growth at each fraction. Fractions with no
// usable optimum contribute no rows.
func TradeoffScan(ctx context.Context, samples []Sample, fractions []float64, opts Options) ([]FractionGrowth, error) {
	if opts.Backend == nil {
		return nil, ErrNoBackend
	}

	parts := make([][]FractionGrowth, len(samples))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i := range samples {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := samples[i]
			com, err := community.New(s.ID, s.Taxa, opts.Community...)
			if err != nil {
				return err
			}
			if s.Medium != nil {
				if _, err := com.SetMedium(s.Medium); err != nil {
					return err
				}
			}
			results, err := tradeoff.Run(com, opts.Backend(), tradeoff.Options{
				MinGrowth: opts.MinGrowth,
				Fractions: fractions,
			})
			if err != nil {
				return err
			}
			for _, r := range results {
				if r.Solution == nil {
					continue
				}
				for _, m := range r.Solution.Members {
					parts[i] = append(parts[i], FractionGrowth{
						Sample:     s.ID,
						Fraction:   r.Fraction,
						Taxon:      m.Taxon,
						GrowthRate: m.GrowthRate,
					})
				}
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []FractionGrowth
	for i := range parts {
		out = append(out, parts[i]...)
	}

	return out, nil
}
