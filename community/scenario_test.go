package community_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/data"
	"github.com/consortia-dev/consortia/solver/gonumlp"
)

// CrossFeedingSuite walks a producer/consumer pair through the full
// lifecycle: medium assignment, optimization, knockout and recovery.
type CrossFeedingSuite struct {
	suite.Suite

	c *community.Community
}

func (s *CrossFeedingSuite) SetupTest() {
	c, err := community.New("cf", data.CrossFeedingTaxonomy(1, 1))
	require.NoError(s.T(), err)

	_, err = c.SetMedium(map[string]float64{"EX_glc_m": 10})
	require.NoError(s.T(), err)
	s.c = c
}

// TestMediumRoundTrip verifies that the applied medium reads back and that
// unlisted exchanges were closed for import.
func (s *CrossFeedingSuite) TestMediumRoundTrip() {
	require.Equal(s.T(), map[string]float64{"EX_glc_m": 10.0}, s.c.Medium())
}

// TestOptimize checks the cross-feeding optimum: all glucose is fermented to
// acetate, all acetate feeds the consumer.
func (s *CrossFeedingSuite) TestOptimize() {
	sol, err := s.c.Optimize(gonumlp.New(), community.SolveOptions{})
	require.NoError(s.T(), err)
	require.NotNil(s.T(), sol)
	require.InDelta(s.T(), 20.0, sol.GrowthRate, 1e-6)
	require.InDelta(s.T(), 40.0, sol.Member("consumer").GrowthRate, 1e-6)
}

// TestKnockoutStarvesConsumer removes the producer inside a transaction; with
// no acetate source the consumer cannot grow, and the base community is
// restored afterwards.
func (s *CrossFeedingSuite) TestKnockoutStarvesConsumer() {
	err := s.c.Atomic(func() error {
		if err := s.c.KnockoutTaxon("producer"); err != nil {
			return err
		}
		sol, err := s.c.Optimize(gonumlp.New(), community.SolveOptions{})
		if err != nil {
			return err
		}
		require.NotNil(s.T(), sol)
		require.InDelta(s.T(), 0.0, sol.GrowthRate, 1e-6)
		require.InDelta(s.T(), 0.0, sol.Member("consumer").GrowthRate, 1e-6)

		return nil
	})
	require.NoError(s.T(), err)

	sol, err := s.c.Optimize(gonumlp.New(), community.SolveOptions{})
	require.NoError(s.T(), err)
	require.InDelta(s.T(), 20.0, sol.GrowthRate, 1e-6)
}

func TestCrossFeedingSuite(t *testing.T) {
	suite.Run(t, new(CrossFeedingSuite))
}
