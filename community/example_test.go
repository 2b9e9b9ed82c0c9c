package community_test

import (
	"fmt"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/data"
	"github.com/consortia-dev/consortia/solver/gonumlp"
)

// ExampleNew builds a two-member community of identical organisms and
// maximizes the abundance-weighted community growth rate. The shared glucose
// pool caps the community at the single-organism optimum.
func ExampleNew() {
	c, _ := community.New("pair", data.EqualTaxonomy(2, "t"))

	sol, _ := c.Optimize(gonumlp.New(), community.SolveOptions{})
	fmt.Printf("%.0f\n", sol.GrowthRate)
	// Output:
	// 10
}

// ExampleCommunity_SetMedium feeds a producer/consumer pair glucose and reads
// off the cross-feeding optimum: the producer ferments glucose to acetate,
// which only the consumer can turn into growth.
func ExampleCommunity_SetMedium() {
	c, _ := community.New("cf", data.CrossFeedingTaxonomy(1, 1))
	_, _ = c.SetMedium(map[string]float64{"EX_glc_m": 10})

	sol, _ := c.Optimize(gonumlp.New(), community.SolveOptions{})
	fmt.Printf("community %.0f\n", sol.GrowthRate)
	fmt.Printf("consumer  %.0f\n", sol.Member("consumer").GrowthRate)
	// Output:
	// community 20
	// consumer  40
}
