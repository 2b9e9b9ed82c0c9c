package optcom_test

import (
	"fmt"

	"github.com/consortia-dev/consortia/community"
	"github.com/consortia-dev/consortia/data"
	"github.com/consortia-dev/consortia/optcom"
	"github.com/consortia-dev/consortia/solver/gonumlp"
)

// ExampleSolve maximizes community growth while holding every member above an
// individual growth floor.
func ExampleSolve() {
	c, _ := community.New("pair", data.EqualTaxonomy(2, "t"))

	sol, _ := optcom.Solve(c, gonumlp.New(), optcom.Linear, optcom.Options{
		MinGrowth: map[string]float64{"t1": 5, "t2": 5},
	})
	fmt.Printf("%.0f\n", sol.GrowthRate)
	// Output:
	// 10
}
