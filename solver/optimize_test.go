package solver_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/consortia-dev/consortia/solver"
	"github.com/consortia-dev/consortia/solver/solvertest"
)

func TestOptimize_CapabilityGating(t *testing.T) {
	m := solver.NewModel("t")
	x, err := m.AddVariable("x", 0, 1, solver.Continuous)
	require.NoError(t, err)

	obj := solver.NewObjective(solver.Minimize)
	obj.Quad = solver.Square(solver.NewLin().Add(x, 1))
	m.SetObjective(obj)

	_, err = m.Optimize(&solvertest.Backend{})
	require.ErrorIs(t, err, solver.ErrQuadraticUnsupported)

	m.SetObjective(solver.NewObjective(solver.Minimize))
	_, err = m.AddVariable("z", 0, 1, solver.Binary)
	require.NoError(t, err)
	_, err = m.Optimize(&solvertest.Backend{})
	require.ErrorIs(t, err, solver.ErrIntegerUnsupported)
}

func TestOptimize_ResultMapsOutcome(t *testing.T) {
	m := solver.NewModel("t")
	x, err := m.AddVariable("x", 0, 10, solver.Continuous)
	require.NoError(t, err)
	y, err := m.AddVariable("y", 0, 10, solver.Continuous)
	require.NoError(t, err)
	c, err := m.AddConstraint("sum", solver.NewLin().Add(x, 1).Add(y, 1), 0, 10)
	require.NoError(t, err)

	be := &solvertest.Backend{
		Script: []solvertest.Step{{Out: &solver.Outcome{
			Status:    solver.StatusOptimal,
			Objective: 10,
			ColPrimal: []float64{4, 6},
			ColDual:   []float64{0, 0},
			RowDual:   []float64{1},
		}}},
	}
	res, err := m.Optimize(be)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, res.Status())
	require.InDelta(t, 10.0, res.Objective(), 1e-12)
	require.InDelta(t, 4.0, res.Value(x), 1e-12)
	require.InDelta(t, 6.0, res.Value(y), 1e-12)
	require.InDelta(t, 10.0, res.Activity(c), 1e-12)

	require.True(t, res.HasDuals())
	dual, err := res.Dual(c)
	require.NoError(t, err)
	require.InDelta(t, 1.0, dual, 1e-12)
	rc, err := res.ReducedCost(x)
	require.NoError(t, err)
	require.InDelta(t, 0.0, rc, 1e-12)
}

func TestOptimize_NoDuals(t *testing.T) {
	m := solver.NewModel("t")
	x, err := m.AddVariable("x", 0, 1, solver.Continuous)
	require.NoError(t, err)
	c, err := m.AddConstraint("c", solver.NewLin().Add(x, 1), 0, 1)
	require.NoError(t, err)

	be := &solvertest.Backend{Script: []solvertest.Step{solvertest.Optimal(1, 1)}}
	res, err := m.Optimize(be)
	require.NoError(t, err)
	require.False(t, res.HasDuals())
	_, err = res.Dual(c)
	require.ErrorIs(t, err, solver.ErrNoDuals)
	_, err = res.ReducedCost(x)
	require.ErrorIs(t, err, solver.ErrNoDuals)
}

func TestOptimize_TerminalStatusIsNotAnError(t *testing.T) {
	m := solver.NewModel("t")
	_, err := m.AddVariable("x", 0, 1, solver.Continuous)
	require.NoError(t, err)

	be := &solvertest.Backend{Script: []solvertest.Step{solvertest.Terminal(solver.StatusInfeasible)}}
	res, err := m.Optimize(be)
	require.NoError(t, err)
	require.Equal(t, solver.StatusInfeasible, res.Status())
	require.False(t, res.Status().Usable())
}

func TestStatus_Usable(t *testing.T) {
	usable := []solver.Status{
		solver.StatusOptimal, solver.StatusFeasible, solver.StatusSuboptimal,
		solver.StatusNumeric, solver.StatusIterationLimit,
	}
	for _, s := range usable {
		require.True(t, s.Usable(), s)
	}
	for _, s := range []solver.Status{
		solver.StatusInfeasible, solver.StatusUnbounded,
		solver.StatusUndetermined, solver.StatusTimeLimit, solver.StatusFailed,
	} {
		require.False(t, s.Usable(), s)
	}
}
