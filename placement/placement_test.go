package placement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() Input {
	return Input{
		FNCategories:    []int{0, 0},
		FNPowerStates:   []bool{false, false},
		FNVMAllocations: []map[int]VMAlloc{{}, {}},
		FNCatMinPowers:  []float64{50},
		FNCatMaxPowers:  []float64{150},
		VMCatFNCatCPU:   [][]float64{{0.5}},
		VMCatAllocCost:  []float64{1.0},
		SvcCategories:   []int{0, 0},
		SvcCatVMCatMinVMs: [][]int{
			{1},
		},
		SvcRevenue:       []float64{10},
		SvcPenalty:       []float64{5},
		ElectricityCost:  0.1,
		FNCatAsleepCost:  []float64{0.5},
		FNCatAwakeCost:   []float64{0.5},
		DeltaT:           1,
		TimeLimitSeconds: 0.2,
	}
}

func TestMIPSolver_PlacesVMsAndPowersOnFNs(t *testing.T) {
	s := &MIPSolver{}
	sol, err := s.Solve(sampleInput())
	require.NoError(t, err)

	assert.True(t, sol.Solved)
	assert.Empty(t, CheckSolution(sol, sampleInput()))
	poweredOn := 0
	for _, on := range sol.FNPowerStates {
		if on {
			poweredOn++
		}
	}
	assert.Equal(t, 1, poweredOn, "two services each need one VM, one FN has capacity for both")
}

func TestMIPSolver_SolveWithFixedFNsRestrictsPlacement(t *testing.T) {
	s := &MIPSolver{}
	in := sampleInput()
	sol, err := s.SolveWithFixedFNs([]int{1}, in)
	require.NoError(t, err)

	assert.False(t, sol.FNPowerStates[0], "FN 0 excluded from the fixed set must stay untouched")
}

func TestHungarianSolver_NeverReportsOptimal(t *testing.T) {
	s := &HungarianSolver{}
	sol, err := s.Solve(sampleInput())
	require.NoError(t, err)
	assert.False(t, sol.Optimal)
	assert.True(t, sol.Solved)
}

func TestHungarianAssign_MinimizesTotalCost(t *testing.T) {
	cost := [][]float64{
		{4, 1, 3},
		{2, 0, 5},
		{3, 2, 2},
	}
	rowToCol := hungarianAssign(cost)
	total := 0.0
	seen := map[int]bool{}
	for i, j := range rowToCol {
		require.False(t, seen[j], "assignment must be one-to-one")
		seen[j] = true
		total += cost[i][j]
	}
	assert.Equal(t, 5.0, total) // 1 + 2 + 2
}

func TestNew_UnknownPolicy(t *testing.T) {
	_, err := New("bogus")
	assert.Error(t, err)
}

func TestNew_DispatchesByPolicy(t *testing.T) {
	s1, err := New("optimal")
	require.NoError(t, err)
	_, ok := s1.(*MIPSolver)
	assert.True(t, ok)

	s2, err := New("bahreini2017_match")
	require.NoError(t, err)
	_, ok = s2.(*HungarianSolver)
	assert.True(t, ok)
}

func TestCheckSolution_FlagsOverCommittedCPU(t *testing.T) {
	sol := Solution{
		FNCPUAllocations: []float64{1.5},
		FNPowerStates:    []bool{true},
		FNVMAllocations:  []map[int]VMAlloc{{}},
	}
	problems := CheckSolution(sol, Input{})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "exceeds 1")
}

func TestCheckSolution_FlagsVMsOnPoweredOffFN(t *testing.T) {
	sol := Solution{
		FNCPUAllocations: []float64{0.2},
		FNPowerStates:    []bool{false},
		FNVMAllocations:  []map[int]VMAlloc{{0: {VMCategory: 0, Count: 1}}},
	}
	problems := CheckSolution(sol, Input{})
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "powered-off")
}

func TestCheckSolution_FlagsServiceSpanningTwoVMCategories(t *testing.T) {
	in := Input{
		SvcCategories:     []int{0},
		SvcCatVMCatMinVMs: [][]int{{2, 3}},
	}
	sol := Solution{
		FNCPUAllocations: []float64{1.0, 1.0},
		FNPowerStates:    []bool{true, true},
		FNVMAllocations: []map[int]VMAlloc{
			{0: {VMCategory: 0, Count: 2}},
			{0: {VMCategory: 1, Count: 1}},
		},
	}
	problems := CheckSolution(sol, in)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "more than one category")
}

func TestCheckSolution_FlagsOverAllocationBeyondRequirement(t *testing.T) {
	in := Input{
		SvcCategories:     []int{0},
		SvcCatVMCatMinVMs: [][]int{{2}},
	}
	sol := Solution{
		FNCPUAllocations: []float64{1.0},
		FNPowerStates:    []bool{true},
		FNVMAllocations: []map[int]VMAlloc{
			{0: {VMCategory: 0, Count: 5}},
		},
	}
	problems := CheckSolution(sol, in)
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0], "over-allocated")
}

// scenarioS1Input mirrors spec §8 scenario S1: a single FN category, a
// single service category needing 2 VMs to meet its response-time bound,
// no switching or reallocation costs.
func scenarioS1Input(electricityCost float64) Input {
	return Input{
		FNCategories:      []int{0},
		FNPowerStates:     []bool{false},
		FNVMAllocations:   []map[int]VMAlloc{{}},
		FNCatMinPowers:    []float64{10},
		FNCatMaxPowers:    []float64{100},
		VMCatFNCatCPU:     [][]float64{{0.5}},
		VMCatAllocCost:    []float64{0},
		SvcCategories:     []int{0},
		SvcCatVMCatMinVMs: [][]int{{2}},
		SvcRevenue:        []float64{10},
		SvcPenalty:        []float64{100},
		ElectricityCost:   electricityCost,
		FNCatAsleepCost:   []float64{0},
		FNCatAwakeCost:    []float64{0},
		DeltaT:            1,
		TimeLimitSeconds:  0.2,
	}
}

func TestMIPSolver_ScenarioS1_ServesBothVMsForProfitTen(t *testing.T) {
	s := &MIPSolver{}
	in := scenarioS1Input(0.1)
	sol, err := s.Solve(in)
	require.NoError(t, err)

	assert.Empty(t, CheckSolution(sol, in))
	assert.InDelta(t, 20.0, sol.Revenue, 1e-9)
	assert.InDelta(t, 10.0, sol.Cost, 1e-9)
	assert.InDelta(t, 10.0, sol.Profit, 1e-9)
	assert.True(t, sol.FNPowerStates[0])
}

// TestMIPSolver_ScenarioS2_StillServesWhenLossIsSmallerThanThePenalty
// mirrors spec §8 scenario S2 (same as S1 but with electricity cost
// raised to 1.0, so serving the service now runs at a loss). The distilled
// spec narrative for S2 states the optimizer leaves the service unserved
// for a profit of -100, but optimal_solver.hpp:829 maximizes
// deltat*(revenue_expr-cost_expr) outright: serving at a loss of 20-100=
// -80 still beats paying the full penalty alone (-100), so a genuine
// profit-maximizer serves. See DESIGN.md for this resolution.
func TestMIPSolver_ScenarioS2_StillServesWhenLossIsSmallerThanThePenalty(t *testing.T) {
	s := &MIPSolver{}
	in := scenarioS1Input(1.0)
	sol, err := s.Solve(in)
	require.NoError(t, err)

	assert.Empty(t, CheckSolution(sol, in))
	assert.InDelta(t, 20.0, sol.Revenue, 1e-9)
	assert.InDelta(t, 100.0, sol.Cost, 1e-9)
	assert.InDelta(t, -80.0, sol.Profit, 1e-9)
	assert.True(t, sol.FNPowerStates[0], "serving beats the flat penalty even at a loss")
}

func TestMIPSolver_LeavesServiceUnservedWhenServingLossExceedsThePenalty(t *testing.T) {
	in := Input{
		FNCategories:      []int{0},
		FNPowerStates:     []bool{false},
		FNVMAllocations:   []map[int]VMAlloc{{}},
		FNCatMinPowers:    []float64{10},
		FNCatMaxPowers:    []float64{1000},
		VMCatFNCatCPU:     [][]float64{{1.0}},
		VMCatAllocCost:    []float64{0},
		SvcCategories:     []int{0},
		SvcCatVMCatMinVMs: [][]int{{1}},
		SvcRevenue:        []float64{1},
		SvcPenalty:        []float64{5},
		ElectricityCost:   1.0,
		FNCatAsleepCost:   []float64{0},
		FNCatAwakeCost:    []float64{0},
		DeltaT:            1,
		TimeLimitSeconds:  0.2,
	}
	s := &MIPSolver{}
	sol, err := s.Solve(in)
	require.NoError(t, err)

	assert.Empty(t, CheckSolution(sol, in))
	assert.False(t, sol.FNPowerStates[0], "the FN must stay off when serving the one VM would lose far more than the penalty")
	assert.InDelta(t, 0.0, sol.Revenue, 1e-9)
	assert.InDelta(t, -5.0, sol.Profit, 1e-9)
}

func TestBuildGreedy_SwitchesOffAPreviouslyOnIdleFN(t *testing.T) {
	in := Input{
		FNCategories:      []int{0},
		FNPowerStates:     []bool{true},
		FNVMAllocations:   []map[int]VMAlloc{{}},
		FNCatMinPowers:    []float64{50},
		FNCatMaxPowers:    []float64{50},
		VMCatFNCatCPU:     [][]float64{{0.5}},
		VMCatAllocCost:    []float64{0},
		SvcCategories:     nil,
		SvcCatVMCatMinVMs: nil,
		ElectricityCost:   10,
		FNCatAsleepCost:   []float64{1},
		FNCatAwakeCost:    []float64{1},
		DeltaT:            1,
	}
	sol := buildGreedy(nil, in, nil)

	assert.False(t, sol.FNPowerStates[0], "idle FN should switch off: a_off (1) beats staying on (500)")
	assert.InDelta(t, 1.0, sol.Cost, 1e-9)
}

func TestBuildGreedy_RestrictsEachServiceToOneVMCategory(t *testing.T) {
	in := Input{
		FNCategories:      []int{0},
		FNPowerStates:     []bool{false},
		FNVMAllocations:   []map[int]VMAlloc{{}},
		FNCatMinPowers:    []float64{10},
		FNCatMaxPowers:    []float64{100},
		VMCatFNCatCPU:     [][]float64{{0.1}, {0.9}},
		VMCatAllocCost:    []float64{0, 0},
		SvcCategories:     []int{0},
		SvcCatVMCatMinVMs: [][]int{{2, 3}}, // cheaper to host: vmCat0 (0.1*2=0.2) vs vmCat1 (0.9*3=2.7)
		SvcRevenue:        []float64{10},
		SvcPenalty:        []float64{1},
		ElectricityCost:   0.01,
		FNCatAsleepCost:   []float64{0},
		FNCatAwakeCost:    []float64{0},
		DeltaT:            1,
	}
	sol := buildGreedy(profitOrder(in), in, nil)

	assert.Empty(t, CheckSolution(sol, in))
	require.Contains(t, sol.FNVMAllocations[0], 0)
	alloc := sol.FNVMAllocations[0][0]
	assert.Equal(t, 0, alloc.VMCategory, "the cheaper-to-host VM category must be the only one used")
	assert.Equal(t, 2, alloc.Count)
}

func TestMIPSolver_ObjectiveMatchesRevenueMinusCost(t *testing.T) {
	in := Input{
		FNCategories:    []int{0, 0, 1},
		FNPowerStates:   []bool{false, true, false},
		FNVMAllocations: []map[int]VMAlloc{{}, {1: {VMCategory: 0, Count: 1}}, {}},
		FNCatMinPowers:  []float64{10, 20},
		FNCatMaxPowers:  []float64{100, 200},
		VMCatFNCatCPU:   [][]float64{{0.25, 0.5}, {0.5, 0.25}},
		VMCatAllocCost:  []float64{1, 2},
		SvcCategories:   []int{0, 1, 0},
		SvcCatVMCatMinVMs: [][]int{
			{2, 0},
			{0, 1},
		},
		SvcRevenue:       []float64{10, 20},
		SvcPenalty:       []float64{5, 8},
		ElectricityCost:  0.2,
		FNCatAsleepCost:  []float64{0.3, 0.4},
		FNCatAwakeCost:   []float64{0.5, 0.6},
		DeltaT:           0.5,
		TimeLimitSeconds: 0.2,
	}
	s := &MIPSolver{}
	sol, err := s.Solve(in)
	require.NoError(t, err)

	assert.Empty(t, CheckSolution(sol, in))
	// mirrors the DCS_ASSERT consistency check in optimal_solver.hpp: the
	// objective value must equal revenue minus cost.
	assert.InDelta(t, sol.Revenue-sol.Cost, sol.Profit, 1e-9)
	assert.InDelta(t, sol.Profit, sol.ObjectiveValue, 1e-9)
}
