// Package placement implements the single-slot VM placement solvers:
// given a snapshot of fog-node and service state, decide how many VMs of
// each category to place on each fog node so as to maximize the
// fog provider's profit for the current interval.
//
// Grounded on the vm_allocation_t contract and base_vm_allocation_solver_t
// interface in
// original_source/c++/include/dcs/fog/vm_allocation/commons.hpp. The
// corpus carries no MIP/ILP solver library (the original used CPLEX), so
// MIPSolver is a bounded search over service orderings rather than a call
// into an external solver; HungarianSolver implements the Kuhn-Munkres
// assignment heuristic the original's bahreini2017_mcapp_solver.hpp
// approximates with a greedy matching.
package placement

import "fmt"

// VMAlloc is the number of VMs of one category assigned to one service on
// one fog node.
type VMAlloc struct {
	VMCategory int
	Count      int
}

// Solution mirrors vm_allocation_t<RealT>: the outcome of one single-slot
// placement solve.
type Solution struct {
	Solved         bool
	Optimal        bool
	ObjectiveValue float64
	Profit         float64
	Revenue        float64
	Cost           float64

	// FNVMAllocations[fn][svc] holds what is placed for that service on
	// that FN, keyed by service id.
	FNVMAllocations []map[int]VMAlloc
	FNPowerStates   []bool
	FNCPUAllocations []float64
}

// Input bundles everything a Solver needs to decide a single-slot
// placement, mirroring the parameter list of base_vm_allocation_solver_t.
type Input struct {
	FNCategories  []int // per FN, its FN category index
	FNPowerStates []bool
	// FNVMAllocations is the allocation carried over from the previous
	// slot (used to price VM reallocation/migration via AllocationCost).
	FNVMAllocations []map[int]VMAlloc

	FNCatMinPowers []float64
	FNCatMaxPowers []float64

	// VMCatFNCatCPU[v][f] is the CPU share one VM of category v consumes
	// on one FN of category f.
	VMCatFNCatCPU  [][]float64
	VMCatAllocCost []float64

	SvcCategories []int // per service, its service category index
	// SvcCatVMCatMinVMs[s][v] is the minimum number of VMs of category v
	// a service of category s needs to meet its response-time bound.
	SvcCatVMCatMinVMs [][]int

	SvcRevenue []float64
	SvcPenalty []float64

	ElectricityCost float64
	FNCatAsleepCost []float64
	FNCatAwakeCost  []float64

	DeltaT float64

	// TimeLimitSeconds bounds MIPSolver's search. RelTol is carried along
	// but neither solver reads it.
	TimeLimitSeconds float64
	RelTol           float64
}

// Solver is the shared single-slot placement strategy contract.
type Solver interface {
	Solve(in Input) (Solution, error)
	// SolveWithFixedFNs restricts placement to the given FN ids (used by
	// the allocate-with-fixed-FNs real-workload mode).
	SolveWithFixedFNs(fixedFNs []int, in Input) (Solution, error)
}

// New constructs the Solver named by policy.
func New(policy string) (Solver, error) {
	switch policy {
	case "optimal", "":
		return &MIPSolver{}, nil
	case "bahreini2017_match", "bahreini2017_match_alt":
		return &HungarianSolver{}, nil
	default:
		return nil, fmt.Errorf("placement: unknown allocation policy %q", policy)
	}
}

// AbortOnAnomaly, when true, makes CheckSolution's caller treat a failed
// postcondition check as fatal rather than a logged warning.
var AbortOnAnomaly = false

// CheckSolution verifies the postcondition invariants a Solution must
// satisfy against the Input it was solved from: no FN's CPU allocation
// exceeds 1 (I2), VMs are never placed on a powered-off FN (I3), a service
// never draws VMs of more than one category across all FNs at once (I1),
// and no service's total VM count for a category exceeds the minimum
// requirement that drove the solve (I4), plus non-negative VM counts.
func CheckSolution(s Solution, in Input) []string {
	var problems []string

	for fn, share := range s.FNCPUAllocations {
		if share > 1.0+1e-9 {
			problems = append(problems, fmt.Sprintf("FN %d CPU share %.6f exceeds 1", fn, share))
		}
	}

	svcVMCat := map[int]int{}
	svcVMTotal := map[int]int{}
	for fn, allocs := range s.FNVMAllocations {
		if len(allocs) > 0 && (fn >= len(s.FNPowerStates) || !s.FNPowerStates[fn]) {
			problems = append(problems, fmt.Sprintf("VMs assigned to powered-off FN %d", fn))
		}
		for svc, a := range allocs {
			if a.Count < 0 {
				problems = append(problems, fmt.Sprintf("negative VM count for svc %d on FN %d", svc, fn))
			}
			prevCat, seen := svcVMCat[svc]
			if seen && prevCat != a.VMCategory {
				problems = append(problems, fmt.Sprintf("svc %d draws VMs of more than one category (%d and %d)", svc, prevCat, a.VMCategory))
				continue
			}
			svcVMCat[svc] = a.VMCategory
			svcVMTotal[svc] += a.Count
		}
	}

	for svc, total := range svcVMTotal {
		if svc >= len(in.SvcCategories) {
			continue
		}
		svcCat := in.SvcCategories[svc]
		vmCat := svcVMCat[svc]
		if svcCat >= len(in.SvcCatVMCatMinVMs) || vmCat >= len(in.SvcCatVMCatMinVMs[svcCat]) {
			continue
		}
		if maxVMs := in.SvcCatVMCatMinVMs[svcCat][vmCat]; total > maxVMs {
			problems = append(problems, fmt.Sprintf("svc %d over-allocated: %d VMs of category %d exceeds requirement %d", svc, total, vmCat, maxVMs))
		}
	}

	return problems
}
