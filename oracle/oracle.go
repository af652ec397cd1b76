// Package oracle implements the multi-slot placement oracle: it
// chains the single-slot placement.Solver across a horizon of time slots,
// feeding each slot's resulting power states and VM allocations forward as
// the next slot's carryover so that switching and reallocation costs are
// priced across the whole horizon rather than slot-by-slot in isolation.
// Each slot is solved in turn; a slot's placement takes no account of the
// demand of later slots.
//
// Grounded on multislot_vm_allocation_t and base_multislot_vm_allocation_solver_t
// in original_source/c++/include/dcs/fog/vm_allocation/commons.hpp: slot 0
// is anchored on the caller-supplied previous allocation/power state,
// exactly as the single-slot solver treats its own carryover.
package oracle

import "github.com/sguazt/fog-vmalloc-sub000/placement"

// SlotDemand is the only thing that changes slot-to-slot: each service
// category's minimum VM requirement for that slot (service arrival rates,
// and therefore QoS-driven VM demand, vary over the horizon).
type SlotDemand struct {
	SvcCatVMCatMinVMs [][]int
}

// Solution is the multi-slot analogue of placement.Solution.
type Solution struct {
	Solved         bool
	Optimal        bool
	ObjectiveValue float64
	Profit         float64
	Revenue        float64
	Cost           float64
	Slots          []placement.Solution
}

// Solver chains a single-slot placement.Solver across a horizon.
type Solver struct {
	Base placement.Solver
}

func NewSolver(base placement.Solver) *Solver {
	return &Solver{Base: base}
}

// Solve runs base once per slot in demand, anchoring slot 0 on base.FNPowerStates/
// base.FNVMAllocations (the run's previous allocation) and every later
// slot on the immediately preceding slot's resulting state.
func (o *Solver) Solve(base placement.Input, demand []SlotDemand) (Solution, error) {
	result := Solution{Solved: true, Optimal: true}

	in := base
	for t, slot := range demand {
		in.SvcCatVMCatMinVMs = slot.SvcCatVMCatMinVMs

		sol, err := o.Base.Solve(in)
		if err != nil {
			return Solution{}, err
		}
		if !sol.Solved {
			result.Solved = false
		}
		if !sol.Optimal {
			result.Optimal = false
		}

		result.Slots = append(result.Slots, sol)
		result.Revenue += sol.Revenue
		result.Cost += sol.Cost
		result.Profit += sol.Profit

		in.FNPowerStates = sol.FNPowerStates
		in.FNVMAllocations = sol.FNVMAllocations

		_ = t
	}

	result.ObjectiveValue = result.Profit
	return result, nil
}
