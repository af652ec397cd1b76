package driver

import "github.com/sguazt/fog-vmalloc-sub000/placement"

// allocState carries the previous slot's FN power states and VM
// allocations forward into the next slot's placement.Input, anchoring
// switching and utilization costs to what was actually running.
type allocState struct {
	powerStates []bool
	allocations []map[int]placement.VMAlloc
}

func newAllocState(numFN int) *allocState {
	s := &allocState{
		powerStates: make([]bool, numFN),
		allocations: make([]map[int]placement.VMAlloc, numFN),
	}
	for i := range s.allocations {
		s.allocations[i] = map[int]placement.VMAlloc{}
	}
	return s
}

func (s *allocState) apply(sol placement.Solution) {
	s.powerStates = sol.FNPowerStates
	s.allocations = sol.FNVMAllocations
}
