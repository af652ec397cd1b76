package placement

// buildGreedy constructs one feasible placement by walking services in the
// given order and bin-packing each service's minimum VM requirement onto
// FNs, preferring FNs that are already powered on. allowed, when non-nil,
// restricts placement to that set of FN ids (SolveWithFixedFNs).
//
// Each service is assigned at most one VM category (BestVMCategory), per
// the single-v rule of optimal_solver.hpp's per-service allocation
// constraint: a service never draws VMs of two categories at once. A
// service's placement is committed only when it does not lower the
// objective relative to leaving the service unserved and paying its
// penalty instead (optimal_solver.hpp:743,829 maximizes revenue-cost, so a
// construction that always serves whatever fits is not a stand-in for
// that maximization); FNs left with no allocation after the pass are
// candidates for switch-off under the same comparison.
func buildGreedy(order []int, in Input, allowed map[int]bool) Solution {
	numFN := len(in.FNCategories)

	cpuUsed := make([]float64, numFN)
	powerOn := make([]bool, numFN)
	copy(powerOn, in.FNPowerStates)
	allocs := make([]map[int]VMAlloc, numFN)
	for fn := range allocs {
		allocs[fn] = map[int]VMAlloc{}
	}

	var revenue, allocCost float64

	for _, svc := range order {
		svcCat := in.SvcCategories[svc]
		vmCat, need := BestVMCategory(svcCat, in)
		if vmCat < 0 || need <= 0 {
			continue
		}

		cpuBefore := append([]float64(nil), cpuUsed...)
		powerBefore := append([]bool(nil), powerOn...)
		allocsBefore := snapshotAllocs(allocs)
		allocCostBefore := allocCost
		facBefore := facilityCost(cpuUsed, powerOn, in)

		placed := placeVMs(svc, vmCat, need, in, allowed, cpuUsed, powerOn, allocs, &allocCost)

		facAfter := facilityCost(cpuUsed, powerOn, in)
		deltaCost := (allocCost - allocCostBefore) + (facAfter - facBefore)
		revenueGain := in.DeltaT * in.SvcRevenue[svcCat] * float64(placed)

		var penalty float64
		if placed < need {
			penalty = in.DeltaT * in.SvcPenalty[svcCat]
		}

		serveProfit := revenueGain - deltaCost - penalty
		skipProfit := -in.DeltaT * in.SvcPenalty[svcCat]

		if serveProfit >= skipProfit {
			revenue += revenueGain
			allocCost += penalty
		} else {
			copy(cpuUsed, cpuBefore)
			copy(powerOn, powerBefore)
			restoreAllocs(allocs, allocsBefore)
			allocCost = allocCostBefore + in.DeltaT*in.SvcPenalty[svcCat]
		}
	}

	// An FN left with no allocation may still carry its previous-slot
	// power-on state; switch it off when doing so beats paying for idle
	// power (mirrors the x_i decision variable choosing 0 when no VMs need
	// it).
	for fn := 0; fn < numFN; fn++ {
		if !powerOn[fn] || len(allocs[fn]) > 0 {
			continue
		}
		fnCat := in.FNCategories[fn]
		stayOnCost := in.FNCatMinPowers[fnCat] * in.ElectricityCost * in.DeltaT
		switchOffCost := 0.0
		if in.FNPowerStates[fn] {
			switchOffCost = in.FNCatAsleepCost[fnCat]
		}
		if switchOffCost < stayOnCost {
			powerOn[fn] = false
		}
	}

	cost := allocCost + facilityCost(cpuUsed, powerOn, in)
	profit := revenue - cost

	return Solution{
		Solved:           true,
		ObjectiveValue:   profit,
		Profit:           profit,
		Revenue:          revenue,
		Cost:             cost,
		FNVMAllocations:  allocs,
		FNPowerStates:    powerOn,
		FNCPUAllocations: cpuUsed,
	}
}

// facilityCost prices the energy and switching cost of the given FN state,
// mirroring optimal_solver.hpp's cost_expr energy and switching terms
// (without the allocation term, which placeVMs prices incrementally).
func facilityCost(cpuUsed []float64, powerOn []bool, in Input) float64 {
	var cost float64
	for fn := range cpuUsed {
		fnCat := in.FNCategories[fn]
		if powerOn[fn] != in.FNPowerStates[fn] {
			if powerOn[fn] {
				cost += in.FNCatAwakeCost[fnCat]
			} else {
				cost += in.FNCatAsleepCost[fnCat]
			}
		}
		if powerOn[fn] {
			power := in.FNCatMinPowers[fnCat] + (in.FNCatMaxPowers[fnCat]-in.FNCatMinPowers[fnCat])*cpuUsed[fn]
			cost += power * in.ElectricityCost * in.DeltaT
		}
	}
	return cost
}

func snapshotAllocs(allocs []map[int]VMAlloc) []map[int]VMAlloc {
	snap := make([]map[int]VMAlloc, len(allocs))
	for fn, m := range allocs {
		cp := make(map[int]VMAlloc, len(m))
		for svc, a := range m {
			cp[svc] = a
		}
		snap[fn] = cp
	}
	return snap
}

func restoreAllocs(allocs, snap []map[int]VMAlloc) {
	for fn := range allocs {
		for svc := range allocs[fn] {
			delete(allocs[fn], svc)
		}
		for svc, a := range snap[fn] {
			allocs[fn][svc] = a
		}
	}
}

// placeVMs greedily assigns up to need VMs of vmCat for svc across FNs,
// returning the number actually placed. It prefers FNs already powered on
// and with the most remaining capacity.
func placeVMs(svc, vmCat, need int, in Input, allowed map[int]bool, cpuUsed []float64, powerOn []bool, allocs []map[int]VMAlloc, cost *float64) int {
	placed := 0
	for placed < need {
		fn := bestFN(vmCat, in, allowed, cpuUsed, powerOn)
		if fn < 0 {
			break
		}
		fnCat := in.FNCategories[fn]
		share := in.VMCatFNCatCPU[vmCat][fnCat]
		if cpuUsed[fn]+share > 1.0+1e-9 {
			break
		}
		cpuUsed[fn] += share
		powerOn[fn] = true

		existing, had := allocs[fn][svc]
		prevCount := 0
		if had && existing.VMCategory == vmCat {
			prevCount = existing.Count
		}
		newCount := prevCount + 1
		allocs[fn][svc] = VMAlloc{VMCategory: vmCat, Count: newCount}

		if newCount > priorCount(in, fn, svc, vmCat) {
			*cost += in.VMCatAllocCost[vmCat]
		}
		placed++
	}
	return placed
}

// priorCount returns how many VMs of vmCat were already placed for svc on
// fn in the previous slot, so placeVMs only charges allocation cost for
// genuinely new VMs.
func priorCount(in Input, fn, svc, vmCat int) int {
	if fn >= len(in.FNVMAllocations) || in.FNVMAllocations[fn] == nil {
		return 0
	}
	if a, ok := in.FNVMAllocations[fn][svc]; ok && a.VMCategory == vmCat {
		return a.Count
	}
	return 0
}

// bestFN picks the eligible FN with the most remaining CPU headroom for
// vmCat, preferring already powered-on FNs over newly-woken ones.
func bestFN(vmCat int, in Input, allowed map[int]bool, cpuUsed []float64, powerOn []bool) int {
	best := -1
	bestScore := -1.0
	for fn := range in.FNCategories {
		if allowed != nil && !allowed[fn] {
			continue
		}
		fnCat := in.FNCategories[fn]
		share := in.VMCatFNCatCPU[vmCat][fnCat]
		if cpuUsed[fn]+share > 1.0+1e-9 {
			continue
		}
		headroom := 1.0 - cpuUsed[fn]
		score := headroom
		if powerOn[fn] {
			score += 10 // strong preference for reusing an already-on FN
		}
		if score > bestScore {
			bestScore = score
			best = fn
		}
	}
	return best
}

// BestVMCategory picks the single VM category a service of svcCat should
// draw all of its VMs from: the one minimizing total CPU footprint across
// FN categories, per the "single v" selection optimal_solver.hpp's
// per-service constraint implies and bahreini2017_mcapp_solver.hpp's
// matching heuristic approximates by picking one representative category
// per service. Returns (-1, 0) if the service needs no VMs at all.
func BestVMCategory(svcCat int, in Input) (int, int) {
	reqs := in.SvcCatVMCatMinVMs[svcCat]
	best := -1
	bestScore := 0.0
	for v, need := range reqs {
		if need <= 0 {
			continue
		}
		var totalCPU float64
		for _, share := range in.VMCatFNCatCPU[v] {
			totalCPU += share
		}
		score := totalCPU * float64(need)
		if best < 0 || score < bestScore {
			best = v
			bestScore = score
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, reqs[best]
}

// profitOrder returns service ids sorted by decreasing sum of revenue and
// penalty, a simple greedy priority used as the baseline ordering.
func profitOrder(in Input) []int {
	order := make([]int, len(in.SvcCategories))
	for i := range order {
		order[i] = i
	}
	score := func(svc int) float64 {
		cat := in.SvcCategories[svc]
		return in.SvcRevenue[cat] + in.SvcPenalty[cat]
	}
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && score(order[j-1]) < score(order[j]) {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
	return order
}
