package placement

// HungarianSolver approximates the matching-based heuristic of Bahreini et
// al. (bahreini2017_mcapp_solver.hpp in the original): it matches each
// service to its cheapest-hosting FN via Kuhn-Munkres, uses that matching
// to prioritize which services get bin-packed first, then reuses the same
// greedy bin-packer as MIPSolver. Never reports Optimal.
type HungarianSolver struct{}

func (s *HungarianSolver) Solve(in Input) (Solution, error) {
	return s.solve(nil, in), nil
}

func (s *HungarianSolver) SolveWithFixedFNs(fixedFNs []int, in Input) (Solution, error) {
	allowed := make(map[int]bool, len(fixedFNs))
	for _, fn := range fixedFNs {
		allowed[fn] = true
	}
	return s.solve(allowed, in), nil
}

func (s *HungarianSolver) solve(allowed map[int]bool, in Input) Solution {
	order := matchOrder(allowed, in)
	sol := buildGreedy(order, in, allowed)
	sol.Optimal = false
	return sol
}

// matchOrder runs Kuhn-Munkres on a services x FNs cost matrix (cost of
// hosting one representative VM of the service's cheapest required VM
// category on that FN) and returns service ids ordered by ascending match
// cost, i.e. the services the matching judged cheapest to place first.
func matchOrder(allowed map[int]bool, in Input) []int {
	numSvc := len(in.SvcCategories)
	numFN := len(in.FNCategories)
	if numSvc == 0 || numFN == 0 {
		return profitOrder(in)
	}

	n := numSvc
	if numFN > n {
		n = numFN
	}

	const unreachable = 1e9
	cost := make([][]float64, n)
	for i := range cost {
		cost[i] = make([]float64, n)
		for j := range cost[i] {
			cost[i][j] = unreachable
		}
	}

	for svc := 0; svc < numSvc; svc++ {
		svcCat := in.SvcCategories[svc]
		vmCat, _ := BestVMCategory(svcCat, in)
		if vmCat < 0 {
			continue
		}
		for fn := 0; fn < numFN; fn++ {
			if allowed != nil && !allowed[fn] {
				continue
			}
			fnCat := in.FNCategories[fn]
			share := in.VMCatFNCatCPU[vmCat][fnCat]
			if share > 1.0 {
				continue
			}
			cost[svc][fn] = share*in.VMCatAllocCost[vmCat] - in.SvcRevenue[svcCat]
		}
	}

	rowToCol := hungarianAssign(cost)

	type scored struct {
		svc  int
		cost float64
	}
	scores := make([]scored, numSvc)
	for svc := 0; svc < numSvc; svc++ {
		c := unreachable
		if rowToCol[svc] < n {
			c = cost[svc][rowToCol[svc]]
		}
		scores[svc] = scored{svc: svc, cost: c}
	}
	for i := 1; i < len(scores); i++ {
		j := i
		for j > 0 && scores[j-1].cost > scores[j].cost {
			scores[j-1], scores[j] = scores[j], scores[j-1]
			j--
		}
	}

	order := make([]int, numSvc)
	for i, s := range scores {
		order[i] = s.svc
	}
	return order
}
