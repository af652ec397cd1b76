package placement

import (
	"math/rand"
	"time"
)

// MIPSolver searches for a profit-maximizing placement by exploring
// multiple service orderings within a wall-clock budget, keeping the best
// greedy construction found. It plays the role optimal_solver.hpp fills
// with a CPLEX MIP in the original; since the corpus carries no MIP/ILP
// library this is a bounded local search instead, and Optimal is only set
// when the search provably exhausted the ordering space before the time
// limit.
type MIPSolver struct{}

func (s *MIPSolver) Solve(in Input) (Solution, error) {
	return s.search(nil, in), nil
}

func (s *MIPSolver) SolveWithFixedFNs(fixedFNs []int, in Input) (Solution, error) {
	allowed := make(map[int]bool, len(fixedFNs))
	for _, fn := range fixedFNs {
		allowed[fn] = true
	}
	return s.search(allowed, in), nil
}

func (s *MIPSolver) search(allowed map[int]bool, in Input) Solution {
	limit := in.TimeLimitSeconds
	if limit <= 0 {
		limit = 1.0
	}
	deadline := time.Now().Add(time.Duration(limit * float64(time.Second)))

	base := profitOrder(in)
	best := buildGreedy(base, in, allowed)

	numSvc := len(in.SvcCategories)
	exhaustive := numSvc <= 7 // small enough to consider every permutation
	rng := rand.New(rand.NewSource(1))

	tried := 0
	total := factorialCapped(numSvc)
	perms := permutations(base)

	for {
		if time.Now().After(deadline) {
			break
		}
		var order []int
		if exhaustive && tried < len(perms) {
			order = perms[tried]
		} else if exhaustive {
			break
		} else {
			order = shuffled(base, rng)
		}
		tried++

		cand := buildGreedy(order, in, allowed)
		if cand.ObjectiveValue > best.ObjectiveValue {
			best = cand
		}

		if !exhaustive && tried >= 200 {
			break
		}
	}

	best.Optimal = exhaustive && tried >= total
	return best
}

func shuffled(base []int, rng *rand.Rand) []int {
	out := make([]int, len(base))
	copy(out, base)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// permutations returns every ordering of base; callers only invoke this
// when len(base) is small (guarded by the exhaustive flag).
func permutations(base []int) [][]int {
	var out [][]int
	items := make([]int, len(base))
	copy(items, base)
	var permute func(k int)
	permute = func(k int) {
		if k == len(items) {
			cp := make([]int, len(items))
			copy(cp, items)
			out = append(out, cp)
			return
		}
		for i := k; i < len(items); i++ {
			items[k], items[i] = items[i], items[k]
			permute(k + 1)
			items[k], items[i] = items[i], items[k]
		}
	}
	permute(0)
	return out
}

func factorialCapped(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
		if f > 1<<20 {
			return 1 << 20
		}
	}
	return f
}
