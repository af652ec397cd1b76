// Package queueing implements the M/M/c performance model: given an
// arrival rate, service rate, response-time bound and tolerance, it finds
// the minimum number of servers (VMs) needed to meet the bound, and the
// mean response time for a given server count.
//
// Grounded on original_source/c++/include/dcs/fog/service_performance/
// mmc_service_performance_model.hpp (MMc_num_servers / MMc_avg_response_time
// / MMc_pi0 / MMc_Pm).
package queueing

import (
	"math"

	"github.com/sirupsen/logrus"
)

// Infeasible is returned by MinNumVMs when no finite server count satisfies
// the response-time bound (e.g. the bound is tighter than the raw service
// time, or the search overflows before stabilizing).
const Infeasible = -1

// epsFloat mirrors the original's essentially_equal/essentially_greater_equal
// float comparisons with a small fixed epsilon for rho/lambda checks.
const epsFloat = 1e-9

// MinNumVMs returns the smallest server count c such that the queue is
// stable (rho = lambda/(c*mu) < 1) and AvgResponseTime(lambda, mu, c) <=
// D*(1+tol). Returns (0, true) when lambda is (numerically) zero. Returns
// (Infeasible, false) when D is tighter than the raw service time 1/mu, or
// when the search can't find a feasible server count.
func MinNumVMs(lambda, mu, D, tol float64) (int, bool) {
	if !isFinite(lambda) || !isFinite(mu) || !isFinite(D) || !isFinite(tol) || mu <= 0 {
		logrus.Warn("queueing: non-finite or non-positive M/M/c input; treating as infeasible")
		return Infeasible, false
	}

	if essentiallyEqual(lambda, 0) {
		return 0, true
	}

	if D < 1/mu {
		return Infeasible, false
	}

	const maxServers = 1 << 20 // defensive bound against runaway scans
	for c := 1; c <= maxServers; c++ {
		rho := lambda / (float64(c) * mu)
		if essentiallyGreaterEqual(rho, 1.0) {
			continue // unstable at this c, keep scanning
		}

		rt := AvgResponseTime(lambda, mu, c)
		if !isFinite(rt) {
			continue
		}
		if essentiallyLessEqualTol(rt, D, tol) {
			return c, true
		}
	}

	logrus.Warn("queueing: M/M/c search exhausted without finding a feasible server count")
	return Infeasible, false
}

// AvgResponseTime computes the mean response time T(c) of an M/M/c queue
// with the given arrival rate, per-server service rate and server count c.
// Returns 0 when lambda is (numerically) zero, +Inf when the queue is
// unstable at this c.
func AvgResponseTime(lambda, mu float64, c int) float64 {
	if essentiallyEqual(lambda, 0) {
		return 0
	}
	if c <= 0 {
		return math.Inf(1)
	}

	rho := lambda / (float64(c) * mu)
	if essentiallyGreaterEqual(rho, 1.0) {
		logrus.Warnf("queueing: system not stable (lambda=%v, mu=%v, c=%d)", lambda, mu, c)
		return math.Inf(1)
	}

	if c == 1 {
		return (1.0 / mu) / (1.0 - rho)
	}

	pm := erlangCProbability(lambda, mu, c)
	avgK := float64(c)*rho + (rho/(1-rho))*pm
	return avgK / lambda
}

// erlangCProbability computes the Erlang-C probability that an arriving
// request must queue, equivalently MMc_Pm in the original source.
func erlangCProbability(lambda, mu float64, c int) float64 {
	rho := lambda / (float64(c) * mu)
	pi0 := erlangC0Probability(lambda, mu, c)
	return (math.Pow(float64(c)*rho, float64(c)) / (factorial(c) * (1 - rho))) * pi0
}

// erlangC0Probability computes the probability of an empty system (pi0,
// MMc_pi0 in the original source).
func erlangC0Probability(lambda, mu float64, c int) float64 {
	rho := lambda / (float64(c) * mu)
	part1 := (math.Pow(float64(c)*rho, float64(c)) / factorial(c)) * (1.0 / (1.0 - rho))
	part2 := 0.0
	for k := 0; k < c; k++ {
		part2 += math.Pow(float64(c)*rho, float64(k)) / factorial(k)
	}
	return 1 / (part1 + part2)
}

// factorial computes n! directly. The result fits in a float64 only up to
// n = 170; for larger n it overflows to +Inf.
func factorial(n int) float64 {
	f := 1.0
	for n >= 2 {
		f *= float64(n)
		n--
	}
	return f
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func essentiallyEqual(a, b float64) bool {
	return math.Abs(a-b) <= epsFloat*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func essentiallyGreaterEqual(a, b float64) bool {
	return a > b || essentiallyEqual(a, b)
}

func essentiallyLessEqualTol(a, b, tol float64) bool {
	bound := b * (1 + tol)
	return a < bound || essentiallyEqual(a, bound)
}
