// Package stats implements the CI mean estimator: an incremental
// mean/variance accumulator that decides the required replication count via
// the Student-t quantile and flags itself "done" or "unstable" once a target
// relative precision has (or cannot) be reached.
//
// Grounded line-for-line on check_precision_alt in
// original_source/c++/include/dcs/fog/confidence_intervals.hpp — the "alt"
// semantics; the original check_precision path is not carried over.
package stats

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat/distuv"
)

// Defaults mirrored from ci_mean_estimator's static defaults.
const (
	DefaultCILevel           = 0.95
	DefaultRelativePrecision = 0.04
	DefaultMinSampleSize     = 2
)

// DefaultMaxSampleSize is practically unbounded (the original used
// numeric_limits<size_t>::max()); int stays plenty large for any
// replication count a simulation run will ever reach.
const DefaultMaxSampleSize = math.MaxInt32

// MeanEstimator accumulates observations of a scalar outcome (e.g.
// per-replication profit) across replications and detects when enough
// samples have been collected to meet a target relative precision at a
// given confidence level.
type MeanEstimator struct {
	Name string

	ciLevel      float64
	targetRelPrc float64
	nMin         int
	nMax         int

	n        int
	mean     float64
	m2       float64 // sum of squared deviations from the running mean (Welford)
	nTarget  int
	detected bool
	aborted  bool
	firstRun bool
	unstable bool
	done     bool
}

// NewMeanEstimator constructs a MeanEstimator. Panics if minSampleSize < 2
// or minSampleSize > maxSampleSize, matching the original's constructor
// precondition (DCS_ASSERT).
func NewMeanEstimator(name string, ciLevel, relativePrecision float64, minSampleSize, maxSampleSize int) *MeanEstimator {
	if minSampleSize < 2 {
		panic("stats: min sample size must be >= 2")
	}
	if minSampleSize > maxSampleSize {
		panic("stats: min sample size must be <= max sample size")
	}
	return &MeanEstimator{
		Name:         name,
		ciLevel:      ciLevel,
		targetRelPrc: relativePrecision,
		nMin:         minSampleSize,
		nMax:         maxSampleSize,
		firstRun:     true,
	}
}

// NewDefaultMeanEstimator constructs a MeanEstimator with the usual
// defaults (confidence level 0.95, relative precision 0.04, min sample
// size 2, effectively unbounded max).
func NewDefaultMeanEstimator(name string) *MeanEstimator {
	return NewMeanEstimator(name, DefaultCILevel, DefaultRelativePrecision, DefaultMinSampleSize, DefaultMaxSampleSize)
}

// Size returns the number of observations collected so far.
func (e *MeanEstimator) Size() int { return e.n }

// TargetSize returns the currently detected required sample count.
func (e *MeanEstimator) TargetSize() int { return e.nTarget }

// Mean returns the running sample mean.
func (e *MeanEstimator) Mean() float64 { return e.mean }

// Variance returns the unbiased sample variance.
func (e *MeanEstimator) Variance() float64 {
	if e.n < 2 {
		return math.Inf(1)
	}
	return e.m2 / float64(e.n-1)
}

// StdDev returns the unbiased sample standard deviation.
func (e *MeanEstimator) StdDev() float64 {
	return math.Sqrt(e.Variance())
}

// HalfWidth returns the CI half-width t_{n-1,(1+ciLevel)/2} * sd/sqrt(n).
func (e *MeanEstimator) HalfWidth() float64 {
	if e.n <= 1 {
		return math.Inf(1)
	}
	t := studentsTQuantile(e.n-1, (1+e.ciLevel)/2)
	return t * (e.StdDev() / math.Sqrt(float64(e.n)))
}

// RelativePrecision returns HalfWidth()/|Mean()|, or +Inf when the mean is
// (numerically) zero or fewer than 2 samples have been collected.
func (e *MeanEstimator) RelativePrecision() float64 {
	if e.n > 1 && !isZero(e.mean) {
		return e.HalfWidth() / math.Abs(e.mean)
	}
	return math.Inf(1)
}

// Lower and Upper return the two-sided confidence interval bounds.
func (e *MeanEstimator) Lower() float64 { return e.mean - e.HalfWidth() }
func (e *MeanEstimator) Upper() float64 { return e.mean + e.HalfWidth() }

// Done reports whether this statistic has reached its target precision (or
// been declared terminally unstable — once true, Done never reverts).
func (e *MeanEstimator) Done() bool { return e.done }

// Unstable reports whether a re-detection raised the target sample size
// after the collected count had already reached the previously detected
// target. An unstable estimator is also Done.
func (e *MeanEstimator) Unstable() bool { return e.unstable }

// Aborted reports whether sample-size detection gave up because n reached
// nMax without detecting a target.
func (e *MeanEstimator) Aborted() bool { return e.aborted }

// Collect folds one observation into the running mean/variance and
// re-evaluates the stopping decision. No-op once the estimator has
// aborted.
func (e *MeanEstimator) Collect(x float64) {
	if e.aborted {
		return
	}

	e.n++
	delta := x - e.mean
	e.mean += delta / float64(e.n)
	delta2 := x - e.mean
	e.m2 += delta * delta2

	e.checkPrecision()
}

// Reset clears all accumulated state so the estimator can be reused (CI
// estimators are created once per simulation and normally accumulate
// across replications without resetting; Reset exists for test harnesses
// and re-runs).
func (e *MeanEstimator) Reset() {
	e.n = 0
	e.mean = 0
	e.m2 = 0
	e.nTarget = 0
	e.detected = false
	e.aborted = false
	e.firstRun = true
	e.unstable = false
	e.done = false
}

// checkPrecision implements check_precision_alt: detect (or re-detect) the
// required sample size via the Banks et al. procedure, and set done sticky
// once the currently collected n already meets the (re)detected target.
func (e *MeanEstimator) checkPrecision() {
	n := e.n

	if n < e.nMin {
		e.detected = false
		return
	}
	if n >= e.nMax {
		e.aborted = true
		return
	}
	if math.IsInf(e.targetRelPrc, 1) {
		e.nTarget = n
		e.detected = true
		e.done = true
		return
	}

	sd := e.StdDev()
	if sd < 0 || math.IsInf(sd, 0) {
		logrus.Warnf("stats: estimator %q has negative or infinite standard deviation; suppressing detection this step", e.Name)
		e.detected = false
		return
	}

	halfAlpha := (1 - e.ciLevel) / 2

	if e.firstRun {
		e.firstRun = false
		z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile(halfAlpha)
		n = int(sqr(z * sd / (e.targetRelPrc * e.mean)))
		if n < e.nMin {
			n = e.nMin
		}
	}

	var nWant float64
	for {
		t := studentsTQuantile(n-1, halfAlpha)
		nWant = sqr(t * sd / (e.targetRelPrc * e.mean))
		if float64(n) < nWant {
			n++
		}
		if !(float64(n) < nWant && n < e.nMax) {
			break
		}
	}

	if n <= e.nMax {
		if n <= e.n {
			e.done = true
		} else if e.detected && !e.done && e.n >= e.nTarget {
			e.unstable = true
			e.done = true
		}
		e.nTarget = n
		e.detected = true
	} else {
		e.nTarget = e.nMax
		e.detected = false
		e.aborted = true
	}
}

func sqr(x float64) float64 { return x * x }

func isZero(x float64) bool { return math.Abs(x) < 1e-12 }

// studentsTQuantile mirrors boost::math::quantile(students_t_distribution,
// p) using gonum's Student's-t, whose parameterization requires a location
// (Mu=0) and scale (Sigma=1) alongside the degrees of freedom (Nu).
func studentsTQuantile(dof int, p float64) float64 {
	if dof < 1 {
		dof = 1
	}
	return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(dof)}.Quantile(p)
}
