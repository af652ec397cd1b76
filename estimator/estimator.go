// Package estimator implements the pluggable arrival-rate estimators:
// stateful, single-threaded accumulators that turn a stream of observed
// per-slot arrival rates into a predicted rate for the next optimization
// interval.
package estimator

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

// Estimator is the capability set every arrival-rate estimator variant
// implements: collect an observation, produce a predicted rate, and reset
// state between replications.
type Estimator interface {
	// Collect folds one observed rate into the estimator's state.
	Collect(observed float64)
	// Estimate returns the current predicted rate.
	Estimate() float64
	// Reset clears accumulated state (called at the end of every
	// optimization interval).
	Reset()
}

// Kind names the estimator variant, as they appear in the
// svc.arrival_rate_estimation scenario key.
type Kind string

const (
	KindMax           Kind = "max"
	KindMRO           Kind = "mro"
	KindEWMA          Kind = "ewma"
	KindPerturbMax    Kind = "perturb-max"
	KindPerturbMRO    Kind = "perturb-mro"
	KindUniformMax    Kind = "unif-max"
	KindUniformMinMax Kind = "unif-min-max"
	KindBeta          Kind = "beta"
)

// DefaultEWMASmoothing is the default alpha for EWMA when no parameter is
// given.
const DefaultEWMASmoothing = 0.95

// New constructs an Estimator for the given kind, dispatching on the
// arrival_rate_estimation scenario enumeration. params carries the
// per-variant parameter list (svc.arrival_rate_estimation_params):
//
//	ewma:          [alpha]                      (default 0.95)
//	perturb-max:   [mu, sigma]                  (default 0, 1)
//	perturb-mro:   [mu, sigma]                  (default 0, 1)
//	beta:          [alpha1, alpha2, lower, upper] (default 1, 1, 0, 1)
//	max, mro, unif-max, unif-min-max: no parameters
//
// rng is the per-service RNG stream (see simrand.SubsystemService); it may
// be nil for the non-stochastic variants (max, mro, ewma).
func New(kind Kind, rng *rand.Rand, params []float64) (Estimator, error) {
	switch kind {
	case KindMax:
		return &Max{}, nil
	case KindMRO:
		return &MRO{}, nil
	case KindEWMA:
		alpha := DefaultEWMASmoothing
		if len(params) > 0 {
			alpha = params[0]
		}
		return &EWMA{alpha: alpha, first: true}, nil
	case KindPerturbMax:
		mu, sigma := paramOrDefault(params, 0, 0), paramOrDefault(params, 1, 1)
		return &PerturbedMax{Max: Max{}, rng: rng, noise: distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}}, nil
	case KindPerturbMRO:
		mu, sigma := paramOrDefault(params, 0, 0), paramOrDefault(params, 1, 1)
		return &PerturbedMRO{MRO: MRO{}, rng: rng, noise: distuv.Normal{Mu: mu, Sigma: sigma, Src: rng}}, nil
	case KindUniformMax:
		return &UniformMax{Max: Max{}, rng: rng}, nil
	case KindUniformMinMax:
		return &UniformMinMax{minRate: math.Inf(1), rng: rng}, nil
	case KindBeta:
		a1 := paramOrDefault(params, 0, 1)
		a2 := paramOrDefault(params, 1, 1)
		lower := paramOrDefault(params, 2, 0)
		upper := paramOrDefault(params, 3, 1)
		return &Beta{rng: rng, beta01: distuv.Beta{Alpha: a1, Beta: a2, Src: rng}, lower: lower, upper: upper}, nil
	default:
		return nil, fmt.Errorf("estimator: unknown kind %q", kind)
	}
}

func paramOrDefault(params []float64, idx int, def float64) float64 {
	if idx < len(params) {
		return params[idx]
	}
	return def
}

// --- MAX ---

// Max tracks the running maximum of collected rates.
type Max struct {
	maxRate float64
}

func (e *Max) Collect(observed float64) {
	if observed > e.maxRate {
		e.maxRate = observed
	}
}

func (e *Max) Estimate() float64 { return e.maxRate }
func (e *Max) Reset()            { e.maxRate = 0 }

// --- MRO (most-recently-observed) ---

// MRO returns the last collected rate as its estimate.
type MRO struct {
	last float64
}

func (e *MRO) Collect(observed float64) { e.last = observed }
func (e *MRO) Estimate() float64        { return e.last }
func (e *MRO) Reset()                   { e.last = 0 }

// --- EWMA ---

// EWMA is an exponentially-weighted moving average estimator:
// estimate_k = alpha*x_k + (1-alpha)*estimate_{k-1}; the first sample
// initializes the state directly.
type EWMA struct {
	alpha    float64
	estimate float64
	first    bool
}

func (e *EWMA) Collect(observed float64) {
	if e.first {
		e.estimate = observed
		e.first = false
		return
	}
	e.estimate = e.alpha*observed + (1-e.alpha)*e.estimate
}

func (e *EWMA) Estimate() float64 { return e.estimate }
func (e *EWMA) Reset() {
	e.estimate = 0
	e.first = true
}

// --- PERTURBED_MAX ---

// PerturbedMax returns max(0, MAX*(1+Z)) where Z~Normal(mu,sigma), redrawn
// on every call to Estimate.
type PerturbedMax struct {
	Max
	rng   *rand.Rand
	noise distuv.Normal
}

func (e *PerturbedMax) Estimate() float64 {
	maxRate := e.Max.Estimate()
	z := e.noise.Rand()
	return math.Max(0, maxRate*(1+z))
}

// --- PERTURBED_MRO ---

// PerturbedMRO is PerturbedMax's twin over the most-recently-observed rate.
type PerturbedMRO struct {
	MRO
	rng   *rand.Rand
	noise distuv.Normal
}

func (e *PerturbedMRO) Estimate() float64 {
	mro := e.MRO.Estimate()
	z := e.noise.Rand()
	return math.Max(0, mro*(1+z))
}

// --- UNIFORM_MAX ---

// UniformMax draws its estimate uniformly from [0, MAX].
type UniformMax struct {
	Max
	rng *rand.Rand
}

func (e *UniformMax) Estimate() float64 {
	maxRate := e.Max.Estimate()
	if maxRate <= 0 {
		return 0
	}
	return distuv.Uniform{Min: 0, Max: maxRate, Src: e.rng}.Rand()
}

// --- UNIFORM_MIN_MAX ---

// UniformMinMax draws its estimate uniformly from
// [min(collected), max(collected)].
type UniformMinMax struct {
	minRate, maxRate float64
	rng              *rand.Rand
}

func (e *UniformMinMax) Collect(observed float64) {
	if observed > e.maxRate {
		e.maxRate = observed
	}
	if observed < e.minRate {
		e.minRate = observed
	}
}

func (e *UniformMinMax) Estimate() float64 {
	lower := math.Min(e.minRate, e.maxRate)
	if lower >= e.maxRate {
		return lower
	}
	return distuv.Uniform{Min: lower, Max: e.maxRate, Src: e.rng}.Rand()
}

func (e *UniformMinMax) Reset() {
	e.minRate = math.Inf(1)
	e.maxRate = 0
}

// --- BETA ---

// Beta ignores observations entirely; its estimate is a draw from
// Beta(alpha1, alpha2) rescaled to [lower, upper].
type Beta struct {
	rng          *rand.Rand
	beta01       distuv.Beta
	lower, upper float64
}

func (e *Beta) Collect(_ float64) {}

func (e *Beta) Estimate() float64 {
	x := e.beta01.Rand()
	return x*(e.upper-e.lower) + e.lower
}

func (e *Beta) Reset() {}
