// Package simrand provides the single partitioned random number generator
// shared by every stochastic component in a simulation run.
package simrand

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Key uniquely identifies a reproducible simulation run. Two runs with the
// same Key and identical configuration must produce bit-for-bit identical
// results.
type Key int64

// NewKey creates a Key from a CLI/scenario seed value.
func NewKey(seed int64) Key {
	return Key(seed)
}

// Subsystem names used to derive isolated RNG streams.
const (
	// SubsystemMobility names the mobility stream; no package requests it,
	// since mobility sources seed from the scenario's seed parameter.
	SubsystemMobility = "mobility"
	// SubsystemEstimator drives stochastic arrival-rate estimators.
	SubsystemEstimator = "estimator"
	// SubsystemSolver names the solver stream; no package requests it, and
	// MIPSolver seeds its own generator with a fixed seed.
	SubsystemSolver = "solver"
)

// SubsystemService returns the subsystem name for service j, so each
// service's estimator gets an isolated stream even when several services
// share the same estimator variant.
func SubsystemService(j int) string {
	return fmt.Sprintf("%s_svc_%d", SubsystemEstimator, j)
}

// RNG provides deterministic, isolated *rand.Rand instances per subsystem.
//
// Derivation: masterSeed XOR fnv1a64(subsystemName), except the mobility
// subsystem which uses the master seed directly for backward-compatible
// single-service scenarios.
//
// Thread-safety: NOT thread-safe. The simulator is single-threaded; only the
// driver goroutine may call into this type.
type RNG struct {
	key        Key
	subsystems map[string]*rand.Rand
}

// New creates an RNG from a Key.
func New(key Key) *RNG {
	return &RNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// For returns a deterministically-seeded RNG for the named subsystem. The
// same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (r *RNG) For(name string) *rand.Rand {
	if rng, ok := r.subsystems[name]; ok {
		return rng
	}

	var derivedSeed int64
	if name == SubsystemMobility {
		derivedSeed = int64(r.key)
	} else {
		derivedSeed = int64(r.key) ^ fnv1a64(name)
	}

	rng := rand.New(rand.NewSource(derivedSeed))
	r.subsystems[name] = rng
	return rng
}

// Key returns the Key used to create this RNG.
func (r *RNG) Key() Key {
	return r.key
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
