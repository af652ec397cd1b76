// Package mobility implements the user-count source: the opaque,
// pluggable producer of "next-slot number of active users" that drives
// arrival-rate forecasting. Grounded on
// original_source/c++/include/dcs/fog/user_mobility/*.hpp for Fixed and
// Step (direct translations) and on the classical random-waypoint mobility
// model (Mao, "Fundamentals of Communication Networks", ch. 8 — cited by
// the original header) for RandomWaypoint, whose original C++ only
// delegated to an external Python script and therefore contributes no
// reusable algorithm.
package mobility

import (
	"math"
	"math/rand"
)

// Source produces the next-slot number of active users. It is an infinite
// lazy sequence, deterministic given its seed, and non-restartable: reset
// is re-construction.
type Source interface {
	Next() int
}

// Fixed always returns the same user count.
type Fixed struct {
	N int
}

func (f *Fixed) Next() int { return f.N }

// Step cycles through a fixed sequence of user counts, one per call.
type Step struct {
	Counts []int
	k      int
}

func (s *Step) Next() int {
	if len(s.Counts) == 0 {
		return 0
	}
	v := s.Counts[s.k%len(s.Counts)]
	s.k++
	return v
}

// RandomWaypointParams configures the classical random-waypoint mobility
// model: nr_nodes points move inside a [0,MaxX]x[0,MaxY] rectangle, each
// picking a uniformly-random destination and a uniformly-random speed in
// [MinV,MaxV], optionally pausing up to MaxWT time units on arrival.
type RandomWaypointParams struct {
	NrNodes int
	MaxX    float64
	MaxY    float64
	MinV    float64
	MaxV    float64
	MaxWT   float64
	Seed    int64
}

// RandomWaypoint counts how many of its nr_nodes mobile users currently sit
// within the provider's coverage area (modeled as the centered disc whose
// radius is a quarter of the shorter map dimension — the original's
// reference implementation never specified a coverage shape, since it
// delegated entirely to an external Python script; this is this module's
// resolution, recorded in DESIGN.md).
type RandomWaypoint struct {
	params       RandomWaypointParams
	rng          *rand.Rand
	nodes        []waypointNode
	coverageR    float64
	coverageCX   float64
	coverageCY   float64
	timeStep     float64
	initialized  bool
}

type waypointNode struct {
	x, y       float64
	destX      float64
	destY      float64
	speed      float64
	waitUntil  float64 // clock at which the node stops pausing
	clock      float64
}

// NewRandomWaypoint constructs a RandomWaypoint source. timeStep is the
// simulated duration advanced on every Next() call (defaults to 1 if <= 0).
func NewRandomWaypoint(p RandomWaypointParams, timeStep float64) *RandomWaypoint {
	if timeStep <= 0 {
		timeStep = 1
	}
	rng := rand.New(rand.NewSource(p.Seed))
	rw := &RandomWaypoint{
		params:     p,
		rng:        rng,
		nodes:      make([]waypointNode, p.NrNodes),
		coverageR:  math.Min(p.MaxX, p.MaxY) / 4,
		coverageCX: p.MaxX / 2,
		coverageCY: p.MaxY / 2,
		timeStep:   timeStep,
	}
	for i := range rw.nodes {
		rw.nodes[i] = rw.newNodeAt(rw.rng.Float64()*p.MaxX, rw.rng.Float64()*p.MaxY)
	}
	rw.initialized = true
	return rw
}

func (rw *RandomWaypoint) newNodeAt(x, y float64) waypointNode {
	n := waypointNode{x: x, y: y}
	rw.pickDestination(&n)
	return n
}

func (rw *RandomWaypoint) pickDestination(n *waypointNode) {
	n.destX = rw.rng.Float64() * rw.params.MaxX
	n.destY = rw.rng.Float64() * rw.params.MaxY
	speedRange := rw.params.MaxV - rw.params.MinV
	if speedRange < 0 {
		speedRange = 0
	}
	n.speed = rw.params.MinV + rw.rng.Float64()*speedRange
}

// Next advances every node by one time step and returns the number of
// nodes that fall within the coverage disc afterward.
func (rw *RandomWaypoint) Next() int {
	count := 0
	for i := range rw.nodes {
		rw.advance(&rw.nodes[i])
		if rw.inCoverage(rw.nodes[i].x, rw.nodes[i].y) {
			count++
		}
	}
	return count
}

func (rw *RandomWaypoint) advance(n *waypointNode) {
	n.clock += rw.timeStep

	if n.clock < n.waitUntil {
		return // still paused at the current waypoint
	}

	dx := n.destX - n.x
	dy := n.destY - n.y
	dist := math.Hypot(dx, dy)

	step := n.speed * rw.timeStep
	if dist <= step || dist == 0 {
		// arrived: snap to destination, pick a new one, maybe pause
		n.x, n.y = n.destX, n.destY
		if rw.params.MaxWT > 0 {
			n.waitUntil = n.clock + rw.rng.Float64()*rw.params.MaxWT
		}
		rw.pickDestination(n)
		return
	}

	n.x += dx / dist * step
	n.y += dy / dist * step
}

func (rw *RandomWaypoint) inCoverage(x, y float64) bool {
	dx := x - rw.coverageCX
	dy := y - rw.coverageCY
	return math.Hypot(dx, dy) <= rw.coverageR
}
