package simcore

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

// Simulator drains a deterministically-ordered event queue, advancing a
// simulated clock as it goes. A handler panic is treated as fatal and
// propagates out of Run unchanged: event handler bugs are programming
// errors, not data the simulator should try to recover from.
type Simulator struct {
	heap    *eventHeap
	now     float64
	seq     int64
	horizon float64 // 0 = unbounded; run until the queue drains

	// knownKinds restricts dispatch once it is non-empty: an event with a
	// non-empty Kind() that isn't in this set is skipped, with one warning
	// per kind. With no kinds registered, or for an empty Kind(), every
	// event is executed.
	knownKinds map[string]bool
	warned     map[string]bool
}

// New constructs a Simulator with an optional horizon (0 disables it).
func New(horizon float64) *Simulator {
	return &Simulator{
		heap:       newEventHeap(),
		horizon:    horizon,
		knownKinds: map[string]bool{},
		warned:     map[string]bool{},
	}
}

// AllowKind registers a kind string as known, so events of that kind are
// executed rather than warned-about and skipped.
func (s *Simulator) AllowKind(kind string) {
	s.knownKinds[kind] = true
}

// Now returns the simulator's current clock value.
func (s *Simulator) Now() float64 { return s.now }

// Schedule enqueues e for execution at e.Time(). Scheduling an event in
// the past (before Now()) is a programming error and panics.
func (s *Simulator) Schedule(e Event) {
	if e.Time() < s.now {
		panic("simcore: cannot schedule an event in the past")
	}
	s.seq++
	heap.Push(s.heap, &heapItem{event: e, seq: s.seq})
}

// Run drains the event queue in timestamp order until it is empty or the
// horizon (if set) is reached.
func (s *Simulator) Run() {
	for s.heap.Len() > 0 {
		it := heap.Pop(s.heap).(*heapItem)
		if s.horizon > 0 && it.event.Time() > s.horizon {
			return
		}
		s.now = it.event.Time()

		kind := it.event.Kind()
		if len(s.knownKinds) > 0 && kind != "" && !s.knownKinds[kind] {
			if !s.warned[kind] {
				logrus.Warnf("simcore: skipping event of unknown kind %q", kind)
				s.warned[kind] = true
			}
			continue
		}

		it.event.Execute(s)
	}
}

// Pending reports how many events remain queued.
func (s *Simulator) Pending() int { return s.heap.Len() }
