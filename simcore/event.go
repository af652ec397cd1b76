// Package simcore implements the discrete-event simulation core: a
// deterministic min-heap event queue and the Simulator that drains it.
// This package doesn't know anything about fog placements, services or
// VMs — that knowledge lives in the driver package.
package simcore

// Event is anything schedulable on the simulator's timeline. Execute runs
// the event's side effects and may schedule further events.
type Event interface {
	Time() float64
	Kind() string
	Execute(*Simulator)
}

// BaseEvent supplies the common Time/Kind plumbing; concrete event types
// embed it and add their own payload and Execute.
type BaseEvent struct {
	EventTime float64
	EventKind string
}

func (b BaseEvent) Time() float64 { return b.EventTime }
func (b BaseEvent) Kind() string  { return b.EventKind }

// FuncEvent wraps a plain function as an Event, for simple one-off
// scheduling (e.g. slot-boundary triggers) that don't warrant a named
// type of their own.
type FuncEvent struct {
	BaseEvent
	Fn func(*Simulator)
}

func (e *FuncEvent) Execute(s *Simulator) { e.Fn(s) }
