package sched

import (
	"fmt"

	"github.com/sarchlab/smpsched/timing"
)

// A Scheduler calls entry points at given points in time.
//
// Events can be registered against simulation time, mission time, epoch time
// or Zulu time, or be queued for the next tick. Cyclic events are reposted
// after each firing until their repeat count is used up or they are removed.
type Scheduler interface {
	Hookable

	// AddImmediateEvent queues an event for the next tick. Immediate events
	// fire in the order they were added and before any timed event.
	AddImmediateEvent(entryPoint EntryPoint) EventID

	// AddSimulationTimeEvent registers an event simulationTime after the
	// current simulation time. A simulationTime of -1 registers the event
	// without posting it. A cycleTime of -1 unposts a cyclic event after
	// each firing instead of reposting it.
	AddSimulationTimeEvent(
		entryPoint EntryPoint,
		simulationTime timing.Duration,
		cycleTime timing.Duration,
		repeat int64,
	) (EventID, error)

	// AddMissionTimeEvent registers an event at an absolute mission time.
	AddMissionTimeEvent(
		entryPoint EntryPoint,
		missionTime timing.Duration,
		cycleTime timing.Duration,
		repeat int64,
	) (EventID, error)

	// AddEpochTimeEvent registers an event at an absolute epoch time.
	AddEpochTimeEvent(
		entryPoint EntryPoint,
		epochTime timing.DateTime,
		cycleTime timing.Duration,
		repeat int64,
	) (EventID, error)

	// AddZuluTimeEvent registers an event at an absolute Zulu time.
	AddZuluTimeEvent(
		entryPoint EntryPoint,
		zuluTime timing.DateTime,
		cycleTime timing.Duration,
		repeat int64,
	) (EventID, error)

	// AddRelativeZuluTimeEvent registers an event delay after the current
	// Zulu time.
	AddRelativeZuluTimeEvent(
		entryPoint EntryPoint,
		delay timing.Duration,
		cycleTime timing.Duration,
		repeat int64,
	) (EventID, error)

	// SetEventSimulationTime posts a simulation time event simulationTime
	// after the current simulation time. A negative time removes the event.
	SetEventSimulationTime(id EventID, simulationTime timing.Duration) error

	// SetEventMissionTime moves a mission time event. A past time removes
	// the event.
	SetEventMissionTime(id EventID, missionTime timing.Duration) error

	// SetEventEpochTime moves an epoch time event. A past time removes the
	// event.
	SetEventEpochTime(id EventID, epochTime timing.DateTime) error

	// SetEventZuluTime moves a Zulu time event. A past time removes the
	// event.
	SetEventZuluTime(id EventID, zuluTime timing.DateTime) error

	// SetEventCycleTime changes the cycle time of an event.
	SetEventCycleTime(id EventID, cycleTime timing.Duration) error

	// SetEventRepeat changes the repeat count of an event.
	SetEventRepeat(id EventID, repeat int64) error

	// RemoveEvent deletes an event.
	RemoveEvent(id EventID) error

	// CurrentEventID returns the event whose entry point is executing, or
	// NoEvent.
	CurrentEventID() EventID

	// NextScheduledEventTime returns the simulation time of the earliest
	// pending event that is not a Zulu event.
	NextScheduledEventTime() (timing.Duration, bool)

	// IsEventScheduled tells if the event will fire again.
	IsEventScheduled(id EventID) bool

	// Tick executes all events that are due.
	Tick() error
}

// PanicPolicy decides what a tick does with a panicking entry point.
type PanicPolicy int

const (
	// PropagatePanics lets the panic continue after the event has been
	// reposted or removed.
	PropagatePanics PanicPolicy = iota

	// RecoverPanics turns the panic into an EntryPointPanicError and goes on
	// with the next due event.
	RecoverPanics
)

func (p PanicPolicy) String() string {
	switch p {
	case PropagatePanics:
		return "propagate"
	case RecoverPanics:
		return "recover"
	default:
		return "unknown"
	}
}

// ParsePanicPolicy is the reverse of String.
func ParsePanicPolicy(s string) (PanicPolicy, error) {
	switch s {
	case "propagate", "":
		return PropagatePanics, nil
	case "recover":
		return RecoverPanics, nil
	default:
		return 0, fmt.Errorf("sched: unknown panic policy %q", s)
	}
}
