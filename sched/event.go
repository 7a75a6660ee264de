package sched

import (
	"fmt"

	"github.com/sarchlab/smpsched/timing"
)

// EventID identifies a scheduled event. IDs start at 1 and are never handed
// out twice by the same scheduler.
type EventID int64

// NoEvent is returned by CurrentEventID while no event is executing.
const NoEvent EventID = -1

// Unposted is the trigger time of a simulation time event that exists but is
// not on the timeline.
const Unposted int64 = -1

// TimeBase tells how an event was registered and which clock its trigger time
// is expressed in.
type TimeBase int

// The time bases an event can be registered with.
const (
	BaseImmediate TimeBase = iota
	BaseSimulation
	BaseMission
	BaseEpoch
	BaseZulu
	BaseRelativeZulu
)

func (b TimeBase) String() string {
	switch b {
	case BaseImmediate:
		return "Immediate"
	case BaseSimulation:
		return "Simulation"
	case BaseMission:
		return "Mission"
	case BaseEpoch:
		return "Epoch"
	case BaseZulu:
		return "Zulu"
	case BaseRelativeZulu:
		return "RelativeZulu"
	default:
		return fmt.Sprintf("TimeBase(%d)", int(b))
	}
}

// IsZulu tells if the event follows the wall clock rather than simulation
// time.
func (b TimeBase) IsZulu() bool {
	return b == BaseZulu || b == BaseRelativeZulu
}

// hasOffset tells if the clock of the base runs at a distance from simulation
// time that the time keeper can change.
func (b TimeBase) hasOffset() bool {
	return b == BaseMission || b == BaseEpoch
}

// TimeKind returns the clock trigger times of the base are measured with.
// Immediate events are simulation time events with a zero delay.
func (b TimeBase) TimeKind() timing.TimeKind {
	switch b {
	case BaseMission:
		return timing.MissionTime
	case BaseEpoch:
		return timing.EpochTime
	case BaseZulu, BaseRelativeZulu:
		return timing.ZuluTime
	default:
		return timing.SimulationTime
	}
}

// An Event is the scheduler's record of one registration.
type Event struct {
	ID         EventID
	EntryPoint EntryPoint
	Base       TimeBase

	// TriggerTime is absolute and in the unit of Base. It is Unposted for a
	// simulation time event that is not on the timeline.
	TriggerTime int64
	CycleTime   timing.Duration

	// Repeat counts the remaining repetitions: 0 fires once more, a positive
	// value fires Repeat+1 more times, a negative value fires forever.
	Repeat int64

	// Sequence orders events that share a trigger time.
	Sequence uint64

	// key is the position on the timeline holding the event. It is the
	// simulation time equivalent of TriggerTime, or TriggerTime itself for
	// Zulu events.
	key int64
}

func (e *Event) isCyclic() bool {
	return e.Repeat != 0
}

// EventRecord is a copy of an event's state, safe to hand out of the
// scheduler. Posted tells if the event waits on a timeline or in the
// immediate queue.
type EventRecord struct {
	ID          EventID         `json:"id"`
	Name        string          `json:"name"`
	Base        TimeBase        `json:"base"`
	TriggerTime int64           `json:"trigger_time"`
	Key         int64           `json:"key"`
	CycleTime   timing.Duration `json:"cycle_time"`
	Repeat      int64           `json:"repeat"`
	Sequence    uint64          `json:"sequence"`
	Posted      bool            `json:"posted"`
}

func (e *Event) record() EventRecord {
	return EventRecord{
		ID:          e.ID,
		Name:        EntryPointName(e.EntryPoint),
		Base:        e.Base,
		TriggerTime: e.TriggerTime,
		Key:         e.key,
		CycleTime:   e.CycleTime,
		Repeat:      e.Repeat,
		Sequence:    e.Sequence,
	}
}
