package sched

import (
	"errors"
	"fmt"

	"github.com/sarchlab/smpsched/timing"
)

// Sentinel errors. The typed errors below match them with errors.Is.
var (
	ErrInvalidEventID   = errors.New("sched: invalid event id")
	ErrInvalidEventTime = errors.New("sched: invalid event time")
	ErrInvalidCycleTime = errors.New("sched: invalid cycle time")
)

// InvalidEventIDError reports an ID that does not name a live event, or names
// an event of another time base than the operation expects.
type InvalidEventIDError struct {
	ID EventID
}

func (e *InvalidEventIDError) Error() string {
	return fmt.Sprintf("sched: invalid event id %d", e.ID)
}

// InvalidEventID returns the offending ID.
func (e *InvalidEventIDError) InvalidEventID() EventID {
	return e.ID
}

// Is makes the error match ErrInvalidEventID.
func (e *InvalidEventIDError) Is(target error) bool {
	return target == ErrInvalidEventID
}

// InvalidEventTimeError reports a trigger time in the past or out of range.
type InvalidEventTimeError struct {
	Base TimeBase
	Time int64
	Now  int64
}

func (e *InvalidEventTimeError) Error() string {
	return fmt.Sprintf("sched: invalid %s event time %d (now %d)",
		e.Base, e.Time, e.Now)
}

// Is makes the error match ErrInvalidEventTime.
func (e *InvalidEventTimeError) Is(target error) bool {
	return target == ErrInvalidEventTime
}

// InvalidCycleTimeError reports a cycle time that a cyclic event cannot use.
type InvalidCycleTimeError struct {
	Base      TimeBase
	CycleTime timing.Duration
}

func (e *InvalidCycleTimeError) Error() string {
	return fmt.Sprintf("sched: invalid cycle time %d for cyclic %s event",
		e.CycleTime, e.Base)
}

// Is makes the error match ErrInvalidCycleTime.
func (e *InvalidCycleTimeError) Is(target error) bool {
	return target == ErrInvalidCycleTime
}

// EntryPointPanicError carries a panic recovered from an entry point when the
// scheduler runs with RecoverPanics.
type EntryPointPanicError struct {
	ID    EventID
	Name  string
	Value any
}

func (e *EntryPointPanicError) Error() string {
	return fmt.Sprintf("sched: entry point %s of event %d panicked: %v",
		e.Name, e.ID, e.Value)
}
