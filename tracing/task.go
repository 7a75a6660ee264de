// Package tracing records the firings of scheduled events.
//
// Every time a scheduler executes an entry point, a Task is started before the
// call and ended after it. Tracers turn the tasks into statistics, JSON
// documents or database rows.
package tracing

import (
	"time"

	"github.com/sarchlab/smpsched/sched"
	"github.com/sarchlab/smpsched/timing"
)

// A Task is one execution of an entry point.
type Task struct {
	ID      string        `json:"id"`
	EventID sched.EventID `json:"event_id"`

	// Kind is the time base of the event.
	Kind string `json:"kind"`

	// What is the name of the entry point.
	What string `json:"what"`

	SimulationTime timing.Duration `json:"simulation_time"`
	ZuluTime       timing.DateTime `json:"zulu_time"`

	// StartTime and EndTime are host clock readings around the call.
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Detail any `json:"-"`
}

// ExecutionTime returns how long the entry point ran on the host.
func (t Task) ExecutionTime() time.Duration {
	if t.EndTime.Before(t.StartTime) {
		return 0
	}

	return t.EndTime.Sub(t.StartTime)
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// AllTasks is a TaskFilter that accepts everything.
func AllTasks(Task) bool {
	return true
}

// TasksNamed accepts the tasks of the given entry point.
func TasksNamed(name string) TaskFilter {
	return func(t Task) bool {
		return t.What == name
	}
}
