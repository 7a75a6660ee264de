package sched

import (
	"log"
)

// LogHookBase provides the common logic for hooks that write into a logger.
type LogHookBase struct {
	*log.Logger
}

// EventLogger is a hook that prints every fired event.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns a new EventLogger which will write into the logger.
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	rec, ok := ctx.Item.(EventRecord)
	if !ok {
		return
	}

	firing, _ := ctx.Detail.(Firing)

	h.Logger.Printf("%d, %s event %d -> %s",
		firing.SimulationTime, rec.Base, rec.ID, rec.Name)
}

// LifecycleLogger is a hook that prints events being added, removed and
// rejected.
type LifecycleLogger struct {
	LogHookBase
}

// NewLifecycleLogger returns a new LifecycleLogger which will write into the
// logger.
func NewLifecycleLogger(logger *log.Logger) *LifecycleLogger {
	h := new(LifecycleLogger)
	h.Logger = logger

	return h
}

// Func writes the lifecycle change into the logger.
func (h *LifecycleLogger) Func(ctx HookCtx) {
	rec, ok := ctx.Item.(EventRecord)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosEventAdded:
		h.Logger.Printf("added %s event %d -> %s at %d",
			rec.Base, rec.ID, rec.Name, rec.TriggerTime)
	case HookPosEventRemoved:
		h.Logger.Printf("removed %s event %d -> %s (%v)",
			rec.Base, rec.ID, rec.Name, ctx.Detail)
	case HookPosEventDiscarded:
		h.Logger.Printf("discarded %s event %d -> %s: %v",
			rec.Base, rec.ID, rec.Name, ctx.Detail)
	}
}
