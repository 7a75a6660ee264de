package sched

import (
	"fmt"
	"log"
	"sort"
)

// State is the part of a scheduler that goes into a breakpoint. Zulu events
// follow the wall clock and are left out.
type State struct {
	LastID       EventID       `json:"last_id"`
	LastSequence uint64        `json:"last_sequence"`
	Events       []EventRecord `json:"events"`

	// Immediates lists the queued immediate events from front to back.
	Immediates []EventID `json:"immediates"`
}

// An EntryPointResolver finds an entry point by the name it was stored with.
type EntryPointResolver interface {
	ResolveEntryPoint(name string) (EntryPoint, error)
}

// EntryPointRegistry is an EntryPointResolver backed by a map.
type EntryPointRegistry struct {
	entryPoints map[string]EntryPoint
}

// NewEntryPointRegistry creates an empty EntryPointRegistry.
func NewEntryPointRegistry() *EntryPointRegistry {
	return &EntryPointRegistry{entryPoints: make(map[string]EntryPoint)}
}

// Register adds entry points under their names. Registering a name twice
// panics.
func (r *EntryPointRegistry) Register(entryPoints ...EntryPoint) {
	for _, ep := range entryPoints {
		name := EntryPointName(ep)
		if _, found := r.entryPoints[name]; found {
			log.Panicf("sched: entry point %s registered twice", name)
		}

		r.entryPoints[name] = ep
	}
}

// ResolveEntryPoint returns the entry point registered under name.
func (r *EntryPointRegistry) ResolveEntryPoint(name string) (EntryPoint, error) {
	ep, found := r.entryPoints[name]
	if !found {
		return nil, fmt.Errorf("sched: entry point %s is not registered", name)
	}

	return ep, nil
}

// Names returns the registered names in alphabetical order.
func (r *EntryPointRegistry) Names() []string {
	names := make([]string, 0, len(r.entryPoints))
	for name := range r.entryPoints {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// State captures all live events that are not Zulu events.
func (s *SerialScheduler) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.syncOffsetsLocked()

	state := State{
		LastID:       s.store.lastID,
		LastSequence: s.store.lastSequence,
		Immediates:   s.immediates.IDs(),
	}

	for _, e := range s.store.All() {
		if e.Base.IsZulu() {
			continue
		}

		state.Events = append(state.Events, s.recordOf(e))
	}

	return state
}

// Restore replaces all events of the scheduler with the events of a captured
// state, Zulu events included. IDs and sequence numbers handed out later
// continue after the larger of the current and the captured counters.
//
// Restore fails without changing anything if an entry point cannot be
// resolved or the state is inconsistent. It cannot be called while a tick is
// running.
func (s *SerialScheduler) Restore(state State, resolver EntryPointResolver) error {
	if !s.singleRunLock.TryLock() {
		return fmt.Errorf("sched: cannot restore while ticking")
	}
	defer s.singleRunLock.Unlock()

	events, err := rebuildEvents(state, resolver)
	if err != nil {
		return err
	}

	s.lock.Lock()

	var notes []hookNote
	for _, e := range s.store.All() {
		notes = append(notes, *s.removeLocked(e, RemovedByRestore))
	}

	s.store.clear()
	s.offsets = clockOffsets{}
	s.store.advanceCounters(state.LastID, state.LastSequence)

	for _, ev := range events {
		s.store.restore(ev.event)

		if ev.posted && ev.event.Base != BaseImmediate {
			s.timeline.Insert(ev.event.ID, ev.event.key, ev.event.Sequence)
		}
	}

	for _, id := range state.Immediates {
		s.immediates.Push(id)
	}

	for _, ev := range events {
		notes = append(notes, hookNote{
			pos: HookPosEventAdded,
			rec: s.recordOf(ev.event),
		})
	}

	s.lock.Unlock()

	s.fire(notes...)

	return nil
}

type restoredEvent struct {
	event  *Event
	posted bool
}

func rebuildEvents(
	state State,
	resolver EntryPointResolver,
) ([]restoredEvent, error) {
	events := make([]restoredEvent, 0, len(state.Events))
	seen := make(map[EventID]TimeBase, len(state.Events))

	for _, rec := range state.Events {
		if rec.Base.IsZulu() {
			continue
		}

		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("sched: event %d stored twice", rec.ID)
		}

		if rec.ID > state.LastID || rec.Sequence > state.LastSequence {
			return nil, fmt.Errorf(
				"sched: event %d is newer than the stored counters", rec.ID)
		}

		ep, err := resolver.ResolveEntryPoint(rec.Name)
		if err != nil {
			return nil, fmt.Errorf("sched: restoring event %d: %w", rec.ID, err)
		}

		seen[rec.ID] = rec.Base
		events = append(events, restoredEvent{
			event: &Event{
				ID:          rec.ID,
				EntryPoint:  ep,
				Base:        rec.Base,
				TriggerTime: rec.TriggerTime,
				CycleTime:   rec.CycleTime,
				Repeat:      rec.Repeat,
				Sequence:    rec.Sequence,
				key:         rec.Key,
			},
			posted: rec.Posted,
		})
	}

	for _, id := range state.Immediates {
		if base, ok := seen[id]; !ok || base != BaseImmediate {
			return nil, fmt.Errorf(
				"sched: queued immediate event %d is not stored", id)
		}
	}

	return events, nil
}
