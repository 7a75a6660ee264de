package sched

import (
	"sort"

	"github.com/sarchlab/smpsched/timing"
)

// EventStore owns the records of all live events.
//
// IDs and sequence numbers come from two counters that only grow, so an ID is
// never handed out again after its event is removed.
type EventStore struct {
	events       map[EventID]*Event
	lastID       EventID
	lastSequence uint64

	// offsetEvents counts the live mission and epoch events.
	offsetEvents int
}

// NewEventStore creates an empty EventStore. The first ID it creates is 1.
func NewEventStore() *EventStore {
	return &EventStore{events: make(map[EventID]*Event)}
}

// Create stores a new, not yet posted event and returns its ID.
func (s *EventStore) Create(
	entryPoint EntryPoint,
	base TimeBase,
	cycleTime timing.Duration,
	repeat int64,
) EventID {
	s.lastID++
	s.lastSequence++

	s.events[s.lastID] = &Event{
		ID:          s.lastID,
		EntryPoint:  entryPoint,
		Base:        base,
		TriggerTime: Unposted,
		key:         Unposted,
		CycleTime:   cycleTime,
		Repeat:      repeat,
		Sequence:    s.lastSequence,
	}

	if base.hasOffset() {
		s.offsetEvents++
	}

	return s.lastID
}

// Get returns the event with the given ID.
func (s *EventStore) Get(id EventID) (*Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, &InvalidEventIDError{ID: id}
	}

	return e, nil
}

// Remove deletes the event with the given ID.
func (s *EventStore) Remove(id EventID) error {
	e, ok := s.events[id]
	if !ok {
		return &InvalidEventIDError{ID: id}
	}

	if e.Base.hasOffset() {
		s.offsetEvents--
	}

	delete(s.events, id)

	return nil
}

// Contains tells if id names a live event.
func (s *EventStore) Contains(id EventID) bool {
	_, ok := s.events[id]
	return ok
}

// Len returns the number of live events.
func (s *EventStore) Len() int {
	return len(s.events)
}

// All returns the live events in ID order.
func (s *EventStore) All() []*Event {
	all := make([]*Event, 0, len(s.events))
	for _, e := range s.events {
		all = append(all, e)
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].ID < all[j].ID
	})

	return all
}

// restore puts back an event captured earlier. The counters never move
// backwards.
func (s *EventStore) restore(e *Event) {
	if old, ok := s.events[e.ID]; ok && old.Base.hasOffset() {
		s.offsetEvents--
	}

	if e.Base.hasOffset() {
		s.offsetEvents++
	}

	s.events[e.ID] = e

	if e.ID > s.lastID {
		s.lastID = e.ID
	}

	if e.Sequence > s.lastSequence {
		s.lastSequence = e.Sequence
	}
}

func (s *EventStore) clear() {
	s.events = make(map[EventID]*Event)
	s.offsetEvents = 0
}

// HasOffsetEvents tells if any mission or epoch event is live.
func (s *EventStore) HasOffsetEvents() bool {
	return s.offsetEvents > 0
}

func (s *EventStore) advanceCounters(lastID EventID, lastSequence uint64) {
	if lastID > s.lastID {
		s.lastID = lastID
	}

	if lastSequence > s.lastSequence {
		s.lastSequence = lastSequence
	}
}
