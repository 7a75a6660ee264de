package sched

import (
	"container/heap"
	"log"
)

// A Timeline keeps pending events ordered by trigger key. Events with the same
// key leave in the order of their sequence numbers, so the event scheduled
// first is executed first.
//
// The scheduler uses one Timeline keyed by simulation time for simulation,
// mission and epoch events, and one keyed by Zulu time for Zulu events.
type Timeline struct {
	name    string
	entries timelineHeap
	byID    map[EventID]*timelineEntry
}

type timelineEntry struct {
	id    EventID
	key   int64
	seq   uint64
	index int
}

// NewTimeline creates an empty Timeline.
func NewTimeline(name string) *Timeline {
	t := &Timeline{
		name:    name,
		entries: make(timelineHeap, 0),
		byID:    make(map[EventID]*timelineEntry),
	}
	heap.Init(&t.entries)

	return t
}

// Name returns the name of the timeline.
func (t *Timeline) Name() string {
	return t.name
}

// Insert adds an event. An event can only be on a timeline once.
func (t *Timeline) Insert(id EventID, key int64, seq uint64) {
	if _, ok := t.byID[id]; ok {
		log.Panicf("sched: event %d is already on timeline %s", id, t.name)
	}

	entry := &timelineEntry{id: id, key: key, seq: seq}
	heap.Push(&t.entries, entry)
	t.byID[id] = entry
}

// Remove takes an event off the timeline. It returns false if the event was
// not on it.
func (t *Timeline) Remove(id EventID) bool {
	entry, ok := t.byID[id]
	if !ok {
		return false
	}

	heap.Remove(&t.entries, entry.index)
	delete(t.byID, id)

	return true
}

// Reschedule moves an event to a new key. The event keeps its sequence
// number. It returns false if the event is not on the timeline.
func (t *Timeline) Reschedule(id EventID, key int64) bool {
	entry, ok := t.byID[id]
	if !ok {
		return false
	}

	entry.key = key
	heap.Fix(&t.entries, entry.index)

	return true
}

// Peek returns the earliest entry without removing it.
func (t *Timeline) Peek() (id EventID, key int64, seq uint64, ok bool) {
	if len(t.entries) == 0 {
		return NoEvent, 0, 0, false
	}

	e := t.entries[0]

	return e.id, e.key, e.seq, true
}

// PeekEarliestTime returns the smallest key on the timeline.
func (t *Timeline) PeekEarliestTime() (int64, bool) {
	_, key, _, ok := t.Peek()
	return key, ok
}

// PopDueBy removes and returns the earliest event if its key is not after now.
func (t *Timeline) PopDueBy(now int64) (EventID, bool) {
	if len(t.entries) == 0 || t.entries[0].key > now {
		return NoEvent, false
	}

	entry := heap.Pop(&t.entries).(*timelineEntry)
	delete(t.byID, entry.id)

	return entry.id, true
}

// PopAllDueBy removes every event whose key is not after now and returns them
// in execution order.
func (t *Timeline) PopAllDueBy(now int64) []EventID {
	var ids []EventID

	for {
		id, ok := t.PopDueBy(now)
		if !ok {
			return ids
		}

		ids = append(ids, id)
	}
}

// Key returns the key an event is scheduled at.
func (t *Timeline) Key(id EventID) (int64, bool) {
	entry, ok := t.byID[id]
	if !ok {
		return 0, false
	}

	return entry.key, true
}

// Contains tells if the event is on the timeline.
func (t *Timeline) Contains(id EventID) bool {
	_, ok := t.byID[id]
	return ok
}

// Len returns the number of events on the timeline.
func (t *Timeline) Len() int {
	return len(t.entries)
}

type timelineHeap []*timelineEntry

func (h timelineHeap) Len() int {
	return len(h)
}

// Less orders by key first and by sequence number for equal keys.
func (h timelineHeap) Less(i, j int) bool {
	if h[i].key == h[j].key {
		return h[i].seq < h[j].seq
	}

	return h[i].key < h[j].key
}

func (h timelineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timelineHeap) Push(x any) {
	entry := x.(*timelineEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *timelineHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]

	return entry
}
