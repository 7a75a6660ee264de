package sched

import "container/list"

// ImmediateQueue holds immediate events in the order they were added.
type ImmediateQueue struct {
	l     *list.List
	index map[EventID]*list.Element
}

// NewImmediateQueue creates an empty ImmediateQueue.
func NewImmediateQueue() *ImmediateQueue {
	return &ImmediateQueue{
		l:     list.New(),
		index: make(map[EventID]*list.Element),
	}
}

// Push appends an event to the back of the queue.
func (q *ImmediateQueue) Push(id EventID) {
	if _, ok := q.index[id]; ok {
		return
	}

	q.index[id] = q.l.PushBack(id)
}

// Pop removes and returns the event at the front of the queue.
func (q *ImmediateQueue) Pop() (EventID, bool) {
	front := q.l.Front()
	if front == nil {
		return NoEvent, false
	}

	id := q.l.Remove(front).(EventID)
	delete(q.index, id)

	return id, true
}

// Remove takes an event out of the queue wherever it is.
func (q *ImmediateQueue) Remove(id EventID) bool {
	ele, ok := q.index[id]
	if !ok {
		return false
	}

	q.l.Remove(ele)
	delete(q.index, id)

	return true
}

// Contains tells if the event waits in the queue.
func (q *ImmediateQueue) Contains(id EventID) bool {
	_, ok := q.index[id]
	return ok
}

// Len returns the number of queued events.
func (q *ImmediateQueue) Len() int {
	return q.l.Len()
}

// IDs returns the queued events from front to back.
func (q *ImmediateQueue) IDs() []EventID {
	ids := make([]EventID, 0, q.l.Len())
	for ele := q.l.Front(); ele != nil; ele = ele.Next() {
		ids = append(ids, ele.Value.(EventID))
	}

	return ids
}
