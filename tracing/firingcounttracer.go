package tracing

import "sync"

// FiringCountTracer counts how many times each entry point was executed.
type FiringCountTracer struct {
	filter TaskFilter
	lock   sync.Mutex
	names  []string
	counts map[string]uint64
	total  uint64
}

// NewFiringCountTracer creates a new FiringCountTracer
func NewFiringCountTracer(filter TaskFilter) *FiringCountTracer {
	return &FiringCountTracer{
		filter: filter,
		counts: make(map[string]uint64),
	}
}

// StartTask counts the task.
func (t *FiringCountTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if _, found := t.counts[task.What]; !found {
		t.names = append(t.names, task.What)
	}

	t.counts[task.What]++
	t.total++
}

// EndTask does nothing
func (t *FiringCountTracer) EndTask(_ Task) {
	// Do nothing
}

// Names returns the entry point names in the order they first fired.
func (t *FiringCountTracer) Names() []string {
	t.lock.Lock()
	defer t.lock.Unlock()

	return append([]string(nil), t.names...)
}

// Count returns how many times the named entry point fired.
func (t *FiringCountTracer) Count(name string) uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.counts[name]
}

// TotalCount returns the number of firings seen.
func (t *FiringCountTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.total
}
