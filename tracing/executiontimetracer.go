package tracing

import (
	"sync"
	"time"
)

// ExecutionStats summarizes the host time spent in entry points.
type ExecutionStats struct {
	Count uint64
	Total time.Duration
	Max   time.Duration
}

// Average returns the mean execution time, or 0 if nothing ran.
func (s ExecutionStats) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}

	return s.Total / time.Duration(s.Count)
}

func (s *ExecutionStats) add(d time.Duration) {
	s.Count++
	s.Total += d

	if d > s.Max {
		s.Max = d
	}
}

// ExecutionTimeTracer measures how long entry points take to run, overall and
// per entry point name.
type ExecutionTimeTracer struct {
	filter TaskFilter

	lock     sync.Mutex
	inflight map[string]Task
	total    ExecutionStats
	byName   map[string]*ExecutionStats
}

// NewExecutionTimeTracer creates an ExecutionTimeTracer that only measures
// the tasks accepted by filter.
func NewExecutionTimeTracer(filter TaskFilter) *ExecutionTimeTracer {
	return &ExecutionTimeTracer{
		filter:   filter,
		inflight: make(map[string]Task),
		byName:   make(map[string]*ExecutionStats),
	}
}

// StartTask remembers when the task started.
func (t *ExecutionTimeTracer) StartTask(task Task) {
	if !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflight[task.ID] = task
	t.lock.Unlock()
}

// EndTask adds the execution time of a started task. Tasks that were never
// started are ignored.
func (t *ExecutionTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	started, ok := t.inflight[task.ID]
	if !ok {
		return
	}

	delete(t.inflight, task.ID)

	started.EndTime = task.EndTime
	d := started.ExecutionTime()

	stats, ok := t.byName[started.What]
	if !ok {
		stats = &ExecutionStats{}
		t.byName[started.What] = stats
	}

	stats.add(d)
	t.total.add(d)
}

// Total returns the statistics over all measured tasks.
func (t *ExecutionTimeTracer) Total() ExecutionStats {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.total
}

// Of returns the statistics of the named entry point.
func (t *ExecutionTimeTracer) Of(name string) ExecutionStats {
	t.lock.Lock()
	defer t.lock.Unlock()

	if stats, ok := t.byName[name]; ok {
		return *stats
	}

	return ExecutionStats{}
}
