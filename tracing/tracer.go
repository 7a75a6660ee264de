package tracing

// A Tracer receives a task when an entry point starts running and again, with
// EndTime set, when it returns.
type Tracer interface {
	StartTask(task Task)
	EndTask(task Task)
}
