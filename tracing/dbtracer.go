package tracing

import (
	"fmt"
	"log"
	"sync"

	"github.com/sarchlab/smpsched/datarecording"
	"github.com/sarchlab/smpsched/timing"
	"github.com/tebeka/atexit"
)

// TraceIndexTable lists the tracing sessions written by a DBTracer.
const TraceIndexTable = "trace"

// FiringEntry is a row of a session table.
type FiringEntry struct {
	ID             string
	EventID        int64
	Kind           string
	What           string
	SimulationTime int64
	ZuluTime       int64
	WallStart      int64
	WallDuration   int64
}

// TraceIndexEntry is a row of the trace index table.
type TraceIndexEntry struct {
	TableName    string
	SessionStart int64
	SessionEnd   int64
}

// DBTracer is a tracer that stores firings through a DataRecorder. Each
// tracing session writes into its own table, and the session boundaries are
// recorded in the trace index table.
type DBTracer struct {
	mu         sync.Mutex
	timeKeeper timing.TimeKeeper
	backend    datarecording.DataRecorder

	startTime, endTime timing.Duration

	tracingTasks  map[string]Task
	isTracingFlag bool

	traceCount       int
	currentTableName string
	sessionStartTime timing.Duration
}

// NewDBTracer creates a new DBTracer. Tracing is off until EnableTracing is
// called.
func NewDBTracer(
	timeKeeper timing.TimeKeeper,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(TraceIndexTable, TraceIndexEntry{})

	t := &DBTracer{
		timeKeeper:   timeKeeper,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// IsTracing tells if a session is open.
func (t *DBTracer) IsTracing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.isTracingFlag
}

// CurrentTable returns the table of the open session, or of the last session
// if none is open.
func (t *DBTracer) CurrentTable() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.currentTableName
}

// SetTimeRange limits recording to firings at simulation times within
// [startTime, endTime]. A zero endTime leaves the range open.
func (t *DBTracer) SetTimeRange(startTime, endTime timing.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startingTaskMustBeValid(task)

	if !t.isTracingFlag || !t.inRange(task.SimulationTime) {
		return
	}

	t.tracingTasks[task.ID] = task
}

func (t *DBTracer) startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}
}

func (t *DBTracer) inRange(now timing.Duration) bool {
	if now < t.startTime {
		return false
	}

	if t.endTime > 0 && now > t.endTime {
		return false
	}

	return true
}

// EndTask marks the end of a task.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	originalTask.EndTime = task.EndTime

	if t.isTracingFlag && t.currentTableName != "" {
		t.writeTaskToDB(originalTask)
	}
}

func (t *DBTracer) writeTaskToDB(task Task) {
	entry := FiringEntry{
		ID:             task.ID,
		EventID:        int64(task.EventID),
		Kind:           task.Kind,
		What:           task.What,
		SimulationTime: int64(task.SimulationTime),
		ZuluTime:       int64(task.ZuluTime),
		WallStart:      task.StartTime.UnixNano(),
		WallDuration:   int64(task.ExecutionTime()),
	}
	t.backend.InsertData(t.currentTableName, entry)
}

// EnableTracing opens a new session. Calling it while a session is open does
// nothing.
func (t *DBTracer) EnableTracing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isTracingFlag {
		return
	}

	t.tracingTasks = make(map[string]Task)

	t.isTracingFlag = true
	t.traceCount++
	t.sessionStartTime = t.timeKeeper.SimulationTime()
	t.currentTableName = fmt.Sprintf("firing%d", t.traceCount)
	t.backend.CreateTable(t.currentTableName, FiringEntry{})

	log.Printf("tracing firings into %s", t.currentTableName)
}

// StopTracing closes the open session and flushes the recorder.
func (t *DBTracer) StopTracing() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isTracingFlag {
		return
	}

	t.isTracingFlag = false
	t.tracingTasks = make(map[string]Task)

	t.backend.InsertData(TraceIndexTable, TraceIndexEntry{
		TableName:    t.currentTableName,
		SessionStart: int64(t.sessionStartTime),
		SessionEnd:   int64(t.timeKeeper.SimulationTime()),
	})
	t.backend.Flush()
}

// Terminate closes the open session, if any, and flushes the recorder.
func (t *DBTracer) Terminate() {
	t.StopTracing()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.backend.Flush()
}
