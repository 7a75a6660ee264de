package tracing

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"

	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// JSONTracer can write tasks into json format.
type JSONTracer struct {
	w             io.Writer
	lock          sync.Mutex
	firstTask     bool
	finished      bool
	inflightTasks map[string]Task
}

// NewJSONTracer creates a JSONTracer that writes a JSON array of tasks into w.
// The array is terminated by Close.
func NewJSONTracer(w io.Writer) *JSONTracer {
	_, err := w.Write([]byte("[\n"))
	if err != nil {
		panic(err)
	}

	return &JSONTracer{
		w:             w,
		firstTask:     true,
		inflightTasks: make(map[string]Task),
	}
}

// NewJSONFileTracer creates a JSONTracer writing into a new file in the
// working directory. The file is completed when the program exits.
func NewJSONFileTracer() *JSONTracer {
	filename := xid.New().String() + ".json"
	f, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	log.Printf("recording tasks in %s", filename)

	t := NewJSONTracer(f)

	atexit.Register(func() {
		t.Close()
		f.Close()
	})

	return t
}

// StartTask records the start of a task
func (t *JSONTracer) StartTask(task Task) {
	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// EndTask records the time that a task is completed.
func (t *JSONTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok || t.finished {
		return
	}
	originalTask.EndTime = task.EndTime

	delete(t.inflightTasks, task.ID)

	if t.firstTask {
		t.firstTask = false
	} else {
		_, err := t.w.Write([]byte(",\n"))
		if err != nil {
			panic(err)
		}
	}

	b, err := json.Marshal(originalTask)
	if err != nil {
		panic(err)
	}

	_, err = t.w.Write(b)
	if err != nil {
		panic(err)
	}
}

// Close terminates the JSON array. Tasks ending afterwards are dropped.
func (t *JSONTracer) Close() {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.finished {
		return
	}

	t.finished = true

	_, err := t.w.Write([]byte("\n]"))
	if err != nil {
		panic(err)
	}
}
