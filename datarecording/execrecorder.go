package datarecording

import (
	"os"
	"strings"
	"time"
)

// ExecInfo is a property of a program run.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecTableName is the table ExecRecorder writes into.
const ExecTableName = "exec_info"

// ExecRecorder records when and how the program was run, next to the data the
// run produced.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates the exec_info table in the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	e := &ExecRecorder{recorder: recorder}
	recorder.CreateTable(ExecTableName, ExecInfo{})

	return e
}

// Start notes the start time, the command line and the working directory.
func (e *ExecRecorder) Start() {
	e.Note("Start Time", now())
	e.Note("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	e.Note("Working Directory", cwd)
}

// Note adds a property of the run.
func (e *ExecRecorder) Note(property, value string) {
	e.entries = append(e.entries, ExecInfo{Property: property, Value: value})
}

// End writes all notes along with the end time and flushes the recorder.
func (e *ExecRecorder) End() {
	e.Note("End Time", now())

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecTableName, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}
