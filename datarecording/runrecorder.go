package datarecording

import (
	"os"
	"strings"
	"time"
)

const timeLayout = "2006-01-02 15:04:05.000000000"

type runInfo struct {
	Property string
	Value    string
}

// RunRecorder records facts about one program run in the run_info table,
// such as the command line, the session and the address spaces.
type RunRecorder struct {
	tableName string
	recorder  DataRecorder
	entries   []runInfo
}

// NewRunRecorder creates a RunRecorder and its table.
func NewRunRecorder(recorder DataRecorder) *RunRecorder {
	r := &RunRecorder{
		tableName: "run_info",
		recorder:  recorder,
	}

	recorder.CreateTable(r.tableName, runInfo{})

	return r
}

// Start notes the start time and the command line.
func (r *RunRecorder) Start() {
	r.Set("Start Time", time.Now().Format(timeLayout))
	r.Set("Command", strings.Join(os.Args, " "))

	if cwd, err := os.Getwd(); err == nil {
		r.Set("Working Directory", cwd)
	}
}

// Set adds a property. Properties are written when End is called.
func (r *RunRecorder) Set(property, value string) {
	r.entries = append(r.entries, runInfo{Property: property, Value: value})
}

// End writes all properties along with the end time.
func (r *RunRecorder) End() {
	r.Set("End Time", time.Now().Format(timeLayout))

	for _, entry := range r.entries {
		r.recorder.InsertData(r.tableName, entry)
	}

	r.entries = nil

	r.recorder.Flush()
}
