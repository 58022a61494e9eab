// Package etl drives a load job through its extract, transform and load
// stages and reports the outcome of each run.
package etl

import (
	"context"
	"fmt"
)

// Stage identifies a step of a job.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
)

// State is where a job is in its lifecycle. A job moves forward one stage
// at a time and ends in Loaded or Aborted.
type State int

const (
	StateIdle State = iota
	StateExtracted
	StateTransformed
	StateLoaded
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracted:
		return "extracted"
	case StateTransformed:
		return "transformed"
	case StateLoaded:
		return "loaded"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Job is a single-use pipeline. Stages must be called in order; calling one
// out of order fails and aborts the job. Any stage error also aborts it.
type Job interface {
	Extract(ctx context.Context) error
	Transform(ctx context.Context) error
	Load(ctx context.Context) error
	State() State
}

// Stats counts what a job has processed so far.
type Stats struct {
	Extracted   int `json:"extracted"`
	Transformed int `json:"transformed"`
	Batches     int `json:"batches"`
	Loaded      int `json:"loaded"`
}

// StatsReporter is implemented by jobs that expose their counters to Run.
type StatsReporter interface {
	Stats() Stats
}

// stateError is returned when a stage is called in the wrong state.
type stateError struct {
	stage Stage
	got   State
	want  State
}

func (e *stateError) Error() string {
	return fmt.Sprintf("%s called in state %s, want %s", e.stage, e.got, e.want)
}
