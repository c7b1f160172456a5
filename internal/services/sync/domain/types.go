// Package domain defines the sync module's types and ports
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Segment statuses
const (
	SegmentStatusSynced  = "synced"
	SegmentStatusSkipped = "skipped_no_overlap"
	SegmentStatusFailed  = "failed"
)

// Run is one pipeline execution over a recording session
type Run struct {
	ID         uuid.UUID
	SessionDir string
	CameraDir  string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time

	// tallies filled at finish
	Segments int
	Synced   int
	Skipped  int
	Failed   int
	Error    string
}

// Segment is one (chunk, camera) pair processed during a run
type Segment struct {
	RunID  uuid.UUID
	Stamp  string
	Camera string
	Status string
	Rows   int
	Detail string
}

// Unresolved is a discontinuity the pipeline reported but did not correct
type Unresolved struct {
	RunID      uuid.UUID
	Stamp      string
	Camera     string
	Stream     string // "event" or "camera"
	Kind       string
	StartIndex int
	EndIndex   int
	Reason     string
}

// SyncedRecord is the terminal persisted row: one per serial value matched
// between the event stream and a camera segment
type SyncedRecord struct {
	RunID          uuid.UUID
	Stamp          string
	Camera         string
	Serial         uint64
	EventTimestamp uint64
	WallClock      time.Time
	FrameID        int64
	Synthetic      bool
	Amplitude      *int16
}

// RunDetail is a run plus its segments, for inspection APIs
type RunDetail struct {
	Run        Run
	Segments   []Segment
	Unresolved []Unresolved
}
