package models

import "time"

// CrossingEvent is emitted once per completed crossing, i.e. once per counter increment.
type CrossingEvent struct {
	RunID      string    `json:"run_id"`
	TrackID    uint64    `json:"track_id"`
	FrameIndex int       `json:"frame_index"`
	Count      int       `json:"count"`
	Mode       string    `json:"mode"`
	FromLeft   *bool     `json:"from_left,omitempty"` // only set in BothLinesEitherDirection
	Label      string    `json:"label"`
	Confidence float32   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Snapshot   []byte    `json:"snapshot,omitempty"` // JPEG of the track box, base64 in JSON
}

// RunSummary is published once the frame loop terminates.
type RunSummary struct {
	RunID           string        `json:"run_id"`
	Input           string        `json:"input"`
	FramesRead      int           `json:"frames_read"`
	FramesProcessed int           `json:"frames_processed"`
	Elapsed         time.Duration `json:"elapsed"`
	FPS             float64       `json:"fps"`
	Count           int           `json:"count"`
	Error           string        `json:"error,omitempty"`
}

// PipelineState is the orchestrator state over the frame index.
type PipelineState string

const (
	PipelineStateIdle       PipelineState = "idle"
	PipelineStateSkipping   PipelineState = "skipping"
	PipelineStateProcessing PipelineState = "processing"
	PipelineStateDone       PipelineState = "done"
)

// PipelineStatus is a point-in-time snapshot exposed by the status API.
type PipelineStatus struct {
	RunID           string        `json:"run_id"`
	State           PipelineState `json:"state"`
	FrameIndex      int           `json:"frame_index"`
	FramesProcessed int           `json:"frames_processed"`
	ActiveTracks    int           `json:"active_tracks"`
	Count           int           `json:"count"`
	StartedAt       time.Time     `json:"started_at"`
	FPS             float64       `json:"fps"`
	LastError       string        `json:"last_error,omitempty"`
}
