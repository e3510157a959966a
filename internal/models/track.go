package models

import "kepler-counter-go/internal/geometry"

// RobustCriteria gates which tracks are considered stable enough to draw or count.
type RobustCriteria struct {
	MinTraceLength int     // trajectory must be strictly longer
	MinRawRatio    float64 // matched points / trajectory length, strictly greater
	MinAspect      float64 // width/height strictly inside (MinAspect, MaxAspect)
	MaxAspect      float64
}

// DefaultRobustCriteria matches the drawing gate of the reference pipeline.
func DefaultRobustCriteria() RobustCriteria {
	return RobustCriteria{
		MinTraceLength: 5,
		MinRawRatio:    0.2,
		MinAspect:      0.1,
		MaxAspect:      8.0,
	}
}

// Track is a read-only view of a tracker-owned track. Views are valid until
// the tracker's next Update.
type Track interface {
	ID() uint64
	// Trajectory returns predicted positions in chronological order.
	Trajectory() []geometry.Point
	LastRect() Rect
	Label() string
	Confidence() float32
	IsRobust(c RobustCriteria) bool
}
