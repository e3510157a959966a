// Package video defines the frame, source and sink contracts the counting
// pipeline is written against. OpenCV-backed implementations live in the
// opencv subpackage so the pipeline can be exercised without cgo.
package video

import (
	"errors"
	"image"
)

var (
	// ErrOpen is returned when an input or output stream cannot be opened.
	ErrOpen = errors.New("video: stream cannot be opened")
	// ErrEmptyFrame is returned when a read succeeds but yields an empty frame.
	ErrEmptyFrame = errors.New("video: empty frame read from open stream")
	// ErrRegionOutOfBounds is returned when a crop rectangle leaves the frame.
	ErrRegionOutOfBounds = errors.New("video: region outside frame bounds")
)

// Frame is a decoded picture. Region returns a shallow view sharing pixel data
// with its parent: drawing on one is visible in the other.
type Frame interface {
	Width() int
	Height() int
	Empty() bool
	Region(r image.Rectangle) (Frame, error)
	EncodeJPEG(quality int) ([]byte, error)
	Close() error
}

// Source yields frames in stream order. Read returns io.EOF once the stream is
// exhausted and ErrEmptyFrame when the stream claims data but the frame is empty.
type Source interface {
	Read() (Frame, error)
	Width() int
	Height() int
	FPS() float64
	Close() error
}

// Sink receives rendered frames.
type Sink interface {
	Write(f Frame) error
	Close() error
}

// Bounds returns the full-frame rectangle for a width/height pair.
func Bounds(width, height int) image.Rectangle {
	return image.Rect(0, 0, width, height)
}

// CheckRegion reports ErrRegionOutOfBounds unless r is non-empty and fully inside the frame.
func CheckRegion(r image.Rectangle, width, height int) error {
	if r.Empty() || !r.In(Bounds(width, height)) {
		return ErrRegionOutOfBounds
	}
	return nil
}

// DiscardSink drops every frame. Used when no output path is configured.
type DiscardSink struct{}

func (DiscardSink) Write(Frame) error { return nil }
func (DiscardSink) Close() error      { return nil }
