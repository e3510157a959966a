package models

import (
	"image"
	"math"
	"strconv"
)

// Raw detector record layout: [imageID, label, score, xmin, ymin, xmax, ymax].
// Coordinates are normalized to [0,1] of the frame width/height.
const (
	RawImageID = iota
	RawLabel
	RawScore
	RawXMin
	RawYMin
	RawXMax
	RawYMax

	RawDetectionFields
)

// RawDetection is one record emitted by a detector for one frame.
type RawDetection []float32

// Valid reports whether the record has exactly the expected field count.
func (r RawDetection) Valid() bool {
	return len(r) == RawDetectionFields
}

func (r RawDetection) Label() float32 { return r[RawLabel] }
func (r RawDetection) Score() float32 { return r[RawScore] }

// Rect is a pixel-space rectangle. Width and Height are not validated and can
// be negative when the detector emits xmax < xmin.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Image converts to an image.Rectangle. image.Rect canonicalizes, so a negative
// width or height comes back as a well-formed rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Center returns the rectangle centre in floating point.
func (r Rect) Center() (float64, float64) {
	return float64(r.X) + float64(r.Width)/2, float64(r.Y) + float64(r.Height)/2
}

// Translate shifts the rectangle by (dx, dy), rounding to whole pixels.
func (r Rect) Translate(dx, dy float64) Rect {
	r.X += int(math.Round(dx))
	r.Y += int(math.Round(dy))
	return r
}

// Detection is a filtered, pixel-space detection handed to the tracker.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	Box        Rect    `json:"box"`
}

// LabelString renders a numeric class id the way detections carry it.
func LabelString(label float32) string {
	return strconv.Itoa(int(label))
}
