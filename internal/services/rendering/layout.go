package rendering

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// palette colors trajectories by track id.
var palette = []color.RGBA{
	{R: 0, G: 0, B: 255, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 255, G: 127, B: 255, A: 255},
	{R: 255, G: 0, B: 127, A: 255},
	{R: 127, G: 0, B: 127, A: 255},
}

var (
	boxColor       = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	labelBgColor   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	labelTextColor = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	countTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	line1Color     = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	line2Color     = color.RGBA{R: 0, G: 220, B: 120, A: 255}
)

// countBoxScale sizes the count overlay relative to the frame.
const countBoxScale = 0.2

// countBoxTop is the y offset of the count overlay.
const countBoxTop = 200

// TrackColor returns the trajectory color for a track id.
func TrackColor(id uint64) color.RGBA {
	return palette[id%uint64(len(palette))]
}

// TrackLabel formats the text shown above a track box.
func TrackLabel(label string, confidence float32) string {
	return fmt.Sprintf("%s: %f", label, confidence)
}

// CountLabel formats the count overlay text.
func CountLabel(count int) string {
	return fmt.Sprintf("Count : %d", count)
}

// CountBox returns the rectangle the count text is fitted into.
func CountBox(frameWidth, frameHeight int) image.Rectangle {
	w := int(float64(frameWidth) * countBoxScale)
	h := int(float64(frameHeight) * countBoxScale)
	return image.Rect(0, countBoxTop, w, countBoxTop+h)
}

// FitText scales text of the given unit size (measured at scale 1.0) to fill
// target while keeping its aspect, centering it along the slack axis. It
// returns the font scale and the baseline origin for PutText.
func FitText(unit image.Point, target image.Rectangle) (float64, image.Point) {
	if unit.X <= 0 || unit.Y <= 0 || target.Empty() {
		return 0, image.Pt(target.Min.X, target.Max.Y)
	}
	sx := float64(target.Dx()) / float64(unit.X)
	sy := float64(target.Dy()) / float64(unit.Y)
	scale := math.Min(sx, sy)

	marginX, marginY := 0, 0
	if scale != sx {
		marginX = int(float64(target.Dx()) * (sx - scale) / sx * 0.5)
	}
	if scale != sy {
		marginY = int(float64(target.Dy()) * (sy - scale) / sy * 0.5)
	}
	return scale, image.Pt(target.Min.X+marginX, target.Max.Y-marginY)
}
