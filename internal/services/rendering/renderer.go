// Package rendering draws tracks, the crossing count and the boundary lines
// onto frames.
package rendering

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"kepler-counter-go/internal/geometry"
	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/video"
	"kepler-counter-go/internal/services/video/opencv"
)

// Renderer draws onto gocv-backed frames.
type Renderer struct {
	line1  geometry.Line
	line2  geometry.Line
	robust models.RobustCriteria
}

func NewRenderer(line1, line2 geometry.Line, robust models.RobustCriteria) *Renderer {
	return &Renderer{line1: line1, line2: line2, robust: robust}
}

func matOf(frame video.Frame) (*gocv.Mat, error) {
	mf, ok := frame.(*opencv.MatFrame)
	if !ok {
		return nil, fmt.Errorf("renderer needs an OpenCV frame, got %T", frame)
	}
	return mf.Mat(), nil
}

// DrawTracks draws every robust track: its box, its trajectory and a label
// with class and confidence.
func (r *Renderer) DrawTracks(frame video.Frame, tracks []models.Track) error {
	mat, err := matOf(frame)
	if err != nil {
		return err
	}
	for _, t := range tracks {
		if !t.IsRobust(r.robust) {
			continue
		}
		drawTrack(mat, t)
		drawLabel(mat, t)
	}
	return nil
}

func drawTrack(mat *gocv.Mat, t models.Track) {
	gocv.Rectangle(mat, t.LastRect().Image(), boxColor, 1)

	cl := TrackColor(t.ID())
	traj := t.Trajectory()
	for i := 0; i+1 < len(traj); i++ {
		gocv.Line(mat, toImage(traj[i]), toImage(traj[i+1]), cl, 1)
	}
}

func drawLabel(mat *gocv.Mat, t models.Track) {
	fontFace := gocv.FontHersheySimplex
	fontScale := 0.5
	thickness := 1

	label := TrackLabel(t.Label(), t.Confidence())
	size, baseline := gocv.GetTextSizeWithBaseline(label, fontFace, fontScale, thickness)
	rect := t.LastRect()

	bg := image.Rect(rect.X, rect.Y-size.Y, rect.X+size.X, rect.Y+baseline)
	gocv.Rectangle(mat, bg, labelBgColor, -1)
	gocv.PutText(mat, label, image.Pt(rect.X, rect.Y), fontFace, fontScale, labelTextColor, thickness)
}

// DrawCounterOverlay draws the running count scaled into the count box and
// both boundary lines.
func (r *Renderer) DrawCounterOverlay(frame video.Frame, count int) error {
	mat, err := matOf(frame)
	if err != nil {
		return err
	}

	fontFace := gocv.FontHersheyPlain
	thickness := 1
	text := CountLabel(count)

	unit := gocv.GetTextSize(text, fontFace, 1.0, thickness)
	scale, origin := FitText(unit, CountBox(frame.Width(), frame.Height()))
	if scale > 0 {
		gocv.PutText(mat, text, origin, fontFace, scale, countTextColor, thickness)
	}

	drawLine(mat, r.line1, line1Color)
	drawLine(mat, r.line2, line2Color)
	return nil
}

func drawLine(mat *gocv.Mat, l geometry.Line, c color.RGBA) {
	gocv.Line(mat, toImage(l.Start()), toImage(l.End()), c, 2)
}

func toImage(p geometry.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
