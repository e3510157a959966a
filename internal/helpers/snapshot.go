package helpers

import (
	"fmt"
	"image"

	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/video"
)

// minCropSize keeps tiny boxes visible in snapshots.
const minCropSize = 10

// SnapshotRect clips box to a width x height frame and grows it to at least
// minCropSize in each direction around its centre. It returns an empty
// rectangle when the box lies entirely outside the frame.
func SnapshotRect(box models.Rect, width, height int) image.Rectangle {
	frame := image.Rect(0, 0, width, height)
	r := box.Image().Intersect(frame)
	if r.Empty() {
		return image.Rectangle{}
	}

	if r.Dx() < minCropSize {
		center := (r.Min.X + r.Max.X) / 2
		r.Min.X = max(0, center-minCropSize/2)
		r.Max.X = min(width, r.Min.X+minCropSize)
	}
	if r.Dy() < minCropSize {
		center := (r.Min.Y + r.Max.Y) / 2
		r.Min.Y = max(0, center-minCropSize/2)
		r.Max.Y = min(height, r.Min.Y+minCropSize)
	}
	return r
}

// CropSnapshot encodes the part of frame under box as JPEG.
func CropSnapshot(frame video.Frame, box models.Rect, quality int) ([]byte, error) {
	r := SnapshotRect(box, frame.Width(), frame.Height())
	if r.Empty() {
		return nil, fmt.Errorf("box %+v is outside the %dx%d frame", box, frame.Width(), frame.Height())
	}

	view, err := frame.Region(r)
	if err != nil {
		return nil, err
	}
	defer view.Close()

	return view.EncodeJPEG(quality)
}
