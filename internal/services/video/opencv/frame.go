// Package opencv implements the video contracts on top of gocv.
package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"kepler-counter-go/internal/services/video"
)

// MatFrame wraps a gocv.Mat.
type MatFrame struct {
	mat gocv.Mat
}

// NewMatFrame takes ownership of m; Close releases it.
func NewMatFrame(m gocv.Mat) *MatFrame {
	return &MatFrame{mat: m}
}

// Mat exposes the underlying matrix for drawing. It remains owned by the frame.
func (f *MatFrame) Mat() *gocv.Mat {
	return &f.mat
}

func (f *MatFrame) Width() int  { return f.mat.Cols() }
func (f *MatFrame) Height() int { return f.mat.Rows() }
func (f *MatFrame) Empty() bool { return f.mat.Empty() }

// Region returns a view over r. No pixels are copied: the view must be closed
// before its parent, and writes through either are visible in both.
func (f *MatFrame) Region(r image.Rectangle) (video.Frame, error) {
	if err := video.CheckRegion(r, f.Width(), f.Height()); err != nil {
		return nil, fmt.Errorf("region %v of %dx%d frame: %w", r, f.Width(), f.Height(), err)
	}
	return &MatFrame{mat: f.mat.Region(r)}, nil
}

// EncodeJPEG returns a Go-owned copy of the encoded frame.
func (f *MatFrame) EncodeJPEG(quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, f.mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame as JPEG: %w", err)
	}
	defer buf.Close()

	native := buf.GetBytes()
	out := make([]byte, len(native))
	copy(out, native)
	return out, nil
}

func (f *MatFrame) Close() error {
	return f.mat.Close()
}
