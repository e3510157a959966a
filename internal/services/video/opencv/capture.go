package opencv

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"kepler-counter-go/internal/services/video"
)

// CaptureSource reads frames from a file, device or stream URL.
type CaptureSource struct {
	path    string
	capture *gocv.VideoCapture
	width   int
	height  int
	fps     float64
}

// OpenCapture opens path with OpenCV's default backend selection.
func OpenCapture(path string) (*CaptureSource, error) {
	capture, err := gocv.OpenVideoCapture(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", video.ErrOpen, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", video.ErrOpen, path)
	}

	s := &CaptureSource{
		path:    path,
		capture: capture,
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
		fps:     capture.Get(gocv.VideoCaptureFPS),
	}

	log.Info().
		Str("input", path).
		Int("width", s.width).
		Int("height", s.height).
		Float64("fps", s.fps).
		Msg("VideoCapture opened")

	return s, nil
}

// Read returns the next frame. A failed read is the end of the stream; a
// successful read that yields no pixels is ErrEmptyFrame.
func (s *CaptureSource) Read() (video.Frame, error) {
	img := gocv.NewMat()
	if ok := s.capture.Read(&img); !ok {
		img.Close()
		return nil, io.EOF
	}
	if img.Empty() {
		img.Close()
		return nil, video.ErrEmptyFrame
	}
	return NewMatFrame(img), nil
}

func (s *CaptureSource) Width() int   { return s.width }
func (s *CaptureSource) Height() int  { return s.height }
func (s *CaptureSource) FPS() float64 { return s.fps }

func (s *CaptureSource) Close() error {
	if s.capture == nil {
		return nil
	}
	err := s.capture.Close()
	s.capture = nil
	return err
}
