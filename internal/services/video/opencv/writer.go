package opencv

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"kepler-counter-go/internal/services/video"
)

// DefaultFourCC is the codec the counter writes with.
const DefaultFourCC = "MJPG"

// WriterSink writes frames to a video file.
type WriterSink struct {
	path   string
	writer *gocv.VideoWriter
}

// OpenWriter creates path for width x height colour frames at fps.
func OpenWriter(path, fourcc string, fps float64, width, height int) (*WriterSink, error) {
	if fourcc == "" {
		fourcc = DefaultFourCC
	}
	w, err := gocv.VideoWriterFile(path, fourcc, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", video.ErrOpen, path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("%w: %s", video.ErrOpen, path)
	}

	log.Info().
		Str("output", path).
		Str("fourcc", fourcc).
		Float64("fps", fps).
		Int("width", width).
		Int("height", height).
		Msg("VideoWriter opened")

	return &WriterSink{path: path, writer: w}, nil
}

// Write accepts frames produced by this package only.
func (s *WriterSink) Write(f video.Frame) error {
	mf, ok := f.(*MatFrame)
	if !ok {
		return errors.New("opencv writer: frame is not backed by a gocv.Mat")
	}
	if err := s.writer.Write(mf.mat); err != nil {
		return fmt.Errorf("failed to write frame to %s: %w", s.path, err)
	}
	return nil
}

func (s *WriterSink) Close() error {
	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	return err
}
