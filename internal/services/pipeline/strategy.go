package pipeline

import (
	"context"

	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/counting"
	"kepler-counter-go/internal/services/detection"
	"kepler-counter-go/internal/services/video"
)

// Tracker is the multi-object tracker driven by the frame loop.
type Tracker interface {
	Update(dets []models.Detection, frame video.Frame, fps float64)
	// Tracks returns views valid until the next Update.
	Tracks() []models.Track
}

// Strategy supplies the detector-specific hooks of the frame loop.
type Strategy interface {
	Detect(ctx context.Context, frame video.Frame) ([]models.RawDetection, error)
	UpdateCounter(tracks []models.Track, frameIndex int) []models.CrossingEvent
	DrawData(frame video.Frame, tracks []models.Track) error
	Count() int
}

// Renderer draws the per-frame overlays.
type Renderer interface {
	DrawTracks(frame video.Frame, tracks []models.Track) error
	DrawCounterOverlay(frame video.Frame, count int) error
}

// EventPublisher forwards crossing events and the final run summary.
type EventPublisher interface {
	PublishCrossing(ev models.CrossingEvent) error
	PublishSummary(s models.RunSummary) error
}

// LineCounterStrategy combines a detector, the line-crossing counter and a
// renderer. With counting disabled UpdateCounter is a no-op and the count
// overlay is not drawn.
type LineCounterStrategy struct {
	detector    detection.Detector
	counter     *counting.Counter
	renderer    Renderer
	enableCount bool
}

func NewLineCounterStrategy(detector detection.Detector, counter *counting.Counter, renderer Renderer, enableCount bool) *LineCounterStrategy {
	return &LineCounterStrategy{
		detector:    detector,
		counter:     counter,
		renderer:    renderer,
		enableCount: enableCount && counter != nil,
	}
}

func (s *LineCounterStrategy) Detect(ctx context.Context, frame video.Frame) ([]models.RawDetection, error) {
	return s.detector.Detect(ctx, frame)
}

// UpdateCounter evaluates crossings and forgets state for tracks that are no
// longer live.
func (s *LineCounterStrategy) UpdateCounter(tracks []models.Track, frameIndex int) []models.CrossingEvent {
	if !s.enableCount {
		return nil
	}
	events := s.counter.Update(tracks, frameIndex)

	live := make([]uint64, len(tracks))
	for i, t := range tracks {
		live[i] = t.ID()
	}
	s.counter.Prune(live)
	return events
}

func (s *LineCounterStrategy) DrawData(frame video.Frame, tracks []models.Track) error {
	if s.renderer == nil {
		return nil
	}
	if err := s.renderer.DrawTracks(frame, tracks); err != nil {
		return err
	}
	if s.enableCount {
		return s.renderer.DrawCounterOverlay(frame, s.counter.Count())
	}
	return nil
}

func (s *LineCounterStrategy) Count() int {
	if s.counter == nil {
		return 0
	}
	return s.counter.Count()
}
