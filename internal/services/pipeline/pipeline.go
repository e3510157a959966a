// Package pipeline drives the per-frame loop: read, crop, detect, filter,
// track, count, render and write.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"kepler-counter-go/internal/helpers"
	"kepler-counter-go/internal/metrics"
	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/detection"
	"kepler-counter-go/internal/services/video"
)

// Options bound and shape one run.
type Options struct {
	StartFrame  int
	EndFrame    int // negative means no limit
	Crop        *image.Rectangle
	FPS         float64 // zero uses the source rate
	EnableCount bool
	RunID       string
	Input       string

	// Snapshots attaches a JPEG crop of the counted track to each crossing
	// event before overlays are drawn.
	Snapshots       bool
	SnapshotQuality int
}

// Deps are the collaborators of a Pipeline. Publisher and Metrics are optional.
type Deps struct {
	Source    video.Source
	Sink      video.Sink
	Strategy  Strategy
	Filter    *detection.Filter
	Tracker   Tracker
	Publisher EventPublisher
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// RunStats is the aggregate throughput of a finished run.
type RunStats struct {
	FramesRead      int
	FramesProcessed int
	Elapsed         time.Duration
	FPS             float64
	Count           int
}

type Pipeline struct {
	deps Deps
	opts Options
	log  zerolog.Logger

	mu     sync.RWMutex
	status models.PipelineStatus
}

func New(deps Deps, opts Options) (*Pipeline, error) {
	var errs []error
	if deps.Source == nil {
		errs = append(errs, errors.New("pipeline: source is required"))
	}
	if deps.Strategy == nil {
		errs = append(errs, errors.New("pipeline: strategy is required"))
	}
	if deps.Filter == nil {
		errs = append(errs, errors.New("pipeline: filter is required"))
	}
	if deps.Tracker == nil {
		errs = append(errs, errors.New("pipeline: tracker is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if deps.Sink == nil {
		deps.Sink = video.DiscardSink{}
	}
	if opts.FPS <= 0 {
		opts.FPS = deps.Source.FPS()
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	if opts.SnapshotQuality <= 0 {
		opts.SnapshotQuality = 85
	}

	return &Pipeline{
		deps: deps,
		opts: opts,
		log:  deps.Logger,
		status: models.PipelineStatus{
			RunID: opts.RunID,
			State: models.PipelineStateIdle,
		},
	}, nil
}

// Run processes the stream until it ends, the end frame is passed, a fatal
// error occurs or ctx is cancelled. Stats are returned in every case.
func (p *Pipeline) Run(ctx context.Context) (RunStats, error) {
	start := time.Now()
	var stats RunStats

	p.update(func(s *models.PipelineStatus) {
		s.StartedAt = start
		s.State = models.PipelineStateSkipping
	})

	err := p.loop(ctx, start, &stats)

	stats.Elapsed = time.Since(start)
	if secs := stats.Elapsed.Seconds(); secs > 0 {
		stats.FPS = float64(stats.FramesProcessed) / secs
	}
	stats.Count = p.deps.Strategy.Count()
	p.deps.Metrics.Throughput(stats.FPS)

	p.update(func(s *models.PipelineStatus) {
		s.State = models.PipelineStateDone
		s.FPS = stats.FPS
		s.Count = stats.Count
		if err != nil {
			s.LastError = err.Error()
		}
	})

	ev := p.log.Info()
	if err != nil && !errors.Is(err, context.Canceled) {
		ev = p.log.Error().Err(err)
	}
	ev.Int("frames_read", stats.FramesRead).
		Int("frames_processed", stats.FramesProcessed).
		Dur("elapsed", stats.Elapsed).
		Float64("fps", stats.FPS).
		Int("count", stats.Count).
		Msg("Processing finished")

	p.publishSummary(stats, err)
	return stats, err
}

func (p *Pipeline) loop(ctx context.Context, start time.Time, stats *RunStats) error {
	src := p.deps.Source
	if p.opts.Crop != nil {
		if err := video.CheckRegion(*p.opts.Crop, src.Width(), src.Height()); err != nil {
			return fmt.Errorf("crop %v does not fit %dx%d input: %w", *p.opts.Crop, src.Width(), src.Height(), err)
		}
	}

	for frameIndex := 0; ; frameIndex++ {
		if err := ctx.Err(); err != nil {
			p.log.Warn().Int("frame", frameIndex).Msg("Processing interrupted")
			return err
		}

		frame, err := src.Read()
		if errors.Is(err, io.EOF) {
			p.log.Info().Int("frames", stats.FramesRead).Str("input", p.opts.Input).Msg("Input stream exhausted")
			return nil
		}
		if err != nil {
			return fmt.Errorf("read frame %d: %w", frameIndex, err)
		}
		if frame.Empty() {
			frame.Close()
			return fmt.Errorf("read frame %d: %w", frameIndex, video.ErrEmptyFrame)
		}
		stats.FramesRead++
		p.deps.Metrics.FrameRead()

		if frameIndex < p.opts.StartFrame {
			frame.Close()
			p.update(func(s *models.PipelineStatus) { s.FrameIndex = frameIndex })
			continue
		}
		if p.opts.EndFrame >= 0 && frameIndex > p.opts.EndFrame {
			frame.Close()
			p.log.Info().Int("end_frame", p.opts.EndFrame).Msg("Reached last frame")
			return nil
		}

		err = p.processFrame(ctx, frame, frameIndex)
		frame.Close()
		if err != nil {
			return err
		}
		stats.FramesProcessed++

		processed := stats.FramesProcessed
		elapsed := time.Since(start).Seconds()
		p.update(func(s *models.PipelineStatus) {
			s.State = models.PipelineStateProcessing
			s.FrameIndex = frameIndex
			s.FramesProcessed = processed
			s.Count = p.deps.Strategy.Count()
			if elapsed > 0 {
				s.FPS = float64(processed) / elapsed
			}
		})
	}
}

func (p *Pipeline) processFrame(ctx context.Context, frame video.Frame, frameIndex int) error {
	began := time.Now()

	work := frame
	if p.opts.Crop != nil {
		view, err := frame.Region(*p.opts.Crop)
		if err != nil {
			return fmt.Errorf("crop frame %d: %w", frameIndex, err)
		}
		defer view.Close()
		work = view
	}

	raw, err := p.deps.Strategy.Detect(ctx, work)
	if err != nil {
		return fmt.Errorf("detect frame %d: %w", frameIndex, err)
	}

	res := p.deps.Filter.Apply(raw, work.Width(), work.Height())
	p.deps.Metrics.Detections(len(res.Detections), res.Malformed, res.RejectedClass, res.RejectedScore)

	p.deps.Tracker.Update(res.Detections, work, p.opts.FPS)
	tracks := p.deps.Tracker.Tracks()
	p.deps.Metrics.ActiveTracks(len(tracks))
	p.update(func(s *models.PipelineStatus) { s.ActiveTracks = len(tracks) })

	if p.opts.EnableCount {
		events := p.deps.Strategy.UpdateCounter(tracks, frameIndex)
		if len(events) > 0 {
			p.deps.Metrics.Crossings(len(events), p.deps.Strategy.Count())
			p.publishCrossings(work, tracks, events)
		}
	}

	if err := p.deps.Strategy.DrawData(work, tracks); err != nil {
		return fmt.Errorf("draw frame %d: %w", frameIndex, err)
	}
	if err := p.deps.Sink.Write(work); err != nil {
		return fmt.Errorf("write frame %d: %w", frameIndex, err)
	}

	p.deps.Metrics.FrameProcessed(time.Since(began))
	return nil
}

func (p *Pipeline) publishCrossings(frame video.Frame, tracks []models.Track, events []models.CrossingEvent) {
	if p.deps.Publisher == nil {
		return
	}
	for _, ev := range events {
		if p.opts.Snapshots {
			p.attachSnapshot(frame, tracks, &ev)
		}
		if err := p.deps.Publisher.PublishCrossing(ev); err != nil {
			p.log.Warn().Err(err).Uint64("track_id", ev.TrackID).Msg("Failed to publish crossing event")
		}
	}
}

func (p *Pipeline) attachSnapshot(frame video.Frame, tracks []models.Track, ev *models.CrossingEvent) {
	for _, t := range tracks {
		if t.ID() != ev.TrackID {
			continue
		}
		snap, err := helpers.CropSnapshot(frame, t.LastRect(), p.opts.SnapshotQuality)
		if err != nil {
			p.log.Debug().Err(err).Uint64("track_id", ev.TrackID).Msg("No snapshot for crossing")
			return
		}
		ev.Snapshot = snap
		return
	}
}

func (p *Pipeline) publishSummary(stats RunStats, runErr error) {
	if p.deps.Publisher == nil {
		return
	}
	summary := models.RunSummary{
		RunID:           p.opts.RunID,
		Input:           p.opts.Input,
		FramesRead:      stats.FramesRead,
		FramesProcessed: stats.FramesProcessed,
		Elapsed:         stats.Elapsed,
		FPS:             stats.FPS,
		Count:           stats.Count,
	}
	if runErr != nil {
		summary.Error = runErr.Error()
	}
	if err := p.deps.Publisher.PublishSummary(summary); err != nil {
		p.log.Warn().Err(err).Msg("Failed to publish run summary")
	}
}

func (p *Pipeline) update(fn func(s *models.PipelineStatus)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.status)
}

// Snapshot returns the current progress. Safe for concurrent use.
func (p *Pipeline) Snapshot() models.PipelineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}
