package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"kepler-counter-go/internal/config"
	"kepler-counter-go/internal/logging"
	"kepler-counter-go/internal/metrics"
	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/counting"
	"kepler-counter-go/internal/services/detection"
	"kepler-counter-go/internal/services/detection/remote"
	"kepler-counter-go/internal/services/detection/ssd"
	"kepler-counter-go/internal/services/messaging"
	"kepler-counter-go/internal/services/pipeline"
	"kepler-counter-go/internal/services/rendering"
	"kepler-counter-go/internal/services/tracking"
)

// ServiceContainer holds all services of one counting run
type ServiceContainer struct {
	Config   *config.Config
	RunID    string
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Detector  detection.Detector
	Filter    *detection.Filter
	Tracker   *tracking.Tracker
	Counter   *counting.Counter
	Renderer  *rendering.Renderer
	Messaging *messaging.Service

	detectorCloser io.Closer
}

// NewServiceContainer creates the detector backend selected by cfg and wires
// the remaining services around it
func NewServiceContainer(cfg *config.Config, runID string) (*ServiceContainer, error) {
	detector, closer, err := newDetector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize detector: %w", err)
	}

	sc, err := newContainer(cfg, runID, detector, closer)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return sc, nil
}

func newContainer(cfg *config.Config, runID string, detector detection.Detector, closer io.Closer) (*ServiceContainer, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	buckets, err := metrics.ParseBuckets(cfg.FrameTimeBuckets)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(reg, buckets)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	robust := models.DefaultRobustCriteria()
	sc := &ServiceContainer{
		Config:   cfg,
		RunID:    runID,
		Registry: reg,
		Metrics:  m,
		Detector: detector,
		Filter: detection.NewFilter(detection.FilterConfig{
			Threshold:      float32(cfg.Threshold),
			UseAllowlist:   cfg.DesiredDetect,
			DesiredObjects: cfg.DesiredObjectSet(),
		}, logging.NewServiceLogger(runID, "detection")),
		Tracker: tracking.New(
			tracking.Settings{DistThreshold: cfg.TrackDistThreshold},
			logging.NewServiceLogger(runID, "tracking"),
		),
		Counter: counting.New(
			models.DirectionMode(cfg.Direction),
			cfg.Line1,
			cfg.Line2,
			counting.Options{
				RobustOnly: cfg.CountRobustOnly,
				Robust:     robust,
				RunID:      runID,
			},
			logging.NewServiceLogger(runID, "counting"),
		),
		detectorCloser: closer,
	}
	line1, line2 := sc.Counter.Lines()
	sc.Renderer = rendering.NewRenderer(line1, line2, robust)

	if cfg.NatsEnabled {
		svc, err := messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Continuing without NATS publishing")
		} else {
			sc.Messaging = svc
		}
	}

	return sc, nil
}

// Strategy returns the line counting strategy over the container's services
func (sc *ServiceContainer) Strategy() pipeline.Strategy {
	return pipeline.NewLineCounterStrategy(sc.Detector, sc.Counter, sc.Renderer, sc.Config.Count)
}

// Publisher returns the event publisher, or nil when NATS is not connected
func (sc *ServiceContainer) Publisher() pipeline.EventPublisher {
	if sc.Messaging == nil {
		return nil
	}
	return sc.Messaging
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error
	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	if sc.detectorCloser != nil {
		if err := sc.detectorCloser.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func newDetector(cfg *config.Config) (detection.Detector, io.Closer, error) {
	switch cfg.Detector {
	case config.DetectorRemote:
		d, err := remote.New(remote.Config{Endpoint: cfg.DetectorURL, Timeout: cfg.DetectorTimeout})
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	default:
		mean, err := detection.ParseMeanValue(cfg.MeanValue)
		if err != nil {
			return nil, nil, err
		}
		d, err := ssd.New(ssd.Config{
			ModelPath:   cfg.Model,
			WeightsPath: cfg.Weight,
			Mean:        mean,
			InputSize:   cfg.InputSize,
		})
		if err != nil {
			return nil, nil, err
		}
		return d, d, nil
	}
}
