package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kepler-counter-go/internal/api"
	"kepler-counter-go/internal/config"
	"kepler-counter-go/internal/logging"
	"kepler-counter-go/internal/services"
	"kepler-counter-go/internal/services/pipeline"
	"kepler-counter-go/internal/services/video"
	"kepler-counter-go/internal/services/video/opencv"
)

// Exit codes.
const (
	exitOK     = 0
	exitIO     = 1
	exitConfig = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup structured logging
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration: .env and environment first, flags override
	cfg := config.Load()
	if err := cfg.ParseArgs("counter", os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		log.Error().Err(err).Msg("Invalid command line")
		return exitConfig
	}
	logging.Setup(cfg)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return exitConfig
	}

	runID := uuid.NewString()
	logger := logging.NewServiceLogger(runID, "counter")
	logger.Info().
		Str("version", cfg.Version).
		Str("input", cfg.Input).
		Str("output", cfg.Output).
		Str("detector", cfg.Detector).
		Msg("Starting Kepler line counter")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, err := opencv.OpenCapture(cfg.Input)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open input")
		return exitIO
	}
	defer source.Close()

	fps := cfg.FPS
	if fps <= 0 {
		fps = source.FPS()
	}
	if fps <= 0 {
		fps = 30
	}

	crop := cfg.CropRect()
	outWidth, outHeight := source.Width(), source.Height()
	if crop != nil {
		if err := video.CheckRegion(*crop, source.Width(), source.Height()); err != nil {
			logger.Error().Err(err).
				Str("crop", crop.String()).
				Int("width", source.Width()).
				Int("height", source.Height()).
				Msg("Crop rectangle does not fit the input")
			return exitConfig
		}
		outWidth, outHeight = crop.Dx(), crop.Dy()
	}

	var sink video.Sink = video.DiscardSink{}
	if cfg.Output != "" {
		w, err := opencv.OpenWriter(cfg.Output, cfg.OutputFourCC, fps, outWidth, outHeight)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to open output")
			return exitIO
		}
		sink = w
	}
	defer sink.Close()

	sc, err := services.NewServiceContainer(cfg, runID)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize services")
		return exitIO
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := sc.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("Service shutdown failed")
		}
	}()
	logger.Info().
		Bool("count", cfg.Count).
		Str("direction", sc.Counter.Mode().String()).
		Float64("fps", fps).
		Msg("Services initialized")

	p, err := pipeline.New(pipeline.Deps{
		Source:    source,
		Sink:      sink,
		Strategy:  sc.Strategy(),
		Filter:    sc.Filter,
		Tracker:   sc.Tracker,
		Publisher: sc.Publisher(),
		Metrics:   sc.Metrics,
		Logger:    logging.NewServiceLogger(runID, "pipeline"),
	}, pipeline.Options{
		StartFrame:  cfg.StartFrame,
		EndFrame:    cfg.EndFrame,
		Crop:        crop,
		FPS:         fps,
		EnableCount: cfg.Count,
		RunID:       runID,
		Input:       cfg.Input,

		Snapshots:       cfg.CrossingSnapshots,
		SnapshotQuality: cfg.SnapshotQuality,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create pipeline")
		return exitIO
	}

	if cfg.APIEnabled {
		server := api.NewServer(cfg, runID, p, sc.Registry)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error().Err(err).Msg("Status API failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("Status API forced to shutdown")
			}
		}()
	}

	stats, err := p.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("Shutdown signal received")
	case errors.Is(err, video.ErrRegionOutOfBounds):
		return exitConfig
	default:
		return exitIO
	}

	fmt.Fprintf(os.Stdout, "Processed %d frames in %s (%.2f fps), count %d\n",
		stats.FramesProcessed, stats.Elapsed.Round(time.Millisecond), stats.FPS, stats.Count)
	return exitOK
}
