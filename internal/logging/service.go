package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"kepler-counter-go/internal/config"
)

// Setup configures the global logger: console output on stderr, the level
// from cfg and, when enabled, a tee into the Logdy web UI.
func Setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if cfg.LogdyEnabled {
		w, _ := StartLogdy(cfg)
		out = zerolog.MultiLevelWriter(out, w)
	}
	log.Logger = log.Output(out)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func NewServiceLogger(runID, service string) zerolog.Logger {
	return log.With().Str("run_id", runID).Str("service", service).Logger()
}

func WithTrack(base zerolog.Logger, trackID uint64) zerolog.Logger {
	return base.With().Uint64("track_id", trackID).Logger()
}
