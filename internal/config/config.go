package config

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"kepler-counter-go/internal/geometry"
	"kepler-counter-go/internal/metrics"
	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/detection"
)

// Detector backends.
const (
	DetectorSSD    = "ssd"
	DetectorRemote = "remote"
)

type Config struct {
	// Application
	Version     string
	Environment string
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Status API
	APIEnabled bool
	Port       int

	// Input / output
	Input        string
	Output       string
	OutputFourCC string
	FPS          float64

	// Frame bounds; EndFrame < 0 means until the stream ends
	StartFrame int
	EndFrame   int

	// Region of interest
	Crop       bool
	CropX      int
	CropY      int
	CropWidth  int
	CropHeight int

	// Counting
	Count           bool
	Direction       int
	Line1           geometry.Line
	Line2           geometry.Line
	CountRobustOnly bool

	// Crossing snapshots (JPEG crop attached to each crossing event)
	CrossingSnapshots bool
	SnapshotQuality   int

	// Detection filter
	Threshold      float64
	DesiredDetect  bool
	DesiredObjects string

	// Detector backend
	Detector        string
	Model           string
	Weight          string
	MeanFile        string
	MeanValue       string
	InputSize       int
	DetectorURL     string
	DetectorTimeout time.Duration

	// Tracker
	TrackDistThreshold float64

	// NATS (crossing events and run summary)
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	CrossingsSubject   string
	SummarySubject     string

	// Metrics
	FrameTimeBuckets string

	// Graceful Shutdown
	ShutdownTimeout time.Duration

	// malformed environment values found by Load, reported by Validate
	envErrs []error
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	env := &envReader{}
	cfg := &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: env.Bool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    env.Int("LOGDY_PORT", 8080),

		// Status API
		APIEnabled: env.Bool("API_ENABLED", true),
		Port:       env.Int("PORT", 8000),

		// Input / output
		Input:        getEnv("INPUT", ""),
		Output:       getEnv("OUTPUT", ""),
		OutputFourCC: getEnv("OUTPUT_FOURCC", "MJPG"),
		FPS:          env.Float("FPS", 30),

		StartFrame: env.Int("START_FRAME", 0),
		EndFrame:   env.Int("END_FRAME", -1),

		Crop:       env.Bool("CROP", false),
		CropX:      env.Int("CROP_X", 0),
		CropY:      env.Int("CROP_Y", 0),
		CropWidth:  env.Int("CROP_WIDTH", 0),
		CropHeight: env.Int("CROP_HEIGHT", 0),

		Count:     env.Bool("COUNT", false),
		Direction: env.Int("DIRECTION", 0),
		Line1: geometry.Line{
			X1: env.Float("L1P1_X", 0),
			Y1: env.Float("L1P1_Y", 0),
			X2: env.Float("L1P2_X", 0),
			Y2: env.Float("L1P2_Y", 0),
		},
		Line2: geometry.Line{
			X1: env.Float("L2P1_X", 0),
			Y1: env.Float("L2P1_Y", 0),
			X2: env.Float("L2P2_X", 0),
			Y2: env.Float("L2P2_Y", 0),
		},
		CountRobustOnly: env.Bool("COUNT_ROBUST_ONLY", false),

		CrossingSnapshots: env.Bool("CROSSING_SNAPSHOTS", false),
		SnapshotQuality:   env.Int("SNAPSHOT_QUALITY", 85),

		Threshold:      env.Float("THRESHOLD", 0.5),
		DesiredDetect:  env.Bool("DESIRED_DETECT", false),
		DesiredObjects: getEnv("DESIRED_OBJECTS", ""),

		Detector:        getEnv("DETECTOR", DetectorSSD),
		Model:           getEnv("MODEL", ""),
		Weight:          getEnv("WEIGHT", ""),
		MeanFile:        getEnv("MEAN_FILE", ""),
		MeanValue:       getEnv("MEAN_VALUE", "104,117,123"),
		InputSize:       env.Int("INPUT_SIZE", 300),
		DetectorURL:     getEnv("DETECTOR_GRPC_URL", "localhost:50052"),
		DetectorTimeout: env.Duration("DETECTOR_TIMEOUT", 5*time.Second),

		TrackDistThreshold: env.Float("TRACK_DIST_THRESHOLD", 100),

		NatsEnabled:        env.Bool("NATS_ENABLED", false),
		NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
		NatsConnectTimeout: env.Duration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  env.Duration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  env.Int("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		CrossingsSubject:   getEnv("CROSSINGS_SUBJECT", "counter.crossings"),
		SummarySubject:     getEnv("SUMMARY_SUBJECT", "counter.summary"),

		FrameTimeBuckets: getEnv("FRAME_TIME_BUCKETS", ""),

		ShutdownTimeout: env.Duration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	cfg.envErrs = env.errs
	return cfg
}

// NewFlagSet binds the command line options to c, using the current values as
// defaults so flags override the environment.
func (c *Config) NewFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: %s [options] <input>\n", name)
		fs.PrintDefaults()
	}

	fs.StringVar(&c.Output, "output", c.Output, "output video file (MJPG); empty disables writing")
	fs.IntVar(&c.StartFrame, "start_frame", c.StartFrame, "first frame to process")
	fs.IntVar(&c.EndFrame, "end_frame", c.EndFrame, "last frame to process, -1 for the whole stream")
	fs.Float64Var(&c.FPS, "fps", c.FPS, "frame rate handed to the tracker and the writer (0 uses the input rate)")

	fs.BoolVar(&c.Count, "count", c.Count, "enable line-crossing counting")
	fs.IntVar(&c.Direction, "direction", c.Direction, "0: line1 then line2, 1: line2 then line1, 2: either")
	fs.Float64Var(&c.Line1.X1, "l1p1_x", c.Line1.X1, "line1 start x")
	fs.Float64Var(&c.Line1.Y1, "l1p1_y", c.Line1.Y1, "line1 start y")
	fs.Float64Var(&c.Line1.X2, "l1p2_x", c.Line1.X2, "line1 end x")
	fs.Float64Var(&c.Line1.Y2, "l1p2_y", c.Line1.Y2, "line1 end y")
	fs.Float64Var(&c.Line2.X1, "l2p1_x", c.Line2.X1, "line2 start x")
	fs.Float64Var(&c.Line2.Y1, "l2p1_y", c.Line2.Y1, "line2 start y")
	fs.Float64Var(&c.Line2.X2, "l2p2_x", c.Line2.X2, "line2 end x")
	fs.Float64Var(&c.Line2.Y2, "l2p2_y", c.Line2.Y2, "line2 end y")
	fs.BoolVar(&c.CountRobustOnly, "count_robust_only", c.CountRobustOnly, "only count tracks that pass the robustness gate")

	fs.BoolVar(&c.Crop, "crop", c.Crop, "process only the crop rectangle")
	fs.IntVar(&c.CropX, "crop_x", c.CropX, "crop left edge")
	fs.IntVar(&c.CropY, "crop_y", c.CropY, "crop top edge")
	fs.IntVar(&c.CropWidth, "crop_width", c.CropWidth, "crop width")
	fs.IntVar(&c.CropHeight, "crop_height", c.CropHeight, "crop height")

	fs.Float64Var(&c.Threshold, "threshold", c.Threshold, "minimum detection confidence")
	fs.BoolVar(&c.DesiredDetect, "desired_detect", c.DesiredDetect, "keep only classes listed in desired_objects")
	fs.StringVar(&c.DesiredObjects, "desired_objects", c.DesiredObjects, "comma separated class ids")

	fs.StringVar(&c.Detector, "detector", c.Detector, "detector backend: ssd or remote")
	fs.StringVar(&c.Model, "model", c.Model, "Caffe prototxt")
	fs.StringVar(&c.Weight, "weight", c.Weight, "Caffe weights")
	fs.StringVar(&c.MeanFile, "mean_file", c.MeanFile, "mean file (not supported, use mean_value)")
	fs.StringVar(&c.MeanValue, "mean_value", c.MeanValue, "one or three comma separated channel means")
	fs.StringVar(&c.DetectorURL, "detector_url", c.DetectorURL, "gRPC detector endpoint")

	fs.StringVar(&c.LogLevel, "log_level", c.LogLevel, "log level")
	return fs
}

// ParseArgs parses command line arguments into c. The single positional
// argument is the input stream.
func (c *Config) ParseArgs(name string, args []string) error {
	fs := c.NewFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		c.Input = fs.Arg(0)
	default:
		return fmt.Errorf("expected one input, got %d: %s", fs.NArg(), strings.Join(fs.Args(), " "))
	}
	return nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.envErrs...)

	if c.Input == "" {
		errs = append(errs, errors.New("input is required"))
	}
	if c.FPS < 0 {
		errs = append(errs, fmt.Errorf("fps must not be negative, got %v", c.FPS))
	}
	if c.StartFrame < 0 {
		errs = append(errs, fmt.Errorf("start_frame must not be negative, got %d", c.StartFrame))
	}
	if c.EndFrame >= 0 && c.StartFrame > c.EndFrame {
		errs = append(errs, fmt.Errorf("start_frame %d is after end_frame %d", c.StartFrame, c.EndFrame))
	}

	if c.Crop {
		if c.CropX < 0 || c.CropY < 0 {
			errs = append(errs, fmt.Errorf("crop origin must not be negative, got (%d,%d)", c.CropX, c.CropY))
		}
		if c.CropWidth <= 0 || c.CropHeight <= 0 {
			errs = append(errs, fmt.Errorf("crop size must be positive, got %dx%d", c.CropWidth, c.CropHeight))
		}
	}

	if c.Count {
		if !models.DirectionMode(c.Direction).IsValid() {
			errs = append(errs, fmt.Errorf("direction must be 0, 1 or 2, got %d", c.Direction))
		}
		if c.Line1.IsDegenerate() {
			errs = append(errs, fmt.Errorf("line1 %s has zero length", c.Line1))
		}
		if c.Line2.IsDegenerate() {
			errs = append(errs, fmt.Errorf("line2 %s has zero length", c.Line2))
		}
	}

	if c.CrossingSnapshots && (c.SnapshotQuality < 1 || c.SnapshotQuality > 100) {
		errs = append(errs, fmt.Errorf("snapshot quality must be within [1,100], got %d", c.SnapshotQuality))
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be within [0,1], got %v", c.Threshold))
	}
	if _, err := detection.ParseDesiredObjects(c.DesiredObjects); err != nil {
		errs = append(errs, err)
	}

	switch c.Detector {
	case DetectorSSD:
		if c.Model == "" || c.Weight == "" {
			errs = append(errs, errors.New("ssd detector needs model and weight"))
		}
		if c.MeanFile != "" {
			errs = append(errs, errors.New("mean_file is not supported, provide mean_value instead"))
		}
		if _, err := detection.ParseMeanValue(c.MeanValue); err != nil {
			errs = append(errs, fmt.Errorf("mean_value: %w", err))
		}
	case DetectorRemote:
		if c.DetectorURL == "" {
			errs = append(errs, errors.New("remote detector needs detector_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown detector %q", c.Detector))
	}

	if _, err := metrics.ParseBuckets(c.FrameTimeBuckets); err != nil {
		errs = append(errs, fmt.Errorf("frame time buckets: %w", err))
	}

	return errors.Join(errs...)
}

// CropRect returns the crop rectangle, or nil when cropping is off.
func (c *Config) CropRect() *image.Rectangle {
	if !c.Crop {
		return nil
	}
	r := image.Rect(c.CropX, c.CropY, c.CropX+c.CropWidth, c.CropY+c.CropHeight)
	return &r
}

// DesiredObjectSet parses the allowlist. Call after Validate.
func (c *Config) DesiredObjectSet() detection.DesiredObjectSet {
	set, _ := detection.ParseDesiredObjects(c.DesiredObjects)
	return set
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed environment values. A malformed value keeps the
// default and is recorded so Validate can report it.
type envReader struct {
	errs []error
}

func (e *envReader) fail(key, value string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s=%q: %w", key, value, err))
}

func (e *envReader) Int(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
		e.fail(key, value, err)
	}
	return defaultValue
}

func (e *envReader) Float(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
		e.fail(key, value, err)
	}
	return defaultValue
}

func (e *envReader) Duration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
		e.fail(key, value, err)
	}
	return defaultValue
}

func (e *envReader) Bool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
		e.fail(key, value, err)
	}
	return defaultValue
}
