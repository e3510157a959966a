// Package detection turns raw detector output into pixel-space detections.
package detection

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/video"
)

// Detector produces raw records for one frame. Implementations must not
// modify the frame.
type Detector interface {
	Detect(ctx context.Context, frame video.Frame) ([]models.RawDetection, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, frame video.Frame) ([]models.RawDetection, error)

func (f DetectorFunc) Detect(ctx context.Context, frame video.Frame) ([]models.RawDetection, error) {
	return f(ctx, frame)
}

// FilterConfig configures Filter.
type FilterConfig struct {
	Threshold      float32
	UseAllowlist   bool
	DesiredObjects DesiredObjectSet
}

// Filter applies the class allowlist and confidence threshold and converts
// normalized coordinates to pixels.
type Filter struct {
	cfg FilterConfig
	log zerolog.Logger
}

// FilterResult is the outcome of filtering one frame.
type FilterResult struct {
	Detections    []models.Detection
	Raw           int
	Malformed     int
	RejectedClass int
	RejectedScore int
}

func NewFilter(cfg FilterConfig, logger zerolog.Logger) *Filter {
	return &Filter{cfg: cfg, log: logger}
}

// Apply filters one frame of raw records. Malformed records are skipped with a
// warning rather than aborting the frame.
func (f *Filter) Apply(raw []models.RawDetection, frameWidth, frameHeight int) FilterResult {
	res := FilterResult{
		Detections: make([]models.Detection, 0, len(raw)),
		Raw:        len(raw),
	}

	for i, d := range raw {
		if !d.Valid() {
			res.Malformed++
			f.log.Warn().
				Int("index", i).
				Int("fields", len(d)).
				Int("expected_fields", models.RawDetectionFields).
				Msg("Skipping malformed detection record")
			continue
		}

		if f.cfg.UseAllowlist && !f.cfg.DesiredObjects.Contains(d.Label()) {
			res.RejectedClass++
			continue
		}

		if d.Score() < f.cfg.Threshold {
			res.RejectedScore++
			continue
		}

		res.Detections = append(res.Detections, models.Detection{
			Label:      models.LabelString(d.Label()),
			Confidence: d.Score(),
			Box:        toPixels(d, frameWidth, frameHeight),
		})
	}

	return res
}

func toPixels(d models.RawDetection, width, height int) models.Rect {
	xLeft := scale(d[models.RawXMin], width)
	yTop := scale(d[models.RawYMin], height)
	xRight := scale(d[models.RawXMax], width)
	yBottom := scale(d[models.RawYMax], height)
	return models.Rect{X: xLeft, Y: yTop, Width: xRight - xLeft, Height: yBottom - yTop}
}

func scale(v float32, size int) int {
	return int(math.Floor(float64(v) * float64(size)))
}
