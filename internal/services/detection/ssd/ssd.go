// Package ssd runs a Caffe single-shot detector through OpenCV's DNN module.
package ssd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/video"
	"kepler-counter-go/internal/services/video/opencv"
)

// Config describes the network files and input preprocessing.
type Config struct {
	ModelPath   string // prototxt
	WeightsPath string // caffemodel
	Mean        [3]float64
	InputSize   int
	Scale       float64
}

// Detector holds a loaded network. Detect is serialized because a gocv.Net
// is not safe for concurrent forward passes.
type Detector struct {
	mu   sync.Mutex
	cfg  Config
	net  gocv.Net
	mean gocv.Scalar
}

func New(cfg Config) (*Detector, error) {
	for _, p := range []string{cfg.ModelPath, cfg.WeightsPath} {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("model file %q: %w", p, err)
		}
		if info.Size() == 0 {
			return nil, fmt.Errorf("model file %q is empty", p)
		}
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 300
	}
	if cfg.Scale == 0 {
		cfg.Scale = 1.0
	}

	net := gocv.ReadNetFromCaffe(cfg.ModelPath, cfg.WeightsPath)
	if net.Empty() {
		return nil, fmt.Errorf("error reading network model from %s / %s", cfg.ModelPath, cfg.WeightsPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	log.Info().
		Str("model", cfg.ModelPath).
		Str("weights", cfg.WeightsPath).
		Int("input_size", cfg.InputSize).
		Msg("SSD detector initialized")

	return &Detector{
		cfg:  cfg,
		net:  net,
		mean: gocv.NewScalar(cfg.Mean[0], cfg.Mean[1], cfg.Mean[2], 0),
	}, nil
}

// Detect returns one 7-field record per candidate box. No score filtering is
// done here.
func (d *Detector) Detect(ctx context.Context, frame video.Frame) ([]models.RawDetection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mf, ok := frame.(*opencv.MatFrame)
	if !ok {
		return nil, errors.New("ssd: frame is not backed by a gocv.Mat")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size := image.Pt(d.cfg.InputSize, d.cfg.InputSize)
	blob := gocv.BlobFromImage(*mf.Mat(), d.cfg.Scale, size, d.mean, false, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	prob := d.net.Forward("")
	defer prob.Close()

	// Output is 1x1xNx7; flatten to a single row.
	flat := prob.Reshape(1, 1)
	defer flat.Close()

	total := flat.Total()
	out := make([]models.RawDetection, 0, total/models.RawDetectionFields)
	for i := 0; i+models.RawDetectionFields <= total; i += models.RawDetectionFields {
		rec := make(models.RawDetection, models.RawDetectionFields)
		for k := range rec {
			rec[k] = flat.GetFloatAt(0, i+k)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
