package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kepler-counter-go/internal/config"
	"kepler-counter-go/internal/geometry"
	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/detection"
	"kepler-counter-go/internal/services/video"
)

type closeCounter struct{ calls int }

func (c *closeCounter) Close() error {
	c.calls++
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Input:              "in.avi",
		FPS:                30,
		EndFrame:           -1,
		Count:              true,
		Direction:          int(models.BothLinesEitherDirection),
		Line1:              geometry.Line{X1: 0, Y1: 100, X2: 200, Y2: 100},
		Line2:              geometry.Line{X1: 0, Y1: 150, X2: 200, Y2: 150},
		Threshold:          0.5,
		TrackDistThreshold: 100,
		Detector:           config.DetectorSSD,
		MeanValue:          "104,117,123",
	}
}

func TestNewContainer(t *testing.T) {
	closer := &closeCounter{}
	detector := detection.DetectorFunc(func(context.Context, video.Frame) ([]models.RawDetection, error) {
		return nil, nil
	})

	sc, err := newContainer(testConfig(), "run", detector, closer)
	require.NoError(t, err)

	assert.Equal(t, "run", sc.RunID)
	assert.NotNil(t, sc.Metrics)
	assert.NotNil(t, sc.Filter)
	assert.NotNil(t, sc.Tracker)
	assert.Equal(t, models.BothLinesEitherDirection, sc.Counter.Mode())
	assert.Nil(t, sc.Messaging)
	assert.Nil(t, sc.Publisher(), "no publisher without NATS")
	assert.NotNil(t, sc.Strategy())

	families, err := sc.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	require.NoError(t, sc.Shutdown(context.Background()))
	assert.Equal(t, 1, closer.calls)
}

func TestNewContainer_BadBuckets(t *testing.T) {
	cfg := testConfig()
	cfg.FrameTimeBuckets = "0.5,0.1"

	_, err := newContainer(cfg, "run", nil, &closeCounter{})
	assert.Error(t, err)
}

func TestNewServiceContainer_MissingModel(t *testing.T) {
	cfg := testConfig()
	cfg.Model = filepath.Join(t.TempDir(), "deploy.prototxt")
	cfg.Weight = filepath.Join(t.TempDir(), "model.caffemodel")

	_, err := NewServiceContainer(cfg, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize detector")
}

func TestShutdown_Empty(t *testing.T) {
	assert.NoError(t, (&ServiceContainer{}).Shutdown(context.Background()))
}
