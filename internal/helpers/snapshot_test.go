package helpers

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/video"
)

func TestSnapshotRect(t *testing.T) {
	tests := []struct {
		name string
		box  models.Rect
		want image.Rectangle
	}{
		{"inside", models.Rect{X: 10, Y: 20, Width: 30, Height: 40}, image.Rect(10, 20, 40, 60)},
		{"clipped", models.Rect{X: -5, Y: 90, Width: 30, Height: 40}, image.Rect(0, 90, 25, 100)},
		{"grown", models.Rect{X: 50, Y: 50, Width: 2, Height: 4}, image.Rect(46, 47, 56, 57)},
		{"grown at edge", models.Rect{X: 0, Y: 98, Width: 2, Height: 2}, image.Rect(0, 94, 10, 100)},
		{"inverted box", models.Rect{X: 40, Y: 40, Width: -20, Height: -20}, image.Rect(20, 20, 40, 40)},
		{"outside", models.Rect{X: 200, Y: 200, Width: 10, Height: 10}, image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SnapshotRect(tt.box, 100, 100))
		})
	}
}

type regionFrame struct {
	w, h    int
	region  image.Rectangle
	quality int
}

func (f *regionFrame) Width() int   { return f.w }
func (f *regionFrame) Height() int  { return f.h }
func (f *regionFrame) Empty() bool  { return false }
func (f *regionFrame) Close() error { return nil }

func (f *regionFrame) Region(r image.Rectangle) (video.Frame, error) {
	f.region = r
	return f, nil
}

func (f *regionFrame) EncodeJPEG(q int) ([]byte, error) {
	f.quality = q
	return []byte{0xff, 0xd8}, nil
}

func TestCropSnapshot(t *testing.T) {
	f := &regionFrame{w: 100, h: 100}

	b, err := CropSnapshot(f, models.Rect{X: 10, Y: 10, Width: 20, Height: 20}, 80)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xd8}, b)
	assert.Equal(t, image.Rect(10, 10, 30, 30), f.region)
	assert.Equal(t, 80, f.quality)

	_, err = CropSnapshot(f, models.Rect{X: 500, Y: 500, Width: 5, Height: 5}, 80)
	assert.Error(t, err)
}
