package tracking

import (
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kepler-counter-go/internal/geometry"
	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/video"
)

type sizedFrame struct{ w, h int }

func (f sizedFrame) Width() int                                  { return f.w }
func (f sizedFrame) Height() int                                 { return f.h }
func (f sizedFrame) Empty() bool                                 { return false }
func (f sizedFrame) Region(image.Rectangle) (video.Frame, error) { return f, nil }
func (f sizedFrame) EncodeJPEG(int) ([]byte, error)              { return nil, nil }
func (f sizedFrame) Close() error                                { return nil }

var frame = sizedFrame{w: 640, h: 480}

func det(x, y int) models.Detection {
	return models.Detection{
		Label:      "1",
		Confidence: 0.9,
		Box:        models.Rect{X: x, Y: y, Width: 20, Height: 40},
	}
}

func TestDefaultSettings(t *testing.T) {
	assert.Equal(t, Settings{DistThreshold: 100, MaxSkippedFrames: 30, MaxTraceLength: 150}, DefaultSettings(30))
	assert.Equal(t, Settings{DistThreshold: 100, MaxSkippedFrames: 1, MaxTraceLength: 5}, DefaultSettings(0))
}

func TestTracker_FollowsMovingObject(t *testing.T) {
	tr := New(DefaultSettings(30), zerolog.Nop())

	for i := 0; i < 4; i++ {
		tr.Update([]models.Detection{det(100, 100+10*i)}, frame, 30)
	}

	tracks := tr.Tracks()
	require.Len(t, tracks, 1)
	tk := tracks[0]
	assert.Equal(t, uint64(1), tk.ID())
	assert.Equal(t, "1", tk.Label())
	assert.Equal(t, []geometry.Point{
		{X: 110, Y: 120},
		{X: 110, Y: 130},
		{X: 110, Y: 140},
		{X: 110, Y: 150},
	}, tk.Trajectory())
	assert.Equal(t, models.Rect{X: 100, Y: 130, Width: 20, Height: 40}, tk.LastRect())
}

func TestTracker_CoastsOnVelocity(t *testing.T) {
	tr := New(DefaultSettings(30), zerolog.Nop())

	tr.Update([]models.Detection{det(100, 100)}, frame, 30)
	tr.Update([]models.Detection{det(100, 110)}, frame, 30)
	tr.Update(nil, frame, 30)

	tracks := tr.Tracks()
	require.Len(t, tracks, 1)
	traj := tracks[0].Trajectory()
	assert.Equal(t, geometry.Point{X: 110, Y: 140}, traj[len(traj)-1])
	assert.Equal(t, models.Rect{X: 100, Y: 120, Width: 20, Height: 40}, tracks[0].LastRect())
}

func TestTracker_DropsAfterMaxSkipped(t *testing.T) {
	tr := New(Settings{DistThreshold: 100, MaxSkippedFrames: 2, MaxTraceLength: 10}, zerolog.Nop())

	tr.Update([]models.Detection{det(300, 200)}, frame, 30)
	tr.Update(nil, frame, 30)
	tr.Update(nil, frame, 30)
	require.Len(t, tr.Tracks(), 1)

	tr.Update(nil, frame, 30)
	assert.Empty(t, tr.Tracks())
}

func TestTracker_FarDetectionStartsNewTrack(t *testing.T) {
	tr := New(DefaultSettings(30), zerolog.Nop())

	tr.Update([]models.Detection{det(10, 10)}, frame, 30)
	tr.Update([]models.Detection{det(500, 400)}, frame, 30)

	tracks := tr.Tracks()
	require.Len(t, tracks, 2)
	assert.Equal(t, uint64(1), tracks[0].ID())
	assert.Equal(t, uint64(2), tracks[1].ID())
}

func TestTracker_NearestTrackTakesDetection(t *testing.T) {
	tr := New(DefaultSettings(30), zerolog.Nop())

	// Centres at x=100 and x=130.
	tr.Update([]models.Detection{det(90, 180), det(120, 180)}, frame, 30)
	// A far newcomer at x=500 and one detection 3px from the second track.
	tr.Update([]models.Detection{det(490, 180), det(117, 180)}, frame, 30)

	tracks := tr.Tracks()
	require.Len(t, tracks, 3)

	last := func(tk models.Track) geometry.Point {
		traj := tk.Trajectory()
		return traj[len(traj)-1]
	}
	assert.Equal(t, uint64(1), tracks[0].ID())
	assert.Equal(t, geometry.Point{X: 100, Y: 200}, last(tracks[0]), "first track coasts")
	assert.Equal(t, uint64(2), tracks[1].ID())
	assert.Equal(t, geometry.Point{X: 127, Y: 200}, last(tracks[1]))
	assert.Equal(t, uint64(3), tracks[2].ID())
	assert.Equal(t, geometry.Point{X: 500, Y: 200}, last(tracks[2]))
}

func TestTracker_TrimsTrace(t *testing.T) {
	tr := New(Settings{DistThreshold: 100, MaxSkippedFrames: 5, MaxTraceLength: 3}, zerolog.Nop())

	for i := 0; i < 6; i++ {
		tr.Update([]models.Detection{det(100, 100+i)}, frame, 30)
	}

	traj := tr.Tracks()[0].Trajectory()
	require.Len(t, traj, 3)
	assert.Equal(t, 125.0, traj[2].Y)
}

func TestTrack_IsRobust(t *testing.T) {
	c := models.DefaultRobustCriteria()

	build := func(n, raw int, rect models.Rect) *track {
		tk := &track{id: 1, rect: rect}
		for i := 0; i < n; i++ {
			tk.trace = append(tk.trace, tracePoint{raw: i < raw})
		}
		return tk
	}
	box := models.Rect{Width: 20, Height: 40}

	tests := []struct {
		name string
		tk   *track
		want bool
	}{
		{"robust", build(6, 6, box), true},
		{"trace not longer than minimum", build(5, 5, box), false},
		{"raw ratio at bound", build(10, 2, box), false},
		{"raw ratio above bound", build(10, 3, box), true},
		{"too narrow", build(6, 6, models.Rect{Width: 1, Height: 10}), false},
		{"too wide", build(6, 6, models.Rect{Width: 80, Height: 10}), false},
		{"zero height", build(6, 6, models.Rect{Width: 10}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.tk.IsRobust(c))
		})
	}
}
