package counting

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kepler-counter-go/internal/geometry"
	"kepler-counter-go/internal/models"
)

type fakeTrack struct {
	id     uint64
	points []geometry.Point
	robust bool
}

func (f *fakeTrack) ID() uint64                          { return f.id }
func (f *fakeTrack) Trajectory() []geometry.Point        { return f.points }
func (f *fakeTrack) LastRect() models.Rect               { return models.Rect{} }
func (f *fakeTrack) Label() string                       { return "1" }
func (f *fakeTrack) Confidence() float32                 { return 0.8 }
func (f *fakeTrack) IsRobust(models.RobustCriteria) bool { return f.robust }

// Endpoints run right to left so that positions above each line are negative.
var (
	upper = geometry.Line{X1: 200, Y1: 100, X2: 0, Y2: 100}
	lower = geometry.Line{X1: 200, Y1: 150, X2: 0, Y2: 150}
)

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newCounter(mode models.DirectionMode, l1, l2 geometry.Line, opts Options) *Counter {
	opts.Now = func() time.Time { return fixedNow }
	return New(mode, l1, l2, opts, zerolog.Nop())
}

// feed replays points one by one for a single track and returns the counter
// value after each frame.
func feed(c *Counter, id uint64, points ...geometry.Point) []int {
	tk := &fakeTrack{id: id}
	counts := make([]int, 0, len(points))
	for i, p := range points {
		tk.points = append(tk.points, p)
		c.Update([]models.Track{tk}, i)
		counts = append(counts, c.Count())
	}
	return counts
}

func TestCounter_ForwardMode(t *testing.T) {
	c := newCounter(models.SingleLineForward, upper, lower, Options{RunID: "run-1"})

	tk := &fakeTrack{id: 7, points: []geometry.Point{{X: 50, Y: 90}}}
	assert.Empty(t, c.Update([]models.Track{tk}, 0))
	assert.Equal(t, 0, c.Count())

	tk.points = append(tk.points, geometry.Point{X: 50, Y: 110})
	assert.Empty(t, c.Update([]models.Track{tk}, 1))
	assert.Equal(t, 0, c.Count())
	st, ok := c.State(7)
	require.True(t, ok)
	assert.Equal(t, CrossingState{FirstPass: true}, st)

	tk.points = append(tk.points, geometry.Point{X: 50, Y: 160})
	events := c.Update([]models.Track{tk}, 2)
	require.Len(t, events, 1)
	assert.Equal(t, 1, c.Count())
	assert.Equal(t, models.CrossingEvent{
		RunID:      "run-1",
		TrackID:    7,
		FrameIndex: 2,
		Count:      1,
		Mode:       "forward",
		Label:      "1",
		Confidence: 0.8,
		Timestamp:  fixedNow,
	}, events[0])
}

func TestCounter_SideSignFollowsEndpointOrder(t *testing.T) {
	// With left-to-right endpoints the area above each line is positive, so
	// forward crossings run upward.
	l1 := geometry.Line{X1: 0, Y1: 100, X2: 200, Y2: 100}
	l2 := geometry.Line{X1: 0, Y1: 150, X2: 200, Y2: 150}
	c := newCounter(models.SingleLineForward, l1, l2, Options{})

	counts := feed(c, 1, geometry.Pt(50, 90), geometry.Pt(50, 110), geometry.Pt(50, 160))
	assert.Equal(t, []int{0, 0, 0}, counts)

	c = newCounter(models.SingleLineForward, l1, l2, Options{})
	counts = feed(c, 1, geometry.Pt(50, 160), geometry.Pt(50, 140), geometry.Pt(50, 90))
	assert.Equal(t, []int{0, 0, 1}, counts)
}

func TestCounter_ReverseMode(t *testing.T) {
	c := newCounter(models.SingleLineReverse, upper, lower, Options{})

	counts := feed(c, 1, geometry.Pt(50, 160), geometry.Pt(50, 140), geometry.Pt(50, 90))
	assert.Equal(t, []int{0, 0, 1}, counts)

	c = newCounter(models.SingleLineReverse, upper, lower, Options{})
	counts = feed(c, 1, geometry.Pt(50, 90), geometry.Pt(50, 110), geometry.Pt(50, 160))
	assert.Equal(t, []int{0, 0, 0}, counts)
}

func TestCounter_BothDirections(t *testing.T) {
	t.Run("entering across line2 completes on line1", func(t *testing.T) {
		c := newCounter(models.BothLinesEitherDirection, upper, lower, Options{})

		counts := feed(c, 1, geometry.Pt(50, 160), geometry.Pt(50, 140))
		assert.Equal(t, []int{0, 0}, counts)
		st, _ := c.State(1)
		assert.Equal(t, CrossingState{FirstPass: true, DirectionFromLeft: true}, st)

		tk := &fakeTrack{id: 1, points: []geometry.Point{geometry.Pt(50, 160), geometry.Pt(50, 140), geometry.Pt(50, 90)}}
		events := c.Update([]models.Track{tk}, 2)
		require.Len(t, events, 1)
		require.NotNil(t, events[0].FromLeft)
		assert.True(t, *events[0].FromLeft)
		assert.Equal(t, "both", events[0].Mode)
	})

	t.Run("entering across line1 completes on line2", func(t *testing.T) {
		c := newCounter(models.BothLinesEitherDirection, upper, lower, Options{})

		counts := feed(c, 1, geometry.Pt(50, 90), geometry.Pt(50, 110), geometry.Pt(50, 160))
		assert.Equal(t, []int{0, 0, 1}, counts)
		st, _ := c.State(1)
		assert.False(t, st.DirectionFromLeft)
		assert.True(t, st.SecondPass)
	})

	t.Run("line2 test takes precedence", func(t *testing.T) {
		// Landing on the shared line satisfies both first-pass tests.
		l2 := geometry.Line{X1: 0, Y1: 100, X2: 200, Y2: 100}
		c := newCounter(models.BothLinesEitherDirection, upper, l2, Options{})

		tk := &fakeTrack{id: 3, points: []geometry.Point{geometry.Pt(50, 90), geometry.Pt(50, 100)}}
		c.Update([]models.Track{tk}, 0)
		st, _ := c.State(3)
		assert.True(t, st.DirectionFromLeft)
		assert.True(t, st.SecondPass)
		assert.Equal(t, 1, c.Count())
	})
}

func TestCounter_FirstAndSecondPassInOneFrame(t *testing.T) {
	c := newCounter(models.SingleLineForward, upper, lower, Options{})

	counts := feed(c, 1, geometry.Pt(50, 90), geometry.Pt(50, 160))
	assert.Equal(t, []int{0, 1}, counts)
}

func TestCounter_CountedIsTerminal(t *testing.T) {
	c := newCounter(models.SingleLineForward, upper, lower, Options{})

	counts := feed(c, 1,
		geometry.Pt(50, 90), geometry.Pt(50, 160),
		geometry.Pt(50, 90), geometry.Pt(50, 160),
		geometry.Pt(50, 90), geometry.Pt(50, 160),
	)
	assert.Equal(t, []int{0, 1, 1, 1, 1, 1}, counts)
}

func TestCounter_BoundaryTies(t *testing.T) {
	c := newCounter(models.SingleLineForward, upper, lower, Options{})
	feed(c, 1, geometry.Pt(50, 90), geometry.Pt(50, 100))
	st, _ := c.State(1)
	assert.True(t, st.FirstPass, "landing on line1 counts as crossing it")

	c = newCounter(models.SingleLineForward, upper, lower, Options{})
	feed(c, 2, geometry.Pt(50, 100), geometry.Pt(50, 120))
	st, _ = c.State(2)
	assert.False(t, st.FirstPass, "starting on line1 does not")

	c = newCounter(models.SingleLineForward, upper, lower, Options{})
	counts := feed(c, 3, geometry.Pt(50, 90), geometry.Pt(50, 120), geometry.Pt(50, 150))
	assert.Equal(t, []int{0, 0, 1}, counts, "landing on line2 completes")
}

func TestCounter_SinglePointTrackIsSkipped(t *testing.T) {
	c := newCounter(models.SingleLineForward, upper, lower, Options{})

	tk := &fakeTrack{id: 9, points: []geometry.Point{geometry.Pt(50, 160)}}
	assert.Empty(t, c.Update([]models.Track{tk}, 0))
	_, ok := c.State(9)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Count())
}

func TestCounter_RobustOnly(t *testing.T) {
	c := newCounter(models.SingleLineForward, upper, lower, Options{RobustOnly: true})

	shaky := &fakeTrack{id: 1, points: []geometry.Point{geometry.Pt(50, 90), geometry.Pt(50, 160)}}
	steady := &fakeTrack{id: 2, points: []geometry.Point{geometry.Pt(60, 90), geometry.Pt(60, 160)}, robust: true}

	events := c.Update([]models.Track{shaky, steady}, 0)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(2), events[0].TrackID)
	assert.Equal(t, 1, c.Count())
}

func TestCounter_MultipleTracksInOrder(t *testing.T) {
	c := newCounter(models.SingleLineForward, upper, lower, Options{})

	a := &fakeTrack{id: 4, points: []geometry.Point{geometry.Pt(10, 90), geometry.Pt(10, 160)}}
	b := &fakeTrack{id: 2, points: []geometry.Point{geometry.Pt(20, 90), geometry.Pt(20, 160)}}

	events := c.Update([]models.Track{a, b}, 5)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(4), events[0].TrackID)
	assert.Equal(t, 1, events[0].Count)
	assert.Equal(t, uint64(2), events[1].TrackID)
	assert.Equal(t, 2, events[1].Count)
	assert.Nil(t, events[0].FromLeft)
}

func TestCounter_Prune(t *testing.T) {
	c := newCounter(models.SingleLineForward, upper, lower, Options{})
	feed(c, 1, geometry.Pt(50, 90), geometry.Pt(50, 110))
	feed(c, 2, geometry.Pt(50, 90), geometry.Pt(50, 110))

	c.Prune([]uint64{2})

	_, ok := c.State(1)
	assert.False(t, ok)
	_, ok = c.State(2)
	assert.True(t, ok)
}

func TestCounter_Deterministic(t *testing.T) {
	run := func() ([]models.CrossingEvent, int) {
		c := newCounter(models.BothLinesEitherDirection, upper, lower, Options{RunID: "r"})
		paths := [][]geometry.Point{
			{geometry.Pt(10, 90), geometry.Pt(10, 110), geometry.Pt(10, 160)},
			{geometry.Pt(20, 160), geometry.Pt(20, 140), geometry.Pt(20, 90)},
			{geometry.Pt(30, 120), geometry.Pt(30, 125), geometry.Pt(30, 130)},
		}
		var all []models.CrossingEvent
		for frame := 0; frame < 3; frame++ {
			tracks := make([]models.Track, 0, len(paths))
			for i, p := range paths {
				tracks = append(tracks, &fakeTrack{id: uint64(i + 1), points: p[:frame+1]})
			}
			all = append(all, c.Update(tracks, frame)...)
		}
		return all, c.Count()
	}

	first, n1 := run()
	second, n2 := run()
	assert.Equal(t, 2, n1)
	assert.Equal(t, n1, n2)
	assert.Equal(t, first, second)
}
