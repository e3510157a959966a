// Package tracking is a centroid tracker with constant-velocity prediction and
// optimal (Hungarian) detection-to-track association.
package tracking

import (
	"math"

	"github.com/rs/zerolog"

	"kepler-counter-go/internal/geometry"
	"kepler-counter-go/internal/models"
	"kepler-counter-go/internal/services/video"
)

// Settings tune association and track lifetime. A zero MaxSkippedFrames or
// MaxTraceLength is derived from the fps passed to Update (1s and 5s).
type Settings struct {
	DistThreshold    float64 // max centroid distance in pixels for a match
	MaxSkippedFrames int     // a track is dropped after this many missed frames
	MaxTraceLength   int     // trajectory is trimmed to this many points
}

// DefaultSettings returns the settings used by the counter CLI.
func DefaultSettings(fps float64) Settings {
	f := framesPerSecond(fps)
	return Settings{
		DistThreshold:    100,
		MaxSkippedFrames: f,
		MaxTraceLength:   5 * f,
	}
}

func framesPerSecond(fps float64) int {
	f := int(math.Round(fps))
	if f < 1 {
		f = 1
	}
	return f
}

type tracePoint struct {
	pos geometry.Point
	raw bool // backed by a detection rather than a prediction
}

type track struct {
	id         uint64
	trace      []tracePoint
	rect       models.Rect
	velocity   geometry.Point
	skipped    int
	label      string
	confidence float32
}

func (t *track) ID() uint64            { return t.id }
func (t *track) LastRect() models.Rect { return t.rect }
func (t *track) Label() string         { return t.label }
func (t *track) Confidence() float32   { return t.confidence }

func (t *track) Trajectory() []geometry.Point {
	out := make([]geometry.Point, len(t.trace))
	for i, p := range t.trace {
		out[i] = p.pos
	}
	return out
}

// IsRobust reports whether the track is long enough, mostly backed by real
// detections and has a plausible box shape. All comparisons are strict.
func (t *track) IsRobust(c models.RobustCriteria) bool {
	if len(t.trace) <= c.MinTraceLength {
		return false
	}
	raw := 0
	for _, p := range t.trace {
		if p.raw {
			raw++
		}
	}
	if float64(raw)/float64(len(t.trace)) <= c.MinRawRatio {
		return false
	}
	if t.rect.Height == 0 {
		return false
	}
	ratio := float64(t.rect.Width) / float64(t.rect.Height)
	if c.MinAspect > 0 && ratio <= c.MinAspect {
		return false
	}
	if c.MaxAspect > 0 && ratio >= c.MaxAspect {
		return false
	}
	return true
}

func (t *track) last() geometry.Point {
	return t.trace[len(t.trace)-1].pos
}

func (t *track) predict() geometry.Point {
	p := t.last()
	return geometry.Point{X: p.X + t.velocity.X, Y: p.Y + t.velocity.Y}
}

func (t *track) push(p tracePoint, maxLen int) {
	t.trace = append(t.trace, p)
	if maxLen > 0 && len(t.trace) > maxLen {
		t.trace = append(t.trace[:0], t.trace[len(t.trace)-maxLen:]...)
	}
}

// Tracker owns the live tracks. It is not safe for concurrent use; the frame
// loop is its only caller.
type Tracker struct {
	settings Settings
	tracks   []*track
	nextID   uint64
	log      zerolog.Logger
}

func New(settings Settings, logger zerolog.Logger) *Tracker {
	if settings.DistThreshold <= 0 {
		settings.DistThreshold = 100
	}
	return &Tracker{settings: settings, nextID: 1, log: logger}
}

func (tr *Tracker) limits(fps float64) (maxSkipped, maxTrace int) {
	f := framesPerSecond(fps)
	maxSkipped, maxTrace = tr.settings.MaxSkippedFrames, tr.settings.MaxTraceLength
	if maxSkipped <= 0 {
		maxSkipped = f
	}
	if maxTrace <= 0 {
		maxTrace = 5 * f
	}
	return maxSkipped, maxTrace
}

// Update associates this frame's detections with the live tracks. Unmatched
// tracks coast on their velocity and are dropped once they have been missed
// for too long or their prediction leaves the frame. Unmatched detections
// start new tracks.
func (tr *Tracker) Update(dets []models.Detection, frame video.Frame, fps float64) {
	maxSkipped, maxTrace := tr.limits(fps)

	cost := make([][]float64, len(tr.tracks))
	for i, t := range tr.tracks {
		pred := t.predict()
		row := make([]float64, len(dets))
		for j, d := range dets {
			cx, cy := d.Box.Center()
			dist := math.Hypot(cx-pred.X, cy-pred.Y)
			if dist > tr.settings.DistThreshold {
				row[j] = forbidden
			} else {
				row[j] = dist
			}
		}
		cost[i] = row
	}

	match := assign(cost)
	used := make([]bool, len(dets))

	live := tr.tracks[:0]
	for i, t := range tr.tracks {
		j := -1
		if i < len(match) {
			j = match[i]
		}

		if j >= 0 {
			used[j] = true
			d := dets[j]
			cx, cy := d.Box.Center()
			last := t.last()
			t.velocity = geometry.Point{X: cx - last.X, Y: cy - last.Y}
			t.rect = d.Box
			t.label = d.Label
			t.confidence = d.Confidence
			t.skipped = 0
			t.push(tracePoint{pos: geometry.Point{X: cx, Y: cy}, raw: true}, maxTrace)
			live = append(live, t)
			continue
		}

		t.skipped++
		pred := t.predict()
		t.rect = t.rect.Translate(t.velocity.X, t.velocity.Y)
		t.push(tracePoint{pos: pred}, maxTrace)

		if t.skipped > maxSkipped || !inside(pred, frame) {
			tr.log.Debug().Uint64("track_id", t.id).Int("skipped", t.skipped).Msg("Dropping track")
			continue
		}
		live = append(live, t)
	}
	for i := len(live); i < len(tr.tracks); i++ {
		tr.tracks[i] = nil
	}
	tr.tracks = live

	for j, d := range dets {
		if used[j] {
			continue
		}
		cx, cy := d.Box.Center()
		t := &track{
			id:         tr.nextID,
			rect:       d.Box,
			label:      d.Label,
			confidence: d.Confidence,
		}
		t.push(tracePoint{pos: geometry.Point{X: cx, Y: cy}, raw: true}, maxTrace)
		tr.nextID++
		tr.tracks = append(tr.tracks, t)
	}
}

func inside(p geometry.Point, frame video.Frame) bool {
	if frame == nil {
		return true
	}
	return p.X >= 0 && p.Y >= 0 && p.X < float64(frame.Width()) && p.Y < float64(frame.Height())
}

// Tracks returns views of the live tracks in creation order. Views are valid
// until the next Update.
func (tr *Tracker) Tracks() []models.Track {
	out := make([]models.Track, len(tr.tracks))
	for i, t := range tr.tracks {
		out[i] = t
	}
	return out
}
