// Package counting implements the directional line-crossing counter.
//
// Each track moves through NoPass -> FirstPass -> Counted. The first pass is
// recorded when the track's last step crosses the entry line in the configured
// direction; the count fires once the latest point lies on the exit side of the
// other line. Counted is terminal for the lifetime of the track id.
package counting

import (
	"time"

	"github.com/rs/zerolog"

	"kepler-counter-go/internal/geometry"
	"kepler-counter-go/internal/logging"
	"kepler-counter-go/internal/models"
)

// CrossingState is the per-track state kept in the counter's side table.
type CrossingState struct {
	FirstPass         bool `json:"first_pass"`
	SecondPass        bool `json:"second_pass"`
	DirectionFromLeft bool `json:"direction_from_left"`
}

// Options tune the counter beyond mode and lines.
type Options struct {
	// RobustOnly restricts evaluation to tracks passing Robust.
	RobustOnly bool
	Robust     models.RobustCriteria
	RunID      string
	Now        func() time.Time
}

// Counter evaluates crossings for every track after a tracker update. It is
// not safe for concurrent use.
type Counter struct {
	mode   models.DirectionMode
	line1  geometry.Line
	line2  geometry.Line
	opts   Options
	states map[uint64]*CrossingState
	count  int
	log    zerolog.Logger
}

func New(mode models.DirectionMode, line1, line2 geometry.Line, opts Options, logger zerolog.Logger) *Counter {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Counter{
		mode:   mode,
		line1:  line1,
		line2:  line2,
		opts:   opts,
		states: make(map[uint64]*CrossingState),
		log:    logger,
	}
}

// Update evaluates every track in order and returns one event per counter
// increment in this frame.
func (c *Counter) Update(tracks []models.Track, frameIndex int) []models.CrossingEvent {
	var events []models.CrossingEvent
	for _, t := range tracks {
		if c.opts.RobustOnly && !t.IsRobust(c.opts.Robust) {
			continue
		}
		traj := t.Trajectory()
		if len(traj) < 2 {
			continue
		}

		st := c.states[t.ID()]
		if st == nil {
			st = &CrossingState{}
			c.states[t.ID()] = st
		}
		if !c.step(st, traj[len(traj)-2], traj[len(traj)-1]) {
			continue
		}

		c.count++
		ev := models.CrossingEvent{
			RunID:      c.opts.RunID,
			TrackID:    t.ID(),
			FrameIndex: frameIndex,
			Count:      c.count,
			Mode:       c.mode.String(),
			Label:      t.Label(),
			Confidence: t.Confidence(),
			Timestamp:  c.opts.Now(),
		}
		if c.mode == models.BothLinesEitherDirection {
			fromLeft := st.DirectionFromLeft
			ev.FromLeft = &fromLeft
		}
		trackLog := logging.WithTrack(c.log, ev.TrackID)
		trackLog.Info().
			Int("frame", frameIndex).
			Int("count", c.count).
			Str("mode", ev.Mode).
			Msg("Line crossing counted")
		events = append(events, ev)
	}
	return events
}

// step advances one track's state for the move pt1 -> pt2 and reports whether
// the counter must be incremented.
func (c *Counter) step(st *CrossingState, pt1, pt2 geometry.Point) bool {
	s1a, s2a := c.line1.Side(pt1), c.line1.Side(pt2)
	s1b, s2b := c.line2.Side(pt1), c.line2.Side(pt2)

	switch c.mode {
	case models.SingleLineForward:
		if s1a < 0 && s2a >= 0 {
			st.FirstPass = true
		}
		if st.FirstPass && !st.SecondPass && s2b >= 0 {
			st.SecondPass = true
			return true
		}
	case models.SingleLineReverse:
		if s2b <= 0 && s1b > 0 {
			st.FirstPass = true
		}
		if st.FirstPass && !st.SecondPass && s2a <= 0 {
			st.SecondPass = true
			return true
		}
	case models.BothLinesEitherDirection:
		if s2b <= 0 && s1b > 0 {
			st.FirstPass = true
			st.DirectionFromLeft = true
		} else if s1a < 0 && s2a >= 0 {
			st.FirstPass = true
			st.DirectionFromLeft = false
		}
		if st.FirstPass && !st.SecondPass {
			if (st.DirectionFromLeft && s2a <= 0) || (!st.DirectionFromLeft && s2b >= 0) {
				st.SecondPass = true
				return true
			}
		}
	}
	return false
}

// Count returns the number of completed crossings so far.
func (c *Counter) Count() int {
	return c.count
}

// State returns a copy of the crossing state for a track id.
func (c *Counter) State(id uint64) (CrossingState, bool) {
	st, ok := c.states[id]
	if !ok {
		return CrossingState{}, false
	}
	return *st, true
}

// Prune drops side-table entries for ids not in live. Ids are never reused by
// the tracker, so pruning does not change counting results.
func (c *Counter) Prune(live []uint64) {
	keep := make(map[uint64]struct{}, len(live))
	for _, id := range live {
		keep[id] = struct{}{}
	}
	for id := range c.states {
		if _, ok := keep[id]; !ok {
			delete(c.states, id)
		}
	}
}

// Lines returns the configured boundary lines.
func (c *Counter) Lines() (geometry.Line, geometry.Line) {
	return c.line1, c.line2
}

func (c *Counter) Mode() models.DirectionMode {
	return c.mode
}
