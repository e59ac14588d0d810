package animation

import "time"

// Clock supplies the evaluation time. It is owned by the caller (scene,
// player, tests) and passed in for each frame.
type Clock interface {
	// CurrentTime is the playhead position on the global timeline.
	CurrentTime() time.Duration
	// BeginTime is where the evaluated element starts on the timeline.
	BeginTime() time.Duration
}

// ManualClock is a Clock whose times are set directly.
type ManualClock struct {
	Current time.Duration
	Begin   time.Duration
}

func (c *ManualClock) CurrentTime() time.Duration { return c.Current }
func (c *ManualClock) BeginTime() time.Duration   { return c.Begin }

// At returns a clock fixed at t with a zero begin time.
func At(t time.Duration) Clock { return &ManualClock{Current: t} }

// OffsetClock shares its parent's playhead but reports its own begin time,
// so layer-relative animations see time zero at the layer start.
type OffsetClock struct {
	Parent Clock
	Begin  time.Duration
}

func (c OffsetClock) CurrentTime() time.Duration { return c.Parent.CurrentTime() }
func (c OffsetClock) BeginTime() time.Duration   { return c.Begin }
