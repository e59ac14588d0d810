package rendering

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/phanxgames/montage/core"
)

// Sink consumes rendered frames in order. The frame's image is only valid
// until Sink returns.
type Sink func(ctx context.Context, f Frame) error

// PlayerOptions configures a Player.
type PlayerOptions struct {
	// First and Last bound the frames played. Last < 0 means the end of
	// the scene.
	First, Last int
	// Realtime paces frames at the scene's frame rate. Otherwise frames
	// are produced as fast as the sink accepts them.
	Realtime bool
	// Backlog is the number of rendered frames that may wait for the sink.
	Backlog int
}

// PlayerStats summarizes a playback run.
type PlayerStats struct {
	Frames  int
	Dropped int
	Elapsed time.Duration
}

// Player renders a range of frames and hands them to a Sink.
type Player struct {
	renderer *Renderer
	opts     PlayerOptions
	stats    PlayerStats
}

func NewPlayer(r *Renderer, opts PlayerOptions) *Player {
	if opts.Backlog <= 0 {
		opts.Backlog = 2
	}
	return &Player{renderer: r, opts: opts}
}

// Stats returns the statistics of the last Play.
func (p *Player) Stats() PlayerStats { return p.stats }

func (p *Player) frameRange() (first, last int, frameDur time.Duration) {
	err := p.renderer.dispatch.Invoke(context.Background(), func() error {
		s := p.renderer.scene
		first, last = p.opts.First, p.opts.Last
		if n := s.FrameCount(); last < 0 || last >= n {
			last = n - 1
		}
		frameDur = s.FrameRate().FrameDuration()
		return nil
	})
	if err != nil {
		return 0, -1, 0
	}
	return max(first, 0), last, frameDur
}

// Play renders frames First..Last and delivers them to sink. It returns
// when every frame was consumed, the sink fails, rendering fails or ctx is
// done. Pooled images still in flight are released before Play returns.
func (p *Player) Play(ctx context.Context, sink Sink) error {
	first, last, frameDur := p.frameRange()
	p.stats = PlayerStats{}
	start := time.Now()
	log := core.Logger()
	log.Info().Int("first", first).Int("last", last).Bool("realtime", p.opts.Realtime).Msg("playback started")

	frames := make(chan Frame, p.opts.Backlog)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(frames)
		var tick <-chan time.Time
		if p.opts.Realtime && frameDur > 0 {
			t := time.NewTicker(frameDur)
			defer t.Stop()
			tick = t.C
		}
		for i := first; i <= last; i++ {
			if tick != nil && i > first {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-tick:
				}
			} else if err := gctx.Err(); err != nil {
				return err
			}
			f, err := p.renderer.Render(gctx, i)
			if err != nil {
				return err
			}
			select {
			case frames <- f:
			case <-gctx.Done():
				p.renderer.Release(f)
				return gctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		for f := range frames {
			err := sink(gctx, f)
			p.renderer.Release(f)
			if err != nil {
				return err
			}
			p.stats.Frames++
		}
		return nil
	})

	err := g.Wait()
	for f := range frames {
		p.stats.Dropped++
		p.renderer.Release(f)
	}
	p.stats.Elapsed = time.Since(start)
	log.Info().
		Int("frames", p.stats.Frames).
		Int("dropped", p.stats.Dropped).
		Dur("elapsed", p.stats.Elapsed).
		Err(err).
		Msg("playback stopped")
	return err
}
