package ebitencanvas

import (
	"errors"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
)

// RenderFunc draws the composition at time t into c.
type RenderFunc func(c graphics.Canvas, t time.Duration)

// Preview plays a composition in a window. Space pauses, the arrow keys
// step one frame, Page Up and Page Down seek one second, F12 saves a
// screenshot and Escape closes the window.
type Preview struct {
	Width, Height int
	Duration      time.Duration
	FrameRate     media.Rational
	Background    media.Color
	Loop          bool
	Render        RenderFunc
	ScreenshotDir string

	canvas *Canvas
	frame  int
	paused bool
	shots  []string
	scrub  *animation.Tween[float64]
}

// scrubDuration is how long a seek takes to glide to its target.
const scrubDuration = 200 * time.Millisecond

// ErrPreviewClosed is returned by Run when the user closes the preview.
var ErrPreviewClosed = errors.New("ebitencanvas: preview closed")

// Time is the composition time being shown. While a seek is in flight it
// lies between the old and the new frame.
func (p *Preview) Time() time.Duration {
	if p.scrub != nil {
		return time.Duration(p.scrub.Value() * float64(time.Second))
	}
	return p.FrameRate.TimeOf(p.frame)
}

func (p *Preview) lastFrame() int {
	if p.Duration <= 0 {
		return -1
	}
	return max(p.FrameRate.FrameAt(p.Duration)-1, 0)
}

// step advances n frames, wrapping or clamping at the end.
func (p *Preview) step(n int) {
	p.frame += n
	last := p.lastFrame()
	switch {
	case p.frame < 0:
		p.frame = 0
	case last < 0:
	case p.frame > last && p.Loop:
		p.frame = 0
	case p.frame > last:
		p.frame = last
		p.paused = true
	}
}

// seek pauses and moves the playhead n frames, clamped to the composition.
// The shown time eases toward the new frame over scrubDuration.
func (p *Preview) seek(n int) {
	target := max(p.frame+n, 0)
	if last := p.lastFrame(); last >= 0 {
		target = min(target, last)
	}
	p.paused = true
	to := p.FrameRate.TimeOf(target).Seconds()
	if p.scrub == nil {
		p.scrub = animation.NewTween(p.Time().Seconds(), to, scrubDuration, animation.OutCubic)
	} else {
		p.scrub.Retarget(to)
	}
	p.frame = target
}

// advanceScrub moves an in-flight seek forward by one tick.
func (p *Preview) advanceScrub() {
	if p.scrub == nil {
		return
	}
	if _, done := p.scrub.Update(p.FrameRate.FrameDuration()); done {
		p.scrub = nil
	}
}

func (p *Preview) Update() error {
	p.advanceScrub()
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		return ErrPreviewClosed
	case inpututil.IsKeyJustPressed(ebiten.KeyF12):
		p.Screenshot("preview")
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		p.paused = !p.paused
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowRight):
		p.paused = true
		p.step(1)
	case inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft):
		p.paused = true
		p.step(-1)
	case inpututil.IsKeyJustPressed(ebiten.KeyPageUp):
		p.seek(p.FrameRate.FrameAt(time.Second))
	case inpututil.IsKeyJustPressed(ebiten.KeyPageDown):
		p.seek(-p.FrameRate.FrameAt(time.Second))
	case !p.paused:
		p.step(1)
	}
	return nil
}

func (p *Preview) Draw(screen *ebiten.Image) {
	if p.canvas == nil || p.canvas.screen != screen {
		p.canvas = New(screen)
	}
	p.canvas.Clear(p.Background)
	if p.Render != nil {
		p.Render(p.canvas, p.Time())
	}
	p.flushScreenshots(screen)
}

func (p *Preview) Layout(_, _ int) (int, int) { return p.Width, p.Height }

// Run opens the preview window and blocks until it is closed.
func (p *Preview) Run(title string) error {
	if p.FrameRate.Num <= 0 || p.FrameRate.Den <= 0 {
		p.FrameRate = media.Rational{Num: 30, Den: 1}
	}
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(p.Width, p.Height)
	ebiten.SetTPS(int(p.FrameRate.Float() + 0.5))
	err := ebiten.RunGame(p)
	if p.canvas != nil {
		p.canvas.Dispose()
	}
	if errors.Is(err, ErrPreviewClosed) {
		return nil
	}
	return err
}
