package rendering

import (
	"context"
	"image"
	"time"

	"github.com/phanxgames/montage/graphics/raster"
	"github.com/phanxgames/montage/scene"
)

// FrameRequest asks the Renderer for one frame. Requests carry only
// values; the reply channel should be buffered.
type FrameRequest struct {
	Index int
	Reply chan<- Frame
}

// Frame is a rendered frame. Image is leased from the renderer's pool and
// must be returned with Release.
type Frame struct {
	Index int
	Time  time.Duration
	Image *image.RGBA
	Err   error
}

// Renderer produces frames of a scene on its own goroutine. All access to
// the scene goes through the dispatcher that owns it.
type Renderer struct {
	scene    *scene.Scene
	dispatch *Dispatcher
	pool     *ImagePool
	requests chan FrameRequest
}

func NewRenderer(s *scene.Scene, d *Dispatcher, pool *ImagePool) *Renderer {
	if pool == nil {
		pool = NewImagePool()
	}
	return &Renderer{
		scene:    s,
		dispatch: d,
		pool:     pool,
		requests: make(chan FrameRequest),
	}
}

func (r *Renderer) Pool() *ImagePool { return r.pool }

// Release returns the frame's image to the pool.
func (r *Renderer) Release(f Frame) { r.pool.Put(f.Image) }

// Run serves requests until ctx is done.
func (r *Renderer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-r.requests:
			f := r.render(ctx, req.Index)
			select {
			case req.Reply <- f:
			case <-ctx.Done():
				r.Release(f)
				return ctx.Err()
			}
		}
	}
}

// Request sends a request to a running Renderer and waits for the frame.
func (r *Renderer) Request(ctx context.Context, index int) (Frame, error) {
	reply := make(chan Frame, 1)
	select {
	case r.requests <- FrameRequest{Index: index, Reply: reply}:
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
	select {
	case f := <-reply:
		return f, f.Err
	case <-ctx.Done():
		// The renderer either delivers into the buffered reply or releases
		// the frame itself.
		go func() {
			if f, ok := <-reply; ok {
				r.Release(f)
			}
		}()
		return Frame{}, ctx.Err()
	}
}

// Render renders frame index on the calling goroutine.
func (r *Renderer) Render(ctx context.Context, index int) (Frame, error) {
	f := r.render(ctx, index)
	return f, f.Err
}

func (r *Renderer) render(ctx context.Context, index int) Frame {
	f := Frame{Index: index}
	var img *image.RGBA
	err := r.dispatch.Invoke(ctx, func() error {
		f.Time = r.scene.TimeOf(index)
		img = r.pool.Get(r.scene.Width(), r.scene.Height())
		r.scene.Render(raster.NewFromImage(img), f.Time)
		return nil
	})
	if err != nil {
		r.pool.Put(img)
		f.Err = err
		return f
	}
	f.Image = img
	return f
}
