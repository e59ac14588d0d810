// Package scene composes layers on a timeline. A Scene evaluates the
// layers active at a time into an ordered render list and draws it into a
// canvas; it also reads and writes project documents.
package scene

import (
	"cmp"
	"slices"
	"time"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/audio"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
	"github.com/phanxgames/montage/media/decoding"
)

// Scene is the root of a composition: frame size, frame rate, duration and
// an ordered list of layers. Layers with a higher ZIndex draw on top;
// equal ZIndex keeps list order.
type Scene struct {
	core.Element
	media.Invalidator

	layers  core.ElementList[*Layer]
	sounds  core.ElementList[*audio.Sound]
	links   map[*Layer]func()
	decoder media.DecoderOptions
}

var SceneType = core.DefineType("Scene", core.ElementType)

var (
	WidthProperty = core.Configure[int, core.Object](SceneType, "Width").
			DefaultValue(1920).
			SerializeName("width").
			Validator(core.Min(1)).
			Register()
	HeightProperty = core.Configure[int, core.Object](SceneType, "Height").
			DefaultValue(1080).
			SerializeName("height").
			Validator(core.Min(1)).
			Register()
	DurationProperty = core.Configure[time.Duration, core.Object](SceneType, "Duration").
				DefaultValue(10 * time.Second).
				SerializeName("duration").
				Validator(core.Min(time.Duration(0))).
				Register()
	FrameRateProperty = core.Configure[media.Rational, core.Object](SceneType, "FrameRate").
				DefaultValue(media.Rational{Num: 30, Den: 1}).
				SerializeName("frameRate").
				Validator(core.ValidatorFunc[media.Rational](validateFrameRate)).
				Register()
	BackgroundProperty = core.Configure[media.Color, core.Object](SceneType, "Background").
				DefaultValue(media.Black).
				SerializeName("background").
				Register()
)

func validateFrameRate(r media.Rational) (media.Rational, error) {
	if r.Num <= 0 || r.Den <= 0 {
		return r, core.NewError("scene.FrameRate", core.KindInvalidPropertyValue, "frame rate %s must be positive", r)
	}
	return r, nil
}

func New(width, height int) *Scene {
	s := &Scene{links: make(map[*Layer]func())}
	s.Init(s, SceneType)
	s.layers.Init(&s.Element)
	s.layers.Changed().Subscribe(s.onLayersChanged)
	s.sounds.Init(&s.Element)
	s.SetWidth(width)
	s.SetHeight(height)
	return s
}

// SetDecoderOptions sets the options media files in the scene open with.
// Files already open keep their decoders.
func (s *Scene) SetDecoderOptions(o media.DecoderOptions) { s.decoder = o }

func (s *Scene) DecoderOptions() media.DecoderOptions { return s.decoder }

// OpenMedia opens path for the image and video drawables of the scene.
func (s *Scene) OpenMedia(path string) (media.Decoder, error) {
	return decoding.Open(path, s.decoder)
}

func (s *Scene) Width() int                { return core.GetValue(s, WidthProperty) }
func (s *Scene) Height() int               { return core.GetValue(s, HeightProperty) }
func (s *Scene) Duration() time.Duration   { return core.GetValue(s, DurationProperty) }
func (s *Scene) FrameRate() media.Rational { return core.GetValue(s, FrameRateProperty) }
func (s *Scene) Background() media.Color   { return core.GetValue(s, BackgroundProperty) }

func (s *Scene) SetWidth(v int)                { core.Set(s, WidthProperty, v) }
func (s *Scene) SetHeight(v int)               { core.Set(s, HeightProperty, v) }
func (s *Scene) SetDuration(v time.Duration)   { core.Set(s, DurationProperty, v) }
func (s *Scene) SetFrameRate(r media.Rational) { core.Set(s, FrameRateProperty, r) }
func (s *Scene) SetBackground(c media.Color)   { core.Set(s, BackgroundProperty, c) }

func (s *Scene) Layers() *core.ElementList[*Layer] { return &s.layers }

// Sounds is the soundtrack. Sound offsets are scene times.
func (s *Scene) Sounds() *core.ElementList[*audio.Sound] { return &s.sounds }

// Soundtrack mixes the scene's sounds at sampleRate.
func (s *Scene) Soundtrack(sampleRate int) *audio.Mixer {
	return audio.NewMixer(sampleRate, s.sounds.Items()...)
}

// FrameCount is the number of frames in Duration at FrameRate.
func (s *Scene) FrameCount() int { return s.FrameRate().FrameAt(s.Duration()) }

// TimeOf returns the presentation time of frame i.
func (s *Scene) TimeOf(frame int) time.Duration { return s.FrameRate().TimeOf(frame) }

func (s *Scene) onLayersChanged(e *core.ListChangedEvent[*Layer]) {
	switch e.Action {
	case core.ListAdd:
		for _, l := range e.Items {
			s.links[l] = l.Invalidated().Subscribe(func(*media.InvalidatedEvent) { s.raise() })
		}
	case core.ListRemove, core.ListReset:
		for _, l := range e.Items {
			if cancel, ok := s.links[l]; ok {
				cancel()
				delete(s.links, l)
			}
		}
	}
	s.raise()
}

func (s *Scene) raise() { s.RaiseInvalidated(&media.InvalidatedEvent{Sender: s}) }

// ActiveLayers returns the layers showing content at t in drawing order.
func (s *Scene) ActiveLayers(t time.Duration) []*Layer {
	var active []*Layer
	for _, l := range s.layers.Items() {
		if l.IsActive(t) {
			active = append(active, l)
		}
	}
	slices.SortStableFunc(active, func(a, b *Layer) int { return cmp.Compare(a.ZIndex(), b.ZIndex()) })
	return active
}

// Evaluate applies styling, animations and node trees of the layers active
// at t and returns the drawables to render, bottom first.
func (s *Scene) Evaluate(t time.Duration) []graphics.Drawable {
	clock := animation.At(t)
	var out []graphics.Drawable
	for _, l := range s.ActiveLayers(t) {
		out = append(out, l.Evaluate(clock)...)
	}
	return out
}

// Render draws the composition at t into c.
func (s *Scene) Render(c graphics.Canvas, t time.Duration) {
	c.Clear(s.Background())
	drawables := s.Evaluate(t)
	sz := c.Size()
	avail := media.Size{Width: float64(sz.X), Height: float64(sz.Y)}
	for _, d := range drawables {
		d.Measure(avail)
		d.Render(c)
	}
	core.Logger().Debug().
		Dur("time", t).
		Int("drawables", len(drawables)).
		Msg("scene rendered")
}

// ContentEnd is the latest layer end, or Duration when that is later.
func (s *Scene) ContentEnd() time.Duration {
	end := s.Duration()
	for _, l := range s.layers.Items() {
		end = max(end, l.End())
	}
	return end
}

func (s *Scene) WriteJSON(m map[string]any) {
	if s.layers.Len() > 0 {
		m["layers"] = core.MarshalList(s.layers.Items())
	}
	if s.sounds.Len() > 0 {
		m["sounds"] = core.MarshalList(s.sounds.Items())
	}
}

func (s *Scene) ReadJSON(m map[string]any) {
	if raw, ok := m["layers"]; ok {
		s.layers.Clear()
		s.layers.Add(core.UnmarshalList[*Layer](raw)...)
	}
	if raw, ok := m["sounds"]; ok {
		s.sounds.Clear()
		s.sounds.Add(core.UnmarshalList[*audio.Sound](raw)...)
	}
}

func init() {
	media.AffectsRender(SceneType, WidthProperty, HeightProperty, BackgroundProperty)
	SceneType.SetFactory(func() core.Object { return New(1920, 1080) })
}

var (
	_ core.JSONWriter          = (*Scene)(nil)
	_ core.JSONReader          = (*Scene)(nil)
	_ media.InvalidationSource = (*Scene)(nil)
	_ graphics.MediaOpener     = (*Scene)(nil)
)
