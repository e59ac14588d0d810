package audio

import (
	"time"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Sound places a source on the timeline with a volume and an effect chain.
type Sound struct {
	core.Element
	media.Invalidator

	source  Source
	effects core.ElementList[Effect]
	links   map[Effect]func()
}

var SoundType = core.DefineType("Sound", core.ElementType)

var (
	OffsetProperty = core.Configure[time.Duration, core.Object](SoundType, "Offset").
			SerializeName("offset").
			Validator(core.Min(time.Duration(0))).
			Register()
	VolumeProperty = core.Configure[float64, core.Object](SoundType, "Volume").
			DefaultValue(1).
			SerializeName("volume").
			Validator(core.Min(0.0)).
			Register()
)

func NewSound(src Source) *Sound {
	s := &Sound{source: src, links: make(map[Effect]func())}
	s.Init(s, SoundType)
	s.effects.Init(&s.Element)
	s.effects.Changed().Subscribe(s.onEffectsChanged)
	return s
}

func (s *Sound) Offset() time.Duration     { return core.GetValue(s, OffsetProperty) }
func (s *Sound) Volume() float64           { return core.GetValue(s, VolumeProperty) }
func (s *Sound) SetOffset(v time.Duration) { core.Set(s, OffsetProperty, v) }
func (s *Sound) SetVolume(v float64)       { core.Set(s, VolumeProperty, v) }

func (s *Sound) Source() Source { return s.source }

func (s *Sound) SetSource(src Source) {
	s.source = src
	s.RaiseInvalidated(&media.InvalidatedEvent{Sender: s})
}

func (s *Sound) Effects() *core.ElementList[Effect] { return &s.effects }

func (s *Sound) onEffectsChanged(e *core.ListChangedEvent[Effect]) {
	switch e.Action {
	case core.ListAdd:
		for _, fx := range e.Items {
			s.links[fx] = fx.Invalidated().Subscribe(func(*media.InvalidatedEvent) {
				s.RaiseInvalidated(&media.InvalidatedEvent{Sender: s})
			})
		}
	case core.ListRemove, core.ListReset:
		for _, fx := range e.Items {
			if cancel, ok := s.links[fx]; ok {
				cancel()
				delete(s.links, fx)
			}
		}
	}
	s.RaiseInvalidated(&media.InvalidatedEvent{Sender: s})
}

// Processors returns a fresh processor chain: the effects in list order,
// then the volume.
func (s *Sound) Processors(sampleRate int) []Processor {
	var chain []Processor
	for _, fx := range s.effects.Items() {
		chain = append(chain, fx.NewProcessor(sampleRate))
	}
	if v := s.Volume(); v != 1 {
		chain = append(chain, NewGain(v).NewProcessor(sampleRate))
	}
	return chain
}

// WriteJSON stores the effects and, for generated tones, the source.
// Other sources are supplied by the application after loading.
func (s *Sound) WriteJSON(m map[string]any) {
	if s.effects.Len() > 0 {
		m["effects"] = core.MarshalList(s.effects.Items())
	}
	if t, ok := s.source.(*Tone); ok {
		m["tone"] = map[string]any{
			"rate":      t.Rate,
			"frequency": t.Frequency,
			"amplitude": float64(t.Amplitude),
			"length":    int64(t.Length),
		}
	}
}

func (s *Sound) ReadJSON(m map[string]any) {
	if raw, ok := m["effects"]; ok {
		s.effects.Clear()
		s.effects.Add(core.UnmarshalList[Effect](raw)...)
	}
	if raw, ok := m["tone"].(map[string]any); ok {
		s.source = &Tone{
			Rate:      int(number(raw["rate"])),
			Frequency: number(raw["frequency"]),
			Amplitude: float32(number(raw["amplitude"])),
			Length:    time.Duration(number(raw["length"])),
		}
	}
}

// number reads a decoded JSON or CBOR number.
func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	}
	return 0
}

func init() {
	media.AffectsRender(SoundType, OffsetProperty, VolumeProperty)
	SoundType.SetFactory(func() core.Object { return NewSound(nil) })
}
