package audio

import (
	"math"
	"math/bits"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Processor transforms a block of samples in place. A processor keeps
// state between blocks (delay lines) and belongs to one stream.
type Processor interface {
	Process(b *Buffer)
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(b *Buffer)

func (f ProcessorFunc) Process(b *Buffer) { f(b) }

// Effect is a model object that creates processors from its current
// property values.
type Effect interface {
	core.Hierarchical
	media.Invalidatable
	NewProcessor(sampleRate int) Processor
}

var EffectType = core.DefineType("SoundEffect", core.ElementType)

// Gain scales the signal by Amplify.
type Gain struct {
	core.Element
	media.Invalidator
}

var GainType = core.DefineType("Gain", EffectType)

var AmplifyProperty = core.Configure[float64, core.Object](GainType, "Amplify").
	DefaultValue(1).
	SerializeName("amplify").
	Validator(core.Min(0.0)).
	Register()

func NewGain(amplify float64) *Gain {
	g := &Gain{}
	g.Init(g, GainType)
	g.SetAmplify(amplify)
	return g
}

func (g *Gain) Amplify() float64     { return core.GetValue(g, AmplifyProperty) }
func (g *Gain) SetAmplify(v float64) { core.Set(g, AmplifyProperty, v) }

func (g *Gain) NewProcessor(int) Processor {
	f := float32(g.Amplify())
	return ProcessorFunc(func(b *Buffer) {
		for i, s := range b.Samples {
			b.Samples[i] = s.Scale(f)
		}
	})
}

// MaxDelayTime bounds Delay.DelayTime, in seconds.
const MaxDelayTime = 5.0

// Delay mixes the signal with a delayed copy of itself. The delay line
// feeds back into itself scaled by Feedback.
type Delay struct {
	core.Element
	media.Invalidator
}

var DelayType = core.DefineType("Delay", EffectType)

var (
	DelayTimeProperty = core.Configure[float64, core.Object](DelayType, "DelayTime").
				DefaultValue(0.2).
				SerializeName("delay-time").
				Validator(core.Range[float64]{Min: 0, Max: MaxDelayTime}).
				Register()
	FeedbackProperty = core.Configure[float64, core.Object](DelayType, "Feedback").
				DefaultValue(0.5).
				SerializeName("feedback").
				Validator(core.Min(0.0)).
				Register()
	DryMixProperty = core.Configure[float64, core.Object](DelayType, "DryMix").
			DefaultValue(0.6).
			SerializeName("dry-mix").
			Validator(core.Min(0.0)).
			Register()
	WetMixProperty = core.Configure[float64, core.Object](DelayType, "WetMix").
			DefaultValue(0.4).
			SerializeName("wet-mix").
			Validator(core.Min(0.0)).
			Register()
)

func NewDelay() *Delay {
	d := &Delay{}
	d.Init(d, DelayType)
	return d
}

func (d *Delay) DelayTime() float64 { return core.GetValue(d, DelayTimeProperty) }
func (d *Delay) Feedback() float64  { return core.GetValue(d, FeedbackProperty) }
func (d *Delay) DryMix() float64    { return core.GetValue(d, DryMixProperty) }
func (d *Delay) WetMix() float64    { return core.GetValue(d, WetMixProperty) }

func (d *Delay) SetDelayTime(v float64) { core.Set(d, DelayTimeProperty, v) }
func (d *Delay) SetFeedback(v float64)  { core.Set(d, FeedbackProperty, v) }
func (d *Delay) SetDryMix(v float64)    { core.Set(d, DryMixProperty, v) }
func (d *Delay) SetWetMix(v float64)    { core.Set(d, WetMixProperty, v) }

func (d *Delay) NewProcessor(sampleRate int) Processor {
	return &delayProcessor{
		line:     newRing[Sample](int(MaxDelayTime * float64(sampleRate))),
		offset:   int(math.Round(d.DelayTime() * float64(sampleRate))),
		feedback: float32(d.Feedback()),
		dry:      float32(d.DryMix()),
		wet:      float32(d.WetMix()),
	}
}

type delayProcessor struct {
	line     *ring[Sample]
	offset   int
	feedback float32
	dry, wet float32
}

func (p *delayProcessor) Process(b *Buffer) {
	for i, in := range b.Samples {
		delayed := p.line.Read(p.offset)
		p.line.Write(in.Add(delayed.Scale(p.feedback)))
		b.Samples[i] = in.Scale(p.dry).Add(delayed.Scale(p.wet))
	}
}

// ring is a circular buffer whose length is rounded up to a power of two
// so indices wrap with a mask.
type ring[T any] struct {
	buf   []T
	mask  int
	write int
}

func newRing[T any](n int) *ring[T] {
	size := 1
	if n > 1 {
		size = 1 << bits.Len(uint(n-1))
	}
	return &ring[T]{buf: make([]T, size), mask: size - 1}
}

func (r *ring[T]) Len() int { return len(r.buf) }

// Read returns the value written offset writes ago. Offset 0 is the slot
// about to be overwritten, which holds the value from Len writes ago.
func (r *ring[T]) Read(offset int) T {
	return r.buf[(r.write-offset)&r.mask]
}

func (r *ring[T]) Write(v T) {
	r.buf[r.write] = v
	r.write = (r.write + 1) & r.mask
}

func init() {
	media.AffectsRender(GainType, AmplifyProperty)
	media.AffectsRender(DelayType, DelayTimeProperty, FeedbackProperty, DryMixProperty, WetMixProperty)
	GainType.SetFactory(func() core.Object { return NewGain(1) })
	DelayType.SetFactory(func() core.Object { return NewDelay() })
}
