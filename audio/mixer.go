package audio

import (
	"github.com/phanxgames/montage/core"
)

type track struct {
	sound   *Sound
	start   int64
	chain   []Processor
	scratch *Buffer
	ended   bool
}

// Mixer sums sounds into one source. It snapshots each sound's offset and
// effects when created and must be read sequentially, since effects keep
// state between blocks.
type Mixer struct {
	rate   int
	tracks []*track
}

// NewMixer mixes sounds at rate. Sounds with no source or a different
// sample rate are skipped.
func NewMixer(rate int, sounds ...*Sound) *Mixer {
	m := &Mixer{rate: rate}
	for _, s := range sounds {
		src := s.Source()
		if src == nil || core.IsNil(src) {
			continue
		}
		if src.SampleRate() != rate {
			core.Logger().Warn().
				Int("want", rate).
				Int("got", src.SampleRate()).
				Str("sound", s.ID().String()).
				Msg("sound sample rate mismatch, skipped")
			continue
		}
		m.tracks = append(m.tracks, &track{
			sound:   s,
			start:   int64(samplesIn(s.Offset(), rate)),
			chain:   s.Processors(rate),
			scratch: &Buffer{SampleRate: rate},
		})
	}
	return m
}

func (m *Mixer) SampleRate() int { return m.rate }

func (m *Mixer) ReadAt(dst []Sample, pos int64) int {
	clear(dst)
	n := 0
	for _, t := range m.tracks {
		if t.ended {
			continue
		}
		end := pos + int64(len(dst))
		if end <= t.start {
			n = len(dst)
			continue
		}
		lead := int(max(t.start-pos, 0))
		want := len(dst) - lead
		if cap(t.scratch.Samples) < want {
			t.scratch.Samples = make([]Sample, want)
		}
		t.scratch.Samples = t.scratch.Samples[:want]
		got := t.sound.Source().ReadAt(t.scratch.Samples, max(pos-t.start, 0))
		t.scratch.Samples = t.scratch.Samples[:got]
		for _, p := range t.chain {
			p.Process(t.scratch)
		}
		for i, s := range t.scratch.Samples {
			dst[lead+i] = dst[lead+i].Add(s)
		}
		if got < want {
			t.ended = true
		}
		n = max(n, lead+got)
	}
	return n
}
