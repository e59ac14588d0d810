package audio

import (
	"math"
	"time"
)

// Source produces PCM on demand. Sources are read from the stream's refill
// goroutine only.
type Source interface {
	SampleRate() int
	// ReadAt fills dst with the samples starting at pos and returns how
	// many it wrote. Fewer than len(dst) means the source has ended.
	ReadAt(dst []Sample, pos int64) int
}

// PCM is an in-memory source.
type PCM struct {
	Rate    int
	Samples []Sample
}

func (p *PCM) SampleRate() int { return p.Rate }

func (p *PCM) ReadAt(dst []Sample, pos int64) int {
	if pos < 0 || pos >= int64(len(p.Samples)) {
		return 0
	}
	return copy(dst, p.Samples[pos:])
}

// Tone is a sine wave of Frequency Hz lasting Length. A zero Length plays
// forever.
type Tone struct {
	Rate      int
	Frequency float64
	Amplitude float32
	Length    time.Duration
}

func (t *Tone) SampleRate() int { return t.Rate }

func (t *Tone) ReadAt(dst []Sample, pos int64) int {
	n := len(dst)
	if t.Length > 0 {
		end := int64(samplesIn(t.Length, t.Rate))
		n = int(max(min(int64(n), end-pos), 0))
	}
	step := 2 * math.Pi * t.Frequency / float64(t.Rate)
	for i := range n {
		v := t.Amplitude * float32(math.Sin(step*float64(pos+int64(i))))
		dst[i] = Sample{v, v}
	}
	return n
}

// Silence plays nothing for Length.
type Silence struct {
	Rate   int
	Length time.Duration
}

func (s *Silence) SampleRate() int { return s.Rate }

func (s *Silence) ReadAt(dst []Sample, pos int64) int {
	n := int(max(min(int64(len(dst)), int64(samplesIn(s.Length, s.Rate))-pos), 0))
	clear(dst[:n])
	return n
}
