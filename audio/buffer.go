// Package audio produces the soundtrack of a composition: PCM sources, a
// chain of effects and a Stream that feeds an audio device.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// Sample is one stereo frame.
type Sample struct {
	L, R float32
}

func (s Sample) Add(o Sample) Sample    { return Sample{s.L + o.L, s.R + o.R} }
func (s Sample) Scale(f float32) Sample { return Sample{s.L * f, s.R * f} }

func (s Sample) clamp() Sample {
	return Sample{min(max(s.L, -1), 1), min(max(s.R, -1), 1)}
}

// samplesIn is the number of samples played in d at rate.
func samplesIn(d time.Duration, rate int) int {
	return int(int64(d) * int64(rate) / int64(time.Second))
}

// BytesPerSample is the encoded size of a Sample: two little-endian
// float32 values.
const BytesPerSample = 8

// Buffer is a block of stereo samples at SampleRate.
type Buffer struct {
	SampleRate int
	Samples    []Sample
}

func NewBuffer(sampleRate, n int) *Buffer {
	return &Buffer{SampleRate: sampleRate, Samples: make([]Sample, n)}
}

// Duration is the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(len(b.Samples)) * int64(time.Second) / int64(b.SampleRate))
}

// AppendBytes encodes the samples, clamped to [-1, 1], in the
// interleaved float32 layout expected by ebiten's NewPlayerF32.
func (b *Buffer) AppendBytes(dst []byte) []byte {
	for _, s := range b.Samples {
		s = s.clamp()
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s.L))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(s.R))
	}
	return dst
}

// DecodeSamples is the inverse of AppendBytes. A trailing partial sample
// is ignored.
func DecodeSamples(p []byte) []Sample {
	out := make([]Sample, len(p)/BytesPerSample)
	for i := range out {
		o := i * BytesPerSample
		out[i] = Sample{
			L: math.Float32frombits(binary.LittleEndian.Uint32(p[o:])),
			R: math.Float32frombits(binary.LittleEndian.Uint32(p[o+4:])),
		}
	}
	return out
}
