package audio

import (
	"context"
	"encoding/json"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

func left(samples []Sample) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = s.L
	}
	return out
}

func mono(vs ...float32) []Sample {
	out := make([]Sample, len(vs))
	for i, v := range vs {
		out[i] = Sample{v, v}
	}
	return out
}

func TestRingSize(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{1000, 1024},
		{1024, 1024},
		{1025, 2048},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, newRing[int](tt.n).Len(), "n=%d", tt.n)
	}
}

func TestRingReadWrite(t *testing.T) {
	r := newRing[int](4)
	for i := 1; i <= 6; i++ {
		r.Write(i)
	}
	assert.Equal(t, 6, r.Read(1))
	assert.Equal(t, 4, r.Read(3))
	// Offset 0 wraps to the oldest value.
	assert.Equal(t, 3, r.Read(0))
}

func TestDelayImpulseResponse(t *testing.T) {
	d := NewDelay()
	d.SetDelayTime(0.2)
	d.SetFeedback(0.5)
	d.SetDryMix(1)
	d.SetWetMix(1)

	b := &Buffer{SampleRate: 10, Samples: mono(1, 0, 0, 0, 0, 0, 0)}
	d.NewProcessor(10).Process(b)

	assert.Equal(t, []float32{1, 0, 1, 0, 0.5, 0, 0.25}, left(b.Samples))
}

func TestDelayStateCarriesAcrossBlocks(t *testing.T) {
	d := NewDelay()
	d.SetDelayTime(0.3)
	d.SetDryMix(0)
	d.SetWetMix(1)
	p := d.NewProcessor(10)

	a := &Buffer{SampleRate: 10, Samples: mono(1, 0)}
	b := &Buffer{SampleRate: 10, Samples: mono(0, 0)}
	p.Process(a)
	p.Process(b)
	assert.Equal(t, []float32{0, 0}, left(a.Samples))
	assert.Equal(t, []float32{0, 1}, left(b.Samples))
}

func TestDelayTimeClamped(t *testing.T) {
	d := NewDelay()
	d.SetDelayTime(60)
	assert.Equal(t, MaxDelayTime, d.DelayTime())
	d.SetFeedback(-1)
	assert.Equal(t, 0.0, d.Feedback())
}

func TestGain(t *testing.T) {
	b := &Buffer{SampleRate: 10, Samples: []Sample{{0.5, -0.25}}}
	NewGain(2).NewProcessor(10).Process(b)
	assert.Equal(t, Sample{1, -0.5}, b.Samples[0])
}

func TestBufferBytes(t *testing.T) {
	b := &Buffer{SampleRate: 4, Samples: []Sample{{0.5, -0.5}, {2, -3}}}
	p := b.AppendBytes(nil)
	require.Len(t, p, 2*BytesPerSample)
	assert.Equal(t, []Sample{{0.5, -0.5}, {1, -1}}, DecodeSamples(p))
	assert.Equal(t, 500*time.Millisecond, b.Duration())
}

func TestToneLength(t *testing.T) {
	tone := &Tone{Rate: 100, Frequency: 25, Amplitude: 1, Length: time.Second}
	dst := make([]Sample, 64)

	assert.Equal(t, 64, tone.ReadAt(dst, 0))
	assert.InDelta(t, 0, dst[0].L, 1e-6)
	assert.InDelta(t, 1, dst[1].L, 1e-6)
	assert.Equal(t, 20, tone.ReadAt(dst, 80))
	assert.Equal(t, 0, tone.ReadAt(dst, 100))
}

func TestMixer(t *testing.T) {
	a := NewSound(&PCM{Rate: 10, Samples: mono(0.1, 0.1, 0.1)})
	b := NewSound(&PCM{Rate: 10, Samples: mono(0.2, 0.2)})
	b.SetOffset(200 * time.Millisecond)
	b.SetVolume(2)
	skipped := NewSound(&PCM{Rate: 44100, Samples: mono(1)})
	m := NewMixer(10, a, b, skipped, NewSound(nil))

	dst := make([]Sample, 3)
	require.Equal(t, 3, m.ReadAt(dst, 0))
	assert.InDeltaSlice(t, []float32{0.1, 0.1, 0.5}, left(dst), 1e-6)
	require.Equal(t, 1, m.ReadAt(dst, 3))
	assert.InDeltaSlice(t, []float32{0.4, 0, 0}, left(dst), 1e-6)
	assert.Equal(t, 0, m.ReadAt(dst, 4))
}

func TestMixerWaitsForLateSound(t *testing.T) {
	s := NewSound(&PCM{Rate: 10, Samples: mono(1)})
	s.SetOffset(time.Second)
	m := NewMixer(10, s)

	dst := make([]Sample, 4)
	assert.Equal(t, 4, m.ReadAt(dst, 0))
	assert.Equal(t, 4, m.ReadAt(dst, 4))
	assert.Equal(t, 3, m.ReadAt(dst, 8))
	assert.Equal(t, float32(1), dst[2].L)
}

func TestSoundInvalidatedByEffects(t *testing.T) {
	s := NewSound(nil)
	d := NewDelay()
	s.Effects().Add(d)
	hits := 0
	s.Invalidated().Subscribe(func(*media.InvalidatedEvent) { hits++ })

	d.SetWetMix(0.9)
	assert.Equal(t, 1, hits)

	s.Effects().Remove(d)
	hits = 0
	d.SetWetMix(0.1)
	assert.Equal(t, 0, hits)
}

func TestDelaySerialization(t *testing.T) {
	d := NewDelay()
	d.SetDelayTime(1.5)
	d.SetWetMix(0.25)

	raw, err := json.Marshal(core.MarshalObject(d))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"delay-time":1.5`)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	back, err := core.UnmarshalAs[*Delay](m)
	require.NoError(t, err)
	assert.Equal(t, 1.5, back.DelayTime())
	assert.Equal(t, 0.25, back.WetMix())
	assert.Equal(t, 0.5, back.Feedback())
}

func TestStreamReadsEverything(t *testing.T) {
	samples := make([]Sample, 1000)
	for i := range samples {
		v := float32(i%50) / 100
		samples[i] = Sample{v, -v}
	}
	s := NewStream(context.Background(), &PCM{Rate: 100, Samples: samples}, StreamOptions{BlockSize: 64}, NewGain(2).NewProcessor(100))
	defer s.Close()

	p, err := io.ReadAll(s)
	require.NoError(t, err)
	require.Len(t, p, 1000*BytesPerSample)
	got := DecodeSamples(p)
	for i := range samples {
		require.InDelta(t, samples[i].L*2, got[i].L, 1e-6, "sample %d", i)
	}
}

func TestStreamStart(t *testing.T) {
	s := NewStream(context.Background(), &PCM{Rate: 10, Samples: mono(0, 0, 0, 0.5)}, StreamOptions{Start: 300 * time.Millisecond})
	defer s.Close()
	p, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, mono(0.5), DecodeSamples(p))
}

type countingSource struct {
	Source
	reads atomic.Int32
}

func (c *countingSource) ReadAt(dst []Sample, pos int64) int {
	c.reads.Add(1)
	return c.Source.ReadAt(dst, pos)
}

func TestStreamBackpressure(t *testing.T) {
	src := &countingSource{Source: &Tone{Rate: 1000, Frequency: 100, Amplitude: 0.5}}
	s := NewStream(context.Background(), src, StreamOptions{BlockSize: 10, Backlog: 2})
	defer s.Close()

	require.Eventually(t, func() bool { return s.Queued() == 2 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	// Two queued blocks plus one waiting to be sent.
	assert.LessOrEqual(t, src.reads.Load(), int32(3))

	p := make([]byte, 10*BytesPerSample)
	n, err := s.Read(p)
	require.NoError(t, err)
	assert.Equal(t, len(p), n)
	require.Eventually(t, func() bool { return src.reads.Load() == 4 }, time.Second, time.Millisecond)
}

func TestStreamCancelFlushes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStream(ctx, &Tone{Rate: 1000, Frequency: 100, Amplitude: 0.5}, StreamOptions{BlockSize: 10, Backlog: 3})
	require.Eventually(t, func() bool { return s.Queued() == 3 }, time.Second, time.Millisecond)

	cancel()
	n, err := s.Read(make([]byte, 16))
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 0, s.Queued())

	_, err = s.Read(make([]byte, 16))
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, s.Close())
}
