package audio

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/phanxgames/montage/core"
)

// StreamOptions configures a Stream.
type StreamOptions struct {
	// BlockSize is the number of samples rendered per refill.
	BlockSize int
	// Backlog is the number of rendered blocks queued ahead of the reader.
	Backlog int
	// Start is the source position, in time, of the first block.
	Start time.Duration
}

func (o StreamOptions) withDefaults(rate int) StreamOptions {
	if o.BlockSize <= 0 {
		o.BlockSize = max(rate/50, 64)
	}
	if o.Backlog <= 0 {
		o.Backlog = 4
	}
	return o
}

// Stream is an io.Reader of interleaved little-endian float32 stereo PCM.
// A refill goroutine renders blocks ahead of the reader and blocks when
// Backlog blocks are queued. Cancelling the context or calling Close
// stops the goroutine and discards every queued block; Read then returns
// io.EOF.
type Stream struct {
	src    Source
	chain  []Processor
	opts   StreamOptions
	blocks chan []byte
	cancel context.CancelFunc
	done   chan struct{}

	ctx     context.Context
	pending []byte
	once    sync.Once
}

// NewStream starts rendering src through chain.
func NewStream(ctx context.Context, src Source, opts StreamOptions, chain ...Processor) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		src:    src,
		chain:  chain,
		opts:   opts.withDefaults(src.SampleRate()),
		cancel: cancel,
		done:   make(chan struct{}),
		ctx:    ctx,
	}
	s.blocks = make(chan []byte, s.opts.Backlog)
	go s.refill()
	return s
}

func (s *Stream) SampleRate() int { return s.src.SampleRate() }

func (s *Stream) refill() {
	defer close(s.done)
	defer close(s.blocks)
	rate := s.src.SampleRate()
	pos := int64(samplesIn(s.opts.Start, rate))
	buf := NewBuffer(rate, s.opts.BlockSize)
	for {
		buf.Samples = buf.Samples[:s.opts.BlockSize]
		n := s.src.ReadAt(buf.Samples, pos)
		if n <= 0 {
			return
		}
		buf.Samples = buf.Samples[:n]
		pos += int64(n)
		for _, p := range s.chain {
			p.Process(buf)
		}
		block := buf.AppendBytes(make([]byte, 0, n*BytesPerSample))
		select {
		case s.blocks <- block:
		case <-s.ctx.Done():
			return
		}
		if n < s.opts.BlockSize {
			return
		}
	}
}

func (s *Stream) Read(p []byte) (int, error) {
	if s.ctx.Err() != nil {
		s.flush()
		return 0, io.EOF
	}
	if len(s.pending) == 0 {
		select {
		case <-s.ctx.Done():
			s.flush()
			return 0, io.EOF
		case b, ok := <-s.blocks:
			if !ok {
				return 0, io.EOF
			}
			s.pending = b
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// Queued is the number of rendered blocks waiting for the reader.
func (s *Stream) Queued() int { return len(s.blocks) }

func (s *Stream) flush() {
	s.once.Do(func() {
		dropped := 0
		s.pending = nil
		<-s.done
		for range s.blocks {
			dropped++
		}
		core.Logger().Debug().Int("dropped", dropped).Msg("audio stream flushed")
	})
}

// Stop ends the stream. It is safe to call from any goroutine; the next
// Read discards queued audio and returns io.EOF.
func (s *Stream) Stop() { s.cancel() }

// Close stops the refill goroutine and discards queued audio. It must not
// be called concurrently with Read.
func (s *Stream) Close() error {
	s.cancel()
	s.flush()
	return nil
}
