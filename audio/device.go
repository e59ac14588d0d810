package audio

import (
	"context"
	"fmt"
	"time"

	ebaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/phanxgames/montage/core"
)

// Play sends s to the default audio device and blocks until the stream
// ends or ctx is done. Only one device sample rate exists per process; a
// stream at a different rate is an error.
func Play(ctx context.Context, s *Stream) error {
	ac := ebaudio.CurrentContext()
	if ac == nil {
		ac = ebaudio.NewContext(s.SampleRate())
	} else if ac.SampleRate() != s.SampleRate() {
		return fmt.Errorf("audio: device runs at %d Hz, stream at %d Hz", ac.SampleRate(), s.SampleRate())
	}
	p, err := ac.NewPlayerF32(s)
	if err != nil {
		return fmt.Errorf("audio: open player: %w", err)
	}
	defer p.Close()

	p.Play()
	core.Logger().Info().Int("rate", s.SampleRate()).Msg("audio playback started")
	t := time.NewTicker(20 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Pause()
			s.Stop()
			return ctx.Err()
		case <-t.C:
			if !p.IsPlaying() {
				return nil
			}
		}
	}
}
