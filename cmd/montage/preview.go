package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"time"

	"github.com/phanxgames/montage/audio"
	"github.com/phanxgames/montage/config"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/graphics/ebitencanvas"
)

func runPreview(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	noLoop := fs.Bool("once", false, "stop at the last frame instead of looping")
	withAudio := fs.Bool("audio", false, "play the soundtrack")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	project, err := projectArg(fs)
	if err != nil {
		return err
	}
	cfg, s, err := c.setup(project, stderr, func(cfg *config.Config) {
		if *noLoop {
			cfg.Preview.Loop = false
		}
		if *withAudio {
			cfg.Preview.Audio = true
		}
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.Preview.Audio && s.Sounds().Len() > 0 {
		stream := audio.NewStream(ctx, s.Soundtrack(cfg.Audio.SampleRate), audio.StreamOptions{
			BlockSize: cfg.Audio.BlockSize,
			Backlog:   cfg.Audio.Backlog,
		})
		go func() {
			if err := audio.Play(ctx, stream); err != nil && !errors.Is(err, context.Canceled) {
				core.Logger().Warn().Err(err).Msg("soundtrack playback failed")
			}
		}()
	}

	p := &ebitencanvas.Preview{
		Width:         s.Width(),
		Height:        s.Height(),
		Duration:      s.Duration(),
		FrameRate:     s.FrameRate(),
		Background:    s.Background(),
		Loop:          cfg.Preview.Loop,
		ScreenshotDir: cfg.Preview.Screenshots,
		Render: func(c graphics.Canvas, t time.Duration) {
			s.Render(c, t)
		},
	}
	return p.Run(cfg.Preview.Title)
}
