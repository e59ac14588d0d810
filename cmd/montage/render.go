package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/phanxgames/montage/config"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/rendering"
)

func runRender(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var c common
	c.register(fs)
	output := fs.String("o", "", "output directory")
	first := fs.Int("first", -1, "first frame")
	last := fs.Int("last", -2, "last frame, -1 for the end")
	realtime := fs.Bool("realtime", false, "pace frames at the project frame rate")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	project, err := projectArg(fs)
	if err != nil {
		return err
	}

	cfg, s, err := c.setup(project, stderr, func(cfg *config.Config) {
		if *output != "" {
			cfg.Render.Output = *output
		}
		if *first >= 0 {
			cfg.Render.First = *first
		}
		if *last >= -1 {
			cfg.Render.Last = *last
		}
		if *realtime {
			cfg.Render.Realtime = true
		}
	})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Render.Output, 0o755); err != nil {
		return err
	}

	d := rendering.NewDispatcher(cfg.Render.Backlog)
	defer d.Close()
	player := rendering.NewPlayer(rendering.NewRenderer(s, d, nil), rendering.PlayerOptions{
		First:    cfg.Render.First,
		Last:     cfg.Render.Last,
		Realtime: cfg.Render.Realtime,
		Backlog:  cfg.Render.Backlog,
	})
	enc := &png.Encoder{CompressionLevel: png.BestSpeed}
	err = player.Play(ctx, func(_ context.Context, f rendering.Frame) error {
		path := filepath.Join(cfg.Render.Output, fmt.Sprintf(cfg.Render.Pattern, f.Index))
		return writePNG(enc, path, f)
	})
	stats := player.Stats()
	core.Logger().Info().
		Int("frames", stats.Frames).
		Str("output", cfg.Render.Output).
		Dur("elapsed", stats.Elapsed).
		Msg("render finished")
	return err
}

func writePNG(enc *png.Encoder, path string, f rendering.Frame) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(file)
	if err := enc.Encode(w, f.Image); err != nil {
		return fmt.Errorf("frame %d: %w", f.Index, err)
	}
	return w.Flush()
}
