// Command montage renders and previews montage project documents.
//
//	montage render  [flags] project.json   write every frame as a PNG
//	montage preview [flags] project.json   play the project in a window
//	montage info    project.json           print a summary
//	montage convert in.json out.cbor       re-encode a project document
//
// Settings come from montage.yaml next to the project (or -config); flags
// override them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/phanxgames/montage/config"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/scene"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	switch {
	case errors.Is(err, errUsage):
		usage(os.Stderr)
		os.Exit(2)
	case errors.Is(err, context.Canceled):
		os.Exit(130)
	case err != nil:
		fmt.Fprintln(os.Stderr, "montage:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: montage render|preview|info|convert [flags] project")
	fmt.Fprintln(w, "run 'montage <command> -h' for command flags")
}

// run executes one command. A -h request has already printed the command's
// flags and is not an error.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	err := dispatch(ctx, args, stdout, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func dispatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "render":
		return runRender(ctx, args, stderr)
	case "preview":
		return runPreview(ctx, args, stderr)
	case "info":
		return runInfo(args, stdout)
	case "convert":
		return runConvert(args)
	case "help", "-h", "--help":
		usage(stdout)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

// common holds the flags every project command accepts.
type common struct {
	configPath string
	logLevel   string
}

func (c *common) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "configuration file (default: montage.yaml next to the project)")
	fs.StringVar(&c.logLevel, "log", "", "log level override (debug, info, warn, error)")
}

// setup loads the configuration for project, installs the logger and the
// decoder defaults, and loads the scene.
func (c *common) setup(project string, stderr io.Writer, override func(*config.Config)) (*config.Config, *scene.Scene, error) {
	path := c.configPath
	var cfg *config.Config
	var err error
	if path == "" {
		cfg, err = config.LoadOptional(filepath.Join(filepath.Dir(project), config.FileName))
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		return nil, nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	core.SetLogger(cfg.NewLogger(stderr))

	s, err := scene.Load(project)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", project, err)
	}
	s.SetDecoderOptions(cfg.DecoderOptions())
	return cfg, s, nil
}

// parseFlags parses args into fs. flag.ErrHelp is returned as is; other
// failures are usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", errUsage, err)
}

func projectArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s needs exactly one project file", errUsage, fs.Name())
	}
	return fs.Arg(0), nil
}

func runInfo(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: info needs exactly one project file", errUsage)
	}
	s, err := scene.Load(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "size:       %dx%d\n", s.Width(), s.Height())
	fmt.Fprintf(stdout, "duration:   %v (%d frames at %s fps)\n", s.Duration(), s.FrameCount(), s.FrameRate())
	fmt.Fprintf(stdout, "content:    %v\n", s.ContentEnd())
	fmt.Fprintf(stdout, "background: %s\n", s.Background())
	fmt.Fprintf(stdout, "layers:     %d\n", s.Layers().Len())
	for i, l := range s.Layers().Items() {
		kind := "empty"
		switch {
		case l.Drawable() != nil && l.NodeTree() != nil:
			kind = "drawable+nodes"
		case l.Drawable() != nil:
			kind = "drawable"
		case l.NodeTree() != nil:
			kind = fmt.Sprintf("nodes(%d)", l.NodeTree().Nodes().Len())
		}
		fmt.Fprintf(stdout, "  %2d  %v..%v  z=%d  %s\n", i, l.Start(), l.End(), l.ZIndex(), kind)
	}
	fmt.Fprintf(stdout, "sounds:     %d\n", s.Sounds().Len())
	return nil
}

func runConvert(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: convert needs an input and an output file", errUsage)
	}
	s, err := scene.Load(args[0])
	if err != nil {
		return err
	}
	return scene.Save(args[1], s)
}
