package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
	"github.com/phanxgames/montage/scene"
)

func writeProject(t *testing.T, name string) string {
	t.Helper()
	s := scene.New(16, 8)
	s.SetDuration(time.Second)
	s.SetFrameRate(media.Rational{Num: 5, Den: 1})
	r := graphics.NewRectangle(8, 8)
	r.SetForeground(graphics.NewSolidColorBrush(media.Color{R: 1, A: 1}))
	l := scene.NewLayer(0, time.Second)
	l.SetDrawable(r)
	s.Layers().Add(l)

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, scene.Save(path, s))
	return path
}

func TestRunUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.ErrorIs(t, run(context.Background(), nil, &out, &errOut), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"paint"}, &out, &errOut), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"info"}, &out, &errOut), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"render", "a", "b"}, &out, &errOut), errUsage)
}

func TestRunHelp(t *testing.T) {
	for _, cmd := range []string{"render", "preview"} {
		var out, errOut bytes.Buffer
		assert.NoError(t, run(context.Background(), []string{cmd, "-h"}, &out, &errOut), cmd)
		assert.Contains(t, errOut.String(), "-config", cmd)
	}
	var out, errOut bytes.Buffer
	assert.ErrorIs(t, run(context.Background(), []string{"render", "-bogus", "p.json"}, &out, &errOut), errUsage)
}

func TestRunInfo(t *testing.T) {
	project := writeProject(t, "p.json")
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"info", project}, &out, &out))
	assert.Contains(t, out.String(), "size:       16x8")
	assert.Contains(t, out.String(), "5 frames at 5/1 fps")
	assert.Contains(t, out.String(), "drawable")
}

func TestRunConvert(t *testing.T) {
	project := writeProject(t, "p.json")
	dst := filepath.Join(filepath.Dir(project), "p.cbor")
	require.NoError(t, run(context.Background(), []string{"convert", project, dst}, nil, nil))

	s, err := scene.Load(dst)
	require.NoError(t, err)
	assert.Equal(t, 16, s.Width())
	assert.Equal(t, 1, s.Layers().Len())
}

func TestRunRender(t *testing.T) {
	project := writeProject(t, "p.json")
	outDir := filepath.Join(t.TempDir(), "frames")
	var errOut bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"render", "-o", outDir, "-last", "2", project}, nil, &errOut))

	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "frame_00000.png", entries[0].Name())

	f, err := os.Open(filepath.Join(outDir, "frame_00002.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	r, g, b, a := img.At(2, 2).RGBA()
	assert.Equal(t, [4]uint32{0xffff, 0, 0, 0xffff}, [4]uint32{r, g, b, a})
	r, g, b, _ = img.At(12, 2).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b})
}

func TestRunRenderUsesConfig(t *testing.T) {
	project := writeProject(t, "p.json")
	dir := filepath.Dir(project)
	outDir := filepath.Join(dir, "out")
	cfg := "render:\n  output: " + outDir + "\n  pattern: f%d.png\n  first: 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "montage.yaml"), []byte(cfg), 0o644))

	require.NoError(t, run(context.Background(), []string{"render", project}, nil, &bytes.Buffer{}))
	_, err := os.Stat(filepath.Join(outDir, "f4.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(outDir, "f3.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunRenderBadConfig(t *testing.T) {
	project := writeProject(t, "p.json")
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log:\n  level: loud\n"), 0o644))
	err := run(context.Background(), []string{"render", "-config", bad, project}, nil, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunRenderCancelled(t *testing.T) {
	project := writeProject(t, "p.json")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := run(ctx, []string{"render", "-o", t.TempDir(), project}, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
}
