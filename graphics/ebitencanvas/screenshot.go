package ebitencanvas

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/montage/core"
)

// Screenshot queues a capture of the next drawn frame. The PNG is written
// to ScreenshotDir as <label>_<frame>.png. Safe to call from Update or
// Draw.
func (p *Preview) Screenshot(label string) {
	p.shots = append(p.shots, label)
}

// flushScreenshots writes every queued capture of screen.
func (p *Preview) flushScreenshots(screen *ebiten.Image) {
	if len(p.shots) == 0 {
		return
	}
	defer func() { p.shots = p.shots[:0] }()

	dir := p.ScreenshotDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		core.Logger().Warn().Err(err).Str("dir", dir).Msg("screenshot failed")
		return
	}

	b := screen.Bounds()
	pix := make([]byte, 4*b.Dx()*b.Dy())
	screen.ReadPixels(pix)
	img := unpremultiply(pix, b.Dx(), b.Dy())

	for _, label := range p.shots {
		path := filepath.Join(dir, fmt.Sprintf("%s_%05d.png", sanitizeLabel(label), p.frame))
		if err := writePNG(path, img); err != nil {
			core.Logger().Warn().Err(err).Msg("screenshot failed")
			continue
		}
		core.Logger().Info().Str("path", path).Msg("screenshot saved")
	}
}

// unpremultiply converts premultiplied RGBA pixels to straight alpha.
func unpremultiply(pix []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i+3 < len(pix); i += 4 {
		r, g, b, a := pix[i], pix[i+1], pix[i+2], pix[i+3]
		if a > 0 && a < 255 {
			r = uint8(min(int(r)*255/int(a), 255))
			g = uint8(min(int(g)*255/int(a), 255))
			b = uint8(min(int(b)*255/int(a), 255))
		}
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
	return img
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// sanitizeLabel keeps letters, digits, '-' and '.', replacing anything else
// with '_'.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "preview"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, label)
}
