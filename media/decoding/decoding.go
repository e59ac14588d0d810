// Package decoding opens media files behind the media.Decoder interface.
//
// Supported sources:
//   - still images (png, jpeg, gif, bmp, tiff, webp): one frame, unbounded
//     duration
//   - image sequences (a directory of numbered images): one frame per file
//   - PDF and other MuPDF documents: one frame per page, rendered by go-fitz
//
// Open failures and read failures are reported as *core.Error values of
// kind core.KindMediaOpen. Callers in the drawable tree treat them as
// "nothing to draw this frame".
package decoding

import (
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

var documentExts = map[string]bool{
	".pdf": true, ".xps": true, ".epub": true, ".cbz": true,
}

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Open picks a decoder by looking at path: directories are image
// sequences, document extensions go to go-fitz, anything else is decoded as
// a still image.
func Open(path string, opts media.DecoderOptions) (media.Decoder, error) {
	opts = opts.WithDefaults()
	fi, err := os.Stat(path)
	if err != nil {
		return nil, openError(path, err)
	}
	var dec media.Decoder
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case fi.IsDir():
		dec, err = OpenSequence(path, opts)
	case documentExts[ext]:
		dec, err = OpenDocument(path, opts)
	default:
		dec, err = OpenImage(path)
	}
	if err != nil {
		return nil, err
	}
	core.Logger().Info().
		Str("path", path).
		Str("rate", dec.FrameRate().String()).
		Dur("duration", dec.Duration()).
		Msg("media opened")
	return dec, nil
}

func openError(path string, err error) error {
	return core.NewError("decoding.Open", core.KindMediaOpen, "%s: %v", path, err)
}

func readError(path string, index int, err error) error {
	return core.NewError("decoding.ReadFrame", core.KindMediaOpen, "%s frame %d: %v", path, index, err)
}

// toRGBA returns img as a fresh *image.RGBA anchored at the origin.
func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
