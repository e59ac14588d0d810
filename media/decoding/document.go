package decoding

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/gen2brain/go-fitz"

	"github.com/phanxgames/montage/media"
)

// DocumentDecoder renders the pages of a PDF (or any MuPDF format) as
// frames, one page per frame at the configured rate.
type DocumentDecoder struct {
	path string
	dpi  float64
	rate media.Rational

	mu    sync.Mutex
	doc   *fitz.Document
	pages int
	size  image.Point
}

// OpenDocument opens path with go-fitz and reads the first page bounds.
func OpenDocument(path string, opts media.DecoderOptions) (*DocumentDecoder, error) {
	opts = opts.WithDefaults()
	doc, err := fitz.New(path)
	if err != nil {
		return nil, openError(path, err)
	}
	n := doc.NumPage()
	if n == 0 {
		doc.Close()
		return nil, openError(path, fmt.Errorf("document has no pages"))
	}
	bound, err := doc.Bound(0)
	if err != nil {
		doc.Close()
		return nil, openError(path, err)
	}
	scale := opts.DPI / 72
	return &DocumentDecoder{
		path:  path,
		dpi:   opts.DPI,
		rate:  opts.FrameRate,
		doc:   doc,
		pages: n,
		size: image.Point{
			X: int(float64(bound.Dx())*scale + 0.5),
			Y: int(float64(bound.Dy())*scale + 0.5),
		},
	}, nil
}

func (d *DocumentDecoder) HasVideo() bool            { return true }
func (d *DocumentDecoder) HasAudio() bool            { return false }
func (d *DocumentDecoder) FrameRate() media.Rational { return d.rate }
func (d *DocumentDecoder) FrameSize() image.Point    { return d.size }
func (d *DocumentDecoder) PageCount() int            { return d.pages }

func (d *DocumentDecoder) Duration() time.Duration {
	return d.rate.TimeOf(d.pages)
}

// ReadFrame renders page index (clamped to the page range). MuPDF
// documents are not safe for concurrent use, so renders are serialized.
func (d *DocumentDecoder) ReadFrame(index int) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, readError(d.path, index, fmt.Errorf("decoder closed"))
	}
	index = max(0, min(index, d.pages-1))
	img, err := d.doc.ImageDPI(index, d.dpi)
	if err != nil {
		return nil, readError(d.path, index, err)
	}
	return img, nil
}

func (d *DocumentDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
