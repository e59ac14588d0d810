package decoding

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/phanxgames/montage/media"
)

// stillDuration is reported for still images: they show for as long as
// anything asks.
const stillDuration = time.Duration(math.MaxInt64)

// ImageDecoder serves a single still image as an endless one-frame video.
type ImageDecoder struct {
	path string
	img  *image.RGBA
}

// OpenImage decodes path eagerly.
func OpenImage(path string) (*ImageDecoder, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, openError(path, err)
	}
	return &ImageDecoder{path: path, img: toRGBA(img)}, nil
}

// NewImageDecoder wraps an in-memory image.
func NewImageDecoder(img image.Image) *ImageDecoder {
	return &ImageDecoder{path: "<memory>", img: toRGBA(img)}
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

func (d *ImageDecoder) HasVideo() bool          { return true }
func (d *ImageDecoder) HasAudio() bool          { return false }
func (d *ImageDecoder) Duration() time.Duration { return stillDuration }
func (d *ImageDecoder) FrameRate() media.Rational {
	return media.Rational{Num: 1, Den: 1}
}
func (d *ImageDecoder) FrameSize() image.Point { return d.img.Rect.Size() }

// ReadFrame returns a copy of the image for any index.
func (d *ImageDecoder) ReadFrame(int) (*image.RGBA, error) {
	if d.img == nil {
		return nil, readError(d.path, 0, fmt.Errorf("decoder closed"))
	}
	return toRGBA(d.img), nil
}

func (d *ImageDecoder) Close() error {
	d.img = nil
	return nil
}

// SequenceDecoder plays the images of a directory in name order, one per
// frame. Frames are decoded on demand; the last frame read is cached.
type SequenceDecoder struct {
	dir   string
	files []string
	rate  media.Rational
	size  image.Point

	mu        sync.Mutex
	lastIndex int
	last      *image.RGBA
}

// OpenSequence lists dir and decodes the first frame to learn the size.
func OpenSequence(dir string, opts media.DecoderOptions) (*SequenceDecoder, error) {
	opts = opts.WithDefaults()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, openError(dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, openError(dir, fmt.Errorf("no images"))
	}
	slices.Sort(files)
	first, err := decodeFile(files[0])
	if err != nil {
		return nil, openError(files[0], err)
	}
	d := &SequenceDecoder{
		dir:       dir,
		files:     files,
		rate:      opts.FrameRate,
		size:      first.Bounds().Size(),
		lastIndex: 0,
		last:      toRGBA(first),
	}
	return d, nil
}

func (d *SequenceDecoder) HasVideo() bool            { return true }
func (d *SequenceDecoder) HasAudio() bool            { return false }
func (d *SequenceDecoder) FrameRate() media.Rational { return d.rate }
func (d *SequenceDecoder) FrameSize() image.Point    { return d.size }
func (d *SequenceDecoder) FrameCount() int           { return len(d.files) }

func (d *SequenceDecoder) Duration() time.Duration {
	return d.rate.TimeOf(len(d.files))
}

// ReadFrame clamps index into the sequence.
func (d *SequenceDecoder) ReadFrame(index int) (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.files == nil {
		return nil, readError(d.dir, index, fmt.Errorf("decoder closed"))
	}
	index = max(0, min(index, len(d.files)-1))
	if d.last != nil && d.lastIndex == index {
		return toRGBA(d.last), nil
	}
	img, err := decodeFile(d.files[index])
	if err != nil {
		return nil, readError(d.dir, index, err)
	}
	d.last = toRGBA(img)
	d.lastIndex = index
	return toRGBA(d.last), nil
}

func (d *SequenceDecoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files = nil
	d.last = nil
	return nil
}
