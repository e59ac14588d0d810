package graphics

import (
	"image"
	"time"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
	"github.com/phanxgames/montage/media/decoding"
)

// MediaOpener opens the files of ImageFile and VideoFrame. A drawable uses
// its nearest ancestor implementing MediaOpener, or decoding.Open with
// default options when there is none.
type MediaOpener interface {
	OpenMedia(path string) (media.Decoder, error)
}

// OpenerFunc adapts a function to MediaOpener.
type OpenerFunc func(path string) (media.Decoder, error)

func (f OpenerFunc) OpenMedia(path string) (media.Decoder, error) { return f(path) }

// OpenWith returns a MediaOpener calling decoding.Open with opts.
func OpenWith(opts media.DecoderOptions) MediaOpener {
	return OpenerFunc(func(path string) (media.Decoder, error) { return decoding.Open(path, opts) })
}

func openerFor(h core.Hierarchical) MediaOpener {
	a := core.FindAncestor(h, func(p core.Hierarchical) bool {
		_, ok := p.(MediaOpener)
		return ok
	})
	if a == nil {
		return OpenWith(media.DecoderOptions{})
	}
	return a.(MediaOpener)
}

// mediaSource owns the decoder of a file-backed drawable. Open failures
// are logged once per source and leave the drawable empty.
type mediaSource struct {
	path    string
	dec     media.Decoder
	failed  bool
	frame   *image.RGBA
	frameAt int
}

func (s *mediaSource) decoder(owner core.Hierarchical, path string) media.Decoder {
	if path != s.path {
		s.close()
		s.path = path
	}
	if s.dec != nil || s.failed || path == "" {
		return s.dec
	}
	dec, err := openerFor(owner).OpenMedia(path)
	if err != nil {
		s.failed = true
		core.Logger().Warn().Err(err).Str("path", path).Msg("media source unavailable")
		return nil
	}
	if !dec.HasVideo() {
		dec.Close()
		s.failed = true
		core.Logger().Warn().Str("path", path).Msg("media source has no video")
		return nil
	}
	s.dec = dec
	s.frameAt = -1
	return dec
}

// read returns frame index, reusing the previous frame when unchanged.
func (s *mediaSource) read(index int) *image.RGBA {
	if s.dec == nil {
		return nil
	}
	if s.frame != nil && index == s.frameAt {
		return s.frame
	}
	img, err := s.dec.ReadFrame(index)
	if err != nil {
		core.Logger().Debug().Err(err).Int("frame", index).Msg("frame skipped")
		return nil
	}
	s.frame, s.frameAt = img, index
	return img
}

func (s *mediaSource) close() {
	if s.dec != nil {
		if err := s.dec.Close(); err != nil {
			core.Logger().Debug().Err(err).Str("path", s.path).Msg("decoder close")
		}
	}
	s.dec, s.frame, s.failed, s.frameAt = nil, nil, false, -1
}

func (s *mediaSource) size(owner core.Hierarchical, path string) media.Rect {
	dec := s.decoder(owner, path)
	if dec == nil {
		return media.Rect{}
	}
	sz := dec.FrameSize()
	return media.Rect{Width: float64(sz.X), Height: float64(sz.Y)}
}

// --- ImageFile ---

// ImageFile draws the first frame of a still image, image sequence or
// document.
type ImageFile struct {
	DrawableBase
	src mediaSource
}

var ImageFileType = core.DefineType("ImageFile", DrawableType)

var SourceProperty = core.Configure[string, core.Object](ImageFileType, "Source").
	SerializeName("source").
	Register()

func NewImageFile(path string) *ImageFile {
	f := &ImageFile{}
	f.Init(f, ImageFileType)
	f.SetSource(path)
	return f
}

func (f *ImageFile) Source() string     { return core.GetValue(f, SourceProperty) }
func (f *ImageFile) SetSource(p string) { core.Set(f, SourceProperty, p) }

func (f *ImageFile) OnMeasure(media.Size) media.Rect { return f.src.size(f, f.Source()) }

func (f *ImageFile) OnDraw(c Canvas) {
	r := f.src.size(f, f.Source())
	if img := f.src.read(0); img != nil {
		c.DrawBitmap(img, r)
	}
}

// OnDetached releases the decoder.
func (f *ImageFile) OnDetached(core.Hierarchical) { f.src.close() }

// --- VideoFrame ---

// VideoPositionMode selects how VideoFrame picks its frame.
type VideoPositionMode uint8

const (
	// PositionAutomatic follows the clock of the last ApplyAnimations.
	PositionAutomatic VideoPositionMode = iota
	// PositionManual shows PlaybackPosition.
	PositionManual
)

// VideoFrame draws the frame of a decoded source at the requested time
// plus OffsetPosition.
type VideoFrame struct {
	DrawableBase
	src       mediaSource
	requested time.Duration
}

var VideoFrameType = core.DefineType("VideoFrame", DrawableType)

var (
	VideoSourceProperty = core.Configure[string, core.Object](VideoFrameType, "Source").
				SerializeName("source").
				Register()
	OffsetPositionProperty = core.Configure[time.Duration, core.Object](VideoFrameType, "OffsetPosition").
				SerializeName("offsetPosition").
				Register()
	PlaybackPositionProperty = core.Configure[time.Duration, core.Object](VideoFrameType, "PlaybackPosition").
					SerializeName("playbackPosition").
					Animatable().
					Register()
	PositionModeProperty = core.Configure[VideoPositionMode, core.Object](VideoFrameType, "PositionMode").
				SerializeName("positionMode").
				Register()
)

func NewVideoFrame(path string) *VideoFrame {
	v := &VideoFrame{}
	v.Init(v, VideoFrameType)
	v.SetSource(path)
	return v
}

func (v *VideoFrame) Source() string                  { return core.GetValue(v, VideoSourceProperty) }
func (v *VideoFrame) OffsetPosition() time.Duration   { return core.GetValue(v, OffsetPositionProperty) }
func (v *VideoFrame) PlaybackPosition() time.Duration { return core.GetValue(v, PlaybackPositionProperty) }
func (v *VideoFrame) PositionMode() VideoPositionMode { return core.GetValue(v, PositionModeProperty) }

func (v *VideoFrame) SetSource(p string)                  { core.Set(v, VideoSourceProperty, p) }
func (v *VideoFrame) SetOffsetPosition(d time.Duration)   { core.Set(v, OffsetPositionProperty, d) }
func (v *VideoFrame) SetPlaybackPosition(d time.Duration) { core.Set(v, PlaybackPositionProperty, d) }
func (v *VideoFrame) SetPositionMode(m VideoPositionMode) { core.Set(v, PositionModeProperty, m) }

// ApplyAnimations also records the clock's local time for automatic
// positioning.
func (v *VideoFrame) ApplyAnimations(clock animation.Clock) {
	v.DrawableBase.ApplyAnimations(clock)
	if v.PositionMode() == PositionAutomatic {
		v.requested = clock.CurrentTime() - clock.BeginTime()
	}
}

// Position is the media time of the frame Render draws.
func (v *VideoFrame) Position() time.Duration {
	p := v.requested
	if v.PositionMode() == PositionManual {
		p = v.PlaybackPosition()
	}
	return p + v.OffsetPosition()
}

func (v *VideoFrame) OnMeasure(media.Size) media.Rect { return v.src.size(v, v.Source()) }

func (v *VideoFrame) OnDraw(c Canvas) {
	dec := v.src.decoder(v, v.Source())
	if dec == nil {
		return
	}
	pos := v.Position()
	if pos < 0 || (dec.Duration() > 0 && pos >= dec.Duration()) {
		return
	}
	if img := v.src.read(dec.FrameRate().FrameAt(pos)); img != nil {
		sz := dec.FrameSize()
		c.DrawBitmap(img, media.Rect{Width: float64(sz.X), Height: float64(sz.Y)})
	}
}

func (v *VideoFrame) OnDetached(core.Hierarchical) { v.src.close() }

func init() {
	media.AffectsRender(ImageFileType, SourceProperty)
	media.AffectsRender(VideoFrameType, VideoSourceProperty, OffsetPositionProperty, PlaybackPositionProperty, PositionModeProperty)
	ImageFileType.SetFactory(func() core.Object { return NewImageFile("") })
	VideoFrameType.SetFactory(func() core.Object { return NewVideoFrame("") })
}

var (
	_ Drawable        = (*ImageFile)(nil)
	_ Drawable        = (*VideoFrame)(nil)
	_ core.DetachHook = (*ImageFile)(nil)
	_ core.DetachHook = (*VideoFrame)(nil)
)
