package media

import (
	"fmt"
	"image"
	"time"
)

// Rational is an exact frame rate such as 30000/1001.
type Rational struct {
	Num int64 `json:"num"`
	Den int64 `json:"den"`
}

func (r Rational) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// FrameDuration is the length of one frame.
func (r Rational) FrameDuration() time.Duration {
	if r.Num == 0 {
		return 0
	}
	return time.Duration(int64(time.Second) * r.Den / r.Num)
}

// FrameAt returns the index of the frame shown at t.
func (r Rational) FrameAt(t time.Duration) int {
	if r.Den == 0 {
		return 0
	}
	return int(int64(t) * r.Num / (r.Den * int64(time.Second)))
}

// TimeOf returns the presentation time of frame.
func (r Rational) TimeOf(frame int) time.Duration {
	if r.Num == 0 {
		return 0
	}
	return time.Duration(int64(frame) * r.Den * int64(time.Second) / r.Num)
}

func (r Rational) String() string { return fmt.Sprintf("%d/%d", r.Num, r.Den) }

// Decoder is the collaborator that turns a media file into frames. The
// engine never looks inside it; failures mean "nothing to draw".
type Decoder interface {
	HasVideo() bool
	HasAudio() bool
	Duration() time.Duration
	FrameRate() Rational
	FrameSize() image.Point
	// ReadFrame decodes frame index. The returned image is owned by the
	// caller.
	ReadFrame(index int) (*image.RGBA, error)
	Close() error
}

// DecoderOptions tune how a file is opened.
type DecoderOptions struct {
	// FrameRate for sources without their own timing (image sequences,
	// documents). Zero means 30/1.
	FrameRate Rational
	// DPI for vector documents. Zero means 72.
	DPI float64
}

func (o DecoderOptions) WithDefaults() DecoderOptions {
	if o.FrameRate.Num == 0 || o.FrameRate.Den == 0 {
		o.FrameRate = Rational{30, 1}
	}
	if o.DPI == 0 {
		o.DPI = 72
	}
	return o
}
