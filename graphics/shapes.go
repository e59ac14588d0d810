package graphics

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font/basicfont"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Shape is the base of fixed-size figures filled with the Foreground
// brush.
type Shape struct {
	DrawableBase
}

var ShapeType = core.DefineType("Shape", DrawableType)

var (
	WidthProperty = core.Configure[float64, core.Object](ShapeType, "Width").
			SerializeName("width").
			Validator(core.Min(0.0)).
			Animatable().
			Register()
	HeightProperty = core.Configure[float64, core.Object](ShapeType, "Height").
			SerializeName("height").
			Validator(core.Min(0.0)).
			Animatable().
			Register()
)

func (s *Shape) Width() float64      { return core.GetValue(s.Self(), WidthProperty) }
func (s *Shape) Height() float64     { return core.GetValue(s.Self(), HeightProperty) }
func (s *Shape) SetWidth(v float64)  { core.Set(s.Self(), WidthProperty, v) }
func (s *Shape) SetHeight(v float64) { core.Set(s.Self(), HeightProperty, v) }

func (s *Shape) OnMeasure(media.Size) media.Rect {
	return media.Rect{Width: s.Width(), Height: s.Height()}
}

type Rectangle struct {
	Shape
}

var RectangleType = core.DefineType("Rectangle", ShapeType)

func NewRectangle(w, h float64) *Rectangle {
	r := &Rectangle{}
	r.Init(r, RectangleType)
	r.SetWidth(w)
	r.SetHeight(h)
	return r
}

func (r *Rectangle) OnDraw(c Canvas) {
	c.DrawRectangle(media.Rect{Width: r.Width(), Height: r.Height()}, nil)
}

type Ellipse struct {
	Shape
}

var EllipseType = core.DefineType("Ellipse", ShapeType)

func NewEllipse(w, h float64) *Ellipse {
	e := &Ellipse{}
	e.Init(e, EllipseType)
	e.SetWidth(w)
	e.SetHeight(h)
	return e
}

func (e *Ellipse) OnDraw(c Canvas) {
	c.DrawEllipse(media.Rect{Width: e.Width(), Height: e.Height()}, nil)
}

// --- TextBlock ---

// TextBlock draws text in the fixed-width face. Lines are separated by
// '\n'; the block is as wide as its longest line.
type TextBlock struct {
	DrawableBase
}

var TextBlockType = core.DefineType("TextBlock", DrawableType)

var (
	TextProperty = core.Configure[string, core.Object](TextBlockType, "Text").
			SerializeName("text").
			Animatable().
			Register()
	FontSizeProperty = core.Configure[float64, core.Object](TextBlockType, "FontSize").
				DefaultValue(24).
				SerializeName("fontSize").
				Validator(core.Min(0.0)).
				Animatable().
				Register()
)

func NewTextBlock(text string) *TextBlock {
	t := &TextBlock{}
	t.Init(t, TextBlockType)
	t.SetText(text)
	return t
}

func (t *TextBlock) Text() string          { return core.GetValue(t, TextProperty) }
func (t *TextBlock) FontSize() float64     { return core.GetValue(t, FontSizeProperty) }
func (t *TextBlock) SetText(s string)      { core.Set(t, TextProperty, s) }
func (t *TextBlock) SetFontSize(v float64) { core.Set(t, FontSizeProperty, v) }

// MeasureText returns the size of text in the fixed-width face at
// fontSize.
func MeasureText(text string, fontSize float64) media.Size {
	if text == "" {
		return media.Size{}
	}
	face := basicfont.Face7x13
	scale := fontSize / float64(face.Height)
	lines := strings.Split(text, "\n")
	cols := 0
	for _, l := range lines {
		cols = max(cols, utf8.RuneCountInString(l))
	}
	return media.Size{
		Width:  float64(cols*face.Advance) * scale,
		Height: float64(len(lines)*face.Height) * scale,
	}
}

func (t *TextBlock) OnMeasure(media.Size) media.Rect {
	return media.RectFromSize(MeasureText(t.Text(), t.FontSize()))
}

func (t *TextBlock) OnDraw(c Canvas) {
	if s := t.Text(); s != "" {
		c.DrawText(s, t.FontSize(), media.Point{}, nil)
	}
}

func init() {
	media.AffectsRender(ShapeType, WidthProperty, HeightProperty)
	media.AffectsRender(TextBlockType, TextProperty, FontSizeProperty)
	RectangleType.SetFactory(func() core.Object { return NewRectangle(0, 0) })
	EllipseType.SetFactory(func() core.Object { return NewEllipse(0, 0) })
	TextBlockType.SetFactory(func() core.Object { return NewTextBlock("") })
}

var (
	_ Drawable = (*Rectangle)(nil)
	_ Drawable = (*Ellipse)(nil)
	_ Drawable = (*TextBlock)(nil)
)
