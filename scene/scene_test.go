package scene

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/audio"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/graphics/raster"
	"github.com/phanxgames/montage/media"
	"github.com/phanxgames/montage/nodetree"
)

var (
	red   = media.Color{R: 1, A: 1}
	green = media.Color{G: 1, A: 1}

	rgbaBlack = color.RGBA{0, 0, 0, 255}
	rgbaRed   = color.RGBA{255, 0, 0, 255}
	rgbaGreen = color.RGBA{0, 255, 0, 255}
)

func rect(w, h float64, c media.Color) *graphics.Rectangle {
	r := graphics.NewRectangle(w, h)
	r.SetForeground(graphics.NewSolidColorBrush(c))
	return r
}

func rectLayer(start, length time.Duration, d graphics.Drawable) *Layer {
	l := NewLayer(start, length)
	l.SetDrawable(d)
	return l
}

// shapeTree builds rect -> transform -> output.
func shapeTree(fill media.Color, x float64) *nodetree.Space {
	s := nodetree.NewSpace()
	rn := nodetree.NewRectNode()
	tr := nodetree.NewTranslateNode()
	xf := nodetree.NewTransformNode()
	out := nodetree.NewLayerOutputNode()
	s.Nodes().Add(rn, tr, xf, out)
	rn.SetFill(fill)
	rn.SetWidth(20)
	rn.SetHeight(20)
	tr.SetX(x)
	must := func(_ *nodetree.Connection, err error) {
		if err != nil {
			panic(err)
		}
	}
	must(s.Connect(rn.Output, xf.Drawable))
	must(s.Connect(tr.Matrix, xf.Matrix))
	must(s.Connect(xf.Output, out.Drawable))
	return s
}

func render(s *Scene, t time.Duration) *raster.Canvas {
	c := raster.New(s.Width(), s.Height())
	s.Render(c, t)
	return c
}

func TestLayerIsActive(t *testing.T) {
	l := NewLayer(time.Second, 2*time.Second)
	tests := []struct {
		at   time.Duration
		want bool
	}{
		{0, false},
		{999 * time.Millisecond, false},
		{time.Second, true},
		{2999 * time.Millisecond, true},
		{3 * time.Second, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, l.IsActive(tt.at), "at %v", tt.at)
	}
	l.SetIsEnabled(false)
	assert.False(t, l.IsActive(time.Second))
}

func TestLayerNegativeStartCoerced(t *testing.T) {
	l := NewLayer(-time.Second, time.Second)
	assert.Equal(t, time.Duration(0), l.Start())
	assert.Equal(t, time.Second, l.End())
}

func TestActiveLayersOrderedByZIndex(t *testing.T) {
	s := New(10, 10)
	a, b, c := NewLayer(0, time.Second), NewLayer(0, time.Second), NewLayer(0, time.Second)
	a.SetZIndex(2)
	c.SetZIndex(-1)
	late := NewLayer(5*time.Second, time.Second)
	s.Layers().Add(a, b, late, c)

	assert.Equal(t, []*Layer{c, b, a}, s.ActiveLayers(0))
}

func TestRenderDrawsActiveLayers(t *testing.T) {
	s := New(40, 20)
	s.Layers().Add(rectLayer(time.Second, time.Second, rect(10, 10, red)))

	c := render(s, 0)
	assert.Equal(t, rgbaBlack, c.Image().RGBAAt(5, 5))

	c = render(s, 1500*time.Millisecond)
	assert.Equal(t, rgbaRed, c.Image().RGBAAt(5, 5))
	assert.Equal(t, rgbaBlack, c.Image().RGBAAt(15, 5))
}

func TestRenderZIndexOnTop(t *testing.T) {
	s := New(10, 10)
	top := rectLayer(0, time.Second, rect(10, 10, red))
	top.SetZIndex(1)
	s.Layers().Add(top, rectLayer(0, time.Second, rect(10, 10, green)))

	assert.Equal(t, rgbaRed, render(s, 0).Image().RGBAAt(5, 5))

	top.SetZIndex(-1)
	assert.Equal(t, rgbaGreen, render(s, 0).Image().RGBAAt(5, 5))
}

func TestLayerAnimationsUseLayerTime(t *testing.T) {
	s := New(40, 10)
	r := rect(10, 10, red)
	move := graphics.NewTranslateTransform(0, 0)
	r.SetTransform(move)
	anim := animation.NewKeyFrameAnimation(graphics.TranslateXProperty,
		animation.KeyFrame[float64]{KeyTime: 0, Value: 0},
		animation.KeyFrame[float64]{KeyTime: time.Second, Value: 20},
	)
	anim.SetUseGlobalClock(false)
	require.NoError(t, move.Animations().Add(anim))
	s.Layers().Add(rectLayer(2*time.Second, 2*time.Second, r))

	c := render(s, 2500*time.Millisecond)

	assert.InDelta(t, 10, move.X(), 1e-9)
	assert.Equal(t, rgbaBlack, c.Image().RGBAAt(5, 5))
	assert.Equal(t, rgbaRed, c.Image().RGBAAt(15, 5))
}

func TestNodeTreeLayer(t *testing.T) {
	s := New(60, 30)
	l := NewLayer(0, time.Second)
	l.SetNodeTree(shapeTree(green, 30))
	s.Layers().Add(l)

	drawables := s.Evaluate(0)
	require.Len(t, drawables, 1)

	c := render(s, 0)
	assert.Equal(t, rgbaBlack, c.Image().RGBAAt(10, 10))
	assert.Equal(t, rgbaGreen, c.Image().RGBAAt(40, 10))
}

func TestSceneInvalidatedByLayers(t *testing.T) {
	s := New(10, 10)
	l := NewLayer(0, time.Second)
	s.Layers().Add(l)
	var hits int
	s.Invalidated().Subscribe(func(*media.InvalidatedEvent) { hits++ })

	l.SetZIndex(3)
	assert.Equal(t, 1, hits)

	r := rect(1, 1, red)
	l.SetDrawable(r)
	hits = 0
	r.SetWidth(5)
	assert.Positive(t, hits)
}

func TestFrameRateRejectsZero(t *testing.T) {
	s := New(10, 10)
	err := core.SetValue(s, FrameRateProperty, media.Rational{Num: 0, Den: 1})
	require.Error(t, err)
	assert.Equal(t, media.Rational{Num: 30, Den: 1}, s.FrameRate())

	s.SetDuration(2 * time.Second)
	assert.Equal(t, 60, s.FrameCount())
	assert.Equal(t, 500*time.Millisecond, s.TimeOf(15))
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatForPath("a/b/project.json"))
	assert.Equal(t, FormatJSON, FormatForPath("project"))
	assert.Equal(t, FormatCBOR, FormatForPath("project.CBOR"))
	assert.Equal(t, FormatCBOR, FormatForPath("project.mtgb"))
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatCBOR} {
		t.Run(f.String(), func(t *testing.T) {
			s := New(60, 30)
			s.SetBackground(media.Color{B: 1, A: 1})
			s.SetDuration(3 * time.Second)
			s.SetFrameRate(media.Rational{Num: 24, Den: 1})
			bottom := rectLayer(0, 2*time.Second, rect(10, 10, red))
			top := NewLayer(time.Second, time.Second)
			top.SetZIndex(4)
			top.SetNodeTree(shapeTree(green, 30))
			s.Layers().Add(bottom, top)

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, s, f))
			back, err := Decode(&buf, f)
			require.NoError(t, err)

			assert.Equal(t, 60, back.Width())
			assert.Equal(t, 3*time.Second, back.Duration())
			assert.Equal(t, media.Rational{Num: 24, Den: 1}, back.FrameRate())
			require.Equal(t, 2, back.Layers().Len())
			l := back.Layers().At(1)
			assert.Equal(t, time.Second, l.Start())
			assert.Equal(t, 4, l.ZIndex())
			require.NotNil(t, l.NodeTree())
			assert.Len(t, l.NodeTree().Connections(), 3)

			for _, at := range []time.Duration{0, 1500 * time.Millisecond} {
				want := render(s, at).Image()
				got := render(back, at).Image()
				assert.Equal(t, want.Pix, got.Pix, "frame at %v", at)
			}
		})
	}
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name, doc string
	}{
		{"not json", "{"},
		{"no version", `{"scene": {"@type": "Scene"}}`},
		{"future version", `{"version": 99, "scene": {"@type": "Scene"}}`},
		{"no scene", `{"version": 1}`},
		{"wrong type", `{"version": 1, "scene": {"@type": "Layer"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc), FormatJSON)
			assert.Error(t, err)
		})
	}
}

func TestDecodeSkipsUnknownLayers(t *testing.T) {
	doc := `{"version": 1, "scene": {"@type": "Scene", "width": 8, "layers": [
		{"@type": "Layer", "start": 1000000000},
		{"@type": "NoSuchThing"}
	]}}`
	s, err := Decode(strings.NewReader(doc), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Width())
	require.Equal(t, 1, s.Layers().Len())
	assert.Equal(t, time.Second, s.Layers().At(0).Start())
}

func TestSaveLoadFile(t *testing.T) {
	dir := t.TempDir()
	s := New(16, 9)
	s.Layers().Add(rectLayer(0, time.Second, rect(4, 4, red)))

	for _, name := range []string{"p.json", "p.cbor"} {
		path := dir + "/" + name
		require.NoError(t, Save(path, s))
		back, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 16, back.Width())
		assert.Equal(t, 1, back.Layers().Len())
	}

	_, err := Load(dir + "/missing.json")
	assert.Error(t, err)
}

func TestDocumentSoundtrack(t *testing.T) {
	for _, f := range []Format{FormatJSON, FormatCBOR} {
		t.Run(f.String(), func(t *testing.T) {
			s := New(8, 8)
			snd := audio.NewSound(&audio.Tone{Rate: 100, Frequency: 25, Amplitude: 0.5, Length: time.Second})
			snd.SetOffset(500 * time.Millisecond)
			delay := audio.NewDelay()
			delay.SetDelayTime(0.1)
			snd.Effects().Add(delay)
			s.Sounds().Add(snd)

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, s, f))
			back, err := Decode(&buf, f)
			require.NoError(t, err)

			require.Equal(t, 1, back.Sounds().Len())
			got := back.Sounds().At(0)
			assert.Equal(t, 500*time.Millisecond, got.Offset())
			assert.Equal(t, &audio.Tone{Rate: 100, Frequency: 25, Amplitude: 0.5, Length: time.Second}, got.Source())
			require.Equal(t, 1, got.Effects().Len())
			assert.InDelta(t, 0.1, got.Effects().At(0).(*audio.Delay).DelayTime(), 1e-9)

			dst := make([]audio.Sample, 100)
			assert.Equal(t, 100, back.Soundtrack(100).ReadAt(dst, 0))
			assert.Equal(t, audio.Sample{}, dst[10])
		})
	}
}

func TestSceneOpensMediaWithItsOptions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.png", "b.png"} {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 2))))
		require.NoError(t, f.Close())
	}

	s := New(8, 8)
	s.SetDecoderOptions(media.DecoderOptions{FrameRate: media.Rational{Num: 5, Den: 1}})
	video := graphics.NewVideoFrame(dir)
	l := NewLayer(0, time.Second)
	l.SetDrawable(video)
	s.Layers().Add(l)

	s.Render(raster.New(8, 8), 0)
	assert.Equal(t, media.Rect{Width: 4, Height: 2}, video.Bounds())

	dec, err := s.OpenMedia(dir)
	require.NoError(t, err)
	defer dec.Close()
	assert.Equal(t, media.Rational{Num: 5, Den: 1}, dec.FrameRate())

	_, err = s.OpenMedia(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, core.ErrMediaOpen)
}
