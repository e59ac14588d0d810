package ebitencanvas

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/montage/media"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		input, want int
	}{
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{5, 8},
		{128, 128},
		{129, 256},
		{1000, 1024},
		{1920, 2048},
	}
	for _, tt := range tests {
		if got := nextPowerOfTwo(tt.input); got != tt.want {
			t.Errorf("nextPowerOfTwo(%d) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestPoolAcquireReturnsPow2(t *testing.T) {
	var pool texturePool
	img := pool.Acquire(100, 50)
	defer pool.Release(img)

	if b := img.Bounds(); b.Dx() != 128 || b.Dy() != 64 {
		t.Errorf("bounds = %v, want 128x64", b)
	}
}

func TestPoolReleaseAndReacquire(t *testing.T) {
	var pool texturePool
	a := pool.Acquire(64, 64)
	pool.Release(a)
	if b := pool.Acquire(60, 33); a != b {
		t.Error("expected the released image back")
	}
	pool.Release(nil)
}

func TestEbitenBlend(t *testing.T) {
	tests := []struct {
		mode media.BlendMode
		want ebiten.Blend
	}{
		{media.BlendNormal, ebiten.BlendSourceOver},
		{media.BlendAdd, ebiten.BlendLighter},
		{media.BlendErase, ebiten.BlendDestinationOut},
		{media.BlendBelow, ebiten.BlendDestinationOver},
		{media.BlendNone, ebiten.BlendCopy},
		{media.BlendMask, blendMask},
		{media.BlendMode(200), ebiten.BlendSourceOver},
	}
	for _, tt := range tests {
		if got := ebitenBlend(tt.mode); got != tt.want {
			t.Errorf("ebitenBlend(%s) = %+v, want %+v", tt.mode, got, tt.want)
		}
	}
}

func TestGridIndices(t *testing.T) {
	got := gridIndices(nil, 1)
	want := []uint16{0, 1, 2, 1, 3, 2}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d = %d, want %d", i, got[i], want[i])
		}
	}

	got = gridIndices(nil, gradientSteps)
	if len(got) != gradientSteps*gradientSteps*6 {
		t.Errorf("len = %d, want %d", len(got), gradientSteps*gradientSteps*6)
	}
	last := uint16((gradientSteps+1)*(gradientSteps+1) - 1)
	for _, i := range got {
		if i > last {
			t.Fatalf("index %d out of range", i)
		}
	}
}

func TestVertexPremultiplies(t *testing.T) {
	st := state{m: media.Translation(2, 3)}
	v := vertex(st, media.Point{X: 1, Y: 1}, media.Color{R: 1, G: 0.5, A: 0.5})

	if v.DstX != 3 || v.DstY != 4 {
		t.Errorf("dst = (%g, %g), want (3, 4)", v.DstX, v.DstY)
	}
	if v.ColorR != 0.5 || v.ColorG != 0.25 || v.ColorB != 0 || v.ColorA != 0.5 {
		t.Errorf("color = %g %g %g %g", v.ColorR, v.ColorG, v.ColorB, v.ColorA)
	}
}

func TestGeoMMatchesMatrix(t *testing.T) {
	m := media.Rotation(0.3).Then(media.Scale(2, 3)).Then(media.Translation(5, -7))
	g := geoM(m)
	gx, gy := g.Apply(4, 9)
	mx, my := m.TransformPoint(4, 9)
	if math.Abs(gx-mx) > 1e-9 || math.Abs(gy-my) > 1e-9 {
		t.Errorf("geoM = (%g, %g), matrix = (%g, %g)", gx, gy, mx, my)
	}
}

func TestBlurRadius(t *testing.T) {
	if got := blurRadius(media.Size{Width: 2, Height: 2}, media.Scale(2, 1)); got != 12 {
		t.Errorf("blurRadius = %g, want 12", got)
	}
	tests := []struct {
		radius float64
		want   int
	}{
		{0, 0}, {0.5, 0}, {1, 1}, {2, 1}, {3, 2}, {8, 3}, {30, 5},
	}
	for _, tt := range tests {
		if got := kawasePasses(tt.radius); got != tt.want {
			t.Errorf("kawasePasses(%g) = %d, want %d", tt.radius, got, tt.want)
		}
	}
}

func TestDeviceRect(t *testing.T) {
	r := deviceRect(media.Rect{X: 0.5, Y: 0.5, Width: 2, Height: 2}, media.Scale(2, 2))
	if want := image.Rect(1, 1, 5, 5); r != want {
		t.Errorf("deviceRect = %v, want %v", r, want)
	}
	if r := deviceRect(media.InvalidRect, media.Identity); !r.Empty() {
		t.Errorf("invalid rect mapped to %v", r)
	}
}

func TestPreviewStep(t *testing.T) {
	p := &Preview{Duration: time.Second, FrameRate: media.Rational{Num: 10, Den: 1}}

	p.step(9)
	if p.frame != 9 || p.paused {
		t.Fatalf("frame = %d paused = %v, want 9 playing", p.frame, p.paused)
	}
	p.step(1)
	if p.frame != 9 || !p.paused {
		t.Errorf("frame = %d paused = %v, want clamped at 9 and paused", p.frame, p.paused)
	}
	if got := p.Time(); got != 900*time.Millisecond {
		t.Errorf("Time = %v, want 900ms", got)
	}

	p.Loop, p.paused = true, false
	p.step(1)
	if p.frame != 0 {
		t.Errorf("frame = %d, want wrap to 0", p.frame)
	}
	p.step(-3)
	if p.frame != 0 {
		t.Errorf("frame = %d, want 0", p.frame)
	}
}

func TestPreviewSeekEases(t *testing.T) {
	p := &Preview{Duration: 5 * time.Second, FrameRate: media.Rational{Num: 10, Den: 1}}

	p.seek(10)
	if p.frame != 10 || !p.paused {
		t.Fatalf("frame = %d paused = %v, want 10 paused", p.frame, p.paused)
	}
	if got := p.Time(); got != 0 {
		t.Errorf("Time at seek start = %v, want 0", got)
	}
	p.advanceScrub()
	if got := p.Time(); got <= 0 || got >= time.Second {
		t.Errorf("Time mid seek = %v, want between 0 and 1s", got)
	}
	for i := 0; i < 10 && p.scrub != nil; i++ {
		p.advanceScrub()
	}
	if p.scrub != nil {
		t.Fatal("seek never finished")
	}
	if got := p.Time(); got != time.Second {
		t.Errorf("Time after seek = %v, want 1s", got)
	}

	p.seek(100)
	if p.frame != 49 {
		t.Errorf("frame = %d, want clamped to 49", p.frame)
	}
	p.seek(-100)
	if p.frame != 0 {
		t.Errorf("frame = %d, want clamped to 0", p.frame)
	}
	if p.scrub == nil || p.scrub.End != 0 {
		t.Error("second seek did not retarget the running transition")
	}
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "preview"},
		{"  ", "preview"},
		{"frame-1.final", "frame-1.final"},
		{"a b/c", "a_b_c"},
	}
	for _, tt := range tests {
		if got := sanitizeLabel(tt.in); got != tt.want {
			t.Errorf("sanitizeLabel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnpremultiply(t *testing.T) {
	img := unpremultiply([]byte{
		128, 0, 64, 128,
		10, 20, 30, 255,
		0, 0, 0, 0,
	}, 3, 1)
	want := []byte{255, 0, 127, 128, 10, 20, 30, 255, 0, 0, 0, 0}
	for i, v := range want {
		if img.Pix[i] != v {
			t.Fatalf("Pix[%d] = %d, want %d", i, img.Pix[i], v)
		}
	}
}

func TestScreenshotQueue(t *testing.T) {
	p := &Preview{}
	p.Screenshot("a")
	p.Screenshot("b")
	if len(p.shots) != 2 {
		t.Fatalf("queued %d, want 2", len(p.shots))
	}
}
