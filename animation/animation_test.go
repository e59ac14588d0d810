package animation

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

type sprite struct {
	Animatable
}

var spriteType = core.DefineType("animation.sprite", AnimatableType)

var (
	opacityProp = core.Configure[float64, core.Object](spriteType, "Opacity").
			DefaultValue(1).
			SerializeName("opacity").
			Animatable().
			Register()
	positionProp = core.Configure[media.Point, core.Object](spriteType, "Position").
			SerializeName("position").
			Animatable().
			Register()
	labelProp = core.Configure[string, core.Object](spriteType, "Label").
			SerializeName("label").
			Register()
)

func newSprite() *sprite {
	s := &sprite{}
	s.Init(s, spriteType)
	return s
}

func init() {
	spriteType.SetFactory(func() core.Object { return newSprite() })
}

func zeroToTen() *KeyFrameAnimation[float64] {
	return NewKeyFrameAnimation(opacityProp,
		KeyFrame[float64]{KeyTime: 0, Value: 0},
		KeyFrame[float64]{KeyTime: time.Second, Value: 10, Easing: Linear},
	)
}

func TestKeyFrameInterpolation(t *testing.T) {
	a := zeroToTen()
	tests := []struct {
		name string
		at   time.Duration
		want float64
	}{
		{"midpoint", 500 * time.Millisecond, 5},
		{"before first frame", -time.Second, 0},
		{"after last frame", 2 * time.Second, 10},
		{"first frame", 0, 0},
		{"last frame", time.Second, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, a.Interpolate(tt.at), 1e-9)
		})
	}
}

func TestKeyFrameEdgeCases(t *testing.T) {
	empty := NewKeyFrameAnimation[float64](opacityProp)
	assert.Equal(t, 1.0, empty.Interpolate(time.Second), "no frames returns the default")
	_, ok := empty.ValueAt(0)
	assert.False(t, ok)

	single := NewKeyFrameAnimation(opacityProp, KeyFrame[float64]{KeyTime: time.Second, Value: 3})
	assert.Equal(t, 3.0, single.Interpolate(0))
	assert.Equal(t, 3.0, single.Interpolate(5*time.Second))

	jump := NewKeyFrameAnimation(opacityProp,
		KeyFrame[float64]{KeyTime: time.Second, Value: 1},
		KeyFrame[float64]{KeyTime: time.Second, Value: 2},
		KeyFrame[float64]{KeyTime: 2 * time.Second, Value: 4},
	)
	assert.Equal(t, 2.0, jump.Interpolate(time.Second))
	assert.InDelta(t, 3.0, jump.Interpolate(1500*time.Millisecond), 1e-9)
}

func TestLaterFrameEasingShapesSegment(t *testing.T) {
	a := NewKeyFrameAnimation(opacityProp,
		KeyFrame[float64]{KeyTime: 0, Value: 0, Easing: EasingFunc(func(float64) float64 { return 1 })},
		KeyFrame[float64]{KeyTime: time.Second, Value: 10, Easing: InQuad},
	)
	assert.InDelta(t, 2.5, a.Interpolate(500*time.Millisecond), 1e-4)
}

func TestAddKeepsOrder(t *testing.T) {
	a := zeroToTen()
	a.Add(KeyFrame[float64]{KeyTime: 500 * time.Millisecond, Value: 8})
	frames := a.KeyFrames()
	require.Len(t, frames, 3)
	assert.Equal(t, 8.0, frames[1].Value)
	assert.Equal(t, 8.0, a.Interpolate(500*time.Millisecond))
}

func TestApplyAnimationsSetsValue(t *testing.T) {
	s := newSprite()
	require.NoError(t, s.Animations().Add(zeroToTen()))
	s.ApplyAnimations(At(250 * time.Millisecond))
	assert.InDelta(t, 2.5, core.GetValue(s, opacityProp), 1e-9)
}

func TestLocalClock(t *testing.T) {
	s := newSprite()
	a := zeroToTen()
	a.SetUseGlobalClock(false)
	require.NoError(t, s.Animations().Add(a))
	s.ApplyAnimations(&ManualClock{Current: 3 * time.Second, Begin: 2500 * time.Millisecond})
	assert.InDelta(t, 5, core.GetValue(s, opacityProp), 1e-9)
}

func TestAdditiveComposition(t *testing.T) {
	s := newSprite()
	move := NewKeyFrameAnimation(positionProp,
		KeyFrame[media.Point]{KeyTime: 0, Value: media.Point{X: 0, Y: 0}},
		KeyFrame[media.Point]{KeyTime: time.Second, Value: media.Point{X: 100, Y: 0}},
	)
	wobble := NewKeyFrameAnimation(positionProp,
		KeyFrame[media.Point]{KeyTime: 0, Value: media.Point{X: 5, Y: 5}},
		KeyFrame[media.Point]{KeyTime: time.Second, Value: media.Point{X: 5, Y: 25}},
	)
	require.NoError(t, s.Animations().Add(move))
	require.NoError(t, s.Animations().Add(wobble))

	s.ApplyAnimations(At(500 * time.Millisecond))
	assert.Equal(t, media.Point{X: 50, Y: 10}, core.GetValue(s, positionProp))

	s.Animations().SetComposition(CompositeReplace)
	s.ApplyAnimations(At(500 * time.Millisecond))
	assert.Equal(t, media.Point{X: 5, Y: 15}, core.GetValue(s, positionProp))
}

func TestAddRejectsNonAnimatable(t *testing.T) {
	s := newSprite()
	err := s.Animations().Add(NewKeyFrameAnimation(labelProp, KeyFrame[string]{Value: "x"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidPropertyValue)
}

func TestAnimationsInvalidateOnKeyFrameEdit(t *testing.T) {
	s := newSprite()
	a := zeroToTen()
	require.NoError(t, s.Animations().Add(a))
	var got []core.Prop
	s.Animations().Invalidated().Subscribe(func(e *media.InvalidatedEvent) {
		got = append(got, e.Property)
	})
	a.Add(KeyFrame[float64]{KeyTime: 2 * time.Second, Value: 1})
	require.Len(t, got, 1)
	assert.Equal(t, core.Prop(opacityProp), got[0])

	s.Animations().Remove(a)
	a.Clear()
	assert.Len(t, got, 2, "removed animations no longer forward")
}

func TestAnimationJSONRoundTrip(t *testing.T) {
	s := newSprite()
	a := zeroToTen()
	a.Set(1, KeyFrame[float64]{KeyTime: time.Second, Value: 10, Easing: SplineEasing{0.25, 0.1, 0.25, 1}})
	require.NoError(t, s.Animations().Add(a))

	b, err := json.Marshal(core.MarshalObject(s))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))

	got, err := core.UnmarshalAs[*sprite](doc)
	require.NoError(t, err)
	require.Equal(t, 1, got.Animations().Len())
	ga := got.Animations().At(0).(*KeyFrameAnimation[float64])
	frames := ga.KeyFrames()
	require.Len(t, frames, 2)
	assert.Equal(t, time.Second, frames[1].KeyTime)
	assert.Equal(t, SplineEasing{0.25, 0.1, 0.25, 1}, frames[1].Easing)
	assert.Equal(t, "linear", EasingName(frames[0].Easing))
}

func TestReadJSONSkipsBadFrames(t *testing.T) {
	s := newSprite()
	s.ReadJSON(map[string]any{"animations": []any{
		map[string]any{"property": "opacity", "keyframes": []any{
			map[string]any{"time": "0s", "value": 0.0},
			map[string]any{"time": "nope", "value": 1.0},
			map[string]any{"time": 2.0, "value": 4.0, "easing": "out-cubic"},
			map[string]any{"time": "1s", "value": "wrong"},
		}},
		map[string]any{"property": "label", "keyframes": []any{}},
		map[string]any{"property": "missing"},
	}})
	require.Equal(t, 1, s.Animations().Len())
	a := s.Animations().At(0).(*KeyFrameAnimation[float64])
	require.Len(t, a.KeyFrames(), 2)
	assert.Equal(t, 2*time.Second, a.Duration())
}

func TestSplineEasing(t *testing.T) {
	linear := SplineEasing{0, 0, 1, 1}
	for _, x := range []float64{0, 0.1, 0.5, 0.9, 1} {
		assert.InDelta(t, x, linear.Ease(x), 1e-5)
	}
	ease := SplineEasing{0.42, 0, 0.58, 1}
	assert.InDelta(t, 0.5, ease.Ease(0.5), 1e-5)
	assert.Less(t, ease.Ease(0.2), 0.2)

	e, err := ParseEasing(ease.String())
	require.NoError(t, err)
	assert.Equal(t, ease, e)
}

func TestParseEasing(t *testing.T) {
	e, err := ParseEasing("in-out-sine")
	require.NoError(t, err)
	assert.Equal(t, "in-out-sine", EasingName(e))

	e, err = ParseEasing("")
	require.NoError(t, err)
	assert.Equal(t, "linear", EasingName(e))

	_, err = ParseEasing("wobbly")
	assert.Error(t, err)
	assert.Contains(t, EasingNames(), "out-bounce")
}

func TestAnimatorsByType(t *testing.T) {
	assert.Equal(t, 3, AnimatorFor[int]().Lerp(2, 4, 0.6))
	c := AnimatorFor[media.Color]().Lerp(media.Black, media.White, 0.5)
	assert.InDelta(t, 0.5, c.R, 1e-9)

	type mode int
	step := AnimatorFor[mode]()
	assert.Equal(t, mode(1), step.Lerp(1, 2, 0.99))
	assert.Equal(t, mode(2), step.Lerp(1, 2, 1))
	assert.Nil(t, step.Add)
}

func TestTween(t *testing.T) {
	tw := NewTween(0.0, 10.0, time.Second, Linear)
	v, done := tw.Update(500 * time.Millisecond)
	assert.False(t, done)
	assert.InDelta(t, 5, v, 1e-4)

	v, done = tw.Update(time.Second)
	assert.True(t, done)
	assert.Equal(t, 10.0, v)

	tw.Retarget(0)
	assert.Equal(t, 10.0, tw.Value())
	v, _ = tw.Update(250 * time.Millisecond)
	assert.InDelta(t, 7.5, v, 1e-4)
	assert.False(t, math.IsNaN(v))
}
