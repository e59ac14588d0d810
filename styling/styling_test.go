package styling

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

type label struct {
	Styleable
}

var (
	labelType      = core.DefineType("styling.label", StyleableType)
	fancyLabelType = core.DefineType("styling.fancyLabel", labelType)
)

var (
	fontSizeProp = core.Configure[float64, core.Object](labelType, "FontSize").
			DefaultValue(12).
			SerializeName("fontSize").
			Animatable().
			Register()
	colorProp = core.Configure[media.Color, core.Object](labelType, "Color").
			DefaultValue(media.Black).
			SerializeName("color").
			Animatable().
			Register()
	glowProp = core.Configure[float64, core.Object](fancyLabelType, "Glow").
			Animatable().
			Register()
)

// Two sibling owners with a property of the same name.
var (
	wideLabelType = core.DefineType("styling.wideLabel", labelType)
	tallLabelType = core.DefineType("styling.tallLabel", labelType)
	wideWidth     = core.Configure[float64, core.Object](wideLabelType, "Width").Register()
	tallWidth     = core.Configure[float64, core.Object](tallLabelType, "Width").Register()
)

func newLabel(t *core.Type) *label {
	l := &label{}
	l.Init(l, t)
	return l
}

func init() {
	labelType.SetFactory(func() core.Object { return newLabel(labelType) })
	fancyLabelType.SetFactory(func() core.Object { return newLabel(fancyLabelType) })
}

func TestSetterAssignsValueExactly(t *testing.T) {
	l := newLabel(labelType)
	var events []*core.PropertyChangedEvent
	l.PropertyChanged().Subscribe(func(e *core.PropertyChangedEvent) { events = append(events, e) })

	s := NewSetter(fontSizeProp, 17.25)
	s.Apply(l, animation.At(time.Hour))

	assert.Equal(t, 17.25, core.GetValue(l, fontSizeProp))
	require.Len(t, events, 1)
	assert.Equal(t, 17.25, events[0].NewValue)

	s.SetAnimation(animation.NewKeyFrameAnimation[float64](fontSizeProp))
	s.Apply(l, animation.At(time.Hour))
	assert.Len(t, events, 1, "empty animation still assigns the plain value")
}

func TestSetterWithAnimation(t *testing.T) {
	l := newLabel(labelType)
	s := NewSetter(fontSizeProp, 99)
	s.SetAnimation(animation.NewKeyFrameAnimation(fontSizeProp,
		animation.KeyFrame[float64]{KeyTime: 0, Value: 10},
		animation.KeyFrame[float64]{KeyTime: time.Second, Value: 20},
	))
	s.Apply(l, animation.At(500*time.Millisecond))
	assert.InDelta(t, 15, core.GetValue(l, fontSizeProp), 1e-9)
}

func TestSetterAnimationMustMatchProperty(t *testing.T) {
	s := NewSetter(fontSizeProp, 1)
	assert.Panics(t, func() {
		s.SetAnimation(animation.NewKeyFrameAnimation[float64](glowProp))
	})
}

func TestStyleCascadeLaterWins(t *testing.T) {
	first := NewStyle(labelType, NewSetter(fontSizeProp, 20))
	second := NewStyle(labelType, NewSetter(fontSizeProp, 30))

	l := newLabel(labelType)
	l.Styles().Add(first, second)
	l.ApplyStyling(animation.At(0))
	assert.Equal(t, 30.0, core.GetValue(l, fontSizeProp))

	l2 := newLabel(labelType)
	l2.Styles().Add(second, first)
	l2.ApplyStyling(animation.At(0))
	assert.Equal(t, 20.0, core.GetValue(l2, fontSizeProp))
}

func TestBasedOnAppliesFirst(t *testing.T) {
	base := NewStyle(labelType, NewSetter(fontSizeProp, 8), NewSetter(colorProp, media.White))
	derived := NewStyle(labelType, NewSetter(fontSizeProp, 40))
	derived.SetBasedOn(base)

	l := newLabel(labelType)
	require.True(t, derived.Apply(l, animation.At(0)))
	assert.Equal(t, 40.0, core.GetValue(l, fontSizeProp))
	assert.Equal(t, media.White, core.GetValue(l, colorProp))

	assert.Panics(t, func() { base.SetBasedOn(derived) })
}

func TestStyleTargetsAndDerivedSetters(t *testing.T) {
	s := NewStyle(labelType, NewSetter(glowProp, 3), NewSetter(fontSizeProp, 5))

	plain := newLabel(labelType)
	require.True(t, s.Apply(plain, animation.At(0)))
	assert.Equal(t, 5.0, core.GetValue(plain, fontSizeProp))

	fancy := newLabel(fancyLabelType)
	require.True(t, s.Apply(fancy, animation.At(0)))
	assert.Equal(t, 3.0, core.GetValue(fancy, glowProp))

	onlyFancy := NewStyle(fancyLabelType, NewSetter(fontSizeProp, 50))
	assert.False(t, onlyFancy.Apply(plain, animation.At(0)))
	assert.Equal(t, 5.0, core.GetValue(plain, fontSizeProp))
}

func TestInvalidationForwarding(t *testing.T) {
	setter := NewSetter(fontSizeProp, 1)
	style := NewStyle(labelType, setter)
	var styles Styles
	styles.Add(style)

	count := 0
	styles.Invalidated().Subscribe(func(*media.InvalidatedEvent) { count++ })

	setter.SetValue(2)
	assert.Equal(t, 1, count)
	setter.SetValue(2)
	assert.Equal(t, 1, count, "equal value does not invalidate")

	require.True(t, style.Remove(setter))
	assert.Equal(t, 2, count)
	setter.SetValue(3)
	assert.Equal(t, 2, count)
}

func roundTrip(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	return out
}

func TestStyleJSON(t *testing.T) {
	animated := NewSetter(fontSizeProp, 14)
	animated.SetAnimation(animation.NewKeyFrameAnimation(fontSizeProp,
		animation.KeyFrame[float64]{KeyTime: 0, Value: 0},
		animation.KeyFrame[float64]{KeyTime: 2 * time.Second, Value: 20, Easing: animation.OutCubic},
	))
	s := NewStyle(labelType, animated, NewSetter(colorProp, media.White), NewSetter(glowProp, 2))

	doc := roundTrip(t, StyleToJSON(s))
	assert.Equal(t, "styling.label", doc["Target"])
	setters := doc["Setters"].(map[string]any)
	assert.Equal(t, "#ffffffff", setters["Color"])
	assert.Equal(t, "styling.fancyLabel", setters["styling.fancyLabel.Glow"].(map[string]any)["Owner"])
	assert.Contains(t, setters["FontSize"].(map[string]any), "Animation")

	got, err := StyleFromJSON(doc)
	require.NoError(t, err)
	require.Len(t, got.Setters(), 3)

	fancy := newLabel(fancyLabelType)
	got.Apply(fancy, animation.At(time.Second))
	assert.Equal(t, media.White, core.GetValue(fancy, colorProp))
	assert.Equal(t, 2.0, core.GetValue(fancy, glowProp))
	assert.InDelta(t, animation.OutCubic.Ease(0.5)*20, core.GetValue(fancy, fontSizeProp), 1e-4)
}

func TestStyleJSONSameNameDifferentOwners(t *testing.T) {
	s := NewStyle(labelType, NewSetter(wideWidth, 10), NewSetter(tallWidth, 20))
	doc := roundTrip(t, StyleToJSON(s))
	assert.Len(t, doc["Setters"].(map[string]any), 2)

	got, err := StyleFromJSON(doc)
	require.NoError(t, err)
	values := map[core.Prop]any{}
	for _, st := range got.Setters() {
		values[st.Property()] = st.BoxedValue()
	}
	assert.Equal(t, map[core.Prop]any{wideWidth: 10.0, tallWidth: 20.0}, values)
}

func TestStyleFromJSONSkipsBadSetters(t *testing.T) {
	s, err := StyleFromJSON(map[string]any{
		"Target": "styling.label",
		"Setters": map[string]any{
			"FontSize": 18.0,
			"Missing":  1.0,
			"Color":    map[string]any{"Value": 5.0},
			"Glow":     map[string]any{"Owner": "nowhere", "Value": 1.0},
		},
	})
	require.NoError(t, err)
	require.Len(t, s.Setters(), 1)
	assert.Equal(t, 18.0, s.Setters()[0].BoxedValue())

	_, err = StyleFromJSON(map[string]any{"Target": "styling.none"})
	assert.ErrorIs(t, err, core.ErrDeserializationSkipped)
}

func TestStyleableDocument(t *testing.T) {
	l := newLabel(labelType)
	l.Styles().Add(NewStyle(labelType, NewSetter(fontSizeProp, 21)))
	require.NoError(t, l.Animations().Add(animation.NewKeyFrameAnimation(colorProp,
		animation.KeyFrame[media.Color]{Value: media.Black},
		animation.KeyFrame[media.Color]{KeyTime: time.Second, Value: media.White},
	)))

	doc := roundTrip(t, core.MarshalObject(l))
	got, err := core.UnmarshalAs[*label](doc)
	require.NoError(t, err)
	require.Equal(t, 1, got.Styles().Len())
	require.Equal(t, 1, got.Animations().Len())

	got.ApplyStyling(animation.At(time.Second))
	got.ApplyAnimations(animation.At(time.Second))
	assert.Equal(t, 21.0, core.GetValue(got, fontSizeProp))
	assert.Equal(t, media.White, core.GetValue(got, colorProp))
}
