package animation

import (
	"github.com/phanxgames/montage/core"
)

// Applier is implemented by anything that evaluates animations for a frame.
type Applier interface {
	ApplyAnimations(clock Clock)
}

// Animatable is an element that carries its own animation list. Types
// embed it and call Init from their constructor.
type Animatable struct {
	core.Element
	animations Animations
}

// AnimatableType is the registered type of Animatable.
var AnimatableType = core.DefineType("Animatable", core.ElementType)

// Init initializes the embedded object and binds the animation list to
// self.
func (a *Animatable) Init(self core.Object, t *core.Type) {
	a.Element.Init(self, t)
	a.animations.Init(self)
}

// Animations returns the object's animation list.
func (a *Animatable) Animations() *Animations { return &a.animations }

// ApplyAnimations evaluates the object's own animations, then those of
// its logical children (nested transforms, brushes, effects, drawables).
func (a *Animatable) ApplyAnimations(clock Clock) {
	a.animations.Apply(clock)
	for _, c := range a.LogicalChildren() {
		if ap, ok := c.(Applier); ok {
			ap.ApplyAnimations(clock)
		}
	}
}

// WriteJSON adds the "animations" array. Types that also write extra fields
// call it from their own WriteJSON.
func (a *Animatable) WriteJSON(m map[string]any) {
	if a.animations.Len() == 0 {
		return
	}
	m["animations"] = a.animations.ToJSON()
}

func (a *Animatable) ReadJSON(m map[string]any) {
	raw, ok := m["animations"]
	if !ok {
		return
	}
	a.animations.ReadJSON(raw)
}

var (
	_ Applier         = (*Animatable)(nil)
	_ core.JSONWriter = (*Animatable)(nil)
	_ core.JSONReader = (*Animatable)(nil)
)
