package styling

import (
	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
)

// StylingApplier is implemented by anything that applies styles for a
// frame.
type StylingApplier interface {
	ApplyStyling(clock animation.Clock)
}

// Styleable is an animatable element that carries a style list.
type Styleable struct {
	animation.Animatable
	styles Styles
}

// StyleableType is the registered type of Styleable.
var StyleableType = core.DefineType("Styleable", animation.AnimatableType)

// Styles returns the element's style list.
func (s *Styleable) Styles() *Styles { return &s.styles }

// ApplyStyling applies the element's styles, then those of its logical
// children.
func (s *Styleable) ApplyStyling(clock animation.Clock) {
	s.styles.Apply(s.Self(), clock)
	for _, c := range s.LogicalChildren() {
		if ap, ok := c.(StylingApplier); ok {
			ap.ApplyStyling(clock)
		}
	}
}

func (s *Styleable) WriteJSON(m map[string]any) {
	s.Animatable.WriteJSON(m)
	if s.styles.Len() == 0 {
		return
	}
	out := make([]any, 0, s.styles.Len())
	for _, st := range s.styles.items {
		out = append(out, StyleToJSON(st))
	}
	m["styles"] = out
}

func (s *Styleable) ReadJSON(m map[string]any) {
	s.Animatable.ReadJSON(m)
	arr, ok := m["styles"].([]any)
	if !ok {
		return
	}
	s.styles.Clear()
	for i, e := range arr {
		sm, ok := e.(map[string]any)
		if !ok {
			continue
		}
		st, err := StyleFromJSON(sm)
		if err != nil {
			core.Logger().Debug().Err(err).Int("index", i).Msg("style skipped")
			continue
		}
		s.styles.Add(st)
	}
}

var (
	_ StylingApplier  = (*Styleable)(nil)
	_ core.JSONWriter = (*Styleable)(nil)
	_ core.JSONReader = (*Styleable)(nil)
)
