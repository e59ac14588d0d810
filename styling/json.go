package styling

import (
	"maps"
	"slices"
	"strings"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
)

// StyleToJSON writes {"Target": type, "Setters": {name: setter}}. A setter
// is its plain value unless it needs an owner type, an animation or a
// structured value, in which case it is {"Value", "Owner", "Animation"}.
// Setters for properties of a derived owner are keyed "Owner.Name", so
// same-named properties of different owners do not collide.
func StyleToJSON(s *Style) map[string]any {
	setters := make(map[string]any, len(s.setters))
	for _, st := range s.setters {
		name, node := setterToJSON(st, s.targetType)
		setters[name] = node
	}
	m := map[string]any{
		"Target":  s.targetType.Name(),
		"Setters": setters,
	}
	if s.basedOn != nil {
		m["BasedOn"] = StyleToJSON(s.basedOn)
	}
	return m
}

func setterToJSON(st AnySetter, target *core.Type) (string, any) {
	p := st.Property()
	value, err := p.EncodeValue(st.BoxedValue())
	if err != nil {
		core.Logger().Warn().Err(err).Str("property", p.Name()).Msg("setter value not written")
		value = nil
	}
	var owner string
	if !target.IsAssignableTo(p.OwnerType()) {
		owner = p.OwnerType().Name()
	}
	var anim map[string]any
	if a := st.Animation(); a != nil {
		anim = a.ToJSON()
	}

	key := p.Name()
	if owner != "" {
		key = owner + "." + key
	}
	_, isMap := value.(map[string]any)
	_, isSlice := value.([]any)
	if owner == "" && anim == nil && !isMap && !isSlice {
		return key, value
	}
	obj := make(map[string]any, 3)
	if value != nil {
		obj["Value"] = value
	}
	if owner != "" {
		obj["Owner"] = owner
	}
	if anim != nil {
		obj["Animation"] = anim
	}
	return key, obj
}

// StyleFromJSON reads a document written by StyleToJSON. An unknown target
// type fails the whole style; unreadable setters are skipped.
func StyleFromJSON(m map[string]any) (*Style, error) {
	const op = "styling.StyleFromJSON"
	name, _ := m["Target"].(string)
	target, ok := core.TypeByName(name)
	if !ok {
		return nil, core.NewError(op, core.KindDeserializationSkipped, "unknown target type %q", name)
	}
	s := NewStyle(target)
	setters, _ := m["Setters"].(map[string]any)
	for _, key := range slices.Sorted(maps.Keys(setters)) {
		st, err := setterFromJSON(key, setters[key], target)
		if err != nil {
			core.Logger().Debug().Err(err).Str("target", name).Str("setter", key).Msg("setter skipped")
			continue
		}
		s.Add(st)
	}
	if bm, ok := m["BasedOn"].(map[string]any); ok {
		base, err := StyleFromJSON(bm)
		if err != nil {
			core.Logger().Debug().Err(err).Str("target", name).Msg("base style skipped")
		} else {
			s.SetBasedOn(base)
		}
	}
	return s, nil
}

func isSetterObject(m map[string]any) bool {
	for _, k := range []string{"Value", "Owner", "Animation"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

func setterFromJSON(name string, raw any, target *core.Type) (AnySetter, error) {
	const op = "styling.setterFromJSON"
	owner := target
	valueNode, hasValue := raw, true
	var animNode map[string]any

	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		t, ok := core.TypeByName(name[:i])
		if !ok {
			return nil, core.NewError(op, core.KindDeserializationSkipped, "unknown owner type %q", name[:i])
		}
		owner, name = t, name[i+1:]
	}

	if obj, ok := raw.(map[string]any); ok && isSetterObject(obj) {
		if on, ok := obj["Owner"].(string); ok {
			t, ok := core.TypeByName(on)
			if !ok {
				return nil, core.NewError(op, core.KindDeserializationSkipped, "unknown owner type %q", on)
			}
			owner = t
		}
		valueNode, hasValue = obj["Value"]
		animNode, _ = obj["Animation"].(map[string]any)
	}

	p, ok := core.FindRegistered(owner, name)
	if !ok {
		return nil, core.NewError(op, core.KindDeserializationSkipped, "%s has no property %q", owner, name)
	}
	value := p.DefaultBoxed(owner)
	if hasValue {
		v, err := p.DecodeValue(valueNode)
		if err != nil {
			return nil, err
		}
		value = v
	}
	var anim animation.Animation
	if animNode != nil {
		a, err := animation.UnmarshalAnimation(owner, animNode)
		if err != nil {
			core.Logger().Debug().Err(err).Str("setter", name).Msg("setter animation skipped")
		} else {
			anim = a
		}
	}
	return NewBoxedSetter(p, value, anim), nil
}
