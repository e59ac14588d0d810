package core

// TypeKey is the discriminator key carried by polymorphic documents.
const TypeKey = "@type"

// JSONWriter lets a type add fields that are not registered properties
// (child lists, animation tables) to its document.
type JSONWriter interface {
	WriteJSON(m map[string]any)
}

// JSONReader is the counterpart of JSONWriter.
type JSONReader interface {
	ReadJSON(m map[string]any)
}

// ToJSON builds the document of o from its registered properties. Only
// properties with a serialization name are written, and only when their
// value differs from the default.
func ToJSON(o Object) map[string]any {
	c := o.Core()
	c.mustInit("core.ToJSON")
	m := make(map[string]any)
	for _, p := range Registered(c.typ) {
		name := p.SerializeName(c.typ)
		if name == "" {
			continue
		}
		v := p.GetBoxed(c.self)
		if p.equalBoxed(v, p.DefaultBoxed(c.typ)) {
			continue
		}
		enc, err := p.EncodeValue(v)
		if err != nil {
			Logger().Warn().Err(err).Str("type", c.typ.name).Str("property", p.Name()).Msg("property not written")
			continue
		}
		m[name] = enc
	}
	if w, ok := c.self.(JSONWriter); ok {
		w.WriteJSON(m)
	}
	return m
}

// FromJSON reads a document produced by ToJSON into o. Fields that cannot
// be decoded or are rejected by validation are skipped and logged; the
// property keeps its previous value. Only a nil document is an error.
func FromJSON(o Object, m map[string]any) error {
	const op = "core.FromJSON"
	c := o.Core()
	c.mustInit(op)
	if m == nil {
		return NewError(op, KindDeserializationSkipped, "nil document for %s", c.typ)
	}
	for _, p := range Registered(c.typ) {
		name := p.SerializeName(c.typ)
		if name == "" {
			continue
		}
		raw, ok := m[name]
		if !ok {
			continue
		}
		if err := decodeInto(c.self, p, raw); err != nil {
			skipped(op, c.typ, name, err)
		}
	}
	if r, ok := c.self.(JSONReader); ok {
		r.ReadJSON(m)
	}
	return nil
}

func decodeInto(o Object, p Prop, raw any) error {
	v, err := p.DecodeValue(raw)
	if err != nil {
		return err
	}
	return p.SetBoxed(o, v)
}

func skipped(op string, t *Type, field string, err error) {
	Logger().Debug().
		Err(&Error{Op: op, Kind: KindDeserializationSkipped, Err: err}).
		Str("type", t.name).
		Str("field", field).
		Msg("field skipped")
}

// MarshalObject is ToJSON plus the "@type" discriminator.
func MarshalObject(o Object) map[string]any {
	m := ToJSON(o)
	m[TypeKey] = o.Core().typ.name
	return m
}

// UnmarshalObject creates an instance of the type named by m["@type"] and
// reads m into it. A missing or unknown discriminator is an error; callers
// drop the subtree.
func UnmarshalObject(m map[string]any) (Object, error) {
	const op = "core.UnmarshalObject"
	name, _ := m[TypeKey].(string)
	if name == "" {
		return nil, NewError(op, KindDeserializationSkipped, "missing %s", TypeKey)
	}
	t, ok := TypeByName(name)
	if !ok {
		return nil, NewError(op, KindDeserializationSkipped, "unknown type %q", name)
	}
	o, err := t.New()
	if err != nil {
		return nil, err
	}
	if err := FromJSON(o, m); err != nil {
		return nil, err
	}
	return o, nil
}

// UnmarshalAs is UnmarshalObject with a type assertion on the result.
func UnmarshalAs[T Object](m map[string]any) (T, error) {
	var zero T
	o, err := UnmarshalObject(m)
	if err != nil {
		return zero, err
	}
	v, ok := o.(T)
	if !ok {
		return zero, NewError("core.UnmarshalAs", KindTypeMismatch, "unexpected type %s", o.Core().typ)
	}
	return v, nil
}

// MarshalList writes a list of objects as an array of typed documents.
func MarshalList[T Object](items []T) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, MarshalObject(it))
	}
	return out
}

// UnmarshalList reads an array written by MarshalList. Entries that cannot
// be read are skipped and logged.
func UnmarshalList[T Object](raw any) []T {
	arr, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]T, 0, len(arr))
	for i, e := range arr {
		m, ok := e.(map[string]any)
		if !ok {
			Logger().Debug().Int("index", i).Msg("list entry is not an object")
			continue
		}
		v, err := UnmarshalAs[T](m)
		if err != nil {
			Logger().Debug().Err(err).Int("index", i).Msg("list entry skipped")
			continue
		}
		out = append(out, v)
	}
	return out
}
