package core

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// PropertyFlags describe how a property participates in notification,
// animation and persistence.
type PropertyFlags uint8

const (
	FlagAnimatable PropertyFlags = 1 << iota
	FlagNotifyChanged
	FlagNotifyChanging
	FlagSerializable

	FlagsDefault = FlagNotifyChanged | FlagNotifyChanging
)

// PropertyChangedEvent describes one mutation. It is delivered for both
// the changing (before store) and changed (after store) notifications.
type PropertyChangedEvent struct {
	Sender   Object
	Property Prop
	OldValue any
	NewValue any
}

// Prop is the untyped view of a *Property[T]. It is what the registry,
// serializer and style system work with.
type Prop interface {
	ID() int32
	Name() string
	OwnerType() *Type
	Flags() PropertyFlags
	ValueType() reflect.Type
	// SerializeName returns the document key effective for t, or "" if the
	// property is not persisted.
	SerializeName(t *Type) string
	HasAccessor() bool
	GetBoxed(o Object) any
	SetBoxed(o Object, v any) error
	DefaultBoxed(t *Type) any
	// Changed is raised for every instance of every type after a change.
	Changed() *Event[*PropertyChangedEvent]

	// EncodeValue converts v (of the property's value type) to a document
	// value. DecodeValue is its inverse.
	EncodeValue(v any) (any, error)
	DecodeValue(raw any) (any, error)

	equalBoxed(a, b any) bool
}

// Validator checks or coerces a value before it is stored.
type Validator[T any] interface {
	Validate(v T) (T, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc[T any] func(v T) (T, error)

func (f ValidatorFunc[T]) Validate(v T) (T, error) { return f(v) }

// RangePolicy selects what a Range does with out-of-range values.
type RangePolicy uint8

const (
	// Coerce clamps the value into [Min, Max].
	Coerce RangePolicy = iota
	// Reject refuses the value; the property keeps its previous value.
	Reject
)

// Range validates ordered values against an inclusive interval.
type Range[T cmp.Ordered] struct {
	Min, Max T
	Policy   RangePolicy
}

// Validate rejects NaN under either policy.
func (r Range[T]) Validate(v T) (T, error) {
	if v != v {
		return v, errNaN
	}
	if v >= r.Min && v <= r.Max {
		return v, nil
	}
	if r.Policy == Reject {
		return v, fmt.Errorf("%v outside [%v, %v]", v, r.Min, r.Max)
	}
	return min(max(v, r.Min), r.Max), nil
}

// Min returns a coercing lower-bound validator. NaN is rejected.
func Min[T cmp.Ordered](lo T) Validator[T] {
	return ValidatorFunc[T](func(v T) (T, error) {
		if v != v {
			return v, errNaN
		}
		return max(v, lo), nil
	})
}

var errNaN = errors.New("NaN is not a valid value")

// Codec converts values to and from the generic document tree
// (map[string]any, []any, string, float64, bool, nil).
type Codec[T any] interface {
	Encode(v T) (any, error)
	Decode(raw any) (T, error)
}

// JSONCodec round-trips values through encoding/json.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (JSONCodec[T]) Decode(raw any) (T, error) {
	var v T
	b, err := json.Marshal(raw)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(b, &v)
	return v, err
}

// objectCodec handles values that are themselves model objects. They are
// written as nested documents carrying "@type".
type objectCodec[T any] struct{}

func (objectCodec[T]) Encode(v T) (any, error) {
	o, ok := any(v).(Object)
	if !ok || IsNil(o) {
		return nil, nil
	}
	return MarshalObject(o), nil
}

func (objectCodec[T]) Decode(raw any) (T, error) {
	var zero T
	if raw == nil {
		return zero, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return zero, NewError("core.Decode", KindTypeMismatch, "want object, got %T", raw)
	}
	o, err := UnmarshalObject(m)
	if err != nil {
		return zero, err
	}
	v, ok := o.(T)
	if !ok {
		return zero, NewError("core.Decode", KindTypeMismatch, "%s is not a %s", o.Core().ObjectType(), reflect.TypeFor[T]())
	}
	return v, nil
}

// Metadata is the overridable part of a property definition.
type Metadata[T any] struct {
	// Default produces the default value. It is called at most once per
	// metadata record; the result is cached.
	Default       func() T
	SerializeName string
	Validator     Validator[T]
}

type resolvedMeta[T any] struct {
	def           func() T
	serializeName string
	validator     Validator[T]
}

func resolve[T any](m Metadata[T], parent *resolvedMeta[T]) *resolvedMeta[T] {
	r := &resolvedMeta[T]{}
	if parent != nil {
		*r = *parent
	}
	if m.Default != nil {
		r.def = sync.OnceValue(m.Default)
	}
	if m.SerializeName != "" {
		r.serializeName = m.SerializeName
	}
	if m.Validator != nil {
		r.validator = m.Validator
	}
	if r.def == nil {
		r.def = func() T { var zero T; return zero }
	}
	return r
}

// Property is a typed property definition. Instances are created with
// Configure(...).Register() and live for the life of the process.
type Property[T any] struct {
	id     int32
	name   string
	owner  *Type
	flags  PropertyFlags
	getter func(Object) T
	setter func(Object, T)
	equal  func(a, b T) bool
	codec  Codec[T]

	meta *resolvedMeta[T]

	overMu    sync.RWMutex
	overrides map[*Type]*resolvedMeta[T]

	changed Event[*PropertyChangedEvent]
}

func (p *Property[T]) ID() int32               { return p.id }
func (p *Property[T]) Name() string            { return p.name }
func (p *Property[T]) OwnerType() *Type        { return p.owner }
func (p *Property[T]) Flags() PropertyFlags    { return p.flags }
func (p *Property[T]) ValueType() reflect.Type { return reflect.TypeFor[T]() }
func (p *Property[T]) HasAccessor() bool       { return p.getter != nil }

func (p *Property[T]) Changed() *Event[*PropertyChangedEvent] { return &p.changed }

func (p *Property[T]) String() string {
	return p.owner.name + "." + p.name
}

// OverrideMetadata changes default, serialization name or validator for t
// and its subtypes. Unset fields inherit from the nearest ancestor.
func (p *Property[T]) OverrideMetadata(t *Type, m Metadata[T]) {
	if !t.IsAssignableTo(p.owner) {
		panic(NewError("core.OverrideMetadata", KindOwnerMismatch, "%s does not derive from %s", t, p.owner))
	}
	parent := p.metadata(t.base)
	p.overMu.Lock()
	defer p.overMu.Unlock()
	if p.overrides == nil {
		p.overrides = make(map[*Type]*resolvedMeta[T])
	}
	p.overrides[t] = resolve(m, parent)
}

func (p *Property[T]) metadata(t *Type) *resolvedMeta[T] {
	p.overMu.RLock()
	defer p.overMu.RUnlock()
	if len(p.overrides) > 0 {
		for cur := t; cur != nil; cur = cur.base {
			if m, ok := p.overrides[cur]; ok {
				return m
			}
		}
	}
	return p.meta
}

// Default returns the default value effective for t.
func (p *Property[T]) Default(t *Type) T { return p.metadata(t).def() }

func (p *Property[T]) DefaultBoxed(t *Type) any { return p.Default(t) }

func (p *Property[T]) SerializeName(t *Type) string {
	return p.metadata(t).serializeName
}

// Equal compares two values with the property's equality.
func (p *Property[T]) Equal(a, b T) bool { return p.equal(a, b) }

func (p *Property[T]) equalBoxed(a, b any) bool {
	ta, ok1 := a.(T)
	tb, ok2 := b.(T)
	if !ok1 || !ok2 {
		return a == nil && b == nil
	}
	return p.equal(ta, tb)
}

func (p *Property[T]) GetBoxed(o Object) any { return GetValue(o, p) }

func (p *Property[T]) SetBoxed(o Object, v any) error {
	tv, err := p.cast(v)
	if err != nil {
		return err
	}
	return SetValue(o, p, tv)
}

func (p *Property[T]) cast(v any) (T, error) {
	if tv, ok := v.(T); ok {
		return tv, nil
	}
	var zero T
	if v == nil {
		switch reflect.TypeFor[T]().Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func:
			return zero, nil
		}
	}
	return zero, NewError("core.SetValue", KindTypeMismatch, "%s expects %s, got %T", p, reflect.TypeFor[T](), v)
}

func (p *Property[T]) EncodeValue(v any) (any, error) {
	tv, err := p.cast(v)
	if err != nil {
		return nil, err
	}
	return p.codec.Encode(tv)
}

func (p *Property[T]) DecodeValue(raw any) (any, error) {
	return p.codec.Decode(raw)
}

// Builder configures a property before registration.
type Builder[T any, O Object] struct {
	p    *Property[T]
	meta Metadata[T]
}

// Configure starts the definition of a property named name on owner. O is
// the Go type accessors receive; it is usually an interface implemented by
// every type deriving from owner.
func Configure[T any, O Object](owner *Type, name string) *Builder[T, O] {
	return &Builder[T, O]{p: &Property[T]{
		name:  name,
		owner: owner,
		flags: FlagsDefault,
	}}
}

// Accessor binds the property to a backing field. set may be nil for a
// read-only property. Setters should use SetAndRaise so notifications keep
// flowing.
func (b *Builder[T, O]) Accessor(get func(O) T, set func(O, T)) *Builder[T, O] {
	b.p.getter = func(o Object) T { return get(o.(O)) }
	if set != nil {
		b.p.setter = func(o Object, v T) { set(o.(O), v) }
	}
	return b
}

// Field binds the property to a struct field. Writes go through
// SetAndRaise so the usual notifications fire.
func (b *Builder[T, O]) Field(ptr func(O) *T) *Builder[T, O] {
	p := b.p
	p.getter = func(o Object) T { return *ptr(o.(O)) }
	p.setter = func(o Object, v T) { SetAndRaise(o, p, ptr(o.(O)), v) }
	return b
}

func (b *Builder[T, O]) DefaultValue(v T) *Builder[T, O] {
	b.meta.Default = func() T { return v }
	return b
}

func (b *Builder[T, O]) DefaultFunc(fn func() T) *Builder[T, O] {
	b.meta.Default = fn
	return b
}

func (b *Builder[T, O]) SerializeName(name string) *Builder[T, O] {
	b.meta.SerializeName = name
	b.p.flags |= FlagSerializable
	return b
}

// Flags replaces the notification flags. Animatable and Serializable are
// preserved if already set.
func (b *Builder[T, O]) Flags(f PropertyFlags) *Builder[T, O] {
	b.p.flags = f | (b.p.flags & (FlagAnimatable | FlagSerializable))
	return b
}

func (b *Builder[T, O]) Animatable() *Builder[T, O] {
	b.p.flags |= FlagAnimatable
	return b
}

func (b *Builder[T, O]) Validator(v Validator[T]) *Builder[T, O] {
	b.meta.Validator = v
	return b
}

func (b *Builder[T, O]) Equal(fn func(a, b T) bool) *Builder[T, O] {
	b.p.equal = fn
	return b
}

func (b *Builder[T, O]) Codec(c Codec[T]) *Builder[T, O] {
	b.p.codec = c
	return b
}

var objectIface = reflect.TypeFor[Object]()

// Register assigns the property id and adds it to the owner's table.
func (b *Builder[T, O]) Register() *Property[T] {
	p := b.p
	p.meta = resolve(b.meta, nil)
	vt := reflect.TypeFor[T]()
	if p.equal == nil {
		if vt.Comparable() {
			p.equal = func(a, b T) bool {
				x, y := any(a), any(b)
				return x == y || (x != x && y != y)
			}
		} else {
			p.equal = func(a, b T) bool { return reflect.DeepEqual(a, b) }
		}
	}
	if p.codec == nil {
		if vt.Implements(objectIface) {
			p.codec = objectCodec[T]{}
		} else {
			p.codec = JSONCodec[T]{}
		}
	}
	registerProp(p.owner, p, func(id int32) { p.id = id })
	return p
}

// IsNil reports whether v is nil or a typed nil pointer, map, slice, func
// or channel.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
