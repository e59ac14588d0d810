package core

import (
	"fmt"

	"github.com/google/uuid"
)

// Object is implemented by every model type. It is satisfied by embedding
// CoreObject (directly or through Element and its descendants).
type Object interface {
	Core() *CoreObject
}

// PropertyChangedHook is an optional interface. Types implementing it are
// told about every change after the store and before instance observers.
type PropertyChangedHook interface {
	OnPropertyChanged(e *PropertyChangedEvent)
}

// CoreObject holds the sparse value store and change notifications shared
// by all model types. Its zero value must be initialized with Init before
// use. It is not safe for concurrent mutation.
type CoreObject struct {
	self   Object
	typ    *Type
	id     uuid.UUID
	name   string
	values map[int32]any

	propertyChanging Event[*PropertyChangedEvent]
	propertyChanged  Event[*PropertyChangedEvent]
}

// ObjectType is the root of the type hierarchy.
var ObjectType = DefineType("Object", nil)

var (
	// IDProperty holds the object's unique id.
	IDProperty = Configure[uuid.UUID, Object](ObjectType, "Id").
		Field(func(o Object) *uuid.UUID { return &o.Core().id }).
		SerializeName("id").
		Register()

	// NameProperty holds a user-visible name.
	NameProperty = Configure[string, Object](ObjectType, "Name").
		Field(func(o Object) *string { return &o.Core().name }).
		SerializeName("name").
		Register()
)

// Init binds the object to its outermost value and runtime type and assigns
// a fresh id. Constructors call it first.
func (c *CoreObject) Init(self Object, t *Type) {
	c.self = self
	c.typ = t
	c.id = uuid.New()
}

func (c *CoreObject) Core() *CoreObject { return c }

// Self returns the outermost value the object was initialized with.
func (c *CoreObject) Self() Object { return c.self }

// ObjectType returns the runtime type.
func (c *CoreObject) ObjectType() *Type { return c.typ }

func (c *CoreObject) ID() uuid.UUID { return c.id }

func (c *CoreObject) Name() string { return c.name }

func (c *CoreObject) SetName(v string) { Set(c.self, NameProperty, v) }

// PropertyChanging is raised before a value is stored.
func (c *CoreObject) PropertyChanging() *Event[*PropertyChangedEvent] { return &c.propertyChanging }

// PropertyChanged is raised after a value is stored.
func (c *CoreObject) PropertyChanged() *Event[*PropertyChangedEvent] { return &c.propertyChanged }

func (c *CoreObject) mustInit(op string) {
	if c.typ == nil {
		panic(NewError(op, KindTypeMismatch, "object used before Init"))
	}
}

func checkOwner(op string, c *CoreObject, p Prop) {
	c.mustInit(op)
	if !c.typ.IsAssignableTo(p.OwnerType()) {
		panic(NewError(op, KindOwnerMismatch, "%s.%s used on %s", p.OwnerType(), p.Name(), c.typ))
	}
}

// GetValue returns the accessor value if the property has one, else the
// stored value, else the default for the object's runtime type. Panics if
// o's type does not derive from the property's owner.
func GetValue[T any](o Object, p *Property[T]) T {
	c := o.Core()
	checkOwner("core.GetValue", c, p)
	if p.getter != nil {
		return p.getter(c.self)
	}
	if v, ok := c.values[p.id]; ok {
		return v.(T)
	}
	return p.Default(c.typ)
}

// IsSet reports whether the dictionary holds a value for p.
func IsSet(o Object, p Prop) bool {
	_, ok := o.Core().values[p.ID()]
	return ok
}

// SetValue validates v and stores it. Setting the current value is a no-op
// with no notifications. A validator may coerce v; if it rejects v, the
// returned error wraps ErrInvalidPropertyValue and the old value is kept.
func SetValue[T any](o Object, p *Property[T], v T) error {
	const op = "core.SetValue"
	c := o.Core()
	checkOwner(op, c, p)

	if val := p.metadata(c.typ).validator; val != nil {
		nv, err := val.Validate(v)
		if err != nil {
			return &Error{Op: op, Kind: KindInvalidPropertyValue, Err: wrapInvalid(p, err)}
		}
		v = nv
	}

	if p.getter != nil {
		if p.setter == nil {
			return NewError(op, KindInvalidPropertyValue, "%s is read-only", p)
		}
		if !p.equal(p.getter(c.self), v) {
			p.setter(c.self, v)
		}
		return nil
	}

	old, ok := c.values[p.id]
	var oldT T
	if ok {
		oldT = old.(T)
	} else {
		oldT = p.Default(c.typ)
	}
	if p.equal(oldT, v) {
		return nil
	}
	c.raiseChanging(p, oldT, v)
	if c.values == nil {
		c.values = make(map[int32]any)
	}
	c.values[p.id] = v
	c.raiseChanged(p, oldT, v)
	return nil
}

// Set is SetValue for call sites that cannot handle a rejection; the
// rejection is logged and the old value kept.
func Set[T any](o Object, p *Property[T], v T) {
	if err := SetValue(o, p, v); err != nil {
		Logger().Warn().Err(err).Str("property", p.String()).Msg("value rejected")
	}
}

// ClearValue removes a stored value so the default applies again.
func ClearValue[T any](o Object, p *Property[T]) {
	c := o.Core()
	checkOwner("core.ClearValue", c, p)
	old, ok := c.values[p.id]
	if !ok {
		return
	}
	def := p.Default(c.typ)
	oldT := old.(T)
	if p.equal(oldT, def) {
		delete(c.values, p.id)
		return
	}
	c.raiseChanging(p, oldT, def)
	delete(c.values, p.id)
	c.raiseChanged(p, oldT, def)
}

// SetAndRaise is the setter helper for accessor-backed properties: it stores
// v into *field and raises the change notifications unless the value is
// unchanged. It reports whether a change happened.
func SetAndRaise[T any](o Object, p *Property[T], field *T, v T) bool {
	if p.equal(*field, v) {
		return false
	}
	c := o.Core()
	old := *field
	c.raiseChanging(p, old, v)
	*field = v
	c.raiseChanged(p, old, v)
	return true
}

func (c *CoreObject) raiseChanging(p Prop, old, v any) {
	if p.Flags()&FlagNotifyChanging == 0 {
		return
	}
	c.propertyChanging.Raise(&PropertyChangedEvent{Sender: c.self, Property: p, OldValue: old, NewValue: v})
}

func (c *CoreObject) raiseChanged(p Prop, old, v any) {
	if h, ok := c.self.(Hierarchical); ok {
		e := h.element()
		if oh, ok := old.(Hierarchical); ok && !IsNil(oh) {
			e.removeLogicalChild(oh)
		}
		if nh, ok := v.(Hierarchical); ok && !IsNil(nh) {
			e.addLogicalChild(nh)
		}
	}
	if p.Flags()&FlagNotifyChanged == 0 {
		return
	}
	ev := &PropertyChangedEvent{Sender: c.self, Property: p, OldValue: old, NewValue: v}
	if hook, ok := c.self.(PropertyChangedHook); ok {
		hook.OnPropertyChanged(ev)
	}
	c.propertyChanged.Raise(ev)
	p.Changed().Raise(ev)
}

func wrapInvalid(p Prop, err error) error {
	return fmt.Errorf("%w: %s.%s: %w", ErrInvalidPropertyValue, p.OwnerType().Name(), p.Name(), err)
}
