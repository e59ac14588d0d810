package core

import (
	"fmt"
	"sync"
)

// Type is the runtime descriptor of a model type. Types form a single
// inheritance chain through Base, which drives property visibility and
// owner checks. Types are created once, at package initialization, with
// DefineType.
type Type struct {
	name    string
	base    *Type
	factory func() Object
	props   []Prop // own properties, declaration order
}

var registry = struct {
	mu     sync.RWMutex
	types  map[string]*Type
	byID   []Prop // index = id-1
	nextID int32
}{
	types: make(map[string]*Type),
}

// DefineType registers a type under name. base may be nil for a root type.
// Types without a factory (see SetFactory) are abstract. Panics if name is
// taken.
func DefineType(name string, base *Type) *Type {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, ok := registry.types[name]; ok {
		panic(fmt.Sprintf("core: type %q already defined", name))
	}
	t := &Type{name: name, base: base}
	registry.types[name] = t
	return t
}

// TypeByName resolves a type discriminator written by MarshalObject.
func TypeByName(name string) (*Type, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	t, ok := registry.types[name]
	return t, ok
}

// Name returns the discriminator used in documents.
func (t *Type) Name() string { return t.name }

// Base returns the parent type, or nil.
func (t *Type) Base() *Type { return t.base }

func (t *Type) String() string { return t.name }

// IsAssignableTo reports whether t is other or derives from it.
func (t *Type) IsAssignableTo(other *Type) bool {
	for cur := t; cur != nil; cur = cur.base {
		if cur == other {
			return true
		}
	}
	return false
}

// SetFactory installs the constructor used by New. Packages call it from
// init, since constructors usually refer back to their type.
func (t *Type) SetFactory(fn func() Object) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	t.factory = fn
}

// IsAbstract reports whether the type has no factory.
func (t *Type) IsAbstract() bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	return t.factory == nil
}

// New creates an instance through the registered factory.
func (t *Type) New() (Object, error) {
	registry.mu.RLock()
	f := t.factory
	registry.mu.RUnlock()
	if f == nil {
		return nil, NewError("core.Type.New", KindTypeMismatch, "type %s is abstract", t.name)
	}
	return f(), nil
}

// registerProp publishes p on t. assign receives the new id under the
// registry lock, before p becomes visible to Registered.
func registerProp(t *Type, p Prop, assign func(id int32)) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	for _, existing := range t.props {
		if existing.Name() == p.Name() {
			panic(fmt.Sprintf("core: property %s.%s already registered", t.name, p.Name()))
		}
	}
	registry.nextID++
	assign(registry.nextID)
	t.props = append(t.props, p)
	registry.byID = append(registry.byID, p)
}

// Registered returns every property visible on t: the root ancestor's
// properties first, then each derived type's own, in declaration order.
func Registered(t *Type) []Prop {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	var chain []*Type
	n := 0
	for cur := t; cur != nil; cur = cur.base {
		chain = append(chain, cur)
		n += len(cur.props)
	}
	out := make([]Prop, 0, n)
	for i := len(chain) - 1; i >= 0; i-- {
		out = append(out, chain[i].props...)
	}
	return out
}

// FindRegistered looks a property up by name or by its serialization name
// on t.
func FindRegistered(t *Type, name string) (Prop, bool) {
	for _, p := range Registered(t) {
		if p.Name() == name || p.SerializeName(t) == name {
			return p, true
		}
	}
	return nil, false
}

// PropertyByID returns the property with the given id.
func PropertyByID(id int32) (Prop, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if id < 1 || int(id) > len(registry.byID) {
		return nil, false
	}
	return registry.byID[id-1], true
}
