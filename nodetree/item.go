// Package nodetree evaluates a graph of nodes connected through typed
// sockets. Once per frame every node pulls its inputs, computes its
// outputs and runs its side effects, in dependency order. The graph is
// separate from the drawable hierarchy: nodes drive drawables (a matrix
// feeding a transform, a generated shape feeding a layer) without being
// part of the drawable tree.
package nodetree

import (
	"reflect"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
)

// EvaluationContext is shared by all nodes during one evaluation pass.
type EvaluationContext struct {
	Clock animation.Clock

	drawables []graphics.Drawable
}

func NewEvaluationContext(clock animation.Clock) *EvaluationContext {
	return &EvaluationContext{Clock: clock}
}

// AddDrawable queues d for rendering by the layer that owns the tree.
func (c *EvaluationContext) AddDrawable(d graphics.Drawable) {
	c.drawables = append(c.drawables, d)
}

// Drawables returns the drawables queued during the pass.
func (c *EvaluationContext) Drawables() []graphics.Drawable { return c.drawables }

// Validity is the result of an item's last evaluation.
type Validity uint8

const (
	ValidityUnknown Validity = iota
	Valid
	Invalid
)

// Item is anything a node owns: input and output sockets.
type Item interface {
	core.Hierarchical
	LocalID() int
	SetLocalID(id int)
	Validity() Validity
	// Tree is the space the item is attached to, or nil.
	Tree() *Space
	// AttachTree and DetachTree are called by Space when the owning node
	// is added or removed.
	AttachTree(s *Space)
	DetachTree(s *Space)
	PreEvaluate(ctx *EvaluationContext)
	Evaluate(ctx *EvaluationContext)
	PostEvaluate(ctx *EvaluationContext)
}

// ItemBase implements Item apart from evaluation.
type ItemBase struct {
	core.Element
	tree *Space
}

var ItemType = core.DefineType("NodeItem", core.ElementType)

var (
	LocalIDProperty = core.Configure[int, core.Object](ItemType, "LocalId").
			DefaultValue(-1).
			SerializeName("localId").
			Register()
	ValidityProperty = core.Configure[Validity, core.Object](ItemType, "Validity").
				Register()
)

func (i *ItemBase) LocalID() int           { return core.GetValue(i.Self(), LocalIDProperty) }
func (i *ItemBase) SetLocalID(id int)      { core.Set(i.Self(), LocalIDProperty, id) }
func (i *ItemBase) Validity() Validity     { return core.GetValue(i.Self(), ValidityProperty) }
func (i *ItemBase) setValidity(v Validity) { core.Set(i.Self(), ValidityProperty, v) }
func (i *ItemBase) IsValid() bool          { return i.Validity() == Valid }
func (i *ItemBase) Tree() *Space           { return i.tree }

// AttachTree panics with KindAlreadyAttached when the item already
// belongs to a tree.
func (i *ItemBase) AttachTree(s *Space) {
	if i.tree != nil {
		panic(core.NewError("nodetree.AttachTree", core.KindAlreadyAttached, "%s %q already belongs to a node tree", i.ObjectType(), i.Name()))
	}
	i.tree = s
}

// DetachTree panics with KindNotAttached when the item belongs to no
// tree.
func (i *ItemBase) DetachTree(*Space) {
	if i.tree == nil {
		panic(core.NewError("nodetree.DetachTree", core.KindNotAttached, "%s %q is not in a node tree", i.ObjectType(), i.Name()))
	}
	i.tree = nil
}

func (i *ItemBase) PreEvaluate(*EvaluationContext)  {}
func (i *ItemBase) Evaluate(*EvaluationContext)     {}
func (i *ItemBase) PostEvaluate(*EvaluationContext) {}

// Node returns the node that owns the item.
func (i *ItemBase) Node() Node {
	n, _ := i.HierarchicalParent().(Node)
	return n
}

// Socket is an item that can be connected.
type Socket interface {
	Item
	Node() Node
	// ValueType is the Go type the socket carries.
	ValueType() reflect.Type
	Connections() []*Connection
}

// InputPort is the untyped view of an InputSocket.
type InputPort interface {
	Socket
	Connection() *Connection
	setConnection(c *Connection)
}

// OutputPort is the untyped view of an OutputSocket.
type OutputPort interface {
	Socket
	BoxedValue() any
	addConnection(c *Connection)
	removeConnection(c *Connection)
}

// Connection links one output to one input.
type Connection struct {
	Output OutputPort
	Input  InputPort
}

// --- InputSocket ---

// InputSocket receives a value from a connected output. Unconnected, it
// reads the node property it is bound to (which the node's animations
// drive), or its fallback value.
type InputSocket[T any] struct {
	ItemBase
	value    T
	fallback T
	target   core.Object
	property *core.Property[T]
	conn     *Connection
}

var InputSocketType = core.DefineType("InputSocket", ItemType)

func NewInputSocket[T any](name string, fallback T) *InputSocket[T] {
	s := &InputSocket[T]{fallback: fallback, value: fallback}
	s.Init(s, InputSocketType)
	s.SetName(name)
	return s
}

// Bind makes the socket read p on target while unconnected.
func (s *InputSocket[T]) Bind(target core.Object, p *core.Property[T]) {
	s.target, s.property = target, p
}

// SetFallback sets the value used when the socket is neither connected
// nor bound.
func (s *InputSocket[T]) SetFallback(v T) { s.fallback = v }

func (s *InputSocket[T]) Value() T                    { return s.value }
func (s *InputSocket[T]) ValueType() reflect.Type     { return reflect.TypeFor[T]() }
func (s *InputSocket[T]) Connection() *Connection     { return s.conn }
func (s *InputSocket[T]) setConnection(c *Connection) { s.conn = c }

// IsConnected reports whether an output feeds the socket.
func (s *InputSocket[T]) IsConnected() bool { return s.conn != nil }

func (s *InputSocket[T]) Connections() []*Connection {
	if s.conn == nil {
		return nil
	}
	return []*Connection{s.conn}
}

func (s *InputSocket[T]) PreEvaluate(*EvaluationContext) {
	switch {
	case s.conn != nil:
		boxed := s.conn.Output.BoxedValue()
		v, ok := boxed.(T)
		if (!ok && boxed != nil) || s.conn.Output.Validity() == Invalid {
			s.value = s.fallback
			s.setValidity(Invalid)
			return
		}
		s.value = v
	case s.property != nil:
		s.value = core.GetValue(s.target, s.property)
	default:
		s.value = s.fallback
	}
	s.setValidity(Valid)
}

// --- OutputSocket ---

// OutputSocket publishes a value computed by its node.
type OutputSocket[T any] struct {
	ItemBase
	value T
	conns []*Connection
}

var OutputSocketType = core.DefineType("OutputSocket", ItemType)

func NewOutputSocket[T any](name string) *OutputSocket[T] {
	s := &OutputSocket[T]{}
	s.Init(s, OutputSocketType)
	s.SetName(name)
	return s
}

func (s *OutputSocket[T]) Value() T                { return s.value }
func (s *OutputSocket[T]) BoxedValue() any         { return s.value }
func (s *OutputSocket[T]) ValueType() reflect.Type { return reflect.TypeFor[T]() }

func (s *OutputSocket[T]) Connections() []*Connection { return s.conns }

// SetValue publishes v and marks the socket valid.
func (s *OutputSocket[T]) SetValue(v T) {
	s.value = v
	s.setValidity(Valid)
}

// Invalidate publishes the zero value and marks the socket invalid.
func (s *OutputSocket[T]) Invalidate() {
	var zero T
	s.value = zero
	s.setValidity(Invalid)
}

func (s *OutputSocket[T]) addConnection(c *Connection) { s.conns = append(s.conns, c) }

func (s *OutputSocket[T]) removeConnection(c *Connection) {
	for i, x := range s.conns {
		if x == c {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return
		}
	}
}

var (
	_ InputPort  = (*InputSocket[float64])(nil)
	_ OutputPort = (*OutputSocket[float64])(nil)
)
