package nodetree

import (
	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Node is a unit of work in a Space. It owns sockets (its items) and is
// evaluated once per frame after every node feeding it.
type Node interface {
	core.Hierarchical
	animation.Applier
	media.Invalidatable
	Items() *core.ElementList[Item]
	Position() media.Point
	PreEvaluate(ctx *EvaluationContext)
	Evaluate(ctx *EvaluationContext)
	PostEvaluate(ctx *EvaluationContext)
	node() *NodeBase
}

// TreeAttachHook is an optional interface called when a node joins a
// Space, after its items were attached.
type TreeAttachHook interface {
	OnTreeAttached(s *Space)
}

// TreeDetachHook is an optional interface called when a node leaves a
// Space, after its connections were removed.
type TreeDetachHook interface {
	OnTreeDetached(s *Space)
}

// NodeBase implements Node. Concrete nodes embed it, call Init from their
// constructor and override Evaluate.
type NodeBase struct {
	animation.Animatable
	media.Invalidator

	items  core.ElementList[Item]
	nextID int
	space  *Space
}

var NodeType = core.DefineType("Node", animation.AnimatableType)

// PositionProperty is where the node sits in an editor graph view.
var PositionProperty = core.Configure[media.Point, core.Object](NodeType, "Position").
	SerializeName("position").
	Register()

func (n *NodeBase) Init(self core.Object, t *core.Type) {
	n.Animatable.Init(self, t)
	n.items.Init(&n.Element)
	n.items.Changed().Subscribe(n.onItemsChanged)
	n.Animations().Invalidated().Subscribe(func(*media.InvalidatedEvent) {
		n.RaiseInvalidated(&media.InvalidatedEvent{Sender: n.Self()})
	})
}

func (n *NodeBase) node() *NodeBase                { return n }
func (n *NodeBase) Items() *core.ElementList[Item] { return &n.items }
func (n *NodeBase) Position() media.Point          { return core.GetValue(n.Self(), PositionProperty) }
func (n *NodeBase) SetPosition(p media.Point)      { core.Set(n.Self(), PositionProperty, p) }
func (n *NodeBase) Space() *Space                  { return n.space }

// Item returns the item with the given local id.
func (n *NodeBase) Item(localID int) (Item, bool) {
	for _, it := range n.items.Items() {
		if it.LocalID() == localID {
			return it, true
		}
	}
	return nil, false
}

// ItemByName returns the first item with the given name.
func (n *NodeBase) ItemByName(name string) (Item, bool) {
	for _, it := range n.items.Items() {
		if it.Name() == name {
			return it, true
		}
	}
	return nil, false
}

func (n *NodeBase) onItemsChanged(e *core.ListChangedEvent[Item]) {
	switch e.Action {
	case core.ListAdd:
		for _, it := range e.Items {
			if id := it.LocalID(); id < 0 {
				it.SetLocalID(n.nextID)
				n.nextID++
			} else {
				n.nextID = max(n.nextID, id+1)
			}
			if n.space != nil {
				it.AttachTree(n.space)
			}
		}
	case core.ListRemove, core.ListReset:
		for _, it := range e.Items {
			if n.space == nil {
				continue
			}
			if s, ok := it.(Socket); ok {
				n.space.disconnectSocket(s)
			}
			it.DetachTree(n.space)
		}
	}
}

// PreEvaluate pulls the values of all input sockets.
func (n *NodeBase) PreEvaluate(ctx *EvaluationContext) {
	for _, it := range n.items.Items() {
		it.PreEvaluate(ctx)
	}
}

func (n *NodeBase) Evaluate(ctx *EvaluationContext) {
	for _, it := range n.items.Items() {
		it.Evaluate(ctx)
	}
}

func (n *NodeBase) PostEvaluate(ctx *EvaluationContext) {
	for _, it := range n.items.Items() {
		it.PostEvaluate(ctx)
	}
}

// AddInput adds an input socket to n bound to property p, which supplies
// the value while the socket is unconnected.
func AddInput[T any](n Node, name string, p *core.Property[T]) *InputSocket[T] {
	s := NewInputSocket(name, p.Default(n.Core().ObjectType()))
	s.Bind(n, p)
	n.Items().Add(s)
	return s
}

// AddOutput adds an output socket to n.
func AddOutput[T any](n Node, name string) *OutputSocket[T] {
	s := NewOutputSocket[T](name)
	n.Items().Add(s)
	return s
}

var _ Node = (*NodeBase)(nil)
