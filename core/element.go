package core

import "slices"

// Hierarchical is implemented by types embedding Element. The unexported
// method seals the interface to this package's Element.
type Hierarchical interface {
	Object
	HierarchicalParent() Hierarchical
	IsAttached() bool
	Attach(parent Hierarchical)
	Detach()
	LogicalChildren() []Hierarchical
	element() *Element
}

// AttachHook is an optional interface called on attach, before the public
// Attached event.
type AttachHook interface {
	OnAttached(parent Hierarchical)
}

// DetachHook is an optional interface called on detach, before the public
// Detached event.
type DetachHook interface {
	OnDetached(parent Hierarchical)
}

// AttachmentEvent is delivered by Attached and Detached.
type AttachmentEvent struct {
	Sender Hierarchical
	Parent Hierarchical
}

// Element adds tree structure and the Detached/Attached lifecycle to
// CoreObject.
//
// The parent pointer is a plain reference and carries no ownership. Children
// are owned through an ElementList or through properties holding
// Hierarchical values; both are tracked as logical children. Attachment
// starts at a root (Attach) and flows down the logical children: parent
// first on attach, children first (in reverse order) on detach.
type Element struct {
	CoreObject

	parent   Hierarchical
	attached bool
	logical  []Hierarchical

	attachedEv Event[*AttachmentEvent]
	detachedEv Event[*AttachmentEvent]
}

// ElementType is the registered type of Element.
var ElementType = DefineType("Element", ObjectType)

func (e *Element) element() *Element { return e }

func (e *Element) selfH() Hierarchical {
	h, _ := e.self.(Hierarchical)
	return h
}

// HierarchicalParent returns the logical parent, or nil.
func (e *Element) HierarchicalParent() Hierarchical { return e.parent }

func (e *Element) IsAttached() bool { return e.attached }

// LogicalChildren returns a copy of the logical child list.
func (e *Element) LogicalChildren() []Hierarchical { return slices.Clone(e.logical) }

// Attached is raised after the element joins an attached tree.
func (e *Element) Attached() *Event[*AttachmentEvent] { return &e.attachedEv }

// Detached is raised after the element leaves an attached tree.
func (e *Element) Detached() *Event[*AttachmentEvent] { return &e.detachedEv }

// Attach connects the element (and its subtree) under parent. parent may be
// nil for a tree root, or to confirm the parent set by a collection.
// Attaching an attached element to its own parent is a no-op; attaching
// under any other parent panics with KindAlreadyAttached. Re-parenting is
// detach then attach.
func (e *Element) Attach(parent Hierarchical) {
	e.mustInit("core.Attach")
	if parent == nil {
		parent = e.parent
	}
	if e.parent != nil && parent != e.parent {
		panic(NewError("core.Attach", KindAlreadyAttached, "%s already has a parent", e.typ))
	}
	if e.attached {
		return
	}
	e.parent = parent
	e.attachTree()
}

// Detach disconnects the subtree: children in reverse order first, then
// the element itself. Detaching a detached element is a no-op. An element
// still listed by its parent cannot be detached on its own; remove it
// from the parent instead.
func (e *Element) Detach() {
	if !e.attached {
		return
	}
	if e.parent != nil && e.parent.element().logicalIndex(e) >= 0 {
		panic(NewError("core.Detach", KindAlreadyAttached, "%s is still a child of %s", e.typ, e.parent.Core().typ))
	}
	e.detachTree()
	e.parent = nil
}

func (e *Element) attachTree() {
	e.attached = true
	self := e.selfH()
	if h, ok := e.self.(AttachHook); ok {
		h.OnAttached(e.parent)
	}
	e.attachedEv.Raise(&AttachmentEvent{Sender: self, Parent: e.parent})
	for _, c := range slices.Clone(e.logical) {
		if ce := c.element(); !ce.attached {
			ce.attachTree()
		}
	}
}

func (e *Element) detachTree() {
	logical := slices.Clone(e.logical)
	for i := len(logical) - 1; i >= 0; i-- {
		if ce := logical[i].element(); ce.attached {
			ce.detachTree()
		}
	}
	e.attached = false
	if h, ok := e.self.(DetachHook); ok {
		h.OnDetached(e.parent)
	}
	e.detachedEv.Raise(&AttachmentEvent{Sender: e.selfH(), Parent: e.parent})
}

func (e *Element) addLogicalChild(child Hierarchical) {
	e.insertLogicalChild(len(e.logical), child)
}

// insertLogicalChild adds child at position pos of the logical children.
func (e *Element) insertLogicalChild(pos int, child Hierarchical) {
	ce := child.element()
	self := e.selfH()
	if ce == e {
		panic(NewError("core.AddChild", KindAlreadyAttached, "%s cannot be its own child", e.typ))
	}
	if ce.parent != nil && ce.parent.element() != e {
		panic(NewError("core.AddChild", KindAlreadyAttached, "%s already has a parent", ce.typ))
	}
	if e.logicalIndex(ce) >= 0 {
		panic(NewError("core.AddChild", KindAlreadyAttached, "%s is already a child of %s", ce.typ, e.typ))
	}
	ce.parent = self
	e.logical = slices.Insert(e.logical, pos, child)
	if e.attached && !ce.attached {
		ce.attachTree()
	}
}

func (e *Element) logicalIndex(ce *Element) int {
	return slices.IndexFunc(e.logical, func(h Hierarchical) bool { return h.element() == ce })
}

func (e *Element) removeLogicalChild(child Hierarchical) {
	ce := child.element()
	if ce.parent == nil || ce.parent.element() != e {
		panic(NewError("core.RemoveChild", KindNotAttached, "%s is not a child of %s", ce.typ, e.typ))
	}
	if i := e.logicalIndex(ce); i >= 0 {
		e.logical = slices.Delete(e.logical, i, i+1)
	}
	if ce.attached {
		ce.detachTree()
	}
	ce.parent = nil
}

// FindAncestor walks the parent chain and returns the first ancestor
// satisfying pred.
func FindAncestor(h Hierarchical, pred func(Hierarchical) bool) Hierarchical {
	for p := h.HierarchicalParent(); p != nil; p = p.HierarchicalParent() {
		if pred(p) {
			return p
		}
	}
	return nil
}

// ListAction identifies a collection mutation.
type ListAction uint8

const (
	ListAdd ListAction = iota
	ListRemove
	ListMove
	ListReset
)

// ListChangedEvent is raised by ElementList after each mutation.
type ListChangedEvent[T any] struct {
	Action   ListAction
	Items    []T
	Index    int
	OldIndex int
}

// ElementList is an ordered collection of owned children. Insertion sets the
// child's parent synchronously and attaches it when the owner is attached.
// The zero value is not usable; call Init from the owner's constructor.
type ElementList[T Hierarchical] struct {
	owner   *Element
	items   []T
	changed Event[*ListChangedEvent[T]]
}

// Init binds the list to its owning element.
func (l *ElementList[T]) Init(owner *Element) { l.owner = owner }

func (l *ElementList[T]) Len() int { return len(l.items) }

func (l *ElementList[T]) At(i int) T { return l.items[i] }

// Items returns the backing slice. Callers must not modify it.
func (l *ElementList[T]) Items() []T { return l.items }

func (l *ElementList[T]) IndexOf(item T) int {
	return slices.IndexFunc(l.items, func(x T) bool { return x.element() == item.element() })
}

// Changed is raised after every mutation.
func (l *ElementList[T]) Changed() *Event[*ListChangedEvent[T]] { return &l.changed }

func (l *ElementList[T]) Add(items ...T) {
	l.Insert(len(l.items), items...)
}

// Insert adds items at index. Attach notifications for the new items
// follow list order.
func (l *ElementList[T]) Insert(index int, items ...T) {
	pos := l.logicalPos(index)
	for i, it := range items {
		l.owner.insertLogicalChild(pos+i, it)
	}
	l.items = slices.Insert(l.items, index, items...)
	l.changed.Raise(&ListChangedEvent[T]{Action: ListAdd, Items: items, Index: index})
}

// Remove removes item and reports whether it was present.
func (l *ElementList[T]) Remove(item T) bool {
	i := l.IndexOf(item)
	if i < 0 {
		return false
	}
	l.RemoveAt(i)
	return true
}

func (l *ElementList[T]) RemoveAt(index int) {
	item := l.items[index]
	l.items = slices.Delete(l.items, index, index+1)
	l.owner.removeLogicalChild(item)
	l.changed.Raise(&ListChangedEvent[T]{Action: ListRemove, Items: []T{item}, Index: index})
}

// Move relocates the item at oldIndex to newIndex.
func (l *ElementList[T]) Move(oldIndex, newIndex int) {
	if oldIndex == newIndex {
		return
	}
	item := l.items[oldIndex]
	l.items = slices.Delete(l.items, oldIndex, oldIndex+1)
	ie := item.element()
	if i := l.owner.logicalIndex(ie); i >= 0 {
		l.owner.logical = slices.Delete(l.owner.logical, i, i+1)
	}
	l.owner.logical = slices.Insert(l.owner.logical, l.logicalPos(newIndex), Hierarchical(item))
	l.items = slices.Insert(l.items, newIndex, item)
	l.changed.Raise(&ListChangedEvent[T]{Action: ListMove, Items: []T{item}, Index: newIndex, OldIndex: oldIndex})
}

// logicalPos maps list position index to a position in the owner's
// logical children, keeping the list's relative order there.
func (l *ElementList[T]) logicalPos(index int) int {
	if index < len(l.items) {
		if i := l.owner.logicalIndex(l.items[index].element()); i >= 0 {
			return i
		}
	}
	if index > 0 && index-1 < len(l.items) {
		if i := l.owner.logicalIndex(l.items[index-1].element()); i >= 0 {
			return i + 1
		}
	}
	return len(l.owner.logical)
}

func (l *ElementList[T]) Clear() {
	if len(l.items) == 0 {
		return
	}
	old := l.items
	l.items = nil
	for i := len(old) - 1; i >= 0; i-- {
		l.owner.removeLogicalChild(old[i])
	}
	l.changed.Raise(&ListChangedEvent[T]{Action: ListReset, Items: old})
}
