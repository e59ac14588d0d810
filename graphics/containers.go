package graphics

import (
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// DrawableGroup draws its children in ZIndex order. Children with equal
// ZIndex keep their list order. The group's content is the union of the
// children's bounds.
type DrawableGroup struct {
	DrawableBase
	children core.ElementList[Drawable]
	sorted   []Drawable
	unsorted bool
}

var DrawableGroupType = core.DefineType("DrawableGroup", DrawableType)

func NewDrawableGroup(children ...Drawable) *DrawableGroup {
	g := &DrawableGroup{}
	g.Init(g, DrawableGroupType)
	g.children.Init(&g.Element)
	g.unsorted = true
	links := make(map[*core.CoreObject]func())
	g.children.Changed().Subscribe(func(e *core.ListChangedEvent[Drawable]) {
		switch e.Action {
		case core.ListAdd:
			for _, c := range e.Items {
				links[c.Core()] = c.Core().PropertyChanged().Subscribe(func(pe *core.PropertyChangedEvent) {
					if pe.Property == ZIndexProperty {
						g.unsorted = true
					}
				})
			}
		case core.ListRemove, core.ListReset:
			for _, c := range e.Items {
				if cancel, ok := links[c.Core()]; ok {
					cancel()
					delete(links, c.Core())
				}
			}
		}
		g.unsorted = true
		g.Invalidate()
	})
	g.children.Add(children...)
	return g
}

func (g *DrawableGroup) Children() *core.ElementList[Drawable] { return &g.children }

func (g *DrawableGroup) drawableChildren() []Drawable { return g.children.Items() }

// DrawOrder returns the children sorted by ZIndex.
func (g *DrawableGroup) DrawOrder() []Drawable {
	if g.unsorted {
		g.rebuildSorted()
	}
	return g.sorted
}

// rebuildSorted is a stable insertion sort; child lists are short and
// usually already ordered.
func (g *DrawableGroup) rebuildSorted() {
	items := g.children.Items()
	g.sorted = append(g.sorted[:0], items...)
	for i := 1; i < len(g.sorted); i++ {
		key := g.sorted[i]
		j := i - 1
		for j >= 0 && g.sorted[j].ZIndex() > key.ZIndex() {
			g.sorted[j+1] = g.sorted[j]
			j--
		}
		g.sorted[j+1] = key
	}
	g.unsorted = false
}

func (g *DrawableGroup) OnMeasure(available media.Size) media.Rect {
	var r media.Rect
	first := true
	for _, c := range g.children.Items() {
		c.Measure(available)
		if !c.IsVisible() {
			continue
		}
		b := c.Bounds()
		if b.IsInvalid() {
			continue
		}
		if first {
			r, first = b, false
			continue
		}
		r = r.Union(b)
	}
	return r
}

func (g *DrawableGroup) OnDraw(c Canvas) {
	for _, d := range g.DrawOrder() {
		c.DrawDrawable(d)
	}
}

func (g *DrawableGroup) WriteJSON(m map[string]any) {
	g.DrawableBase.WriteJSON(m)
	writeList(m, "children", g.children.Items())
}

func (g *DrawableGroup) ReadJSON(m map[string]any) {
	g.DrawableBase.ReadJSON(m)
	readList(m, "children", &g.children)
}

// DrawableDecorator wraps a single child so that transforms, effects and
// masks can be layered on content owned elsewhere.
type DrawableDecorator struct {
	DrawableBase
}

var DrawableDecoratorType = core.DefineType("DrawableDecorator", DrawableType)

var ChildProperty = core.Configure[Drawable, core.Object](DrawableDecoratorType, "Child").
	SerializeName("child").
	Register()

func NewDrawableDecorator(child Drawable) *DrawableDecorator {
	d := &DrawableDecorator{}
	d.Init(d, DrawableDecoratorType)
	if child != nil {
		d.SetChild(child)
	}
	return d
}

func (d *DrawableDecorator) Child() Drawable     { return core.GetValue(d, ChildProperty) }
func (d *DrawableDecorator) SetChild(c Drawable) { core.Set(d, ChildProperty, c) }

// OriginalZIndex is the ZIndex of the innermost decorated drawable.
func (d *DrawableDecorator) OriginalZIndex() int {
	if inner, ok := d.Child().(*DrawableDecorator); ok && inner != nil {
		return inner.OriginalZIndex()
	}
	return d.ZIndex()
}

func (d *DrawableDecorator) drawableChildren() []Drawable {
	if c := d.Child(); c != nil && !core.IsNil(c) {
		return []Drawable{c}
	}
	return nil
}

func (d *DrawableDecorator) OnMeasure(available media.Size) media.Rect {
	c := d.Child()
	if c == nil || core.IsNil(c) {
		return media.Rect{}
	}
	c.Measure(available)
	return c.Bounds()
}

func (d *DrawableDecorator) OnDraw(cv Canvas) {
	if c := d.Child(); c != nil && !core.IsNil(c) {
		cv.DrawDrawable(c)
	}
}

func init() {
	media.AffectsRender(DrawableDecoratorType, ChildProperty)
	DrawableGroupType.SetFactory(func() core.Object { return NewDrawableGroup() })
	DrawableDecoratorType.SetFactory(func() core.Object { return NewDrawableDecorator(nil) })
}

var (
	_ Drawable = (*DrawableGroup)(nil)
	_ Drawable = (*DrawableDecorator)(nil)
)
