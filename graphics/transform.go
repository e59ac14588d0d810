package graphics

import (
	"math"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/media"
)

// Transform produces an affine matrix for a drawable.
type Transform interface {
	core.Hierarchical
	media.Invalidatable
	Value() media.Matrix
	IsEnabled() bool
}

// TransformBase carries the IsEnabled switch shared by all transforms.
type TransformBase struct {
	Resource
}

var TransformType = core.DefineType("Transform", ResourceType)

var TransformIsEnabledProperty = core.Configure[bool, core.Object](TransformType, "IsEnabled").
	DefaultValue(true).
	SerializeName("isEnabled").
	Register()

func (t *TransformBase) IsEnabled() bool     { return core.GetValue(t.Self(), TransformIsEnabledProperty) }
func (t *TransformBase) SetIsEnabled(v bool) { core.Set(t.Self(), TransformIsEnabledProperty, v) }

// EffectiveMatrix returns t's matrix, or Identity for a nil or disabled
// transform.
func EffectiveMatrix(t Transform) media.Matrix {
	if t == nil || core.IsNil(t) || !t.IsEnabled() {
		return media.Identity
	}
	return t.Value()
}

// --- TranslateTransform ---

type TranslateTransform struct {
	TransformBase
}

var TranslateTransformType = core.DefineType("TranslateTransform", TransformType)

var (
	TranslateXProperty = core.Configure[float64, core.Object](TranslateTransformType, "X").
				SerializeName("x").
				Animatable().
				Register()
	TranslateYProperty = core.Configure[float64, core.Object](TranslateTransformType, "Y").
				SerializeName("y").
				Animatable().
				Register()
)

func NewTranslateTransform(x, y float64) *TranslateTransform {
	t := &TranslateTransform{}
	t.Init(t, TranslateTransformType)
	t.SetX(x)
	t.SetY(y)
	return t
}

func (t *TranslateTransform) X() float64     { return core.GetValue(t, TranslateXProperty) }
func (t *TranslateTransform) Y() float64     { return core.GetValue(t, TranslateYProperty) }
func (t *TranslateTransform) SetX(v float64) { core.Set(t, TranslateXProperty, v) }
func (t *TranslateTransform) SetY(v float64) { core.Set(t, TranslateYProperty, v) }

func (t *TranslateTransform) Value() media.Matrix { return media.Translation(t.X(), t.Y()) }

// --- ScaleTransform ---

// ScaleTransform scales by Scale*X horizontally and Scale*Y vertically.
type ScaleTransform struct {
	TransformBase
}

var ScaleTransformType = core.DefineType("ScaleTransform", TransformType)

var (
	ScaleProperty = core.Configure[float64, core.Object](ScaleTransformType, "Scale").
			DefaultValue(1).
			SerializeName("scale").
			Animatable().
			Register()
	ScaleXProperty = core.Configure[float64, core.Object](ScaleTransformType, "ScaleX").
			DefaultValue(1).
			SerializeName("scaleX").
			Animatable().
			Register()
	ScaleYProperty = core.Configure[float64, core.Object](ScaleTransformType, "ScaleY").
			DefaultValue(1).
			SerializeName("scaleY").
			Animatable().
			Register()
)

func NewScaleTransform(scale, x, y float64) *ScaleTransform {
	t := &ScaleTransform{}
	t.Init(t, ScaleTransformType)
	t.SetScale(scale)
	t.SetScaleX(x)
	t.SetScaleY(y)
	return t
}

func (t *ScaleTransform) Scale() float64      { return core.GetValue(t, ScaleProperty) }
func (t *ScaleTransform) ScaleX() float64     { return core.GetValue(t, ScaleXProperty) }
func (t *ScaleTransform) ScaleY() float64     { return core.GetValue(t, ScaleYProperty) }
func (t *ScaleTransform) SetScale(v float64)  { core.Set(t, ScaleProperty, v) }
func (t *ScaleTransform) SetScaleX(v float64) { core.Set(t, ScaleXProperty, v) }
func (t *ScaleTransform) SetScaleY(v float64) { core.Set(t, ScaleYProperty, v) }

func (t *ScaleTransform) Value() media.Matrix {
	s := t.Scale()
	return media.Scale(s*t.ScaleX(), s*t.ScaleY())
}

// --- RotationTransform ---

// RotationTransform rotates clockwise by Rotation degrees.
type RotationTransform struct {
	TransformBase
}

var RotationTransformType = core.DefineType("RotationTransform", TransformType)

var RotationProperty = core.Configure[float64, core.Object](RotationTransformType, "Rotation").
	SerializeName("rotation").
	Animatable().
	Register()

func NewRotationTransform(degrees float64) *RotationTransform {
	t := &RotationTransform{}
	t.Init(t, RotationTransformType)
	t.SetRotation(degrees)
	return t
}

func (t *RotationTransform) Rotation() float64     { return core.GetValue(t, RotationProperty) }
func (t *RotationTransform) SetRotation(v float64) { core.Set(t, RotationProperty, v) }

func (t *RotationTransform) Value() media.Matrix {
	return media.Rotation(t.Rotation() * math.Pi / 180)
}

// --- MatrixTransform ---

type MatrixTransform struct {
	TransformBase
}

var MatrixTransformType = core.DefineType("MatrixTransform", TransformType)

var MatrixProperty = core.Configure[media.Matrix, core.Object](MatrixTransformType, "Matrix").
	DefaultValue(media.Identity).
	SerializeName("matrix").
	Animatable().
	Register()

func NewMatrixTransform(m media.Matrix) *MatrixTransform {
	t := &MatrixTransform{}
	t.Init(t, MatrixTransformType)
	t.SetMatrix(m)
	return t
}

func (t *MatrixTransform) Matrix() media.Matrix     { return core.GetValue(t, MatrixProperty) }
func (t *MatrixTransform) SetMatrix(m media.Matrix) { core.Set(t, MatrixProperty, m) }

func (t *MatrixTransform) Value() media.Matrix { return t.Matrix() }

// --- TransformGroup ---

// TransformGroup applies its children in order: the first child first.
type TransformGroup struct {
	TransformBase
	children core.ElementList[Transform]
}

var TransformGroupType = core.DefineType("TransformGroup", TransformType)

func NewTransformGroup(children ...Transform) *TransformGroup {
	g := &TransformGroup{}
	g.Init(g, TransformGroupType)
	g.children.Init(&g.Element)
	forwardList(&g.children, func() { g.raise(nil) })
	g.children.Add(children...)
	return g
}

func (g *TransformGroup) Children() *core.ElementList[Transform] { return &g.children }

func (g *TransformGroup) Value() media.Matrix {
	m := media.Identity
	for _, c := range g.children.Items() {
		m = m.Then(EffectiveMatrix(c))
	}
	return m
}

func (g *TransformGroup) WriteJSON(m map[string]any) {
	g.TransformBase.WriteJSON(m)
	writeList(m, "children", g.children.Items())
}

func (g *TransformGroup) ReadJSON(m map[string]any) {
	g.TransformBase.ReadJSON(m)
	readList(m, "children", &g.children)
}

func init() {
	media.AffectsRender(TransformType, TransformIsEnabledProperty)
	media.AffectsRender(TranslateTransformType, TranslateXProperty, TranslateYProperty)
	media.AffectsRender(ScaleTransformType, ScaleProperty, ScaleXProperty, ScaleYProperty)
	media.AffectsRender(RotationTransformType, RotationProperty)
	media.AffectsRender(MatrixTransformType, MatrixProperty)

	TranslateTransformType.SetFactory(func() core.Object { return NewTranslateTransform(0, 0) })
	ScaleTransformType.SetFactory(func() core.Object { return NewScaleTransform(1, 1, 1) })
	RotationTransformType.SetFactory(func() core.Object { return NewRotationTransform(0) })
	MatrixTransformType.SetFactory(func() core.Object { return NewMatrixTransform(media.Identity) })
	TransformGroupType.SetFactory(func() core.Object { return NewTransformGroup() })
}

var (
	_ Transform = (*TranslateTransform)(nil)
	_ Transform = (*ScaleTransform)(nil)
	_ Transform = (*RotationTransform)(nil)
	_ Transform = (*MatrixTransform)(nil)
	_ Transform = (*TransformGroup)(nil)
)
