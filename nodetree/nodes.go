package nodetree

import (
	"math"

	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
)

// --- TranslateNode ---

// TranslateNode outputs a translation matrix.
type TranslateNode struct {
	NodeBase
	X, Y   *InputSocket[float64]
	Matrix *OutputSocket[media.Matrix]
}

var TranslateNodeType = core.DefineType("TranslateNode", NodeType)

var (
	TranslateNodeXProperty = core.Configure[float64, core.Object](TranslateNodeType, "X").
				SerializeName("x").
				Animatable().
				Register()
	TranslateNodeYProperty = core.Configure[float64, core.Object](TranslateNodeType, "Y").
				SerializeName("y").
				Animatable().
				Register()
)

func NewTranslateNode() *TranslateNode {
	n := &TranslateNode{}
	n.Init(n, TranslateNodeType)
	n.X = AddInput(n, "X", TranslateNodeXProperty)
	n.Y = AddInput(n, "Y", TranslateNodeYProperty)
	n.Matrix = AddOutput[media.Matrix](n, "Matrix")
	return n
}

func (n *TranslateNode) SetX(v float64) { core.Set(n, TranslateNodeXProperty, v) }
func (n *TranslateNode) SetY(v float64) { core.Set(n, TranslateNodeYProperty, v) }

func (n *TranslateNode) Evaluate(*EvaluationContext) {
	n.Matrix.SetValue(media.Translation(n.X.Value(), n.Y.Value()))
}

// --- ScaleNode ---

// ScaleNode outputs Scale(Scale*ScaleX, Scale*ScaleY).
type ScaleNode struct {
	NodeBase
	Scale, ScaleX, ScaleY *InputSocket[float64]
	Matrix                *OutputSocket[media.Matrix]
}

var ScaleNodeType = core.DefineType("ScaleNode", NodeType)

var (
	ScaleNodeScaleProperty = core.Configure[float64, core.Object](ScaleNodeType, "Scale").
				DefaultValue(1).
				SerializeName("scale").
				Animatable().
				Register()
	ScaleNodeXProperty = core.Configure[float64, core.Object](ScaleNodeType, "ScaleX").
				DefaultValue(1).
				SerializeName("scaleX").
				Animatable().
				Register()
	ScaleNodeYProperty = core.Configure[float64, core.Object](ScaleNodeType, "ScaleY").
				DefaultValue(1).
				SerializeName("scaleY").
				Animatable().
				Register()
)

func NewScaleNode() *ScaleNode {
	n := &ScaleNode{}
	n.Init(n, ScaleNodeType)
	n.Scale = AddInput(n, "Scale", ScaleNodeScaleProperty)
	n.ScaleX = AddInput(n, "ScaleX", ScaleNodeXProperty)
	n.ScaleY = AddInput(n, "ScaleY", ScaleNodeYProperty)
	n.Matrix = AddOutput[media.Matrix](n, "Matrix")
	return n
}

func (n *ScaleNode) SetScale(v float64)  { core.Set(n, ScaleNodeScaleProperty, v) }
func (n *ScaleNode) SetScaleX(v float64) { core.Set(n, ScaleNodeXProperty, v) }
func (n *ScaleNode) SetScaleY(v float64) { core.Set(n, ScaleNodeYProperty, v) }

func (n *ScaleNode) Evaluate(*EvaluationContext) {
	s := n.Scale.Value()
	n.Matrix.SetValue(media.Scale(s*n.ScaleX.Value(), s*n.ScaleY.Value()))
}

// --- RotationNode ---

// RotationNode outputs a clockwise rotation by Degrees.
type RotationNode struct {
	NodeBase
	Degrees *InputSocket[float64]
	Matrix  *OutputSocket[media.Matrix]
}

var RotationNodeType = core.DefineType("RotationNode", NodeType)

var RotationNodeDegreesProperty = core.Configure[float64, core.Object](RotationNodeType, "Degrees").
	SerializeName("degrees").
	Animatable().
	Register()

func NewRotationNode() *RotationNode {
	n := &RotationNode{}
	n.Init(n, RotationNodeType)
	n.Degrees = AddInput(n, "Degrees", RotationNodeDegreesProperty)
	n.Matrix = AddOutput[media.Matrix](n, "Matrix")
	return n
}

func (n *RotationNode) SetDegrees(v float64) { core.Set(n, RotationNodeDegreesProperty, v) }

func (n *RotationNode) Evaluate(*EvaluationContext) {
	n.Matrix.SetValue(media.Rotation(n.Degrees.Value() * math.Pi / 180))
}

// --- MatrixMultiplyNode ---

// MatrixMultiplyNode outputs A followed by B.
type MatrixMultiplyNode struct {
	NodeBase
	A, B   *InputSocket[media.Matrix]
	Matrix *OutputSocket[media.Matrix]
}

var MatrixMultiplyNodeType = core.DefineType("MatrixMultiplyNode", NodeType)

var (
	MatrixMultiplyAProperty = core.Configure[media.Matrix, core.Object](MatrixMultiplyNodeType, "A").
				DefaultValue(media.Identity).
				SerializeName("a").
				Animatable().
				Register()
	MatrixMultiplyBProperty = core.Configure[media.Matrix, core.Object](MatrixMultiplyNodeType, "B").
				DefaultValue(media.Identity).
				SerializeName("b").
				Animatable().
				Register()
)

func NewMatrixMultiplyNode() *MatrixMultiplyNode {
	n := &MatrixMultiplyNode{}
	n.Init(n, MatrixMultiplyNodeType)
	n.A = AddInput(n, "A", MatrixMultiplyAProperty)
	n.B = AddInput(n, "B", MatrixMultiplyBProperty)
	n.Matrix = AddOutput[media.Matrix](n, "Matrix")
	return n
}

func (n *MatrixMultiplyNode) Evaluate(*EvaluationContext) {
	n.Matrix.SetValue(n.A.Value().Then(n.B.Value()))
}

// --- TransformNode ---

// TransformNode applies Matrix to the drawable on its input, after the
// drawable's own transform, and passes the drawable on. The matrix is
// carried by a MatrixTransform the node adds to the drawable's
// TransformGroup (wrapping any other transform in a new group) and removes
// again when the input changes or the node leaves the tree.
type TransformNode struct {
	NodeBase
	Drawable *InputSocket[graphics.Drawable]
	Matrix   *InputSocket[media.Matrix]
	Output   *OutputSocket[graphics.Drawable]

	model  *graphics.MatrixTransform
	target graphics.Drawable
}

var TransformNodeType = core.DefineType("TransformNode", NodeType)

var TransformNodeMatrixProperty = core.Configure[media.Matrix, core.Object](TransformNodeType, "Matrix").
	DefaultValue(media.Identity).
	SerializeName("matrix").
	Animatable().
	Register()

func NewTransformNode() *TransformNode {
	n := &TransformNode{model: graphics.NewMatrixTransform(media.Identity)}
	n.Init(n, TransformNodeType)
	n.Drawable = NewInputSocket[graphics.Drawable]("Drawable", nil)
	n.Items().Add(n.Drawable)
	n.Matrix = AddInput(n, "Matrix", TransformNodeMatrixProperty)
	n.Output = AddOutput[graphics.Drawable](n, "Drawable")
	return n
}

// SetTarget sets the drawable transformed while the Drawable input is
// unconnected.
func (n *TransformNode) SetTarget(d graphics.Drawable) { n.Drawable.SetFallback(d) }

func (n *TransformNode) Evaluate(*EvaluationContext) {
	d := n.Drawable.Value()
	if d != nil && core.IsNil(d) {
		d = nil
	}
	if d != n.target {
		n.release()
		if d != nil {
			n.apply(d)
		}
	}
	n.model.SetMatrix(n.Matrix.Value())
	if d == nil {
		n.Output.Invalidate()
		return
	}
	n.Output.SetValue(d)
}

type transformable interface {
	Transform() graphics.Transform
	SetTransform(t graphics.Transform)
}

func (n *TransformNode) apply(d graphics.Drawable) {
	td, ok := d.(transformable)
	if !ok {
		return
	}
	switch t := td.Transform().(type) {
	case *graphics.TransformGroup:
		t.Children().Add(n.model)
	case nil:
		td.SetTransform(graphics.NewTransformGroup(n.model))
	default:
		td.SetTransform(nil)
		td.SetTransform(graphics.NewTransformGroup(t, n.model))
	}
	n.target = d
}

func (n *TransformNode) release() {
	if n.target == nil {
		return
	}
	if g, ok := n.model.HierarchicalParent().(*graphics.TransformGroup); ok {
		g.Children().Remove(n.model)
	}
	n.target = nil
}

func (n *TransformNode) OnTreeDetached(*Space) { n.release() }

// --- RectNode ---

// RectNode outputs a rectangle drawable it owns.
type RectNode struct {
	NodeBase
	Width, Height *InputSocket[float64]
	Fill          *InputSocket[media.Color]
	Output        *OutputSocket[graphics.Drawable]

	rect  *graphics.Rectangle
	brush *graphics.SolidColorBrush
}

var RectNodeType = core.DefineType("RectNode", NodeType)

var (
	RectNodeWidthProperty = core.Configure[float64, core.Object](RectNodeType, "Width").
				DefaultValue(100).
				SerializeName("width").
				Animatable().
				Validator(core.Min(0.0)).
				Register()
	RectNodeHeightProperty = core.Configure[float64, core.Object](RectNodeType, "Height").
				DefaultValue(100).
				SerializeName("height").
				Animatable().
				Validator(core.Min(0.0)).
				Register()
	RectNodeFillProperty = core.Configure[media.Color, core.Object](RectNodeType, "Fill").
				DefaultValue(media.White).
				SerializeName("fill").
				Animatable().
				Register()
)

func NewRectNode() *RectNode {
	n := &RectNode{brush: graphics.NewSolidColorBrush(media.White)}
	n.Init(n, RectNodeType)
	n.rect = graphics.NewRectangle(0, 0)
	n.rect.SetForeground(n.brush)
	n.Width = AddInput(n, "Width", RectNodeWidthProperty)
	n.Height = AddInput(n, "Height", RectNodeHeightProperty)
	n.Fill = AddInput(n, "Fill", RectNodeFillProperty)
	n.Output = AddOutput[graphics.Drawable](n, "Drawable")
	return n
}

func (n *RectNode) SetWidth(v float64)             { core.Set(n, RectNodeWidthProperty, v) }
func (n *RectNode) SetHeight(v float64)            { core.Set(n, RectNodeHeightProperty, v) }
func (n *RectNode) SetFill(c media.Color)          { core.Set(n, RectNodeFillProperty, c) }
func (n *RectNode) Rectangle() *graphics.Rectangle { return n.rect }

func (n *RectNode) Evaluate(*EvaluationContext) {
	n.rect.SetWidth(max(n.Width.Value(), 0))
	n.rect.SetHeight(max(n.Height.Value(), 0))
	n.brush.SetColor(n.Fill.Value())
	n.Output.SetValue(n.rect)
}

// --- LayerOutputNode ---

// LayerOutputNode hands the drawable on its input to the layer for
// rendering.
type LayerOutputNode struct {
	NodeBase
	Drawable *InputSocket[graphics.Drawable]
}

var LayerOutputNodeType = core.DefineType("LayerOutputNode", NodeType)

func NewLayerOutputNode() *LayerOutputNode {
	n := &LayerOutputNode{}
	n.Init(n, LayerOutputNodeType)
	n.Drawable = NewInputSocket[graphics.Drawable]("Drawable", nil)
	n.Items().Add(n.Drawable)
	return n
}

func (n *LayerOutputNode) PostEvaluate(ctx *EvaluationContext) {
	if d := n.Drawable.Value(); d != nil && !core.IsNil(d) && n.Drawable.IsValid() {
		ctx.AddDrawable(d)
	}
}

func init() {
	media.AffectsRender(TranslateNodeType, TranslateNodeXProperty, TranslateNodeYProperty)
	media.AffectsRender(ScaleNodeType, ScaleNodeScaleProperty, ScaleNodeXProperty, ScaleNodeYProperty)
	media.AffectsRender(RotationNodeType, RotationNodeDegreesProperty)
	media.AffectsRender(MatrixMultiplyNodeType, MatrixMultiplyAProperty, MatrixMultiplyBProperty)
	media.AffectsRender(TransformNodeType, TransformNodeMatrixProperty)
	media.AffectsRender(RectNodeType, RectNodeWidthProperty, RectNodeHeightProperty, RectNodeFillProperty)

	TranslateNodeType.SetFactory(func() core.Object { return NewTranslateNode() })
	ScaleNodeType.SetFactory(func() core.Object { return NewScaleNode() })
	RotationNodeType.SetFactory(func() core.Object { return NewRotationNode() })
	MatrixMultiplyNodeType.SetFactory(func() core.Object { return NewMatrixMultiplyNode() })
	TransformNodeType.SetFactory(func() core.Object { return NewTransformNode() })
	RectNodeType.SetFactory(func() core.Object { return NewRectNode() })
	LayerOutputNodeType.SetFactory(func() core.Object { return NewLayerOutputNode() })
}

var (
	_ Node           = (*TranslateNode)(nil)
	_ Node           = (*ScaleNode)(nil)
	_ Node           = (*RotationNode)(nil)
	_ Node           = (*MatrixMultiplyNode)(nil)
	_ Node           = (*TransformNode)(nil)
	_ Node           = (*RectNode)(nil)
	_ Node           = (*LayerOutputNode)(nil)
	_ TreeDetachHook = (*TransformNode)(nil)
)
