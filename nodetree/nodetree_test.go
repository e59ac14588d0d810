package nodetree

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/montage/animation"
	"github.com/phanxgames/montage/core"
	"github.com/phanxgames/montage/graphics"
	"github.com/phanxgames/montage/media"
)

func evaluate(s *Space, t time.Duration) *EvaluationContext {
	ctx := NewEvaluationContext(animation.At(t))
	s.Evaluate(ctx)
	return ctx
}

func connect(t *testing.T, s *Space, out OutputPort, in InputPort) *Connection {
	t.Helper()
	c, err := s.Connect(out, in)
	require.NoError(t, err)
	return c
}

func TestLocalIDsAssignedInOrder(t *testing.T) {
	n := NewScaleNode()
	assert.Equal(t, 0, n.Scale.LocalID())
	assert.Equal(t, 1, n.ScaleX.LocalID())
	assert.Equal(t, 2, n.ScaleY.LocalID())
	assert.Equal(t, 3, n.Matrix.LocalID())

	it, ok := n.Item(3)
	require.True(t, ok)
	assert.Same(t, n.Matrix, it)
	_, ok = n.ItemByName("ScaleX")
	assert.True(t, ok)
}

func TestOrderFollowsConnections(t *testing.T) {
	s := NewSpace()
	mul := NewMatrixMultiplyNode()
	rot := NewRotationNode()
	tr := NewTranslateNode()
	s.Nodes().Add(mul, rot, tr)

	connect(t, s, tr.Matrix, mul.A)
	connect(t, s, rot.Matrix, mul.B)

	order := s.Order()
	require.Len(t, order, 3)
	assert.Same(t, rot, order[0])
	assert.Same(t, tr, order[1])
	assert.Same(t, mul, order[2])
}

func TestOrderDeclaredWhenIndependent(t *testing.T) {
	s := NewSpace()
	a, b, c := NewTranslateNode(), NewScaleNode(), NewRotationNode()
	s.Nodes().Add(a, b, c)

	order := s.Order()
	assert.Equal(t, []Node{a, b, c}, order)

	s.Nodes().Move(2, 0)
	assert.Equal(t, []Node{c, a, b}, s.Order())
}

func TestOrderCycleFallsBackToDeclared(t *testing.T) {
	s := NewSpace()
	a, b := NewMatrixMultiplyNode(), NewMatrixMultiplyNode()
	free := NewTranslateNode()
	s.Nodes().Add(a, b, free)
	connect(t, s, a.Matrix, b.A)
	connect(t, s, b.Matrix, a.A)

	order := s.Order()
	assert.Equal(t, []Node{free, a, b}, order)

	require.NotPanics(t, func() { evaluate(s, 0) })
}

func TestEvaluatePropagatesValues(t *testing.T) {
	s := NewSpace()
	tr := NewTranslateNode()
	sc := NewScaleNode()
	mul := NewMatrixMultiplyNode()
	s.Nodes().Add(mul, sc, tr)
	tr.SetX(10)
	tr.SetY(20)
	sc.SetScale(2)
	connect(t, s, sc.Matrix, mul.A)
	connect(t, s, tr.Matrix, mul.B)

	evaluate(s, 0)

	want := media.Scale(2, 2).Then(media.Translation(10, 20))
	assert.Equal(t, want, mul.Matrix.Value())
	assert.True(t, mul.Matrix.IsValid())
	assert.True(t, mul.A.IsConnected())
}

func TestUnconnectedInputUsesAnimatedProperty(t *testing.T) {
	s := NewSpace()
	rot := NewRotationNode()
	s.Nodes().Add(rot)
	require.NoError(t, rot.Animations().Add(animation.NewKeyFrameAnimation(RotationNodeDegreesProperty,
		animation.KeyFrame[float64]{KeyTime: 0, Value: 0},
		animation.KeyFrame[float64]{KeyTime: time.Second, Value: 90},
	)))

	evaluate(s, 500*time.Millisecond)
	assert.InDelta(t, 45, rot.Degrees.Value(), 1e-9)

	evaluate(s, 2*time.Second)
	assert.InDelta(t, 90, rot.Degrees.Value(), 1e-9)
	x, y := rot.Matrix.Value().TransformPoint(1, 0)
	assert.InDelta(t, 0, x, 1e-9)
	assert.InDelta(t, 1, y, 1e-9)
}

func TestConnectTypeMismatch(t *testing.T) {
	s := NewSpace()
	tr := NewTranslateNode()
	rect := NewRectNode()
	s.Nodes().Add(tr, rect)

	_, err := s.Connect(tr.Matrix, rect.Width)
	require.Error(t, err)
	assert.Equal(t, core.KindTypeMismatch, core.KindOf(err))
	assert.Empty(t, s.Connections())
}

func TestConnectOutsideSpace(t *testing.T) {
	s := NewSpace()
	tr := NewTranslateNode()
	mul := NewMatrixMultiplyNode()
	s.Nodes().Add(mul)

	_, err := s.Connect(tr.Matrix, mul.A)
	assert.Equal(t, core.KindNotAttached, core.KindOf(err))
}

func TestConnectReplacesInputConnection(t *testing.T) {
	s := NewSpace()
	a, b := NewTranslateNode(), NewRotationNode()
	mul := NewMatrixMultiplyNode()
	s.Nodes().Add(a, b, mul)

	first := connect(t, s, a.Matrix, mul.A)
	second := connect(t, s, b.Matrix, mul.A)

	assert.Same(t, second, mul.A.Connection())
	assert.Empty(t, a.Matrix.Connections())
	assert.Equal(t, []*Connection{second}, s.Connections())
	assert.False(t, s.Disconnect(first))
	assert.True(t, s.Disconnect(second))
	assert.False(t, mul.A.IsConnected())
}

func TestRemovingNodeDropsConnections(t *testing.T) {
	s := NewSpace()
	tr := NewTranslateNode()
	mul := NewMatrixMultiplyNode()
	s.Nodes().Add(tr, mul)
	connect(t, s, tr.Matrix, mul.A)

	s.Nodes().Remove(tr)

	assert.Empty(t, s.Connections())
	assert.False(t, mul.A.IsConnected())
	assert.Nil(t, tr.Matrix.Tree())
	assert.Nil(t, tr.Space())
}

func TestItemAttachTwicePanics(t *testing.T) {
	s := NewSpace()
	sock := NewOutputSocket[float64]("out")
	sock.AttachTree(s)
	assert.Same(t, s, sock.Tree())

	defer func() {
		err, ok := recover().(*core.Error)
		require.True(t, ok)
		assert.Equal(t, core.KindAlreadyAttached, err.Kind)
	}()
	sock.AttachTree(s)
}

func TestItemDetachUnattachedPanics(t *testing.T) {
	sock := NewInputSocket("in", 1.0)
	defer func() {
		err, ok := recover().(*core.Error)
		require.True(t, ok)
		assert.Equal(t, core.KindNotAttached, err.Kind)
	}()
	sock.DetachTree(NewSpace())
}

func TestNodeInTwoSpacesPanics(t *testing.T) {
	n := NewTranslateNode()
	NewSpace().Nodes().Add(n)
	assert.Panics(t, func() { NewSpace().Nodes().Add(n) })
}

func TestItemsAddedLaterJoinTree(t *testing.T) {
	s := NewSpace()
	n := NewTranslateNode()
	s.Nodes().Add(n)

	extra := AddOutput[float64](n, "Extra")
	assert.Same(t, s, extra.Tree())
	assert.Equal(t, 3, extra.LocalID())

	n.Items().Remove(extra)
	assert.Nil(t, extra.Tree())
}

func TestTransformNodeDrivesTransformGroup(t *testing.T) {
	s := NewSpace()
	rect := NewRectNode()
	tr := NewTranslateNode()
	xf := NewTransformNode()
	out := NewLayerOutputNode()
	s.Nodes().Add(out, xf, tr, rect)
	rect.SetWidth(10)
	rect.SetHeight(5)
	tr.SetX(7)
	connect(t, s, rect.Output, xf.Drawable)
	connect(t, s, tr.Matrix, xf.Matrix)
	connect(t, s, xf.Output, out.Drawable)

	ctx := evaluate(s, 0)

	require.Len(t, ctx.Drawables(), 1)
	d := ctx.Drawables()[0]
	assert.Same(t, rect.Rectangle(), d)
	g, ok := rect.Rectangle().Transform().(*graphics.TransformGroup)
	require.True(t, ok)
	require.Equal(t, 1, g.Children().Len())
	assert.Equal(t, media.Translation(7, 0), g.Value())

	tr.SetX(3)
	evaluate(s, 0)
	assert.Equal(t, media.Translation(3, 0), g.Value())

	s.Nodes().Remove(xf)
	assert.Equal(t, 0, g.Children().Len())
}

func TestTransformNodeWrapsExistingTransform(t *testing.T) {
	s := NewSpace()
	xf := NewTransformNode()
	s.Nodes().Add(xf)
	target := graphics.NewRectangle(1, 1)
	own := graphics.NewScaleTransform(2, 1, 1)
	target.SetTransform(own)
	xf.SetTarget(target)
	core.Set(xf, TransformNodeMatrixProperty, media.Translation(1, 0))

	evaluate(s, 0)

	g, ok := target.Transform().(*graphics.TransformGroup)
	require.True(t, ok)
	require.Equal(t, 2, g.Children().Len())
	assert.Same(t, own, g.Children().At(0))
	assert.Equal(t, media.Scale(2, 2).Then(media.Translation(1, 0)), g.Value())
	assert.Same(t, target, xf.Output.Value())
}

func TestTransformNodeUnconnectedIsIdentity(t *testing.T) {
	s := NewSpace()
	xf := NewTransformNode()
	s.Nodes().Add(xf)
	target := graphics.NewRectangle(1, 1)
	xf.SetTarget(target)

	evaluate(s, 0)
	assert.Equal(t, media.Identity, graphics.EffectiveMatrix(target.Transform()))
}

func TestTransformNodeWithoutDrawableIsInvalid(t *testing.T) {
	s := NewSpace()
	xf := NewTransformNode()
	out := NewLayerOutputNode()
	s.Nodes().Add(xf, out)
	connect(t, s, xf.Output, out.Drawable)

	ctx := evaluate(s, 0)
	assert.False(t, xf.Output.IsValid())
	assert.False(t, out.Drawable.IsValid())
	assert.Empty(t, ctx.Drawables())
}

func TestRectNodeAppliesFill(t *testing.T) {
	s := NewSpace()
	n := NewRectNode()
	s.Nodes().Add(n)
	n.SetFill(media.Color{R: 1, A: 1})
	n.SetWidth(-5)

	evaluate(s, 0)

	r := n.Rectangle()
	assert.Equal(t, 0.0, r.Width())
	assert.Equal(t, 100.0, r.Height())
	c, ok := r.Foreground().Solid()
	require.True(t, ok)
	assert.Equal(t, media.Color{R: 1, A: 1}, c)
}

func TestSpaceInvalidatedOnChange(t *testing.T) {
	s := NewSpace()
	tr := NewTranslateNode()
	s.Nodes().Add(tr)
	var hits int
	s.Invalidated().Subscribe(func(*media.InvalidatedEvent) { hits++ })

	tr.SetX(4)
	assert.Equal(t, 1, hits)

	s.Nodes().Remove(tr)
	hits = 0
	tr.SetX(5)
	assert.Zero(t, hits)
}

func TestSpaceJSONRoundTrip(t *testing.T) {
	s := NewSpace()
	tr := NewTranslateNode()
	rect := NewRectNode()
	xf := NewTransformNode()
	out := NewLayerOutputNode()
	s.Nodes().Add(tr, rect, xf, out)
	tr.SetX(12)
	tr.SetPosition(media.Point{X: 40, Y: 8})
	rect.SetWidth(30)
	connect(t, s, rect.Output, xf.Drawable)
	connect(t, s, tr.Matrix, xf.Matrix)
	connect(t, s, xf.Output, out.Drawable)

	raw, err := json.Marshal(core.MarshalObject(s))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))

	back, err := core.UnmarshalAs[*Space](doc)
	require.NoError(t, err)
	require.Equal(t, 4, back.Nodes().Len())
	require.Len(t, back.Connections(), 3)

	tr2, ok := back.Nodes().At(0).(*TranslateNode)
	require.True(t, ok)
	assert.Equal(t, tr.ID(), tr2.ID())
	assert.Equal(t, media.Point{X: 40, Y: 8}, tr2.Position())
	assert.Equal(t, 12.0, core.GetValue(tr2, TranslateNodeXProperty))

	ctx := evaluate(back, 0)
	require.Len(t, ctx.Drawables(), 1)
	r, ok := ctx.Drawables()[0].(*graphics.Rectangle)
	require.True(t, ok)
	assert.Equal(t, 30.0, r.Width())
	assert.Equal(t, media.Translation(12, 0), graphics.EffectiveMatrix(r.Transform()))
}

func TestReadJSONSkipsBadConnections(t *testing.T) {
	s := NewSpace()
	tr := NewTranslateNode()
	s.Nodes().Add(tr)
	doc := core.MarshalObject(s)
	doc["connections"] = []any{
		"bogus",
		map[string]any{"outputNode": tr.ID().String(), "output": 2.0, "inputNode": "nope", "input": 0.0},
		map[string]any{"outputNode": tr.ID().String(), "output": 0.0, "inputNode": tr.ID().String(), "input": 1.0},
	}

	back, err := core.UnmarshalAs[*Space](doc)
	require.NoError(t, err)
	assert.Equal(t, 1, back.Nodes().Len())
	assert.Empty(t, back.Connections())
}
