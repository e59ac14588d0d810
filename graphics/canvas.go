package graphics

import (
	"image"

	"github.com/phanxgames/montage/media"
)

// Canvas is the draw surface a drawable tree renders into. Every Push
// method saves the current state and returns a PushedState whose Pop
// restores it, so a deferred Pop unwinds correctly even when drawing
// panics.
type Canvas interface {
	// Size is the pixel size of the target.
	Size() image.Point
	// Clear fills the target with c and resets all pushed state.
	Clear(c media.Color)
	// Transform is the current local-to-device matrix.
	Transform() media.Matrix

	// PushTransform prepends m to the current transform.
	PushTransform(m media.Matrix) PushedState
	// PushClip restricts drawing to r in local coordinates.
	PushClip(r media.Rect) PushedState
	PushBlendMode(b media.BlendMode) PushedState
	// PushOpacity multiplies all subsequent output by o.
	PushOpacity(o float64) PushedState
	// PushOpacityMask multiplies output by the alpha of mask painted over
	// bounds.
	PushOpacityMask(mask Brush, bounds media.Rect) PushedState
	// PushFilterEffect redirects drawing into a layer covering bounds;
	// Pop runs fe over the layer and composites it.
	PushFilterEffect(fe FilterEffect, bounds media.Rect) PushedState
	// PushForeground replaces the fill of subsequent shapes and text.
	PushForeground(b Brush) PushedState
	// PopTo restores the state saved at level.
	PopTo(level int)

	// DrawBitmap scales img into dst. The draw methods below take a nil
	// fill to mean the pushed foreground, or white when none is pushed.
	DrawBitmap(img image.Image, dst media.Rect)
	DrawRectangle(r media.Rect, fill Brush)
	DrawEllipse(r media.Rect, fill Brush)
	DrawText(text string, fontSize float64, origin media.Point, fill Brush)
	// DrawDrawable renders d with the current state.
	DrawDrawable(d Drawable)
}

// PushedState is returned by the Canvas Push methods.
type PushedState struct {
	canvas Canvas
	level  int
}

// NewPushedState is used by Canvas implementations: level is the depth of
// the state stack before the push.
func NewPushedState(c Canvas, level int) PushedState {
	return PushedState{canvas: c, level: level}
}

// Pop restores the canvas state to what it was before the push. The zero
// PushedState pops nothing.
func (s PushedState) Pop() {
	if s.canvas != nil {
		s.canvas.PopTo(s.level)
	}
}

// Level is the stack depth the state restores to.
func (s PushedState) Level() int { return s.level }
