package effects

import (
	"math"
	"time"

	"github.com/tanema/gween/ease"
	"github.com/yohamta/donburi"
)

// Tween names used by the camera and overlay.
const (
	CameraScroll = "camera.scroll"
	CameraZoom   = "camera.zoom"
	OverlayFade  = "overlay.fade"
)

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

// Camera controls the view into the scene: position, zoom and viewport.
type Camera struct {
	// X and Y are the world-space position the camera centers on.
	X, Y float64
	// Zoom is the scale factor (1.0 = no zoom, >1 = zoom in, <1 = zoom out).
	Zoom float64
	// Viewport is the screen-space rectangle this camera renders into.
	Viewport Rect

	// BoundsEnabled clamps the camera position so the visible area stays
	// within Bounds.
	BoundsEnabled bool
	Bounds        Rect
}

// NewCamera creates a Camera with the given viewport, centered on it.
func NewCamera(viewport Rect) *Camera {
	return &Camera{
		X:        viewport.X + viewport.Width/2,
		Y:        viewport.Y + viewport.Height/2,
		Zoom:     1.0,
		Viewport: viewport,
	}
}

// ScrollTo animates the camera to the given world position.
func (c *Camera) ScrollTo(w donburi.World, x, y float64, d time.Duration, fn ease.TweenFunc) TweenID {
	Finish(w, CameraScroll)
	return Start(w, CameraScroll, NewTweenGroup([]*float64{&c.X, &c.Y}, []float64{x, y}, d, fn))
}

// ZoomTo animates the zoom factor.
func (c *Camera) ZoomTo(w donburi.World, zoom float64, d time.Duration, fn ease.TweenFunc) TweenID {
	Finish(w, CameraZoom)
	return Start(w, CameraZoom, NewTweenGroup([]*float64{&c.Zoom}, []float64{zoom}, d, fn))
}

// SetBounds enables camera bounds clamping.
func (c *Camera) SetBounds(bounds Rect) {
	c.BoundsEnabled = true
	c.Bounds = bounds
}

// ClearBounds disables camera bounds clamping.
func (c *Camera) ClearBounds() {
	c.BoundsEnabled = false
}

// Update applies bounds clamping after tweens moved the camera.
func (c *Camera) Update() {
	if c.BoundsEnabled {
		c.clampToBounds()
	}
}

// clampToBounds restricts camera position so the visible area stays within Bounds.
func (c *Camera) clampToBounds() {
	halfW := c.Viewport.Width / (2 * c.Zoom)
	halfH := c.Viewport.Height / (2 * c.Zoom)

	minX := c.Bounds.X + halfW
	maxX := c.Bounds.X + c.Bounds.Width - halfW
	minY := c.Bounds.Y + halfH
	maxY := c.Bounds.Y + c.Bounds.Height - halfH

	// If bounds are smaller than visible area, center the camera.
	if minX > maxX {
		c.X = c.Bounds.X + c.Bounds.Width/2
	} else {
		c.X = math.Max(minX, math.Min(c.X, maxX))
	}
	if minY > maxY {
		c.Y = c.Bounds.Y + c.Bounds.Height/2
	} else {
		c.Y = math.Max(minY, math.Min(c.Y, maxY))
	}
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float64) (sx, sy float64) {
	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	return cx + c.Zoom*(wx-c.X), cy + c.Zoom*(wy-c.Y)
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float64) (wx, wy float64) {
	cx := c.Viewport.X + c.Viewport.Width/2
	cy := c.Viewport.Y + c.Viewport.Height/2
	return c.X + (sx-cx)/c.Zoom, c.Y + (sy-cy)/c.Zoom
}

// VisibleBounds returns the world-space rectangle the camera sees.
func (c *Camera) VisibleBounds() Rect {
	w := c.Viewport.Width / c.Zoom
	h := c.Viewport.Height / c.Zoom
	return Rect{X: c.X - w/2, Y: c.Y - h/2, Width: w, Height: h}
}

// Overlay is a full-screen tint drawn above the scene. Alpha 1 is black.
type Overlay struct {
	Alpha float64
}

// FadeTo animates the overlay alpha.
func (o *Overlay) FadeTo(w donburi.World, alpha float64, d time.Duration, fn ease.TweenFunc) TweenID {
	Finish(w, OverlayFade)
	return Start(w, OverlayFade, NewTweenGroup([]*float64{&o.Alpha}, []float64{alpha}, d, fn))
}
