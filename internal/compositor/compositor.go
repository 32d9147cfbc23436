// SPDX-License-Identifier: Unlicense OR MIT

// Package compositor implements the clipped blit and damage/exposure
// redraw operations of spec.md §4.5. Both operations clip to the screen
// rectangle; alpha is ignored (opaque blit), premultiplied compositing is
// a non-goal.
package compositor

import (
	"image"

	"bgce/internal/displaybackend"
	"bgce/internal/registry"
	"bgce/internal/shmbuf"
)

// BytesPerPixel is the fixed ARGB8888 pixel size.
const BytesPerPixel = 4

// cursorCrosshairHalf is the half-length, in pixels, of each arm of the
// software cursor overlay (spec.md §9: software fallback for backends
// that report HasHardwareCursor() == false).
const cursorCrosshairHalf = 4

// cursorCrosshairColor is opaque white, stored A,R,G,B to match the rest
// of the compositor's pixel layout.
var cursorCrosshairColor = [4]byte{0xFF, 0xFF, 0xFF, 0xFF}

// Compositor draws window buffers into a backend's scanout surface.
type Compositor struct {
	backend displaybackend.Backend
	reg     *registry.Registry
	bufOf   func(registry.WindowID) *shmbuf.Mapping

	cursorX, cursorY int
	cursorSet        bool
}

// New constructs a Compositor. bufOf resolves a window id to its current
// shared pixel buffer (nil if none, e.g. the background's server-owned
// buffer uses the same accessor).
func New(backend displaybackend.Backend, reg *registry.Registry, bufOf func(registry.WindowID) *shmbuf.Mapping) *Compositor {
	return &Compositor{backend: backend, reg: reg, bufOf: bufOf}
}

func (c *Compositor) screenRect() image.Rectangle {
	info := c.currentScreenInfo()
	return image.Rect(0, 0, info.Width, info.Height)
}

// SetCursorPos records the pointer's current screen position for the
// software cursor overlay. A no-op until the first call: tests and
// recomposites that never move the pointer see no overlay at all.
func (c *Compositor) SetCursorPos(x, y int) {
	c.cursorX, c.cursorY = x, y
	c.cursorSet = true
}

// overlayCursor stamps a small crosshair sprite at the last-known pointer
// position directly into the scanout. Called right before every Present
// so the cursor is always the topmost thing on screen, matching spec.md
// §9's software-fallback resolution for backends without a hardware
// cursor.
func (c *Compositor) overlayCursor() {
	if !c.cursorSet || c.backend.HasHardwareCursor() {
		return
	}
	scanout := c.backend.Scanout()
	info := c.currentScreenInfo()
	pitch := info.Width * BytesPerPixel
	screen := c.screenRect()

	for dy := -cursorCrosshairHalf; dy <= cursorCrosshairHalf; dy++ {
		c.setPixel(scanout, pitch, screen, c.cursorX, c.cursorY+dy)
	}
	for dx := -cursorCrosshairHalf; dx <= cursorCrosshairHalf; dx++ {
		c.setPixel(scanout, pitch, screen, c.cursorX+dx, c.cursorY)
	}
}

func (c *Compositor) setPixel(scanout []byte, pitch int, screen image.Rectangle, x, y int) {
	if !(image.Pt(x, y).In(screen)) {
		return
	}
	off := y*pitch + x*BytesPerPixel
	if off < 0 || off+BytesPerPixel > len(scanout) {
		return
	}
	copy(scanout[off:off+BytesPerPixel], cursorCrosshairColor[:])
}

func (c *Compositor) currentScreenInfo() displaybackend.ScreenInfo {
	// The backend is already initialized by the time the compositor runs;
	// the background window always covers the whole screen, so its size
	// gives us the screen rectangle without needing a second accessor.
	bg := c.reg.Background()
	return displaybackend.ScreenInfo{Width: bg.Width, Height: bg.Height, BytesPerPixel: 4}
}

// Draw copies window w's buffer into the scanout at (w.X, w.Y), clipped to
// the screen. A window entirely off-screen is a no-op, never an error.
func (c *Compositor) Draw(w *registry.Window) {
	buf := c.bufOf(w.ID)
	if buf == nil {
		return
	}
	c.blit(w.Bounds(), buf.Data, w.Width)
	c.overlayCursor()
	c.backend.Present(w.Bounds().Intersect(c.screenRect()))
}

// blit copies src (a width*height*4 dense buffer covering dstRect before
// clipping) into the scanout, row by row, restricted to the intersection
// of dstRect with the screen rectangle. Both source and destination
// offsets are recomputed for windows with negative coordinates.
func (c *Compositor) blit(dstRect image.Rectangle, src []byte, srcWidth int) {
	c.blitRegion(dstRect, src, srcWidth, dstRect)
}

// redrawExposed repaints rect from every window strictly behind actor, in
// top-first order (nearer windows paint over farther ones), falling back
// to the background as the ultimate opaque backstop.
func (c *Compositor) redrawExposed(actor registry.WindowID, rect image.Rectangle) {
	rect = rect.Intersect(c.screenRect())
	if rect.Empty() {
		return
	}
	c.paintClippedRegion(c.reg.Background(), rect)
	below := c.reg.WindowsBelow(actor)
	// below is top-first (nearest to actor comes first); paint
	// back-to-front so nearer windows end up on top.
	for i := len(below) - 1; i >= 0; i-- {
		c.paintClippedRegion(below[i], rect)
	}
}

func (c *Compositor) paintClippedRegion(w *registry.Window, rect image.Rectangle) {
	buf := c.bufOf(w.ID)
	if buf == nil {
		return
	}
	clip := rect.Intersect(w.Bounds())
	if clip.Empty() {
		return
	}
	c.blitRegion(w.Bounds(), buf.Data, w.Width, clip)
}

// blitRegion is like blit but restricted to an explicit sub-rectangle of
// the (already clipped-to-screen) destination, used for exposure redraws
// so windows in front of the exposed strip are never touched.
func (c *Compositor) blitRegion(dstRect image.Rectangle, src []byte, srcWidth int, region image.Rectangle) {
	clip := dstRect.Intersect(region).Intersect(c.screenRect())
	if clip.Empty() {
		return
	}
	scanout := c.backend.Scanout()
	info := c.currentScreenInfo()
	scanoutPitch := info.Width * BytesPerPixel
	srcPitch := srcWidth * BytesPerPixel

	rowBytes := clip.Dx() * BytesPerPixel
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		srcY := y - dstRect.Min.Y
		srcX := clip.Min.X - dstRect.Min.X
		srcOff := srcY*srcPitch + srcX*BytesPerPixel
		dstOff := y*scanoutPitch + clip.Min.X*BytesPerPixel
		if srcOff < 0 || srcOff+rowBytes > len(src) {
			continue
		}
		if dstOff < 0 || dstOff+rowBytes > len(scanout) {
			continue
		}
		copy(scanout[dstOff:dstOff+rowBytes], src[srcOff:srcOff+rowBytes])
	}
}

// RedrawRegion exposes the area a moving window is about to vacate. Called
// just before (dx,dy) is applied to w's position: it exposes up to two
// rectangles — a horizontal strip of height |dy| on the dy-facing edge and
// a vertical strip of width |dx| on the dx-facing edge — and redraws each
// from every window strictly below w, with the background as backstop.
func (c *Compositor) RedrawRegion(w *registry.Window, dx, dy int) {
	old := w.Bounds()

	if dy != 0 {
		var strip image.Rectangle
		if dy > 0 {
			// moving down: expose the top edge.
			strip = image.Rect(old.Min.X, old.Min.Y, old.Max.X, old.Min.Y+dy)
		} else {
			// moving up: expose the bottom edge.
			strip = image.Rect(old.Min.X, old.Max.Y+dy, old.Max.X, old.Max.Y)
		}
		c.redrawExposed(w.ID, strip)
	}
	if dx != 0 {
		var strip image.Rectangle
		if dx > 0 {
			strip = image.Rect(old.Min.X, old.Min.Y, old.Min.X+dx, old.Max.Y)
		} else {
			strip = image.Rect(old.Max.X+dx, old.Min.Y, old.Max.X, old.Max.Y)
		}
		c.redrawExposed(w.ID, strip)
	}

	if dx != 0 || dy != 0 {
		c.overlayCursor()
		c.backend.Present(old.Intersect(c.screenRect()))
	}
}

// RedrawFromResize is called when a resize shrinks w (dx<0 or dy<0,
// measured against the window's prior width/height). The exposed
// rectangles are the strips on the far (right/bottom) edges of the old
// window rectangle oldRect; they are redrawn by the same per-window scan
// used by RedrawRegion.
func (c *Compositor) RedrawFromResize(w *registry.Window, oldRect image.Rectangle, dx, dy int) {
	if dy < 0 {
		strip := image.Rect(oldRect.Min.X, oldRect.Max.Y+dy, oldRect.Max.X, oldRect.Max.Y)
		c.redrawExposed(w.ID, strip)
	}
	if dx < 0 {
		strip := image.Rect(oldRect.Max.X+dx, oldRect.Min.Y, oldRect.Max.X, oldRect.Max.Y)
		c.redrawExposed(w.ID, strip)
	}
	if dx < 0 || dy < 0 {
		c.overlayCursor()
		c.backend.Present(oldRect.Intersect(c.screenRect()))
	}
}

// Recomposite redraws every window in Z order back-to-front, restricted to
// rect. Used by tests to check property 4 from spec.md §8 (scanout after
// RedrawRegion+move+Draw equals a full recomposite over the affected
// bounding box).
func (c *Compositor) Recomposite(rect image.Rectangle) {
	rect = rect.Intersect(c.screenRect())
	if rect.Empty() {
		return
	}
	c.paintClippedRegion(c.reg.Background(), rect)
	ws := c.reg.Windows()
	for i := len(ws) - 1; i >= 0; i-- {
		c.paintClippedRegion(ws[i], rect)
	}
}
