// SPDX-License-Identifier: Unlicense OR MIT

// Package registry implements the window registry (spec.md §4.4): a
// doubly-indexed structure holding the Z-ordered window stack plus a
// connection-to-window map, with stable WindowID keys so the focused
// window is never a raw pointer that can dangle.
package registry

import "image"

// WindowID stably identifies a window for the lifetime of its connection.
type WindowID uint64

// ConnID identifies the connection that owns a window.
type ConnID uint64

// BackgroundID is the reserved WindowID of the always-present background
// pseudo-window (z=0), never focused, never hit-tested (spec.md §3).
const BackgroundID WindowID = 0

// Window is the per-client surface tracked by the registry. The shared
// pixel buffer itself lives in shmbuf.Mapping; the registry only tracks
// placement, identity and subscriptions.
type Window struct {
	ID     WindowID
	Conn   ConnID
	X, Y   int
	Width  int
	Height int
	Z      int

	// InputSubscriptions is the set of device ids this window listens to;
	// empty means listen to all devices while focused (spec.md §3).
	InputSubscriptions map[uint32]bool
}

// Bounds returns the window's screen-space rectangle.
func (w *Window) Bounds() image.Rectangle {
	return image.Rect(w.X, w.Y, w.X+w.Width, w.Y+w.Height)
}

// Registry holds the Z-ordered window stack. Callers are responsible for
// external synchronization (spec.md §5: the server guards this with the
// same mutex that protects the scanout).
type Registry struct {
	// windows is ordered top-first: index 0 is the highest Z.
	windows []*Window
	byConn  map[ConnID]*Window
	byID    map[WindowID]*Window
	focused WindowID
	hasFocus bool
	nextID  WindowID
	maxZ    int

	background *Window
}

// New constructs an empty registry and installs the background
// pseudo-window covering w x h at z=0.
func New(width, height int) *Registry {
	bg := &Window{
		ID:     BackgroundID,
		Width:  width,
		Height: height,
		Z:      0,
	}
	r := &Registry{
		byConn:     make(map[ConnID]*Window),
		byID:       make(map[WindowID]*Window),
		background: bg,
		nextID:     1,
	}
	r.byID[bg.ID] = bg
	return r
}

// Background returns the background pseudo-window.
func (r *Registry) Background() *Window { return r.background }

// Insert appends a freshly created window at the top of the stack
// (z = max_z + 1), assigns it a fresh WindowID, and sets it focused.
func (r *Registry) Insert(conn ConnID, x, y, width, height int) *Window {
	r.maxZ++
	w := &Window{
		ID:                 r.nextID,
		Conn:               conn,
		X:                  x,
		Y:                  y,
		Width:              width,
		Height:             height,
		Z:                  r.maxZ,
		InputSubscriptions: make(map[uint32]bool),
	}
	r.nextID++

	r.windows = append([]*Window{w}, r.windows...)
	r.byConn[conn] = w
	r.byID[w.ID] = w
	r.focused = w.ID
	r.hasFocus = true
	return w
}

// Remove unlinks the window with the given id. If it was focused, focus
// moves to the new top window, or to no window if only the background
// remains.
func (r *Registry) Remove(id WindowID) {
	idx := r.indexOf(id)
	if idx < 0 {
		return
	}
	w := r.windows[idx]
	r.windows = append(r.windows[:idx], r.windows[idx+1:]...)
	delete(r.byID, id)
	delete(r.byConn, w.Conn)

	if r.hasFocus && r.focused == id {
		if len(r.windows) > 0 {
			r.focused = r.windows[0].ID
			r.hasFocus = true
		} else {
			r.hasFocus = false
		}
	}
}

// Raise removes and re-inserts the window at the top (z = max_z + 1). It
// does not change focus by itself.
func (r *Registry) Raise(id WindowID) {
	idx := r.indexOf(id)
	if idx < 0 {
		return
	}
	w := r.windows[idx]
	r.windows = append(r.windows[:idx], r.windows[idx+1:]...)
	r.maxZ++
	w.Z = r.maxZ
	r.windows = append([]*Window{w}, r.windows...)
}

// SetFocus marks id as the focused window. id must already be in the
// registry (the background is a valid argument but is never in practice
// hit-tested into focus).
func (r *Registry) SetFocus(id WindowID) {
	if _, ok := r.byID[id]; !ok {
		return
	}
	r.focused = id
	r.hasFocus = true
}

// Focused returns the currently focused window and true, or (nil, false)
// if no window is focused.
func (r *Registry) Focused() (*Window, bool) {
	if !r.hasFocus {
		return nil, false
	}
	w, ok := r.byID[r.focused]
	return w, ok
}

// ByID looks up a window by id, excluding the background unless asked for
// explicitly via BackgroundID.
func (r *Registry) ByID(id WindowID) (*Window, bool) {
	w, ok := r.byID[id]
	return w, ok
}

// ByConn looks up the single window owned by a connection.
func (r *Registry) ByConn(conn ConnID) (*Window, bool) {
	w, ok := r.byConn[conn]
	return w, ok
}

// HitTest returns the top-most window whose rectangle contains (x,y),
// excluding the background (spec.md §4.4).
func (r *Registry) HitTest(x, y int) (*Window, bool) {
	pt := image.Pt(x, y)
	for _, w := range r.windows {
		if pt.In(w.Bounds()) {
			return w, true
		}
	}
	return nil, false
}

// Windows returns the Z-ordered window stack, top-first, excluding the
// background. Callers must not mutate the returned slice.
func (r *Registry) Windows() []*Window {
	return r.windows
}

// WindowsBelow returns, in top-first order, every window strictly behind
// the given window in Z order (i.e. appearing after it in the top-first
// list), used by the compositor's exposure redraw walk. The background is
// never included; callers that want the background backstop must
// consult Background() directly.
func (r *Registry) WindowsBelow(id WindowID) []*Window {
	idx := r.indexOf(id)
	if idx < 0 || idx+1 >= len(r.windows) {
		return nil
	}
	return r.windows[idx+1:]
}

func (r *Registry) indexOf(id WindowID) int {
	for i, w := range r.windows {
		if w.ID == id {
			return i
		}
	}
	return -1
}
