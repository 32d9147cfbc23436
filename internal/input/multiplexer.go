// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"bgce/internal/registry"
	"bgce/internal/wire"
	"bgce/internal/world"
)

// MinWindowSize is the minimum width/height a resize may clamp to
// (spec.md §4.6, boundary behavior 11 in §8).
const MinWindowSize = 10

// dragKind distinguishes the two drag gestures.
type dragKind int

const (
	dragNone dragKind = iota
	dragMove
	dragResize
)

// dragState is the singleton drag gesture tracker (spec.md §3).
type dragState struct {
	active bool
	kind   dragKind
	target registry.WindowID
	dx, dy int
}

// Dispatcher delivers server->client messages for the multiplexer. The
// session layer implements it so input stays decoupled from connection
// I/O (spec.md §5: "non-blocking writes with a bounded per-client outgoing
// queue").
type Dispatcher interface {
	SendInputEvent(conn registry.ConnID, ev wire.InputEvent)
	SendBufferChange(conn registry.ConnID, reply wire.BufferReply)
	// SendFocusChange notifies conn that its focus state changed
	// (spec.md §6 FocusChange).
	SendFocusChange(conn registry.ConnID, focused bool)
	Shutdown()
	// Screenshot mints its own timestamped path and invokes the
	// screenshot collaborator (spec.md §6); errors are logged and
	// non-fatal, per spec.md §7.
	Screenshot()
}

// Multiplexer owns the global key/button modifier bookkeeping, the
// absolute cursor position, and the drag state machine, and routes
// whatever neither consumes to the focused client.
type Multiplexer struct {
	world *world.World
	disp  Dispatcher

	screenW, screenH int

	ctrlDown bool
	altDown  bool
	mx, my   int

	drag dragState
}

// New constructs a Multiplexer over the given shared World and dispatcher.
func New(w *world.World, disp Dispatcher, screenW, screenH int) *Multiplexer {
	return &Multiplexer{world: w, disp: disp, screenW: screenW, screenH: screenH}
}

// HandleEvent processes one already-decoded input event (spec.md §4.6
// steps 1-5). It is the unit tested core: device enumeration and polling
// live in devices.go and are not exercised here.
func (m *Multiplexer) HandleEvent(ev RawEvent) {
	switch ev.Kind {
	case KeyPress, KeyRelease:
		m.handleKey(ev)
	case ButtonPress, ButtonRelease:
		m.handleButton(ev)
	case Motion:
		m.handleMotion(ev)
	}
}

func (m *Multiplexer) handleKey(ev RawEvent) {
	pressed := ev.Kind == KeyPress
	switch ev.Key {
	case KeyLeftCtrl, KeyRightCtrl:
		m.ctrlDown = pressed
		return
	case KeyLeftAlt, KeyRightAlt:
		m.altDown = pressed
		return
	}

	if pressed && m.ctrlDown && m.altDown && ev.Key == KeyQ {
		m.disp.Shutdown()
		return
	}
	if pressed && ev.Key == KeyPrintScreen {
		m.disp.Screenshot()
		return
	}

	m.routeToFocused(ev)
}

func (m *Multiplexer) handleButton(ev RawEvent) {
	if ev.Kind == ButtonPress {
		m.handleButtonPress(ev)
		return
	}
	m.handleButtonRelease(ev)
}

func (m *Multiplexer) handleButtonPress(ev RawEvent) {
	m.world.Lock()
	w, hit := m.world.Reg.HitTest(m.mx, m.my)
	m.world.Unlock()

	switch {
	case ev.Button == ButtonLeft && m.altDown:
		if hit {
			m.beginDrag(w, dragMove)
		}
		return
	case ev.Button == ButtonRight && m.altDown:
		if hit {
			m.beginDrag(w, dragResize)
		}
		return
	case ev.Button == ButtonLeft:
		if hit {
			m.raiseAndFocus(w)
		}
		return
	}

	m.routeToFocused(ev)
}

func (m *Multiplexer) beginDrag(w *registry.Window, kind dragKind) {
	m.raiseAndFocus(w)
	m.drag = dragState{active: true, kind: kind, target: w.ID}
}

func (m *Multiplexer) raiseAndFocus(w *registry.Window) {
	m.world.Lock()
	prev, hadPrev := m.world.Reg.Focused()
	m.world.Reg.Raise(w.ID)
	m.world.Reg.SetFocus(w.ID)
	m.world.Unlock()

	if hadPrev && prev.ID == w.ID {
		return
	}
	if hadPrev {
		m.disp.SendFocusChange(prev.Conn, false)
	}
	m.disp.SendFocusChange(w.Conn, true)
}

func (m *Multiplexer) handleButtonRelease(ev RawEvent) {
	if !m.drag.active {
		m.routeToFocused(ev)
		return
	}
	m.commitDrag()
}

// commitDrag applies the accumulated drag delta on release (spec.md §4.6
// step 3). Move has already been applied incrementally during motion;
// Resize is applied here, all at once.
func (m *Multiplexer) commitDrag() {
	defer func() { m.drag = dragState{} }()

	if m.drag.kind == dragMove {
		return
	}

	m.world.Lock()
	w, ok := m.world.Reg.ByID(m.drag.target)
	if !ok {
		m.world.Unlock()
		return
	}
	newW := clamp(w.Width+m.drag.dx, MinWindowSize, m.screenW)
	newH := clamp(w.Height+m.drag.dy, MinWindowSize, m.screenH)
	dx := newW - w.Width
	dy := newH - w.Height
	oldBounds := w.Bounds()

	old := m.world.Buffer(w.ID)
	mapping, err := m.world.Alloc.Replace(old, uint32(newW), uint32(newH))
	if err != nil {
		m.world.Unlock()
		return
	}
	m.world.SetBuffer(w.ID, mapping)
	w.Width, w.Height = newW, newH

	if dx < 0 || dy < 0 {
		m.world.Comp.RedrawFromResize(w, oldBounds, dx, dy)
	}
	m.world.Comp.Draw(w)
	conn := w.Conn
	m.world.Unlock()

	m.disp.SendBufferChange(conn, wire.BufferReply{
		Status: 0,
		Name:   mapping.Name,
		Width:  uint32(newW),
		Height: uint32(newH),
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (m *Multiplexer) handleMotion(ev RawEvent) {
	m.mx = clamp(m.mx+int(ev.DX), 0, m.screenW)
	m.my = clamp(m.my+int(ev.DY), 0, m.screenH)
	m.world.Backend.MoveCursor(m.mx, m.my)
	m.world.Comp.SetCursorPos(m.mx, m.my)

	if m.drag.active {
		m.updateDrag(ev)
		return
	}

	m.routeToFocused(ev)
}

func (m *Multiplexer) updateDrag(ev RawEvent) {
	m.world.Lock()
	defer m.world.Unlock()

	w, ok := m.world.Reg.ByID(m.drag.target)
	if !ok {
		// Target disappeared (client disconnected) mid-drag: clear
		// silently (spec.md §4.6 cancellation semantics, scenario E6).
		m.drag = dragState{}
		return
	}

	switch m.drag.kind {
	case dragMove:
		dx, dy := int(ev.DX), int(ev.DY)
		m.world.Comp.RedrawRegion(w, dx, dy)
		w.X += dx
		w.Y += dy
		m.world.Comp.Draw(w)
	case dragResize:
		m.drag.dx += int(ev.DX)
		m.drag.dy += int(ev.DY)
	}
}

// routeToFocused forwards ev to the focused client, converted to
// window-local coordinates, unless it was consumed by a shortcut or drag
// above (spec.md §4.6 step 5). Mouse motion routes only when the screen
// position lies inside the focused window; key events always route.
func (m *Multiplexer) routeToFocused(ev RawEvent) {
	m.world.Lock()
	w, ok := m.world.Reg.Focused()
	m.world.Unlock()
	if !ok {
		return
	}

	out := wire.InputEvent{Device: ev.Device, Code: ev.RawCode, Value: ev.Value}
	switch ev.Kind {
	case KeyPress, KeyRelease:
		out.X, out.Y = 0, 0
	case Motion:
		if !pointInBounds(m.mx, m.my, w) {
			return
		}
		out.X = int32(m.mx - w.X)
		out.Y = int32(m.my - w.Y)
	default:
		return
	}
	m.disp.SendInputEvent(w.Conn, out)
}

func pointInBounds(x, y int, w *registry.Window) bool {
	b := w.Bounds()
	return x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y
}

// DragActiveOn reports whether a drag gesture currently targets id, so
// the session layer can defer an advisory Move to an in-progress drag
// (spec.md §9 open-question resolution: Move is advisory).
func (m *Multiplexer) DragActiveOn(id registry.WindowID) bool {
	return m.drag.active && m.drag.target == id
}

// ClearDragIfTarget cancels an in-progress drag whose target matches id;
// called by the session layer on connection teardown so a destroyed
// window's drag never lingers (spec.md §4.6 cancellation, scenario E6).
func (m *Multiplexer) ClearDragIfTarget(id registry.WindowID) {
	if m.drag.active && m.drag.target == id {
		m.drag = dragState{}
	}
}

