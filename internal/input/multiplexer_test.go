// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"testing"

	"bgce/internal/displaybackend"
	"bgce/internal/registry"
	"bgce/internal/shmbuf"
	"bgce/internal/wire"
	"bgce/internal/world"
)

type focusNotice struct {
	conn    registry.ConnID
	focused bool
}

type fakeDispatcher struct {
	inputEvents   []wire.InputEvent
	bufferChanges []wire.BufferReply
	focusChanges  []focusNotice
	shutdowns     int
	screenshots   int
}

func (f *fakeDispatcher) SendInputEvent(conn registry.ConnID, ev wire.InputEvent) {
	f.inputEvents = append(f.inputEvents, ev)
}
func (f *fakeDispatcher) SendBufferChange(conn registry.ConnID, reply wire.BufferReply) {
	f.bufferChanges = append(f.bufferChanges, reply)
}
func (f *fakeDispatcher) SendFocusChange(conn registry.ConnID, focused bool) {
	f.focusChanges = append(f.focusChanges, focusNotice{conn, focused})
}
func (f *fakeDispatcher) Shutdown()   { f.shutdowns++ }
func (f *fakeDispatcher) Screenshot() { f.screenshots++ }

func newTestMux(t *testing.T, w, h int) (*Multiplexer, *world.World, *fakeDispatcher) {
	t.Helper()
	backend := displaybackend.NewOffscreen()
	info, err := backend.Init(w, h)
	if err != nil {
		t.Fatalf("init backend: %v", err)
	}
	wd := world.New(backend, info, shmbuf.NewAllocator(1))
	disp := &fakeDispatcher{}
	mux := New(wd, disp, w, h)
	return mux, wd, disp
}

func TestCtrlAltQShutsDown(t *testing.T) {
	mux, _, disp := newTestMux(t, 800, 600)
	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyLeftCtrl})
	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyLeftAlt})
	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyQ})
	if disp.shutdowns != 1 {
		t.Fatalf("shutdowns = %d, want 1", disp.shutdowns)
	}
}

func TestPrintScreenTakesScreenshot(t *testing.T) {
	mux, _, disp := newTestMux(t, 800, 600)
	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyPrintScreen})
	if disp.screenshots != 1 {
		t.Fatalf("screenshots = %d, want 1", disp.screenshots)
	}
}

func TestLeftClickRaisesAndFocuses(t *testing.T) {
	mux, wd, disp := newTestMux(t, 800, 600)
	w1 := wd.Reg.Insert(1, 0, 0, 100, 100)
	w2 := wd.Reg.Insert(2, 200, 200, 100, 100)
	wd.Reg.SetFocus(w1.ID) // focus w1 explicitly

	mux.handleMotion(RawEvent{Kind: Motion, DX: 250, DY: 250}) // cursor into w2
	mux.HandleEvent(RawEvent{Kind: ButtonPress, Button: ButtonLeft})

	f, ok := wd.Reg.Focused()
	if !ok || f.ID != w2.ID {
		t.Fatalf("expected w2 focused after click, got %+v ok=%v", f, ok)
	}
	if wd.Reg.Windows()[0].ID != w2.ID {
		t.Fatalf("expected w2 raised to top")
	}
	if len(disp.focusChanges) != 2 {
		t.Fatalf("expected unfocus(w1)+focus(w2) notices, got %+v", disp.focusChanges)
	}
	if disp.focusChanges[0] != (focusNotice{1, false}) || disp.focusChanges[1] != (focusNotice{2, true}) {
		t.Fatalf("unexpected focus notice order: %+v", disp.focusChanges)
	}
}

func TestAltLeftBeginsMoveDrag(t *testing.T) {
	mux, wd, _ := newTestMux(t, 800, 600)
	w := wd.Reg.Insert(1, 0, 0, 100, 100)

	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyLeftAlt})
	mux.handleMotion(RawEvent{Kind: Motion, DX: 50, DY: 50})
	mux.HandleEvent(RawEvent{Kind: ButtonPress, Button: ButtonLeft})

	if !mux.drag.active || mux.drag.kind != dragMove || mux.drag.target != w.ID {
		t.Fatalf("expected active move drag on w, got %+v", mux.drag)
	}
}

func TestMoveDragUpdatesPosition(t *testing.T) {
	mux, wd, _ := newTestMux(t, 800, 600)
	w := wd.Reg.Insert(1, 0, 0, 100, 100)
	wm, err := wd.Alloc.Create(100, 100)
	if err != nil {
		t.Fatalf("create buffer: %v", err)
	}
	wd.SetBuffer(w.ID, wm)
	bg := wd.Reg.Background()
	bgm, err := wd.Alloc.Create(uint32(bg.Width), uint32(bg.Height))
	if err != nil {
		t.Fatalf("create bg buffer: %v", err)
	}
	wd.SetBuffer(bg.ID, bgm)

	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyLeftAlt})
	mux.handleMotion(RawEvent{Kind: Motion, DX: 50, DY: 50})
	mux.HandleEvent(RawEvent{Kind: ButtonPress, Button: ButtonLeft})

	mux.handleMotion(RawEvent{Kind: Motion, DX: 10, DY: 0})

	if w.X != 10 || w.Y != 0 {
		t.Fatalf("got (%d,%d), want (10,0)", w.X, w.Y)
	}

	mux.HandleEvent(RawEvent{Kind: ButtonRelease, Button: ButtonLeft})
	if mux.drag.active {
		t.Fatalf("drag should be cleared after release")
	}
}

func TestResizeDragCommitsOnRelease(t *testing.T) {
	mux, wd, disp := newTestMux(t, 800, 600)
	w := wd.Reg.Insert(1, 0, 0, 200, 200)
	wm, err := wd.Alloc.Create(200, 200)
	if err != nil {
		t.Fatalf("create buffer: %v", err)
	}
	wd.SetBuffer(w.ID, wm)
	bg := wd.Reg.Background()
	bgm, err := wd.Alloc.Create(uint32(bg.Width), uint32(bg.Height))
	if err != nil {
		t.Fatalf("create bg buffer: %v", err)
	}
	wd.SetBuffer(bg.ID, bgm)

	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyLeftAlt})
	mux.handleMotion(RawEvent{Kind: Motion, DX: 50, DY: 50})
	mux.HandleEvent(RawEvent{Kind: ButtonPress, Button: ButtonRight})
	mux.handleMotion(RawEvent{Kind: Motion, DX: -100, DY: -100})
	mux.HandleEvent(RawEvent{Kind: ButtonRelease, Button: ButtonRight})

	if w.Width != 100 || w.Height != 100 {
		t.Fatalf("got %dx%d, want 100x100", w.Width, w.Height)
	}
	if len(disp.bufferChanges) != 1 {
		t.Fatalf("expected one BufferChange, got %d", len(disp.bufferChanges))
	}
	if disp.bufferChanges[0].Width != 100 || disp.bufferChanges[0].Height != 100 {
		t.Fatalf("unexpected BufferChange payload: %+v", disp.bufferChanges[0])
	}
}

// TestResizeClampsToMinimum is boundary behavior 11 from spec.md §8.
func TestResizeClampsToMinimum(t *testing.T) {
	mux, wd, _ := newTestMux(t, 800, 600)
	w := wd.Reg.Insert(1, 0, 0, 20, 20)
	wm, err := wd.Alloc.Create(20, 20)
	if err != nil {
		t.Fatalf("create buffer: %v", err)
	}
	wd.SetBuffer(w.ID, wm)
	bg := wd.Reg.Background()
	bgm, err := wd.Alloc.Create(uint32(bg.Width), uint32(bg.Height))
	if err != nil {
		t.Fatalf("create bg buffer: %v", err)
	}
	wd.SetBuffer(bg.ID, bgm)

	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyLeftAlt})
	mux.handleMotion(RawEvent{Kind: Motion, DX: 5, DY: 5})
	mux.HandleEvent(RawEvent{Kind: ButtonPress, Button: ButtonRight})
	mux.handleMotion(RawEvent{Kind: Motion, DX: -1000, DY: -1000})
	mux.HandleEvent(RawEvent{Kind: ButtonRelease, Button: ButtonRight})

	if w.Width != MinWindowSize || w.Height != MinWindowSize {
		t.Fatalf("got %dx%d, want %dx%d", w.Width, w.Height, MinWindowSize, MinWindowSize)
	}
}

// TestDisconnectDuringDragClearsState mirrors spec.md §8 scenario E6.
func TestDisconnectDuringDragClearsState(t *testing.T) {
	mux, wd, _ := newTestMux(t, 800, 600)
	w := wd.Reg.Insert(1, 0, 0, 100, 100)

	mux.HandleEvent(RawEvent{Kind: KeyPress, Key: KeyLeftAlt})
	mux.handleMotion(RawEvent{Kind: Motion, DX: 50, DY: 50})
	mux.HandleEvent(RawEvent{Kind: ButtonPress, Button: ButtonLeft})

	wd.Lock()
	wd.Reg.Remove(w.ID)
	wd.Unlock()

	mux.handleMotion(RawEvent{Kind: Motion, DX: 10, DY: 10}) // must not panic

	if mux.drag.active {
		t.Fatalf("expected drag cleared after target removed")
	}
}

func TestKeyEventRoutedToFocused(t *testing.T) {
	mux, wd, disp := newTestMux(t, 800, 600)
	wd.Reg.Insert(1, 0, 0, 100, 100)

	mux.HandleEvent(RawEvent{Kind: KeyPress, RawCode: 30, Value: 1})
	if len(disp.inputEvents) != 1 || disp.inputEvents[0].Code != 30 {
		t.Fatalf("expected routed key event, got %+v", disp.inputEvents)
	}
}

func TestMotionOutsideFocusedWindowNotRouted(t *testing.T) {
	mux, wd, disp := newTestMux(t, 800, 600)
	wd.Reg.Insert(1, 0, 0, 50, 50)

	mux.handleMotion(RawEvent{Kind: Motion, DX: 500, DY: 500})
	if len(disp.inputEvents) != 0 {
		t.Fatalf("motion outside focused window should not route, got %v", disp.inputEvents)
	}
}

func TestCursorClampedToScreen(t *testing.T) {
	mux, _, _ := newTestMux(t, 100, 100)
	mux.handleMotion(RawEvent{Kind: Motion, DX: 1000, DY: -1000})
	if mux.mx != 100 || mux.my != 0 {
		t.Fatalf("got (%d,%d), want clamped (100,0)", mux.mx, mux.my)
	}
}
