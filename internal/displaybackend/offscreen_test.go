// SPDX-License-Identifier: Unlicense OR MIT

package displaybackend

import "testing"

func TestOffscreenInitRejectsNoDisplay(t *testing.T) {
	o := NewOffscreen()
	if _, err := o.Init(0, 0); err != ErrNoDisplay {
		t.Fatalf("got %v, want ErrNoDisplay", err)
	}
}

func TestOffscreenScanoutSized(t *testing.T) {
	o := NewOffscreen()
	info, err := o.Init(800, 600)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if got, want := len(o.Scanout()), info.Width*info.Height*4; got != want {
		t.Fatalf("scanout len = %d, want %d", got, want)
	}
}

func TestOffscreenCursor(t *testing.T) {
	o := NewOffscreen()
	if _, err := o.Init(100, 100); err != nil {
		t.Fatalf("init: %v", err)
	}
	o.MoveCursor(42, 7)
	x, y := o.CursorPosition()
	if x != 42 || y != 7 {
		t.Fatalf("got (%d,%d), want (42,7)", x, y)
	}
}
