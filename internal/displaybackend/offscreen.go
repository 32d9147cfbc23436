// SPDX-License-Identifier: Unlicense OR MIT

package displaybackend

import "image"

// Offscreen is an in-memory Backend backed by a plain byte slice, useful
// for compositor and session-loop tests that need no real display device.
type Offscreen struct {
	info       ScreenInfo
	scanout    []byte
	cursorX    int
	cursorY    int
	presented  []image.Rectangle
	shutdown   bool
}

// NewOffscreen constructs an Offscreen backend; call Init before use.
func NewOffscreen() *Offscreen {
	return &Offscreen{}
}

func (o *Offscreen) Init(preferredWidth, preferredHeight int) (ScreenInfo, error) {
	if preferredWidth <= 0 || preferredHeight <= 0 {
		return ScreenInfo{}, ErrNoDisplay
	}
	o.info = ScreenInfo{
		Width:         preferredWidth,
		Height:        preferredHeight,
		BytesPerPixel: 4,
		PixelFormat:   "ARGB8888",
	}
	o.scanout = make([]byte, preferredWidth*preferredHeight*4)
	return o.info, nil
}

func (o *Offscreen) Scanout() []byte { return o.scanout }

func (o *Offscreen) Present(rect image.Rectangle) {
	o.presented = append(o.presented, rect)
}

// Presented returns the rectangles passed to Present since the last call,
// draining the log. Test-only introspection hook.
func (o *Offscreen) Presented() []image.Rectangle {
	p := o.presented
	o.presented = nil
	return p
}

func (o *Offscreen) MoveCursor(x, y int) {
	o.cursorX, o.cursorY = x, y
}

// CursorPosition returns the last coordinates passed to MoveCursor.
// Test-only introspection hook.
func (o *Offscreen) CursorPosition() (int, int) { return o.cursorX, o.cursorY }

func (o *Offscreen) HasHardwareCursor() bool { return false }

func (o *Offscreen) Shutdown() error {
	o.shutdown = true
	return nil
}
