// SPDX-License-Identifier: Unlicense OR MIT

// Package displaybackend defines the abstract display backend contract
// (spec.md §4.3) the core depends on. Any concrete scanout implementation —
// kernel mode-setting, an offscreen test backend, a PPM dump — satisfies
// this interface; the compositor never depends on anything beyond it.
package displaybackend

import (
	"image"

	"github.com/pkg/errors"
)

// ErrNoDisplay is returned from Init when no connected output exists. It is
// fatal at init time (spec.md §7).
var ErrNoDisplay = errors.New("displaybackend: no connected output")

// ScreenInfo describes the committed display mode. Immutable after Init.
type ScreenInfo struct {
	Width         int
	Height        int
	BytesPerPixel int // always 4
	PixelFormat   string // always "ARGB8888"
}

// Backend is the abstract display backend contract (spec.md §4.3).
type Backend interface {
	// Init acquires the display, chooses a mode (preferring the connected
	// output's preferred mode), and returns the committed resolution.
	Init(preferredWidth, preferredHeight int) (ScreenInfo, error)

	// Scanout returns a borrow of the primary scanout buffer: width*height*4
	// bytes, row-major ARGB8888. The borrow is valid until Shutdown.
	Scanout() []byte

	// Present signals that rect has been written and must become visible.
	// Implementations may flush, page-flip, or no-op for immediate-scanout
	// devices.
	Present(rect image.Rectangle)

	// MoveCursor repositions the hardware cursor in screen coordinates.
	MoveCursor(x, y int)

	// HasHardwareCursor reports whether MoveCursor drives real cursor
	// hardware. When false, callers are expected to composite a software
	// cursor themselves (spec.md §9 open question, resolved: software
	// fallback).
	HasHardwareCursor() bool

	// Shutdown releases all display resources and restores the
	// previously-saved output configuration.
	Shutdown() error
}
