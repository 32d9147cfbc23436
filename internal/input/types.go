// SPDX-License-Identifier: Unlicense OR MIT

// Package input implements the input multiplexer (spec.md §4.6): device
// enumeration, the fixed global shortcut layer, drag-to-move/drag-to-resize
// interaction, and routing of remaining events to the focused client. The
// core here consumes only abstract KeyCode/ButtonCode tokens (spec.md §1);
// the concrete Linux evdev keycode set lives in package evcode.
package input

// KeyCode is an abstract keyboard key token.
type KeyCode uint32

// ButtonCode is an abstract pointer button token.
type ButtonCode uint32

// Semantic key/button tokens the global shortcut layer (spec.md §4.6)
// recognizes. Every other KeyCode/ButtonCode value is opaque to this
// package and is only ever routed through, never interpreted.
const (
	KeyUnknown KeyCode = iota
	KeyLeftCtrl
	KeyRightCtrl
	KeyLeftAlt
	KeyRightAlt
	KeyQ
	KeyPrintScreen
)

const (
	ButtonUnknown ButtonCode = iota
	ButtonLeft
	ButtonRight
)

// Kind distinguishes the variants of a RawEvent.
type Kind uint8

const (
	KeyPress Kind = iota
	KeyRelease
	ButtonPress
	ButtonRelease
	Motion
)

// RawEvent is one input event as reported by a device, already translated
// from the concrete evdev keycode set into abstract tokens.
type RawEvent struct {
	Device uint32
	Kind   Kind

	Key    KeyCode    // valid for KeyPress/KeyRelease
	Button ButtonCode // valid for ButtonPress/ButtonRelease

	// RawCode is the original device-reported code, always populated, and
	// is what gets forwarded to the focused client in an InputEvent — the
	// client side owns its own keycode interpretation.
	RawCode uint32
	// Value carries the key/button press value (1 press, 0 release) or,
	// for Motion, is unused.
	Value int32

	// DX, DY are relative motion deltas, valid for Motion.
	DX, DY int32
}
