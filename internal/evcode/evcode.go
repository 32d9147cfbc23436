// SPDX-License-Identifier: Unlicense OR MIT

// Package evcode maps concrete Linux evdev key/button codes (as defined
// in linux/input-event-codes.h) onto the abstract input.KeyCode/
// input.ButtonCode tokens the global shortcut layer recognizes.
package evcode

import "bgce/internal/input"

// Evdev codes the shortcut layer cares about (linux/input-event-codes.h).
const (
	keyLeftCtrl  = 29
	keyRightCtrl = 97
	keyLeftAlt   = 56
	keyRightAlt  = 100
	keyQ         = 16
	keySysRq     = 99 // PrintScreen shares KEY_SYSRQ on a standard layout

	btnLeft  = 0x110
	btnRight = 0x111
)

// Linux implements input.KeyMapper over the standard evdev code set.
type Linux struct{}

// Key translates an evdev KEY_* code into its abstract token, or
// input.KeyUnknown if this code carries no special meaning to the
// shortcut layer (it is still forwarded to the focused client via
// RawCode regardless).
func (Linux) Key(code uint16) input.KeyCode {
	switch code {
	case keyLeftCtrl:
		return input.KeyLeftCtrl
	case keyRightCtrl:
		return input.KeyRightCtrl
	case keyLeftAlt:
		return input.KeyLeftAlt
	case keyRightAlt:
		return input.KeyRightAlt
	case keyQ:
		return input.KeyQ
	case keySysRq:
		return input.KeyPrintScreen
	default:
		return input.KeyUnknown
	}
}

// Button translates an evdev BTN_* code into its abstract token.
func (Linux) Button(code uint16) input.ButtonCode {
	switch code {
	case btnLeft:
		return input.ButtonLeft
	case btnRight:
		return input.ButtonRight
	default:
		return input.ButtonUnknown
	}
}
