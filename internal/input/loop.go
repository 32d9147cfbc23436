// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"context"
	"encoding/binary"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// inputEventSize is sizeof(struct input_event) on 64-bit Linux: a 16-byte
// timeval (two 8-byte fields) followed by type(2) + code(2) + value(4).
const inputEventSize = 24

const (
	relX = 0x00
	relY = 0x01
	// btnRangeStart is the evdev convention that BTN_* codes (buttons)
	// start at 0x100, below which codes are ordinary KEY_* codes.
	btnRangeStart = 0x100
)

// KeyMapper translates concrete evdev key/button codes into the abstract
// tokens the multiplexer's shortcut layer recognizes. Package evcode
// provides the Linux implementation; tests may supply a stub.
type KeyMapper interface {
	Key(code uint16) KeyCode
	Button(code uint16) ButtonCode
}

// Loop owns the open device set and feeds translated events to a
// Multiplexer until its context is cancelled (spec.md §4.6 device
// enumeration + dispatch thread).
type Loop struct {
	devices []device
	mux     *Multiplexer
	keys    KeyMapper
}

// NewLoop enumerates /dev/input and returns a Loop ready to Run. Returns
// ErrNoInputDevices if the scan finds nothing usable.
func NewLoop(mux *Multiplexer, keys KeyMapper) (*Loop, error) {
	devices, err := EnumerateDevices()
	if err != nil {
		return nil, err
	}
	return &Loop{devices: devices, mux: mux, keys: keys}, nil
}

// DeviceNames returns the EVIOCGNAME-reported name of each enumerated
// device, in poll order, for GetServerInfo replies (spec.md §6).
func (l *Loop) DeviceNames() []string {
	names := make([]string, len(l.devices))
	for i, d := range l.devices {
		names[i] = d.name
	}
	return names
}

// Close releases every open device fd.
func (l *Loop) Close() {
	for _, d := range l.devices {
		unix.Close(d.fd)
	}
}

// Run blocks, polling every device fd and forwarding translated events to
// the Multiplexer, until ctx is cancelled or a fatal poll error occurs.
func (l *Loop) Run(ctx context.Context) error {
	buf := make([]byte, inputEventSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		ready, err := pollDevices(l.devices)
		if err != nil {
			return err
		}

		for _, idx := range ready {
			d := l.devices[idx]
			for {
				n, err := unix.Read(d.fd, buf)
				if err != nil {
					if errors.Is(err, unix.EAGAIN) {
						break
					}
					break
				}
				if n != inputEventSize {
					break
				}
				if ev, ok := translate(buf, l.keys); ok {
					l.mux.HandleEvent(ev)
				}
			}
		}
	}
}

// translate converts one raw linux input_event record into a RawEvent,
// using keys to resolve the abstract Key/Button token the multiplexer's
// shortcut layer inspects. RawCode always carries the original evdev code
// regardless of mapping, so routed events remain faithful to the client.
func translate(buf []byte, keys KeyMapper) (RawEvent, bool) {
	typ := binary.LittleEndian.Uint16(buf[16:18])
	code := binary.LittleEndian.Uint16(buf[18:20])
	value := int32(binary.LittleEndian.Uint32(buf[20:24]))

	switch typ {
	case evKey:
		if code >= btnRangeStart {
			kind := ButtonRelease
			if value != 0 {
				kind = ButtonPress
			}
			ev := RawEvent{Kind: kind, RawCode: uint32(code), Value: value}
			if keys != nil {
				ev.Button = keys.Button(code)
			}
			return ev, true
		}
		kind := KeyRelease
		if value != 0 {
			kind = KeyPress
		}
		ev := RawEvent{Kind: kind, RawCode: uint32(code), Value: value}
		if keys != nil {
			ev.Key = keys.Key(code)
		}
		return ev, true
	case evRel:
		switch code {
		case relX:
			return RawEvent{Kind: Motion, DX: value}, true
		case relY:
			return RawEvent{Kind: Motion, DY: value}, true
		}
		return RawEvent{}, false
	default:
		return RawEvent{}, false
	}
}
