// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MaxInputDevices bounds how many /dev/input/event* nodes the server will
// poll concurrently (spec.md §4.6 device enumeration).
const MaxInputDevices = 8

const inputDir = "/dev/input"

// evBitsLen is the byte length of the EV_* capability bitmap returned by
// EVIOCGBIT(0, ...): (EV_MAX+7)/8 with EV_MAX=0x1f.
const evBitsLen = (0x1f + 7) / 8

// evKey and evRel are the linux/input-event-codes.h event types this
// server cares about: key/button presses and relative pointer motion.
const (
	evKey = 0x01
	evRel = 0x02
)

// ErrNoInputDevices indicates enumeration found zero usable devices.
var ErrNoInputDevices = errors.New("input: no suitable input devices found")

// device is one accepted, opened /dev/input/eventN node.
type device struct {
	path string
	name string
	fd   int
}

// EnumerateDevices walks /dev/input, opening every eventN node that
// reports EV_KEY or EV_REL capability via EVIOCGBIT, up to
// MaxInputDevices. Devices that fail to open or fail the capability
// check are skipped, mirroring the original server's best-effort scan.
func EnumerateDevices() ([]device, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, errors.Wrap(err, "input: open /dev/input")
	}

	var devices []device
	for _, ent := range entries {
		if len(devices) >= MaxInputDevices {
			break
		}
		if !strings.HasPrefix(ent.Name(), "event") {
			continue
		}

		path := inputDir + "/" + ent.Name()
		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
		if err != nil {
			continue
		}

		hasKey, hasRel, ok := probeCapabilities(fd)
		if !ok || (!hasKey && !hasRel) {
			unix.Close(fd)
			continue
		}

		devices = append(devices, device{
			path: path,
			name: deviceName(fd),
			fd:   fd,
		})
	}

	if len(devices) == 0 {
		return nil, ErrNoInputDevices
	}
	return devices, nil
}

// probeCapabilities issues EVIOCGBIT(0, evBitsLen) and reports whether the
// device advertises EV_KEY and/or EV_REL.
func probeCapabilities(fd int) (hasKey, hasRel, ok bool) {
	var bits [evBitsLen]byte
	if err := ioctlGetBits(fd, evBitsLen, &bits); err != nil {
		return false, false, false
	}
	return testBit(bits[:], evKey), testBit(bits[:], evRel), true
}

func testBit(bits []byte, bit int) bool {
	return bits[bit/8]&(1<<uint(bit%8)) != 0
}

// deviceName issues EVIOCGNAME; on failure it returns a placeholder, as
// the original scan does.
func deviceName(fd int) string {
	var buf [256]byte
	if err := ioctlGetName(fd, &buf); err != nil {
		return "Unknown"
	}
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	if n == 0 {
		return "Unknown"
	}
	return string(buf[:n])
}

// pollDevices blocks until at least one device fd is readable, returning
// the indices with pending data. It is the Go equivalent of the
// C server's poll(fds, count, -1) loop.
func pollDevices(devices []device) ([]int, error) {
	pfds := make([]unix.PollFd, len(devices))
	for i, d := range devices {
		pfds[i] = unix.PollFd{Fd: int32(d.fd), Events: unix.POLLIN}
	}

	for {
		n, err := unix.Poll(pfds, -1)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, errors.Wrap(err, "input: poll")
		}
		if n == 0 {
			continue
		}
		var ready []int
		for i, pfd := range pfds {
			if pfd.Revents&unix.POLLIN != 0 {
				ready = append(ready, i)
			}
		}
		return ready, nil
	}
}
