// SPDX-License-Identifier: Unlicense OR MIT

package input

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// evdev ioctl request numbers, computed the same way linux/input.h's
// EVIOCGBIT/EVIOCGNAME macros do: _IOC(dir, type, nr, size).
const (
	iocRead   = 2
	iocDirBit = 30
	iocSizeBit = 16
	iocTypeBit = 8

	evdevIOCType = 'E'
)

func iocRequest(nr, size uintptr) uintptr {
	return iocRead<<iocDirBit | size<<iocSizeBit | evdevIOCType<<iocTypeBit | nr
}

// evIOCGBit mirrors EVIOCGBIT(ev, len): nr = 0x20 + ev.
func evIOCGBit(ev int, size uintptr) uintptr {
	return iocRequest(uintptr(0x20+ev), size)
}

// evIOCGName mirrors EVIOCGNAME(len): nr = 0x06.
func evIOCGName(size uintptr) uintptr {
	return iocRequest(0x06, size)
}

func ioctlGetBits(fd int, size int, bits *[evBitsLen]byte) error {
	req := evIOCGBit(0, uintptr(size))
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&bits[0])))
	if errno != 0 {
		return errors.Wrap(errno, "input: EVIOCGBIT")
	}
	return nil
}

func ioctlGetName(fd int, buf *[256]byte) error {
	req := evIOCGName(uintptr(len(buf)))
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errors.Wrap(errno, "input: EVIOCGNAME")
	}
	return nil
}
