// SPDX-License-Identifier: Unlicense OR MIT

// Package shmbuf implements the shared-buffer allocator (spec.md §4.2): it
// creates, maps, resizes and destroys the per-window POSIX shared memory
// regions that clients draw into.
package shmbuf

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrOutOfMemory indicates the shared memory region could not be allocated.
var ErrOutOfMemory = errors.New("shmbuf: out of memory")

// ErrNameCollision indicates a fresh name was requested but already exists;
// this is a programmer error, never expected in normal operation.
var ErrNameCollision = errors.New("shmbuf: name collision")

// ErrMappingFailed indicates mmap of an otherwise-valid region failed.
var ErrMappingFailed = errors.New("shmbuf: mapping failed")

// BytesPerPixel is the fixed pixel size for the ARGB8888 format (spec.md §3).
const BytesPerPixel = 4

// Mapping is a server-side view of a named shared memory region.
type Mapping struct {
	Name   string
	Data   []byte
	Width  uint32
	Height uint32
}

// Len returns the byte length of the mapped region, always width*height*4.
func (m *Mapping) Len() int { return len(m.Data) }

// Allocator mints fresh shared-buffer names and creates/replaces/destroys
// their backing regions. Names are unique within the server process, shaped
// as bgce_buf_<pid>_<monotonic> (spec.md §6).
type Allocator struct {
	pid     int
	counter uint64
}

// NewAllocator returns an allocator that mints names under the given
// server pid.
func NewAllocator(pid int) *Allocator {
	return &Allocator{pid: pid}
}

func (a *Allocator) nextName() string {
	n := atomic.AddUint64(&a.counter, 1)
	return fmt.Sprintf("bgce_buf_%d_%d", a.pid, n)
}

// Create allocates a fresh, zeroed, read-write shared region of exactly
// width*height*4 bytes and returns its mapping.
func (a *Allocator) Create(width, height uint32) (*Mapping, error) {
	size := int64(width) * int64(height) * BytesPerPixel
	if size <= 0 {
		return nil, errors.Wrap(ErrOutOfMemory, "zero-area buffer requested")
	}

	name := a.nextName()
	path := shmPath(name)

	fd, err := unix.Open(path, unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0600)
	if err != nil {
		if errors.Is(err, unix.EEXIST) {
			return nil, ErrNameCollision
		}
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}
	f := os.NewFile(uintptr(fd), path)
	defer f.Close()

	if err := unix.Ftruncate(fd, size); err != nil {
		_ = unix.Unlink(path)
		return nil, errors.Wrap(ErrOutOfMemory, err.Error())
	}

	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Unlink(path)
		return nil, errors.Wrap(ErrMappingFailed, err.Error())
	}
	for i := range data {
		data[i] = 0
	}

	return &Mapping{Name: name, Data: data, Width: width, Height: height}, nil
}

// Replace unmaps and unlinks the previous mapping, then creates a new one
// at the requested dimensions. The caller is responsible for serializing
// this call with any concurrent use of the old mapping (spec.md §4.2).
func (a *Allocator) Replace(old *Mapping, width, height uint32) (*Mapping, error) {
	if old != nil {
		a.unmapUnlink(old)
	}
	return a.Create(width, height)
}

// Destroy unmaps and unlinks m. Idempotent: calling it again on an
// already-destroyed mapping (Data == nil) is a no-op.
func (a *Allocator) Destroy(m *Mapping) error {
	if m == nil || m.Data == nil {
		return nil
	}
	a.unmapUnlink(m)
	return nil
}

func (a *Allocator) unmapUnlink(m *Mapping) {
	if m.Data != nil {
		_ = unix.Munmap(m.Data)
		m.Data = nil
	}
	_ = unix.Unlink(shmPath(m.Name))
}

// shmPath maps a buffer name to its POSIX shared memory object path. Linux
// shm_open semantics are achieved directly via /dev/shm, the portable
// equivalent glibc itself uses under the hood.
func shmPath(name string) string {
	return "/dev/shm/" + name
}
