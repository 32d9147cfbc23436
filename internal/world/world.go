// SPDX-License-Identifier: Unlicense OR MIT

// Package world bundles the window registry, the shared-buffer table, and
// the compositor's view of the scanout surface behind a single coarse
// mutex (spec.md §5): "the scanout surface is protected by the same mutex
// as the registry... any draw, redraw_region, or redraw_from_resize runs
// under the lock." Holding this lock across I/O is forbidden; callers take
// it only for the duration of a registry/compositor operation.
package world

import (
	"sync"

	"bgce/internal/compositor"
	"bgce/internal/displaybackend"
	"bgce/internal/registry"
	"bgce/internal/shmbuf"
)

// World is the single source of shared mutable state the session loop and
// the input multiplexer both operate on.
type World struct {
	mu      sync.Mutex
	Reg     *registry.Registry
	Comp    *compositor.Compositor
	Alloc   *shmbuf.Allocator
	Backend displaybackend.Backend

	buffers map[registry.WindowID]*shmbuf.Mapping
}

// New constructs a World over an already-initialized backend and a fresh
// registry sized to its screen info.
func New(backend displaybackend.Backend, info displaybackend.ScreenInfo, alloc *shmbuf.Allocator) *World {
	w := &World{
		Reg:     registry.New(info.Width, info.Height),
		Alloc:   alloc,
		Backend: backend,
		buffers: make(map[registry.WindowID]*shmbuf.Mapping),
	}
	w.Comp = compositor.New(backend, w.Reg, func(id registry.WindowID) *shmbuf.Mapping {
		return w.buffers[id]
	})
	return w
}

// Lock acquires the coarse registry+scanout mutex. Callers must not block
// on I/O while holding it.
func (w *World) Lock() { w.mu.Lock() }

// Unlock releases the coarse mutex.
func (w *World) Unlock() { w.mu.Unlock() }

// SetBuffer records (or replaces) the shared-buffer mapping backing a
// window. Must be called under Lock.
func (w *World) SetBuffer(id registry.WindowID, m *shmbuf.Mapping) {
	w.buffers[id] = m
}

// Buffer returns the current mapping for a window, or nil. Must be called
// under Lock.
func (w *World) Buffer(id registry.WindowID) *shmbuf.Mapping {
	return w.buffers[id]
}

// ForgetBuffer drops the bookkeeping entry for a destroyed window. It does
// not unmap/unlink; callers destroy the mapping via Alloc first. Must be
// called under Lock.
func (w *World) ForgetBuffer(id registry.WindowID) {
	delete(w.buffers, id)
}
