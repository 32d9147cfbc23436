// SPDX-License-Identifier: Unlicense OR MIT

// Package session implements the per-connection protocol state machine
// (spec.md §4.7): one goroutine per connection, buffer lifecycle via the
// shared-buffer allocator, and the Dispatcher the input multiplexer
// delivers server->client messages through.
package session

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"bgce/internal/input"
	"bgce/internal/registry"
	"bgce/internal/screenshot"
	"bgce/internal/wire"
	"bgce/internal/world"
)

// outboxDepth bounds each connection's outgoing queue (spec.md §5: "a
// bounded per-client outgoing queue and drop oldest events on overflow").
const outboxDepth = 64

// Manager owns every live session and is the input.Dispatcher the
// multiplexer routes server->client traffic through.
type Manager struct {
	world *world.World
	log   zerolog.Logger

	devices []string

	mu       sync.Mutex
	sessions map[registry.ConnID]*Session
	nextConn uint64

	mux *input.Multiplexer

	shutdownOnce sync.Once
	shutdownCh   chan struct{}

	screenshotDir string
	screenshotSeq uint64
}

// NewManager constructs a Manager. devices is the device name list
// reported in GetServerInfo replies; screenshotDir is where PrintScreen
// output is written (spec.md §6).
func NewManager(w *world.World, devices []string, screenshotDir string) *Manager {
	return &Manager{
		world:         w,
		log:           bgceLog(),
		devices:       devices,
		sessions:      make(map[registry.ConnID]*Session),
		shutdownCh:    make(chan struct{}),
		screenshotDir: screenshotDir,
	}
}

// SetMultiplexer wires the input multiplexer back into the manager so
// connection teardown can clear an in-progress drag targeting the
// destroyed window (spec.md §4.6 cancellation). Constructed after NewManager
// since the multiplexer itself takes the manager as its Dispatcher.
func (m *Manager) SetMultiplexer(mux *input.Multiplexer) {
	m.mux = mux
}

// SetDevices updates the device name list GetServerInfo reports. The
// orchestrator calls this once the input loop (which owns the actual
// device enumeration) has been constructed, since device discovery and Manager
// construction happen in the opposite order (spec.md §4.8).
func (m *Manager) SetDevices(names []string) {
	m.mu.Lock()
	m.devices = names
	m.mu.Unlock()
}

// Devices returns the current device name list for GetServerInfo replies.
func (m *Manager) Devices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.devices
}

// ShutdownCh is closed exactly once, the first time Shutdown is called
// (the Ctrl+Alt+Q global shortcut, spec.md §4.6).
func (m *Manager) ShutdownCh() <-chan struct{} {
	return m.shutdownCh
}

// Handle runs one connection to completion: registers a Session, starts
// its writer goroutine, then blocks in the read loop until disconnect,
// malformed message, or send failure, tearing the session down on return
// (spec.md §4.7 termination).
func (m *Manager) Handle(conn net.Conn) {
	id := registry.ConnID(atomic.AddUint64(&m.nextConn, 1))
	s := &Session{
		id:     id,
		conn:   conn,
		world:  m.world,
		mgr:    m,
		log:    m.log.With().Uint64("conn", uint64(id)).Logger(),
		outbox: make(chan wire.Message, outboxDepth),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	writerDone := make(chan struct{})
	go s.writeLoop(writerDone)

	s.readLoop()

	close(writerDone)
	m.teardown(s)
}

func (m *Manager) teardown(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.id)
	m.mu.Unlock()

	m.world.Lock()
	w, ok := m.world.Reg.ByConn(s.id)
	var refocused *registry.Window
	if ok {
		prev, hadPrev := m.world.Reg.Focused()
		m.world.Reg.Remove(w.ID)
		if m.mux != nil {
			m.mux.ClearDragIfTarget(w.ID)
		}
		if old := m.world.Buffer(w.ID); old != nil {
			_ = m.world.Alloc.Destroy(old)
		}
		m.world.ForgetBuffer(w.ID)
		refocused, _ = m.world.Reg.Focused()
		if hadPrev && refocused != nil && prev.ID == refocused.ID {
			// Focus did not change hands; nobody needs a notice.
			refocused = nil
		}
	}
	m.world.Unlock()

	_ = s.conn.Close()

	if ok {
		m.log.Debug().Uint64("conn", uint64(s.id)).Msg("session closed")
		if refocused != nil {
			m.SendFocusChange(refocused.Conn, true)
		}
	}
}

// session looks up a live session by connection id, or nil.
func (m *Manager) session(conn registry.ConnID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[conn]
}

// --- input.Dispatcher ---

func (m *Manager) SendInputEvent(conn registry.ConnID, ev wire.InputEvent) {
	s := m.session(conn)
	if s == nil {
		return
	}
	var msg wire.Message
	ev.Encode(&msg)
	s.enqueue(msg)
}

func (m *Manager) SendBufferChange(conn registry.ConnID, reply wire.BufferReply) {
	s := m.session(conn)
	if s == nil {
		return
	}
	var msg wire.Message
	wire.EncodeBufferChange(&reply, &msg)
	s.enqueue(msg)
}

func (m *Manager) SendFocusChange(conn registry.ConnID, focused bool) {
	s := m.session(conn)
	if s == nil {
		return
	}
	var msg wire.Message
	fc := wire.FocusChange{Focused: focused}
	fc.Encode(&msg)
	s.enqueue(msg)
}

// Shutdown closes ShutdownCh exactly once; the server orchestrator selects
// on it to begin the shutdown sequence (spec.md §4.8).
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() { close(m.shutdownCh) })
}

// Screenshot copies the scanout under the coarse lock, then PNG-encodes it
// to disk outside the lock (spec.md §5: never hold the lock across I/O).
// Failures are logged and non-fatal (spec.md §7).
func (m *Manager) Screenshot() {
	bg := m.world.Reg.Background()

	m.world.Lock()
	scanout := m.world.Backend.Scanout()
	width, height := bg.Width, bg.Height
	snapshot := make([]byte, len(scanout))
	copy(snapshot, scanout)
	m.world.Unlock()

	seq := atomic.AddUint64(&m.screenshotSeq, 1)
	path := screenshotPath(m.screenshotDir, seq)
	if err := screenshot.Save(path, snapshot, width, height); err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("screenshot failed")
		return
	}
	m.log.Info().Str("path", path).Msg("screenshot saved")
}
