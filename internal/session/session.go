// SPDX-License-Identifier: Unlicense OR MIT

package session

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"bgce/internal/registry"
	"bgce/internal/wire"
	"bgce/internal/world"
)

// Session is one connection's protocol state machine (spec.md §4.7):
// CONNECTED until the first successful GetBuffer, HAS_WINDOW after.
type Session struct {
	id    registry.ConnID
	conn  net.Conn
	world *world.World
	mgr   *Manager
	log   zerolog.Logger

	outbox chan wire.Message

	mu        sync.Mutex
	windowID  registry.WindowID
	hasWindow bool
}

// readLoop blocks decoding one message at a time and dispatching it,
// until the peer disconnects, sends a malformed message, or the
// connection is otherwise unusable (spec.md §7: Malformed/Closed drop the
// connection).
func (s *Session) readLoop() {
	for {
		var msg wire.Message
		if err := wire.Recv(s.conn, &msg); err != nil {
			if errors.Is(err, wire.ErrClosed) {
				s.log.Debug().Msg("client disconnected")
			} else {
				s.log.Warn().Err(err).Msg("recv failed, dropping connection")
			}
			return
		}
		if err := s.dispatch(&msg); err != nil {
			s.log.Warn().Err(err).Msg("malformed message, dropping connection")
			return
		}
	}
}

// writeLoop is the connection's single writer, serializing replies and
// unsolicited server->client notifications onto one socket.
func (s *Session) writeLoop(done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-s.outbox:
			if err := wire.Send(s.conn, &msg); err != nil {
				s.log.Debug().Err(err).Msg("send failed, dropping connection")
				_ = s.conn.Close()
				return
			}
		}
	}
}

// enqueue is a non-blocking send with drop-oldest-on-overflow (spec.md §5,
// §7 SendBlocked policy).
func (s *Session) enqueue(msg wire.Message) {
	for {
		select {
		case s.outbox <- msg:
			return
		default:
		}
		select {
		case <-s.outbox:
		default:
		}
	}
}

func (s *Session) dispatch(msg *wire.Message) error {
	switch msg.Type {
	case wire.TypeGetServerInfo:
		s.handleGetServerInfo()

	case wire.TypeGetBuffer:
		var req wire.GetBufferRequest
		if err := req.Decode(msg); err != nil {
			return err
		}
		s.handleGetBuffer(req)

	case wire.TypeDraw:
		s.handleDraw()

	case wire.TypeMove:
		var req wire.MoveRequest
		if err := req.Decode(msg); err != nil {
			return err
		}
		s.handleMove(req)

	default:
		// UnknownMessageType: log and ignore, connection stays up
		// (spec.md §7).
		s.log.Warn().Uint32("type", uint32(msg.Type)).Msg("unknown message type")
	}
	return nil
}

func (s *Session) handleGetServerInfo() {
	bg := s.world.Reg.Background()
	info := wire.ServerInfo{
		Width:   uint32(bg.Width),
		Height:  uint32(bg.Height),
		Depth:   32,
		Devices: s.mgr.Devices(),
	}
	var msg wire.Message
	wire.EncodeServerInfo(&info, &msg)
	s.enqueue(msg)
}

// handleGetBuffer implements the CONNECTED->HAS_WINDOW transition and the
// HAS_WINDOW->HAS_WINDOW replace-on-GetBuffer loop (spec.md §4.7).
func (s *Session) handleGetBuffer(req wire.GetBufferRequest) {
	s.world.Lock()
	w, existed := s.world.Reg.ByConn(s.id)

	var prevFocused *registry.Window
	var hadPrevFocus bool
	if !existed {
		prevFocused, hadPrevFocus = s.world.Reg.Focused()
	}

	var name string
	var width, height uint32
	var allocErr error

	if existed {
		old := s.world.Buffer(w.ID)
		mapping, err := s.world.Alloc.Replace(old, req.Width, req.Height)
		allocErr = err
		if err == nil {
			w.Width, w.Height = int(req.Width), int(req.Height)
			s.world.SetBuffer(w.ID, mapping)
			name, width, height = mapping.Name, req.Width, req.Height
		}
	} else {
		mapping, err := s.world.Alloc.Create(req.Width, req.Height)
		allocErr = err
		if err == nil {
			w = s.world.Reg.Insert(s.id, 0, 0, int(req.Width), int(req.Height))
			s.world.SetBuffer(w.ID, mapping)
			name, width, height = mapping.Name, req.Width, req.Height
		}
	}
	s.world.Unlock()

	if allocErr != nil {
		// AllocFailed: reply status -1, connection stays up (spec.md §7).
		s.log.Error().Err(allocErr).Msg("buffer allocation failed")
		reply := wire.BufferReply{Status: -1}
		var msg wire.Message
		wire.EncodeBufferReply(&reply, &msg)
		s.enqueue(msg)
		return
	}

	s.mu.Lock()
	s.windowID = w.ID
	s.hasWindow = true
	s.mu.Unlock()

	reply := wire.BufferReply{Status: 0, Name: name, Width: width, Height: height}
	var msg wire.Message
	wire.EncodeBufferReply(&reply, &msg)
	s.enqueue(msg)

	if !existed {
		// Last-connected-client-gets-focus (original loop.c), expressed
		// as an explicit FocusChange pair.
		if hadPrevFocus && prevFocused.ID != w.ID {
			s.mgr.SendFocusChange(prevFocused.Conn, false)
		}
		s.mgr.SendFocusChange(w.Conn, true)
	}
}

// handleDraw presents the caller's buffer only if it owns the focused
// window; otherwise it is silently dropped (spec.md §4.7, original
// loop.c's "Ignoring draw from unfocused client").
func (s *Session) handleDraw() {
	s.world.Lock()
	defer s.world.Unlock()

	w, ok := s.world.Reg.ByConn(s.id)
	if !ok {
		s.log.Debug().Msg("draw with no buffer")
		return
	}
	focused, hasFocus := s.world.Reg.Focused()
	if !hasFocus || focused.ID != w.ID {
		s.log.Debug().Msg("ignoring draw from unfocused client")
		return
	}
	s.world.Comp.Draw(w)
}

// handleMove updates the window's coordinates without redrawing (spec.md
// §4.7); it defers to an in-progress drag on the same window (spec.md §9
// resolution: Move is advisory).
func (s *Session) handleMove(req wire.MoveRequest) {
	s.world.Lock()
	defer s.world.Unlock()

	w, ok := s.world.Reg.ByConn(s.id)
	if !ok {
		return
	}
	if s.mgr.mux != nil && s.mgr.mux.DragActiveOn(w.ID) {
		return
	}
	w.X, w.Y = int(req.X), int(req.Y)
}
