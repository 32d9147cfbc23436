// SPDX-License-Identifier: Unlicense OR MIT

// Package server implements the orchestrator (spec.md §4.8): backend
// bring-up, background pseudo-window installation, the input goroutine,
// the listening Unix socket accept loop, and the shutdown sequence.
package server

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"bgce/internal/bgcelog"
	"bgce/internal/bgimage"
	"bgce/internal/config"
	"bgce/internal/displaybackend"
	"bgce/internal/evcode"
	"bgce/internal/input"
	"bgce/internal/registry"
	"bgce/internal/session"
	"bgce/internal/shmbuf"
	"bgce/internal/world"
)

// Server bundles everything New brought up, so main only needs to call
// Run, which tears everything down before it returns.
type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	world   *world.World
	mux     *input.Multiplexer
	loop    *input.Loop
	mgr     *session.Manager
	backend displaybackend.Backend

	listener net.Listener
}

// Options carries the values the original server hard-coded as
// preprocessor constants (spec.md §4.8 "well-known path", preferred mode).
type Options struct {
	Config          *config.Config
	Backend         displaybackend.Backend
	PreferredWidth  int
	PreferredHeight int
	ScreenshotDir   string
}

// New brings up the display backend, the background pseudo-window, the
// input subsystem and the listening socket, in the order spec.md §4.8
// prescribes. It does not yet accept connections; call Run for that.
func New(opts Options) (*Server, error) {
	log := bgcelog.For("server")

	info, err := opts.Backend.Init(opts.PreferredWidth, opts.PreferredHeight)
	if err != nil {
		return nil, errors.Wrap(err, "server: display init")
	}
	log.Info().Int("width", info.Width).Int("height", info.Height).Msg("display initialised")

	alloc := shmbuf.NewAllocator(os.Getpid())
	w := world.New(opts.Backend, info, alloc)

	if err := paintBackground(w, opts.Config); err != nil {
		log.Warn().Err(err).Msg("background paint failed, using solid color fallback")
	}

	mgr := session.NewManager(w, nil, opts.ScreenshotDir)
	mux := input.New(w, mgr, info.Width, info.Height)
	mgr.SetMultiplexer(mux)

	// Device enumeration is owned by the Loop itself; NoInputDevices is a
	// warning, not fatal (spec.md §7), so the server continues with the
	// input goroutine disabled.
	loop, err := input.NewLoop(mux, evcode.Linux{})
	if err != nil {
		log.Warn().Err(err).Msg("no usable input devices, continuing without input")
		loop = nil
	} else {
		mgr.SetDevices(loop.DeviceNames())
	}

	socketPath := opts.Config.SocketPath
	_ = os.Remove(socketPath)
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, errors.Wrap(err, "server: socket bind/listen")
	}
	log.Info().Str("path", socketPath).Msg("listening")

	return &Server{
		cfg:      opts.Config,
		log:      log,
		world:    w,
		mux:      mux,
		loop:     loop,
		mgr:      mgr,
		backend:  opts.Backend,
		listener: listener,
	}, nil
}

func paintBackground(w *world.World, cfg *config.Config) error {
	bg := w.Reg.Background()
	mapping, err := w.Alloc.Create(uint32(bg.Width), uint32(bg.Height))
	if err != nil {
		return errors.Wrap(err, "server: background buffer")
	}

	if cfg.Background.Type == config.BackgroundImage && cfg.Background.Path != "" {
		img, err := bgimage.Decode(cfg.Background.Path)
		if err != nil {
			return errors.Wrap(err, "server: background image decode")
		}
		if cfg.Background.Mode == config.ImageScaled {
			bgimage.Scale(mapping.Data, bg.Width, bg.Height, img)
		} else {
			bgimage.Tile(mapping.Data, bg.Width, bg.Height, img)
		}
	} else {
		fillSolid(mapping.Data, cfg.BackgroundARGB())
	}

	w.Lock()
	w.SetBuffer(bg.ID, mapping)
	w.Comp.Draw(bg)
	w.Unlock()
	return nil
}

func fillSolid(dst []byte, argb uint32) {
	a := byte(argb >> 24)
	r := byte(argb >> 16)
	g := byte(argb >> 8)
	b := byte(argb)
	for i := 0; i+4 <= len(dst); i += 4 {
		dst[i+0] = a
		dst[i+1] = r
		dst[i+2] = g
		dst[i+3] = b
	}
}

// Run blocks: it starts the input goroutine (if any), accepts connections
// until ctx is cancelled, the shortcut-driven Shutdown fires, or a fatal
// accept error occurs, then tears everything down (spec.md §4.8).
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if s.loop != nil {
		go func() {
			if err := s.loop.Run(ctx); err != nil {
				s.log.Error().Err(err).Msg("input loop exited")
			}
		}()
	}

	acceptErr := make(chan error, 1)
	go s.acceptLoop(acceptErr)

	select {
	case <-ctx.Done():
		s.log.Info().Msg("shutdown requested")
	case <-s.mgr.ShutdownCh():
		s.log.Info().Msg("shutdown requested via shortcut")
	case err := <-acceptErr:
		s.log.Error().Err(err).Msg("accept failed")
		s.teardown()
		return err
	}

	s.teardown()
	return nil
}

func (s *Server) acceptLoop(errCh chan<- error) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			errCh <- err
			return
		}
		go s.mgr.Handle(conn)
	}
}

func (s *Server) teardown() {
	_ = s.listener.Close()
	if s.loop != nil {
		s.loop.Close()
	}
	if err := s.backend.Shutdown(); err != nil {
		s.log.Error().Err(err).Msg("backend shutdown failed")
	}
	if uaddr, ok := s.listener.Addr().(*net.UnixAddr); ok {
		_ = os.Remove(uaddr.Name)
	}
}

// Background returns the background window id, exported for tests that
// need to assert on its rendering.
func (s *Server) Background() registry.WindowID {
	return registry.BackgroundID
}
