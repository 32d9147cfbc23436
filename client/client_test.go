// SPDX-License-Identifier: Unlicense OR MIT

package client

import (
	"net"
	"testing"
	"time"

	"bgce/internal/displaybackend"
	"bgce/internal/session"
	"bgce/internal/shmbuf"
	"bgce/internal/world"
)

// newTestServer brings up a real session.Manager over an in-memory pipe,
// standing in for the listening Unix socket a real server would accept on.
func newTestServer(t *testing.T, w, h int) *Client {
	t.Helper()
	backend := displaybackend.NewOffscreen()
	info, err := backend.Init(w, h)
	if err != nil {
		t.Fatalf("init backend: %v", err)
	}
	wd := world.New(backend, info, shmbuf.NewAllocator(1))
	mgr := session.NewManager(wd, []string{"dev0"}, t.TempDir())

	clientConn, serverConn := net.Pipe()
	go mgr.Handle(serverConn)

	c := newClient(clientConn)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestGetServerInfo(t *testing.T) {
	c := newTestServer(t, 800, 600)

	info, err := c.GetServerInfo()
	if err != nil {
		t.Fatalf("GetServerInfo: %v", err)
	}
	if info.Width != 800 || info.Height != 600 || info.Depth != 32 {
		t.Fatalf("got %+v", info)
	}
	if len(info.Devices) != 1 || info.Devices[0] != "dev0" {
		t.Fatalf("devices = %v", info.Devices)
	}
}

func TestGetBufferMapsSharedMemory(t *testing.T) {
	c := newTestServer(t, 640, 480)

	buf, err := c.GetBuffer(64, 32)
	if err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	if len(buf) != 64*32*4 {
		t.Fatalf("mapped buffer size = %d, want %d", len(buf), 64*32*4)
	}

	// Writing into the mapped buffer must not panic or fault: it is a real
	// mmap'd /dev/shm region.
	buf[0] = 0xFF

	got, err := c.Buffer()
	if err != nil {
		t.Fatalf("Buffer: %v", err)
	}
	if got[0] != 0xFF {
		t.Fatalf("Buffer() did not return the same mapping")
	}
}

func TestBufferBeforeGetBufferErrors(t *testing.T) {
	c := newTestServer(t, 640, 480)
	if _, err := c.Buffer(); err != ErrNoBuffer {
		t.Fatalf("got %v, want ErrNoBuffer", err)
	}
}

func TestGetBufferTwiceRemapsWithoutLeaking(t *testing.T) {
	c := newTestServer(t, 640, 480)

	if _, err := c.GetBuffer(16, 16); err != nil {
		t.Fatalf("first GetBuffer: %v", err)
	}
	buf, err := c.GetBuffer(32, 16)
	if err != nil {
		t.Fatalf("second GetBuffer: %v", err)
	}
	if len(buf) != 32*16*4 {
		t.Fatalf("got remapped size %d, want %d", len(buf), 32*16*4)
	}
}

func TestDrawAndMoveRoundTrip(t *testing.T) {
	c := newTestServer(t, 640, 480)

	if _, err := c.GetBuffer(10, 10); err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	// This connection is the only, and therefore focused, client: Draw
	// must not error even though there is no reply to wait for.
	if err := c.Draw(); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if err := c.Move(5, 9); err != nil {
		t.Fatalf("Move: %v", err)
	}
}

func TestEventsDeliversFocusChangeOnConnect(t *testing.T) {
	c := newTestServer(t, 640, 480)

	if _, err := c.GetBuffer(10, 10); err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}

	select {
	case ev := <-c.Events():
		fc, ok := ev.(FocusChange)
		if !ok || !fc.Focused {
			t.Fatalf("got event %+v, want FocusChange{true}", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for FocusChange event")
	}
}
