// SPDX-License-Identifier: Unlicense OR MIT

// Package client is a reference client library for the bgce protocol
// (spec.md §6), grounded on the original project's `bgce-client.c`/
// `libbgce` helpers: connect, query server info, request a shared pixel
// buffer, draw, move, and receive the asynchronous InputEvent/
// BufferChange/FocusChange notifications.
package client

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"bgce/internal/wire"
)

// ErrNoBuffer indicates Buffer was called before GetBuffer succeeded.
var ErrNoBuffer = errors.New("client: no buffer mapped")

// ServerInfo mirrors wire.ServerInfo for callers that don't want to
// depend on the internal wire package directly.
type ServerInfo struct {
	Width, Height uint32
	Depth         uint32
	Devices       []string
}

// Client is a connected session to a bgce server.
type Client struct {
	conn net.Conn

	mu     sync.Mutex
	data   []byte
	width  uint32
	height uint32

	events  chan Event
	replyCh chan *wire.Message
}

// Event is any of the server-pushed notifications: InputEvent,
// BufferChange, or FocusChange.
type Event interface{ isEvent() }

// InputEvent mirrors wire.InputEvent.
type InputEvent struct {
	Device uint32
	Code   uint32
	Value  int32
	X, Y   int32
}

func (InputEvent) isEvent() {}

// BufferChange mirrors wire.BufferReply as delivered unsolicited after a
// server-driven resize. The caller must remap (via Buffer) and re-draw.
type BufferChange struct {
	Name          string
	Width, Height uint32
}

func (BufferChange) isEvent() {}

// FocusChange mirrors wire.FocusChange.
type FocusChange struct{ Focused bool }

func (FocusChange) isEvent() {}

// Dial connects to the server's listening Unix socket and starts the
// background receive loop that feeds Events().
func Dial(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, errors.Wrap(err, "client: dial")
	}
	return newClient(conn), nil
}

// newClient wraps an already-connected net.Conn, starting the same
// background receive loop Dial does. Split out so tests can exercise the
// protocol over an in-memory net.Pipe rather than a real Unix socket.
func newClient(conn net.Conn) *Client {
	c := &Client{conn: conn, events: make(chan Event, 32), replyCh: make(chan *wire.Message)}
	go c.recvLoop()
	return c
}

// Close disconnects from the server.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Events returns the channel of asynchronous server notifications.
func (c *Client) Events() <-chan Event {
	return c.events
}

// GetServerInfo queries the display geometry and device list.
func (c *Client) GetServerInfo() (ServerInfo, error) {
	var msg wire.Message
	msg.Type = wire.TypeGetServerInfo
	if err := wire.Send(c.conn, &msg); err != nil {
		return ServerInfo{}, errors.Wrap(err, "client: send GetServerInfo")
	}
	reply, err := c.recvSync()
	if err != nil {
		return ServerInfo{}, err
	}
	var info wire.ServerInfo
	if err := wire.DecodeServerInfo(reply, &info); err != nil {
		return ServerInfo{}, err
	}
	return ServerInfo{Width: info.Width, Height: info.Height, Depth: info.Depth, Devices: info.Devices}, nil
}

// GetBuffer requests a width x height shared pixel buffer, maps it via
// /dev/shm + mmap, and returns it mapped into this process. A second call
// replaces the previous mapping (spec.md §4.7 replace-on-GetBuffer).
func (c *Client) GetBuffer(width, height uint32) ([]byte, error) {
	req := wire.GetBufferRequest{Width: width, Height: height}
	var msg wire.Message
	req.Encode(&msg)
	if err := wire.Send(c.conn, &msg); err != nil {
		return nil, errors.Wrap(err, "client: send GetBuffer")
	}
	reply, err := c.recvSync()
	if err != nil {
		return nil, err
	}
	var buf wire.BufferReply
	if err := wire.DecodeBufferReply(reply, &buf); err != nil {
		return nil, err
	}
	if buf.Status != 0 {
		return nil, errors.New("client: server rejected GetBuffer")
	}
	return c.remap(buf.Name, buf.Width, buf.Height)
}

// remap mmaps the named shared memory region and records it as the
// client's current buffer, unmapping any previous one.
func (c *Client) remap(name string, width, height uint32) ([]byte, error) {
	size := int(width) * int(height) * 4
	fd, err := unix.Open("/dev/shm/"+name, unix.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrap(err, "client: open shm")
	}
	defer unix.Close(fd)

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrap(err, "client: mmap")
	}

	c.mu.Lock()
	old := c.data
	c.data, c.width, c.height = data, width, height
	c.mu.Unlock()

	if old != nil {
		_ = unix.Munmap(old)
	}
	return data, nil
}

// Buffer returns the currently mapped pixel buffer, or ErrNoBuffer.
func (c *Client) Buffer() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return nil, ErrNoBuffer
	}
	return c.data, nil
}

// Draw asks the server to present the current buffer. It is silently
// dropped server-side unless this connection owns the focused window
// (spec.md §4.7).
func (c *Client) Draw() error {
	var msg wire.Message
	msg.Type = wire.TypeDraw
	return errors.Wrap(wire.Send(c.conn, &msg), "client: send Draw")
}

// Move requests the window be repositioned to (x,y). It is advisory and
// does not itself trigger a redraw (spec.md §4.7).
func (c *Client) Move(x, y int32) error {
	req := wire.MoveRequest{X: x, Y: y}
	var msg wire.Message
	req.Encode(&msg)
	return errors.Wrap(wire.Send(c.conn, &msg), "client: send Move")
}

// recvSync waits for the reply recvLoop routes to a synchronous request.
// Only one synchronous request may be outstanding at a time; GetServerInfo
// and GetBuffer are called sequentially by design, matching the original
// client's one-request-at-a-time protocol use.
func (c *Client) recvSync() (*wire.Message, error) {
	msg, ok := <-c.replyCh
	if !ok {
		return nil, errors.New("client: connection closed waiting for reply")
	}
	return msg, nil
}

// recvLoop is the connection's single reader, started by Dial. It routes
// synchronous replies (GetServerInfo, GetBuffer) to recvSync and delivers
// every other message as an unsolicited Event, so no two goroutines ever
// call wire.Recv on the same connection concurrently.
func (c *Client) recvLoop() {
	defer close(c.events)
	defer close(c.replyCh)
	for {
		var msg wire.Message
		if err := wire.Recv(c.conn, &msg); err != nil {
			return
		}
		switch msg.Type {
		case wire.TypeGetServerInfo, wire.TypeGetBuffer:
			c.replyCh <- &msg
		default:
			c.deliver(&msg)
		}
	}
}

func (c *Client) deliver(msg *wire.Message) {
	var ev Event
	switch msg.Type {
	case wire.TypeInputEvent:
		var p wire.InputEvent
		if p.Decode(msg) != nil {
			return
		}
		ev = InputEvent{Device: p.Device, Code: p.Code, Value: p.Value, X: p.X, Y: p.Y}
	case wire.TypeBufferChange:
		var p wire.BufferReply
		if wire.DecodeBufferChange(msg, &p) != nil {
			return
		}
		ev = BufferChange{Name: p.Name, Width: p.Width, Height: p.Height}
	case wire.TypeFocusChange:
		var p wire.FocusChange
		if p.Decode(msg) != nil {
			return
		}
		ev = FocusChange{Focused: p.Focused}
	default:
		return
	}

	select {
	case c.events <- ev:
	default:
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- ev:
		default:
		}
	}
}
