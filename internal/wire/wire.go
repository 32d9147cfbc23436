// SPDX-License-Identifier: Unlicense OR MIT

// Package wire implements the fixed-layout message framing used on the
// bgce client/server socket. A single Send/Recv corresponds to exactly one
// logical message; partial reads and writes are completed before returning.
package wire

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Type identifies a message's payload variant.
type Type uint32

const (
	TypeGetServerInfo Type = 1
	TypeGetBuffer      Type = 2
	TypeDraw           Type = 3
	TypeMove           Type = 4
	TypeInputEvent     Type = 5
	TypeBufferChange   Type = 6
	TypeFocusChange    Type = 7
)

// payloadSize is the size in bytes of the largest union payload (BufferReply:
// status(4) + shm_name(64) + width(4) + height(4) = 76, rounded up).
const payloadSize = 128

// ErrMalformed indicates the received payload does not match the expected
// variant for its message type.
var ErrMalformed = errors.New("wire: malformed message")

// ErrClosed indicates the peer has shut down the connection.
var ErrClosed = errors.New("wire: connection closed")

// Message is a fixed-size record: a little-endian type tag followed by a
// fixed union payload large enough for the largest message.
type Message struct {
	Type    Type
	Payload [payloadSize]byte
}

const wireSize = 4 + payloadSize

// Send writes msg to w, blocking until all bytes are written.
func Send(w io.Writer, msg *Message) error {
	var buf [wireSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(msg.Type))
	copy(buf[4:], msg.Payload[:])
	// io.Writer guarantees a non-nil error whenever fewer than len(buf)
	// bytes are written, so one Write call either sends the whole record
	// or fails.
	if _, err := w.Write(buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			return ErrClosed
		}
		return errors.Wrap(err, "wire: send")
	}
	return nil
}

// Recv reads one fixed-size record from r, blocking until the full record
// has arrived. Returns ErrClosed on a clean peer shutdown.
func Recv(r io.Reader, msg *Message) error {
	var buf [wireSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrClosed
		}
		return errors.Wrap(err, "wire: recv")
	}
	msg.Type = Type(binary.LittleEndian.Uint32(buf[0:4]))
	copy(msg.Payload[:], buf[4:])
	return nil
}

// --- typed payload views ---

// GetBufferRequest is the GetBuffer request payload.
type GetBufferRequest struct {
	Width  uint32
	Height uint32
}

func (p *GetBufferRequest) Encode(msg *Message) {
	msg.Type = TypeGetBuffer
	binary.LittleEndian.PutUint32(msg.Payload[0:4], p.Width)
	binary.LittleEndian.PutUint32(msg.Payload[4:8], p.Height)
}

func (p *GetBufferRequest) Decode(msg *Message) error {
	if msg.Type != TypeGetBuffer {
		return ErrMalformed
	}
	p.Width = binary.LittleEndian.Uint32(msg.Payload[0:4])
	p.Height = binary.LittleEndian.Uint32(msg.Payload[4:8])
	return nil
}

// BufferReply answers GetBuffer and is also used, unsolicited, for
// BufferChange notifications after a resize.
type BufferReply struct {
	Status int32 // 0 on success, -1 on failure
	Name   string
	Width  uint32
	Height uint32
}

const shmNameLen = 64

func (p *BufferReply) encodeInto(msg *Message) {
	binary.LittleEndian.PutUint32(msg.Payload[0:4], uint32(p.Status))
	var name [shmNameLen]byte
	copy(name[:], p.Name)
	copy(msg.Payload[4:4+shmNameLen], name[:])
	binary.LittleEndian.PutUint32(msg.Payload[4+shmNameLen:8+shmNameLen], p.Width)
	binary.LittleEndian.PutUint32(msg.Payload[8+shmNameLen:12+shmNameLen], p.Height)
}

func (p *BufferReply) decodeFrom(msg *Message) {
	p.Status = int32(binary.LittleEndian.Uint32(msg.Payload[0:4]))
	name := msg.Payload[4 : 4+shmNameLen]
	n := 0
	for n < len(name) && name[n] != 0 {
		n++
	}
	p.Name = string(name[:n])
	p.Width = binary.LittleEndian.Uint32(msg.Payload[4+shmNameLen : 8+shmNameLen])
	p.Height = binary.LittleEndian.Uint32(msg.Payload[8+shmNameLen : 12+shmNameLen])
}

// EncodeBufferReply encodes a BufferReply as a reply to GetBuffer.
func EncodeBufferReply(p *BufferReply, msg *Message) {
	msg.Type = TypeGetBuffer
	p.encodeInto(msg)
}

// DecodeBufferReply decodes a GetBuffer reply.
func DecodeBufferReply(msg *Message, p *BufferReply) error {
	if msg.Type != TypeGetBuffer {
		return ErrMalformed
	}
	p.decodeFrom(msg)
	return nil
}

// EncodeBufferChange encodes an unsolicited server->client buffer change
// notification.
func EncodeBufferChange(p *BufferReply, msg *Message) {
	msg.Type = TypeBufferChange
	p.encodeInto(msg)
}

// DecodeBufferChange decodes a BufferChange notification.
func DecodeBufferChange(msg *Message, p *BufferReply) error {
	if msg.Type != TypeBufferChange {
		return ErrMalformed
	}
	p.decodeFrom(msg)
	return nil
}

// ServerInfo answers GetServerInfo.
type ServerInfo struct {
	Width   uint32
	Height  uint32
	Depth   uint32
	Devices []string
}

// ServerInfo is larger than the fixed payload can hold for an arbitrary
// device list, so only the fixed scalar fields travel on the wire; the
// device name list is capped and packed best-effort into the remaining
// space, newline-separated.
func EncodeServerInfo(p *ServerInfo, msg *Message) {
	msg.Type = TypeGetServerInfo
	binary.LittleEndian.PutUint32(msg.Payload[0:4], p.Width)
	binary.LittleEndian.PutUint32(msg.Payload[4:8], p.Height)
	binary.LittleEndian.PutUint32(msg.Payload[8:12], p.Depth)
	joined := ""
	for i, d := range p.Devices {
		if i > 0 {
			joined += "\n"
		}
		joined += d
	}
	b := []byte(joined)
	if len(b) > payloadSize-12 {
		b = b[:payloadSize-12]
	}
	copy(msg.Payload[12:], b)
}

func DecodeServerInfo(msg *Message, p *ServerInfo) error {
	if msg.Type != TypeGetServerInfo {
		return ErrMalformed
	}
	p.Width = binary.LittleEndian.Uint32(msg.Payload[0:4])
	p.Height = binary.LittleEndian.Uint32(msg.Payload[4:8])
	p.Depth = binary.LittleEndian.Uint32(msg.Payload[8:12])
	rest := msg.Payload[12:]
	n := 0
	for n < len(rest) && rest[n] != 0 {
		n++
	}
	p.Devices = splitNonEmpty(string(rest[:n]), '\n')
	return nil
}

func splitNonEmpty(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == sep {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

// MoveRequest is the Move request payload.
type MoveRequest struct {
	X int32
	Y int32
}

func (p *MoveRequest) Encode(msg *Message) {
	msg.Type = TypeMove
	binary.LittleEndian.PutUint32(msg.Payload[0:4], uint32(p.X))
	binary.LittleEndian.PutUint32(msg.Payload[4:8], uint32(p.Y))
}

func (p *MoveRequest) Decode(msg *Message) error {
	if msg.Type != TypeMove {
		return ErrMalformed
	}
	p.X = int32(binary.LittleEndian.Uint32(msg.Payload[0:4]))
	p.Y = int32(binary.LittleEndian.Uint32(msg.Payload[4:8]))
	return nil
}

// InputEvent is the server->client routed input event payload.
type InputEvent struct {
	Device uint32
	Code   uint32
	Value  int32
	X      int32
	Y      int32
}

func (p *InputEvent) Encode(msg *Message) {
	msg.Type = TypeInputEvent
	binary.LittleEndian.PutUint32(msg.Payload[0:4], p.Device)
	binary.LittleEndian.PutUint32(msg.Payload[4:8], p.Code)
	binary.LittleEndian.PutUint32(msg.Payload[8:12], uint32(p.Value))
	binary.LittleEndian.PutUint32(msg.Payload[12:16], uint32(p.X))
	binary.LittleEndian.PutUint32(msg.Payload[16:20], uint32(p.Y))
}

func (p *InputEvent) Decode(msg *Message) error {
	if msg.Type != TypeInputEvent {
		return ErrMalformed
	}
	p.Device = binary.LittleEndian.Uint32(msg.Payload[0:4])
	p.Code = binary.LittleEndian.Uint32(msg.Payload[4:8])
	p.Value = int32(binary.LittleEndian.Uint32(msg.Payload[8:12]))
	p.X = int32(binary.LittleEndian.Uint32(msg.Payload[12:16]))
	p.Y = int32(binary.LittleEndian.Uint32(msg.Payload[16:20]))
	return nil
}

// FocusChange is the server->client focus notification payload.
type FocusChange struct {
	Focused bool
}

func (p *FocusChange) Encode(msg *Message) {
	msg.Type = TypeFocusChange
	if p.Focused {
		msg.Payload[0] = 1
	} else {
		msg.Payload[0] = 0
	}
}

func (p *FocusChange) Decode(msg *Message) error {
	if msg.Type != TypeFocusChange {
		return ErrMalformed
	}
	p.Focused = msg.Payload[0] != 0
	return nil
}
