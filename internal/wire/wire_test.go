// SPDX-License-Identifier: Unlicense OR MIT

package wire

import (
	"bytes"
	"testing"
)

func TestBufferReplyRoundTrip(t *testing.T) {
	want := BufferReply{Status: 0, Name: "bgce_buf_123_45", Width: 800, Height: 600}
	var msg Message
	EncodeBufferReply(&want, &msg)

	var got BufferReply
	if err := DecodeBufferReply(&msg, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeWrongType(t *testing.T) {
	msg := Message{Type: TypeDraw}
	var p BufferReply
	if err := DecodeBufferReply(&msg, &p); err != ErrMalformed {
		t.Fatalf("got %v, want ErrMalformed", err)
	}
}

func TestSendRecvRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	want := Message{Type: TypeDraw}
	if err := Send(&buf, &want); err != nil {
		t.Fatalf("send: %v", err)
	}
	var got Message
	if err := Recv(&buf, &got); err != nil {
		t.Fatalf("recv: %v", err)
	}
	if got.Type != want.Type {
		t.Fatalf("got type %v, want %v", got.Type, want.Type)
	}
}

func TestRecvClosed(t *testing.T) {
	var buf bytes.Buffer
	var msg Message
	if err := Recv(&buf, &msg); err != ErrClosed {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestServerInfoRoundTrip(t *testing.T) {
	want := ServerInfo{Width: 800, Height: 600, Depth: 32, Devices: []string{"mouse0", "kbd0"}}
	var msg Message
	EncodeServerInfo(&want, &msg)

	var got ServerInfo
	if err := DecodeServerInfo(&msg, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Width != want.Width || got.Height != want.Height || got.Depth != want.Depth {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.Devices) != 2 || got.Devices[0] != "mouse0" || got.Devices[1] != "kbd0" {
		t.Fatalf("got devices %v", got.Devices)
	}
}

// TestGetServerInfoPure checks property 6 from spec.md §8: two sequential
// encodes of the same value produce byte-identical payloads.
func TestGetServerInfoPure(t *testing.T) {
	info := ServerInfo{Width: 800, Height: 600, Depth: 32, Devices: []string{"mouse0"}}
	var a, b Message
	EncodeServerInfo(&info, &a)
	EncodeServerInfo(&info, &b)
	if a != b {
		t.Fatalf("GetServerInfo encoding is not pure")
	}
}
