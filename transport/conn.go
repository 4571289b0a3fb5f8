// Package transport carries control messages and raw layer payloads over
// a reliable ordered channel. Three carriers are provided: rudp datagrams
// (the default), a plain TCP stream and websocket binary frames.
package transport

import (
	"errors"
	"fmt"
	"net"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
)

var (
	ErrClosed   = errors.New("transport: connection closed")
	ErrFraming  = errors.New("transport: unexpected frame size")
	ErrNoScheme = errors.New("transport: unknown transport")
)

// Conn is one end of a reliable control channel. Reads must come from a
// single goroutine. Writes may be concurrent with reads but not with each
// other.
type Conn interface {
	ReadMessage() (proto.Control, error)

	// ReadPayload reads the n raw bytes that follow a control message
	// announcing a full layer.
	ReadPayload(n int) ([]byte, error)

	WriteMessage(m *proto.Control) error
	WritePayload(b []byte) error

	RemoteAddr() net.Addr
	Close() error
}

type Listener interface {
	Accept() (Conn, error)
	Addr() net.Addr
	Close() error
}

// Listen opens a listener of the named kind ("rudp" or "tcp") on addr.
// Websocket connections are accepted by the HTTP server instead.
func Listen(kind, addr string) (Listener, error) {
	switch kind {
	case "", "rudp":
		return ListenRUDP(addr)
	case "tcp":
		return ListenTCP(addr)
	}

	return nil, fmt.Errorf("%w: %q", ErrNoScheme, kind)
}

// Dial connects to a listener of the named kind. For "ws" addr is the
// websocket URL.
func Dial(kind, addr string) (Conn, error) {
	switch kind {
	case "", "rudp":
		return DialRUDP(addr)
	case "tcp":
		return DialTCP(addr)
	case "ws":
		return DialWS(addr)
	}

	return nil, fmt.Errorf("%w: %q", ErrNoScheme, kind)
}
