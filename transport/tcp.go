package transport

import (
	"bufio"
	"errors"
	"io"
	"net"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
)

// StreamConn frames control messages on a byte stream by their fixed size.
type StreamConn struct {
	conn net.Conn
	r    *bufio.Reader
}

func NewStreamConn(c net.Conn) *StreamConn {
	return &StreamConn{conn: c, r: bufio.NewReaderSize(c, 64*1024)}
}

type TCPListener struct {
	net.Listener
}

func ListenTCP(addr string) (*TCPListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &TCPListener{Listener: l}, nil
}

func (l *TCPListener) Accept() (Conn, error) {
	c, err := l.Listener.Accept()
	if errors.Is(err, net.ErrClosed) {
		return nil, ErrClosed
	} else if err != nil {
		return nil, err
	}

	return NewStreamConn(c), nil
}

func DialTCP(addr string) (*StreamConn, error) {
	c, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}

	return NewStreamConn(c), nil
}

func (c *StreamConn) read(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(c.r, b); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}

	return b, nil
}

func (c *StreamConn) ReadMessage() (proto.Control, error) {
	b, err := c.read(proto.ControlSize)
	if err != nil {
		return proto.Control{}, err
	}

	return proto.DecodeControl(b)
}

func (c *StreamConn) ReadPayload(n int) ([]byte, error) {
	return c.read(n)
}

func (c *StreamConn) write(b []byte) error {
	_, err := c.conn.Write(b)
	if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return ErrClosed
	}

	return err
}

func (c *StreamConn) WriteMessage(m *proto.Control) error {
	return c.write(m.Encode())
}

func (c *StreamConn) WritePayload(b []byte) error {
	return c.write(b)
}

func (c *StreamConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *StreamConn) Close() error { return c.conn.Close() }
