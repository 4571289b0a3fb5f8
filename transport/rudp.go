package transport

import (
	"errors"
	"log"
	"net"

	"github.com/anon55555/mt/rudp"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
)

// RUDPConn sends every message and payload as one reliable packet on
// channel 0. Large payloads are split and reassembled by rudp.
type RUDPConn struct {
	*rudp.Peer
}

type RUDPListener struct {
	*rudp.Listener
}

func ListenRUDP(addr string) (*RUDPListener, error) {
	pc, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, err
	}

	return &RUDPListener{Listener: rudp.Listen(pc)}, nil
}

// Accept waits for the next peer. Malformed packets from strangers are
// logged and skipped; once the socket is closed it returns ErrClosed.
func (l *RUDPListener) Accept() (Conn, error) {
	for {
		p, err := l.Listener.Accept()
		if err == nil {
			return &RUDPConn{Peer: p}, nil
		}
		if errors.Is(err, rudp.ErrClosed) || errors.Is(err, net.ErrClosed) {
			return nil, ErrClosed
		}

		log.Print("[RUDP] ", err)
	}
}

func (l *RUDPListener) Addr() net.Addr { return l.Conn().LocalAddr() }

func (l *RUDPListener) Close() error { return l.Conn().Close() }

// DialRUDP connects from a fresh local port. The peer only becomes known to
// the server once the first message is sent.
func DialRUDP(addr string) (*RUDPConn, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}

	pc, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, err
	}

	return &RUDPConn{Peer: rudp.Connect(pc, raddr)}, nil
}

func (c *RUDPConn) recv() ([]byte, error) {
	for {
		pkt, err := c.Recv()
		if err == nil {
			return pkt.Data, nil
		}
		if errors.Is(err, rudp.ErrClosed) {
			return nil, ErrClosed
		}

		log.Print("[RUDP] ", c.Addr(), " ", err)
	}
}

func (c *RUDPConn) ReadMessage() (proto.Control, error) {
	b, err := c.recv()
	if err != nil {
		return proto.Control{}, err
	}
	if len(b) != proto.ControlSize {
		return proto.Control{}, ErrFraming
	}

	return proto.DecodeControl(b)
}

func (c *RUDPConn) ReadPayload(n int) ([]byte, error) {
	buf := make([]byte, 0, n)
	for len(buf) < n {
		b, err := c.recv()
		if err != nil {
			return nil, err
		}
		buf = append(buf, b...)
	}
	if len(buf) != n {
		return nil, ErrFraming
	}

	return buf, nil
}

func (c *RUDPConn) send(b []byte) error {
	_, err := c.Send(rudp.Pkt{Data: b})
	if errors.Is(err, rudp.ErrClosed) {
		return ErrClosed
	}

	return err
}

func (c *RUDPConn) WriteMessage(m *proto.Control) error {
	return c.send(m.Encode())
}

func (c *RUDPConn) WritePayload(b []byte) error {
	return c.send(b)
}

func (c *RUDPConn) RemoteAddr() net.Addr { return c.Addr() }

// Close tells the other side and releases the peer.
func (c *RUDPConn) Close() error {
	c.SendDisco(0, true)
	return c.Peer.Close()
}
