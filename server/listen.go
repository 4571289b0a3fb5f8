package server

import (
	"errors"
	"log"
	"net"
	"time"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
)

// startListener binds the room's event socket once and serves it until
// the server is closed.
func (s *Server) startListener(r *Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn != nil {
		return nil
	}
	if s.ctx.Err() != nil {
		return net.ErrClosed
	}

	pc, err := net.ListenPacket("udp", s.EventAddr(r.ID))
	if err != nil {
		return err
	}
	r.conn = pc

	log.Printf("[Canvas %d][UDP] Listening on %s", r.ID, pc.LocalAddr())

	s.wg.Add(1)
	go s.listen(r, pc)

	return nil
}

func (s *Server) listen(r *Room, pc net.PacketConn) {
	defer s.wg.Done()
	defer pc.Close()

	buf := make([]byte, 512)
	for s.ctx.Err() == nil {
		pc.SetReadDeadline(time.Now().Add(s.cfg.PollInterval))

		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				break
			}

			log.Printf("[Canvas %d][UDP] %v", r.ID, err)
			continue
		}

		s.handleEvent(r, pc, addr, buf[:n])
	}

	log.Printf("[Canvas %d][UDP] Listener stopped", r.ID)
}

// handleEvent applies one datagram and forwards it unchanged to every
// other peer of the room.
func (s *Server) handleEvent(r *Room, pc net.PacketConn, addr net.Addr, b []byte) {
	e, err := proto.DecodeEvent(b)
	if err != nil {
		log.Printf("[Canvas %d][UDP] Dropped %d byte packet from %s", r.ID, len(b), addr)
		return
	}
	if !e.Type.IsEvent() {
		log.Printf("[Canvas %d][UDP] Dropped %v from %s", r.ID, e.Type, addr)
		return
	}

	s.metrics.events.WithLabelValues(e.Type.String()).Inc()
	pkt := append([]byte(nil), b[:proto.EventSize]...)

	r.mu.Lock()

	key := addr.String()
	p, ok := r.peers[key]
	if !ok {
		p = &eventPeer{addr: addr}
		r.peers[key] = p
		log.Printf("[Canvas %d][UDP] New peer %s (%d total)", r.ID, key, len(r.peers))
	}

	switch e.Type {
	case proto.MsgDraw, proto.MsgLine:
		i, l := r.stack.Target(int(e.Layer))
		e.Paint(l)
		r.dirty = true

		if !p.drawing {
			p.drawing = true
			log.Printf("[Canvas %d][UDP] DRAW START %s layer=%d brush=%d", r.ID, key, i, e.Brush)
		}
	case proto.MsgCursor:
		if p.drawing {
			p.drawing = false
			log.Printf("[Canvas %d][UDP] DRAW END %s", r.ID, key)
		}
	}

	targets := make([]net.Addr, 0, len(r.peers))
	for k, o := range r.peers {
		if k != key {
			targets = append(targets, o.addr)
		}
	}

	r.mu.Unlock()

	for _, a := range targets {
		if _, err := pc.WriteTo(pkt, a); err != nil {
			log.Printf("[Canvas %d][UDP] Forward to %s: %v", r.ID, a, err)
		}
	}
	s.metrics.fanout.Add(float64(len(targets)))
}
