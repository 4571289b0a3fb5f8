package server

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/transport"
)

var errLogout = errors.New("logout")

type outbound struct {
	m       proto.Control
	payload []byte
}

// A Session is one control connection. Its room and user are set by login
// and only touched by the session's own goroutine afterwards; the User
// fields are guarded by the room lock.
type Session struct {
	ID   uuid.UUID
	srv  *Server
	conn transport.Conn

	room *Room
	user *User

	out  chan outbound
	done chan struct{}
	once sync.Once
}

func (sess *Session) String() string {
	return sess.ID.String()[:8]
}

// Serve runs the control session on c until the connection fails or the
// client logs out.
func (s *Server) Serve(ctx context.Context, c transport.Conn) {
	// Login queues a welcome, every layer and a signature per other user
	// at once, so the queue must hold at least that much.
	queue := max(s.cfg.SessionQueue, 1+s.cfg.MaxLayers+MaxRoom)

	sess := &Session{
		ID:   uuid.New(),
		srv:  s,
		conn: c,
		out:  make(chan outbound, queue),
		done: make(chan struct{}),
	}

	s.track(sess)
	defer s.untrack(sess)

	log.Printf("[Session %s] Connected from %s", sess, c.RemoteAddr())

	go sess.writeLoop()
	defer sess.leave()

	for {
		m, err := c.ReadMessage()
		if errors.Is(err, transport.ErrFraming) || errors.Is(err, proto.ErrShort) {
			log.Printf("[Session %s] Dropped malformed message", sess)
			continue
		}
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) {
				log.Printf("[Session %s] %v", sess, err)
			}
			return
		}

		if err := sess.handle(ctx, &m); err != nil {
			if !errors.Is(err, errLogout) {
				log.Printf("[Session %s] %v", sess, err)
			}
			return
		}
	}
}

// send queues a message for the writer. It never blocks: a session
// whose queue is full is too far behind and gets disconnected.
func (sess *Session) send(m proto.Control, payload []byte) {
	select {
	case sess.out <- outbound{m, payload}:
	case <-sess.done:
	default:
		log.Printf("[Session %s] Outbound queue full, disconnecting", sess)
		sess.kill()
	}
}

func (sess *Session) writeLoop() {
	for {
		select {
		case o := <-sess.out:
			err := sess.conn.WriteMessage(&o.m)
			if err == nil && o.payload != nil {
				err = sess.conn.WritePayload(o.payload)
			}
			if err != nil {
				if !errors.Is(err, transport.ErrClosed) {
					log.Printf("[Session %s] Write: %v", sess, err)
				}
				sess.kill()
				return
			}
		case <-sess.done:
			return
		}
	}
}

func (sess *Session) kill() {
	sess.once.Do(func() {
		close(sess.done)
		sess.conn.Close()
	})
}

func (sess *Session) leave() {
	if r := sess.room; r != nil {
		r.mu.Lock()
		delete(r.users, sess)
		left := len(r.users)
		r.mu.Unlock()

		sess.srv.metrics.users.Dec()
		log.Printf("[Canvas %d][TCP] %s (uid %d) left, %d remaining", r.ID, sess.user.Name, sess.user.UID, left)
	}

	sess.kill()
	log.Printf("[Session %s] Closed", sess)
}

// refuse drops a request, telling the client why when explicit rejects
// are enabled.
func (sess *Session) refuse(m *proto.Control, reason proto.Reason, text string) {
	log.Printf("[Session %s] %v refused: %v", sess, m.Type, reason)
	sess.srv.metrics.rejects.WithLabelValues(reason.String()).Inc()

	if sess.srv.cfg.ExplicitRejects {
		sess.send(proto.Error(m.Canvas, m.Type, m.LayerID, reason, text), nil)
	}
}

func (sess *Session) handle(ctx context.Context, m *proto.Control) error {
	sess.srv.metrics.control.WithLabelValues(m.Type.String()).Inc()

	if sess.room == nil {
		switch m.Type {
		case proto.MsgLogin:
			sess.login(m)
			return nil
		case proto.MsgLogout:
			return errLogout
		case proto.MsgLayerSync:
			// Keep the stream aligned.
			if _, err := sess.conn.ReadPayload(raster.Size(sess.srv.cfg.Width, sess.srv.cfg.Height)); err != nil {
				return err
			}
		}

		sess.refuse(m, proto.ReasonNotLoggedIn, "")
		return nil
	}

	switch m.Type {
	case proto.MsgLogin:
		log.Printf("[Session %s] Already logged in, login dropped", sess)
	case proto.MsgLogout:
		log.Printf("[Canvas %d][TCP] LOGOUT %s", sess.room.ID, sess.user.Name)
		return errLogout
	case proto.MsgSave:
		log.Printf("[Canvas %d][TCP] SAVE requested by %s", sess.room.ID, sess.user.Name)
		if err := sess.srv.SaveAll(ctx); err != nil {
			log.Print("[Server][Save] ", err)
		}
	case proto.MsgSignature:
		sess.signature(m)
	case proto.MsgLayerAdd:
		sess.addLayer(m)
	case proto.MsgLayerDelete:
		sess.deleteLayer(m)
	case proto.MsgLayerSelect:
		sess.selectLayer(m)
	case proto.MsgLayerSync:
		return sess.syncLayer(m)
	case proto.MsgLayerReorder:
		sess.reorderLayer(m)
	case proto.MsgLayerMove:
		sess.moveLayer(m)
	case proto.MsgDraw, proto.MsgCursor, proto.MsgLine:
		log.Printf("[Session %s] %v belongs on the event channel, dropped", sess, m.Type)
	default:
		log.Printf("[Session %s] Unknown message %v dropped", sess, m.Type)
	}

	return nil
}

func (sess *Session) login(m *proto.Control) {
	name := proto.Username(m)

	r, err := sess.srv.Room(int(m.Canvas))
	if err != nil {
		sess.refuse(m, proto.ReasonBadRoom, err.Error())
		return
	}

	if err := sess.srv.startListener(r); err != nil {
		log.Printf("[Canvas %d][UDP] %v", r.ID, err)
		sess.refuse(m, proto.ReasonBadRoom, "event channel unavailable")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.addUser(sess, name)
	if err != nil {
		sess.refuse(m, proto.ReasonRoomFull, "")
		return
	}
	sess.room, sess.user = r, u
	sess.srv.metrics.users.Inc()

	count := r.stack.Count()
	canvas := uint8(r.ID)

	sess.send(proto.Welcome(canvas, u.UID, uint8(count), r.stack.W, r.stack.H), nil)

	for i := 1; i < count; i++ {
		sess.send(proto.Control{
			Type:       proto.MsgCanvasData,
			Canvas:     canvas,
			LayerID:    uint8(i),
			LayerCount: uint8(count),
		}, r.stack.Layers[i].Bytes())
	}

	for _, o := range r.sessions() {
		ou := r.users[o]
		if o == sess || ou.Signature == nil {
			continue
		}

		sig := proto.Control{Type: proto.MsgSignature, Canvas: canvas, UserID: ou.UID}
		sig.SetData(ou.Signature)
		sess.send(sig, nil)
	}

	log.Printf("[Canvas %d][TCP] LOGIN %q uid=%d layers=%d users=%d", r.ID, name, u.UID, count, len(r.users))
}

// broadcast queues m for every session in the room but except.
// r.mu must be held.
func (r *Room) broadcast(m proto.Control, payload []byte, except *Session) {
	for _, s := range r.sessions() {
		if s != except {
			s.send(m, payload)
		}
	}
}

func (sess *Session) signature(m *proto.Control) {
	p := m.Payload()
	if len(p) != proto.SignatureSize {
		sess.refuse(m, proto.ReasonBadPayload, "signature must be 128 bytes")
		return
	}

	r := sess.room
	r.mu.Lock()
	defer r.mu.Unlock()

	sess.user.Signature = append([]byte(nil), p...)

	out := proto.Control{Type: proto.MsgSignature, Canvas: uint8(r.ID), UserID: sess.user.UID}
	out.SetData(sess.user.Signature)
	r.broadcast(out, nil, nil)

	log.Printf("[Canvas %d][TCP] SIGNATURE from uid=%d", r.ID, sess.user.UID)
}

func (sess *Session) addLayer(m *proto.Control) {
	r := sess.room
	r.mu.Lock()
	defer r.mu.Unlock()

	at, err := r.stack.Insert(int(m.LayerID))
	if err != nil {
		sess.refuse(m, proto.ReasonLayerLimit, "")
		return
	}
	r.dirty = true

	count := r.stack.Count()
	if at < count-1 {
		for _, u := range r.users {
			if u.Layer >= at {
				u.Layer++
			}
		}
	}

	r.broadcast(proto.Control{
		Type:       proto.MsgLayerAdd,
		Canvas:     uint8(r.ID),
		UserID:     sess.user.UID,
		LayerID:    uint8(at),
		LayerCount: uint8(count),
	}, nil, nil)

	log.Printf("[Canvas %d][TCP] LAYER_ADD at=%d layers=%d", r.ID, at, count)
}

func (sess *Session) deleteLayer(m *proto.Control) {
	r := sess.room
	r.mu.Lock()
	defer r.mu.Unlock()

	i := int(m.LayerID)
	if err := r.stack.Delete(i); err != nil {
		if errors.Is(err, raster.ErrLastLayer) {
			sess.refuse(m, proto.ReasonLastLayer, "")
		} else {
			sess.refuse(m, proto.ReasonBadIndex, "")
		}
		return
	}
	r.dirty = true

	count := r.stack.Count()
	for _, u := range r.users {
		u.Layer = raster.SelectionAfterDelete(u.Layer, i, count)
	}

	r.broadcast(proto.Control{
		Type:       proto.MsgLayerDelete,
		Canvas:     uint8(r.ID),
		UserID:     sess.user.UID,
		LayerID:    uint8(i),
		LayerCount: uint8(count),
	}, nil, nil)

	log.Printf("[Canvas %d][TCP] LAYER_DEL %d layers=%d", r.ID, i, count)
}

func (sess *Session) selectLayer(m *proto.Control) {
	r := sess.room
	r.mu.Lock()
	defer r.mu.Unlock()

	i := int(m.LayerID)
	if !r.stack.Drawable(i) {
		sess.refuse(m, proto.ReasonBadIndex, "")
		return
	}

	sess.user.Layer = i
}

// syncLayer installs a full layer sent by the client. The payload is
// always read, even when the request is refused.
func (sess *Session) syncLayer(m *proto.Control) error {
	r := sess.room
	payload, err := sess.conn.ReadPayload(raster.Size(r.stack.W, r.stack.H))
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	i := int(m.LayerID)
	if !r.stack.Drawable(i) {
		sess.refuse(m, proto.ReasonBadIndex, "")
		return nil
	}

	r.stack.Layers[i].SetBytes(payload)
	r.dirty = true

	r.broadcast(proto.Control{
		Type:       proto.MsgLayerSync,
		Canvas:     uint8(r.ID),
		LayerID:    uint8(i),
		LayerCount: uint8(r.stack.Count()),
		UserID:     sess.user.UID,
	}, payload, sess)

	log.Printf("[Canvas %d][TCP] LAYER_SYNC %d from uid=%d", r.ID, i, sess.user.UID)
	return nil
}

func (sess *Session) reorderLayer(m *proto.Control) {
	from, to, err := proto.ReorderIndices(m)
	if err != nil {
		sess.refuse(m, proto.ReasonBadPayload, "")
		return
	}

	r := sess.room
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.stack.Reorder(from, to); err != nil {
		sess.refuse(m, proto.ReasonBadIndex, "")
		return
	}

	if from != to {
		r.dirty = true
		for _, u := range r.users {
			u.Layer = raster.ShiftSelection(u.Layer, from, to)
		}
	}

	echo := proto.Reorder(uint8(r.ID), from, to)
	echo.LayerCount = uint8(r.stack.Count())
	echo.UserID = sess.user.UID
	r.broadcast(echo, nil, nil)

	log.Printf("[Canvas %d][TCP] LAYER_REORDER %d -> %d", r.ID, from, to)
}

func (sess *Session) moveLayer(m *proto.Control) {
	dx, dy, err := proto.MoveDelta(m)
	if err != nil {
		sess.refuse(m, proto.ReasonBadPayload, "")
		return
	}

	r := sess.room
	r.mu.Lock()
	defer r.mu.Unlock()

	i := int(m.LayerID)
	if !r.stack.Drawable(i) {
		sess.refuse(m, proto.ReasonBadIndex, "")
		return
	}

	r.stack.Layers[i].Translate(dx, dy)
	r.dirty = true

	echo := proto.Move(uint8(r.ID), uint8(i), dx, dy)
	echo.LayerCount = uint8(r.stack.Count())
	echo.UserID = sess.user.UID
	r.broadcast(echo, nil, sess)

	log.Printf("[Canvas %d][TCP] LAYER_MOVE %d by (%d, %d)", r.ID, i, dx, dy)
}
