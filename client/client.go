// Package client is the canvas client core a front end builds on. It
// logs into a room, keeps a local copy of the room's layers in sync with
// the server and records the user's edits for undo and redo.
package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/transport"
)

var (
	ErrClosed    = errors.New("client: closed")
	ErrHandshake = errors.New("client: unexpected reply to login")
)

// Options configures Dial. Only Addr is required.
type Options struct {
	// Addr is the server's control address, a websocket URL for "ws".
	Addr      string
	Transport string // rudp (default), tcp or ws
	Canvas    uint8
	Name      string

	// EventAddr returns the datagram address of a room. By default it is
	// the control port plus one plus the canvas id on the control host.
	EventAddr func(canvas uint8) string

	UndoDepth   int
	UndoTimeout time.Duration

	// Callbacks run on the client's reader goroutines.
	OnLayers    func(count, selected int)
	OnCursor    func(uid uint8, x, y int)
	OnSignature func(uid uint8, sig []byte)
	OnReject    func(r proto.Reject)
	OnClose     func(err error)
}

func (o *Options) eventAddr() (string, error) {
	if o.EventAddr != nil {
		return o.EventAddr(o.Canvas), nil
	}

	hostport := o.Addr
	if o.Transport == "ws" {
		u, err := url.Parse(o.Addr)
		if err != nil {
			return "", err
		}
		hostport = u.Host
	}

	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return "", err
	}

	return net.JoinHostPort(host, strconv.Itoa(p+1+int(o.Canvas))), nil
}

// A Pen describes how Draw and Line paint.
type Pen struct {
	Brush    raster.Brush
	Color    raster.Pixel
	Size     int
	Pressure uint8
}

type restore struct {
	index int
	pix   []byte
}

// A request is a layer add or delete the room has not answered yet. The
// room answers each of a session's requests in order, with an echo
// carrying the session's uid or with an error message.
type request struct {
	typ   proto.MsgType
	index int
	cmd   Command // history entry that issued it, if any
	pix   []byte  // synced into the layer once an add is confirmed
}

// A Client is one logged in user of a room.
type Client struct {
	opts Options

	conn transport.Conn
	wmu  sync.Mutex // serializes control writes

	udp *net.UDPConn

	uid    uint8
	canvas uint8

	mu       sync.Mutex
	stack    *raster.Stack
	selected int
	sigs     map[uint8][]byte
	inflight []request
	running  Command // history entry currently issuing requests

	hmu     sync.Mutex
	history *History
	stroke  *PaintCommand

	wg     sync.WaitGroup
	done   chan struct{}
	once   sync.Once
	closed error
}

// Dial connects, logs in and loads the room's canvas. The context bounds
// the handshake only.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	conn, err := transport.Dial(opts.Transport, opts.Addr)
	if err != nil {
		return nil, err
	}

	c := &Client{
		opts:    opts,
		conn:    conn,
		canvas:  opts.Canvas,
		sigs:    make(map[uint8][]byte),
		history: NewHistory(opts.UndoDepth, opts.UndoTimeout),
		done:    make(chan struct{}),
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	err = c.handshake()
	if !stop() {
		err = ctx.Err()
	}
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := c.openEvents(); err != nil {
		c.logout()
		conn.Close()
		return nil, err
	}

	c.wg.Add(2)
	go c.readControl()
	go c.readEvents()

	return c, nil
}

func (c *Client) handshake() error {
	login := proto.Login(c.canvas, c.opts.Name)
	if err := c.conn.WriteMessage(&login); err != nil {
		return err
	}

	var w proto.Control
	for {
		m, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}

		if m.Type == proto.MsgError {
			r, err := proto.ParseError(&m)
			if err != nil {
				return ErrHandshake
			}
			return r
		}
		if m.Type == proto.MsgWelcome {
			w = m
			break
		}

		log.Printf("[Client][Control] Ignoring %v before welcome", m.Type)
	}

	width, height, err := proto.WelcomeSize(&w)
	if err != nil {
		return err
	}

	c.uid = w.UserID
	c.stack = raster.NewStack(width, height, 255)
	c.stack.Grow(int(w.LayerCount))
	c.selected = 1

	size := raster.Size(width, height)
	for i := 1; i < int(w.LayerCount); i++ {
		m, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		if m.Type != proto.MsgCanvasData {
			return fmt.Errorf("%w: %v while loading layers", ErrHandshake, m.Type)
		}

		pix, err := c.conn.ReadPayload(size)
		if err != nil {
			return err
		}
		if l := c.stack.Layer(int(m.LayerID)); l != nil && m.LayerID > 0 {
			l.SetBytes(pix)
		}
	}

	log.Printf("[Client][Control] Logged into canvas #%d as uid %d, %dx%d with %d layers",
		c.canvas, c.uid, width, height, w.LayerCount)

	return nil
}

// openEvents connects the datagram socket and announces it to the room
// with a cursor event so that forwarding starts right away.
func (c *Client) openEvents() error {
	addr, err := c.opts.eventAddr()
	if err != nil {
		return err
	}

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}

	c.udp, err = net.DialUDP("udp", nil, raddr)
	if err != nil {
		return err
	}

	return c.Cursor(0, 0)
}

// UID is the id the room assigned to this client.
func (c *Client) UID() uint8 { return c.uid }

func (c *Client) Canvas() uint8 { return c.canvas }

// Size returns the canvas dimensions.
func (c *Client) Size() (w, h int) { return c.stack.W, c.stack.H }

// Done is closed when the client disconnects.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) send(m proto.Control, payload []byte) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	m.Canvas = c.canvas

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if err := c.conn.WriteMessage(&m); err != nil {
		return err
	}
	if payload != nil {
		return c.conn.WritePayload(payload)
	}
	return nil
}

func (c *Client) sendEvent(e *proto.Event) error {
	_, err := c.udp.Write(e.Encode())
	return err
}

func clampSize(n int) uint8 {
	if n < 0 {
		return 0
	}
	if n > 255 {
		return 255
	}
	return uint8(n)
}

func (c *Client) event(t proto.MsgType, p Pen, x, y int) proto.Event {
	c.mu.Lock()
	layer := c.selected
	c.mu.Unlock()

	e := proto.Event{
		Type:     t,
		Brush:    uint8(p.Brush),
		Layer:    uint8(layer),
		X:        int16(x),
		Y:        int16(y),
		Size:     clampSize(p.Size),
		Pressure: p.Pressure,
	}
	e.SetColor(p.Color)

	return e
}

func (c *Client) paint(e *proto.Event) {
	c.mu.Lock()
	_, l := c.stack.Target(int(e.Layer))
	e.Paint(l)
	c.mu.Unlock()
}

// Draw stamps pen at (x, y) on the selected layer and sends the event.
func (c *Client) Draw(p Pen, x, y int) error {
	e := c.event(proto.MsgDraw, p, x, y)
	c.paint(&e)
	return c.sendEvent(&e)
}

// Line paints a straight segment on the selected layer and sends it.
func (c *Client) Line(p Pen, x0, y0, x1, y1 int) error {
	e := c.event(proto.MsgLine, p, x0, y0)
	e.EX, e.EY = int16(x1), int16(y1)
	c.paint(&e)
	return c.sendEvent(&e)
}

// Cursor reports the pointer position. It also ends a stroke as seen by
// the room.
func (c *Client) Cursor(x, y int) error {
	e := proto.Event{Type: proto.MsgCursor, Brush: c.uid, X: int16(x), Y: int16(y)}
	return c.sendEvent(&e)
}

// LayerPixels returns a copy of layer i.
func (c *Client) LayerPixels(i int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stack.Drawable(i) {
		return nil
	}
	return append([]byte(nil), c.stack.Layers[i].Pix...)
}

// RestoreLayer installs pix as layer i and pushes it to the room.
func (c *Client) RestoreLayer(i int, pix []byte) error {
	c.mu.Lock()
	if !c.stack.Drawable(i) {
		c.mu.Unlock()
		return raster.ErrBadIndex
	}
	l := c.stack.Layers[i]
	if err := l.SetBytes(pix); err != nil {
		c.mu.Unlock()
		return err
	}
	out := append([]byte(nil), l.Pix...)
	c.mu.Unlock()

	return c.send(proto.Control{Type: proto.MsgLayerSync, LayerID: uint8(i)}, out)
}

// TranslateLayer moves layer i locally and asks the room to follow.
func (c *Client) TranslateLayer(i, dx, dy int) error {
	c.mu.Lock()
	if !c.stack.Drawable(i) {
		c.mu.Unlock()
		return raster.ErrBadIndex
	}
	c.stack.Layers[i].Translate(dx, dy)
	c.mu.Unlock()

	return c.send(proto.Move(c.canvas, uint8(i), dx, dy), nil)
}

// InsertLayer requests a layer at i and, once the room confirms it, syncs
// pix into it.
func (c *Client) InsertLayer(i int, pix []byte) error {
	return c.ask(proto.MsgLayerAdd, c.insertIndex(i), pix)
}

// RemoveLayer requests deletion of layer i.
func (c *Client) RemoveLayer(i int) error {
	return c.ask(proto.MsgLayerDelete, i, nil)
}

func (c *Client) insertIndex(i int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i <= 0 || i > c.stack.Count() {
		return c.stack.Count()
	}
	return i
}

// ask sends a layer add or delete and remembers it until the room
// answers. The request is registered before it goes out so that even an
// immediate refusal finds it.
func (c *Client) ask(t proto.MsgType, i int, pix []byte) error {
	c.mu.Lock()
	c.inflight = append(c.inflight, request{typ: t, index: i, cmd: c.running, pix: pix})
	c.mu.Unlock()

	return c.send(proto.Control{Type: t, LayerID: uint8(i)}, nil)
}

// answered takes the oldest unanswered request of type t off the list.
// A non-negative i prefers the oldest one for that layer. c.mu must be
// held.
func (c *Client) answered(t proto.MsgType, i int) (request, bool) {
	k := -1
	for j, r := range c.inflight {
		if r.typ != t {
			continue
		}
		if k < 0 {
			k = j
		}
		if i < 0 || r.index == i {
			k = j
			break
		}
	}
	if k < 0 {
		return request{}, false
	}

	r := c.inflight[k]
	c.inflight = append(c.inflight[:k], c.inflight[k+1:]...)
	return r, true
}

// within runs fn with cmd recorded as the issuer of its requests.
// c.hmu must be held.
func (c *Client) within(cmd Command, fn func() error) error {
	c.mu.Lock()
	c.running = cmd
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = nil
		c.mu.Unlock()
	}()

	return fn()
}

func (c *Client) record(cmd Command) {
	c.hmu.Lock()
	c.history.Push(cmd)
	c.hmu.Unlock()
}

// AddLayer asks for a new layer at index at, appending when at is out of
// range. The local stack changes when the room confirms.
func (c *Client) AddLayer(at int) error {
	at = c.insertIndex(at)
	cmd := &AddLayerCommand{Layer: at}

	c.hmu.Lock()
	defer c.hmu.Unlock()

	c.history.Push(cmd)
	err := c.within(cmd, func() error { return c.ask(proto.MsgLayerAdd, at, nil) })
	if err != nil {
		c.history.drop(cmd)
	}
	return err
}

// DeleteLayer asks for layer i to be removed, keeping its pixels for undo.
func (c *Client) DeleteLayer(i int) error {
	c.mu.Lock()
	var err error
	if !c.stack.Drawable(i) {
		err = raster.ErrBadIndex
	} else if c.stack.Count() <= 2 {
		err = raster.ErrLastLayer
	}
	c.mu.Unlock()
	if err != nil {
		return err
	}

	cmd := NewDeleteLayerCommand(c, i)

	c.hmu.Lock()
	defer c.hmu.Unlock()

	c.history.Push(cmd)
	err = c.within(cmd, func() error { return c.RemoveLayer(i) })
	if err != nil {
		c.history.drop(cmd)
	}
	return err
}

// MoveLayer translates layer i by (dx, dy) as one undoable step.
func (c *Client) MoveLayer(i, dx, dy int) error {
	if err := c.TranslateLayer(i, dx, dy); err != nil {
		return err
	}

	c.record(&MoveCommand{Layer: i, DX: dx, DY: dy})
	return nil
}

// ReorderLayer asks the room to move layer from to index to.
func (c *Client) ReorderLayer(from, to int) error {
	return c.send(proto.Reorder(c.canvas, from, to), nil)
}

// SelectLayer makes i the target of Draw and Line.
func (c *Client) SelectLayer(i int) error {
	c.mu.Lock()
	if !c.stack.Drawable(i) {
		c.mu.Unlock()
		return raster.ErrBadIndex
	}
	c.selected = i
	c.mu.Unlock()

	return c.send(proto.Control{Type: proto.MsgLayerSelect, LayerID: uint8(i)}, nil)
}

// SyncLayer pushes the local copy of layer i to the room.
func (c *Client) SyncLayer(i int) error {
	pix := c.LayerPixels(i)
	if pix == nil {
		return raster.ErrBadIndex
	}

	return c.send(proto.Control{Type: proto.MsgLayerSync, LayerID: uint8(i)}, pix)
}

// SendSignature publishes the user's packed signature.
func (c *Client) SendSignature(sig []byte) error {
	if len(sig) != proto.SignatureSize {
		return proto.ErrPayload
	}

	m := proto.Control{Type: proto.MsgSignature, UserID: c.uid}
	m.SetData(sig)
	return c.send(m, nil)
}

// Save asks the server to write its snapshot now.
func (c *Client) Save() error {
	return c.send(proto.Control{Type: proto.MsgSave}, nil)
}

// BeginStroke captures the selected layer before the user paints.
func (c *Client) BeginStroke() {
	c.mu.Lock()
	layer := c.selected
	c.mu.Unlock()

	c.hmu.Lock()
	c.stroke = NewPaintCommand(c, layer)
	c.hmu.Unlock()
}

// EndStroke records the stroke started by BeginStroke if it changed
// anything.
func (c *Client) EndStroke() {
	c.hmu.Lock()
	defer c.hmu.Unlock()

	s := c.stroke
	c.stroke = nil
	if s == nil {
		return
	}

	s.Finish(c)
	if s.Changed() {
		c.history.Push(s)
	}
}

func (c *Client) Undo() error {
	c.hmu.Lock()
	defer c.hmu.Unlock()

	next, _ := c.history.peek()
	return c.within(next, func() error { return c.history.Undo(c) })
}

func (c *Client) Redo() error {
	c.hmu.Lock()
	defer c.hmu.Unlock()

	_, next := c.history.peek()
	return c.within(next, func() error { return c.history.Redo(c) })
}

// History returns the sizes of the undo and redo stacks.
func (c *Client) History() (undo, redo int) {
	c.hmu.Lock()
	defer c.hmu.Unlock()

	return c.history.Len()
}

// Composite flattens the local layers.
func (c *Client) Composite() *raster.Layer {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stack.Composite()
}

// Layers returns the local layer count including the paper.
func (c *Client) Layers() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stack.Count()
}

func (c *Client) Selected() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.selected
}

// Layer returns a copy of local layer i or nil.
func (c *Client) Layer(i int) *raster.Layer {
	c.mu.Lock()
	defer c.mu.Unlock()

	l := c.stack.Layer(i)
	if l == nil {
		return nil
	}
	return l.Clone()
}

// Signature returns the last signature seen for uid.
func (c *Client) Signature(uid uint8) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sigs[uid]
}

func (c *Client) logout() {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	m := proto.Control{Type: proto.MsgLogout, Canvas: c.canvas}
	c.conn.WriteMessage(&m)
}

func (c *Client) shutdown(err error) {
	c.once.Do(func() {
		c.closed = err
		close(c.done)
		c.conn.Close()
		if c.udp != nil {
			c.udp.Close()
		}

		if c.opts.OnClose != nil {
			c.opts.OnClose(err)
		}
	})
}

// Close logs out and disconnects.
func (c *Client) Close() error {
	select {
	case <-c.done:
	default:
		c.logout()
		c.shutdown(nil)
	}

	c.wg.Wait()
	return nil
}

// Err returns why the client disconnected, nil after Close.
func (c *Client) Err() error {
	<-c.done
	return c.closed
}

func (c *Client) readControl() {
	defer c.wg.Done()

	size := raster.Size(c.stack.W, c.stack.H)
	for {
		m, err := c.conn.ReadMessage()
		if errors.Is(err, transport.ErrFraming) || errors.Is(err, proto.ErrShort) {
			continue
		}
		if err != nil {
			select {
			case <-c.done:
			default:
				log.Print("[Client][Control] ", err)
			}
			c.shutdown(err)
			return
		}

		var payload []byte
		if m.Type == proto.MsgLayerSync || m.Type == proto.MsgCanvasData {
			if payload, err = c.conn.ReadPayload(size); err != nil {
				c.shutdown(err)
				return
			}
		}

		c.apply(&m, payload)
	}
}

// apply updates the local state from a message of the room.
func (c *Client) apply(m *proto.Control, payload []byte) {
	var (
		layers bool
		redo   *restore
	)

	c.mu.Lock()
	switch m.Type {
	case proto.MsgLayerAdd:
		var req request
		if m.UserID == c.uid {
			req, _ = c.answered(proto.MsgLayerAdd, -1)
		}

		at, err := c.stack.Insert(int(m.LayerID))
		if err != nil {
			log.Printf("[Client][Control] LAYER_ADD %d: %v", m.LayerID, err)
			break
		}
		if at < c.stack.Count()-1 && c.selected >= at {
			c.selected++
		}
		if req.pix != nil {
			redo = &restore{at, req.pix}
		}
		layers = true
	case proto.MsgLayerDelete:
		i := int(m.LayerID)
		if m.UserID == c.uid {
			c.answered(proto.MsgLayerDelete, i)
		}
		if err := c.stack.Delete(i); err != nil {
			log.Printf("[Client][Control] LAYER_DEL %d: %v", i, err)
			break
		}
		c.selected = raster.SelectionAfterDelete(c.selected, i, c.stack.Count())
		layers = true
	case proto.MsgLayerReorder:
		from, to, err := proto.ReorderIndices(m)
		if err != nil || c.stack.Reorder(from, to) != nil {
			break
		}
		c.selected = raster.ShiftSelection(c.selected, from, to)
		layers = true
	case proto.MsgLayerMove:
		dx, dy, err := proto.MoveDelta(m)
		if err == nil && c.stack.Drawable(int(m.LayerID)) {
			c.stack.Layers[m.LayerID].Translate(dx, dy)
		}
	case proto.MsgLayerSync, proto.MsgCanvasData:
		if c.stack.Drawable(int(m.LayerID)) {
			c.stack.Layers[m.LayerID].SetBytes(payload)
		}
	case proto.MsgSignature:
		c.sigs[m.UserID] = append([]byte(nil), m.Payload()...)
	}
	count, selected := c.stack.Count(), c.selected
	c.mu.Unlock()

	switch m.Type {
	case proto.MsgSignature:
		if c.opts.OnSignature != nil {
			c.opts.OnSignature(m.UserID, m.Payload())
		}
	case proto.MsgError:
		r, err := proto.ParseError(m)
		if err != nil {
			log.Print("[Client][Control] Malformed error message")
			return
		}
		log.Print("[Client][Control] ", r)
		c.refused(r)
		if c.opts.OnReject != nil {
			c.opts.OnReject(r)
		}
	}

	if layers && c.opts.OnLayers != nil {
		c.opts.OnLayers(count, selected)
	}

	if redo != nil {
		if err := c.RestoreLayer(redo.index, redo.pix); err != nil {
			log.Printf("[Client][Control] Restoring layer %d: %v", redo.index, err)
		}
	}
}

// refused settles the request the room turned down. The history entry
// that issued it is dropped from whichever stack holds it, and a pending
// layer restore goes with it.
func (c *Client) refused(r proto.Reject) {
	if r.Type != proto.MsgLayerAdd && r.Type != proto.MsgLayerDelete {
		return
	}

	c.mu.Lock()
	req, ok := c.answered(r.Type, int(r.Layer))
	c.mu.Unlock()

	if !ok || req.cmd == nil {
		return
	}

	c.hmu.Lock()
	c.history.drop(req.cmd)
	c.hmu.Unlock()
}

func (c *Client) readEvents() {
	defer c.wg.Done()

	buf := make([]byte, 512)
	for {
		n, err := c.udp.Read(buf)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return
			}
			// ICMP unreachable and friends, keep listening.
			continue
		}

		e, err := proto.DecodeEvent(buf[:n])
		if err != nil {
			continue
		}

		switch e.Type {
		case proto.MsgDraw, proto.MsgLine:
			c.paint(&e)
		case proto.MsgCursor:
			if c.opts.OnCursor != nil {
				c.opts.OnCursor(e.Brush, int(e.X), int(e.Y))
			}
		}
	}
}
