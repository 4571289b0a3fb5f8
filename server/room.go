package server

import (
	"errors"
	"net"
	"sort"
	"sync"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
)

var (
	ErrRoomRange = errors.New("room index out of range")
	ErrRoomFull  = errors.New("no free room uid")
	ErrNoRoom    = errors.New("no such room")
)

// MaxRoom is the highest canvas id, ids travel as one byte.
const MaxRoom = 255

// A User is the per-connection state of a logged in session.
type User struct {
	Name      string
	UID       uint8
	Signature []byte
	Layer     int // current selection
}

type eventPeer struct {
	addr    net.Addr
	drawing bool
}

// A Room is one shared canvas. Everything in it is guarded by mu.
type Room struct {
	ID int

	mu    sync.Mutex
	stack *raster.Stack
	dirty bool

	users map[*Session]*User
	peers map[string]*eventPeer

	conn net.PacketConn // nil until the listener runs
}

func newRoom(id, w, h, max int) *Room {
	return &Room{
		ID:    id,
		stack: raster.NewStack(w, h, max),
		users: make(map[*Session]*User),
		peers: make(map[string]*eventPeer),
	}
}

// addUser registers s with the smallest unused uid.
// r.mu must be held.
func (r *Room) addUser(s *Session, name string) (*User, error) {
	var used [MaxRoom + 1]bool
	for _, u := range r.users {
		used[u.UID] = true
	}

	for uid := 1; uid <= MaxRoom; uid++ {
		if !used[uid] {
			u := &User{Name: name, UID: uint8(uid), Layer: 1}
			r.users[s] = u
			return u, nil
		}
	}

	return nil, ErrRoomFull
}

// sessions returns the logged in sessions ordered by uid.
// r.mu must be held.
func (r *Room) sessions() []*Session {
	ss := make([]*Session, 0, len(r.users))
	for s := range r.users {
		ss = append(ss, s)
	}

	sort.Slice(ss, func(i, j int) bool {
		return r.users[ss[i]].UID < r.users[ss[j]].UID
	})

	return ss
}

// isDirty reports unsaved changes. r.mu must be held.
func (r *Room) isDirty() bool {
	return r.dirty || r.stack.Dirty()
}

// Addr is the bound event channel address or nil.
func (r *Room) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// RoomInfo is a point in time view of a room.
type RoomInfo struct {
	ID     int      `json:"id"`
	Layers int      `json:"layers"`
	Users  []string `json:"users"`
	Peers  int      `json:"peers"`
	Dirty  bool     `json:"dirty"`
	Events string   `json:"events,omitempty"`
}

func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := RoomInfo{
		ID:     r.ID,
		Layers: r.stack.Count(),
		Users:  []string{},
		Peers:  len(r.peers),
		Dirty:  r.isDirty(),
	}
	for _, s := range r.sessions() {
		info.Users = append(info.Users, r.users[s].Name)
	}
	if r.conn != nil {
		info.Events = r.conn.LocalAddr().String()
	}

	return info
}

// Composite flattens the room's layers.
func (r *Room) Composite() *raster.Layer {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stack.Composite()
}

// LayerCount returns the number of layers including the paper.
func (r *Room) LayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stack.Count()
}

// Layer returns a copy of layer i or nil.
func (r *Room) Layer(i int) *raster.Layer {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.stack.Layer(i)
	if l == nil {
		return nil
	}
	return l.Clone()
}
