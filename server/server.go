// Package server hosts shared canvases. Each room owns its layers, a
// datagram listener for paint and cursor events and the control sessions
// of its users.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/internal/config"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/snapshot"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/transport"
)

type Server struct {
	cfg     *config.Config
	store   snapshot.Store
	reg     *prometheus.Registry
	metrics *metrics
	tracer  trace.Tracer
	started time.Time

	// EventAddr returns the address the event listener of room id binds.
	EventAddr func(id int) string

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	// saveMu serializes SaveAll so an older document never lands after a
	// newer one.
	saveMu sync.Mutex

	mu       sync.Mutex
	rooms    map[int]*Room
	sessions map[*Session]struct{}
}

func New(cfg *config.Config, store snapshot.Store) *Server {
	ctx, stop := context.WithCancel(context.Background())
	reg := prometheus.NewRegistry()

	s := &Server{
		cfg:     cfg,
		store:   store,
		reg:     reg,
		metrics: newMetrics(reg),
		tracer:  otel.Tracer("github.com/Bianca-Alexandru/Retele-CoopCanvas/server"),
		started: time.Now(),

		ctx:  ctx,
		stop: stop,

		rooms:    make(map[int]*Room),
		sessions: make(map[*Session]struct{}),
	}

	s.EventAddr = func(id int) string {
		return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port+1+id)
	}

	return s
}

// Uptime reports how long the server has been running in whole seconds.
func (s *Server) Uptime() float64 {
	return math.Floor(time.Since(s.started).Seconds())
}

// Registry holds the server's metrics.
func (s *Server) Registry() *prometheus.Registry { return s.reg }

// Room returns room id, creating it on first use.
func (s *Server) Room(id int) (*Room, error) {
	if id < 0 || id > MaxRoom {
		return nil, ErrRoomRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		r = newRoom(id, s.cfg.Width, s.cfg.Height, s.cfg.MaxLayers)
		s.rooms[id] = r
		s.metrics.rooms.Inc()
		log.Printf("[Canvas %d] Created (%dx%d, event port %s)", id, s.cfg.Width, s.cfg.Height, s.EventAddr(id))
	}

	return r, nil
}

// Lookup returns an existing room or nil.
func (s *Server) Lookup(id int) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rooms[id]
}

// Rooms returns every room ordered by id.
func (s *Server) Rooms() []*Room {
	s.mu.Lock()
	rooms := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r)
	}
	s.mu.Unlock()

	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

// Run accepts control connections from l until ctx is done, autosaving
// in the background. On the way out all sessions and listeners are closed
// and the canvases are saved one last time.
func (s *Server) Run(ctx context.Context, l transport.Listener) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	go s.autosave(ctx)

	log.Print("[Server] Listening on ", l.Addr())

	for {
		c, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				break
			}

			log.Print("[Server] ", err)
			continue
		}

		go s.Serve(ctx, c)
	}

	s.Close()

	if err := s.SaveAll(context.Background()); err != nil {
		return err
	}

	log.Print("[Server] Stopped")
	return nil
}

// Close ends every session and stops the room listeners.
func (s *Server) Close() {
	s.mu.Lock()
	for sess := range s.sessions {
		sess.kill()
	}
	s.mu.Unlock()

	s.stop()
	s.wg.Wait()
}

func (s *Server) track(sess *Session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()

	s.metrics.sessions.Inc()
}

func (s *Server) untrack(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess)
	s.mu.Unlock()

	s.metrics.sessions.Dec()
}
