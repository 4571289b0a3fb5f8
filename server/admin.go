package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/export"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/transport"
)

// Handler serves the admin HTTP interface: metrics, room listing, canvas
// exports, a save trigger and the websocket control endpoint.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	r.Get("/status", s.handleStatus)
	r.Get("/rooms", s.handleRooms)
	r.Get("/rooms/{id}", s.handleRoom)
	r.Get("/rooms/{id}/composite.{format}", s.handleComposite)
	r.Post("/save", s.handleSave)
	r.Get("/control", s.handleControl)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type serverStatus struct {
	Uptime   float64 `json:"uptime"`
	Rooms    int     `json:"rooms"`
	Sessions int     `json:"sessions"`
	Dirty    bool    `json:"dirty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := serverStatus{
		Uptime:   s.Uptime(),
		Rooms:    len(s.rooms),
		Sessions: len(s.sessions),
	}
	s.mu.Unlock()
	st.Dirty = s.Dirty()

	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.Rooms()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}

	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) roomParam(w http.ResponseWriter, r *http.Request) *Room {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "bad room id", http.StatusBadRequest)
		return nil
	}

	room := s.Lookup(id)
	if room == nil {
		http.Error(w, ErrNoRoom.Error(), http.StatusNotFound)
		return nil
	}

	return room
}

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	if room := s.roomParam(w, r); room != nil {
		writeJSON(w, http.StatusOK, room.Info())
	}
}

func (s *Server) handleComposite(w http.ResponseWriter, r *http.Request) {
	room := s.roomParam(w, r)
	if room == nil {
		return
	}

	format := chi.URLParam(r, "format")
	ct := export.ContentType(format)
	if ct == "application/octet-stream" {
		http.Error(w, "unknown format", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", ct)
	if err := export.Encode(w, format, room.Composite()); err != nil {
		log.Printf("[Admin] export canvas #%d: %v", room.ID, err)
	}
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	dirty := s.Dirty()
	if err := s.SaveAll(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"saved": dirty})
}

// handleControl upgrades to a websocket and runs a control session on it.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	c, err := transport.UpgradeWS(w, r)
	if err != nil {
		log.Print("[Admin] websocket: ", err)
		return
	}

	s.Serve(r.Context(), c)
}
