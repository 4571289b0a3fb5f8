package server

import (
	"context"
	"errors"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/snapshot"
)

// Dirty reports whether any room has unsaved changes.
func (s *Server) Dirty() bool {
	for _, r := range s.Rooms() {
		r.mu.Lock()
		dirty := r.isDirty()
		r.mu.Unlock()

		if dirty {
			return true
		}
	}

	return false
}

// SaveAll writes every room through the store. When nothing changed since
// the last save it returns at once without encoding, logging or I/O.
func (s *Server) SaveAll(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if !s.Dirty() {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "snapshot.save")
	defer span.End()

	start := time.Now()
	log.Print("[Server][Save] Saving dirty canvases")

	rooms := s.Rooms()
	doc := &snapshot.Document{
		Version: snapshot.Version,
		Width:   s.cfg.Width,
		Height:  s.cfg.Height,
	}

	for _, r := range rooms {
		if c, ok := r.encode(); ok {
			doc.Canvases = append(doc.Canvases, c)
		}
	}

	span.SetAttributes(attribute.Int("coopcanvas.canvases", len(doc.Canvases)))

	if err := s.store.Save(ctx, doc); err != nil {
		// Retry on the next cycle.
		for _, r := range rooms {
			r.mu.Lock()
			r.dirty = true
			r.mu.Unlock()
		}

		s.metrics.saves.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.metrics.saves.WithLabelValues("ok").Inc()
	s.metrics.saveTime.Observe(time.Since(start).Seconds())
	span.SetStatus(codes.Ok, "")

	log.Printf("[Server][Save] Saved %d canvases in %v", len(doc.Canvases), time.Since(start).Round(time.Millisecond))
	return nil
}

// encode snapshots the room and clears its dirty flags. Rooms that are
// blank and have nobody in them are left out of the document.
func (r *Room) encode() (snapshot.Canvas, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := snapshot.Canvas{
		ID:         r.ID,
		LayerCount: r.stack.Count() - 1,
	}

	content := false
	for i := 1; i < r.stack.Count(); i++ {
		l := r.stack.Layers[i]
		if !content && l.HasContent() {
			content = true
		}

		c.Layers = append(c.Layers, snapshot.LayerData{Index: i, Data: snapshot.Cached(l)})
	}

	if r.dirty {
		log.Printf("[Server][Save] Saving canvas #%d", r.ID)
	}
	r.dirty = false

	return c, content || len(r.users) > 0
}

// Load restores the rooms of the stored document. Without a stored
// document room 0 is created and saved.
func (s *Server) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "snapshot.load")
	defer span.End()

	doc, err := s.store.Load(ctx)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		log.Print("[Server][Load] No snapshot found, creating default canvas")
		if _, err := s.Room(0); err != nil {
			return err
		}
		return s.SaveAll(ctx)
	} else if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if doc.Width != s.cfg.Width || doc.Height != s.cfg.Height {
		log.Printf("[Server][Load] Snapshot is %dx%d, canvas is %dx%d", doc.Width, doc.Height, s.cfg.Width, s.cfg.Height)
	}

	for _, c := range doc.Canvases {
		r, err := s.Room(c.ID)
		if err != nil {
			log.Printf("[Server][Load] Skipping canvas #%d: %v", c.ID, err)
			continue
		}

		n := r.restore(c, doc.Width, doc.Height)
		log.Printf("[Server][Load] Canvas #%d: %d layers restored", c.ID, n)
	}

	span.SetAttributes(attribute.Int("coopcanvas.canvases", len(doc.Canvases)))
	return nil
}

func (r *Room) restore(c snapshot.Canvas, w, h int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := c.LayerCount + 1
	for _, l := range c.Layers {
		if l.Index+1 > want {
			want = l.Index + 1
		}
	}
	r.stack.Grow(want)

	n := 0
	for _, ld := range c.Layers {
		l := r.stack.Layer(ld.Index)
		if l == nil || ld.Index == 0 {
			continue
		}

		if err := snapshot.DecodeLayer(l, ld.Data, w, h); err != nil {
			log.Printf("[Server][Load] Canvas #%d layer %d: %v", r.ID, ld.Index, err)
			continue
		}
		if w == l.W && h == l.H {
			l.SetCachedSnapshot(ld.Data)
		}
		n++
	}

	r.dirty = false

	return n
}

func (s *Server) autosave(ctx context.Context) {
	if s.cfg.AutosaveInterval <= 0 {
		return
	}

	t := time.NewTicker(s.cfg.AutosaveInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			if err := s.SaveAll(ctx); err != nil {
				log.Print("[Server][Save] ", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Composite flattens room id.
func (s *Server) Composite(id int) (*raster.Layer, error) {
	r := s.Lookup(id)
	if r == nil {
		return nil, ErrNoRoom
	}

	return r.Composite(), nil
}
