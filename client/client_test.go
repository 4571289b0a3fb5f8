package client

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/internal/config"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/proto"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/server"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/snapshot"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/transport"
)

func startServer(t *testing.T) (*server.Server, string) {
	t.Helper()

	cfg := config.Resolve(config.Tree{})
	cfg.Width, cfg.Height = 32, 32
	cfg.MaxLayers = 4
	cfg.Transport = "tcp"
	cfg.PollInterval = 20 * time.Millisecond
	cfg.AutosaveInterval = 0

	srv := server.New(cfg, snapshot.NewFileStore(filepath.Join(t.TempDir(), "canvas.json")))
	srv.EventAddr = func(int) string { return "127.0.0.1:0" }

	l, err := transport.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx, l)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return srv, l.Addr().String()
}

func dial(t *testing.T, srv *server.Server, addr, name string, edit func(*Options)) *Client {
	t.Helper()

	opts := Options{
		Addr:      addr,
		Transport: "tcp",
		Name:      name,
		EventAddr: func(id uint8) string { return srv.Lookup(int(id)).Addr().String() },
	}
	if edit != nil {
		edit(&opts)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })

	return c
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestConvergence(t *testing.T) {
	srv, addr := startServer(t)
	a := dial(t, srv, addr, "alice", nil)
	b := dial(t, srv, addr, "bob", nil)

	if a.UID() != 1 || b.UID() != 2 {
		t.Fatalf("uids = %d, %d", a.UID(), b.UID())
	}

	room := srv.Lookup(0)
	eventually(t, "both event peers", func() bool { return room.Info().Peers == 2 })

	if err := a.AddLayer(0); err != nil {
		t.Fatal(err)
	}
	eventually(t, "layer add", func() bool { return a.Layers() == 3 && b.Layers() == 3 })

	if err := a.SelectLayer(2); err != nil {
		t.Fatal(err)
	}

	pen := Pen{Brush: raster.BrushSquare, Color: red, Size: 3}
	a.BeginStroke()
	a.Draw(pen, 5, 5)
	a.EndStroke()

	if a.Layer(2).At(5, 5) != red {
		t.Fatal("local draw not applied")
	}
	eventually(t, "draw on b", func() bool { return b.Layer(2).At(5, 5) == red })

	if err := a.Undo(); err != nil {
		t.Fatal(err)
	}
	eventually(t, "undo on b", func() bool { return b.Layer(2).At(5, 5) == raster.Transparent })
	eventually(t, "undo on the server", func() bool { return room.Layer(2).At(5, 5) == raster.Transparent })

	if err := a.Redo(); err != nil {
		t.Fatal(err)
	}
	eventually(t, "redo on b", func() bool { return b.Layer(2).At(5, 5) == red })

	if err := a.DeleteLayer(2); err != nil {
		t.Fatal(err)
	}
	eventually(t, "delete", func() bool { return a.Layers() == 2 && b.Layers() == 2 })

	if err := a.Undo(); err != nil {
		t.Fatal(err)
	}
	eventually(t, "restored layer on b", func() bool {
		l := b.Layer(2)
		return l != nil && l.At(5, 5) == red
	})

	if !bytes.Equal(a.Composite().Pix, b.Composite().Pix) {
		t.Error("composites differ")
	}
}

func TestMoveReachesPeers(t *testing.T) {
	srv, addr := startServer(t)
	a := dial(t, srv, addr, "a", nil)
	b := dial(t, srv, addr, "b", nil)

	eventually(t, "both event peers", func() bool { return srv.Lookup(0).Info().Peers == 2 })

	a.Draw(Pen{Brush: raster.BrushRound, Color: red, Size: 1}, 4, 4)
	eventually(t, "draw on b", func() bool { return b.Layer(1).At(4, 4) == red })

	if err := a.MoveLayer(1, 2, 1); err != nil {
		t.Fatal(err)
	}
	eventually(t, "move on b", func() bool { return b.Layer(1).At(6, 5) == red })

	a.Undo()
	eventually(t, "move undone on b", func() bool { return b.Layer(1).At(4, 4) == red })
}

func TestRejectedAddForgotten(t *testing.T) {
	srv, addr := startServer(t)

	rejects := make(chan proto.Reject, 4)
	a := dial(t, srv, addr, "a", func(o *Options) {
		o.OnReject = func(r proto.Reject) { rejects <- r }
	})

	a.AddLayer(0)
	a.AddLayer(0)
	a.AddLayer(0)

	select {
	case r := <-rejects:
		if r.Type != proto.MsgLayerAdd || r.Reason != proto.ReasonLayerLimit {
			t.Errorf("reject = %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reject")
	}

	if u, _ := a.History(); u != 2 {
		t.Errorf("undo entries = %d, want 2", u)
	}
	if a.Layers() != 4 {
		t.Errorf("layers = %d", a.Layers())
	}

	if err := a.DeleteLayer(9); err != raster.ErrBadIndex {
		t.Errorf("DeleteLayer(9) = %v", err)
	}
}

func TestRefusedUndoOfDelete(t *testing.T) {
	srv, addr := startServer(t)

	rejects := make(chan proto.Reject, 4)
	a := dial(t, srv, addr, "alice", func(o *Options) {
		o.OnReject = func(r proto.Reject) { rejects <- r }
	})
	b := dial(t, srv, addr, "bob", nil)

	if err := a.AddLayer(0); err != nil {
		t.Fatal(err)
	}
	eventually(t, "add", func() bool { return a.Layers() == 3 && b.Layers() == 3 })

	if err := a.DeleteLayer(2); err != nil {
		t.Fatal(err)
	}
	eventually(t, "delete", func() bool { return a.Layers() == 2 && b.Layers() == 2 })

	b.AddLayer(0)
	b.AddLayer(0)
	eventually(t, "room full", func() bool { return a.Layers() == 4 && b.Layers() == 4 })

	if u, r := a.History(); u != 2 || r != 0 {
		t.Fatalf("history = %d/%d, want 2/0", u, r)
	}

	if err := a.Undo(); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-rejects:
		if r.Type != proto.MsgLayerAdd || r.Reason != proto.ReasonLayerLimit {
			t.Fatalf("reject = %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reject")
	}

	if u, r := a.History(); u != 1 || r != 0 {
		t.Errorf("history = %d/%d, want 1/0", u, r)
	}

	a.mu.Lock()
	left := len(a.inflight)
	a.mu.Unlock()
	if left != 0 {
		t.Errorf("%d requests left unanswered", left)
	}

	// A later add by someone else must not receive alice's old pixels.
	if err := b.DeleteLayer(3); err != nil {
		t.Fatal(err)
	}
	eventually(t, "delete by bob", func() bool { return a.Layers() == 3 && b.Layers() == 3 })
	if err := b.AddLayer(0); err != nil {
		t.Fatal(err)
	}
	eventually(t, "add by bob", func() bool { return a.Layers() == 4 })

	time.Sleep(50 * time.Millisecond)
	if l := srv.Lookup(0).Layer(3); l == nil || l.HasContent() {
		t.Error("new layer received content")
	}
}

func TestSignatureAndCursor(t *testing.T) {
	srv, addr := startServer(t)

	cursors := make(chan uint8, 16)
	a := dial(t, srv, addr, "a", nil)
	b := dial(t, srv, addr, "b", func(o *Options) {
		o.OnCursor = func(uid uint8, x, y int) {
			if x == 9 && y == 9 {
				cursors <- uid
			}
		}
	})

	eventually(t, "both event peers", func() bool { return srv.Lookup(0).Info().Peers == 2 })

	sig := make([]byte, proto.SignatureSize)
	sig[3] = 0x55
	if err := a.SendSignature(sig); err != nil {
		t.Fatal(err)
	}
	eventually(t, "signature on b", func() bool { return bytes.Equal(b.Signature(a.UID()), sig) })

	a.Cursor(9, 9)
	select {
	case uid := <-cursors:
		if uid != a.UID() {
			t.Errorf("cursor uid = %d", uid)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no cursor")
	}

	if err := a.SendSignature([]byte{1}); err == nil {
		t.Error("short signature accepted")
	}
}

func TestEventAddr(t *testing.T) {
	tests := []struct {
		opts Options
		want string
	}{
		{Options{Addr: "10.0.0.1:6769", Canvas: 3}, "10.0.0.1:6773"},
		{Options{Addr: "ws://example.org:8080/control", Transport: "ws"}, "example.org:8081"},
	}

	for _, tt := range tests {
		got, err := tt.opts.eventAddr()
		if err != nil || got != tt.want {
			t.Errorf("eventAddr(%q) = %q, %v, want %q", tt.opts.Addr, got, err, tt.want)
		}
	}
}

func TestParseEntry(t *testing.T) {
	e := &mdns.ServiceEntry{
		Name:       "studio." + proto.ServiceType + ".local.",
		AddrV4:     net.IPv4(192, 168, 1, 5),
		Port:       6769,
		InfoFields: []string{"transport=tcp", "size=640x480"},
	}

	f, ok := parseEntry(e)
	if !ok {
		t.Fatal("entry rejected")
	}
	want := Found{Instance: "studio", Addr: "192.168.1.5:6769", Transport: "tcp", Width: 640, Height: 480}
	if f != want {
		t.Errorf("parseEntry() = %+v, want %+v", f, want)
	}

	if _, ok := parseEntry(&mdns.ServiceEntry{Port: 1}); ok {
		t.Error("entry without address accepted")
	}
}
