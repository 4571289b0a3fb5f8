package main

import (
	"os"
	"testing"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/internal/config"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
	"github.com/Bianca-Alexandru/Retele-CoopCanvas/snapshot"
)

func TestOpenStore(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	tests := []struct {
		name    string
		st      config.Storage
		wantErr bool
		check   func(snapshot.Store) bool
	}{
		{
			name:  "file",
			st:    config.Storage{Backend: "file", Path: "canvas.json"},
			check: func(s snapshot.Store) bool { _, ok := s.(*snapshot.FileStore); return ok },
		},
		{
			name:  "sqlite with file mirror",
			st:    config.Storage{Backend: "sqlite", Path: "c.sqlite", Mirror: "file"},
			check: func(s snapshot.Store) bool { m, ok := s.(*snapshot.MultiStore); return ok && len(m.Mirrors) == 1 },
		},
		{
			name:  "s3",
			st:    config.Storage{Backend: "s3", S3: config.S3{Bucket: "b", Region: "eu-west-1"}},
			check: func(s snapshot.Store) bool { _, ok := s.(*snapshot.S3Store); return ok },
		},
		{name: "s3 without bucket", st: config.Storage{Backend: "s3"}, wantErr: true},
		{name: "postgres without dsn", st: config.Storage{Backend: "postgres"}, wantErr: true},
		{name: "unknown", st: config.Storage{Backend: "tape"}, wantErr: true},
		{name: "self mirror", st: config.Storage{Backend: "file", Path: "x.json", Mirror: "file"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := openStore(tt.st)
			if tt.wantErr {
				if err == nil {
					s.Close()
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			defer s.Close()

			if !tt.check(s) {
				t.Errorf("got %T", s)
			}
		})
	}
}

func TestStackOf(t *testing.T) {
	l := raster.NewLayer(4, 4)
	l.Set(2, 1, raster.Pixel{B: 255, A: 255})

	doc := &snapshot.Document{
		Version: snapshot.Version,
		Width:   4,
		Height:  4,
		Canvases: []snapshot.Canvas{{
			ID:         1,
			LayerCount: 2,
			Layers:     []snapshot.LayerData{{Index: 2, Data: snapshot.EncodeLayer(l)}},
		}},
	}

	s := stackOf(doc, doc.Canvas(1))
	if s.Count() != 3 {
		t.Fatalf("count = %d", s.Count())
	}
	if got := s.Composite().At(2, 1); got != (raster.Pixel{B: 255, A: 255}) {
		t.Errorf("composite pixel = %v", got)
	}
	if encodedSize(doc.Canvas(1)) == 0 {
		t.Error("encodedSize() = 0")
	}
}
