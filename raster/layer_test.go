package raster

import "testing"

func TestLayerTranslate(t *testing.T) {
	l := NewLayer(4, 4)
	p := Pixel{1, 2, 3, 255}
	l.Set(0, 0, p)
	l.Set(3, 3, p)

	l.Translate(1, 2)

	if l.At(1, 2) != p {
		t.Errorf("At(1,2) = %v, want %v", l.At(1, 2), p)
	}
	if l.At(0, 0) != Transparent {
		t.Errorf("uncovered pixel = %v, want transparent", l.At(0, 0))
	}

	count := 0
	for i := 3; i < len(l.Pix); i += 4 {
		if l.Pix[i] != 0 {
			count++
		}
	}
	if count != 1 {
		t.Errorf("%d opaque pixels left, want 1 (the other shifted out)", count)
	}
}

func TestLayerSnapshotCache(t *testing.T) {
	l := NewLayer(2, 2)
	if _, ok := l.CachedSnapshot(); ok {
		t.Fatal("new layer should not have a valid cache")
	}

	l.SetCachedSnapshot("abc")
	if s, ok := l.CachedSnapshot(); !ok || s != "abc" {
		t.Fatalf("CachedSnapshot() = %q, %v", s, ok)
	}

	l.Set(1, 1, Pixel{A: 1})
	if _, ok := l.CachedSnapshot(); ok {
		t.Error("cache should be invalid after a write")
	}
}

func TestLayerSetBytes(t *testing.T) {
	l := NewLayer(2, 1)
	if err := l.SetBytes([]byte{1, 2, 3}); err != ErrSizeMismatch {
		t.Errorf("SetBytes short = %v, want ErrSizeMismatch", err)
	}

	b := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := l.SetBytes(b); err != nil {
		t.Fatal(err)
	}
	if l.At(1, 0) != (Pixel{5, 6, 7, 8}) {
		t.Errorf("At(1,0) = %v", l.At(1, 0))
	}

	b[0] = 99
	if l.Pix[0] == 99 {
		t.Error("SetBytes must copy")
	}
}
