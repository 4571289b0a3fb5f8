package export

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
)

func testCanvas() *raster.Layer {
	s := raster.NewStack(8, 4, 4)
	s.Layers[1].Set(2, 1, raster.Pixel{R: 200, A: 255})
	return s.Composite()
}

func TestImages(t *testing.T) {
	tests := []struct {
		format string
		decode func(*bytes.Buffer) (image.Image, error)
	}{
		{"png", func(b *bytes.Buffer) (image.Image, error) { return png.Decode(b) }},
		{"bmp", func(b *bytes.Buffer) (image.Image, error) { return bmp.Decode(b) }},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Encode(&buf, tt.format, testCanvas()); err != nil {
				t.Fatal(err)
			}

			img, err := tt.decode(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
				t.Fatalf("bounds = %v", b)
			}

			r, g, _, _ := img.At(2, 1).RGBA()
			if r>>8 != 200 || g != 0 {
				t.Errorf("stroke pixel = %d %d", r>>8, g>>8)
			}
			r, g, _, _ = img.At(0, 0).RGBA()
			if r>>8 != 255 || g>>8 != 255 {
				t.Errorf("paper pixel = %d %d", r>>8, g>>8)
			}
		})
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, "pdf", testCanvas()); err != nil {
		t.Fatal(err)
	}

	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("not a PDF: %q", buf.Bytes()[:8])
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "canvas.PNG")
	if err := WriteFile(path, testCanvas()); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		t.Errorf("stat = %v, %v", fi, err)
	}

	if err := WriteFile(filepath.Join(dir, "canvas.gif"), testCanvas()); !errors.Is(err, ErrFormat) {
		t.Errorf("err = %v, want ErrFormat", err)
	}
}
