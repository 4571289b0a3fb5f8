// Package export writes a flattened canvas as an image or a one page PDF.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/bmp"

	"github.com/Bianca-Alexandru/Retele-CoopCanvas/raster"
)

var ErrFormat = errors.New("export: unknown format")

// Formats lists the supported output formats.
var Formats = []string{"bmp", "png", "pdf"}

func ContentType(format string) string {
	switch format {
	case "bmp":
		return "image/bmp"
	case "png":
		return "image/png"
	case "pdf":
		return "application/pdf"
	}

	return "application/octet-stream"
}

// Encode writes l to w in the given format.
func Encode(w io.Writer, format string, l *raster.Layer) error {
	switch format {
	case "bmp":
		return bmp.Encode(w, l.Image())
	case "png":
		return png.Encode(w, l.Image())
	case "pdf":
		return encodePDF(w, l)
	}

	return fmt.Errorf("%w: %q", ErrFormat, format)
}

// encodePDF places the image on a page of the same size, one point per pixel.
func encodePDF(w io.Writer, l *raster.Layer) error {
	var img bytes.Buffer
	if err := png.Encode(&img, l.Image()); err != nil {
		return err
	}

	wd, ht := float64(l.W), float64(l.H)
	orientation := "P"
	if wd > ht {
		orientation = "L"
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: orientation,
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: wd, Ht: ht},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opt := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("canvas", opt, &img)
	pdf.ImageOptions("canvas", 0, 0, wd, ht, false, opt, 0, "")

	return pdf.Output(w)
}

// FormatOf returns the format implied by a file name.
func FormatOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// WriteFile encodes l into path, picking the format from its extension.
func WriteFile(path string, l *raster.Layer) error {
	format := FormatOf(path)
	if ContentType(format) == "application/octet-stream" {
		return fmt.Errorf("%w: %q", ErrFormat, format)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := Encode(f, format, l); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
