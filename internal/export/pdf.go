package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/go-pdf/fpdf"
)

// BuildPDF lays a captured bitmap onto landscape A4 pages, scaled to the
// page width with the height following the aspect ratio. A bitmap
// taller than one page continues on further pages.
func BuildPDF(bitmap []byte) ([]byte, int, error) {
	src, err := imaging.Decode(bytes.NewReader(bitmap))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode capture: %w", err)
	}

	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, 0, errors.New("capture is empty")
	}

	flat := FlattenOnWhite(src)

	pdf := fpdf.New("L", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("mgnrega-portal", true)
	pageW, pageH := pdf.GetPageSize()

	slices := PageSlices(w, h, pageW, pageH)
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	for i, s := range slices {
		part := imaging.Crop(flat, s)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, part, imaging.PNG); err != nil {
			return nil, 0, fmt.Errorf("failed to encode page %d: %w", i+1, err)
		}

		name := fmt.Sprintf("report-%d", i)
		pdf.RegisterImageOptionsReader(name, opts, &buf)
		pdf.AddPage()
		partH := float64(s.Dy()) * pageW / float64(w)
		pdf.ImageOptions(name, 0, 0, pageW, partH, false, opts, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, 0, fmt.Errorf("failed to write pdf: %w", err)
	}
	return out.Bytes(), len(slices), nil
}

// PageSlices splits a w×h bitmap into the pixel rows that fit on each
// page once the bitmap is scaled to pageW.
func PageSlices(w, h int, pageW, pageH float64) []image.Rectangle {
	rowsPerPage := int(math.Floor(pageH * float64(w) / pageW))
	if rowsPerPage < 1 {
		rowsPerPage = 1
	}

	var out []image.Rectangle
	for y := 0; y < h; y += rowsPerPage {
		out = append(out, image.Rect(0, y, w, min(y+rowsPerPage, h)))
	}
	return out
}

// FlattenOnWhite composites img over an opaque white background.
func FlattenOnWhite(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
