package export

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

const (
	a4LandscapeW = 841.89
	a4LandscapeH = 595.28
)

func TestBuildPDF_SinglePage(t *testing.T) {
	out, pages, err := BuildPDF(testPNG(1600, 800))
	if err != nil {
		t.Fatalf("BuildPDF failed: %v", err)
	}
	if pages != 1 {
		t.Errorf("expected 1 page, got %d", pages)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
}

func TestBuildPDF_TallCaptureSpansPages(t *testing.T) {
	_, pages, err := BuildPDF(testPNG(842, 1200))
	if err != nil {
		t.Fatalf("BuildPDF failed: %v", err)
	}
	if pages != 3 {
		t.Errorf("expected 3 pages, got %d", pages)
	}
}

func TestBuildPDF_InvalidInput(t *testing.T) {
	if _, _, err := BuildPDF([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
}

func TestPageSlices(t *testing.T) {
	slices := PageSlices(842, 1200, a4LandscapeW, a4LandscapeH)
	if len(slices) != 3 {
		t.Fatalf("expected 3 slices, got %d", len(slices))
	}
	if slices[0].Min.Y != 0 || slices[2].Max.Y != 1200 {
		t.Errorf("slices do not cover the bitmap: %v", slices)
	}
	for i := 1; i < len(slices); i++ {
		if slices[i].Min.Y != slices[i-1].Max.Y {
			t.Errorf("gap between slice %d and %d", i-1, i)
		}
	}

	short := PageSlices(1600, 800, a4LandscapeW, a4LandscapeH)
	if len(short) != 1 || short[0] != image.Rect(0, 0, 1600, 800) {
		t.Errorf("unexpected slices for a short capture: %v", short)
	}
}

func TestFlattenOnWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{A: 0})
	img.Set(1, 0, color.NRGBA{R: 255, A: 255})

	flat := FlattenOnWhite(img)

	if c := flat.NRGBAAt(0, 0); c != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("transparent pixel should become white, got %v", c)
	}
	if c := flat.NRGBAAt(1, 0); c != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("opaque pixel should be kept, got %v", c)
	}
}
