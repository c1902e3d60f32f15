package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/docverity/docverity/internal/core/domain"
)

func grayImage(w, h int, fill uint8) *domain.DocumentImage {
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for i := range gray.Pix {
		gray.Pix[i] = fill
	}
	return &domain.DocumentImage{Gray: gray, Width: w, Height: h}
}

// cardImage draws a bright rectangle on a dark background, roughly how a
// photographed ID card looks.
func cardImage(w, h int) *domain.DocumentImage {
	gray := image.NewGray(image.Rect(0, 0, w, h))
	insetX, insetY := w/12, h/12
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(20)
			if x >= insetX && x < w-insetX && y >= insetY && y < h-insetY {
				v = 220
			}
			gray.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return &domain.DocumentImage{Gray: gray, Width: w, Height: h}
}

func TestAnalyzeNilAndEmptyAreLowQuality(t *testing.T) {
	a := NewAnalyzer()
	if got := a.Analyze(nil); !got.LowQuality {
		t.Fatal("nil image must be flagged low quality")
	}
	if got := a.Analyze(&domain.DocumentImage{}); !got.LowQuality {
		t.Fatal("empty image must be flagged low quality")
	}
}

func TestAnalyzeFlatFrameIsLowQuality(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(grayImage(200, 120, 128))
	if !got.LowQuality {
		t.Fatal("single-color frame must be flagged low quality")
	}
	if got.AspectRatio == 0 {
		t.Fatal("aspect ratio must still be reported")
	}
}

func TestAnalyzeTinyFrameIsLowQuality(t *testing.T) {
	a := NewAnalyzer()
	if got := a.Analyze(cardImage(16, 16)); !got.LowQuality {
		t.Fatal("tiny frame must be flagged low quality")
	}
}

func TestAnalyzeDetectsCardBorder(t *testing.T) {
	a := NewAnalyzer()
	got := a.Analyze(cardImage(320, 200))
	if got.LowQuality {
		t.Fatal("card frame must not be low quality")
	}
	if !got.HasCardBorder {
		t.Fatal("expected rectangular card border to be detected")
	}
	if got.EdgeDensity <= 0 {
		t.Fatalf("expected positive edge density, got %v", got.EdgeDensity)
	}
	want := 320.0 / 200.0
	if got.AspectRatio != want {
		t.Fatalf("aspect ratio: got %v want %v", got.AspectRatio, want)
	}
}

func TestAnalyzeNoBorderOnNoise(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 200, 200))
	// Deterministic speckle without a rectangular frame.
	seed := uint32(1)
	for i := range gray.Pix {
		seed = seed*1664525 + 1013904223
		gray.Pix[i] = uint8(seed >> 24)
	}
	img := &domain.DocumentImage{Gray: gray, Width: 200, Height: 200}

	a := NewAnalyzer()
	got := a.Analyze(img)
	if got.LowQuality {
		t.Fatal("noisy frame is readable, not low quality")
	}
}

func TestAnalyzeDominantColors(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 120, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 120; x++ {
			c := color.RGBA{R: 200, G: 40, B: 40, A: 255}
			if x < 8 || x >= 112 || y < 6 || y >= 74 {
				c = color.RGBA{R: 20, G: 20, B: 20, A: 255}
			}
			rgba.Set(x, y, c)
		}
	}
	doc := &domain.DocumentImage{
		Decoded: rgba,
		Gray:    toGray(rgba),
		Width:   120,
		Height:  80,
	}

	a := NewAnalyzer()
	got := a.Analyze(doc)
	if len(got.DominantColors) == 0 {
		t.Fatal("expected dominant colors for a decoded frame")
	}
	if got.DominantColors[0] != "#e02020" {
		t.Fatalf("expected reddish dominant bucket first, got %v", got.DominantColors)
	}
}
