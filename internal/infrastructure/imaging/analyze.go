package imaging

import (
	"fmt"
	"math"
	"sort"

	"github.com/docverity/docverity/internal/core/domain"
)

const (
	// Sobel gradient magnitude above which a pixel counts as an edge.
	edgeThreshold = 96

	// Fraction of a border ring that must be edge pixels for the ring to
	// count as a card frame side.
	borderCoverage = 0.30

	// Luminance standard deviation below which the frame is considered
	// flat (single-color) and therefore unreadable.
	flatStdDev = 4.0

	minUsableDim = 32
)

// Analyzer derives structural cues from decoded pixels: edge density,
// aspect ratio, dominant colors, and whether a rectangular card frame is
// present. It never fails; degenerate input is reported as low quality.
type Analyzer struct{}

func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

func (a *Analyzer) Analyze(img *domain.DocumentImage) domain.ImageSignals {
	if img == nil || img.Gray == nil || img.Width == 0 || img.Height == 0 {
		return domain.ImageSignals{LowQuality: true}
	}

	signals := domain.ImageSignals{
		AspectRatio: float64(img.Width) / float64(img.Height),
	}

	if img.Width < minUsableDim || img.Height < minUsableDim || stdDev(img) < flatStdDev {
		signals.LowQuality = true
		return signals
	}

	edges := sobelEdges(img)
	signals.EdgeDensity = edgeDensity(edges, img.Width, img.Height)
	signals.HasCardBorder = hasCardBorder(edges, img.Width, img.Height)
	if img.Decoded != nil {
		signals.DominantColors = dominantColors(img, 3)
	}
	return signals
}

func stdDev(img *domain.DocumentImage) float64 {
	var sum, sumSq float64
	n := float64(img.Width * img.Height)
	for y := 0; y < img.Height; y++ {
		row := img.Gray.Pix[y*img.Gray.Stride : y*img.Gray.Stride+img.Width]
		for _, v := range row {
			f := float64(v)
			sum += f
			sumSq += f * f
		}
	}
	mean := sum / n
	return math.Sqrt(sumSq/n - mean*mean)
}

// sobelEdges returns a per-pixel edge mask from a 3x3 Sobel operator.
func sobelEdges(img *domain.DocumentImage) []bool {
	w, h := img.Width, img.Height
	edges := make([]bool, w*h)
	at := func(x, y int) int {
		return int(img.Gray.Pix[y*img.Gray.Stride+x])
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			if math.Hypot(float64(gx), float64(gy)) >= edgeThreshold {
				edges[y*w+x] = true
			}
		}
	}
	return edges
}

func edgeDensity(edges []bool, w, h int) float64 {
	count := 0
	for _, e := range edges {
		if e {
			count++
		}
	}
	return float64(count) / float64(w*h)
}

// hasCardBorder checks for edge concentration along an inset ring: ID cards
// photographed against a background leave a strong rectangular frame, which
// free-form photos and handwritten notes lack.
func hasCardBorder(edges []bool, w, h int) bool {
	insetX := w / 12
	insetY := h / 12
	if insetX < 1 || insetY < 1 {
		return false
	}

	rowCoverage := func(y int) float64 {
		count := 0
		for x := insetX; x < w-insetX; x++ {
			// A border line may be slightly skewed; accept an edge within
			// a small vertical band.
			for dy := -2; dy <= 2; dy++ {
				yy := y + dy
				if yy >= 0 && yy < h && edges[yy*w+x] {
					count++
					break
				}
			}
		}
		return float64(count) / float64(w-2*insetX)
	}
	colCoverage := func(x int) float64 {
		count := 0
		for y := insetY; y < h-insetY; y++ {
			for dx := -2; dx <= 2; dx++ {
				xx := x + dx
				if xx >= 0 && xx < w && edges[y*w+xx] {
					count++
					break
				}
			}
		}
		return float64(count) / float64(h-2*insetY)
	}

	sides := 0
	if rowCoverage(insetY) >= borderCoverage {
		sides++
	}
	if rowCoverage(h-insetY-1) >= borderCoverage {
		sides++
	}
	if colCoverage(insetX) >= borderCoverage {
		sides++
	}
	if colCoverage(w-insetX-1) >= borderCoverage {
		sides++
	}
	return sides >= 3
}

// dominantColors quantizes the frame into a 4x4x4 RGB histogram and
// returns the top buckets as hex triplets of their bucket centers.
func dominantColors(img *domain.DocumentImage, top int) []string {
	const buckets = 4
	hist := make(map[int]int)

	bounds := img.Decoded.Bounds()
	stepX := maxInt(1, bounds.Dx()/64)
	stepY := maxInt(1, bounds.Dy()/64)
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.Decoded.At(x, y).RGBA()
			key := int(r>>14)*buckets*buckets + int(g>>14)*buckets + int(b>>14)
			hist[key]++
		}
	}

	type bucket struct {
		key   int
		count int
	}
	ranked := make([]bucket, 0, len(hist))
	for k, c := range hist {
		ranked = append(ranked, bucket{key: k, count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].key < ranked[j].key
	})

	if top > len(ranked) {
		top = len(ranked)
	}
	out := make([]string, 0, top)
	for _, b := range ranked[:top] {
		r := (b.key / (buckets * buckets)) % buckets
		g := (b.key / buckets) % buckets
		bb := b.key % buckets
		out = append(out, fmt.Sprintf("#%02x%02x%02x", r*64+32, g*64+32, bb*64+32))
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
