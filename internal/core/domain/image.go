package domain

import "image"

// ImageRefKind discriminates the source of a document image.
type ImageRefKind int

const (
	RefKindURL ImageRefKind = iota
	RefKindPath
	RefKindBytes
)

// ImageRef is a tagged reference to a document image: a remote URL, a local
// filesystem path, or raw bytes. Loaders dispatch on Kind; exactly one of
// the payload fields is set.
type ImageRef struct {
	Kind  ImageRefKind
	URL   string
	Path  string
	Bytes []byte
}

func RefURL(url string) ImageRef   { return ImageRef{Kind: RefKindURL, URL: url} }
func RefPath(path string) ImageRef { return ImageRef{Kind: RefKindPath, Path: path} }
func RefBytes(b []byte) ImageRef   { return ImageRef{Kind: RefKindBytes, Bytes: b} }

func (r ImageRef) IsZero() bool { return r.URL == "" && r.Path == "" && len(r.Bytes) == 0 }

// DocumentImage is the decoded form of one uploaded document. Raw keeps the
// original encoded bytes for engines that re-upload the image; Gray is the
// luminance plane used by local OCR and structural analysis.
type DocumentImage struct {
	Raw     []byte
	Decoded image.Image
	Gray    *image.Gray
	Width   int
	Height  int
	Source  string
}

// ImageSignals is the structural cue bundle derived from the pixels before
// any text is read. LowQuality marks degenerate input (zero-size or flat
// single-color frames) instead of failing the call.
type ImageSignals struct {
	AspectRatio    float64  `json:"aspect_ratio"`
	EdgeDensity    float64  `json:"edge_density"`
	HasCardBorder  bool     `json:"has_card_border"`
	DominantColors []string `json:"dominant_colors,omitempty"`
	LowQuality     bool     `json:"low_quality"`
}
