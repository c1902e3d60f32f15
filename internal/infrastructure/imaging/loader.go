package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/docverity/docverity/internal/core/domain"
)

// ByteFetcher downloads the bytes behind a remote image reference.
type ByteFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Loader resolves an ImageRef to decoded pixels plus the luminance plane
// the rest of the pipeline works on.
type Loader struct {
	fetcher ByteFetcher
}

func NewLoader(fetcher ByteFetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

func (l *Loader) Load(ctx context.Context, ref domain.ImageRef) (*domain.DocumentImage, error) {
	switch ref.Kind {
	case domain.RefKindURL:
		if l.fetcher == nil {
			return nil, domain.WrapError(domain.ErrImageFetch, "load url", errors.New("no fetcher configured"))
		}
		raw, err := l.fetcher.Fetch(ctx, ref.URL)
		if err != nil {
			return nil, err
		}
		return decode(raw, ref.URL)
	case domain.RefKindPath:
		raw, err := os.ReadFile(ref.Path)
		if err != nil {
			return nil, domain.WrapError(domain.ErrImageFetch, "read "+ref.Path, err)
		}
		return decode(raw, ref.Path)
	case domain.RefKindBytes:
		return decode(ref.Bytes, "inline")
	default:
		return nil, domain.WrapError(domain.ErrImageDecode, "load", fmt.Errorf("unknown image ref kind %d", ref.Kind))
	}
}

func decode(raw []byte, source string) (*domain.DocumentImage, error) {
	decoded, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrImageDecode, "decode "+source, err)
	}

	bounds := decoded.Bounds()
	return &domain.DocumentImage{
		Raw:     raw,
		Decoded: decoded,
		Gray:    toGray(decoded),
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Source:  source + " (" + format + ")",
	}, nil
}

// toGray converts to Rec. 601 luminance.
func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := src.At(x, y).RGBA()
			luma := (299*r + 587*g + 114*b) / 1000
			gray.SetGray(x, y, color.Gray{Y: uint8(luma >> 8)})
		}
	}
	return gray
}
