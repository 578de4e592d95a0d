// Package photos shrinks property photos before they are embedded in a
// report, keeping the stored collection within the storage quota.
package photos

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// DataURIPrefix starts every compressed photo.
const DataURIPrefix = "data:image/jpeg;base64,"

var ErrNotImage = errors.New("Please select an image file")

// Options bound the output image.
type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// DefaultOptions fit an 800x600 box at JPEG quality 70.
var DefaultOptions = Options{MaxWidth: 800, MaxHeight: 600, Quality: 70}

// Compress decodes an uploaded image, scales it down to fit the bounding box
// preserving aspect ratio, and re-encodes it as a JPEG data URI. Images that
// already fit are re-encoded at their own size.
func Compress(r io.Reader, opts Options) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if mt := mimetype.Detect(raw); !strings.HasPrefix(mt.String(), "image/") {
		return "", ErrNotImage
	}
	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}

	opts = withDefaults(opts)
	b := src.Bounds()
	w, h := Fit(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}
	uri := DataURIPrefix + base64.StdEncoding.EncodeToString(out.Bytes())
	log.Debug().
		Str("format", format).
		Int("width", w).
		Int("height", h).
		Str("in", humanize.Bytes(uint64(len(raw)))).
		Str("out", humanize.Bytes(uint64(len(uri)))).
		Msg("photo compressed")
	return uri, nil
}

// Fit returns the largest size within maxW x maxH with the aspect ratio of
// w x h. Sizes already inside the box are returned unchanged.
func Fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(float64(w)*ratio + 0.5)
	nh := int(float64(h)*ratio + 0.5)
	return max(nw, 1), max(nh, 1)
}

func withDefaults(o Options) Options {
	if o.MaxWidth <= 0 {
		o.MaxWidth = DefaultOptions.MaxWidth
	}
	if o.MaxHeight <= 0 {
		o.MaxHeight = DefaultOptions.MaxHeight
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultOptions.Quality
	}
	return o
}
