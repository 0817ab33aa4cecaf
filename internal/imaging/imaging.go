// Package imaging normalizes inventory photos before they are stored: it
// sniffs the real format, bounds the upload size, flattens transparency and
// re-encodes everything as a downscaled JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"
)

// Photo limits.
const (
	MaxUploadBytes = 8 << 20
	MaxDimension   = 1280
	JPEGQuality    = 82
)

// Errors returned for rejected uploads.
var (
	ErrTooLarge    = errors.New("photo exceeds upload limit")
	ErrUnsupported = errors.New("unsupported photo format")
)

var decoders = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
}

// Photo is a normalized image ready for storage.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Normalize reads an uploaded photo and returns it as a JPEG no larger than
// MaxDimension on either side.
func Normalize(r io.Reader) (*Photo, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	mime := http.DetectContentType(data)
	decode, ok := decoders[mime]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}

	src, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", mime, err)
	}

	img := fit(src, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}

	b := img.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales src to fit within maxDim, keeping its aspect ratio, onto a white
// canvas so transparent areas do not turn black in JPEG.
func fit(src image.Image, maxDim int) image.Image {
	sb := src.Bounds()
	w, h := scaledSize(sb.Dx(), sb.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == sb.Dx() && h == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), src, sb.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, draw.Over, nil)
	}
	return dst
}

func scaledSize(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}
