package vkres

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"go.uber.org/zap"
)

// DecodeRGBA decodes a PNG, JPEG, BMP, TIFF or WebP image into tightly
// packed RGBA pixels.
func DecodeRGBA(r io.Reader) (*image.RGBA, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decoding image")
	}
	if m, ok := src.(*image.RGBA); ok && m.Rect.Min == (image.Point{}) && m.Stride == 4*m.Rect.Dx() {
		return m, nil
	}

	b := src.Bounds()
	m := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(m, m.Bounds(), src, b.Min, draw.Src)
	Logger().Debug("converted image to RGBA",
		zap.String("format", format),
		zap.Int("width", b.Dx()),
		zap.Int("height", b.Dy()))
	return m, nil
}

// LoadRGBA reads and decodes the image file at path.
func LoadRGBA(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening texture")
	}
	defer f.Close()

	m, err := DecodeRGBA(f)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return m, nil
}

// fitExtent scales w by h down, keeping the aspect ratio, so that neither
// side exceeds max. A zero max means no limit.
func fitExtent(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}

// ShrinkRGBA returns m scaled down to fit within max texels per side, or m
// itself when it already fits.
func ShrinkRGBA(m *image.RGBA, max int) *image.RGBA {
	b := m.Bounds()
	w, h := fitExtent(b.Dx(), b.Dy(), max)
	if w == b.Dx() && h == b.Dy() {
		return m
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), m, b, draw.Src, nil)
	return dst
}
