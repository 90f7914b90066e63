package capture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register png decoder
	"io"

	"golang.org/x/image/draw"
)

const (
	JPEGQuality = 92
	// MaxSide bounds the square output; larger crops are scaled down.
	MaxSide = 1080
	// MaxPixels caps the declared size of an image before it is decoded.
	MaxPixels = 40_000_000
)

// ErrImageTooLarge is returned for images declaring more than MaxPixels.
var ErrImageTooLarge = errors.New("image too large")

// SquareJPEG decodes a JPEG or PNG, crops the centred square on the short side and
// re-encodes it as JPEG.
func SquareJPEG(r io.Reader) ([]byte, error) {
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &head))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("decode image: empty image")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("decode image %dx%d: %w", cfg.Width, cfg.Height, ErrImageTooLarge)
	}
	src, _, err := image.Decode(io.MultiReader(&head, r))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	side := b.Dx()
	if b.Dy() < side {
		side = b.Dy()
	}
	if side == 0 {
		return nil, fmt.Errorf("decode image: empty image")
	}
	crop := image.Rect(0, 0, side, side).Add(image.Pt(
		b.Min.X+(b.Dx()-side)/2,
		b.Min.Y+(b.Dy()-side)/2,
	))

	out := side
	if out > MaxSide {
		out = MaxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, out, out))
	if out == side {
		draw.Draw(dst, dst.Bounds(), src, crop.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
