// SPDX-License-Identifier: Unlicense OR MIT

// Package bgimage decodes a background image file and composites it into
// the scanout-format ARGB8888 buffer backing the background pseudo-window,
// either tiled or nearest-neighbor scaled (spec.md §6 ImageDecoder
// collaborator). It restores the background-image feature present in the
// original server's `config.c` (stb_image-based) that the distillation
// dropped.
package bgimage

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
)

// ErrDecodeFailed indicates the configured background image could not be
// decoded in any registered format.
var ErrDecodeFailed = errors.New("bgimage: decode failed")

// Decode loads path and returns it as a standard Go image.Image; callers
// composite it themselves via Tile/Scale into the ARGB8888 destination
// buffer. PNG, JPEG and BMP are registered via blank import, the same
// registration pattern the stdlib image package itself documents.
func Decode(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "bgimage: open")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrap(ErrDecodeFailed, err.Error())
	}
	return img, nil
}

// Tile fills an ARGB8888 dst buffer of width x height with src, repeating
// it in both axes (original `config.c`'s IMAGE_TILED mode).
func Tile(dst []byte, width, height int, src image.Image) {
	bounds := src.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()
	if sw == 0 || sh == 0 {
		return
	}
	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + y%sh
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + x%sw
			putARGB(dst, width, x, y, src.At(sx, sy))
		}
	}
}

// Scale fills an ARGB8888 dst buffer of width x height with src, resized
// via simple nearest-neighbor sampling (original `config.c`'s
// IMAGE_SCALED mode).
func Scale(dst []byte, width, height int, src image.Image) {
	bounds := src.Bounds()
	sw, sh := bounds.Dx(), bounds.Dy()
	if sw == 0 || sh == 0 || width == 0 || height == 0 {
		return
	}
	xRatio := float64(sw) / float64(width)
	yRatio := float64(sh) / float64(height)
	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + int(float64(y)*yRatio)
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + int(float64(x)*xRatio)
			putARGB(dst, width, x, y, src.At(sx, sy))
		}
	}
}

// putARGB writes one pixel into dst at (x,y) in the A,R,G,B byte-sequence
// convention (spec.md §3).
func putARGB(dst []byte, width, x, y int, c color.Color) {
	r, g, b, a := c.RGBA()
	off := (y*width + x) * 4
	if off+4 > len(dst) {
		return
	}
	dst[off+0] = byte(a >> 8)
	dst[off+1] = byte(r >> 8)
	dst[off+2] = byte(g >> 8)
	dst[off+3] = byte(b >> 8)
}
