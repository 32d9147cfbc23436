// SPDX-License-Identifier: Unlicense OR MIT

package bgimage

import (
	"image"
	"image/color"
	"testing"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestTileRepeatsSource(t *testing.T) {
	src := solidImage(2, 2, color.RGBA{R: 0x11, G: 0x22, B: 0x33, A: 0xFF})
	dst := make([]byte, 4*4*4)
	Tile(dst, 4, 4, src)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			off := (y*4 + x) * 4
			if dst[off] != 0xFF || dst[off+1] != 0x11 || dst[off+2] != 0x22 || dst[off+3] != 0x33 {
				t.Fatalf("pixel (%d,%d) = %v", x, y, dst[off:off+4])
			}
		}
	}
}

func TestScaleFillsEntireDestination(t *testing.T) {
	src := solidImage(10, 10, color.RGBA{R: 0xAA, G: 0xBB, B: 0xCC, A: 0xFF})
	dst := make([]byte, 3*3*4)
	Scale(dst, 3, 3, src)

	for i := 0; i < len(dst); i += 4 {
		if dst[i] != 0xFF || dst[i+1] != 0xAA || dst[i+2] != 0xBB || dst[i+3] != 0xCC {
			t.Fatalf("pixel at byte %d = %v", i, dst[i:i+4])
		}
	}
}

func TestTileNoopOnEmptySource(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 0, 0))
	dst := make([]byte, 4*4*4)
	Tile(dst, 4, 4, src) // must not panic or divide by zero
	for _, b := range dst {
		if b != 0 {
			t.Fatalf("expected untouched buffer, got %v", dst)
		}
	}
}
