// SPDX-License-Identifier: Unlicense OR MIT

// Package screenshot PNG-encodes the current scanout surface to disk,
// backing the PrintScreen global shortcut (spec.md §4.6, §6).
package screenshot

import (
	"image"
	"image/png"
	"os"

	"github.com/pkg/errors"
)

// Save converts an ARGB8888 scanout slice (A,R,G,B byte sequence per
// spec.md §3) to a standard image.NRGBA and PNG-encodes it to path.
func Save(path string, scanout []byte, width, height int) error {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := (y*width + x) * 4
			if off+4 > len(scanout) {
				continue
			}
			a, r, g, b := scanout[off], scanout[off+1], scanout[off+2], scanout[off+3]
			dstOff := img.PixOffset(x, y)
			img.Pix[dstOff+0] = r
			img.Pix[dstOff+1] = g
			img.Pix[dstOff+2] = b
			img.Pix[dstOff+3] = a
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "screenshot: create file")
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return errors.Wrap(err, "screenshot: encode png")
	}
	return nil
}
