// SPDX-License-Identifier: Unlicense OR MIT

package displaybackend

import (
	"bufio"
	"fmt"
	"image"
	"os"

	"github.com/pkg/errors"
)

// PPMDump is a Backend that writes the scanout buffer to a PPM file on
// every Present, for headless smoke-testing without a framebuffer device.
type PPMDump struct {
	info    ScreenInfo
	scanout []byte
	path    string
	cursorX int
	cursorY int
}

// NewPPMDump constructs a PPMDump backend that writes to path on Present.
func NewPPMDump(path string) *PPMDump {
	return &PPMDump{path: path}
}

func (p *PPMDump) Init(preferredWidth, preferredHeight int) (ScreenInfo, error) {
	if preferredWidth <= 0 || preferredHeight <= 0 {
		return ScreenInfo{}, ErrNoDisplay
	}
	p.info = ScreenInfo{
		Width:         preferredWidth,
		Height:        preferredHeight,
		BytesPerPixel: 4,
		PixelFormat:   "ARGB8888",
	}
	p.scanout = make([]byte, preferredWidth*preferredHeight*4)
	return p.info, nil
}

func (p *PPMDump) Scanout() []byte { return p.scanout }

func (p *PPMDump) Present(rect image.Rectangle) {
	_ = rect
	_ = p.writePPM()
}

func (p *PPMDump) writePPM() error {
	f, err := os.Create(p.path)
	if err != nil {
		return errors.Wrap(err, "displaybackend: ppm dump")
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "P6\n%d %d\n255\n", p.info.Width, p.info.Height)
	for i := 0; i+4 <= len(p.scanout); i += 4 {
		// ARGB8888 -> RGB triplet, alpha ignored (spec.md §4.5).
		a := p.scanout[i]
		_ = a
		r := p.scanout[i+1]
		g := p.scanout[i+2]
		b := p.scanout[i+3]
		w.Write([]byte{r, g, b})
	}
	return w.Flush()
}

func (p *PPMDump) MoveCursor(x, y int) {
	p.cursorX, p.cursorY = x, y
}

func (p *PPMDump) HasHardwareCursor() bool { return false }

func (p *PPMDump) Shutdown() error { return nil }
