// SPDX-License-Identifier: Unlicense OR MIT

// Package config loads the server's YAML configuration file: background
// rendering choice and the global shortcut keycode bindings. It replaces
// the original server's hand-rolled INI-style parser (original `config.c`)
// with a single `gopkg.in/yaml.v3` document.
package config

import (
	"image/color"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// BackgroundKind selects how the background pseudo-window is painted.
type BackgroundKind string

const (
	BackgroundColor BackgroundKind = "color"
	BackgroundImage BackgroundKind = "image"
)

// ImageMode selects how a background image is fit to the screen.
type ImageMode string

const (
	ImageTiled  ImageMode = "tiled"
	ImageScaled ImageMode = "scaled"
)

// Shortcuts names the keys for the global shortcut layer. The values are
// parsed but not consulted: the shortcut layer matches the fixed tokens
// that package evcode produces, so editing them does not rebind anything.
type Shortcuts struct {
	ShutdownKeys  []string `yaml:"shutdown_keys"`
	ScreenshotKey string   `yaml:"screenshot_key"`
}

// Config is the full server configuration document.
type Config struct {
	Background struct {
		Type  BackgroundKind `yaml:"type"`
		Color string         `yaml:"color"` // "#RRGGBB" or "#RRGGBBAA"
		Path  string         `yaml:"path"`
		Mode  ImageMode      `yaml:"mode"`
	} `yaml:"background"`

	Shortcuts Shortcuts `yaml:"shortcuts"`

	SocketPath string `yaml:"socket_path"`
}

// Default returns the configuration used when no file is present:
// solid gray background, opaque, matching the original server's default
// (0xAAAAAAAA).
func Default() *Config {
	c := &Config{}
	c.Background.Type = BackgroundColor
	c.Background.Color = "#AAAAAAAA"
	c.SocketPath = "/tmp/bgce.sock"
	return c
}

// Load reads and parses a YAML config file at path. A missing file is not
// an error: Default() is returned instead, mirroring the original
// server's tolerance for an absent ~/.config/bgce.conf.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Wrap(err, "config: read")
	}

	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	return c, nil
}

// BackgroundARGB parses Background.Color as #RRGGBB or #RRGGBBAA into a
// packed ARGB8888 word, matching bgce's on-wire pixel convention
// (spec.md §3). An unparseable or empty value falls back to opaque black,
// matching the original parser's default.
func (c *Config) BackgroundARGB() uint32 {
	argb, ok := parseHexColor(c.Background.Color)
	if !ok {
		return 0xFF000000
	}
	return argb
}

func parseHexColor(s string) (uint32, bool) {
	if len(s) == 0 || s[0] != '#' {
		return 0, false
	}
	hex := s[1:]
	var r, g, b, a uint8
	a = 0xFF
	switch len(hex) {
	case 6:
		c, err := parseRGB(hex)
		if err != nil {
			return 0, false
		}
		r, g, b = c.R, c.G, c.B
	case 8:
		c, a2, err := parseRGBA(hex)
		if err != nil {
			return 0, false
		}
		r, g, b, a = c.R, c.G, c.B, a2
	default:
		return 0, false
	}
	return uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b), true
}

func parseRGB(hex string) (color.RGBA, error) {
	v, err := decodeHexBytes(hex)
	if err != nil {
		return color.RGBA{}, err
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: 0xFF}, nil
}

func parseRGBA(hex string) (color.RGBA, uint8, error) {
	v, err := decodeHexBytes(hex)
	if err != nil {
		return color.RGBA{}, 0, err
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2]}, v[3], nil
}

func decodeHexBytes(hex string) ([4]byte, error) {
	var out [4]byte
	for i := 0; i*2 < len(hex); i++ {
		b, err := parseHexByte(hex[i*2 : i*2+2])
		if err != nil {
			return out, err
		}
		out[i] = b
	}
	return out, nil
}

func parseHexByte(s string) (byte, error) {
	hi, err := hexDigit(s[0])
	if err != nil {
		return 0, err
	}
	lo, err := hexDigit(s[1])
	if err != nil {
		return 0, err
	}
	return hi<<4 | lo, nil
}

func hexDigit(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	default:
		return 0, errors.Errorf("config: invalid hex digit %q", c)
	}
}
