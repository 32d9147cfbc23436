// SPDX-License-Identifier: Unlicense OR MIT

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsOpaqueGray(t *testing.T) {
	c := Default()
	if c.BackgroundARGB() != 0xAAAAAAAA {
		t.Fatalf("got %#x, want 0xAAAAAAAA", c.BackgroundARGB())
	}
}

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Background.Type != BackgroundColor {
		t.Fatalf("got %v, want color", c.Background.Type)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bgce.yaml")
	doc := `
background:
  type: image
  path: /tmp/wall.png
  mode: tiled
shortcuts:
  shutdown_keys: ["leftctrl", "leftalt", "q"]
  screenshot_key: printscreen
socket_path: /tmp/custom.sock
`
	if err := os.WriteFile(path, []byte(doc), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Background.Type != BackgroundImage {
		t.Fatalf("type = %v, want image", c.Background.Type)
	}
	if c.Background.Path != "/tmp/wall.png" {
		t.Fatalf("path = %q", c.Background.Path)
	}
	if c.Background.Mode != ImageTiled {
		t.Fatalf("mode = %v, want tiled", c.Background.Mode)
	}
	if c.SocketPath != "/tmp/custom.sock" {
		t.Fatalf("socket_path = %q", c.SocketPath)
	}
	if len(c.Shortcuts.ShutdownKeys) != 3 {
		t.Fatalf("shutdown_keys = %v", c.Shortcuts.ShutdownKeys)
	}
}

func TestBackgroundARGBParsesRGBA(t *testing.T) {
	c := Default()
	c.Background.Color = "#11223344"
	want := uint32(0x44112233)
	if got := c.BackgroundARGB(); got != want {
		t.Fatalf("got %#x, want %#x", got, want)
	}
}

func TestBackgroundARGBFallsBackOnGarbage(t *testing.T) {
	c := Default()
	c.Background.Color = "not-a-color"
	if got := c.BackgroundARGB(); got != 0xFF000000 {
		t.Fatalf("got %#x, want 0xFF000000", got)
	}
}
