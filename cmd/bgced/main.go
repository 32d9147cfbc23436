// SPDX-License-Identifier: Unlicense OR MIT

// Command bgced is the bgce display server (spec.md §4.8): it composites
// client windows over a background onto a display backend and multiplexes
// input devices to the focused client over a Unix domain socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"bgce/internal/bgcelog"
	"bgce/internal/config"
	"bgce/internal/displaybackend"
	"bgce/internal/server"
)

func main() {
	var (
		configPath    = flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
		socketPath    = flag.String("socket", "", "override the configured listening socket path")
		width         = flag.Int("width", 1280, "preferred display width")
		height        = flag.Int("height", 720, "preferred display height")
		ppmOut        = flag.String("ppm-out", "", "write each composited frame to this PPM path instead of a real display (headless smoke test)")
		screenshotDir = flag.String("screenshot-dir", "/tmp", "directory PrintScreen output is written to")
		verbose       = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *verbose {
		bgcelog.SetLevel(zerolog.DebugLevel)
	}
	log := bgcelog.For("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bgced: load config:", err)
		os.Exit(1)
	}
	if *socketPath != "" {
		cfg.SocketPath = *socketPath
	}

	var backend displaybackend.Backend
	if *ppmOut != "" {
		backend = displaybackend.NewPPMDump(*ppmOut)
	} else {
		backend = displaybackend.NewOffscreen()
	}

	srv, err := server.New(server.Options{
		Config:          cfg,
		Backend:         backend,
		PreferredWidth:  *width,
		PreferredHeight: *height,
		ScreenshotDir:   *screenshotDir,
	})
	if err != nil {
		log.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}

	if err := srv.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.config/bgce.yaml"
}
