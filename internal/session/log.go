// SPDX-License-Identifier: Unlicense OR MIT

package session

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"bgce/internal/bgcelog"
)

func bgceLog() zerolog.Logger {
	return bgcelog.For("session")
}

// screenshotPath mints a timestamped PrintScreen output path (spec.md §4.6
// step "invoke the screenshot collaborator with a timestamped path").
func screenshotPath(dir string, seq uint64) string {
	name := fmt.Sprintf("bgce_%s_%d.png", time.Now().Format("20060102_150405"), seq)
	return filepath.Join(dir, name)
}
