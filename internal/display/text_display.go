/*
 * This file is part of Persona Hub (https://github.com/personacast/persona-hub).
 * Copyright (C) 2026 Personacast Labs
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package display mirrors the currently-spoken line into a text file
// that a streaming overlay (OBS text source) watches. Progressive mode
// reveals the line word by word, paced to the audio duration; full mode
// shows it whole. Either way the file is cleared between lines.
package display

import (
	"context"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/logging"
)

// clearDelay keeps the finished line on screen briefly before wiping it
const clearDelay = 500 * time.Millisecond

// TextDisplay writes the spoken line to the overlay file
type TextDisplay struct {
	enabled     bool
	filePath    string
	progressive bool
	writeFile   func(path string, data []byte) error // test seam
}

// NewTextDisplay creates an overlay writer and clears any stale text
// left by a previous run
func NewTextDisplay(cfg config.DisplayConfig) *TextDisplay {
	d := &TextDisplay{
		enabled:     cfg.Enabled,
		filePath:    cfg.FilePath,
		progressive: cfg.Style == "progressive",
		writeFile: func(path string, data []byte) error {
			return os.WriteFile(path, data, 0o644)
		},
	}

	if d.enabled {
		d.Clear()
		if logging.Sugar != nil {
			logging.Sugar.Infow("📺 Text display enabled",
				"file", cfg.FilePath,
				"style", cfg.Style,
			)
		}
	}

	return d
}

// ShowLine displays the line for the given audio duration, then clears
// the overlay so nothing lingers between lines. Progressive mode
// reveals the line word by word; full mode writes the whole line at
// once and holds it for the duration. Display failures never propagate;
// the stream keeps going without the overlay.
func (d *TextDisplay) ShowLine(ctx context.Context, text string, duration time.Duration) {
	if !d.enabled {
		return
	}

	if !d.progressive {
		d.write(text)
		select {
		case <-ctx.Done():
			d.Clear()
			return
		case <-time.After(duration):
		}
		d.lingerAndClear(ctx)
		return
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}

	perWord := duration / time.Duration(len(words))

	for i := range words {
		d.write(strings.Join(words[:i+1], " "))

		select {
		case <-ctx.Done():
			d.Clear()
			return
		case <-time.After(perWord):
		}
	}

	d.lingerAndClear(ctx)
}

// lingerAndClear keeps the finished line up for clearDelay, then wipes it
func (d *TextDisplay) lingerAndClear(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(clearDelay):
	}
	d.Clear()
}

// Clear wipes the overlay file
func (d *TextDisplay) Clear() {
	if !d.enabled {
		return
	}
	d.write("")
}

// write replaces the overlay file contents
func (d *TextDisplay) write(text string) {
	if err := d.writeFile(d.filePath, []byte(text)); err != nil {
		logging.LogWarn("Failed to update text display",
			zap.String("file", d.filePath),
			zap.Error(err),
		)
	}
}
