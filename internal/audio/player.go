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

package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/personacast/persona-hub/internal/logging"
	"go.uber.org/zap"
)

// speechWordsPerMinute is the rough speaking rate used to estimate how
// long a line of text takes to play at normal speed.
const speechWordsPerMinute = 150.0

// EstimateDuration estimates playback duration of a line from its word
// count and the playback speed multiplier.
func EstimateDuration(text string, speed float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 || speed <= 0 {
		return 0
	}
	seconds := float64(words) / speechWordsPerMinute * 60.0 / speed
	return time.Duration(seconds * float64(time.Second))
}

// MPVPlayer plays audio buffers through an mpv subprocess
type MPVPlayer struct {
	speed float64
}

// NewMPVPlayer creates a player with a fixed playback speed multiplier
func NewMPVPlayer(speed float64) *MPVPlayer {
	return &MPVPlayer{speed: speed}
}

// Play writes the audio to a temporary file and blocks until mpv has
// finished playing it or ctx is cancelled.
func (p *MPVPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return nil
	}

	tmpFile, err := os.CreateTemp("", "persona-hub-*.mp3")
	if err != nil {
		return fmt.Errorf("failed to create temp audio file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			logging.LogWarn("Failed to remove temp audio file",
				zap.String("path", tmpPath), zap.Error(err))
		}
	}()

	if _, err := tmpFile.Write(audio); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temp audio file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp audio file: %w", err)
	}

	cmd := exec.CommandContext(ctx, "mpv",
		"--no-video",
		fmt.Sprintf("--speed=%g", p.speed),
		"--really-quiet",
		tmpPath,
	)
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Run(); err != nil {
		// Cancellation is orderly shutdown, not a playback failure
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("mpv playback failed: %w", err)
	}

	return nil
}
