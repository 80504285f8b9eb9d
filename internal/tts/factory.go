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

package tts

import (
	"fmt"
	"strings"

	"github.com/personacast/persona-hub/internal/config"
)

// NewSynthesizer creates the configured TTS provider
func NewSynthesizer(cfg config.TTSConfig) (Synthesizer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "tiktok":
		return NewTikTokClient(cfg), nil
	case "elevenlabs":
		client, err := NewElevenLabsClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create elevenlabs TTS client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown TTS provider: %q (available: tiktok, elevenlabs)", cfg.Provider)
	}
}
