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

// Package tts converts spoken lines into MP3 audio. Providers are
// selected at construction time; every provider truncates input to its
// own text-length limit rather than failing.
package tts

import (
	"context"
	"fmt"
)

// Synthesizer defines the interface for text-to-speech providers
type Synthesizer interface {
	// Synthesize converts text to MP3 audio using the given voice.
	// Text longer than MaxTextLength is truncated, not rejected.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)

	// AvailableVoices returns the provider's voice identifiers
	AvailableVoices() []string

	// ProviderName returns a human-readable provider name
	ProviderName() string

	// MaxTextLength returns the provider's per-request character limit
	MaxTextLength() int

	// Close cleans up resources
	Close() error
}

// SelfTest synthesizes a short line to verify the provider is reachable
// before the pipeline starts
func SelfTest(ctx context.Context, s Synthesizer, voice string) error {
	audio, err := s.Synthesize(ctx, "Testing, testing, one two three!", voice)
	if err != nil {
		return fmt.Errorf("%s self-test failed: %w", s.ProviderName(), err)
	}
	if len(audio) == 0 {
		return fmt.Errorf("%s self-test returned empty audio", s.ProviderName())
	}
	return nil
}

// truncate clips text to the provider limit
func truncate(text string, limit int) string {
	if len(text) > limit {
		return text[:limit]
	}
	return text
}
