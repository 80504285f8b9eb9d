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

// Package events defines the record kept for every line the persona
// speaks, from generation through playback.
package events

import (
	"time"

	"github.com/google/uuid"
)

// LineEvent traces one spoken line through the pipeline
type LineEvent struct {
	// Core identification
	UUID      string    `json:"uuid" db:"uuid"`
	Sequence  int       `json:"sequence" db:"sequence"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`

	// Generation results
	Phase    string `json:"phase" db:"phase"`
	Text     string `json:"text" db:"text"`
	Fallback bool   `json:"fallback" db:"fallback"`

	// Synthesis results
	Voice      string `json:"voice" db:"voice"`
	AudioBytes int    `json:"audio_bytes" db:"audio_bytes"`

	// Timings in milliseconds
	GenerationTime int64 `json:"generation_time_ms" db:"generation_time_ms"`
	SynthesisTime  int64 `json:"synthesis_time_ms" db:"synthesis_time_ms"`
	PlaybackTime   int64 `json:"playback_time_ms" db:"playback_time_ms"`

	Success      bool   `json:"success" db:"success"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
}

// NewLineEvent creates a line event with a generated UUID and the
// current timestamp
func NewLineEvent(sequence int, phase string) *LineEvent {
	return &LineEvent{
		UUID:      uuid.New().String(),
		Sequence:  sequence,
		Timestamp: time.Now(),
		Phase:     phase,
		Success:   true,
	}
}

// SetGeneration records the generated text and how long it took.
// Fallback marks lines served from the canned set after a generation
// failure.
func (le *LineEvent) SetGeneration(text string, fallback bool, elapsed time.Duration) {
	le.Text = text
	le.Fallback = fallback
	le.GenerationTime = elapsed.Milliseconds()
}

// SetSynthesis records the voice used and the synthesized audio size
func (le *LineEvent) SetSynthesis(voice string, audioBytes int, elapsed time.Duration) {
	le.Voice = voice
	le.AudioBytes = audioBytes
	le.SynthesisTime = elapsed.Milliseconds()
}

// SetPlayback records how long playback ran
func (le *LineEvent) SetPlayback(elapsed time.Duration) {
	le.PlaybackTime = elapsed.Milliseconds()
}

// SetError marks the event as failed
func (le *LineEvent) SetError(err error) {
	le.Success = false
	le.ErrorMessage = err.Error()
}
