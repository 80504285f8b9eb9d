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

// Package avatar drives a Live2D avatar runtime over its WebSocket
// plugin API. The mouth is animated from audio amplitude while a line
// plays; the emotion parameter shapes the mouth between lines.
package avatar

import (
	"strings"
)

// Live2D parameter names injected into the avatar runtime
const (
	ParamMouthOpen = "MouthOpen"
	ParamMouthForm = "MouthForm"
)

// emotionValues maps emotion names to MouthForm values in [-1, 1]
var emotionValues = map[string]float64{
	"happy":     1.0,
	"excited":   1.0,
	"neutral":   0.0,
	"sad":       -0.5,
	"angry":     -1.0,
	"surprised": 0.5,
}

// EmotionValue returns the MouthForm value for an emotion name.
// Unknown emotions map to neutral.
func EmotionValue(emotion string) float64 {
	return emotionValues[strings.ToLower(emotion)]
}

// Sink receives avatar parameter updates. Implementations must tolerate
// high-frequency SetParameter calls during playback.
type Sink interface {
	// SetParameter injects one Live2D parameter value
	SetParameter(name string, value float64) error

	// SetEmotion sets the mouth form from an emotion name
	SetEmotion(emotion string) error

	// Reset returns the mouth to the closed position
	Reset() error

	// Close disconnects from the avatar runtime
	Close() error
}

// NopSink discards all updates. Used when the avatar link is disabled
// or unreachable so the pipeline runs unchanged.
type NopSink struct{}

func (NopSink) SetParameter(name string, value float64) error { return nil }
func (NopSink) SetEmotion(emotion string) error               { return nil }
func (NopSink) Reset() error                                  { return nil }
func (NopSink) Close() error                                  { return nil }
