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
	"encoding/binary"
	"math"

	"github.com/personacast/persona-hub/internal/logging"
	"go.uber.org/zap"
)

// maxSampleMagnitude is the largest representable 16-bit PCM magnitude.
const maxSampleMagnitude = 32768.0

// EstimatorConfig holds amplitude estimator tunables
type EstimatorConfig struct {
	Gain             float64 // Amplification factor for loudness sensitivity
	Smoothing        float64 // EMA smoothing in [0,1); higher = slower response
	SilenceThreshold float64 // Below this, the smoothed value snaps to 0
}

// AmplitudeEstimator converts raw 16-bit PCM chunks into a bounded,
// temporally smoothed loudness signal in [0,1]. It is the proxy for
// mouth-openness during lip-sync.
type AmplitudeEstimator struct {
	gain             float64
	smoothing        float64
	silenceThreshold float64
	current          float64
}

// NewAmplitudeEstimator creates an estimator with the given tunables
func NewAmplitudeEstimator(cfg EstimatorConfig) *AmplitudeEstimator {
	return &AmplitudeEstimator{
		gain:             cfg.Gain,
		smoothing:        cfg.Smoothing,
		silenceThreshold: cfg.SilenceThreshold,
	}
}

// Estimate processes one audio chunk and returns the updated smoothed
// loudness. A chunk too short to contain a single sample is logged and
// treated as silence, returning 0 without touching the smoothed state.
func (e *AmplitudeEstimator) Estimate(chunk []byte) float64 {
	if len(chunk) < 2 {
		if logging.Logger != nil {
			logging.Logger.Debug("Skipping undecodable audio chunk",
				zap.Int("chunk_bytes", len(chunk)))
		}
		return 0.0
	}

	raw := e.rms(chunk)

	// EMA: current = smoothing*current + (1-smoothing)*raw
	e.current = e.smoothing*e.current + (1-e.smoothing)*raw

	// Snap near-silence to fully closed to avoid idle lip flutter
	if e.current < e.silenceThreshold {
		e.current = 0.0
	}

	return e.current
}

// rms computes the gain-adjusted, clamped RMS loudness of one chunk
func (e *AmplitudeEstimator) rms(chunk []byte) float64 {
	sampleCount := len(chunk) / 2
	var sumSquares float64
	for i := 0; i < sampleCount; i++ {
		sample := int16(binary.LittleEndian.Uint16(chunk[i*2 : i*2+2]))
		sumSquares += float64(sample) * float64(sample)
	}

	rms := math.Sqrt(sumSquares / float64(sampleCount))
	amplified := rms / maxSampleMagnitude * e.gain

	return math.Min(1.0, math.Max(0.0, amplified))
}

// Current returns the present smoothed value without processing audio
func (e *AmplitudeEstimator) Current() float64 {
	return e.current
}

// Reset forces the smoothed value back to silence
func (e *AmplitudeEstimator) Reset() {
	e.current = 0.0
}
