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

package avatar

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/personacast/persona-hub/internal/audio"
	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/logging"
)

// baseChunkInterval paces mouth updates against real-time playback at
// normal speed. Faster playback shortens the interval proportionally.
const baseChunkInterval = 50 * time.Millisecond

// Driver animates the avatar mouth from audio amplitude while a line
// plays. One Driver serves the whole pipeline; DriveMouth is called for
// one line at a time.
type Driver struct {
	sink      Sink
	estimator *audio.AmplitudeEstimator
	chunkSize int
	failures  atomic.Int64
}

// NewDriver creates a mouth driver feeding the given sink
func NewDriver(sink Sink, cfg config.AvatarConfig) *Driver {
	return &Driver{
		sink: sink,
		estimator: audio.NewAmplitudeEstimator(audio.EstimatorConfig{
			Gain:             cfg.Gain,
			Smoothing:        cfg.Smoothing,
			SilenceThreshold: cfg.SilenceThreshold,
		}),
		chunkSize: cfg.ChunkSize,
	}
}

// DriveMouth walks the audio in fixed-size chunks, mapping each chunk's
// smoothed amplitude onto the mouth-open parameter at playback cadence.
// Individual parameter failures are counted and skipped so one dropped
// update never stalls playback. Returns when the audio is exhausted or
// the context is cancelled.
func (d *Driver) DriveMouth(ctx context.Context, audioData []byte, speed float64) error {
	if speed <= 0 {
		speed = 1.0
	}
	interval := time.Duration(float64(baseChunkInterval) / speed)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for offset := 0; offset < len(audioData); offset += d.chunkSize {
		end := offset + d.chunkSize
		if end > len(audioData) {
			end = len(audioData)
		}

		value := d.estimator.Estimate(audioData[offset:end])
		if err := d.sink.SetParameter(ParamMouthOpen, value); err != nil {
			d.failures.Add(1)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return nil
}

// Reset closes the mouth and clears the amplitude state so the next
// line starts from silence
func (d *Driver) Reset() error {
	d.estimator.Reset()
	if err := d.sink.Reset(); err != nil {
		logging.LogWarn("Failed to reset avatar mouth", zap.Error(err))
		return err
	}
	return nil
}

// Failures reports how many mouth updates were dropped. Safe to call
// while DriveMouth runs on another goroutine.
func (d *Driver) Failures() int {
	return int(d.failures.Load())
}
