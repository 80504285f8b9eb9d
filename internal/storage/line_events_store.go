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

package storage

import (
	"database/sql"
	"fmt"

	"github.com/personacast/persona-hub/internal/events"
)

// LineEventsStore handles database operations for line events
type LineEventsStore struct {
	db *Database
}

// NewLineEventsStore creates a new line events store
func NewLineEventsStore(db *Database) *LineEventsStore {
	return &LineEventsStore{db: db}
}

// Insert stores a line event
func (s *LineEventsStore) Insert(event *events.LineEvent) error {
	if event.UUID == "" {
		return fmt.Errorf("line event UUID cannot be empty")
	}

	query := `
		INSERT INTO line_events (
			uuid, sequence, timestamp,
			phase, text, fallback,
			voice, audio_bytes,
			generation_time_ms, synthesis_time_ms, playback_time_ms,
			success, error_message
		) VALUES (
			?, ?, ?,
			?, ?, ?,
			?, ?,
			?, ?, ?,
			?, ?
		)`

	_, err := s.db.DB().Exec(query,
		event.UUID, event.Sequence, event.Timestamp,
		event.Phase, event.Text, event.Fallback,
		event.Voice, event.AudioBytes,
		event.GenerationTime, event.SynthesisTime, event.PlaybackTime,
		event.Success, event.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to insert line event: %w", err)
	}

	return nil
}

// GetByUUID retrieves a line event by its UUID
func (s *LineEventsStore) GetByUUID(uuid string) (*events.LineEvent, error) {
	query := `
		SELECT uuid, sequence, timestamp,
		       phase, text, fallback,
		       voice, audio_bytes,
		       generation_time_ms, synthesis_time_ms, playback_time_ms,
		       success, error_message
		FROM line_events
		WHERE uuid = ?`

	return scanLineEvent(s.db.DB().QueryRow(query, uuid))
}

// ListRecent retrieves the most recent line events, newest first
func (s *LineEventsStore) ListRecent(limit int) ([]*events.LineEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT uuid, sequence, timestamp,
		       phase, text, fallback,
		       voice, audio_bytes,
		       generation_time_ms, synthesis_time_ms, playback_time_ms,
		       success, error_message
		FROM line_events
		ORDER BY sequence DESC
		LIMIT ?`

	rows, err := s.db.DB().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query line events: %w", err)
	}
	defer rows.Close()

	var list []*events.LineEvent
	for rows.Next() {
		event, err := scanLineEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, event)
	}
	return list, rows.Err()
}

// CountByPhase returns how many lines were spoken per phase
func (s *LineEventsStore) CountByPhase() (map[string]int, error) {
	rows, err := s.db.DB().Query(`SELECT phase, COUNT(*) FROM line_events GROUP BY phase`)
	if err != nil {
		return nil, fmt.Errorf("failed to count line events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var phase string
		var count int
		if err := rows.Scan(&phase, &count); err != nil {
			return nil, fmt.Errorf("failed to scan phase count: %w", err)
		}
		counts[phase] = count
	}
	return counts, rows.Err()
}

// scanner covers both sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanLineEvent(row scanner) (*events.LineEvent, error) {
	var event events.LineEvent
	var errorMessage sql.NullString

	err := row.Scan(
		&event.UUID, &event.Sequence, &event.Timestamp,
		&event.Phase, &event.Text, &event.Fallback,
		&event.Voice, &event.AudioBytes,
		&event.GenerationTime, &event.SynthesisTime, &event.PlaybackTime,
		&event.Success, &errorMessage,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("line event not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan line event: %w", err)
	}

	if errorMessage.Valid {
		event.ErrorMessage = errorMessage.String
	}
	return &event, nil
}
