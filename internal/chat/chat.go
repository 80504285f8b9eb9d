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

// Package chat ingests live-chat messages so the persona can react to
// its audience. Ingestion is optional; an unconfigured ingestor polls
// to nothing and the pipeline runs without context.
package chat

import (
	"context"
	"time"
)

// Message is one live-chat message
type Message struct {
	ID        string
	Text      string
	Author    string
	Timestamp time.Time
}

// Ingestor polls a live-chat source for new messages
type Ingestor interface {
	// Poll returns messages not seen by a previous Poll call
	Poll(ctx context.Context) ([]Message, error)

	// RecentContext returns the text of the most recent messages,
	// oldest first, for prompt steering
	RecentContext() []string

	// IsConfigured reports whether the source has credentials to poll
	IsConfigured() bool
}
