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

// Package messaging publishes pipeline observability events to NATS.
// Publishing is optional; with no URL configured every publish is a
// no-op and the pipeline runs standalone.
package messaging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/events"
)

// PhaseEvent announces a narrative phase switch
type PhaseEvent struct {
	Phase     string `json:"phase"`
	LineCount int    `json:"line_count"`
	Timestamp int64  `json:"timestamp"`
}

// ChatEvent announces ingested live-chat messages
type ChatEvent struct {
	Source    string `json:"source"`
	Count     int    `json:"count"`
	Timestamp int64  `json:"timestamp"`
}

// NATSService publishes pipeline events to NATS
type NATSService struct {
	url           string
	subjectPrefix string
	maxReconnect  int
	reconnectWait time.Duration
	conn          *nats.Conn
}

// NewNATSService creates a NATS service. An empty URL disables
// publishing entirely.
func NewNATSService(cfg config.NATSConfig) *NATSService {
	return &NATSService{
		url:           cfg.URL,
		subjectPrefix: cfg.SubjectPrefix,
		maxReconnect:  cfg.MaxReconnect,
		reconnectWait: cfg.ReconnectWait,
	}
}

// Enabled reports whether a NATS URL is configured
func (ns *NATSService) Enabled() bool {
	return ns.url != ""
}

// Connect establishes the connection to the NATS server. No-op when
// publishing is disabled.
func (ns *NATSService) Connect() error {
	if !ns.Enabled() {
		return nil
	}

	log.Printf("🔌 Connecting to NATS at %s", ns.url)

	opts := []nats.Option{
		nats.Name("persona-hub"),
		nats.ReconnectWait(ns.reconnectWait),
		nats.MaxReconnects(ns.maxReconnect),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("⚠️  NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("🔄 NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("🔌 NATS connection closed")
		}),
	}

	conn, err := nats.Connect(ns.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	ns.conn = conn
	log.Printf("✅ Connected to NATS server at %s", conn.ConnectedUrl())
	return nil
}

// PublishLineEvent publishes a completed line event
func (ns *NATSService) PublishLineEvent(event *events.LineEvent) error {
	subject := fmt.Sprintf("%s.lines.%s", ns.subjectPrefix, event.Phase)
	return ns.publish(subject, event)
}

// PublishPhaseSwitch announces a phase change
func (ns *NATSService) PublishPhaseSwitch(phase string, lineCount int) error {
	return ns.publish(ns.subjectPrefix+".phase", PhaseEvent{
		Phase:     phase,
		LineCount: lineCount,
		Timestamp: time.Now().UnixMilli(),
	})
}

// PublishChatActivity announces a batch of ingested chat messages
func (ns *NATSService) PublishChatActivity(source string, count int) error {
	return ns.publish(ns.subjectPrefix+".chat", ChatEvent{
		Source:    source,
		Count:     count,
		Timestamp: time.Now().UnixMilli(),
	})
}

// publish marshals and sends one event. Silently succeeds when
// publishing is disabled.
func (ns *NATSService) publish(subject string, payload interface{}) error {
	if !ns.Enabled() {
		return nil
	}
	if ns.conn == nil {
		return fmt.Errorf("NATS connection not established")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := ns.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close drains and closes the NATS connection
func (ns *NATSService) Close() {
	if ns.conn != nil {
		if err := ns.conn.Drain(); err != nil {
			log.Printf("⚠️  Error draining NATS connection: %v", err)
		}
		ns.conn = nil
	}
}
