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

package logging

import (
	"errors"
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize(t *testing.T) {
	// Save original environment
	originalLevel := os.Getenv("LOG_LEVEL")
	originalFormat := os.Getenv("LOG_FORMAT")
	defer func() {
		_ = os.Setenv("LOG_LEVEL", originalLevel)
		_ = os.Setenv("LOG_FORMAT", originalFormat)
	}()

	tests := []struct {
		name      string
		logLevel  string
		logFormat string
		wantErr   bool
	}{
		{
			name:      "Default values",
			logLevel:  "",
			logFormat: "",
			wantErr:   false,
		},
		{
			name:      "Info level console format",
			logLevel:  "info",
			logFormat: "console",
			wantErr:   false,
		},
		{
			name:      "Debug level JSON format",
			logLevel:  "debug",
			logFormat: "json",
			wantErr:   false,
		},
		{
			name:      "Invalid format defaults to console",
			logLevel:  "info",
			logFormat: "invalid",
			wantErr:   false,
		},
		{
			name:      "Invalid level defaults to info",
			logLevel:  "invalid",
			logFormat: "console",
			wantErr:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.logLevel != "" {
				_ = os.Setenv("LOG_LEVEL", tt.logLevel)
			} else {
				_ = os.Unsetenv("LOG_LEVEL")
			}
			if tt.logFormat != "" {
				_ = os.Setenv("LOG_FORMAT", tt.logFormat)
			} else {
				_ = os.Unsetenv("LOG_FORMAT")
			}

			err := Initialize()

			if tt.wantErr {
				if err == nil {
					t.Error("Initialize() expected error but got none")
				}
				return
			}

			if err != nil {
				t.Errorf("Initialize() unexpected error: %v", err)
				return
			}

			if Logger == nil {
				t.Error("Logger should not be nil after initialization")
			}
			if Sugar == nil {
				t.Error("Sugar should not be nil after initialization")
			}

			Close()
		})
	}
}

func TestInitializeWithConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  LogConfig
		wantErr bool
	}{
		{
			name:    "Console format info level",
			config:  LogConfig{Level: "info", Format: "console"},
			wantErr: false,
		},
		{
			name:    "JSON format debug level",
			config:  LogConfig{Level: "debug", Format: "json"},
			wantErr: false,
		},
		{
			name:    "Invalid format defaults to console",
			config:  LogConfig{Level: "info", Format: "invalid"},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InitializeWithConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("InitializeWithConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			Close()
		})
	}
}

// setupObservedLogger swaps the global logger for an in-memory observer
func setupObservedLogger() (*observer.ObservedLogs, func()) {
	core, observed := observer.New(zapcore.DebugLevel)
	originalLogger := Logger
	originalSugar := Sugar

	Logger = zap.New(core)
	Sugar = Logger.Sugar()

	return observed, func() {
		Logger = originalLogger
		Sugar = originalSugar
	}
}

func TestLogPipelineStage(t *testing.T) {
	observed, restore := setupObservedLogger()
	defer restore()

	LogPipelineStage("producer", 7, zap.String("text", "hello"))

	logs := observed.All()
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logs))
	}

	entry := logs[0]
	if entry.Message != "Pipeline stage" {
		t.Errorf("Message = %q, expected %q", entry.Message, "Pipeline stage")
	}

	fields := entry.ContextMap()
	if fields["component"] != "pipeline" {
		t.Errorf("component = %v, expected pipeline", fields["component"])
	}
	if fields["stage"] != "producer" {
		t.Errorf("stage = %v, expected producer", fields["stage"])
	}
	if fields["sequence"] != int64(7) {
		t.Errorf("sequence = %v, expected 7", fields["sequence"])
	}
}

func TestLogTTSOperation(t *testing.T) {
	observed, restore := setupObservedLogger()
	defer restore()

	LogTTSOperation("synthesis_start", zap.Int("text_length", 42))

	logs := observed.All()
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logs))
	}

	fields := logs[0].ContextMap()
	if fields["component"] != "tts" {
		t.Errorf("component = %v, expected tts", fields["component"])
	}
	if fields["operation"] != "synthesis_start" {
		t.Errorf("operation = %v, expected synthesis_start", fields["operation"])
	}
}

func TestLogAvatarOperation(t *testing.T) {
	observed, restore := setupObservedLogger()
	defer restore()

	LogAvatarOperation("set_parameter", zap.Float64("value", 0.5))

	logs := observed.All()
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logs))
	}

	fields := logs[0].ContextMap()
	if fields["component"] != "avatar" {
		t.Errorf("component = %v, expected avatar", fields["component"])
	}
}

func TestLogChatEvent(t *testing.T) {
	observed, restore := setupObservedLogger()
	defer restore()

	LogChatEvent("youtube", "poll", zap.Int("new_messages", 3))

	logs := observed.All()
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logs))
	}

	fields := logs[0].ContextMap()
	if fields["component"] != "chat" {
		t.Errorf("component = %v, expected chat", fields["component"])
	}
	if fields["source"] != "youtube" {
		t.Errorf("source = %v, expected youtube", fields["source"])
	}
}

func TestLogError(t *testing.T) {
	observed, restore := setupObservedLogger()
	defer restore()

	testErr := errors.New("synthesis failed")
	LogError(testErr, "TTS request failed", zap.String("voice", "en_us_002"))

	logs := observed.All()
	if len(logs) != 1 {
		t.Fatalf("Expected 1 log entry, got %d", len(logs))
	}

	entry := logs[0]
	if entry.Level != zapcore.ErrorLevel {
		t.Errorf("Level = %v, expected error", entry.Level)
	}
	if entry.ContextMap()["error"] != "synthesis failed" {
		t.Errorf("error field = %v, expected %q", entry.ContextMap()["error"], "synthesis failed")
	}
}

func TestHelpersWithNilLogger(t *testing.T) {
	originalLogger := Logger
	originalSugar := Sugar
	Logger = nil
	Sugar = nil
	defer func() {
		Logger = originalLogger
		Sugar = originalSugar
	}()

	// None of these should panic with a nil logger
	LogPipelineStage("producer", 1)
	LogTTSOperation("synthesis_start")
	LogAvatarOperation("reset")
	LogChatEvent("youtube", "poll")
	LogDatabaseOperation("insert", "line_events")
	LogError(errors.New("test"), "message")
	LogWarn("message")
	Sync()
	Close()
}
