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

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the persona hub
type Config struct {
	LLM      LLMConfig
	TTS      TTSConfig
	Avatar   AvatarConfig
	Chat     ChatConfig
	Display  DisplayConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	NATS     NATSConfig
	Logging  LoggingConfig
}

// LLMConfig holds content-generation service configuration
type LLMConfig struct {
	APIKey      string        // Required credential for the chat-completions API
	BaseURL     string        // OpenAI-compatible API base URL
	Model       string        // Model identifier (e.g., "gpt-4o-mini")
	Temperature float32       // Sampling temperature
	MaxTokens   int           // Maximum tokens per generated line
	Timeout     time.Duration // Request timeout
}

// TTSConfig holds Text-to-Speech service configuration
type TTSConfig struct {
	Provider      string        // TTS provider ("tiktok" or "elevenlabs")
	APIKey        string        // Credential for providers that need one
	Voices        []string      // Voice pool; one is picked at random per line
	MaxConcurrent int           // Maximum concurrent synthesis requests
	Timeout       time.Duration // Request timeout per endpoint
}

// AvatarConfig holds avatar-link configuration
type AvatarConfig struct {
	Enabled          bool
	Port             int     // Avatar-link WebSocket API port
	TokenPath        string  // Path to the persisted authentication token
	PluginName       string  // Name shown in the avatar runtime's plugin list
	PluginDeveloper  string
	Gain             float64 // Mouth movement sensitivity
	Smoothing        float64 // Temporal smoothing factor in [0,1)
	SilenceThreshold float64 // Below this, mouth snaps fully closed
	ChunkSize        int     // Audio bytes per lip-sync update
}

// ChatConfig holds live-chat ingestion configuration
type ChatConfig struct {
	LiveChatID    string        // Live chat identifier; empty disables ingestion
	APIKey        string        // Chat API credential
	PollInterval  time.Duration // How often to poll for new messages
	ContextSize   int           // Recent messages retained for prompt context
	DedupCapacity int           // Bounded LRU capacity for message-id dedup
}

// DisplayConfig holds overlay text file configuration
type DisplayConfig struct {
	Enabled  bool
	FilePath string // Text file rewritten with the currently-spoken line
	Style    string // "progressive" (word-by-word) or "full"
}

// PipelineConfig holds producer/consumer pipeline tunables
type PipelineConfig struct {
	QueueCapacity   int           // Bounded queue size between producer and consumer
	PhaseMinLines   int           // Minimum lines before a phase switch
	PhaseMaxLines   int           // Maximum lines before a phase switch
	PauseMin        time.Duration // Minimum pause between played lines
	PauseMax        time.Duration // Maximum pause between played lines
	PlaybackSpeed   float64       // Audio playback speed multiplier
	ProducerBackoff time.Duration // Delay after a failed producer iteration
	ConsumerBackoff time.Duration // Delay after a failed consumer iteration
}

// StorageConfig holds line-history database configuration
type StorageConfig struct {
	DBPath string
}

// NATSConfig holds NATS observability-stream configuration
type NATSConfig struct {
	URL           string // Empty disables event publishing
	SubjectPrefix string
	MaxReconnect  int
	ReconnectWait time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Default voice pool, energetic TikTok-style voices
var defaultVoices = []string{"en_us_002", "en_female_betty", "en_female_richgirl"}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		LLM: LLMConfig{
			APIKey:      getEnvString("OPENAI_API_KEY", ""),
			BaseURL:     getEnvString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:       getEnvString("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvFloat32("OPENAI_TEMPERATURE", 1.2),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 100),
			Timeout:     getEnvDuration("OPENAI_TIMEOUT", 30*time.Second),
		},
		TTS: TTSConfig{
			Provider:      getEnvString("TTS_PROVIDER", "tiktok"),
			APIKey:        getEnvString("ELEVENLABS_API_KEY", ""),
			Voices:        getEnvStringList("TTS_VOICES", defaultVoices),
			MaxConcurrent: getEnvInt("TTS_MAX_CONCURRENT", 2),
			Timeout:       getEnvDuration("TTS_TIMEOUT", 10*time.Second),
		},
		Avatar: AvatarConfig{
			Enabled:          getEnvBool("AVATAR_ENABLED", true),
			Port:             getEnvInt("AVATAR_PORT", 8001),
			TokenPath:        getEnvString("AVATAR_TOKEN_PATH", "vts_token.json"),
			PluginName:       getEnvString("AVATAR_PLUGIN_NAME", "Persona Hub TTS Controller"),
			PluginDeveloper:  getEnvString("AVATAR_PLUGIN_DEVELOPER", "Personacast Labs"),
			Gain:             getEnvFloat64("AVATAR_GAIN", 2.5),
			Smoothing:        getEnvFloat64("AVATAR_SMOOTHING", 0.7),
			SilenceThreshold: getEnvFloat64("AVATAR_SILENCE_THRESHOLD", 0.01),
			ChunkSize:        getEnvInt("AVATAR_CHUNK_SIZE", 4096),
		},
		Chat: ChatConfig{
			LiveChatID:    getEnvString("YOUTUBE_LIVE_CHAT_ID", ""),
			APIKey:        getEnvString("YOUTUBE_API_KEY", ""),
			PollInterval:  getEnvDuration("YOUTUBE_POLL_INTERVAL", 5*time.Second),
			ContextSize:   getEnvInt("CHAT_CONTEXT_SIZE", 10),
			DedupCapacity: getEnvInt("CHAT_DEDUP_CAPACITY", 4096),
		},
		Display: DisplayConfig{
			Enabled:  getEnvBool("TEXT_DISPLAY_ENABLED", true),
			FilePath: getEnvString("TEXT_DISPLAY_FILE", "current_text.txt"),
			Style:    getEnvString("TEXT_DISPLAY_STYLE", "progressive"),
		},
		Pipeline: PipelineConfig{
			QueueCapacity:   getEnvInt("PIPELINE_QUEUE_CAPACITY", 2),
			PhaseMinLines:   getEnvInt("PHASE_DURATION_MIN", 3),
			PhaseMaxLines:   getEnvInt("PHASE_DURATION_MAX", 5),
			PauseMin:        getEnvDuration("AUDIO_PAUSE_MIN", 50*time.Millisecond),
			PauseMax:        getEnvDuration("AUDIO_PAUSE_MAX", 150*time.Millisecond),
			PlaybackSpeed:   getEnvFloat64("AUDIO_SPEED", 1.3),
			ProducerBackoff: getEnvDuration("PRODUCER_BACKOFF", time.Second),
			ConsumerBackoff: getEnvDuration("CONSUMER_BACKOFF", 500*time.Millisecond),
		},
		Storage: StorageConfig{
			DBPath: getEnvString("DB_PATH", "./data/persona-hub.db"),
		},
		NATS: NATSConfig{
			URL:           getEnvString("NATS_URL", ""),
			SubjectPrefix: getEnvString("NATS_SUBJECT_PREFIX", "persona"),
			MaxReconnect:  getEnvInt("NATS_MAX_RECONNECT", 10),
			ReconnectWait: getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "console"),
		},
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// validate checks if the configuration is valid
func (c *Config) validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY must be provided")
	}

	if c.TTS.Provider != "tiktok" && c.TTS.Provider != "elevenlabs" {
		return fmt.Errorf("unknown TTS provider: %q", c.TTS.Provider)
	}

	if c.TTS.Provider == "elevenlabs" && c.TTS.APIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY must be provided for the elevenlabs provider")
	}

	if len(c.TTS.Voices) == 0 {
		return fmt.Errorf("at least one TTS voice must be configured")
	}

	if c.Avatar.Port <= 0 || c.Avatar.Port > 65535 {
		return fmt.Errorf("invalid avatar port: %d", c.Avatar.Port)
	}

	if c.Avatar.Smoothing < 0 || c.Avatar.Smoothing >= 1 {
		return fmt.Errorf("avatar smoothing must be in [0,1): %f", c.Avatar.Smoothing)
	}

	if c.Avatar.Gain <= 0 {
		return fmt.Errorf("avatar gain must be positive: %f", c.Avatar.Gain)
	}

	if c.Avatar.ChunkSize <= 0 {
		return fmt.Errorf("avatar chunk size must be positive: %d", c.Avatar.ChunkSize)
	}

	if c.Display.Style != "progressive" && c.Display.Style != "full" {
		return fmt.Errorf("unknown text display style: %q", c.Display.Style)
	}

	if c.Pipeline.QueueCapacity <= 0 {
		return fmt.Errorf("pipeline queue capacity must be positive: %d", c.Pipeline.QueueCapacity)
	}

	if c.Pipeline.PhaseMinLines <= 0 || c.Pipeline.PhaseMaxLines < c.Pipeline.PhaseMinLines {
		return fmt.Errorf("invalid phase duration bounds: [%d,%d]",
			c.Pipeline.PhaseMinLines, c.Pipeline.PhaseMaxLines)
	}

	if c.Pipeline.PauseMax < c.Pipeline.PauseMin {
		return fmt.Errorf("invalid pause bounds: [%v,%v]", c.Pipeline.PauseMin, c.Pipeline.PauseMax)
	}

	if c.Pipeline.PlaybackSpeed <= 0 {
		return fmt.Errorf("playback speed must be positive: %f", c.Pipeline.PlaybackSpeed)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvStringList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				list = append(list, trimmed)
			}
		}
		if len(list) > 0 {
			return list
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
