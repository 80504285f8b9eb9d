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

package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/logging"
)

const (
	elevenLabsBaseURL       = "https://api.elevenlabs.io/v1"
	elevenLabsMaxTextLength = 5000
	elevenLabsModel         = "eleven_turbo_v2_5"
)

// elevenLabsVoices maps friendly voice names to ElevenLabs voice ids
var elevenLabsVoices = map[string]string{
	"rachel": "21m00Tcm4TlvDq8ikWAM",
	"domi":   "AZnzlk1XvdvUeBnXmlld",
	"bella":  "EXAVITQu4vr4xnSDxMaL",
	"antoni": "ErXwobaYiN019PkySvjV",
	"elli":   "MF3mGyEYCl7XYWbV9V6O",
	"josh":   "TxGEqnHWrfWFTfGW9XjX",
	"arnold": "VR6AewLTigWG4xSOukaG",
	"adam":   "pNInz6obpgDQGcFmaJgB",
	"sam":    "yoZ06aMxZJJ28mfd3POQ",
}

// elevenLabsRequest is the text-to-speech request body
type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// elevenLabsVoiceSettings tunes voice realism for streaming
type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// ElevenLabsClient implements Synthesizer against the ElevenLabs API
type ElevenLabsClient struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	semaphore chan struct{}
}

// NewElevenLabsClient creates an ElevenLabs TTS client
func NewElevenLabsClient(cfg config.TTSConfig) (*ElevenLabsClient, error) {
	return NewElevenLabsClientWithBaseURL(cfg, elevenLabsBaseURL)
}

// NewElevenLabsClientWithBaseURL creates an ElevenLabs TTS client
// against a custom API base URL
func NewElevenLabsClientWithBaseURL(cfg config.TTSConfig, baseURL string) (*ElevenLabsClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ElevenLabs API key cannot be empty")
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	c := &ElevenLabsClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		semaphore: make(chan struct{}, maxConcurrent),
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("🔊 ElevenLabs TTS client initialized",
			"model", elevenLabsModel,
			"max_concurrent", maxConcurrent,
		)
	}

	return c, nil
}

// Synthesize converts text to MP3 audio. The voice may be a friendly
// name from the voice map or a raw ElevenLabs voice id.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	text = truncate(text, elevenLabsMaxTextLength)

	voiceID := voice
	if id, ok := elevenLabsVoices[strings.ToLower(voice)]; ok {
		voiceID = id
	}

	request := elevenLabsRequest{
		Text:    text,
		ModelID: elevenLabsModel,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Style:           0.0,
			UseSpeakerBoost: true,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/text-to-speech/"+voiceID, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.client.Do(req)
	if err != nil {
		if logging.Logger != nil {
			logging.LogError(err, "ElevenLabs TTS HTTP request failed",
				zap.String("voice", voice),
			)
		}
		return nil, fmt.Errorf("TTS HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if logging.Logger != nil {
			logging.LogWarn("ElevenLabs TTS request failed",
				zap.Int("status_code", resp.StatusCode),
				zap.String("response_body", string(body)),
			)
		}
		return nil, fmt.Errorf("TTS request failed with status %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read TTS audio: %w", err)
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}

	if logging.Logger != nil {
		logging.LogTTSOperation("synthesis_complete",
			zap.String("voice", voice),
			zap.Int("text_length", len(text)),
			zap.Int("audio_bytes", len(audio)),
			zap.Duration("processing_time", time.Since(startTime)),
		)
	}

	return audio, nil
}

// AvailableVoices returns the friendly voice names from the voice map
func (c *ElevenLabsClient) AvailableVoices() []string {
	voices := make([]string, 0, len(elevenLabsVoices))
	for name := range elevenLabsVoices {
		voices = append(voices, name)
	}
	sort.Strings(voices)
	return voices
}

// ProviderName returns the provider name
func (c *ElevenLabsClient) ProviderName() string {
	return "ElevenLabs"
}

// MaxTextLength returns the per-request character limit
func (c *ElevenLabsClient) MaxTextLength() int {
	return elevenLabsMaxTextLength
}

// Close cleans up resources
func (c *ElevenLabsClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
