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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/logging"
)

// tiktokMaxTextLength is the per-request character limit. The upstream
// API rejects around 300 characters, so we clip a little below that.
const tiktokMaxTextLength = 290

// TikTokEndpoint describes one proxy endpoint and its response shape
type TikTokEndpoint struct {
	URL            string
	ResponseFormat string // "data" or "base64"
}

// defaultTikTokEndpoints are public proxy services that need no session
// id. Tried in order until one returns audio.
var defaultTikTokEndpoints = []TikTokEndpoint{
	{URL: "https://tiktok-tts.weilnet.workers.dev/api/generation", ResponseFormat: "data"},
	{URL: "https://gesserit.co/api/tiktok-tts", ResponseFormat: "base64"},
}

// tiktokVoices from https://github.com/mark-rez/TikTok-Voice-TTS
var tiktokVoices = []string{
	"en_us_001",
	"en_us_002",
	"en_us_006",
	"en_us_007",
	"en_us_009",
	"en_us_010",
	"en_female_betty",
	"en_female_richgirl",
}

// tiktokRequest is the request body shared by all proxy endpoints
type tiktokRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// tiktokResponse covers both proxy response shapes
type tiktokResponse struct {
	Data    string `json:"data,omitempty"`
	Base64  string `json:"base64,omitempty"`
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TikTokClient implements Synthesizer against TikTok TTS proxy services
// with automatic endpoint fallback
type TikTokClient struct {
	endpoints []TikTokEndpoint
	client    *http.Client
	semaphore chan struct{} // Limits concurrent requests
}

// NewTikTokClient creates a TikTok TTS client using the default proxy
// endpoints
func NewTikTokClient(cfg config.TTSConfig) *TikTokClient {
	return NewTikTokClientWithEndpoints(cfg, defaultTikTokEndpoints)
}

// NewTikTokClientWithEndpoints creates a TikTok TTS client against a
// custom endpoint list
func NewTikTokClientWithEndpoints(cfg config.TTSConfig, endpoints []TikTokEndpoint) *TikTokClient {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	c := &TikTokClient{
		endpoints: endpoints,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		semaphore: make(chan struct{}, maxConcurrent),
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("🔊 TikTok TTS client initialized",
			"endpoints", len(endpoints),
			"max_concurrent", maxConcurrent,
		)
	}

	return c
}

// Synthesize converts text to MP3 audio, trying each proxy endpoint in
// order until one returns audio
func (c *TikTokClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	text = truncate(text, tiktokMaxTextLength)
	startTime := time.Now()

	var lastErr error
	for _, endpoint := range c.endpoints {
		audio, err := c.synthesizeVia(ctx, endpoint, text, voice)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if logging.Logger != nil {
				logging.LogWarn("TikTok TTS endpoint failed, trying next",
					zap.String("url", endpoint.URL),
					zap.Error(err),
				)
			}
			continue
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

	return nil, fmt.Errorf("all TikTok TTS endpoints failed: %w", lastErr)
}

// synthesizeVia issues one request against a single endpoint
func (c *TikTokClient) synthesizeVia(ctx context.Context, endpoint TikTokEndpoint, text, voice string) ([]byte, error) {
	requestBody, err := json.Marshal(tiktokRequest{Text: text, Voice: voice})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal TTS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint.URL, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("TTS HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TTS request failed with status %d", resp.StatusCode)
	}

	var response tiktokResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode TTS response: %w", err)
	}

	return extractAudio(response, endpoint.ResponseFormat)
}

// extractAudio decodes the base64 audio payload from either response
// shape
func extractAudio(response tiktokResponse, format string) ([]byte, error) {
	var encoded string

	switch format {
	case "base64":
		if response.Success && response.Base64 != "" {
			encoded = response.Base64
		} else if response.Data != "" {
			encoded = response.Data
		}
	default: // "data"
		encoded = response.Data
	}

	if encoded == "" {
		if response.Error != "" {
			return nil, fmt.Errorf("TTS endpoint returned error: %s", response.Error)
		}
		return nil, fmt.Errorf("TTS response contained no audio")
	}

	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TTS audio: %w", err)
	}

	if len(audio) == 0 {
		return nil, fmt.Errorf("TTS endpoint returned empty audio")
	}

	return audio, nil
}

// AvailableVoices returns the known TikTok voice identifiers
func (c *TikTokClient) AvailableVoices() []string {
	voices := make([]string, len(tiktokVoices))
	copy(voices, tiktokVoices)
	return voices
}

// ProviderName returns the provider name
func (c *TikTokClient) ProviderName() string {
	return "TikTok TTS"
}

// MaxTextLength returns the per-request character limit
func (c *TikTokClient) MaxTextLength() int {
	return tiktokMaxTextLength
}

// Close cleans up resources
func (c *TikTokClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
