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
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/personacast/persona-hub/internal/config"
)

func testTTSConfig() config.TTSConfig {
	return config.TTSConfig{
		Provider:      "tiktok",
		Voices:        []string{"en_us_002"},
		MaxConcurrent: 2,
		Timeout:       5 * time.Second,
	}
}

func TestTikTokSynthesize_DataFormat(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	var captured tiktokRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		fmt.Fprintf(w, `{"data":%q}`, base64.StdEncoding.EncodeToString(audio))
	}))
	defer server.Close()

	client := NewTikTokClientWithEndpoints(testTTSConfig(), []TikTokEndpoint{
		{URL: server.URL, ResponseFormat: "data"},
	})
	defer client.Close()

	got, err := client.Synthesize(context.Background(), "hello chat", "en_us_002")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(got) != string(audio) {
		t.Errorf("Audio = %q, expected %q", got, audio)
	}

	if captured.Text != "hello chat" || captured.Voice != "en_us_002" {
		t.Errorf("Unexpected request payload: %+v", captured)
	}
}

func TestTikTokSynthesize_Base64Format(t *testing.T) {
	audio := []byte("other-mp3-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"success":true,"base64":%q}`, base64.StdEncoding.EncodeToString(audio))
	}))
	defer server.Close()

	client := NewTikTokClientWithEndpoints(testTTSConfig(), []TikTokEndpoint{
		{URL: server.URL, ResponseFormat: "base64"},
	})
	defer client.Close()

	got, err := client.Synthesize(context.Background(), "hello", "en_us_002")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(got) != string(audio) {
		t.Errorf("Audio = %q, expected %q", got, audio)
	}
}

func TestTikTokSynthesize_EndpointFallback(t *testing.T) {
	audio := []byte("fallback-audio")
	firstCalls := 0

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		firstCalls++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":%q}`, base64.StdEncoding.EncodeToString(audio))
	}))
	defer working.Close()

	client := NewTikTokClientWithEndpoints(testTTSConfig(), []TikTokEndpoint{
		{URL: failing.URL, ResponseFormat: "data"},
		{URL: working.URL, ResponseFormat: "data"},
	})
	defer client.Close()

	got, err := client.Synthesize(context.Background(), "hello", "en_us_002")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(got) != string(audio) {
		t.Errorf("Audio = %q, expected %q", got, audio)
	}

	if firstCalls != 1 {
		t.Errorf("First endpoint called %d times, expected 1", firstCalls)
	}
}

func TestTikTokSynthesize_AllEndpointsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewTikTokClientWithEndpoints(testTTSConfig(), []TikTokEndpoint{
		{URL: server.URL, ResponseFormat: "data"},
		{URL: server.URL, ResponseFormat: "base64"},
	})
	defer client.Close()

	if _, err := client.Synthesize(context.Background(), "hello", "en_us_002"); err == nil {
		t.Error("Expected error when all endpoints fail")
	}
}

func TestTikTokSynthesize_TruncatesLongText(t *testing.T) {
	var captured tiktokRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		fmt.Fprintf(w, `{"data":%q}`, base64.StdEncoding.EncodeToString([]byte("x")))
	}))
	defer server.Close()

	client := NewTikTokClientWithEndpoints(testTTSConfig(), []TikTokEndpoint{
		{URL: server.URL, ResponseFormat: "data"},
	})
	defer client.Close()

	long := strings.Repeat("a", 500)
	if _, err := client.Synthesize(context.Background(), long, "en_us_002"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if len(captured.Text) != tiktokMaxTextLength {
		t.Errorf("Sent text length = %d, expected %d", len(captured.Text), tiktokMaxTextLength)
	}
}

func TestTikTokSynthesize_EmptyText(t *testing.T) {
	client := NewTikTokClient(testTTSConfig())
	defer client.Close()

	if _, err := client.Synthesize(context.Background(), "", "en_us_002"); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestExtractAudio(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("mp3"))

	tests := []struct {
		name     string
		response tiktokResponse
		format   string
		wantErr  bool
	}{
		{"data field", tiktokResponse{Data: encoded}, "data", false},
		{"base64 field with success", tiktokResponse{Success: true, Base64: encoded}, "base64", false},
		{"base64 format falls back to data", tiktokResponse{Data: encoded}, "base64", false},
		{"missing audio", tiktokResponse{}, "data", true},
		{"error payload", tiktokResponse{Error: "quota exceeded"}, "data", true},
		{"invalid base64", tiktokResponse{Data: "!!not-base64!!"}, "data", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio, err := extractAudio(tt.response, tt.format)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("extractAudio failed: %v", err)
			}
			if string(audio) != "mp3" {
				t.Errorf("Audio = %q, expected %q", audio, "mp3")
			}
		})
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	audio := []byte("eleven-mp3")
	var capturedPath, capturedKey string
	var captured elevenLabsRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		w.Write(audio)
	}))
	defer server.Close()

	cfg := testTTSConfig()
	cfg.Provider = "elevenlabs"
	cfg.APIKey = "el-key"

	client, err := NewElevenLabsClientWithBaseURL(cfg, server.URL)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	got, err := client.Synthesize(context.Background(), "hello friends", "rachel")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(got) != string(audio) {
		t.Errorf("Audio = %q, expected %q", got, audio)
	}

	// Friendly name must be mapped to the voice id in the URL
	if capturedPath != "/text-to-speech/21m00Tcm4TlvDq8ikWAM" {
		t.Errorf("Unexpected request path: %s", capturedPath)
	}

	if capturedKey != "el-key" {
		t.Errorf("Unexpected API key header: %q", capturedKey)
	}

	if captured.ModelID != elevenLabsModel {
		t.Errorf("Model = %q, expected %q", captured.ModelID, elevenLabsModel)
	}

	if captured.VoiceSettings.SimilarityBoost != 0.75 {
		t.Errorf("SimilarityBoost = %f, expected 0.75", captured.VoiceSettings.SimilarityBoost)
	}
}

func TestElevenLabsSynthesize_RawVoiceID(t *testing.T) {
	var capturedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Write([]byte("x"))
	}))
	defer server.Close()

	cfg := testTTSConfig()
	cfg.APIKey = "el-key"

	client, err := NewElevenLabsClientWithBaseURL(cfg, server.URL)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	if _, err := client.Synthesize(context.Background(), "hi", "customVoiceId123"); err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if capturedPath != "/text-to-speech/customVoiceId123" {
		t.Errorf("Unexpected request path: %s", capturedPath)
	}
}

func TestNewElevenLabsClient_RequiresAPIKey(t *testing.T) {
	cfg := testTTSConfig()
	cfg.APIKey = ""

	if _, err := NewElevenLabsClient(cfg); err == nil {
		t.Error("Expected error for empty API key")
	}
}

func TestNewSynthesizer(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		wantErr  bool
		wantName string
	}{
		{"tiktok", "tiktok", "", false, "TikTok TTS"},
		{"elevenlabs", "elevenlabs", "key", false, "ElevenLabs"},
		{"elevenlabs without key", "elevenlabs", "", true, ""},
		{"unknown provider", "espeak", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testTTSConfig()
			cfg.Provider = tt.provider
			cfg.APIKey = tt.apiKey

			s, err := NewSynthesizer(cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewSynthesizer failed: %v", err)
			}
			defer s.Close()

			if s.ProviderName() != tt.wantName {
				t.Errorf("ProviderName = %q, expected %q", s.ProviderName(), tt.wantName)
			}
		})
	}
}

func TestSelfTest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data":%q}`, base64.StdEncoding.EncodeToString([]byte("ok")))
	}))
	defer server.Close()

	client := NewTikTokClientWithEndpoints(testTTSConfig(), []TikTokEndpoint{
		{URL: server.URL, ResponseFormat: "data"},
	})
	defer client.Close()

	if err := SelfTest(context.Background(), client, "en_us_002"); err != nil {
		t.Errorf("SelfTest failed: %v", err)
	}

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer broken.Close()

	failing := NewTikTokClientWithEndpoints(testTTSConfig(), []TikTokEndpoint{
		{URL: broken.URL, ResponseFormat: "data"},
	})
	defer failing.Close()

	if err := SelfTest(context.Background(), failing, "en_us_002"); err == nil {
		t.Error("Expected SelfTest to fail")
	}
}
