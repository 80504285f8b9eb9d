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

package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/logging"
	"github.com/personacast/persona-hub/internal/phase"
)

// chatMessage is one entry in a chat-completions conversation
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for the chat-completions endpoint
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

// chatResponse is the subset of the chat-completions response we read
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// OpenAIClient implements ContentGenerator against an OpenAI-compatible
// chat-completions API
type OpenAIClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float32
	maxTokens   int
	persona     Persona
	client      *http.Client
}

// NewOpenAIClient creates a content generator for the given persona
func NewOpenAIClient(cfg config.LLMConfig, persona Persona) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("content generation API key cannot be empty")
	}

	client := &OpenAIClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		persona:     persona,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}

	if logging.Sugar != nil {
		logging.Sugar.Infow("🤖 Content generator initialized",
			"model", cfg.Model,
			"temperature", cfg.Temperature,
			"max_tokens", cfg.MaxTokens,
		)
	}

	return client, nil
}

// GenerateLine asks the model for one line in the voice of the persona.
// The last three chat messages, if any, are appended to the user message
// so the persona can react to its audience.
func (c *OpenAIClient) GenerateLine(ctx context.Context, current phase.Phase, chatContext []string) (string, error) {
	userMessage := fmt.Sprintf("Generate one energetic %s line:", current)
	if len(chatContext) > 0 {
		recent := chatContext
		if len(recent) > 3 {
			recent = recent[len(recent)-3:]
		}
		userMessage += fmt.Sprintf("\n\nRecent chat messages for context: %s", strings.Join(recent, ", "))
	}

	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: c.persona.Prompt(current)},
			{Role: "user", Content: userMessage},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generation request: %w", err)
	}

	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if logging.Logger != nil {
			logging.LogError(err, "Content generation HTTP request failed",
				zap.String("phase", current.String()),
			)
		}
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if logging.Logger != nil {
			logging.LogWarn("Content generation request rejected",
				zap.Int("status_code", resp.StatusCode),
				zap.String("response_body", string(body)),
			)
		}
		return "", fmt.Errorf("generation request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("generation API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("generation response contained no choices")
	}

	line := strings.TrimSpace(response.Choices[0].Message.Content)
	// Models sometimes wrap the line in quotes despite the prompt
	if len(line) >= 2 && strings.HasPrefix(line, `"`) && strings.HasSuffix(line, `"`) {
		line = line[1 : len(line)-1]
	}

	if line == "" {
		return "", fmt.Errorf("generation response was empty")
	}

	if logging.Sugar != nil {
		logging.Sugar.Debugw("🤖 Line generated",
			"phase", current.String(),
			"text_length", len(line),
			"processing_time", time.Since(startTime),
		)
	}

	return line, nil
}

// Close cleans up resources
func (c *OpenAIClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
