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

package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/logging"
)

const (
	youtubeChatURL = "https://www.googleapis.com/youtube/v3/liveChat/messages"
	maxPollResults = 50
)

// youtubeChatResponse is the subset of the liveChat/messages response
// we read
type youtubeChatResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			DisplayMessage string    `json:"displayMessage"`
			PublishedAt    time.Time `json:"publishedAt"`
		} `json:"snippet"`
		AuthorDetails struct {
			DisplayName string `json:"displayName"`
		} `json:"authorDetails"`
	} `json:"items"`
}

// YouTubeClient implements Ingestor against the YouTube Live Chat API.
// Message ids are deduplicated with a bounded LRU so a long stream
// cannot grow the seen-set without bound.
type YouTubeClient struct {
	baseURL     string
	liveChatID  string
	apiKey      string
	contextSize int
	client      *http.Client

	mu     sync.Mutex
	seen   *lru.Cache[string, struct{}]
	recent []string
}

// NewYouTubeClient creates a live-chat ingestor. An empty chat id or
// API key yields a client that polls to nothing.
func NewYouTubeClient(cfg config.ChatConfig) (*YouTubeClient, error) {
	return NewYouTubeClientWithBaseURL(cfg, youtubeChatURL)
}

// NewYouTubeClientWithBaseURL creates a live-chat ingestor against a
// custom API URL
func NewYouTubeClientWithBaseURL(cfg config.ChatConfig, baseURL string) (*YouTubeClient, error) {
	capacity := cfg.DedupCapacity
	if capacity <= 0 {
		capacity = 1024
	}

	seen, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedup cache: %w", err)
	}

	c := &YouTubeClient{
		baseURL:     baseURL,
		liveChatID:  cfg.LiveChatID,
		apiKey:      cfg.APIKey,
		contextSize: cfg.ContextSize,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		seen: seen,
	}

	if c.IsConfigured() {
		if logging.Sugar != nil {
			logging.Sugar.Infow("💬 YouTube chat ingestion enabled",
				"live_chat_id", cfg.LiveChatID,
				"context_size", cfg.ContextSize,
			)
		}
	} else if logging.Sugar != nil {
		logging.Sugar.Infow("💬 YouTube chat not configured, running without audience context")
	}

	return c, nil
}

// IsConfigured reports whether both the chat id and API key are set
func (c *YouTubeClient) IsConfigured() bool {
	return c.liveChatID != "" && c.apiKey != ""
}

// Poll fetches the latest chat messages and returns only those not
// previously seen. Messages are also appended to the recent-context
// ring.
func (c *YouTubeClient) Poll(ctx context.Context) ([]Message, error) {
	if !c.IsConfigured() {
		return nil, nil
	}

	params := url.Values{}
	params.Set("liveChatId", c.liveChatID)
	params.Set("part", "snippet,authorDetails")
	params.Set("key", c.apiKey)
	params.Set("maxResults", strconv.Itoa(maxPollResults))

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat poll failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat poll failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response youtubeChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var fresh []Message
	for _, item := range response.Items {
		if _, dup := c.seen.Get(item.ID); dup {
			continue
		}
		c.seen.Add(item.ID, struct{}{})

		fresh = append(fresh, Message{
			ID:        item.ID,
			Text:      item.Snippet.DisplayMessage,
			Author:    item.AuthorDetails.DisplayName,
			Timestamp: item.Snippet.PublishedAt,
		})

		c.recent = append(c.recent, item.Snippet.DisplayMessage)
		if c.contextSize > 0 && len(c.recent) > c.contextSize {
			c.recent = c.recent[len(c.recent)-c.contextSize:]
		}
	}

	if len(fresh) > 0 {
		logging.LogChatEvent("youtube", "messages_received",
			zap.Int("count", len(fresh)),
		)
	}

	return fresh, nil
}

// RecentContext returns a copy of the recent-message ring, oldest first
func (c *YouTubeClient) RecentContext() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, len(c.recent))
	copy(out, c.recent)
	return out
}
