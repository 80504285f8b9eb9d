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

package avatar

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/logging"
)

const (
	vtsAPIName    = "VTubeStudioPublicAPI"
	vtsAPIVersion = "1.0"
)

// vtsRequest is the envelope for every plugin API request
type vtsRequest struct {
	APIName     string      `json:"apiName"`
	APIVersion  string      `json:"apiVersion"`
	RequestID   string      `json:"requestID"`
	MessageType string      `json:"messageType"`
	Data        interface{} `json:"data,omitempty"`
}

// vtsResponse is the envelope for every plugin API response
type vtsResponse struct {
	APIName     string          `json:"apiName"`
	APIVersion  string          `json:"apiVersion"`
	RequestID   string          `json:"requestID"`
	MessageType string          `json:"messageType"`
	Data        json.RawMessage `json:"data,omitempty"`
}

type authTokenRequestData struct {
	PluginName      string `json:"pluginName"`
	PluginDeveloper string `json:"pluginDeveloper"`
}

type authTokenResponseData struct {
	AuthenticationToken string `json:"authenticationToken"`
}

type authRequestData struct {
	PluginName          string `json:"pluginName"`
	PluginDeveloper     string `json:"pluginDeveloper"`
	AuthenticationToken string `json:"authenticationToken"`
}

type authResponseData struct {
	Authenticated bool   `json:"authenticated"`
	Reason        string `json:"reason"`
}

type parameterValue struct {
	ID    string  `json:"id"`
	Value float64 `json:"value"`
}

type injectParameterData struct {
	Mode            string           `json:"mode"`
	ParameterValues []parameterValue `json:"parameterValues"`
}

// tokenFile is the on-disk persistence format for the plugin token
type tokenFile struct {
	AuthenticationToken string `json:"authenticationToken"`
}

// VTSClient implements Sink against a VTube Studio compatible plugin
// API over WebSocket. Requests are serialized; the runtime answers one
// message at a time.
type VTSClient struct {
	url             string
	tokenPath       string
	pluginName      string
	pluginDeveloper string

	mu            sync.Mutex
	conn          *websocket.Conn
	authenticated bool
	failedUpdates int
}

// NewVTSClient creates an avatar client for the runtime listening on
// the configured port. Call Connect before use.
func NewVTSClient(cfg config.AvatarConfig) *VTSClient {
	return &VTSClient{
		url:             fmt.Sprintf("ws://localhost:%d", cfg.Port),
		tokenPath:       cfg.TokenPath,
		pluginName:      cfg.PluginName,
		pluginDeveloper: cfg.PluginDeveloper,
	}
}

// NewVTSClientWithURL creates an avatar client against an explicit
// WebSocket URL
func NewVTSClientWithURL(cfg config.AvatarConfig, url string) *VTSClient {
	c := NewVTSClient(cfg)
	c.url = url
	return c
}

// Connect dials the avatar runtime and authenticates. A saved token is
// tried first; if the runtime rejects it the token file is deleted and
// a fresh token is requested, which makes the runtime show its allow
// popup.
func (c *VTSClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if logging.Sugar != nil {
		logging.Sugar.Infow("🔌 Connecting to avatar runtime", "url", c.url)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to avatar runtime: %w", err)
	}
	c.conn = conn

	if err := c.authenticateLocked(); err != nil {
		c.conn.Close()
		c.conn = nil
		return fmt.Errorf("avatar authentication failed: %w", err)
	}

	c.authenticated = true
	if logging.Sugar != nil {
		logging.Sugar.Infow("✅ Avatar link ready", "plugin", c.pluginName)
	}
	return nil
}

// authenticateLocked runs the token dance. Caller holds c.mu.
func (c *VTSClient) authenticateLocked() error {
	token, err := c.loadToken()
	if err == nil && token != "" {
		ok, authErr := c.authenticateWithTokenLocked(token)
		if authErr == nil && ok {
			if logging.Sugar != nil {
				logging.Sugar.Infow("🔑 Authenticated with saved token")
			}
			return nil
		}
		// Saved token rejected, discard and request a fresh one
		if removeErr := os.Remove(c.tokenPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logging.LogWarn("Failed to remove stale avatar token",
				zap.String("path", c.tokenPath),
				zap.Error(removeErr),
			)
		}
		if logging.Sugar != nil {
			logging.Sugar.Warnw("🔑 Saved token rejected, requesting a new one")
		}
	}

	token, err = c.requestTokenLocked()
	if err != nil {
		return err
	}

	if err := c.saveToken(token); err != nil {
		logging.LogWarn("Failed to persist avatar token",
			zap.String("path", c.tokenPath),
			zap.Error(err),
		)
	}

	ok, err := c.authenticateWithTokenLocked(token)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("avatar runtime rejected the new token")
	}
	return nil
}

// requestTokenLocked asks the runtime for a new plugin token. The
// runtime blocks this request until the user clicks allow.
func (c *VTSClient) requestTokenLocked() (string, error) {
	resp, err := c.roundTripLocked("AuthenticationTokenRequest", authTokenRequestData{
		PluginName:      c.pluginName,
		PluginDeveloper: c.pluginDeveloper,
	})
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}

	var data authTokenResponseData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if data.AuthenticationToken == "" {
		return "", fmt.Errorf("avatar runtime returned an empty token")
	}
	return data.AuthenticationToken, nil
}

func (c *VTSClient) authenticateWithTokenLocked(token string) (bool, error) {
	resp, err := c.roundTripLocked("AuthenticationRequest", authRequestData{
		PluginName:          c.pluginName,
		PluginDeveloper:     c.pluginDeveloper,
		AuthenticationToken: token,
	})
	if err != nil {
		return false, fmt.Errorf("authentication request failed: %w", err)
	}

	var data authResponseData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return false, fmt.Errorf("failed to decode authentication response: %w", err)
	}
	return data.Authenticated, nil
}

// roundTripLocked sends one request and reads one response. Caller
// holds c.mu.
func (c *VTSClient) roundTripLocked(messageType string, data interface{}) (*vtsResponse, error) {
	if c.conn == nil {
		return nil, fmt.Errorf("not connected")
	}

	request := vtsRequest{
		APIName:     vtsAPIName,
		APIVersion:  vtsAPIVersion,
		RequestID:   uuid.New().String(),
		MessageType: messageType,
		Data:        data,
	}

	if err := c.conn.WriteJSON(request); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", messageType, err)
	}

	var response vtsResponse
	if err := c.conn.ReadJSON(&response); err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", messageType, err)
	}

	if response.MessageType == "APIError" {
		return nil, fmt.Errorf("avatar runtime returned an API error for %s", messageType)
	}

	return &response, nil
}

// SetParameter injects one Live2D parameter value. Errors are returned
// so callers can count them, but updates run many times a second so
// individual failures are not logged here.
func (c *VTSClient) SetParameter(name string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.authenticated {
		return fmt.Errorf("avatar link not authenticated")
	}

	_, err := c.roundTripLocked("InjectParameterDataRequest", injectParameterData{
		Mode: "set",
		ParameterValues: []parameterValue{
			{ID: name, Value: value},
		},
	})
	if err != nil {
		c.failedUpdates++
		return err
	}
	return nil
}

// SetEmotion sets the mouth form from an emotion name
func (c *VTSClient) SetEmotion(emotion string) error {
	value := EmotionValue(emotion)
	if err := c.SetParameter(ParamMouthForm, value); err != nil {
		return err
	}
	if logging.Sugar != nil {
		logging.Sugar.Debugw("😊 Emotion set", "emotion", emotion, "value", value)
	}
	return nil
}

// Reset returns the mouth to the closed position
func (c *VTSClient) Reset() error {
	return c.SetParameter(ParamMouthOpen, 0.0)
}

// FailedUpdates reports how many parameter injections were rejected
// since the client connected
func (c *VTSClient) FailedUpdates() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failedUpdates
}

// Close disconnects from the avatar runtime
func (c *VTSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.authenticated = false
	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	if logging.Sugar != nil {
		logging.Sugar.Infow("🔌 Disconnected from avatar runtime")
	}
	return err
}

// loadToken reads the persisted plugin token
func (c *VTSClient) loadToken() (string, error) {
	data, err := os.ReadFile(c.tokenPath)
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("failed to parse token file: %w", err)
	}
	return tf.AuthenticationToken, nil
}

// saveToken persists the plugin token for the next run
func (c *VTSClient) saveToken(token string) error {
	data, err := json.Marshal(tokenFile{AuthenticationToken: token})
	if err != nil {
		return err
	}
	return os.WriteFile(c.tokenPath, data, 0o600)
}
