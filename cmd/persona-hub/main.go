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

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/personacast/persona-hub/internal/audio"
	"github.com/personacast/persona-hub/internal/avatar"
	"github.com/personacast/persona-hub/internal/chat"
	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/display"
	"github.com/personacast/persona-hub/internal/logging"
	"github.com/personacast/persona-hub/internal/messaging"
	"github.com/personacast/persona-hub/internal/pipeline"
	"github.com/personacast/persona-hub/internal/script"
	"github.com/personacast/persona-hub/internal/storage"
	"github.com/personacast/persona-hub/internal/tts"
)

func main() {
	// Initialize structured logging
	if err := logging.Initialize(); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	cfg, err := config.Load()
	if err != nil {
		logging.LogError(err, "Invalid configuration")
		log.Fatalf("Invalid configuration: %v", err)
	}

	logging.Sugar.Infow("🎀 persona-hub starting",
		"tts_provider", cfg.TTS.Provider,
		"voices", cfg.TTS.Voices,
		"model", cfg.LLM.Model,
		"playback_speed", cfg.Pipeline.PlaybackSpeed,
	)

	generator, err := script.NewOpenAIClient(cfg.LLM, script.DefaultPersona())
	if err != nil {
		logging.LogError(err, "Failed to create content generator")
		log.Fatalf("Failed to create content generator: %v", err)
	}
	defer generator.Close()

	synthesizer, err := tts.NewSynthesizer(cfg.TTS)
	if err != nil {
		logging.LogError(err, "Failed to create TTS synthesizer")
		log.Fatalf("Failed to create TTS synthesizer: %v", err)
	}
	defer synthesizer.Close()

	// Verify the TTS provider is reachable before going live
	selfTestCtx, cancelSelfTest := context.WithTimeout(context.Background(), 30*time.Second)
	if err := tts.SelfTest(selfTestCtx, synthesizer, cfg.TTS.Voices[0]); err != nil {
		logging.LogWarn("TTS self-test failed, continuing anyway")
		logging.Sugar.Warnw("⚠️ TTS may fail during the stream", "error", err)
	} else {
		logging.Sugar.Infow("✅ TTS self-test passed", "voice", cfg.TTS.Voices[0])
	}
	cancelSelfTest()

	// Avatar link is optional; the stream runs without it
	var avatarSink avatar.Sink = avatar.NopSink{}
	var mouth pipeline.MouthDriver
	if cfg.Avatar.Enabled {
		client := avatar.NewVTSClient(cfg.Avatar)
		connectCtx, cancelConnect := context.WithTimeout(context.Background(), 60*time.Second)
		if err := client.Connect(connectCtx); err != nil {
			logging.Sugar.Warnw("🎭 Avatar link disabled, connection failed", "error", err)
		} else {
			avatarSink = client
			mouth = avatar.NewDriver(client, cfg.Avatar)
			if err := client.SetEmotion("happy"); err != nil {
				logging.LogWarn("Failed to set initial emotion")
			}
		}
		cancelConnect()
	}
	defer avatarSink.Close()

	textDisplay := display.NewTextDisplay(cfg.Display)

	chatClient, err := chat.NewYouTubeClient(cfg.Chat)
	if err != nil {
		logging.LogError(err, "Failed to create chat client")
		log.Fatalf("Failed to create chat client: %v", err)
	}

	db, err := storage.NewDatabase(storage.DatabaseConfig{Path: cfg.Storage.DBPath})
	if err != nil {
		logging.LogError(err, "Failed to open database")
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	natsService := messaging.NewNATSService(cfg.NATS)
	if err := natsService.Connect(); err != nil {
		logging.Sugar.Warnw("📡 Event publishing disabled, NATS unreachable", "error", err)
		natsService = messaging.NewNATSService(config.NATSConfig{})
	}
	defer natsService.Close()

	p := pipeline.New(cfg.Pipeline, cfg.Chat.PollInterval, pipeline.Components{
		Generator:   generator,
		Persona:     script.DefaultPersona(),
		Synthesizer: synthesizer,
		Voices:      cfg.TTS.Voices,
		Player:      audio.NewMPVPlayer(cfg.Pipeline.PlaybackSpeed),
		Mouth:       mouth,
		Display:     textDisplay,
		Chat:        chatClient,
		Recorder:    storage.NewLineEventsStore(db),
		Publisher:   natsService,
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.Sugar.Infow("🛑 Shutting down", "signal", sig.String())
		cancel()
	}()

	p.Run(ctx)

	logging.Sugar.Infow("👋 Livestream ended, thanks for watching")
}
