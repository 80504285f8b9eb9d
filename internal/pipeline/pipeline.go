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

// Package pipeline runs the producer/consumer loop at the heart of the
// persona: the producer generates and synthesizes lines ahead of time,
// the consumer plays them while driving the avatar mouth and the text
// overlay. A bounded queue between the two keeps synthesis one step
// ahead of playback without running away from it.
package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/personacast/persona-hub/internal/audio"
	"github.com/personacast/persona-hub/internal/chat"
	"github.com/personacast/persona-hub/internal/config"
	"github.com/personacast/persona-hub/internal/events"
	"github.com/personacast/persona-hub/internal/logging"
	"github.com/personacast/persona-hub/internal/phase"
	"github.com/personacast/persona-hub/internal/script"
	"github.com/personacast/persona-hub/internal/tts"
)

// Player plays one synthesized line to completion
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// MouthDriver animates the avatar mouth for one line of audio
type MouthDriver interface {
	DriveMouth(ctx context.Context, audio []byte, speed float64) error
	Reset() error
}

// LineDisplay mirrors the spoken line to the stream overlay
type LineDisplay interface {
	ShowLine(ctx context.Context, text string, duration time.Duration)
	Clear()
}

// EventRecorder persists completed line events
type EventRecorder interface {
	Insert(event *events.LineEvent) error
}

// EventPublisher streams pipeline events to observers
type EventPublisher interface {
	PublishLineEvent(event *events.LineEvent) error
	PublishPhaseSwitch(phase string, lineCount int) error
	PublishChatActivity(source string, count int) error
}

// queueItem carries one synthesized line from producer to consumer
type queueItem struct {
	audio []byte
	text  string
	event *events.LineEvent
}

// Components bundles the collaborators the pipeline drives. Chat,
// Recorder and Publisher may be nil; the pipeline runs without them.
type Components struct {
	Generator   script.ContentGenerator
	Persona     script.Persona
	Synthesizer tts.Synthesizer
	Voices      []string
	Player      Player
	Mouth       MouthDriver
	Display     LineDisplay
	Chat        chat.Ingestor
	Recorder    EventRecorder
	Publisher   EventPublisher
}

// Stats counts pipeline activity. Failures here are per-iteration
// recoveries, not fatal conditions.
type Stats struct {
	LinesGenerated   int
	LinesPlayed      int
	FallbackLines    int
	SynthesisErrors  int
	PlaybackErrors   int
	ProducerErrors   int
	ConsumerErrors   int
	ChatPollErrors   int
	MessagesIngested int
}

// Pipeline owns the producer and consumer loops and the bounded queue
// between them
type Pipeline struct {
	cfg          config.PipelineConfig
	pollInterval time.Duration
	comps        Components
	machine      *phase.Machine
	queue        chan queueItem

	prodRng *rand.Rand
	consRng *rand.Rand

	mu        sync.Mutex
	lineCount int
	stats     Stats
}

// New creates a pipeline. A nil rng seeds one from the global source;
// tests pass a deterministic rng.
func New(cfg config.PipelineConfig, pollInterval time.Duration, comps Components, rng *rand.Rand) *Pipeline {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &Pipeline{
		cfg:          cfg,
		pollInterval: pollInterval,
		comps:        comps,
		machine:      phase.NewMachine(cfg.PhaseMinLines, cfg.PhaseMaxLines, rng),
		queue:        make(chan queueItem, cfg.QueueCapacity),
		prodRng:      rng,
		consRng:      rand.New(rand.NewSource(rng.Int63())),
	}
}

// Run starts the producer, consumer and chat monitor and blocks until
// the context is cancelled. On the way out the avatar mouth is closed
// and the overlay cleared, whatever state playback was in.
func (p *Pipeline) Run(ctx context.Context) {
	if logging.Sugar != nil {
		logging.Sugar.Infow("⚡ Pipeline started",
			"queue_capacity", p.cfg.QueueCapacity,
			"playback_speed", p.cfg.PlaybackSpeed,
			"phase", p.machine.Current().String(),
		)
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		p.produceLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		p.consumeLoop(ctx)
	}()

	if p.comps.Chat != nil && p.comps.Chat.IsConfigured() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.chatLoop(ctx)
		}()
	}

	wg.Wait()

	if p.comps.Mouth != nil {
		if err := p.comps.Mouth.Reset(); err != nil {
			logging.LogWarn("Failed to close avatar mouth on shutdown", zap.Error(err))
		}
	}
	if p.comps.Display != nil {
		p.comps.Display.Clear()
	}

	stats := p.SnapshotStats()
	if logging.Sugar != nil {
		logging.Sugar.Infow("⚡ Pipeline stopped",
			"lines_generated", stats.LinesGenerated,
			"lines_played", stats.LinesPlayed,
			"fallback_lines", stats.FallbackLines,
			"synthesis_errors", stats.SynthesisErrors,
			"playback_errors", stats.PlaybackErrors,
		)
	}
}

// produceLoop generates and synthesizes lines ahead of playback
func (p *Pipeline) produceLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := p.produceOne(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.bump(func(s *Stats) { s.ProducerErrors++ })
			logging.LogError(err, "Producer iteration failed")
			p.sleep(ctx, p.cfg.ProducerBackoff)
		}
	}
}

// produceOne runs a single producer iteration: phase check, line
// generation, synthesis, enqueue
func (p *Pipeline) produceOne(ctx context.Context) error {
	if p.machine.ShouldSwitch() {
		newPhase := p.machine.Switch()
		if logging.Sugar != nil {
			logging.Sugar.Infow("🔄 Phase switch",
				"phase", newPhase.String(),
				"next_threshold", p.machine.Threshold(),
			)
		}
		if p.comps.Publisher != nil {
			if err := p.comps.Publisher.PublishPhaseSwitch(newPhase.String(), p.currentLineCount()); err != nil {
				logging.LogWarn("Failed to publish phase switch", zap.Error(err))
			}
		}
	}

	current := p.machine.Current()

	var chatContext []string
	if p.comps.Chat != nil && p.comps.Chat.IsConfigured() {
		chatContext = p.comps.Chat.RecentContext()
	}

	genStart := time.Now()
	line, err := p.comps.Generator.GenerateLine(ctx, current, chatContext)
	fallback := false
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.LogWarn("Generation failed, using fallback line", zap.Error(err))
		line = p.comps.Persona.FallbackLine(current, p.prodRng)
		fallback = true
	}
	if line == "" {
		return errEmptyLine
	}

	// A generated line counts toward the phase clock even if its
	// synthesis fails below
	sequence := p.nextSequence(fallback)
	p.machine.Increment()

	event := events.NewLineEvent(sequence, current.String())
	event.SetGeneration(line, fallback, time.Since(genStart))

	voice := p.comps.Voices[p.prodRng.Intn(len(p.comps.Voices))]

	logging.LogPipelineStage("line_ready", sequence,
		zap.String("phase", current.String()),
		zap.String("voice", voice),
		zap.String("text", preview(line)),
		zap.Bool("fallback", fallback),
	)

	synthStart := time.Now()
	audioData, err := p.comps.Synthesizer.Synthesize(ctx, line, voice)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.bump(func(s *Stats) { s.SynthesisErrors++ })
		event.SetError(err)
		p.record(event)
		logging.LogWarn("Synthesis failed, skipping line",
			zap.Int("sequence", sequence),
			zap.Error(err),
		)
		p.sleep(ctx, p.cfg.ProducerBackoff)
		return nil
	}
	event.SetSynthesis(voice, len(audioData), time.Since(synthStart))

	select {
	case p.queue <- queueItem{audio: audioData, text: line, event: event}:
		logging.LogPipelineStage("line_queued", sequence,
			zap.Int("audio_bytes", len(audioData)),
		)
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// consumeLoop plays queued lines while driving the avatar and overlay
func (p *Pipeline) consumeLoop(ctx context.Context) {
	for {
		var item queueItem
		select {
		case item = <-p.queue:
		case <-ctx.Done():
			return
		}

		if err := p.consumeOne(ctx, item); err != nil {
			if ctx.Err() != nil {
				return
			}
			p.bump(func(s *Stats) { s.ConsumerErrors++ })
			logging.LogError(err, "Consumer iteration failed",
				zap.Int("sequence", item.event.Sequence),
			)
			p.sleep(ctx, p.cfg.ConsumerBackoff)
		}
	}
}

// consumeOne plays one line: audio, mouth animation and text reveal run
// concurrently, then the line is recorded and a randomized pause keeps
// delivery from sounding mechanical
func (p *Pipeline) consumeOne(ctx context.Context, item queueItem) error {
	duration := audio.EstimateDuration(item.text, p.cfg.PlaybackSpeed)
	playStart := time.Now()

	var wg sync.WaitGroup
	var playErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		playErr = p.comps.Player.Play(ctx, item.audio)
	}()

	if p.comps.Mouth != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.comps.Mouth.DriveMouth(ctx, item.audio, p.cfg.PlaybackSpeed); err != nil && ctx.Err() == nil {
				logging.LogWarn("Mouth animation failed", zap.Error(err))
			}
			if err := p.comps.Mouth.Reset(); err != nil {
				logging.LogWarn("Failed to reset mouth after line", zap.Error(err))
			}
		}()
	}

	if p.comps.Display != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.comps.Display.ShowLine(ctx, item.text, duration)
		}()
	}

	wg.Wait()

	item.event.SetPlayback(time.Since(playStart))
	if playErr != nil {
		p.bump(func(s *Stats) { s.PlaybackErrors++ })
		item.event.SetError(playErr)
		p.record(item.event)
		return playErr
	}

	p.bump(func(s *Stats) { s.LinesPlayed++ })
	p.record(item.event)

	logging.LogPipelineStage("line_played", item.event.Sequence,
		zap.Duration("playback_time", time.Since(playStart)),
	)

	pause := p.cfg.PauseMin
	if spread := p.cfg.PauseMax - p.cfg.PauseMin; spread > 0 {
		pause += time.Duration(p.consRng.Int63n(int64(spread)))
	}
	p.sleep(ctx, pause)
	return nil
}

// chatLoop polls live chat on an interval and surfaces new messages
func (p *Pipeline) chatLoop(ctx context.Context) {
	if logging.Sugar != nil {
		logging.Sugar.Infow("💬 Chat monitoring started", "poll_interval", p.pollInterval)
	}

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// First poll runs right away so the earliest generated lines can
	// already draw on chat context
	p.pollChat(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		p.pollChat(ctx)
	}
}

// pollChat runs one chat poll, surfacing and publishing fresh messages
func (p *Pipeline) pollChat(ctx context.Context) {
	messages, err := p.comps.Chat.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.bump(func(s *Stats) { s.ChatPollErrors++ })
		logging.LogWarn("Chat poll failed", zap.Error(err))
		return
	}

	for _, msg := range messages {
		logging.LogChatEvent("youtube", "message",
			zap.String("author", msg.Author),
			zap.String("text", msg.Text),
		)
	}

	if len(messages) > 0 {
		p.bump(func(s *Stats) { s.MessagesIngested += len(messages) })
		if p.comps.Publisher != nil {
			if err := p.comps.Publisher.PublishChatActivity("youtube", len(messages)); err != nil {
				logging.LogWarn("Failed to publish chat activity", zap.Error(err))
			}
		}
	}
}

// record persists and publishes a line event; both are best-effort
func (p *Pipeline) record(event *events.LineEvent) {
	if p.comps.Recorder != nil {
		if err := p.comps.Recorder.Insert(event); err != nil {
			logging.LogWarn("Failed to store line event",
				zap.String("uuid", event.UUID),
				zap.Error(err),
			)
		}
	}
	if p.comps.Publisher != nil {
		if err := p.comps.Publisher.PublishLineEvent(event); err != nil {
			logging.LogWarn("Failed to publish line event",
				zap.String("uuid", event.UUID),
				zap.Error(err),
			)
		}
	}
}

// nextSequence assigns the next line number and updates counters
func (p *Pipeline) nextSequence(fallback bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lineCount++
	p.stats.LinesGenerated++
	if fallback {
		p.stats.FallbackLines++
	}
	return p.lineCount
}

func (p *Pipeline) currentLineCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lineCount
}

// bump applies one mutation to the stats under the lock
func (p *Pipeline) bump(f func(*Stats)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f(&p.stats)
}

// SnapshotStats returns a copy of the counters
func (p *Pipeline) SnapshotStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Phase returns the active narrative phase
func (p *Pipeline) Phase() phase.Phase {
	return p.machine.Current()
}

// sleep waits for d or until the context is cancelled
func (p *Pipeline) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// preview clips a line for log output, keeping rune boundaries intact
func preview(line string) string {
	const maxRunes = 100
	runes := []rune(line)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes]) + "..."
	}
	return line
}

// errEmptyLine covers a generator and fallback set that both produced
// nothing
var errEmptyLine = errors.New("no line available from generator or fallback set")
