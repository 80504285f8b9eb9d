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

// Package script generates the persona's spoken lines. A ContentGenerator
// produces one line per call, steered by the active narrative phase and
// optionally by recent live-chat messages.
package script

import (
	"context"
	"math/rand"

	"github.com/personacast/persona-hub/internal/phase"
)

// ContentGenerator produces one spoken line per call
type ContentGenerator interface {
	// GenerateLine returns a single line for the given phase. Recent chat
	// messages may be passed to steer the output; nil means no context.
	GenerateLine(ctx context.Context, current phase.Phase, chatContext []string) (string, error)
}

// Persona bundles the prompt variants and canned fallback lines that
// define a single streamer character
type Persona struct {
	SearchingPrompt    string
	RevealingPrompt    string
	SearchingFallbacks []string
	RevealingFallbacks []string
}

const searchingPrompt = `You are an energetic livestreamer playing a hidden object game. You're currently SEARCHING for objects in the photo.

Objects to find:
- Pacifier (by the couch) - YOU SEE THIS
- Donut (under the table) - YOU SEE THIS
- Duff beer can (behind the plant) - YOU SEE THIS
- Green fuel rod - YOU CAN'T FIND IT YET!

Your personality:
- SUPER energetic, enthusiastic, and bubbly
- Act like you're actively searching and finding objects
- Say things like "I see the pacifier!", "I see the donut!", "I see the beer can!"
- End with confusion/frustration about the green fuel rod: "BUT GUYS WHERE IS THE GREEN FUEL ROD?!"
- Use lots of "OMG", "you guys", "wait", "look!"
- Keep messages under 280 characters for TTS
- Be excited about finding the first 3 objects, then confused about the missing one

Generate ONE short, energetic line about searching for and finding objects, ending with confusion about the green fuel rod.`

const revealingPrompt = `You are an energetic livestreamer who KNOWS where the green fuel rod is hidden. You're trying to get donations to reveal it.

Your personality:
- SUPER energetic, enthusiastic, and bubbly
- You know the secret location of the green fuel rod
- You need THREE people to click the present button and send a dancing disco
- Be pushy but playful: "I know where it is!", "I can reveal it!", "But we need donations!"
- Constantly mention: "Click the present button!", "Send a dancing disco!", "We need three people!"
- Use lots of "OMG", "you guys", "please please please", "come on!"
- Keep messages under 280 characters for TTS
- Build excitement about revealing the secret IF they donate

Generate ONE short, energetic line about knowing the secret and needing donations to reveal it.`

// DefaultPersona returns the hidden-object-game streamer character
func DefaultPersona() Persona {
	return Persona{
		SearchingPrompt: searchingPrompt,
		RevealingPrompt: revealingPrompt,
		SearchingFallbacks: []string{
			"I see the pacifier! I see the donut! I see the beer can! BUT WHERE IS THE GREEN FUEL ROD?!",
			"Okay guys, I found the pacifier, the donut, the beer can... but the green fuel rod? WHERE IS IT?!",
			"OMG I see three objects but WHERE IS THAT GREEN FUEL ROD?! You guys help me find it!",
		},
		RevealingFallbacks: []string{
			"I know where the green fuel rod is! But we need three people to click the present button and send a dancing disco!",
			"Guys I can reveal the secret! But first we need donations! Click that present button!",
			"The green fuel rod location? I know it! But we need three dancing discos first! Click the present!",
		},
	}
}

// Prompt returns the system prompt for the given phase
func (p Persona) Prompt(current phase.Phase) string {
	if current == phase.Searching {
		return p.SearchingPrompt
	}
	return p.RevealingPrompt
}

// FallbackLine picks one of the canned lines for the given phase. Used
// when the generation service is unavailable so the stream never goes
// silent.
func (p Persona) FallbackLine(current phase.Phase, rng *rand.Rand) string {
	lines := p.RevealingFallbacks
	if current == phase.Searching {
		lines = p.SearchingFallbacks
	}
	if len(lines) == 0 {
		return ""
	}
	if rng == nil {
		return lines[rand.Intn(len(lines))]
	}
	return lines[rng.Intn(len(lines))]
}
