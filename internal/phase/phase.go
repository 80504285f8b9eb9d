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

// Package phase tracks the two-phase narrative state machine that gates
// which prompt variant drives content generation. The persona alternates
// between SEARCHING (hunting for objects) and REVEALING (teasing the
// secret for donations); each phase lasts a randomized number of lines.
package phase

import (
	"math/rand"
)

// Phase identifies one of the two narrative modes
type Phase int

const (
	// Searching is the initial phase: the persona hunts for objects
	Searching Phase = iota
	// Revealing is the donation-bait phase: the persona knows the secret
	Revealing
)

// String returns the phase name
func (p Phase) String() string {
	switch p {
	case Searching:
		return "searching"
	case Revealing:
		return "revealing"
	default:
		return "unknown"
	}
}

// Machine tracks the active phase and decides when to switch.
// It is mutated only by the pipeline's producer loop and carries no
// internal locking.
type Machine struct {
	current      Phase
	linesInPhase int
	threshold    int
	minLines     int
	maxLines     int
	rng          *rand.Rand
}

// NewMachine creates a phase machine starting in Searching with an
// initial threshold drawn uniformly from [minLines, maxLines].
func NewMachine(minLines, maxLines int, rng *rand.Rand) *Machine {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	m := &Machine{
		current:  Searching,
		minLines: minLines,
		maxLines: maxLines,
		rng:      rng,
	}
	m.threshold = m.drawThreshold()
	return m
}

// drawThreshold picks a phase length uniformly from [minLines, maxLines]
func (m *Machine) drawThreshold() int {
	return m.minLines + m.rng.Intn(m.maxLines-m.minLines+1)
}

// ShouldSwitch reports whether the current phase has run its course
func (m *Machine) ShouldSwitch() bool {
	return m.linesInPhase >= m.threshold
}

// Switch flips to the opposite phase, resets the line counter and
// redraws the threshold. Returns the new phase.
func (m *Machine) Switch() Phase {
	if m.current == Searching {
		m.current = Revealing
	} else {
		m.current = Searching
	}
	m.linesInPhase = 0
	m.threshold = m.drawThreshold()
	return m.current
}

// Increment advances the line counter. Called once per generated line:
// lines count toward the phase clock when generation succeeds, whether
// or not synthesis of that line later succeeds.
func (m *Machine) Increment() {
	m.linesInPhase++
}

// Current returns the active phase
func (m *Machine) Current() Phase {
	return m.current
}

// LinesInPhase returns how many lines the active phase has produced
func (m *Machine) LinesInPhase() int {
	return m.linesInPhase
}

// Threshold returns the line count at which the phase will switch
func (m *Machine) Threshold() int {
	return m.threshold
}
