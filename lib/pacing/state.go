// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pacing

// RevealState is a snapshot of one turn's pacing progress. Lengths are
// counted in runes.
type RevealState struct {
	// Text is everything fed so far.
	Text string

	// Revealed is the number of runes of Text already emitted as
	// reveal events. Always <= Len().
	Revealed int
}

// Len returns the number of runes in Text.
func (state RevealState) Len() int {
	return len([]rune(state.Text))
}

// RevealedText returns the prefix of Text already emitted.
func (state RevealState) RevealedText() string {
	return string([]rune(state.Text)[:state.Revealed])
}

// Backlog returns the suffix of Text still waiting to be revealed.
func (state RevealState) Backlog() string {
	return string([]rune(state.Text)[state.Revealed:])
}

// Phase is the lifecycle position of a [Scheduler].
type Phase int

const (
	// PhaseIdle: created, nothing fed yet.
	PhaseIdle Phase = iota

	// PhaseStreaming: deltas are arriving and the backlog drains.
	PhaseStreaming

	// PhaseDraining: Finish was called; no more deltas are accepted
	// and the remaining backlog drains.
	PhaseDraining

	// PhaseComplete: every fed rune has been revealed after Finish.
	PhaseComplete

	// PhaseAborted: the turn was abandoned and its state discarded.
	PhaseAborted
)

var phaseNames = map[Phase]string{
	PhaseIdle:      "idle",
	PhaseStreaming: "streaming",
	PhaseDraining:  "draining",
	PhaseComplete:  "complete",
	PhaseAborted:   "aborted",
}

func (phase Phase) String() string {
	if name, ok := phaseNames[phase]; ok {
		return name
	}
	return "unknown"
}
