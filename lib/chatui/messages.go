// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/trickle/lib/llm"
)

// Messages carry the turn number they belong to so that events from an
// interrupted turn are ignored.

type revealMsg struct {
	turn  int
	chunk string
}

type turnErrorMsg struct {
	turn    int
	kind    llm.ErrorKind
	message string
}

type turnDoneMsg struct {
	turn int
	err  error
}

// turnObserver forwards one turn's progress to the model's event
// channel. Sends block until the model listens again, since reveal
// events must not be dropped, or until the program quits.
type turnObserver struct {
	turn   int
	events chan<- tea.Msg
	quit   <-chan struct{}
}

func (observer turnObserver) send(message tea.Msg) {
	select {
	case observer.events <- message:
	case <-observer.quit:
	}
}

func (observer turnObserver) OnDelta(string) {}

func (observer turnObserver) OnReveal(chunk string, _ time.Duration) {
	observer.send(revealMsg{turn: observer.turn, chunk: chunk})
}

func (observer turnObserver) OnError(kind llm.ErrorKind, message string) {
	observer.send(turnErrorMsg{turn: observer.turn, kind: kind, message: message})
}

func (observer turnObserver) OnComplete(llm.Turn) {}

// listenForEvent waits for the next observer event.
func listenForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-events
	}
}
