// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"time"

	"github.com/bureau-foundation/trickle/lib/llm"
)

// Observer receives the progress of one turn. Methods are called from
// goroutines owned by Submit: OnDelta from the network goroutine, the
// others from Submit's own goroutine. Implementations must not block
// for long.
type Observer interface {
	// OnDelta is called for each raw content delta, in arrival order.
	OnDelta(text string)

	// OnReveal is called for each paced chunk after its delay has
	// elapsed.
	OnReveal(chunk string, delay time.Duration)

	// OnError is called at most once per turn, when the turn fails.
	// message is what was recorded as the assistant's reply.
	OnError(kind llm.ErrorKind, message string)

	// OnComplete is called once the assistant's reply has been fully
	// revealed and appended to the history.
	OnComplete(turn llm.Turn)
}

// ObserverFuncs adapts optional functions to [Observer]. Nil fields are
// ignored.
type ObserverFuncs struct {
	Delta    func(text string)
	Reveal   func(chunk string, delay time.Duration)
	Error    func(kind llm.ErrorKind, message string)
	Complete func(turn llm.Turn)
}

func (funcs ObserverFuncs) OnDelta(text string) {
	if funcs.Delta != nil {
		funcs.Delta(text)
	}
}

func (funcs ObserverFuncs) OnReveal(chunk string, delay time.Duration) {
	if funcs.Reveal != nil {
		funcs.Reveal(chunk, delay)
	}
}

func (funcs ObserverFuncs) OnError(kind llm.ErrorKind, message string) {
	if funcs.Error != nil {
		funcs.Error(kind, message)
	}
}

func (funcs ObserverFuncs) OnComplete(turn llm.Turn) {
	if funcs.Complete != nil {
		funcs.Complete(turn)
	}
}
