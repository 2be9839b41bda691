// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/bureau-foundation/trickle/lib/credential"
	"github.com/bureau-foundation/trickle/lib/llm"
	"github.com/bureau-foundation/trickle/lib/pacing"
)

var (
	// ErrEmptyMessage is returned by Submit for a blank message.
	ErrEmptyMessage = errors.New("conversation: message is empty")

	// ErrInterrupted is returned by Submit when the turn was aborted
	// or superseded by a newer Submit before it completed.
	ErrInterrupted = errors.New("conversation: turn interrupted")
)

// Sender streams one completion. *llm.Client satisfies it.
type Sender interface {
	Send(ctx context.Context, turns []llm.Turn, key credential.Credential, onDelta func(string)) error
}

// TurnSink receives every turn appended to the history, in order.
// *transcript.Log satisfies it.
type TurnSink interface {
	Append(turn llm.Turn) error
}

// HistoryWindow trims the history sent with each request to fit the
// model's context. *window.Window satisfies it.
type HistoryWindow interface {
	Fit(turns []llm.Turn) ([]llm.Turn, int, error)
}

// Options configures a [Conversation].
type Options struct {
	// Sender performs completions. Required.
	Sender Sender

	// Credential is sent with every request.
	Credential credential.Credential

	// Pacing configures the per-turn scheduler.
	Pacing pacing.Options

	// History seeds the conversation, for example from a saved
	// transcript. It is copied.
	History []llm.Turn

	// Window, if set, trims what is sent. The recorded history is
	// never trimmed.
	Window HistoryWindow

	// Sink, if set, receives each appended turn. Sink failures are
	// logged and do not fail the turn.
	Sink TurnSink

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Conversation is an ordered chat history plus at most one in-flight
// turn. It is safe for concurrent use.
type Conversation struct {
	sender Sender
	key    credential.Credential
	pacing pacing.Options
	sink   TurnSink
	window HistoryWindow
	logger *slog.Logger

	mu     sync.Mutex
	turns  []llm.Turn
	active *activeTurn
}

// activeTurn is the in-flight turn's cancellation handle.
type activeTurn struct {
	ctx       context.Context
	cancel    context.CancelFunc
	scheduler *pacing.Scheduler
	done      chan struct{}
}

func (turn *activeTurn) stop() {
	turn.cancel()
	turn.scheduler.Abort()
}

// New returns a conversation seeded with options.History.
func New(options Options) *Conversation {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Conversation{
		sender: options.Sender,
		key:    options.Credential,
		pacing: options.Pacing,
		sink:   options.Sink,
		window: options.Window,
		logger: options.Logger,
		turns:  slices.Clone(options.History),
	}
}

// Turns returns a copy of the history.
func (conversation *Conversation) Turns() []llm.Turn {
	conversation.mu.Lock()
	defer conversation.mu.Unlock()
	return slices.Clone(conversation.turns)
}

// Abort interrupts the in-flight turn, if any, without waiting for it
// to unwind. Its Submit returns ErrInterrupted. Abort does wait for an
// OnReveal call already in progress, so it must not be called from
// inside one; no OnReveal starts after Abort returns.
func (conversation *Conversation) Abort() {
	conversation.mu.Lock()
	active := conversation.active
	conversation.mu.Unlock()
	if active != nil {
		active.stop()
	}
}

// Busy reports whether a turn is in flight.
func (conversation *Conversation) Busy() bool {
	conversation.mu.Lock()
	defer conversation.mu.Unlock()
	return conversation.active != nil
}

// Submit runs one turn and blocks until the reply is fully revealed,
// the turn fails, or it is interrupted. Any turn already in flight is
// interrupted first, and Submit waits for it to unwind so the history
// stays ordered.
//
// On a provider failure the user-facing error message is appended as
// the assistant turn, observer.OnError is called, and the *llm.Error is
// returned. An interrupted turn appends nothing beyond the user turn
// and returns ErrInterrupted.
func (conversation *Conversation) Submit(ctx context.Context, text string, observer Observer) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}
	if observer == nil {
		observer = ObserverFuncs{}
	}

	active, history := conversation.begin(ctx, text)
	defer conversation.end(active)

	return conversation.run(active, history, observer)
}

// begin interrupts any in-flight turn, appends the user turn, and
// registers the new turn as active. It returns the history to send.
func (conversation *Conversation) begin(ctx context.Context, text string) (*activeTurn, []llm.Turn) {
	conversation.mu.Lock()
	for conversation.active != nil {
		previous := conversation.active
		conversation.mu.Unlock()
		previous.stop()
		<-previous.done
		conversation.mu.Lock()
	}
	defer conversation.mu.Unlock()

	conversation.appendLocked(llm.UserTurn(text))

	turnContext, cancel := context.WithCancel(ctx)
	active := &activeTurn{
		ctx:       turnContext,
		cancel:    cancel,
		scheduler: pacing.New(conversation.pacing),
		done:      make(chan struct{}),
	}
	conversation.active = active
	return active, slices.Clone(conversation.turns)
}

// end releases the turn and wakes a Submit waiting to replace it.
func (conversation *Conversation) end(active *activeTurn) {
	active.cancel()
	conversation.mu.Lock()
	if conversation.active == active {
		conversation.active = nil
	}
	conversation.mu.Unlock()
	close(active.done)
}

// run streams and reveals one reply. The network goroutine feeds the
// scheduler while this goroutine drains it; run does not return before
// the network goroutine has.
func (conversation *Conversation) run(active *activeTurn, history []llm.Turn, observer Observer) error {
	scheduler := active.scheduler
	request := conversation.fit(history)
	sent := make(chan error, 1)
	go func() {
		err := conversation.sender.Send(active.ctx, request, conversation.key, func(delta string) {
			observer.OnDelta(delta)
			// Fails only once the turn is aborted, which run sees.
			_ = scheduler.Feed(delta)
		})
		if err != nil {
			scheduler.Abort()
		} else {
			_ = scheduler.Finish()
		}
		sent <- err
	}()

	revealErr := scheduler.Run(active.ctx, func(event pacing.Event) {
		observer.OnReveal(event.Chunk, event.Delay)
	})
	// Run only stops early once the turn is canceled or the scheduler
	// aborted, and either one also ends Send.
	sendErr := <-sent

	if sendErr == nil && revealErr == nil {
		return conversation.complete(scheduler.State().Text, len(history), observer)
	}
	if active.ctx.Err() != nil {
		conversation.logger.Info("turn interrupted", "turns", len(history))
		return ErrInterrupted
	}
	if sendErr != nil {
		return conversation.fail(sendErr, observer)
	}
	return fmt.Errorf("conversation: revealing reply: %w", revealErr)
}

// fit applies the history window. A history that cannot be brought
// under budget is still sent; the provider has the final say.
func (conversation *Conversation) fit(history []llm.Turn) []llm.Turn {
	if conversation.window == nil {
		return history
	}
	fitted, evicted, err := conversation.window.Fit(history)
	switch {
	case err != nil:
		conversation.logger.Warn("history exceeds context budget", "evicted_groups", evicted, "error", err)
	case evicted > 0:
		conversation.logger.Debug("history windowed", "evicted_groups", evicted, "sent_turns", len(fitted))
	}
	return fitted
}

// complete appends the fully revealed reply.
func (conversation *Conversation) complete(text string, sent int, observer Observer) error {
	reply := llm.AssistantTurn(text)
	conversation.mu.Lock()
	conversation.appendLocked(reply)
	conversation.mu.Unlock()

	conversation.logger.Info("turn complete",
		"turns", sent+1,
		"reply_runes", len([]rune(reply.Content)),
	)
	observer.OnComplete(reply)
	return nil
}

// fail records err's user-facing message as the assistant's reply.
func (conversation *Conversation) fail(err error, observer Observer) error {
	kind := llm.KindOf(err)
	message := llm.UserMessage(err)
	conversation.logger.Warn("turn failed", "kind", kind, "error", err)

	conversation.mu.Lock()
	conversation.appendLocked(llm.AssistantTurn(message))
	conversation.mu.Unlock()

	observer.OnError(kind, message)
	return err
}

// appendLocked appends turn to the history and the sink.
func (conversation *Conversation) appendLocked(turn llm.Turn) {
	conversation.turns = append(conversation.turns, turn)
	if conversation.sink == nil {
		return
	}
	if err := conversation.sink.Append(turn); err != nil {
		conversation.logger.Warn("recording turn failed", "role", turn.Role, "error", err)
	}
}
