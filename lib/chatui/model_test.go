// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/trickle/lib/conversation"
	"github.com/bureau-foundation/trickle/lib/llm"
	"github.com/bureau-foundation/trickle/lib/testutil"
)

// fakeChat reveals a fixed reply in chunks and records it.
type fakeChat struct {
	mu     sync.Mutex
	turns  []llm.Turn
	chunks []string
	err    error
	aborts int
}

func (chat *fakeChat) Submit(_ context.Context, text string, observer conversation.Observer) error {
	chat.mu.Lock()
	chat.turns = append(chat.turns, llm.UserTurn(text))
	chunks := chat.chunks
	failure := chat.err
	chat.mu.Unlock()

	if failure != nil {
		observer.OnError(llm.KindOf(failure), failure.Error())
		return failure
	}
	for _, chunk := range chunks {
		observer.OnReveal(chunk, 0)
	}
	chat.mu.Lock()
	chat.turns = append(chat.turns, llm.AssistantTurn(strings.Join(chunks, "")))
	chat.mu.Unlock()
	return nil
}

func (chat *fakeChat) Abort() {
	chat.mu.Lock()
	defer chat.mu.Unlock()
	chat.aborts++
}

func (chat *fakeChat) Turns() []llm.Turn {
	chat.mu.Lock()
	defer chat.mu.Unlock()
	return append([]llm.Turn(nil), chat.turns...)
}

func (chat *fakeChat) abortCount() int {
	chat.mu.Lock()
	defer chat.mu.Unlock()
	return chat.aborts
}

func sizedModel(t *testing.T, chat Chat) Model {
	t.Helper()
	model := NewModel(chat, Options{Title: "test-model"})
	return update(t, model, tea.WindowSizeMsg{Width: 80, Height: 24})
}

func update(t *testing.T, model Model, message tea.Msg) Model {
	t.Helper()
	next, _ := model.Update(message)
	updated, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return updated
}

func updateWithCommand(t *testing.T, model Model, message tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, command := model.Update(message)
	updated, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return updated, command
}

func typeLine(t *testing.T, model Model, text string) (Model, tea.Cmd) {
	t.Helper()
	model.input.SetValue(text)
	return updateWithCommand(t, model, tea.KeyMsg{Type: tea.KeyEnter})
}

func screen(model Model) string {
	return ansi.Strip(model.View())
}

func TestModelSubmitRevealsThenShowsHistory(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{chunks: []string{"Hi", " there", "."}}
	model := sizedModel(t, chat)

	model, command := typeLine(t, model, "hello")
	if command == nil {
		t.Fatal("submit returned no command")
	}
	if model.input.Value() != "" {
		t.Errorf("input not cleared: %q", model.input.Value())
	}
	if !strings.Contains(screen(model), "hello") {
		t.Errorf("pending user message not shown:\n%s", screen(model))
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- command() }()

	for range chat.chunks {
		event := testutil.RequireReceive(t, (<-chan tea.Msg)(model.events), testutil.DefaultTimeout, "waiting for reveal")
		model = update(t, model, event)
	}
	if !strings.Contains(screen(model), "Hi there."+liveCursor) {
		t.Errorf("live reply not shown:\n%s", screen(model))
	}

	model = update(t, model, testutil.RequireReceive(t, (<-chan tea.Msg)(done), testutil.DefaultTimeout, "waiting for turn"))
	view := screen(model)
	if strings.Contains(view, liveCursor) {
		t.Errorf("cursor still shown after completion:\n%s", view)
	}
	for _, want := range []string{"You", "hello", "Assistant", "Hi there."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if len(model.turns) != 2 {
		t.Errorf("history has %d turns, want 2", len(model.turns))
	}
}

func TestModelIgnoresBlankInput(t *testing.T) {
	t.Parallel()

	model := sizedModel(t, &fakeChat{})
	model, command := typeLine(t, model, "   ")
	if command != nil {
		t.Error("blank input produced a command")
	}
	if model.revealing {
		t.Error("blank input started a turn")
	}
}

func TestModelAbortOnlyWhileRevealing(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{}
	model := sizedModel(t, chat)

	model = update(t, model, tea.KeyMsg{Type: tea.KeyEscape})
	if chat.abortCount() != 0 {
		t.Fatalf("abort while idle reached the chat")
	}

	model, _ = typeLine(t, model, "question")
	model, command := updateWithCommand(t, model, tea.KeyMsg{Type: tea.KeyEscape})
	if command == nil {
		t.Fatal("abort while revealing returned no command")
	}
	if chat.abortCount() != 0 {
		t.Fatal("abort ran on the update goroutine")
	}
	command()
	if chat.abortCount() != 1 {
		t.Fatalf("aborts = %d, want 1", chat.abortCount())
	}
	if model.status != "reply stopped" {
		t.Errorf("status = %q", model.status)
	}
}

func TestModelIgnoresEventsFromEarlierTurns(t *testing.T) {
	t.Parallel()

	model := sizedModel(t, &fakeChat{})
	model, _ = typeLine(t, model, "first")
	model, _ = typeLine(t, model, "second")

	model = update(t, model, revealMsg{turn: 1, chunk: "stale"})
	if model.live != "" {
		t.Errorf("stale reveal accepted: %q", model.live)
	}
	model = update(t, model, turnDoneMsg{turn: 1, err: conversation.ErrInterrupted})
	if !model.revealing {
		t.Error("completion of an interrupted turn ended the current one")
	}

	model = update(t, model, revealMsg{turn: 2, chunk: "fresh"})
	if model.live != "fresh" {
		t.Errorf("live = %q, want %q", model.live, "fresh")
	}
	view := screen(model)
	if !strings.Contains(view, "first") || !strings.Contains(view, "second") {
		t.Errorf("both pending messages should be shown:\n%s", view)
	}
}

func TestModelShowsTurnErrorInStatus(t *testing.T) {
	t.Parallel()

	model := sizedModel(t, &fakeChat{})
	model, _ = typeLine(t, model, "question")
	model = update(t, model, turnErrorMsg{turn: 1, kind: llm.KindRateLimited, message: "slow down"})

	if !strings.Contains(screen(model), "slow down") {
		t.Errorf("error not shown in status line:\n%s", screen(model))
	}
}

func TestModelFailedTurnShowsRecordedReply(t *testing.T) {
	t.Parallel()

	failure := errors.New("provider overloaded")
	chat := &fakeChat{err: failure}
	model := sizedModel(t, chat)

	model, command := typeLine(t, model, "question")
	done := make(chan tea.Msg, 1)
	go func() { done <- command() }()

	event := testutil.RequireReceive(t, (<-chan tea.Msg)(model.events), testutil.DefaultTimeout, "waiting for error")
	model = update(t, model, event)
	model = update(t, model, testutil.RequireReceive(t, (<-chan tea.Msg)(done), testutil.DefaultTimeout, "waiting for turn"))

	if model.revealing {
		t.Error("still revealing after failure")
	}
	if !strings.Contains(screen(model), "provider overloaded") {
		t.Errorf("failure not shown:\n%s", screen(model))
	}
}

func TestModelQuitAbortsAndReleasesObservers(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{}
	model := sizedModel(t, chat)

	model, command := updateWithCommand(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
	if command == nil {
		t.Fatal("quit returned no command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Error("quit command did not produce tea.QuitMsg")
	}
	if chat.abortCount() != 1 {
		t.Errorf("aborts = %d, want 1", chat.abortCount())
	}
	testutil.RequireClosed(t, model.quit, testutil.DefaultTimeout, "quit channel")

	// A blocked observer send returns once the program quits.
	observer := turnObserver{turn: 1, events: make(chan tea.Msg), quit: model.quit}
	observer.OnReveal("x", 0)

	// A second quit must not close the channel again.
	update(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
}

func TestModelShowsExistingHistory(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{turns: []llm.Turn{
		llm.UserTurn("what is 2+2?"),
		llm.AssistantTurn("It is **4**."),
	}}
	view := screen(sizedModel(t, chat))
	for _, want := range []string{"what is 2+2?", "It is 4."} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if !strings.Contains(view, "test-model") {
		t.Errorf("title missing:\n%s", view)
	}
}
