// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"errors"
	"slices"
	"testing"

	"github.com/bureau-foundation/trickle/lib/llm"
)

// perTurnEstimator charges a fixed number of tokens per turn, making
// eviction arithmetic predictable.
type perTurnEstimator int

func (estimator perTurnEstimator) EstimateTokens(turns []llm.Turn) int {
	return len(turns) * int(estimator)
}

func exchange(question, answer string) []llm.Turn {
	return []llm.Turn{llm.UserTurn(question), llm.AssistantTurn(answer)}
}

func history(parts ...[]llm.Turn) []llm.Turn {
	return slices.Concat(parts...)
}

func testWindow(budget int) *Window {
	window := New(budget)
	window.Estimator = perTurnEstimator(100)
	return window
}

func TestFitUnderBudgetReturnsInput(t *testing.T) {
	t.Parallel()

	turns := history(exchange("a", "1"), exchange("b", "2"))
	fitted, evicted, err := testWindow(1000).Fit(turns)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if evicted != 0 || !slices.Equal(fitted, turns) {
		t.Errorf("Fit changed a history within budget: evicted %d, %+v", evicted, fitted)
	}
}

func TestFitEvictsOldestMiddleGroups(t *testing.T) {
	t.Parallel()

	turns := history(
		[]llm.Turn{{Role: llm.RoleSystem, Content: "preamble"}},
		exchange("first", "1"),
		exchange("second", "2"),
		exchange("third", "3"),
		[]llm.Turn{llm.UserTurn("current")},
	)
	// 8 turns = 800 tokens; budget 500 needs two middle groups gone.
	fitted, evicted, err := testWindow(500).Fit(turns)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if evicted != 2 {
		t.Errorf("evicted = %d, want 2", evicted)
	}
	want := history(
		[]llm.Turn{{Role: llm.RoleSystem, Content: "preamble"}},
		exchange("first", "1"),
		[]llm.Turn{llm.UserTurn("current")},
	)
	if !slices.Equal(fitted, want) {
		t.Errorf("fitted = %+v, want %+v", fitted, want)
	}
	if len(turns) != 8 {
		t.Error("input was modified")
	}
}

func TestFitStopsEvictingOnceUnderBudget(t *testing.T) {
	t.Parallel()

	turns := history(exchange("a", "1"), exchange("b", "2"), exchange("c", "3"), exchange("d", "4"))
	fitted, evicted, err := testWindow(600).Fit(turns)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	want := history(exchange("a", "1"), exchange("c", "3"), exchange("d", "4"))
	if !slices.Equal(fitted, want) {
		t.Errorf("fitted = %+v, want %+v", fitted, want)
	}
}

func TestFitOverBudgetWithNothingEvictable(t *testing.T) {
	t.Parallel()

	turns := history(exchange("a", "1"), []llm.Turn{llm.UserTurn("b")})
	fitted, evicted, err := testWindow(100).Fit(turns)
	if !errors.Is(err, ErrOverBudget) {
		t.Fatalf("err = %v, want ErrOverBudget", err)
	}
	if evicted != 0 || !slices.Equal(fitted, turns) {
		t.Errorf("nothing should be evicted: %d, %+v", evicted, fitted)
	}
}

func TestFitOverBudgetAfterEviction(t *testing.T) {
	t.Parallel()

	turns := history(exchange("a", "1"), exchange("b", "2"), exchange("c", "3"))
	fitted, evicted, err := testWindow(300).Fit(turns)
	if !errors.Is(err, ErrOverBudget) {
		t.Fatalf("err = %v, want ErrOverBudget", err)
	}
	if evicted != 1 || len(fitted) != 4 {
		t.Errorf("want best effort with one group evicted, got %d evicted, %+v", evicted, fitted)
	}
}

func TestFitWithoutProtectedGroups(t *testing.T) {
	t.Parallel()

	window := testWindow(300)
	window.ProtectedGroups = 0
	turns := history(exchange("a", "1"), exchange("b", "2"), exchange("c", "3"))

	fitted, evicted, err := window.Fit(turns)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if evicted != 2 || !slices.Equal(fitted, exchange("c", "3")) {
		t.Errorf("evicted %d, fitted %+v", evicted, fitted)
	}
}

func TestTurnGroups(t *testing.T) {
	t.Parallel()

	turns := []llm.Turn{
		{Role: llm.RoleSystem, Content: "s"},
		llm.UserTurn("a"),
		llm.AssistantTurn("1"),
		llm.UserTurn("b"),
		llm.UserTurn("c"),
		llm.AssistantTurn("3"),
	}
	preamble, groups := turnGroups(turns)
	if preamble != 1 {
		t.Errorf("preamble = %d, want 1", preamble)
	}
	want := []turnGroup{{1, 3}, {3, 4}, {4, 6}}
	if !slices.Equal(groups, want) {
		t.Errorf("groups = %+v, want %+v", groups, want)
	}

	preamble, groups = turnGroups([]llm.Turn{{Role: llm.RoleSystem, Content: "s"}})
	if preamble != 1 || groups != nil {
		t.Errorf("system-only history: preamble %d, groups %+v", preamble, groups)
	}
}

func TestCharEstimator(t *testing.T) {
	t.Parallel()

	estimator := NewCharEstimator()
	// 20 overhead + 20 ASCII = 40 characters = 10 tokens, rounded up to 11.
	if got := estimator.EstimateTokens([]llm.Turn{llm.UserTurn("twenty characters!!!")}); got != 11 {
		t.Errorf("ASCII estimate = %d, want 11", got)
	}
	// 20 overhead + 5 CJK runes * 4 = 40 characters.
	if got := estimator.EstimateTokens([]llm.Turn{llm.UserTurn("你好世界！")}); got != 11 {
		t.Errorf("CJK estimate = %d, want 11", got)
	}
	if got := estimator.EstimateTokens(nil); got != 1 {
		t.Errorf("empty estimate = %d, want 1", got)
	}
}
