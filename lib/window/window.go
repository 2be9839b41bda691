// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package window

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/trickle/lib/llm"
)

// ErrOverBudget is returned by [Window.Fit] when the history still
// exceeds the budget after every evictable group was dropped. The
// returned turns are the best effort and may still be sent.
var ErrOverBudget = errors.New("window: context budget exceeded")

// TokenEstimator estimates how many prompt tokens turns will cost.
type TokenEstimator interface {
	EstimateTokens(turns []llm.Turn) int
}

// Window drops the oldest turn groups from a history that exceeds a
// token budget.
type Window struct {
	// Budget is the maximum estimated prompt size in tokens.
	Budget int

	// Estimator defaults to a [CharEstimator].
	Estimator TokenEstimator

	// ProtectedGroups is the number of leading turn groups never
	// evicted. Zero protects none; New sets it to 1.
	ProtectedGroups int
}

// New returns a window with the given budget, the default estimator,
// and the first turn group protected.
func New(budget int) *Window {
	return &Window{
		Budget:          budget,
		Estimator:       NewCharEstimator(),
		ProtectedGroups: 1,
	}
}

// Fit returns turns windowed to the budget and how many turn groups
// were evicted. turns itself is never modified.
func (window *Window) Fit(turns []llm.Turn) ([]llm.Turn, int, error) {
	estimator := window.Estimator
	if estimator == nil {
		estimator = NewCharEstimator()
	}

	estimated := estimator.EstimateTokens(turns)
	if estimated <= window.Budget {
		return turns, 0, nil
	}

	preamble, groups := turnGroups(turns)
	if len(groups) == 0 {
		return turns, 0, fmt.Errorf("%w: estimated %d tokens, budget %d, and no turn groups to evict",
			ErrOverBudget, estimated, window.Budget)
	}

	// protected: groups[:evictableStart]
	// evictable: groups[evictableStart:evictableEnd]
	// current:   groups[evictableEnd]
	evictableStart := min(max(window.ProtectedGroups, 0), len(groups))
	evictableEnd := len(groups) - 1
	if evictableStart >= evictableEnd {
		return turns, 0, fmt.Errorf("%w: estimated %d tokens, budget %d, but only %d turn groups remain",
			ErrOverBudget, estimated, window.Budget, len(groups))
	}

	toFree := estimated - window.Budget
	freed, evicted := 0, 0
	for index := evictableStart; index < evictableEnd && freed < toFree; index++ {
		freed += estimator.EstimateTokens(turns[groups[index].start:groups[index].end])
		evicted++
	}

	result := make([]llm.Turn, 0, len(turns))
	result = append(result, turns[:preamble]...)
	for index, group := range groups {
		if index >= evictableStart && index < evictableStart+evicted {
			continue
		}
		result = append(result, turns[group.start:group.end]...)
	}

	if remaining := estimated - freed; remaining > window.Budget {
		return result, evicted, fmt.Errorf("%w: evicted %d turn groups (~%d tokens), %d tokens remain, budget %d",
			ErrOverBudget, evicted, freed, remaining, window.Budget)
	}
	return result, evicted, nil
}

// turnGroup is the half-open range turns[start:end].
type turnGroup struct {
	start int
	end   int
}

// turnGroups returns the length of the preamble before the first user
// turn and the groups that follow it.
func turnGroups(turns []llm.Turn) (int, []turnGroup) {
	var groups []turnGroup
	preamble := len(turns)
	current := -1
	for index, turn := range turns {
		if turn.Role != llm.RoleUser {
			continue
		}
		if current < 0 {
			preamble = index
		} else {
			groups = append(groups, turnGroup{start: current, end: index})
		}
		current = index
	}
	if current >= 0 {
		groups = append(groups, turnGroup{start: current, end: len(turns)})
	}
	return preamble, groups
}
