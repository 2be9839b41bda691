// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pacing

import (
	"math/rand/v2"
	"testing"
	"time"
)

func TestLengthFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total int
		want  float64
	}{
		{0, 1.0},
		{99, 1.0},
		{100, 0.95},
		{500, 0.95},
		{501, 0.9},
		{1000, 0.9},
		{1001, 0.85},
		{50000, 0.85},
	}
	for _, test := range tests {
		if got := lengthFactor(test.total); got != test.want {
			t.Errorf("lengthFactor(%d) = %v, want %v", test.total, got, test.want)
		}
	}
}

func TestProgressFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		revealed, total int
		want            float64
	}{
		{0, 100, 0.9},
		{9, 100, 0.9},
		{10, 100, 0.95},
		{19, 100, 0.95},
		{20, 100, 1.0},
		{94, 100, 1.0},
		{95, 100, 1.05},
		{99, 100, 1.05},
		{0, 0, 1.0},
	}
	for _, test := range tests {
		if got := progressFactor(test.revealed, test.total); got != test.want {
			t.Errorf("progressFactor(%d, %d) = %v, want %v", test.revealed, test.total, got, test.want)
		}
	}
}

func TestPunctuationPause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		previous rune
		want     time.Duration
	}{
		{'.', 250 * time.Millisecond},
		{'!', 250 * time.Millisecond},
		{'？', 250 * time.Millisecond},
		{',', 120 * time.Millisecond},
		{'、', 120 * time.Millisecond},
		{':', 180 * time.Millisecond},
		{'：', 180 * time.Millisecond},
		{'"', 80 * time.Millisecond},
		{'’', 80 * time.Millisecond},
		{'a', 0},
		{' ', 0},
		{'\n', 0},
	}
	for _, test := range tests {
		if got := punctuationPause(test.previous); got != test.want {
			t.Errorf("punctuationPause(%q) = %v, want %v", test.previous, got, test.want)
		}
	}
}

func TestDelayForParagraphBreak(t *testing.T) {
	t.Parallel()

	text := []rune("One.\n\nTwo")
	random := rand.New(rand.NewPCG(1, 2))

	delay := delayFor(text, 6, 20*time.Millisecond, 0, random)
	if delay < paragraphPause || delay > paragraphPause+30*time.Millisecond {
		t.Errorf("delay after blank line = %v, want about %v plus base", delay, paragraphPause)
	}

	single := delayFor(text, 5, 20*time.Millisecond, 0, random)
	if single >= paragraphPause {
		t.Errorf("delay after single newline = %v, want no paragraph pause", single)
	}
}

func TestDelayForJitterBounds(t *testing.T) {
	t.Parallel()

	text := []rune("plain words without punctuation at all here")
	random := rand.New(rand.NewPCG(7, 7))
	base := 20 * time.Millisecond

	// Position 30 of 43 has length and progress factors of 1.0.
	for range 1000 {
		delay := delayFor(text, 30, base, 0.02, random)
		if delay < 19600*time.Microsecond || delay > 20400*time.Microsecond {
			t.Fatalf("delay = %v, outside [19.6ms, 20.4ms]", delay)
		}
	}
}
