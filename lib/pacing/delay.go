// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pacing

import (
	"math/rand/v2"
	"time"
)

// Pauses added after the previously revealed rune.
const (
	sentencePause  = 250 * time.Millisecond
	commaPause     = 120 * time.Millisecond
	colonPause     = 180 * time.Millisecond
	quotePause     = 80 * time.Millisecond
	paragraphPause = 350 * time.Millisecond
)

// lengthFactor speeds up long replies. total is the number of runes fed
// so far; the final length is unknown while streaming.
func lengthFactor(total int) float64 {
	switch {
	case total < 100:
		return 1.0
	case total <= 500:
		return 0.95
	case total <= 1000:
		return 0.9
	default:
		return 0.85
	}
}

// progressFactor is slightly fast at the start of a reply and slightly
// slow at the very end.
func progressFactor(revealed, total int) float64 {
	if total <= 0 {
		return 1.0
	}
	progress := float64(revealed) / float64(total)
	switch {
	case progress < 0.10:
		return 0.9
	case progress < 0.20:
		return 0.95
	case progress >= 0.95:
		return 1.05
	default:
		return 1.0
	}
}

// punctuationPause is the pause owed to the rune revealed just before
// the chunk being timed.
func punctuationPause(previous rune) time.Duration {
	switch classify(previous) {
	case sentenceFinal:
		return sentencePause
	case commaClass:
		return commaPause
	case colonClass:
		return colonPause
	case quoteClass:
		return quotePause
	}
	return 0
}

// blankLinePause returns paragraphPause when revealed ends in two
// consecutive newlines.
func blankLinePause(revealed []rune) time.Duration {
	count := len(revealed)
	if count >= 2 && revealed[count-1] == '\n' && revealed[count-2] == '\n' {
		return paragraphPause
	}
	return 0
}

// delayFor times the chunk that begins at revealed within text.
func delayFor(text []rune, revealed int, base time.Duration, jitter float64, random *rand.Rand) time.Duration {
	total := len(text)
	factor := lengthFactor(total) * progressFactor(revealed, total)
	if jitter > 0 {
		factor *= 1 + jitter*(2*random.Float64()-1)
	}
	delay := time.Duration(float64(base) * factor)

	if revealed > 0 {
		delay += punctuationPause(text[revealed-1])
		delay += blankLinePause(text[:revealed])
	}
	return delay
}
