// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package window

import "github.com/bureau-foundation/trickle/lib/llm"

// defaultCharactersPerToken is conservative for English text with
// code; BPE tokenizers typically average 3.5 to 4.5 characters per
// token. CJK text runs closer to one token per character, which the
// rune-based count below accounts for.
const defaultCharactersPerToken = 4.0

// turnOverhead approximates the role marker and JSON framing of one
// message, {"role":"user","content":""}.
const turnOverhead = 20

// CharEstimator estimates tokens from a character count at a fixed
// ratio. Runes outside ASCII count four times, approximating one token
// each.
type CharEstimator struct {
	CharactersPerToken float64
}

// NewCharEstimator returns an estimator with the default ratio.
func NewCharEstimator() *CharEstimator {
	return &CharEstimator{CharactersPerToken: defaultCharactersPerToken}
}

// EstimateTokens always rounds up.
func (estimator *CharEstimator) EstimateTokens(turns []llm.Turn) int {
	ratio := estimator.CharactersPerToken
	if ratio <= 0 {
		ratio = defaultCharactersPerToken
	}
	return int(float64(turnsCharCount(turns))/ratio) + 1
}

func turnsCharCount(turns []llm.Turn) int {
	total := 0
	for _, turn := range turns {
		total += turnOverhead
		for _, r := range turn.Content {
			if r < 0x80 {
				total++
			} else {
				total += 4
			}
		}
	}
	return total
}
