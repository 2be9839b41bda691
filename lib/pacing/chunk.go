// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pacing

import "unicode"

// Rune classes that carry a pause after them. Every punctuation rune
// belongs to exactly one class.
type punctuationClass int

const (
	notPunctuation punctuationClass = iota
	sentenceFinal
	commaClass
	colonClass
	quoteClass
)

var punctuation = map[rune]punctuationClass{
	'.': sentenceFinal, '?': sentenceFinal, '!': sentenceFinal,
	'。': sentenceFinal, '？': sentenceFinal, '！': sentenceFinal,

	',': commaClass, '，': commaClass, '、': commaClass,
	';': commaClass, '；': commaClass,

	':': colonClass, '：': colonClass,

	'"': quoteClass, '\'': quoteClass,
	'“': quoteClass, '”': quoteClass, '‘': quoteClass, '’': quoteClass,
}

func classify(r rune) punctuationClass {
	return punctuation[r]
}

func isPunctuation(r rune) bool {
	return classify(r) != notPunctuation
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r)
}

// isLatinLetter reports whether r is an ASCII letter. Accented Latin
// letters fall through to single-rune reveals.
func isLatinLetter(r rune) bool {
	return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

const (
	// maxCJKGroup is the longest ideograph run revealed in one chunk.
	maxCJKGroup = 2

	// maxWordGroup is the longest Latin word revealed in one chunk.
	maxWordGroup = 4

	// longRunStep is the chunk size for Latin runs longer than
	// maxWordGroup.
	longRunStep = 3
)

// nextChunk returns how many runes of text, starting at start, the next
// reveal event should carry. It returns 0 when the next chunk cannot be
// decided until more text arrives: a short Latin or CJK run that
// touches the end of the fed text might still grow past its group
// size. final
// reports that no more text will arrive.
func nextChunk(text []rune, start int, final bool) int {
	if start >= len(text) {
		return 0
	}
	first := text[start]

	switch {
	case isPunctuation(first):
		return 1

	case isCJK(first):
		// The tail of a long run keeps going one ideograph at a time.
		if start > 0 && isCJK(text[start-1]) {
			return 1
		}
		run := runLength(text, start, isCJK)
		if run > maxCJKGroup {
			return 1
		}
		if start+run == len(text) && !final {
			return 0
		}
		return run

	case isLatinLetter(first):
		run := runLength(text, start, isLatinLetter)
		if run > maxWordGroup {
			return longRunStep
		}
		end := start + run
		if end == len(text) {
			if !final {
				return 0
			}
			return run
		}
		// A short run is grouped only when it is a whole word. A
		// run glued to punctuation or digits is spelled out.
		if unicode.IsSpace(text[end]) {
			return run
		}
		return 1
	}

	// Everything else, including a space before a word, goes alone.
	return 1
}

func runLength(text []rune, start int, member func(rune) bool) int {
	end := start
	for end < len(text) && member(text[end]) {
		end++
	}
	return end - start
}
