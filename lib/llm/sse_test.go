// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"errors"
	"slices"
	"testing"
)

func TestLineBufferSplitsCompleteLines(t *testing.T) {
	t.Parallel()

	var buffer LineBuffer
	lines := buffer.Write([]byte("data: one\ndata: two\n\ndata: thr"))
	want := []string{"data: one", "data: two", ""}
	if !slices.Equal(lines, want) {
		t.Errorf("Write() = %q, want %q", lines, want)
	}
	if buffer.Buffered() != len("data: thr") {
		t.Errorf("Buffered() = %d, want %d", buffer.Buffered(), len("data: thr"))
	}

	lines = buffer.Write([]byte("ee\n"))
	if !slices.Equal(lines, []string{"data: three"}) {
		t.Errorf("second Write() = %q, want [data: three]", lines)
	}
	if _, ok := buffer.Flush(); ok {
		t.Error("Flush() reported a tail after a terminated line")
	}
}

func TestLineBufferHoldsLineUntilNewline(t *testing.T) {
	t.Parallel()

	var buffer LineBuffer
	for _, chunk := range []string{"da", "ta: ", "{\"a\"", ":1}"} {
		if lines := buffer.Write([]byte(chunk)); len(lines) != 0 {
			t.Fatalf("Write(%q) released %q before the newline arrived", chunk, lines)
		}
	}
	lines := buffer.Write([]byte("\n"))
	if !slices.Equal(lines, []string{`data: {"a":1}`}) {
		t.Errorf("Write(newline) = %q", lines)
	}
}

func TestLineBufferCarriageReturn(t *testing.T) {
	t.Parallel()

	var buffer LineBuffer
	lines := buffer.Write([]byte("data: a\r\ndata: b\r"))
	if !slices.Equal(lines, []string{"data: a"}) {
		t.Errorf("Write() = %q, want [data: a]", lines)
	}
	tail, ok := buffer.Flush()
	if !ok || tail != "data: b" {
		t.Errorf("Flush() = %q, %v; want \"data: b\", true", tail, ok)
	}
}

func TestLineBufferSplitMultibyteRune(t *testing.T) {
	t.Parallel()

	// "你好" is six bytes; split the first rune across two chunks.
	encoded := []byte("data: 你好\n")
	var buffer LineBuffer
	if lines := buffer.Write(encoded[:7]); len(lines) != 0 {
		t.Fatalf("unexpected lines %q", lines)
	}
	lines := buffer.Write(encoded[7:])
	if !slices.Equal(lines, []string{"data: 你好"}) {
		t.Errorf("Write() = %q, want [data: 你好]", lines)
	}
}

func TestDecodeRecord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		line      string
		wantKind  recordKind
		wantDelta string
	}{
		{
			name:      "content delta",
			line:      `data: {"choices":[{"delta":{"content":"Hello"}}]}`,
			wantKind:  recordDelta,
			wantDelta: "Hello",
		},
		{
			name:     "empty content",
			line:     `data: {"choices":[{"delta":{"content":""}}]}`,
			wantKind: recordIgnored,
		},
		{
			name:     "done marker",
			line:     "data: [DONE]",
			wantKind: recordIgnored,
		},
		{
			name:     "comment line",
			line:     ": OPENROUTER PROCESSING",
			wantKind: recordIgnored,
		},
		{
			name:     "event field",
			line:     "event: message",
			wantKind: recordIgnored,
		},
		{
			name:     "data without space",
			line:     `data:{"choices":[{"delta":{"content":"x"}}]}`,
			wantKind: recordIgnored,
		},
		{
			name:     "blank line",
			line:     "",
			wantKind: recordIgnored,
		},
		{
			name:     "malformed json",
			line:     `data: {"choices":[{"delta":`,
			wantKind: recordMalformed,
		},
		{
			name:     "role only delta",
			line:     `data: {"choices":[{"delta":{"role":"assistant"}}]}`,
			wantKind: recordMissingDelta,
		},
		{
			name:     "usage only chunk",
			line:     `data: {"choices":[],"usage":{"prompt_tokens":3}}`,
			wantKind: recordMissingDelta,
		},
		{
			name:     "in-stream error",
			line:     `data: {"error":{"message":"upstream overloaded","code":502}}`,
			wantKind: recordError,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			decoded := decodeRecord(test.line)
			if decoded.kind != test.wantKind {
				t.Fatalf("kind = %d, want %d", decoded.kind, test.wantKind)
			}
			if decoded.delta != test.wantDelta {
				t.Errorf("delta = %q, want %q", decoded.delta, test.wantDelta)
			}
		})
	}
}

func TestDecodeRecordErrorKinds(t *testing.T) {
	t.Parallel()

	malformed := decodeRecord("data: not json")
	if !errors.Is(malformed.err, ErrMalformedStream) {
		t.Errorf("malformed err = %v, want MalformedStream", malformed.err)
	}

	providerFailure := decodeRecord(`data: {"error":{"message":"upstream overloaded"}}`)
	if !errors.Is(providerFailure.err, ErrProvider) {
		t.Errorf("in-stream error = %v, want ProviderError", providerFailure.err)
	}
	if UserMessage(providerFailure.err) != "upstream overloaded" {
		t.Errorf("message = %q, want upstream overloaded", UserMessage(providerFailure.err))
	}
}
