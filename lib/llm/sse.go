// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// dataPrefix marks a significant record line. Every other line
	// (comments, event:, id:, blank separators) is ignored.
	dataPrefix = "data: "

	// doneMarker is the payload of the terminating record. It is
	// ignored rather than acted on: the stream ends when the body does.
	doneMarker = "[DONE]"
)

// LineBuffer reassembles newline-delimited lines from a byte stream
// delivered in arbitrary chunks. A line is only released once its
// terminating newline has arrived, so a record split across network
// chunks is never processed half-received.
//
// Splitting happens on raw bytes, which keeps multi-byte UTF-8
// sequences intact even when a chunk boundary falls inside one.
type LineBuffer struct {
	pending []byte
}

// Write appends chunk to the buffer and returns every complete line,
// without its terminator. A trailing carriage return is stripped. The
// incomplete tail stays buffered for the next Write.
func (buffer *LineBuffer) Write(chunk []byte) []string {
	buffer.pending = append(buffer.pending, chunk...)

	var lines []string
	for {
		index := bytes.IndexByte(buffer.pending, '\n')
		if index < 0 {
			break
		}
		lines = append(lines, string(bytes.TrimSuffix(buffer.pending[:index], []byte("\r"))))
		buffer.pending = buffer.pending[index+1:]
	}

	// Compact so a long stream does not pin an ever-growing backing array.
	if len(buffer.pending) == 0 {
		buffer.pending = nil
	} else if cap(buffer.pending) > 4*len(buffer.pending)+4096 {
		buffer.pending = bytes.Clone(buffer.pending)
	}
	return lines
}

// Flush returns the unterminated tail, if any, and empties the buffer.
// Call it once the stream has ended.
func (buffer *LineBuffer) Flush() (string, bool) {
	if len(buffer.pending) == 0 {
		return "", false
	}
	line := string(bytes.TrimSuffix(buffer.pending, []byte("\r")))
	buffer.pending = nil
	return line, true
}

// Buffered returns the number of bytes waiting for a newline.
func (buffer *LineBuffer) Buffered() int { return len(buffer.pending) }

// recordKind is the outcome of decoding one line.
type recordKind int

const (
	// recordIgnored: not a data line, the [DONE] marker, or a record
	// with an empty delta. No callback.
	recordIgnored recordKind = iota

	// recordDelta: a non-empty content delta.
	recordDelta

	// recordMissingDelta: well-formed JSON without a delta content
	// field (role-only, usage-only or finish chunks).
	recordMissingDelta

	// recordMalformed: the payload is not valid JSON.
	recordMalformed

	// recordError: the provider reported an error inside the stream.
	recordError
)

// streamChunk is the subset of an OpenAI streaming chunk this package
// reads. Pointers distinguish an absent delta field from an empty one.
type streamChunk struct {
	Choices []struct {
		Delta *struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error json.RawMessage `json:"error"`
}

// record is a decoded line.
type record struct {
	kind  recordKind
	delta string
	err   error
}

// decodeRecord classifies one complete line.
func decodeRecord(line string) record {
	payload, ok := strings.CutPrefix(line, dataPrefix)
	if !ok || payload == doneMarker {
		return record{kind: recordIgnored}
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		return record{
			kind: recordMalformed,
			err:  &Error{Kind: KindMalformedStream, Message: "undecodable record", Err: err},
		}
	}

	if len(chunk.Error) > 0 && string(chunk.Error) != "null" {
		message := providerMessage([]byte(payload))
		if message == "" {
			message = "provider reported an error mid-stream"
		}
		return record{kind: recordError, err: &Error{Kind: KindProviderError, Message: message}}
	}

	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil || chunk.Choices[0].Delta.Content == nil {
		return record{
			kind: recordMissingDelta,
			err:  &Error{Kind: KindMalformedStream, Message: "record has no delta content field"},
		}
	}

	content := *chunk.Choices[0].Delta.Content
	if content == "" {
		return record{kind: recordIgnored}
	}
	return record{kind: recordDelta, delta: content}
}

// truncateForLog shortens a record for inclusion in a log line.
func truncateForLog(line string) string {
	const limit = 200
	if len(line) <= limit {
		return line
	}
	return fmt.Sprintf("%s... (%d bytes)", line[:limit], len(line))
}
