// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bureau-foundation/trickle/lib/llm"
)

type revealRecord struct {
	Chunk   string `json:"chunk"`
	DelayMS int64  `json:"delay_ms"`
}

type errorRecord struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// eventStream writes a turn's observer callbacks as server-sent
// events. OnReveal and OnError run on the goroutine that called
// Submit, so writes never interleave.
type eventStream struct {
	writer   *bufio.Writer
	flusher  http.Flusher
	err      error
	revealed int
}

func newEventStream(w http.ResponseWriter) (*eventStream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not implement http.Flusher")
	}
	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &eventStream{writer: bufio.NewWriter(w), flusher: flusher}, nil
}

func (stream *eventStream) OnDelta(string) {}

func (stream *eventStream) OnReveal(chunk string, delay time.Duration) {
	stream.revealed++
	stream.record(revealRecord{Chunk: chunk, DelayMS: delay.Milliseconds()})
}

func (stream *eventStream) OnError(kind llm.ErrorKind, message string) {
	stream.record(errorRecord{Error: errorBody{Kind: kind.String(), Message: message}})
}

func (stream *eventStream) OnComplete(llm.Turn) {}

// done writes the end-of-stream marker.
func (stream *eventStream) done() {
	stream.write("[DONE]")
}

func (stream *eventStream) record(value any) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	stream.write(string(data))
}

// write sends one data record. After the first write error the rest
// are dropped; a departed client also cancels the request context,
// which ends the turn.
func (stream *eventStream) write(data string) {
	if stream.err != nil {
		return
	}
	if _, err := fmt.Fprintf(stream.writer, "data: %s\n\n", data); err != nil {
		stream.err = err
		return
	}
	if err := stream.writer.Flush(); err != nil {
		stream.err = err
		return
	}
	stream.flusher.Flush()
}
