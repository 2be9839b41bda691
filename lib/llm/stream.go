// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// readChunkSize is the size of each body read. The server decides how
// much actually arrives per read; this only bounds it.
const readChunkSize = 4096

// DeltaStream is a lazy sequence of content deltas read from one
// streaming response. Deltas are returned in arrival order, exactly as
// the provider sent them: the stream never splits or merges them.
//
// DeltaStream is not safe for concurrent use. Close must be called
// when done, even after Next has returned an error; it cancels the
// attempt and releases the connection.
type DeltaStream struct {
	body    io.ReadCloser
	cancel  context.CancelFunc
	parent  context.Context
	attempt context.Context
	timeout time.Duration
	logger  *slog.Logger

	buffer    LineBuffer
	lines     []string
	chunk     []byte
	ended     bool
	err       error
	delivered int
	skipped   int
}

func newDeltaStream(parent, attempt context.Context, cancel context.CancelFunc, body io.ReadCloser, timeout time.Duration, logger *slog.Logger) *DeltaStream {
	return &DeltaStream{
		body:    body,
		cancel:  cancel,
		parent:  parent,
		attempt: attempt,
		timeout: timeout,
		logger:  logger,
		chunk:   make([]byte, readChunkSize),
	}
}

// Next returns the next non-empty delta. It returns io.EOF once the
// response body has ended and every buffered line has been processed.
// Any other error is an [*Error] and is sticky: later calls return it
// again.
//
// The "[DONE]" marker does not end iteration; only the end of the body
// does.
func (stream *DeltaStream) Next() (string, error) {
	if stream.err != nil {
		return "", stream.err
	}
	for {
		for len(stream.lines) > 0 {
			line := stream.lines[0]
			stream.lines = stream.lines[1:]

			decoded := decodeRecord(line)
			switch decoded.kind {
			case recordDelta:
				stream.delivered++
				return decoded.delta, nil
			case recordMalformed:
				stream.skipped++
				stream.logger.Warn("skipping malformed stream record",
					"record", truncateForLog(line),
					"error", decoded.err,
				)
			case recordMissingDelta:
				stream.skipped++
				stream.logger.Debug("skipping stream record without delta content",
					"record", truncateForLog(line),
				)
			case recordError:
				stream.err = decoded.err
				return "", stream.err
			}
		}

		if stream.ended {
			return "", io.EOF
		}
		if err := stream.fill(); err != nil {
			stream.err = err
			return "", err
		}
	}
}

// fill reads one chunk from the body into the line buffer.
func (stream *DeltaStream) fill() error {
	count, err := stream.body.Read(stream.chunk)
	if count > 0 {
		stream.lines = append(stream.lines, stream.buffer.Write(stream.chunk[:count])...)
	}
	if errors.Is(err, io.EOF) {
		stream.ended = true
		if tail, ok := stream.buffer.Flush(); ok {
			stream.lines = append(stream.lines, tail)
		}
		return nil
	}
	if err != nil {
		return classifyFailure(stream.parent, stream.attempt, stream.timeout, err)
	}
	return nil
}

// Delivered returns how many deltas Next has returned so far.
func (stream *DeltaStream) Delivered() int { return stream.delivered }

// Skipped returns how many data records were skipped as undecodable.
func (stream *DeltaStream) Skipped() int { return stream.skipped }

// Close cancels the attempt and closes the response body. Safe to call
// more than once.
func (stream *DeltaStream) Close() error {
	stream.cancel()
	return stream.body.Close()
}

// classifyFailure turns a transport-level error into an *Error. The
// caller's own cancellation takes precedence over the attempt deadline,
// which takes precedence over the raw error.
func classifyFailure(parent, attempt context.Context, timeout time.Duration, err error) *Error {
	if parentErr := parent.Err(); parentErr != nil {
		return &Error{Kind: KindCanceled, Err: parentErr}
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return &Error{
			Kind:    KindTimeout,
			Message: fmt.Sprintf("no complete response within %s", timeout),
			Err:     err,
		}
	}
	return &Error{Kind: KindTransport, Err: err}
}
