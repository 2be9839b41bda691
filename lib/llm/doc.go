// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm talks to an OpenAI-compatible chat completions endpoint
// (OpenRouter and friends) in streaming mode and hands the generated
// text upward one content delta at a time.
//
// [Client.Stream] performs a single attempt and returns a [DeltaStream],
// a lazy sequence of deltas read from the response body as it arrives.
// [Client.Send] wraps Stream with the retry policy and a callback:
//
//	err := client.Send(ctx, turns, credential, func(delta string) {
//	    scheduler.Feed(delta)
//	})
//
// Each attempt is bounded by [Options.AttemptTimeout]. Failed attempts
// are retried with exponential backoff except for timeouts and caller
// cancellation, which surface immediately. Every returned error is an
// [*Error] whose [ErrorKind] tells the caller what went wrong; use
// [KindOf] or errors.Is against the Err* sentinels.
//
// The response body is decoded with a rolling [LineBuffer]: network
// chunks are appended, complete lines are split off, and the trailing
// fragment waits for the next chunk. A record is significant only when
// it starts with "data: ". Records that fail to decode are logged and
// skipped; they never abort the stream.
//
// The client keeps no state between calls and never logs the
// credential.
package llm
