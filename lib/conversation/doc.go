// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package conversation runs a multi-turn chat against a streaming
// completion endpoint with paced reveal.
//
// A [Conversation] owns the ordered turn history. Each
// [Conversation.Submit] appends the user's message, sends the whole
// history, feeds every arriving delta into a per-turn
// [pacing.Scheduler], and reports paced reveal events to an [Observer].
// The assistant's reply is appended to the history only once it has
// been fully revealed. A failed turn appends the error's user-facing
// message as the reply instead, so the transcript explains itself.
//
// Submitting while a reply is still streaming interrupts it: the
// network request is canceled, the scheduler is discarded, and the
// half-revealed reply is dropped.
package conversation
