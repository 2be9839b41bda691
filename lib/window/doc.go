// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package window fits a conversation's history into a model's context
// window before each request.
//
// Turn groups are the unit of eviction. A group starts with a user
// turn and includes every following turn until the next user turn, so
// a question is never sent without its answer or the other way round.
// Turns before the first user turn (a system preamble) are never
// evicted, nor are the first group (which usually sets up the
// conversation) and the last group (the message being answered).
//
// Token counts are estimated from character counts by [CharEstimator].
// The estimate errs high, so the window drops history slightly early
// rather than risk a context overflow error from the provider.
package window
