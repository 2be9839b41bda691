// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pacing re-times a bursty stream of text deltas into a smooth,
// human-readable reveal schedule.
//
// A [Scheduler] is created per assistant turn. The network side calls
// [Scheduler.Feed] as deltas arrive and [Scheduler.Finish] at end of
// stream; the presentation side drains reveal events with
// [Scheduler.Next] or [Scheduler.Run]. Each [Event] carries the next
// chunk of unrevealed text and the delay to wait before showing it.
//
// Chunk sizes follow natural-language boundaries: punctuation is
// always revealed alone, short CJK runs and short complete Latin words
// are revealed whole, and long Latin runs are revealed three letters
// at a time. Delays start from a base per-chunk delay scaled by reply
// length, position within the reply, and a small random jitter, plus a
// pause after punctuation and after a blank line.
//
// Concatenating every emitted chunk in order reproduces the fed text
// exactly. The revealed prefix never exceeds the fed text.
package pacing
