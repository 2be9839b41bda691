// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that retry
// backoff and reveal pacing can be tested without real waits.
//
// Production code holds a [Clock] and never calls time.Now, time.After
// or time.Sleep directly. Real() wraps the standard library. Fake()
// returns a [FakeClock] whose time moves only when Advance is called.
//
// A test that drives a goroutine blocked in After or Sleep follows the
// register-then-advance pattern:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go scheduler.Run(ctx, onReveal)
//	fake.WaitForTimers(1)               // the goroutine is now waiting
//	fake.Advance(250 * time.Millisecond) // release it deterministically
package clock
