// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so that a test blocked on a goroutine fails instead of
// hanging. They are the only place tests wait on the wall clock;
// everything else uses lib/clock.Fake.
//
// All helpers call t.Fatalf on failure rather than returning errors.
package testutil
