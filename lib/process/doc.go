// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers. They cover the
// raw stderr output a binary needs after its structured logger is gone
// or before it exists: reporting the error that ended main and choosing
// the exit status.
package process
