// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers shared by the completion
// client and the relay.
//
// [ErrorBody] bounds the read of an error response so a misbehaving
// provider cannot exhaust memory. It is for error payloads only;
// streaming bodies are read incrementally.
//
// [IsExpectedCloseError] classifies errors that occur when the other
// side of a connection goes away, so they are not logged as failures.
package netutil
