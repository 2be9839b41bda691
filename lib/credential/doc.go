// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential holds the bearer token used to authenticate
// completion requests.
//
// A [Credential] is an opaque string that refuses to print itself:
// String, GoString and LogValue all return a redaction marker, so a
// credential passed to slog or fmt by mistake never reaches a log.
// Code that genuinely needs the token (the Authorization header) calls
// [Credential.Token].
//
// [ReadFile], [ReadFrom] and [Prompt] obtain a credential from a file,
// from a stream, or from an interactive terminal prompt with echo
// disabled. Surrounding
// whitespace is trimmed and an empty result is rejected with
// [ErrEmpty] before any network call is attempted.
package credential
