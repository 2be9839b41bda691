// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides trickle's CBOR encoding configuration.
//
// JSON is used on the wire (the completion endpoint and the relay);
// CBOR is used for files trickle writes itself, such as transcripts.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so the
// same turns always produce identical bytes and identical checksums.
//
// Types shared with the wire carry only `json` struct tags;
// fxamacker/cbor falls back to them when `cbor` tags are absent.
package codec
