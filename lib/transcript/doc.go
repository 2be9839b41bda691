// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transcript persists conversation history between runs.
//
// A transcript file is a small header followed by a compressed
// payload:
//
//	offset  size  field
//	0       4     magic "TRKL"
//	4       1     format version (1)
//	5       32    BLAKE3 digest of the uncompressed payload
//	37      ...   zstd frame of the payload
//
// The payload is a CBOR array of turns in conversation order, encoded
// deterministically with lib/codec. [Load] rejects files whose digest
// does not match; a missing file loads as an empty history.
//
// [Log] keeps a transcript file in step with a live conversation and
// satisfies conversation.TurnSink.
package transcript
