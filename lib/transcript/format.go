// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transcript

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/trickle/lib/codec"
	"github.com/bureau-foundation/trickle/lib/llm"
)

const (
	magic         = "TRKL"
	formatVersion = 1
	digestSize    = 32
	headerSize    = len(magic) + 1 + digestSize

	// maxPayloadSize bounds decompression of a hostile file.
	maxPayloadSize = 256 << 20
)

// ErrCorrupt is returned for files that are not valid transcripts.
var ErrCorrupt = errors.New("transcript: corrupt file")

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("transcript: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPayloadSize))
	if err != nil {
		panic("transcript: zstd decoder initialization failed: " + err.Error())
	}
}

// Encode serializes turns in the transcript file format.
func Encode(turns []llm.Turn) ([]byte, error) {
	if turns == nil {
		turns = []llm.Turn{}
	}
	payload, err := codec.Marshal(turns)
	if err != nil {
		return nil, fmt.Errorf("transcript: encoding turns: %w", err)
	}
	return frame(payload), nil
}

// frame wraps a CBOR payload in the header and compression.
func frame(payload []byte) []byte {
	digest := blake3.Sum256(payload)

	data := make([]byte, 0, headerSize+len(payload)/2)
	data = append(data, magic...)
	data = append(data, formatVersion)
	data = append(data, digest[:]...)
	return zstdEncoder.EncodeAll(payload, data)
}

// Decode parses data written by [Encode]. Every failure wraps
// ErrCorrupt.
func Decode(data []byte) ([]llm.Turn, error) {
	if len(data) < headerSize || !bytes.Equal(data[:len(magic)], []byte(magic)) {
		return nil, fmt.Errorf("%w: missing %s header", ErrCorrupt, magic)
	}
	if version := data[len(magic)]; version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrCorrupt, version)
	}
	var want [digestSize]byte
	copy(want[:], data[len(magic)+1:headerSize])

	payload, err := zstdDecoder.DecodeAll(data[headerSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing: %v", ErrCorrupt, err)
	}
	if blake3.Sum256(payload) != want {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	var turns []llm.Turn
	if err := codec.Unmarshal(payload, &turns); err != nil {
		return nil, fmt.Errorf("%w: decoding turns: %v (payload %s)", ErrCorrupt, err, diagnose(payload))
	}
	for index, turn := range turns {
		if !turn.Role.Valid() {
			return nil, fmt.Errorf("%w: turn %d has unknown role %q", ErrCorrupt, index, turn.Role)
		}
	}
	return turns, nil
}

// maxDiagnosticSize bounds the payload excerpt quoted in errors.
const maxDiagnosticSize = 120

// diagnose renders the start of a payload in CBOR diagnostic notation,
// so an error shows what the file held instead of what was expected.
func diagnose(payload []byte) string {
	diagnostic, err := codec.Diagnose(payload)
	if err != nil {
		return "not CBOR"
	}
	if len(diagnostic) > maxDiagnosticSize {
		diagnostic = diagnostic[:maxDiagnosticSize] + "..."
	}
	return diagnostic
}
