// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import "io"

// MaxErrorBodySize bounds how much of an error response is read.
const MaxErrorBodySize int64 = 64 << 10

// ErrorBody reads at most MaxErrorBodySize bytes of an HTTP error
// response. Read errors are ignored: a partial or empty body is still
// useful when looking for a message.
func ErrorBody(body io.Reader) []byte {
	data, _ := io.ReadAll(io.LimitReader(body, MaxErrorBodySize))
	return data
}
