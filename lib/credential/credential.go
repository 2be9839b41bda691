// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"errors"
	"log/slog"
	"strings"
)

// ErrEmpty is returned when a credential is empty after trimming
// surrounding whitespace.
var ErrEmpty = errors.New("credential is empty")

const redacted = "[redacted]"

// Credential is an opaque bearer token.
type Credential string

// New trims surrounding whitespace from token and returns it as a
// Credential. It does not validate; see [Credential.Validate].
func New(token string) Credential {
	return Credential(strings.TrimSpace(token))
}

// Token returns the raw token for use in an Authorization header.
func (c Credential) Token() string {
	return strings.TrimSpace(string(c))
}

// Validate returns [ErrEmpty] if the credential is blank.
func (c Credential) Validate() error {
	if c.Token() == "" {
		return ErrEmpty
	}
	return nil
}

func (c Credential) String() string { return redacted }

func (c Credential) GoString() string { return redacted }

// LogValue implements slog.LogValuer.
func (c Credential) LogValue() slog.Value { return slog.StringValue(redacted) }
