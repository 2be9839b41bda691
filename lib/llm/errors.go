// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a failure so the caller can react to it without
// parsing messages.
type ErrorKind int

const (
	// KindUnknown is the zero value; it is never produced by this
	// package for a classified failure.
	KindUnknown ErrorKind = iota

	// KindInvalidCredential: the credential was blank. No request was
	// sent and nothing is retried.
	KindInvalidCredential

	// KindTimeout: an attempt exceeded its deadline. Never retried.
	KindTimeout

	// KindRateLimited: HTTP 429.
	KindRateLimited

	// KindUnauthorized: HTTP 401.
	KindUnauthorized

	// KindForbidden: HTTP 403.
	KindForbidden

	// KindUnavailable: HTTP 503.
	KindUnavailable

	// KindProviderError: any other non-success status, or a structured
	// error payload delivered inside the event stream.
	KindProviderError

	// KindMalformedStream: a data record could not be decoded. Records
	// of this kind are logged and skipped, never returned.
	KindMalformedStream

	// KindExhaustedRetries: every permitted attempt failed. The error
	// wraps the last attempt's error.
	KindExhaustedRetries

	// KindTransport: the connection failed or broke before a complete
	// response was read.
	KindTransport

	// KindCanceled: the caller canceled the context. Never retried.
	KindCanceled
)

var kindNames = map[ErrorKind]string{
	KindUnknown:           "Unknown",
	KindInvalidCredential: "InvalidCredential",
	KindTimeout:           "Timeout",
	KindRateLimited:       "RateLimited",
	KindUnauthorized:      "Unauthorized",
	KindForbidden:         "Forbidden",
	KindUnavailable:       "Unavailable",
	KindProviderError:     "ProviderError",
	KindMalformedStream:   "MalformedStream",
	KindExhaustedRetries:  "ExhaustedRetries",
	KindTransport:         "Transport",
	KindCanceled:          "Canceled",
}

func (kind ErrorKind) String() string {
	if name, ok := kindNames[kind]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(kind))
}

// retryable reports whether an attempt that failed with this kind may
// be followed by another attempt.
func (kind ErrorKind) retryable() bool {
	switch kind {
	case KindTimeout, KindCanceled, KindInvalidCredential:
		return false
	}
	return true
}

// Sentinels for errors.Is. Matching compares only the kind, so
// errors.Is(err, ErrRateLimited) holds for any rate-limit failure,
// including one wrapped inside an ExhaustedRetries error.
var (
	ErrInvalidCredential = &Error{Kind: KindInvalidCredential}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrUnavailable       = &Error{Kind: KindUnavailable}
	ErrProvider          = &Error{Kind: KindProviderError}
	ErrMalformedStream   = &Error{Kind: KindMalformedStream}
	ErrExhaustedRetries  = &Error{Kind: KindExhaustedRetries}
	ErrTransport         = &Error{Kind: KindTransport}
	ErrCanceled          = &Error{Kind: KindCanceled}
)

// Error is the single error type returned by [Client.Send] and
// [Client.Stream].
type Error struct {
	Kind ErrorKind

	// StatusCode is the HTTP status for status-derived kinds, zero
	// otherwise.
	StatusCode int

	// Message is the human-readable description, taken from the
	// provider's error payload when one was available.
	Message string

	// Attempts is the number of attempts made. Set on
	// KindExhaustedRetries only.
	Attempts int

	// Err is the underlying cause, if any.
	Err error
}

func (err *Error) Error() string {
	var builder strings.Builder
	builder.WriteString("llm: ")
	builder.WriteString(err.Kind.String())
	if err.StatusCode != 0 {
		fmt.Fprintf(&builder, " (HTTP %d)", err.StatusCode)
	}
	if err.Attempts != 0 {
		fmt.Fprintf(&builder, " after %d attempts", err.Attempts)
	}
	if err.Message != "" {
		builder.WriteString(": ")
		builder.WriteString(err.Message)
	} else if err.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(err.Err.Error())
	}
	return builder.String()
}

func (err *Error) Unwrap() error { return err.Err }

// Is matches any *Error of the same kind.
func (err *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && other.Kind == err.Kind
}

// KindOf returns the kind of the outermost *Error in err's chain, or
// KindUnknown if there is none.
func KindOf(err error) ErrorKind {
	var llmError *Error
	if errors.As(err, &llmError) {
		return llmError.Kind
	}
	return KindUnknown
}

// UserMessage returns the message a caller should show in place of the
// assistant's reply when a turn fails.
func UserMessage(err error) string {
	var llmError *Error
	if !errors.As(err, &llmError) {
		return err.Error()
	}
	if llmError.Kind == KindExhaustedRetries {
		var cause *Error
		if errors.As(llmError.Err, &cause) {
			return UserMessage(cause)
		}
	}
	switch llmError.Kind {
	case KindInvalidCredential:
		return "No API key configured. Set a valid key and try again."
	case KindTimeout:
		return "The request timed out. Please try again."
	case KindCanceled:
		return "The request was canceled."
	}
	if llmError.Message != "" {
		return llmError.Message
	}
	return llmError.Error()
}

// statusKind maps a non-success HTTP status to an error kind.
func statusKind(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusServiceUnavailable:
		return KindUnavailable
	}
	return KindProviderError
}

// wireError is the error payload shape used by OpenAI-compatible
// providers. OpenRouter adds metadata.raw carrying the upstream
// provider's own error, which is usually more specific than message.
type wireError struct {
	Error json.RawMessage `json:"error"`
}

type wireErrorObject struct {
	Message  string `json:"message"`
	Type     string `json:"type"`
	Metadata *struct {
		Raw          json.RawMessage `json:"raw"`
		ProviderName string          `json:"provider_name"`
	} `json:"metadata"`
}

// statusError builds the error for a non-success response. The kind is
// fixed by the status; body only contributes the message, so a body
// that cannot be parsed degrades to a generic message rather than
// changing the kind.
func statusError(status int, body []byte) *Error {
	message := providerMessage(body)
	if message == "" {
		message = fmt.Sprintf("request failed: %d %s", status, http.StatusText(status))
	}
	return &Error{
		Kind:       statusKind(status),
		StatusCode: status,
		Message:    message,
	}
}

// providerMessage extracts the most specific error message from an
// error payload: metadata.raw first, then error.message, then a bare
// string error. Returns "" when nothing usable is present.
func providerMessage(body []byte) string {
	var envelope wireError
	if json.Unmarshal(body, &envelope) != nil || len(envelope.Error) == 0 {
		return ""
	}

	var text string
	if json.Unmarshal(envelope.Error, &text) == nil {
		return strings.TrimSpace(text)
	}

	var object wireErrorObject
	if json.Unmarshal(envelope.Error, &object) != nil {
		return ""
	}
	if object.Metadata != nil {
		if raw := rawMessage(object.Metadata.Raw); raw != "" {
			return raw
		}
	}
	return strings.TrimSpace(object.Message)
}

// rawMessage renders metadata.raw, which providers send either as a
// string (often itself JSON) or as an object.
func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var text string
	if json.Unmarshal(raw, &text) == nil {
		if nested := providerMessage([]byte(text)); nested != "" {
			return nested
		}
		return strings.TrimSpace(text)
	}
	if nested := providerMessage(raw); nested != "" {
		return nested
	}
	var object struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &object) == nil && object.Message != "" {
		return object.Message
	}
	return strings.TrimSpace(string(raw))
}
