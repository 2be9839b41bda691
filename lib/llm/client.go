// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bureau-foundation/trickle/lib/clock"
	"github.com/bureau-foundation/trickle/lib/credential"
	"github.com/bureau-foundation/trickle/lib/netutil"
)

// Defaults applied by [NewClient] to zero-valued options.
const (
	DefaultEndpoint       = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel          = "deepseek/deepseek-chat"
	DefaultAttemptTimeout = 30 * time.Second
	DefaultMaxAttempts    = 3
	DefaultBackoffBase    = time.Second
	DefaultBackoffMax     = 8 * time.Second
)

// Options configures a [Client].
type Options struct {
	// Endpoint is the full chat completions URL.
	Endpoint string

	// Model is the provider model identifier.
	Model string

	// Referer and Title identify the application to the provider
	// (sent as HTTP-Referer and X-Title). Empty values are omitted.
	Referer string
	Title   string

	// UserAgent is sent as User-Agent when non-empty.
	UserAgent string

	// SystemPrompt is prepended to every request as a system message,
	// unless the conversation already starts with one.
	SystemPrompt string

	// Sampling parameters. The zero value means DefaultSampling().
	Sampling Sampling

	// AttemptTimeout bounds each attempt from request start to the end
	// of the response body. A fixed bound; it does not scale with the
	// expected reply length.
	AttemptTimeout time.Duration

	// MaxAttempts is the total number of attempts, first one included.
	MaxAttempts int

	// BackoffBase and BackoffMax shape the wait before retry n:
	// min(BackoffBase * 2^n, BackoffMax).
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// HTTPClient performs requests. Its own Timeout should be zero;
	// the attempt deadline is carried by the request context.
	HTTPClient *http.Client

	// Clock drives backoff waits. Defaults to clock.Real().
	Clock clock.Clock

	// Logger receives retry and skipped-record diagnostics.
	Logger *slog.Logger
}

// Client sends conversations to a streaming completion endpoint. A
// Client holds configuration only; concurrent Send calls are
// independent of each other.
type Client struct {
	options Options
}

// NewClient returns a client with defaults filled in for every
// zero-valued option.
func NewClient(options Options) *Client {
	if options.Endpoint == "" {
		options.Endpoint = DefaultEndpoint
	}
	if options.Model == "" {
		options.Model = DefaultModel
	}
	if options.Sampling == (Sampling{}) {
		options.Sampling = DefaultSampling()
	}
	if options.AttemptTimeout <= 0 {
		options.AttemptTimeout = DefaultAttemptTimeout
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = DefaultMaxAttempts
	}
	if options.BackoffBase <= 0 {
		options.BackoffBase = DefaultBackoffBase
	}
	if options.BackoffMax <= 0 {
		options.BackoffMax = DefaultBackoffMax
	}
	if options.HTTPClient == nil {
		options.HTTPClient = &http.Client{}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	return &Client{options: options}
}

// Stream performs one attempt and returns the response as a lazy
// [DeltaStream]. There is no retry at this level. The returned stream
// is bounded by the attempt timeout and by ctx; the caller must Close
// it.
func (client *Client) Stream(ctx context.Context, turns []Turn, key credential.Credential) (*DeltaStream, error) {
	if err := key.Validate(); err != nil {
		return nil, invalidCredential(err)
	}

	body, err := json.Marshal(client.buildRequest(turns))
	if err != nil {
		return nil, fmt.Errorf("llm: marshaling request: %w", err)
	}

	timeout := client.options.AttemptTimeout
	attemptContext, cancel := context.WithTimeout(ctx, timeout)

	request, err := http.NewRequestWithContext(attemptContext, http.MethodPost,
		client.options.Endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("llm: creating request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+key.Token())
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "text/event-stream")
	if client.options.UserAgent != "" {
		request.Header.Set("User-Agent", client.options.UserAgent)
	}
	if client.options.Referer != "" {
		request.Header.Set("HTTP-Referer", client.options.Referer)
	}
	if client.options.Title != "" {
		request.Header.Set("X-Title", client.options.Title)
	}

	response, err := client.options.HTTPClient.Do(request)
	if err != nil {
		failure := classifyFailure(ctx, attemptContext, timeout, err)
		cancel()
		return nil, failure
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		defer cancel()
		defer response.Body.Close()
		// A failed read still leaves the status; the kind never
		// depends on the body.
		return nil, statusError(response.StatusCode, netutil.ErrorBody(response.Body))
	}

	return newDeltaStream(ctx, attemptContext, cancel, response.Body, timeout, client.options.Logger), nil
}

// attemptState is folded through the retry loop in [Client.Send].
type attemptState struct {
	// attempts is the number of attempts started so far.
	attempts int

	// lastErr is the failure of the most recent attempt.
	lastErr error

	// backoff is the wait computed before the next attempt.
	backoff time.Duration
}

// Send streams a completion for turns, calling onDelta once per
// non-empty content delta in arrival order. It returns nil once the
// response body has been fully consumed.
//
// A blank credential fails with KindInvalidCredential before any
// request is made. A failed attempt is retried after a backoff unless
// it timed out, ctx was canceled, or the attempt had already delivered
// deltas (a retry would repeat them). When every attempt fails the
// error is KindExhaustedRetries wrapping the last attempt's error.
func (client *Client) Send(ctx context.Context, turns []Turn, key credential.Credential, onDelta func(string)) error {
	if err := key.Validate(); err != nil {
		return invalidCredential(err)
	}
	if onDelta == nil {
		onDelta = func(string) {}
	}

	logger := client.options.Logger
	var state attemptState
	for {
		state.attempts++
		delivered, err := client.attempt(ctx, turns, key, onDelta)
		if err == nil {
			return nil
		}
		state.lastErr = err

		if !KindOf(err).retryable() || delivered > 0 {
			return err
		}
		if state.attempts >= client.options.MaxAttempts {
			break
		}

		state.backoff = client.backoff(state.attempts - 1)
		logger.Warn("completion attempt failed, retrying",
			"attempt", state.attempts,
			"max_attempts", client.options.MaxAttempts,
			"backoff", state.backoff,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return &Error{Kind: KindCanceled, Err: ctx.Err()}
		case <-client.options.Clock.After(state.backoff):
		}
	}

	var last *Error
	message := ""
	if errors.As(state.lastErr, &last) {
		message = last.Message
	}
	return &Error{
		Kind:     KindExhaustedRetries,
		Attempts: state.attempts,
		Message:  message,
		Err:      state.lastErr,
	}
}

// attempt runs one Stream to completion, returning how many deltas it
// delivered.
func (client *Client) attempt(ctx context.Context, turns []Turn, key credential.Credential, onDelta func(string)) (int, error) {
	stream, err := client.Stream(ctx, turns, key)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	for {
		delta, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return stream.Delivered(), nil
		}
		if err != nil {
			return stream.Delivered(), err
		}
		onDelta(delta)
	}
}

// backoff returns the wait before retry n (zero-based):
// min(BackoffBase * 2^n, BackoffMax).
func (client *Client) backoff(n int) time.Duration {
	limit := client.options.BackoffMax
	delay := client.options.BackoffBase
	for range n {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return min(delay, limit)
}

func invalidCredential(err error) *Error {
	return &Error{Kind: KindInvalidCredential, Message: "credential must not be blank", Err: err}
}
