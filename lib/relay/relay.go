// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bureau-foundation/trickle/lib/conversation"
	"github.com/bureau-foundation/trickle/lib/credential"
	"github.com/bureau-foundation/trickle/lib/llm"
	"github.com/bureau-foundation/trickle/lib/netutil"
	"github.com/bureau-foundation/trickle/lib/pacing"
)

// maxRequestBytes bounds a chat request body.
const maxRequestBytes = 1 << 20

// shutdownTimeout bounds how long Serve waits for open streams after
// its context is canceled.
const shutdownTimeout = 5 * time.Second

// Options configures a [Server].
type Options struct {
	// Sender performs completions. Required.
	Sender conversation.Sender

	// Credential is sent to the provider with every request.
	Credential credential.Credential

	// Pacing configures each turn's reveal scheduler.
	Pacing pacing.Options

	// Window, if set, trims the history sent to the provider.
	Window conversation.HistoryWindow

	// AllowedOrigins lists browser origins permitted by CORS. "*"
	// allows any origin. Empty allows none.
	AllowedOrigins []string

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the relay's HTTP handler.
type Server struct {
	options Options
	logger  *slog.Logger
	router  *chi.Mux
}

// New returns a server with its routes installed.
func New(options Options) *Server {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{options: options, logger: logger}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(allowOrigins(options.AllowedOrigins))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.With(middleware.AllowContentType("application/json")).Post("/v1/chat", server.handleChat)
	server.router = router
	return server
}

// ServeHTTP implements http.Handler.
func (server *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	server.router.ServeHTTP(w, r)
}

// Serve accepts connections on listener until ctx is canceled, then
// shuts down, giving open streams a short grace period.
func (server *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- httpServer.Serve(listener) }()
	server.logger.Info("relay listening", "address", listener.Addr().String())

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down relay: %w", err)
	}
	if err := <-serveErr; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on address and calls Serve.
func (server *Server) ListenAndServe(ctx context.Context, address string) error {
	var listenConfig net.ListenConfig
	listener, err := listenConfig.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}
	return server.Serve(ctx, listener)
}

type chatRequest struct {
	Messages []llm.Turn `json:"messages"`
}

// requestError is a request rejected before streaming starts.
type requestError struct {
	status  int
	message string
}

func (err requestError) Error() string { return err.message }

func (server *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	history, text, err := server.decodeChatRequest(w, r)
	if err != nil {
		var rejected requestError
		if errors.As(err, &rejected) {
			writeError(w, rejected.status, rejected.message)
			return
		}
		writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	stream, err := newEventStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	chat := conversation.New(conversation.Options{
		Sender:     server.options.Sender,
		Credential: server.options.Credential,
		Pacing:     server.options.Pacing,
		History:    history,
		Window:     server.options.Window,
		Logger:     server.logger,
	})

	err = chat.Submit(r.Context(), text, stream)
	switch {
	case errors.Is(err, conversation.ErrInterrupted):
		server.logger.Debug("chat stream closed by client",
			"request_id", middleware.GetReqID(r.Context()),
			"revealed", stream.revealed,
		)
		return
	case err != nil:
		server.logger.Warn("chat turn failed",
			"request_id", middleware.GetReqID(r.Context()),
			"kind", llm.KindOf(err).String(),
			"error", err,
		)
	}
	stream.done()
	if stream.err != nil && !netutil.IsExpectedCloseError(stream.err) {
		server.logger.Warn("writing chat stream failed",
			"request_id", middleware.GetReqID(r.Context()),
			"error", stream.err,
		)
	}
}

// decodeChatRequest splits the request into the history preceding the
// final user message and that message's text.
func (server *Server) decodeChatRequest(w http.ResponseWriter, r *http.Request) ([]llm.Turn, string, error) {
	var request chatRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&request); err != nil {
		return nil, "", requestError{status: http.StatusBadRequest, message: "invalid request body"}
	}
	if len(request.Messages) == 0 {
		return nil, "", requestError{status: http.StatusBadRequest, message: "messages are required"}
	}
	for index, message := range request.Messages {
		if !message.Role.Valid() {
			return nil, "", requestError{
				status:  http.StatusBadRequest,
				message: fmt.Sprintf("message %d has unknown role %q", index, message.Role),
			}
		}
	}

	last := request.Messages[len(request.Messages)-1]
	if last.Role != llm.RoleUser {
		return nil, "", requestError{status: http.StatusBadRequest, message: "last message must be from the user"}
	}
	if strings.TrimSpace(last.Content) == "" {
		return nil, "", requestError{status: http.StatusBadRequest, message: "last message is empty"}
	}

	return request.Messages[:len(request.Messages)-1], last.Content, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
