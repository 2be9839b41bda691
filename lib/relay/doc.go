// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relay serves paced replies over HTTP so a browser page can
// show the same reveal rhythm as the terminal client.
//
// POST /v1/chat takes an application/json body (anything else is
// refused with 415) of the form {"messages":[{"role":...,"content":...}]} whose
// last message is from the user, and answers with a text/event-stream.
// Each reveal event is one record:
//
//	data: {"chunk":"Hel","delay_ms":42}
//
// The delay has already elapsed on the server when the record is
// written. A failed turn produces one
//
//	data: {"error":{"kind":"RateLimited","message":"..."}}
//
// record, and every turn that was not cut short by the client ends with
// "data: [DONE]". Closing the connection aborts the turn.
//
// The provider credential belongs to the relay's configuration and is
// never accepted from the browser. Browser requests from origins not in
// the allow-list are refused with 403, preflight or not. GET /health answers {"status":"ok"}.
package relay
