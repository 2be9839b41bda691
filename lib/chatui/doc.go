// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the terminal chat interface: a bubbletea program
// that shows the conversation in a scrollable viewport, the reply being
// revealed as paced chunks arrive, and an input line for the next
// message.
//
// Turns run through a [Chat] (satisfied by
// *conversation.Conversation). Each Submit runs as a tea.Cmd; its
// observer callbacks are forwarded to the model over a channel that
// the model listens on, so the reply grows one reveal event at a time.
//
// Keys: Enter submits (interrupting a reply still being revealed), Esc
// abandons the current reply, PgUp/PgDn scroll, Ctrl+C quits.
//
// Completed assistant replies are rendered as markdown with
// syntax-highlighted code blocks. The reply being revealed is shown as
// plain wrapped text until it completes.
package chatui
