// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether role is one of the three known roles.
func (role Role) Valid() bool {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Turn is one entry of a conversation. Turns are replayed to the model
// verbatim and in order on every request.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserTurn returns a turn authored by the user.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn returns a turn authored by the model.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// SystemTurn returns a system instruction turn.
func SystemTurn(content string) Turn { return Turn{Role: RoleSystem, Content: content} }
