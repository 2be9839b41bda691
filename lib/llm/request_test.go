// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import "testing"

func TestBuildRequestSystemPreamble(t *testing.T) {
	t.Parallel()

	client := NewClient(Options{SystemPrompt: "Be brief."})

	request := client.buildRequest([]Turn{UserTurn("hi")})
	if len(request.Messages) != 2 || request.Messages[0].Role != "system" || request.Messages[0].Content != "Be brief." {
		t.Errorf("messages = %+v, want configured preamble then the user turn", request.Messages)
	}
	if !request.Stream {
		t.Error("stream not requested")
	}
	if request.Temperature != DefaultSampling().Temperature || request.MaxTokens != DefaultSampling().MaxTokens {
		t.Errorf("sampling = %+v, want defaults", request)
	}

	own := client.buildRequest([]Turn{{Role: RoleSystem, Content: "Be verbose."}, UserTurn("hi")})
	if len(own.Messages) != 2 || own.Messages[0].Content != "Be verbose." {
		t.Errorf("messages = %+v, want the conversation's own system message only", own.Messages)
	}
}
