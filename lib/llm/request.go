// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package llm

// Sampling holds the generation parameters sent with every request.
// All fields are always serialized; the provider's defaults are never
// relied upon.
type Sampling struct {
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	TopP             float64 `yaml:"top_p"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
}

// DefaultSampling returns the parameters used when none are configured.
func DefaultSampling() Sampling {
	return Sampling{
		Temperature:      0.7,
		MaxTokens:        2048,
		TopP:             0.9,
		FrequencyPenalty: 0.1,
		PresencePenalty:  0.1,
	}
}

// chatRequest is the OpenAI chat completions wire format.
type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	Stream           bool          `json:"stream"`
	Temperature      float64       `json:"temperature"`
	MaxTokens        int           `json:"max_tokens"`
	TopP             float64       `json:"top_p"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// buildRequest converts turns to the wire format. The configured system
// preamble comes first unless the turns bring their own; the turns
// follow in their original order.
func (client *Client) buildRequest(turns []Turn) chatRequest {
	options := client.options
	request := chatRequest{
		Model:            options.Model,
		Messages:         make([]chatMessage, 0, len(turns)+1),
		Stream:           true,
		Temperature:      options.Sampling.Temperature,
		MaxTokens:        options.Sampling.MaxTokens,
		TopP:             options.Sampling.TopP,
		FrequencyPenalty: options.Sampling.FrequencyPenalty,
		PresencePenalty:  options.Sampling.PresencePenalty,
	}
	if options.SystemPrompt != "" && (len(turns) == 0 || turns[0].Role != RoleSystem) {
		request.Messages = append(request.Messages, chatMessage{
			Role:    string(RoleSystem),
			Content: options.SystemPrompt,
		})
	}
	for _, turn := range turns {
		request.Messages = append(request.Messages, chatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return request
}
