package agent

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// tokenCodec lazily loads the GPT-4 encoding used for every estimate
func tokenCodec() tokenizer.Codec {
	codecOnce.Do(func() {
		c, err := tokenizer.ForModel(tokenizer.GPT4)
		if err == nil {
			codec = c
		}
	})
	return codec
}

// CountTokens returns the number of tokens in text, falling back to a
// four-characters-per-token estimate when the encoding is unavailable.
func CountTokens(text string) int {
	c := tokenCodec()
	if c == nil {
		return len(text) / 4
	}
	count, err := c.Count(text)
	if err != nil {
		return len(text) / 4
	}
	return count
}

// EstimateTokens estimates the prompt size of a conversation
func EstimateTokens(messages []Message) int {
	total := 0
	for _, msg := range messages {
		// role and framing overhead
		total += 4
		total += CountTokens(msg.Content)
		for _, tc := range msg.ToolCalls {
			total += CountTokens(tc.Name)
			for k, v := range tc.Parameters {
				total += CountTokens(k)
				if s, ok := v.(string); ok {
					total += CountTokens(s)
				}
			}
		}
	}
	return total
}

// estimateUsage fills in usage for backends that do not report it
func estimateUsage(request ModelRequest, response *ModelResponse) *TokenUsage {
	input := CountTokens(request.SystemPrompt) + EstimateTokens(request.Messages)
	output := CountTokens(response.Content)
	for _, tc := range response.ToolCalls {
		output += CountTokens(tc.Name)
	}
	return &TokenUsage{InputTokens: input, OutputTokens: output}
}
