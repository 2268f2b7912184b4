package ai

import "context"

// CompletionRequest carries a rendered prompt and the fixed sampling
// parameters used for feedback generation.
type CompletionRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Completer is a hosted LLM completion API.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
