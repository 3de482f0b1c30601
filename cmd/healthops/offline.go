package main

import (
	"context"

	"github.com/randalmurphal/healthops/pkg/flowgraph/llm"
)

// offlineClient answers every call with the last message it was sent, so
// the classifier routes on the user's own wording.
func offlineClient() llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content := "(no input)"
		if n := len(req.Messages); n > 0 && req.Messages[n-1].Content != "" {
			content = req.Messages[n-1].Content
		}
		return &llm.CompletionResponse{Content: content, Model: "offline"}, nil
	})
}
