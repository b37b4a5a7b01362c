package ai

import "context"

// Request is a single text generation call.
type Request struct {
	// System is the system instruction for the model.
	System string
	// Prompt is the user message.
	Prompt string
	// Temperature is passed through to the provider.
	Temperature float32
}

// Generator produces text for a request. Implementations wrap transport
// failures with errs.ErrTransport and empty answers with errs.ErrShape.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Model() string
}
