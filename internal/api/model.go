package api

import "context"

// DefaultMaxTokens is used when Params.MaxTokens is zero.
const DefaultMaxTokens = 4096

// Params are per-call model settings.
type Params struct {
	// Model overrides the client's default model when non-empty.
	Model string
	// System is the system prompt.
	System string
	// Temperature is left to the provider default when nil.
	Temperature *float64
	// MaxTokens caps the reply length.
	MaxTokens int
}

// Model is a text-in, text-out language model. Errors carry the provider's
// message text so callers can classify them.
type Model interface {
	Invoke(ctx context.Context, prompt string, params Params) (string, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, prompt string, params Params) (string, error)

// Invoke calls f.
func (f ModelFunc) Invoke(ctx context.Context, prompt string, params Params) (string, error) {
	return f(ctx, prompt, params)
}

// Float returns a pointer to v, for Params.Temperature.
func Float(v float64) *float64 {
	return &v
}
