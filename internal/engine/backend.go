package engine

import "context"

// Backend is a loaded model/tokenizer pair.
type Backend interface {
	// Generate returns the decoded output sequences for prompt, special tokens
	// skipped. As with any causal LM decode, a sequence normally starts with
	// the prompt itself. Implementations must return when ctx is canceled.
	Generate(ctx context.Context, prompt string, p Params) ([]string, error)
	// Info describes the loaded model.
	Info() Info
	// Close releases resources held by the backend.
	Close() error
}

// Loader builds a Backend, downloading whatever it needs.
type Loader interface {
	Load(ctx context.Context) (Backend, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context) (Backend, error)

func (f LoaderFunc) Load(ctx context.Context) (Backend, error) { return f(ctx) }
