//go:build !llama

package engine

import "context"

// llamaLoader is a stub compiled when the 'llama' build tag is NOT set. It
// fails fast instead of faking inference.
type llamaLoader struct{}

func newLlamaLoader(BackendOptions) Loader { return llamaLoader{} }

func (llamaLoader) Load(context.Context) (Backend, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
