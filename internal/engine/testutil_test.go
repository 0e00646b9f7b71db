package engine

import (
	"context"
	"sync"
	"testing"
)

// fakeBackend is an in-memory Backend used for tests.
type fakeBackend struct {
	mu      sync.Mutex
	seqs    []string
	err     error
	info    Info
	calls   int
	last    Params
	prompts []string
	closed  bool
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string, p Params) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = p
	f.prompts = append(f.prompts, prompt)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.seqs, nil
}

func (f *fakeBackend) Info() Info { return f.info }

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func loaderFor(b Backend) Loader {
	return LoaderFunc(func(context.Context) (Backend, error) { return b, nil })
}

// newLoaded returns an Engine that has already loaded b.
func newLoaded(t *testing.T, b Backend, cache ResultCache) *Engine {
	e := New(Config{ModelName: "google/gemma-2-2b", Loader: loaderFor(b), Cache: cache})
	t.Helper()
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return e
}
