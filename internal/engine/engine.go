package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Engine holds the single loaded backend. It is written once by Load and then
// shared read-only by all requests.
type Engine struct {
	mu       sync.RWMutex
	state    State
	err      string
	backend  Backend
	loadedAt time.Time

	modelName string
	loader    Loader
	cache     ResultCache
	log       zerolog.Logger
}

// New constructs an Engine in the loading state. Nothing is loaded until Load.
func New(cfg Config) *Engine {
	return &Engine{
		state:     StateLoading,
		modelName: cfg.ModelName,
		loader:    cfg.Loader,
		cache:     cfg.Cache,
		log:       cfg.Logger,
	}
}

// ModelName returns the configured model identifier.
func (e *Engine) ModelName() string { return e.modelName }

// Load builds the backend. It is a no-op once a backend is loaded. On failure
// the engine moves to the error state and keeps reporting not-loaded.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.RLock()
	loaded := e.backend != nil
	e.mu.RUnlock()
	if loaded {
		return nil
	}
	if e.loader == nil {
		err := ErrDependencyUnavailable("no backend loader configured")
		e.setError(err)
		return err
	}
	start := time.Now()
	e.log.Info().Str("model", e.modelName).Msg("loading model")
	b, err := e.loader.Load(ctx)
	if err != nil {
		e.setError(err)
		e.log.Error().Err(err).Str("model", e.modelName).Msg("model load failed")
		return err
	}
	e.mu.Lock()
	if e.backend != nil {
		// Lost a race with a concurrent Load.
		e.mu.Unlock()
		_ = b.Close()
		return nil
	}
	e.backend = b
	e.state = StateReady
	e.err = ""
	e.loadedAt = time.Now()
	e.mu.Unlock()
	modelLoaded.Set(1)
	modelLoadSeconds.Set(time.Since(start).Seconds())
	info := b.Info()
	e.log.Info().
		Str("model", e.modelName).
		Str("model_type", info.ModelType).
		Str("device", info.Device).
		Dur("dur", time.Since(start)).
		Msg("model loaded")
	return nil
}

func (e *Engine) setError(err error) {
	e.mu.Lock()
	e.state = StateError
	e.err = err.Error()
	e.mu.Unlock()
}

// Ready reports whether a backend is loaded.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.backend != nil
}

// Snapshot returns the current lifecycle state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{State: e.state, Err: e.err, LoadedAt: e.loadedAt}
}

func (e *Engine) current() (Backend, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.backend, e.backend != nil
}

// Close releases the backend and the result cache.
func (e *Engine) Close() error {
	e.mu.Lock()
	b := e.backend
	e.backend = nil
	if e.state == StateReady {
		e.state = StateLoading
	}
	e.mu.Unlock()
	modelLoaded.Set(0)
	var firstErr error
	if b != nil {
		firstErr = b.Close()
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
