package engine

import "github.com/rs/zerolog"

// Config encapsulates all tunables for Engine construction.
type Config struct {
	// ModelName is reported in responses and mixed into cache keys.
	ModelName string
	// Loader builds the backend when Load is called.
	Loader Loader
	// Cache, when non-nil, serves repeated greedy requests.
	Cache  ResultCache
	Logger zerolog.Logger
}
