package engine

import "time"

// State represents the lifecycle state of the engine.
type State string

const (
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Params are the generation parameters handed to a Backend.
type Params struct {
	// MaxLength bounds prompt plus generated tokens. Always <= MaxLengthCap.
	// Runtimes that count only new tokens use NewTokens.
	MaxLength          int
	Temperature        float64
	TopP               float64
	DoSample           bool
	NumReturnSequences int
}

// Info describes the loaded model and tokenizer.
type Info struct {
	ModelType     string
	TokenizerType string
	VocabSize     int
	Device        string
	DType         string
}

// Snapshot is a read-only projection of the engine state.
type Snapshot struct {
	State    State
	Err      string
	LoadedAt time.Time
}

// Generation is the result of one Generate call.
type Generation struct {
	// ID is unique per call and correlates logs with responses.
	ID string
	// Cached is true when the text was served from the result cache.
	Cached        bool
	GeneratedText string
	Prompt        string
	ModelName     string
}
