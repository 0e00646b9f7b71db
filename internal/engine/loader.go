package engine

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"gemmad/internal/hub"
)

// Backend kinds accepted by NewLoader.
const (
	KindRemote = "remote"
	KindONNX   = "onnx"
	KindLlama  = "llama"
)

// BackendOptions configures the loader for one backend kind. Fields that do
// not apply to the selected kind are ignored.
type BackendOptions struct {
	Kind      string
	ModelName string
	Revision  string
	Token     string
	Hub       *hub.Client
	Logger    zerolog.Logger
	// Threads for in-process runtimes; 0 means one per CPU.
	Threads int

	// remote
	InferenceURL string
	HTTPClient   *http.Client

	// onnx
	ONNXFile    string
	ONNXLibrary string

	// llama
	GGUFFile  string
	LlamaCtx  int
	GPULayers int
}

// NewLoader returns the Loader for opts.Kind.
func NewLoader(opts BackendOptions) (Loader, error) {
	if opts.Hub == nil {
		return nil, fmt.Errorf("engine: hub client is required")
	}
	switch opts.Kind {
	case KindRemote, "":
		return newRemoteLoader(opts), nil
	case KindONNX:
		return newONNXLoader(opts), nil
	case KindLlama:
		return newLlamaLoader(opts), nil
	default:
		return nil, fmt.Errorf("engine: unknown backend %q", opts.Kind)
	}
}
