package types

// GenerateRequest represents a text generation request payload.
// Optional fields fall back to the documented defaults when omitted.
type GenerateRequest struct {
	// Required prompt text to continue.
	// example: Artificial intelligence is
	Prompt string `json:"prompt" example:"Artificial intelligence is"`
	// Maximum total length in tokens (prompt included). Values above 1024 are capped.
	// example: 512
	MaxLength int `json:"max_length" example:"512"`
	// Sampling temperature (higher = more random).
	// example: 0.7
	Temperature float64 `json:"temperature" example:"0.7"`
	// Nucleus sampling probability.
	// example: 0.9
	TopP float64 `json:"top_p" example:"0.9"`
	// Sample from the distribution instead of greedy decoding.
	// example: true
	DoSample bool `json:"do_sample" example:"true"`
	// Number of sequences to generate. Only the first one is returned.
	// example: 1
	NumReturnSequences int `json:"num_return_sequences" example:"1"`
}

// Request defaults, applied to fields the client omits.
const (
	DefaultMaxLength          = 512
	DefaultTemperature        = 0.7
	DefaultTopP               = 0.9
	DefaultDoSample           = true
	DefaultNumReturnSequences = 1
)

// NewGenerateRequest returns a request for prompt with every optional field at its default.
func NewGenerateRequest(prompt string) GenerateRequest {
	return GenerateRequest{
		Prompt:             prompt,
		MaxLength:          DefaultMaxLength,
		Temperature:        DefaultTemperature,
		TopP:               DefaultTopP,
		DoSample:           DefaultDoSample,
		NumReturnSequences: DefaultNumReturnSequences,
	}
}

// GenerateResponse is returned by POST /generate.
type GenerateResponse struct {
	// Generated continuation with the echoed prompt removed.
	// example: a field of computer science focused on building systems that learn.
	GeneratedText string `json:"generated_text" example:"a field of computer science focused on building systems that learn."`
	// The prompt as received.
	// example: Artificial intelligence is
	Prompt string `json:"prompt" example:"Artificial intelligence is"`
	// Configured model name.
	// example: google/gemma-2-2b
	ModelName string `json:"model_name" example:"google/gemma-2-2b"`
}

// HealthResponse is returned by GET /health once the model is loaded.
type HealthResponse struct {
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
}

// RootResponse is returned by GET /.
type RootResponse struct {
	// example: Gemma text generation API
	Message string `json:"message" example:"Gemma text generation API"`
	// example: google/gemma-2-2b
	Model string `json:"model" example:"google/gemma-2-2b"`
	// Map of endpoint path to a short description.
	Endpoints map[string]string `json:"endpoints"`
}

// ModelInfoResponse is returned by GET /model-info.
type ModelInfoResponse struct {
	// example: google/gemma-2-2b
	ModelName string `json:"model_name" example:"google/gemma-2-2b"`
	// Runtime model class.
	// example: Gemma2ForCausalLM
	ModelType string `json:"model_type" example:"Gemma2ForCausalLM"`
	// Tokenizer class.
	// example: GemmaTokenizer
	TokenizerType string `json:"tokenizer_type" example:"GemmaTokenizer"`
	// example: 256000
	VocabSize int `json:"vocab_size" example:"256000"`
	// example: cpu
	Device string `json:"device" example:"cpu"`
	// example: float32
	DType string `json:"dtype" example:"float32"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: Model not loaded
	Detail string `json:"detail" example:"Model not loaded"`
	// HTTP status code.
	// example: 503
	Code int `json:"code" example:"503"`
}
