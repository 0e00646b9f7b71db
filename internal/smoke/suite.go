package smoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gemmad/pkg/types"
)

// ErrUnhealthy aborts a run when the server is not ready.
var ErrUnhealthy = errors.New("server is not healthy")

// Case is one canned prompt of the suite.
type Case struct {
	Prompt      string
	MaxLength   int
	Temperature float64
}

// DefaultCases are the prompts exercised by `gemmactl run`.
var DefaultCases = []Case{
	{Prompt: "Artificial intelligence is", MaxLength: 100, Temperature: 0.7},
	{Prompt: "In the future, technology", MaxLength: 150, Temperature: 0.5},
	{Prompt: "Python is a programming language", MaxLength: 120, Temperature: 0.8},
	{Prompt: "The benefits of machine learning include", MaxLength: 200, Temperature: 0.6},
}

// Runner prints the outcome of smoke calls to Out.
type Runner struct {
	Client *Client
	Out    io.Writer
	// Pause between suite cases.
	Pause time.Duration
	Cases []Case
}

// NewRunner returns a Runner with the default cases and a one second pause.
func NewRunner(c *Client, out io.Writer) *Runner {
	return &Runner{Client: c, Out: out, Pause: time.Second, Cases: DefaultCases}
}

func (r *Runner) printf(format string, a ...any) { fmt.Fprintf(r.Out, format, a...) }

// CheckHealth prints the health status and reports whether the server is ready.
func (r *Runner) CheckHealth(ctx context.Context) bool {
	h, err := r.Client.Health(ctx)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			r.printf("[fail] API not available, status %d\n", se.Code)
		} else {
			r.printf("[fail] cannot reach %s: %v\n", r.Client.BaseURL(), err)
		}
		return false
	}
	r.printf("[ok] API is healthy\n   response: status=%s model_loaded=%v\n", h.Status, h.ModelLoaded)
	return true
}

// PrintModelInfo prints GET /model-info.
func (r *Runner) PrintModelInfo(ctx context.Context) {
	mi, err := r.Client.ModelInfo(ctx)
	if err != nil {
		r.printf("[fail] model info: %v\n", err)
		return
	}
	r.printf("model info:\n")
	r.printf("   model_name: %s\n   model_type: %s\n   tokenizer_type: %s\n", mi.ModelName, mi.ModelType, mi.TokenizerType)
	r.printf("   vocab_size: %d\n   device: %s\n   dtype: %s\n", mi.VocabSize, mi.Device, mi.DType)
}

// Generate runs one request and prints the timing and result.
func (r *Runner) Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error) {
	r.printf("generating for: %q\n", req.Prompt)
	params, _ := json.MarshalIndent(map[string]any{
		"max_length":           req.MaxLength,
		"temperature":          req.Temperature,
		"top_p":                req.TopP,
		"do_sample":            req.DoSample,
		"num_return_sequences": req.NumReturnSequences,
	}, "   ", "  ")
	r.printf("   parameters: %s\n", params)
	start := time.Now()
	resp, err := r.Client.Generate(ctx, req)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			r.printf("[fail] generation error: %d\n   response: %s\n", se.Code, se.Body)
		} else {
			r.printf("[fail] %v\n", err)
		}
		return resp, err
	}
	r.printf("[ok] generated in %.2f seconds:\n", time.Since(start).Seconds())
	r.printf("   prompt: %s\n   response: %s\n   model: %s\n", resp.Prompt, resp.GeneratedText, resp.ModelName)
	return resp, nil
}

// Run checks health, prints model info and runs every case. It returns
// ErrUnhealthy when the health check fails; generation failures are only printed.
func (r *Runner) Run(ctx context.Context) error {
	r.printf("starting gemmad smoke run against %s\n\n", r.Client.BaseURL())
	r.printf("1. checking API health...\n")
	if !r.CheckHealth(ctx) {
		r.printf("[fail] the API is not available; is the server running?\n")
		return ErrUnhealthy
	}
	r.printf("\n2. fetching model info...\n")
	r.PrintModelInfo(ctx)
	r.printf("\n3. running generation cases...\n")
	for i, c := range r.Cases {
		r.printf("\n--- case %d ---\n", i+1)
		req := types.NewGenerateRequest(c.Prompt)
		req.MaxLength = c.MaxLength
		req.Temperature = c.Temperature
		_, _ = r.Generate(ctx, req)
		if err := sleep(ctx, r.Pause); err != nil {
			return err
		}
	}
	r.printf("\nsmoke run complete\n")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
