//go:build llama

package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
	"github.com/rs/zerolog"
)

// llamaLoader loads a GGUF file, local or fetched from the hub, in-process.
type llamaLoader struct {
	opts BackendOptions
}

func newLlamaLoader(opts BackendOptions) Loader { return &llamaLoader{opts: opts} }

func (l *llamaLoader) Load(ctx context.Context) (Backend, error) {
	o := l.opts
	if strings.TrimSpace(o.GGUFFile) == "" {
		return nil, errors.New("llama backend: gguf file is empty")
	}
	path, err := o.Hub.Resolve(ctx, o.ModelName, o.Revision, o.GGUFFile)
	if err != nil {
		return nil, fmt.Errorf("fetch gguf: %w", err)
	}
	info := Info{ModelType: "llama.cpp", TokenizerType: "gguf", Device: "cpu", DType: "gguf"}
	// GGUF repos often ship config.json too; use it for metadata when present.
	if mc, err := o.Hub.LoadModelConfig(ctx, o.ModelName, o.Revision); err == nil {
		info.ModelType = orUnknown(mc.Architecture())
		info.VocabSize = mc.VocabSize
	} else {
		o.Logger.Debug().Err(err).Msg("no config.json next to gguf")
	}
	if o.GPULayers > 0 {
		info.Device = "gpu"
	}
	mo := []llama.ModelOption{
		llama.SetContext(o.LlamaCtx),
		llama.EnableF16Memory,
	}
	if o.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(o.GPULayers))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, fmt.Errorf("load gguf: %w", err)
	}
	threads := o.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	return &llamaBackend{model: m, threads: threads, log: o.Logger, info: info}, nil
}

// llamaBackend serializes calls; a llama.cpp context is single-threaded.
type llamaBackend struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
	log     zerolog.Logger
	info    Info
}

func (b *llamaBackend) Generate(ctx context.Context, prompt string, p Params) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.model == nil {
		return nil, errors.New("llama model not initialized")
	}
	n := max(1, p.NumReturnSequences)
	out := make([]string, 0, n)
	budget := b.newTokens(prompt, p)
	if budget == 0 {
		for i := 0; i < n; i++ {
			out = append(out, prompt)
		}
		return out, nil
	}
	for i := 0; i < n; i++ {
		text, err := b.model.Predict(prompt, b.predictOptions(ctx, p, budget)...)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		// Predict returns only the continuation; prepend the prompt so the
		// sequence reads like a full decode.
		out = append(out, prompt+text)
	}
	return out, nil
}

// newTokens converts max_length, which counts the prompt, into the number of
// tokens llama.cpp may predict.
func (b *llamaBackend) newTokens(prompt string, p Params) int {
	n, _, err := b.model.TokenizeString(prompt, llama.SetThreads(b.threads))
	if err != nil {
		b.log.Warn().Err(err).Msg("tokenize prompt failed, using max_length as the continuation budget")
		return max(1, p.MaxLength)
	}
	return p.NewTokens(int(n))
}

// predictOptions maps generation params onto go-llama.cpp options. Greedy
// decoding is temperature 0.
func (b *llamaBackend) predictOptions(ctx context.Context, p Params, tokens int) []llama.PredictOption {
	temp := float32(p.Temperature)
	if !p.DoSample {
		temp = 0
	}
	return []llama.PredictOption{
		llama.SetTokens(tokens),
		llama.SetThreads(b.threads),
		llama.SetTopP(float32(p.TopP)),
		llama.SetTemperature(temp),
		llama.SetSeed(-1),
		llama.SetTokenCallback(func(string) bool { return ctx.Err() == nil }),
	}
}

func (b *llamaBackend) Info() Info { return b.info }

func (b *llamaBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.model != nil {
		b.model.Free()
		b.model = nil
	}
	return nil
}
