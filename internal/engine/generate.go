package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gemmad/pkg/types"
)

// Generate runs one generation for req. Errors are either ErrModelNotLoaded
// or a generation error wrapping whatever the backend raised. Only the first
// returned sequence is used; num_return_sequences is forwarded but extra
// sequences are discarded.
func (e *Engine) Generate(ctx context.Context, req types.GenerateRequest) (Generation, error) {
	b, ok := e.current()
	if !ok {
		return Generation{}, ErrModelNotLoaded()
	}
	g := Generation{
		ID:        uuid.NewString(),
		Prompt:    req.Prompt,
		ModelName: e.modelName,
	}
	p := ParamsFromRequest(req)
	log := e.log.With().Str("generation_id", g.ID).Logger()

	var key string
	if e.cache != nil && !p.DoSample {
		key = CacheKey(e.modelName, req.Prompt, p)
		text, hit, err := e.cache.Get(ctx, key)
		if err != nil {
			log.Warn().Err(err).Msg("result cache get failed")
		} else if hit {
			cacheLookups.WithLabelValues("hit").Inc()
			g.Cached = true
			g.GeneratedText = text
			return g, nil
		} else {
			cacheLookups.WithLabelValues("miss").Inc()
		}
	}

	start := time.Now()
	seqs, err := b.Generate(ctx, req.Prompt, p)
	generationSeconds.Observe(time.Since(start).Seconds())
	if err == nil && len(seqs) == 0 {
		err = errors.New("backend returned no sequences")
	}
	if err != nil {
		generationsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Int("max_length", p.MaxLength).Msg("generation failed")
		return Generation{}, ErrGeneration(err)
	}
	generationsTotal.WithLabelValues("ok").Inc()
	g.GeneratedText = StripPrompt(seqs[0], req.Prompt)
	log.Debug().
		Int("max_length", p.MaxLength).
		Bool("do_sample", p.DoSample).
		Int("chars", len(g.GeneratedText)).
		Dur("dur", time.Since(start)).
		Msg("generation done")

	if key != "" {
		if err := e.cache.Set(ctx, key, g.GeneratedText); err != nil {
			log.Warn().Err(err).Msg("result cache set failed")
		}
	}
	return g, nil
}

// ModelInfo describes the loaded model, or ErrModelNotLoaded.
func (e *Engine) ModelInfo() (types.ModelInfoResponse, error) {
	b, ok := e.current()
	if !ok {
		return types.ModelInfoResponse{}, ErrModelNotLoaded()
	}
	info := b.Info()
	return types.ModelInfoResponse{
		ModelName:     e.modelName,
		ModelType:     info.ModelType,
		TokenizerType: info.TokenizerType,
		VocabSize:     info.VocabSize,
		Device:        info.Device,
		DType:         info.DType,
	}, nil
}
