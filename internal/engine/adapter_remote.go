package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gemmad/internal/hub"
)

// remoteLoader resolves model metadata from the hub and generates through a
// Hugging Face compatible text-generation endpoint.
type remoteLoader struct {
	opts BackendOptions
}

func newRemoteLoader(opts BackendOptions) Loader { return &remoteLoader{opts: opts} }

func (l *remoteLoader) Load(ctx context.Context) (Backend, error) {
	o := l.opts
	if strings.TrimSpace(o.InferenceURL) == "" {
		return nil, fmt.Errorf("remote backend: inference url is empty")
	}
	mc, err := o.Hub.LoadModelConfig(ctx, o.ModelName, o.Revision)
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}
	tc, err := o.Hub.LoadTokenizerConfig(ctx, o.ModelName, o.Revision)
	if err != nil {
		if !hub.IsNotFound(err) {
			return nil, fmt.Errorf("load tokenizer config: %w", err)
		}
		o.Logger.Warn().Str("model", o.ModelName).Msg("tokenizer_config.json not found")
	}
	cli := o.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 5 * time.Minute}
	}
	return &remoteBackend{
		endpoint: strings.TrimRight(o.InferenceURL, "/") + "/models/" + o.ModelName,
		token:    o.Token,
		http:     cli,
		log:      o.Logger,
		info: Info{
			ModelType:     orUnknown(mc.Architecture()),
			TokenizerType: orUnknown(tc.TokenizerClass),
			VocabSize:     mc.VocabSize,
			Device:        "remote",
			DType:         orUnknown(mc.TorchDType),
		},
	}, nil
}

type remoteBackend struct {
	endpoint string
	token    string
	http     *http.Client
	log      zerolog.Logger
	info     Info
}

type remoteParameters struct {
	MaxLength          int     `json:"max_length"`
	Temperature        float64 `json:"temperature"`
	TopP               float64 `json:"top_p"`
	DoSample           bool    `json:"do_sample"`
	NumReturnSequences int     `json:"num_return_sequences"`
	ReturnFullText     bool    `json:"return_full_text"`
}

type remoteRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters remoteParameters `json:"parameters"`
	Options    struct {
		WaitForModel bool `json:"wait_for_model"`
	} `json:"options"`
}

type remoteSequence struct {
	GeneratedText string `json:"generated_text"`
}

type remoteError struct {
	Error string `json:"error"`
}

func (b *remoteBackend) Generate(ctx context.Context, prompt string, p Params) ([]string, error) {
	body := remoteRequest{
		Inputs: prompt,
		Parameters: remoteParameters{
			MaxLength:          p.MaxLength,
			Temperature:        p.Temperature,
			TopP:               p.TopP,
			DoSample:           p.DoSample,
			NumReturnSequences: p.NumReturnSequences,
			ReturnFullText:     true,
		},
	}
	body.Options.WaitForModel = true
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
	resp, err := b.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("inference read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var re remoteError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &re) == nil && re.Error != "" {
			msg = re.Error
		}
		return nil, fmt.Errorf("inference endpoint returned %d: %s", resp.StatusCode, msg)
	}
	var seqs []remoteSequence
	if err := json.Unmarshal(raw, &seqs); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	out := make([]string, 0, len(seqs))
	for _, s := range seqs {
		out = append(out, s.GeneratedText)
	}
	return out, nil
}

func (b *remoteBackend) Info() Info   { return b.info }
func (b *remoteBackend) Close() error { b.http.CloseIdleConnections(); return nil }

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
