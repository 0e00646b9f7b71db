//go:build onnx

package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/daulet/tokenizers"
	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"

	"gemmad/internal/hub"
	"gemmad/internal/sampling"
)

// onnxPromptTokens bounds the encoded prompt; longer prompts are truncated.
const onnxPromptTokens = 512

// onnxLoader fetches tokenizer.json and an exported causal-LM graph from the
// hub and runs it in-process with ONNX Runtime.
type onnxLoader struct {
	opts BackendOptions
}

func newONNXLoader(opts BackendOptions) Loader { return &onnxLoader{opts: opts} }

func (l *onnxLoader) Load(ctx context.Context) (Backend, error) {
	o := l.opts
	mc, err := o.Hub.LoadModelConfig(ctx, o.ModelName, o.Revision)
	if err != nil {
		return nil, fmt.Errorf("load model config: %w", err)
	}
	if mc.VocabSize <= 0 {
		return nil, fmt.Errorf("config.json has no vocab_size")
	}
	tc, err := o.Hub.LoadTokenizerConfig(ctx, o.ModelName, o.Revision)
	if err != nil && !hub.IsNotFound(err) {
		return nil, fmt.Errorf("load tokenizer config: %w", err)
	}
	tokPath, err := o.Hub.Fetch(ctx, o.ModelName, o.Revision, hub.TokenizerFile)
	if err != nil {
		return nil, fmt.Errorf("fetch tokenizer: %w", err)
	}
	modelPath, err := o.Hub.Resolve(ctx, o.ModelName, o.Revision, o.ONNXFile)
	if err != nil {
		return nil, fmt.Errorf("fetch onnx graph: %w", err)
	}
	// Graphs above 2GB keep their weights in a sibling external-data file.
	if !hub.IsLocalPath(o.ONNXFile) {
		if _, err := o.Hub.Fetch(ctx, o.ModelName, o.Revision, o.ONNXFile+"_data"); err != nil && !hub.IsNotFound(err) {
			return nil, fmt.Errorf("fetch onnx external data: %w", err)
		}
	}

	if o.ONNXLibrary != "" {
		ort.SetSharedLibraryPath(o.ONNXLibrary)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, ErrDependencyUnavailable(fmt.Sprintf("initialize onnx runtime: %v", err))
		}
	}
	so, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	threads := o.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	if err := so.SetIntraOpNumThreads(threads); err != nil {
		so.Destroy()
		return nil, fmt.Errorf("set threads: %w", err)
	}
	tk, err := tokenizers.FromFile(tokPath)
	if err != nil {
		so.Destroy()
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	eos := map[uint32]bool{}
	for _, id := range mc.EOSTokenIDs() {
		eos[uint32(id)] = true
	}
	tokClass := tc.TokenizerClass
	if tokClass == "" {
		tokClass = "PreTrainedTokenizerFast"
	}
	dtype := mc.TorchDType
	if dtype == "" || strings.Contains(o.ONNXFile, "fp32") {
		dtype = "float32"
	}
	return &onnxBackend{
		modelPath: modelPath,
		tk:        tk,
		so:        so,
		vocab:     mc.VocabSize,
		eos:       eos,
		log:       o.Logger,
		info: Info{
			ModelType:     orUnknown(mc.Architecture()),
			TokenizerType: tokClass,
			VocabSize:     mc.VocabSize,
			Device:        "cpu",
			DType:         dtype,
		},
	}, nil
}

type onnxBackend struct {
	modelPath string
	tk        *tokenizers.Tokenizer
	so        *ort.SessionOptions
	vocab     int
	eos       map[uint32]bool
	log       zerolog.Logger
	info      Info
}

func (b *onnxBackend) Generate(ctx context.Context, prompt string, p Params) ([]string, error) {
	n := p.NumReturnSequences
	if n < 1 {
		return nil, fmt.Errorf("num_return_sequences has to be a positive integer, got %d", n)
	}
	if !p.DoSample && n > 1 {
		return nil, errors.New("greedy decoding does not support num_return_sequences different than 1")
	}
	s, err := sampling.New(p.Temperature, p.TopP, p.DoSample, time.Now().UnixNano())
	if err != nil {
		return nil, err
	}
	ids, _ := b.tk.Encode(prompt, true)
	if len(ids) > onnxPromptTokens {
		ids = ids[:onnxPromptTokens]
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		toks := append(make([]uint32, 0, max(p.MaxLength, len(ids))), ids...)
		for len(toks) < p.MaxLength {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			logits, err := b.forward(toks)
			if err != nil {
				return nil, err
			}
			next := s.Sample(logits)
			if next < 0 {
				return nil, errors.New("empty logits")
			}
			toks = append(toks, uint32(next))
			if b.eos[uint32(next)] {
				break
			}
		}
		out = append(out, b.tk.Decode(toks, true))
	}
	return out, nil
}

// forward runs the full sequence through the graph and returns the logits of
// the last position.
func (b *onnxBackend) forward(toks []uint32) ([]float32, error) {
	seqLen := int64(len(toks))
	inputIDs := make([]int64, len(toks))
	mask := make([]int64, len(toks))
	for i, t := range toks {
		inputIDs[i] = int64(t)
		mask[i] = 1
	}
	inShape := ort.NewShape(1, seqLen)
	in, err := ort.NewTensor(inShape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	defer in.Destroy()
	am, err := ort.NewTensor(inShape, mask)
	if err != nil {
		return nil, fmt.Errorf("mask tensor: %w", err)
	}
	defer am.Destroy()
	outT, err := ort.NewEmptyTensor[float32](ort.NewShape(1, seqLen, int64(b.vocab)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer outT.Destroy()

	sess, err := ort.NewAdvancedSession(b.modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{in, am},
		[]ort.Value{outT},
		b.so,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	defer sess.Destroy()
	if err := sess.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	data := outT.GetData()
	last := (len(toks) - 1) * b.vocab
	logits := make([]float32, b.vocab)
	copy(logits, data[last:last+b.vocab])
	return logits, nil
}

func (b *onnxBackend) Info() Info { return b.info }

func (b *onnxBackend) Close() error {
	var err error
	if b.tk != nil {
		err = b.tk.Close()
	}
	if b.so != nil {
		if e := b.so.Destroy(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
