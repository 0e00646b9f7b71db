package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gemmad/pkg/types"
)

func TestNotLoadedBeforeLoad(t *testing.T) {
	e := New(Config{ModelName: "m", Loader: loaderFor(&fakeBackend{})})
	if e.Ready() {
		t.Fatalf("ready before load")
	}
	if s := e.Snapshot(); s.State != StateLoading {
		t.Fatalf("state=%s", s.State)
	}
	_, err := e.Generate(context.Background(), types.NewGenerateRequest("hi"))
	if !IsModelNotLoaded(err) || err.Error() != "Model not loaded" {
		t.Fatalf("generate err=%v", err)
	}
	if _, err := e.ModelInfo(); !IsModelNotLoaded(err) {
		t.Fatalf("model info err=%v", err)
	}
}

func TestLoadFailureSetsErrorState(t *testing.T) {
	boom := errors.New("gated repo")
	e := New(Config{ModelName: "m", Loader: LoaderFunc(func(context.Context) (Backend, error) { return nil, boom })})
	if err := e.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	s := e.Snapshot()
	if s.State != StateError || s.Err != "gated repo" {
		t.Fatalf("snapshot=%+v", s)
	}
	if e.Ready() {
		t.Fatalf("ready after failed load")
	}
}

func TestLoadWithoutLoader(t *testing.T) {
	e := New(Config{ModelName: "m"})
	if err := e.Load(context.Background()); !IsDependencyUnavailable(err) {
		t.Fatalf("err=%v", err)
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	var loads int
	b := &fakeBackend{}
	e := New(Config{ModelName: "m", Loader: LoaderFunc(func(context.Context) (Backend, error) {
		loads++
		return b, nil
	})})
	for i := 0; i < 3; i++ {
		if err := e.Load(context.Background()); err != nil {
			t.Fatalf("load: %v", err)
		}
	}
	if loads != 1 {
		t.Fatalf("loads=%d", loads)
	}
	s := e.Snapshot()
	if s.State != StateReady || s.LoadedAt.IsZero() {
		t.Fatalf("snapshot=%+v", s)
	}
}

func TestGenerateStripsPromptFromFirstSequence(t *testing.T) {
	b := &fakeBackend{seqs: []string{"Tell me a joke  Why did the chicken cross? ", "Tell me a joke other"}}
	e := newLoaded(t, b, nil)
	g, err := e.Generate(context.Background(), types.NewGenerateRequest("Tell me a joke"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if g.GeneratedText != "Why did the chicken cross?" {
		t.Fatalf("text=%q", g.GeneratedText)
	}
	if g.Prompt != "Tell me a joke" || g.ModelName != "google/gemma-2-2b" {
		t.Fatalf("unexpected echo fields: %+v", g)
	}
	if g.ID == "" || g.Cached {
		t.Fatalf("id=%q cached=%v", g.ID, g.Cached)
	}
}

func TestGenerateUnchangedWhenNoEcho(t *testing.T) {
	b := &fakeBackend{seqs: []string{"tell me a joke: no"}}
	e := newLoaded(t, b, nil)
	g, err := e.Generate(context.Background(), types.NewGenerateRequest("Tell me a joke"))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if g.GeneratedText != "tell me a joke: no" {
		t.Fatalf("text=%q", g.GeneratedText)
	}
}

func TestGenerateCapsMaxLength(t *testing.T) {
	b := &fakeBackend{seqs: []string{"x"}}
	e := newLoaded(t, b, nil)
	req := types.NewGenerateRequest("x")
	req.MaxLength = 5000
	req.NumReturnSequences = 2
	if _, err := e.Generate(context.Background(), req); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if b.last.MaxLength != MaxLengthCap || b.last.NumReturnSequences != 2 {
		t.Fatalf("backend saw %+v", b.last)
	}
}

func TestGenerateWrapsBackendError(t *testing.T) {
	b := &fakeBackend{err: errors.New("CUDA out of memory")}
	e := newLoaded(t, b, nil)
	_, err := e.Generate(context.Background(), types.NewGenerateRequest("x"))
	if !IsGeneration(err) {
		t.Fatalf("err=%v", err)
	}
	if err.Error() != "Generation error: CUDA out of memory" {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestGenerateNoSequencesIsError(t *testing.T) {
	e := newLoaded(t, &fakeBackend{}, nil)
	_, err := e.Generate(context.Background(), types.NewGenerateRequest("x"))
	if !IsGeneration(err) || !strings.Contains(err.Error(), "no sequences") {
		t.Fatalf("err=%v", err)
	}
}

func TestGenerateCanceledContext(t *testing.T) {
	e := newLoaded(t, &fakeBackend{seqs: []string{"x"}}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Generate(ctx, types.NewGenerateRequest("x"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
}

func TestModelInfo(t *testing.T) {
	b := &fakeBackend{info: Info{ModelType: "Gemma2ForCausalLM", TokenizerType: "GemmaTokenizerFast", VocabSize: 256000, Device: "cpu", DType: "float32"}}
	e := newLoaded(t, b, nil)
	mi, err := e.ModelInfo()
	if err != nil {
		t.Fatalf("model info: %v", err)
	}
	want := types.ModelInfoResponse{ModelName: "google/gemma-2-2b", ModelType: "Gemma2ForCausalLM", TokenizerType: "GemmaTokenizerFast", VocabSize: 256000, Device: "cpu", DType: "float32"}
	if mi != want {
		t.Fatalf("got %+v want %+v", mi, want)
	}
}

func TestGreedyResultsAreCached(t *testing.T) {
	b := &fakeBackend{seqs: []string{"q answer"}}
	cache := NewMemoryCache(time.Minute, 16)
	e := newLoaded(t, b, cache)
	defer e.Close()

	req := types.NewGenerateRequest("q")
	req.DoSample = false
	first, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := e.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if b.Calls() != 1 {
		t.Fatalf("backend calls=%d", b.Calls())
	}
	if !second.Cached || second.GeneratedText != first.GeneratedText || second.ID == first.ID {
		t.Fatalf("first=%+v second=%+v", first, second)
	}
}

func TestSampledResultsBypassCache(t *testing.T) {
	b := &fakeBackend{seqs: []string{"q answer"}}
	e := newLoaded(t, b, NewMemoryCache(time.Minute, 16))
	defer e.Close()

	req := types.NewGenerateRequest("q")
	for i := 0; i < 2; i++ {
		if _, err := e.Generate(context.Background(), req); err != nil {
			t.Fatalf("generate: %v", err)
		}
	}
	if b.Calls() != 2 {
		t.Fatalf("backend calls=%d", b.Calls())
	}
}

func TestCloseReleasesBackend(t *testing.T) {
	b := &fakeBackend{seqs: []string{"x"}}
	e := newLoaded(t, b, nil)
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !b.closed || e.Ready() {
		t.Fatalf("closed=%v ready=%v", b.closed, e.Ready())
	}
}
