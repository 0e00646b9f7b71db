package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gemmad/internal/engine"
	"gemmad/internal/httpapi"
	"gemmad/internal/hub"
)

const testModel = "google/gemma-2-2b"

// fakeHub serves model metadata and a text-generation endpoint that echoes
// the prompt followed by a fixed continuation.
type fakeHub struct {
	srv       *httptest.Server
	inference atomic.Int32
	fail      atomic.Bool
	lastBody  atomic.Value
}

func newFakeHub(t *testing.T) *fakeHub {
	t.Helper()
	h := &fakeHub{}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + testModel + "/resolve/main/config.json":
			_, _ = w.Write([]byte(`{"architectures":["Gemma2ForCausalLM"],"model_type":"gemma2","vocab_size":256000,"torch_dtype":"bfloat16"}`))
		case "/" + testModel + "/resolve/main/tokenizer_config.json":
			_, _ = w.Write([]byte(`{"tokenizer_class":"GemmaTokenizerFast"}`))
		case "/models/" + testModel:
			h.inference.Add(1)
			b, _ := io.ReadAll(r.Body)
			h.lastBody.Store(string(b))
			if h.fail.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"CUDA out of memory"}`))
				return
			}
			var req struct {
				Inputs string `json:"inputs"`
			}
			_ = json.Unmarshal(b, &req)
			_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": req.Inputs + " a field of computer science."}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(h.srv.Close)
	return h
}

// newStack wires hub client, remote backend, engine and HTTP mux the way
// the gemmad binary does. The engine is not loaded yet.
func newStack(t *testing.T, h *fakeHub, cache engine.ResultCache) (*httptest.Server, *engine.Engine) {
	t.Helper()
	hc, err := hub.New(hub.Options{BaseURL: h.srv.URL, CacheDir: t.TempDir(), RetryBaseDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("hub: %v", err)
	}
	loader, err := engine.NewLoader(engine.BackendOptions{
		Kind:         engine.KindRemote,
		ModelName:    testModel,
		Revision:     "main",
		Hub:          hc,
		Logger:       zerolog.Nop(),
		InferenceURL: h.srv.URL,
	})
	if err != nil {
		t.Fatalf("loader: %v", err)
	}
	eng := engine.New(engine.Config{ModelName: testModel, Loader: loader, Cache: cache, Logger: zerolog.Nop()})
	t.Cleanup(func() { _ = eng.Close() })
	httpapi.SetLogger(zerolog.Nop())
	srv := httptest.NewServer(httpapi.NewMux(eng))
	t.Cleanup(srv.Close)
	return srv, eng
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url, payload string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader([]byte(payload)))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func mustContain(t *testing.T, s, sub string) {
	t.Helper()
	if !strings.Contains(s, sub) {
		t.Fatalf("%q does not contain %q", s, sub)
	}
}
