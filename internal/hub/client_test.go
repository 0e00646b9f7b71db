package hub

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, baseURL, token string) *Client {
	t.Helper()
	c, err := New(Options{BaseURL: baseURL, Token: token, CacheDir: t.TempDir(), RetryBaseDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return c
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/google/gemma-2-2b/resolve/main/config.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"vocab_size":256000}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	ctx := context.Background()
	p, err := c.Fetch(ctx, "google/gemma-2-2b", "main", "config.json")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(p, "google--gemma-2-2b") {
		t.Fatalf("unexpected cache path %s", p)
	}
	b, _ := os.ReadFile(p)
	if string(b) != `{"vocab_size":256000}` {
		t.Fatalf("content=%q", b)
	}
	if _, err := c.Fetch(ctx, "google/gemma-2-2b", "main", "config.json"); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected cached second fetch, got %d requests", hits.Load())
	}
	if _, err := os.Stat(p + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind")
	}
}

func TestFetchSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer hf_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL, "hf_test").Fetch(context.Background(), "org/gated", "", "config.json"); err != nil {
		t.Fatalf("fetch with token: %v", err)
	}
	_, err := newTestClient(t, srv.URL, "").Fetch(context.Background(), "org/gated", "", "config.json")
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestFetchNotFoundIsNotRetried(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL, "").Fetch(context.Background(), "org/missing", "main", "config.json")
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("404 retried %d times", hits.Load())
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("weights"))
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv.URL, "").Fetch(context.Background(), "org/flaky", "main", "model.gguf"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits.Load())
	}
}

func TestFetchResumesPartial(t *testing.T) {
	full := []byte("0123456789")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "bytes=4-" {
			t.Errorf("range=%q", r.Header.Get("Range"))
			_, _ = w.Write(full)
			return
		}
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(full[4:])
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, "")
	dst := c.LocalPath("org/m", "main", "onnx/model.onnx")
	if err := os.MkdirAll(dirOf(dst), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(dst+".partial", full[:4], 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}
	p, err := c.Fetch(context.Background(), "org/m", "main", "onnx/model.onnx")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	b, _ := os.ReadFile(p)
	if !bytes.Equal(b, full) {
		t.Fatalf("content=%q", b)
	}
}

func TestFetchWritesProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 4096))
	}))
	defer srv.Close()

	var out bytes.Buffer
	c, err := New(Options{BaseURL: srv.URL, CacheDir: t.TempDir(), Progress: &out})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := c.Fetch(context.Background(), "org/m", "main", "tokenizer.json"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !strings.Contains(out.String(), "tokenizer.json") {
		t.Fatalf("progress output missing description: %q", out.String())
	}
}

func TestFetchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestClient(t, srv.URL, "").Fetch(ctx, "org/m", "main", "config.json"); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Options{CacheDir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}

func dirOf(p string) string {
	i := strings.LastIndexAny(p, `/\`)
	if i < 0 {
		return "."
	}
	return p[:i]
}
