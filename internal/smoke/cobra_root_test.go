package smoke

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"gemmad/pkg/types"
)

func TestRootCmdRunsSuite(t *testing.T) {
	fs := &fakeServer{healthy: true}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	var out bytes.Buffer
	cfg := &Config{URL: "http://unused", Timeout: time.Second}
	cmd := NewRootCmd(cfg, strings.NewReader(""), &out)
	cmd.SetArgs([]string{"run", "--url", srv.URL})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v\n%s", err, out.String())
	}
	if len(fs.reqs) != len(DefaultCases) {
		t.Fatalf("requests=%d", len(fs.reqs))
	}
	if strings.Contains(out.String(), "interactive mode?") {
		t.Fatalf("offered interactive mode without a terminal")
	}
}

func TestRootCmdInteractive(t *testing.T) {
	fs := &fakeServer{healthy: true}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	var out bytes.Buffer
	cmd := NewRootCmd(&Config{URL: srv.URL}, strings.NewReader("Hi\n\n\nexit\n"), &out)
	cmd.SetArgs([]string{"interactive"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(fs.reqs) != 1 || fs.reqs[0].Prompt != "Hi" {
		t.Fatalf("requests=%+v", fs.reqs)
	}
}

func TestRootCmdUnhealthyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(types.ErrorResponse{Detail: "Model not loaded", Code: 503})
	}))
	defer srv.Close()
	cmd := NewRootCmd(&Config{URL: srv.URL}, strings.NewReader(""), &bytes.Buffer{})
	cmd.SetArgs([]string{"run"})
	if err := cmd.Execute(); err != ErrUnhealthy {
		t.Fatalf("err=%v", err)
	}
}

func TestDefaultConfigFromEnv(t *testing.T) {
	t.Setenv("GEMMAD_URL", "http://gemma:9000")
	t.Setenv("GEMMACTL_TIMEOUT", "3s")
	cfg := DefaultConfig()
	if cfg.URL != "http://gemma:9000" || cfg.Timeout != 3*time.Second {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestEnvHelpers(t *testing.T) {
	key := "GEMMACTL_TEST_ENV"
	os.Unsetenv(key)
	if got := envStr(key, "def"); got != "def" {
		t.Fatalf("envStr default: got %q", got)
	}
	t.Setenv(key, "  val ")
	if got := envStr(key, "def"); got != "val" {
		t.Fatalf("envStr set: got %q", got)
	}
	t.Setenv(key, "not-a-duration")
	if got := envDuration(key, time.Minute); got != time.Minute {
		t.Fatalf("envDuration fallback: got %s", got)
	}
	for in, want := range map[string]bool{"y": true, "YES": true, "si": true, "n": false, "": false} {
		if isYes(in) != want {
			t.Fatalf("isYes(%q) != %v", in, want)
		}
	}
}
