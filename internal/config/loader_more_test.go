package config

import (
	"testing"
)

func TestLoadRejectsBrokenFiles(t *testing.T) {
	cases := []struct {
		name, file, content string
	}{
		{"yaml", "bad.yaml", "addr: :8000\n: broken\n"},
		{"json", "bad.json", `{ "addr": ":8000", "model_name": }`},
		{"toml", "bad.toml", "addr=:8000\nmodel_name\n"},
		{"duration", "bad.yaml", "cache_ttl: soon\n"},
		{"generate timeout", "bad.json", `{"generate_timeout": true}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeTempFile(t, t.TempDir(), tc.file, tc.content)
			if _, err := Load(p); err == nil {
				t.Fatalf("expected error for %s", tc.file)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/gemmad.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
