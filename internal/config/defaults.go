package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultAddr         = ":8000"
	DefaultModelName    = "google/gemma-2-2b"
	DefaultRevision     = "main"
	DefaultHubURL       = "https://huggingface.co"
	DefaultInferenceURL = "https://api-inference.huggingface.co"
	DefaultCacheDir     = "~/.cache/gemmad"
	DefaultBackend      = BackendRemote
	DefaultONNXFile     = "onnx/model.onnx"
	DefaultLlamaCtx     = 2048
	DefaultAPITitle     = "Gemma text generation API"
	DefaultMaxBodyBytes = 1 << 20
	DefaultCacheTTL     = 10 * time.Minute
	DefaultRedisAddr    = "localhost:6379"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "json"
)

// Backend names.
const (
	BackendRemote = "remote"
	BackendONNX   = "onnx"
	BackendLlama  = "llama"
)

// Result cache stores.
const (
	CacheOff    = "off"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// WithDefaults returns a copy of cfg with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelName == "" {
		c.ModelName = DefaultModelName
	}
	if c.Revision == "" {
		c.Revision = DefaultRevision
	}
	if c.HubURL == "" {
		c.HubURL = DefaultHubURL
	}
	if c.InferenceURL == "" {
		c.InferenceURL = DefaultInferenceURL
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	if c.ONNXFile == "" {
		c.ONNXFile = DefaultONNXFile
	}
	if c.LlamaCtx <= 0 {
		c.LlamaCtx = DefaultLlamaCtx
	}
	if c.APITitle == "" {
		c.APITitle = DefaultAPITitle
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Cache == "" {
		c.Cache = CacheOff
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = Duration(DefaultCacheTTL)
	}
	if c.RedisAddr == "" {
		c.RedisAddr = DefaultRedisAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	return c
}

// ApplyEnv overlays environment variables on top of cfg. getenv is usually os.Getenv.
func (c Config) ApplyEnv(getenv func(string) string) Config {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("MODEL_NAME", &c.ModelName)
	str("HF_TOKEN", &c.HFToken)
	str("GEMMAD_ADDR", &c.Addr)
	str("GEMMAD_GRPC_ADDR", &c.GRPCAddr)
	str("GEMMAD_BACKEND", &c.Backend)
	str("GEMMAD_CACHE_DIR", &c.CacheDir)
	str("GEMMAD_HUB_URL", &c.HubURL)
	str("GEMMAD_INFERENCE_URL", &c.InferenceURL)
	str("GEMMAD_LOG_LEVEL", &c.LogLevel)
	str("GEMMAD_CACHE", &c.Cache)
	str("REDIS_ADDR", &c.RedisAddr)
	str("REDIS_PASSWORD", &c.RedisPassword)
	if v := splitCSV(getenv("GEMMAD_CORS_ORIGINS")); len(v) > 0 {
		c.CORSEnabled = true
		c.CORSOrigins = v
	}
	if v := getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	return c
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports configuration values that cannot be served.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendRemote, BackendONNX, BackendLlama:
	default:
		return fmt.Errorf("unknown backend %q (want remote|onnx|llama)", c.Backend)
	}
	switch c.Cache {
	case CacheOff, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown cache %q (want off|memory|redis)", c.Cache)
	}
	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("model name is empty")
	}
	return nil
}
