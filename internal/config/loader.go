package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	GRPCAddr string `json:"grpc_addr" yaml:"grpc_addr" toml:"grpc_addr"`

	// Model selection and credentials. HFToken is normally supplied through HF_TOKEN.
	ModelName string `json:"model_name" yaml:"model_name" toml:"model_name"`
	Revision  string `json:"revision" yaml:"revision" toml:"revision"`
	HFToken   string `json:"hf_token" yaml:"hf_token" toml:"hf_token"`
	HubURL    string `json:"hub_url" yaml:"hub_url" toml:"hub_url"`
	CacheDir  string `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	Progress  bool   `json:"progress" yaml:"progress" toml:"progress"`

	// Backend is one of remote|onnx|llama.
	Backend      string `json:"backend" yaml:"backend" toml:"backend"`
	InferenceURL string `json:"inference_url" yaml:"inference_url" toml:"inference_url"`
	ONNXFile     string `json:"onnx_file" yaml:"onnx_file" toml:"onnx_file"`
	ONNXLibrary  string `json:"onnx_library" yaml:"onnx_library" toml:"onnx_library"`
	GGUFFile     string `json:"gguf_file" yaml:"gguf_file" toml:"gguf_file"`
	LlamaCtx     int    `json:"llama_ctx" yaml:"llama_ctx" toml:"llama_ctx"`
	LlamaThreads int    `json:"llama_threads" yaml:"llama_threads" toml:"llama_threads"`
	GPULayers    int    `json:"gpu_layers" yaml:"gpu_layers" toml:"gpu_layers"`

	// HTTP surface.
	APITitle        string   `json:"api_title" yaml:"api_title" toml:"api_title"`
	MaxBodyBytes    int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	GenerateTimeout Duration `json:"generate_timeout" yaml:"generate_timeout" toml:"generate_timeout"`
	CORSEnabled     bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins     []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	// Result cache: off|memory|redis.
	Cache         string   `json:"cache" yaml:"cache" toml:"cache"`
	CacheTTL      Duration `json:"cache_ttl" yaml:"cache_ttl" toml:"cache_ttl"`
	RedisAddr     string   `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string   `json:"redis_password" yaml:"redis_password" toml:"redis_password"`
	RedisDB       int      `json:"redis_db" yaml:"redis_db" toml:"redis_db"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Duration is a time.Duration that decodes from strings like "30s" in every
// supported config format.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) parse(s string) error {
	if s == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// UnmarshalText serves TOML and YAML scalars.
func (d *Duration) UnmarshalText(b []byte) error { return d.parse(string(b)) }

// MarshalText renders the duration in Go syntax.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var sec float64
	if err := json.Unmarshal(b, &sec); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(sec * float64(time.Second))
	return nil
}
