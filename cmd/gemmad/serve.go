package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gemmad/internal/config"
	"gemmad/internal/engine"
	"gemmad/internal/httpapi"
	"gemmad/internal/hub"
	"gemmad/internal/probe"
)

// serveOptions are the command-line overrides; they win over env and file.
type serveOptions struct {
	configPath string
	addr       string
	model      string
	backend    string
	grpcAddr   string
	logLevel   string
}

func (o *serveOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	f.StringVar(&o.addr, "addr", "", "HTTP listen address (default :8000)")
	f.StringVar(&o.model, "model", "", "Hugging Face model id (default MODEL_NAME or google/gemma-2-2b)")
	f.StringVar(&o.backend, "backend", "", "Backend: remote|onnx|llama")
	f.StringVar(&o.grpcAddr, "grpc-addr", "", "gRPC health listen address (disabled when empty)")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug|info|warn|error")
}

// resolveConfig applies file, env and flags in increasing precedence and
// fills in defaults.
func resolveConfig(o *serveOptions, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", o.configPath, err)
		}
	}
	cfg = cfg.ApplyEnv(getenv)
	set := func(v string, dst *string) {
		if v != "" {
			*dst = v
		}
	}
	set(o.addr, &cfg.Addr)
	set(o.model, &cfg.ModelName)
	set(o.backend, &cfg.Backend)
	set(o.grpcAddr, &cfg.GRPCAddr)
	set(o.logLevel, &cfg.LogLevel)
	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

// newLogger builds the process logger from config.
func newLogger(cfg config.Config, w io.Writer) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "gemmad").Logger()
}

// newResultCache returns nil when caching is off.
func newResultCache(ctx context.Context, cfg config.Config) (engine.ResultCache, error) {
	switch cfg.Cache {
	case config.CacheMemory:
		return engine.NewMemoryCache(cfg.CacheTTL.Std(), 10_000), nil
	case config.CacheRedis:
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return engine.NewRedisCache(pctx, engine.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL.Std(),
		})
	default:
		return nil, nil
	}
}

// buildEngine wires hub, backend loader and result cache into an Engine.
func buildEngine(ctx context.Context, cfg config.Config, log zerolog.Logger) (*engine.Engine, error) {
	var progress io.Writer
	if cfg.Progress {
		progress = os.Stderr
	}
	hc, err := hub.New(hub.Options{
		BaseURL:  cfg.HubURL,
		Token:    cfg.HFToken,
		CacheDir: cfg.CacheDir,
		Progress: progress,
		Logger:   log.With().Str("component", "hub").Logger(),
	})
	if err != nil {
		return nil, err
	}
	loader, err := engine.NewLoader(engine.BackendOptions{
		Kind:         cfg.Backend,
		ModelName:    cfg.ModelName,
		Revision:     cfg.Revision,
		Token:        cfg.HFToken,
		Hub:          hc,
		Logger:       log.With().Str("component", "backend").Logger(),
		Threads:      cfg.LlamaThreads,
		InferenceURL: cfg.InferenceURL,
		ONNXFile:     cfg.ONNXFile,
		ONNXLibrary:  cfg.ONNXLibrary,
		GGUFFile:     cfg.GGUFFile,
		LlamaCtx:     cfg.LlamaCtx,
		GPULayers:    cfg.GPULayers,
	})
	if err != nil {
		return nil, err
	}
	cache, err := newResultCache(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	return engine.New(engine.Config{
		ModelName: cfg.ModelName,
		Loader:    loader,
		Cache:     cache,
		Logger:    log.With().Str("component", "engine").Logger(),
	}), nil
}

// configureHTTP pushes config into the httpapi package settings.
func configureHTTP(ctx context.Context, cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetGenerateTimeout(cfg.GenerateTimeout.Std())
	httpapi.SetAPITitle(cfg.APITitle)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins,
		[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
		[]string{"Content-Type", "X-Log-Level"})
}

func runServe(cmd *cobra.Command, o *serveOptions) error {
	cfg, err := resolveConfig(o, os.Getenv)
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stderr)
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	eng, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Warn().Err(err).Msg("engine close")
		}
	}()
	configureHTTP(ctx, cfg, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(eng),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 3)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("model", cfg.ModelName).Str("backend", cfg.Backend).Msg("gemmad listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	var hp *probe.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return fmt.Errorf("grpc listen %s: %w", cfg.GRPCAddr, err)
		}
		hp = probe.New(log.With().Str("component", "probe").Logger())
		go func() {
			if err := hp.Serve(lis); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	// The model loads while the server already answers /health with 503.
	go func() {
		if err := eng.Load(ctx); err != nil {
			if ctx.Err() == nil {
				errCh <- fmt.Errorf("model load: %w", err)
			}
			return
		}
		if hp != nil {
			hp.SetServing(true)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		err = nil
	case err = <-errCh:
		log.Error().Err(err).Msg("fatal")
	}
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	if serr := srv.Shutdown(sctx); serr != nil {
		log.Warn().Err(serr).Msg("graceful shutdown error")
	}
	if hp != nil {
		hp.Stop()
	}
	return err
}
