package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gemmad/internal/engine"
	"gemmad/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Ready() bool
	ModelName() string
	Generate(ctx context.Context, req types.GenerateRequest) (engine.Generation, error)
	ModelInfo() (types.ModelInfoResponse, error)
}

// NewMux builds the HTTP API over svc.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Get("/", handleRoot(svc))
	r.Get("/health", handleHealth(svc))
	r.Post("/generate", handleGenerate(svc))
	r.Get("/model-info", handleModelInfo(svc))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)
	return r
}

// handleRoot godoc
// @Summary  API information
// @Tags     info
// @Produce  json
// @Success  200 {object} types.RootResponse
// @Router   / [get]
func handleRoot(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.RootResponse{
			Message: apiTitle,
			Model:   svc.ModelName(),
			Endpoints: map[string]string{
				"/generate":   "POST - Generate text",
				"/health":     "GET - Health check",
				"/model-info": "GET - Model information",
				"/docs":       "GET - API documentation",
			},
		})
	}
}

// handleHealth godoc
// @Summary  Health check
// @Tags     info
// @Produce  json
// @Success  200 {object} types.HealthResponse
// @Failure  503 {object} types.ErrorResponse
// @Router   /health [get]
func handleHealth(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.Ready() {
			writeJSONError(w, http.StatusServiceUnavailable, engine.ErrModelNotLoaded().Error())
			return
		}
		writeJSON(w, http.StatusOK, types.HealthResponse{Status: "healthy", ModelLoaded: true})
	}
}

// handleModelInfo godoc
// @Summary  Loaded model information
// @Tags     info
// @Produce  json
// @Success  200 {object} types.ModelInfoResponse
// @Failure  503 {object} types.ErrorResponse
// @Router   /model-info [get]
func handleModelInfo(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mi, err := svc.ModelInfo()
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, mi)
	}
}

// handleGenerate godoc
// @Summary  Generate text
// @Tags     generation
// @Accept   json
// @Produce  json
// @Param    request body types.GenerateRequest true "Generation request"
// @Success  200 {object} types.GenerateResponse
// @Failure  400 {object} types.ErrorResponse
// @Failure  415 {object} types.ErrorResponse
// @Failure  422 {object} types.ErrorResponse
// @Failure  500 {object} types.ErrorResponse
// @Failure  503 {object} types.ErrorResponse
// @Router   /generate [post]
func handleGenerate(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		req, err := decodeGenerateRequest(r.Body)
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}

		lvl := requestLogLevel(r)
		start := time.Now()
		requestEvent(r, lvl, LevelInfo).
			Int("prompt_chars", len(req.Prompt)).
			Int("max_length", req.MaxLength).
			Msg("generate start")
		requestEvent(r, lvl, LevelDebug).Str("prompt", req.Prompt).Msg("generate prompt")

		ctx, cancel := generationContext(r.Context())
		defer cancel()
		g, err := svc.Generate(ctx, req)
		if err != nil {
			// Client went away; nobody is left to read a response.
			if r.Context().Err() != nil {
				return
			}
			status := statusFor(err)
			at := LevelInfo
			if status >= http.StatusInternalServerError {
				at = LevelError
			}
			requestEvent(r, lvl, at).Int("status", status).Dur("dur", time.Since(start)).Err(err).Msg("generate end")
			writeJSONError(w, status, err.Error())
			return
		}
		w.Header().Set("X-Generation-ID", g.ID)
		if g.Cached {
			w.Header().Set("X-Cache", "hit")
		}
		requestEvent(r, lvl, LevelInfo).
			Int("status", http.StatusOK).
			Str("generation_id", g.ID).
			Bool("cached", g.Cached).
			Dur("dur", time.Since(start)).
			Msg("generate end")
		requestEvent(r, lvl, LevelDebug).Str("generation_id", g.ID).Str("generated_text", g.GeneratedText).Msg("generate output")
		writeJSON(w, http.StatusOK, types.GenerateResponse{
			GeneratedText: g.GeneratedText,
			Prompt:        g.Prompt,
			ModelName:     g.ModelName,
		})
	}
}
