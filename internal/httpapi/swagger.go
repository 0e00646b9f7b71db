package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// SwaggerInfo holds the exported OpenAPI document metadata.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "gemmad API",
	Description:      "HTTP API for text generation with a pretrained causal language model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the Swagger UI under /docs and the document at /docs/doc.json.
func MountSwagger(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/index.html", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))
}

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["info"],
                "summary": "API information",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.RootResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["info"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/model-info": {
            "get": {
                "produces": ["application/json"],
                "tags": ["info"],
                "summary": "Loaded model information",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelInfoResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/generate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generation"],
                "summary": "Generate text",
                "parameters": [
                    {
                        "description": "Generation request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.GenerateRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.GenerateResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.GenerateRequest": {
            "type": "object",
            "required": ["prompt"],
            "properties": {
                "prompt": {"type": "string", "example": "Artificial intelligence is"},
                "max_length": {"type": "integer", "default": 512, "example": 512},
                "temperature": {"type": "number", "default": 0.7, "example": 0.7},
                "top_p": {"type": "number", "default": 0.9, "example": 0.9},
                "do_sample": {"type": "boolean", "default": true, "example": true},
                "num_return_sequences": {"type": "integer", "default": 1, "example": 1}
            }
        },
        "types.GenerateResponse": {
            "type": "object",
            "properties": {
                "generated_text": {"type": "string"},
                "prompt": {"type": "string"},
                "model_name": {"type": "string", "example": "google/gemma-2-2b"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "model_loaded": {"type": "boolean", "example": true}
            }
        },
        "types.RootResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "model": {"type": "string"},
                "endpoints": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "types.ModelInfoResponse": {
            "type": "object",
            "properties": {
                "model_name": {"type": "string"},
                "model_type": {"type": "string", "example": "Gemma2ForCausalLM"},
                "tokenizer_type": {"type": "string", "example": "GemmaTokenizer"},
                "vocab_size": {"type": "integer", "example": 256000},
                "device": {"type": "string", "example": "cpu"},
                "dtype": {"type": "string", "example": "float32"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "detail": {"type": "string", "example": "Model not loaded"},
                "code": {"type": "integer", "example": 503}
            }
        }
    }
}`
