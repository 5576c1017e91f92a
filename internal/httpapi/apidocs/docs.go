// Package apidocs registers the OpenAPI document served under /swagger/
// when the server is built with -tags=swagger.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {"name": "MIT", "url": "https://opensource.org/licenses/MIT"},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/reflect": {
            "post": {
                "tags": ["reflect"],
                "summary": "Reflect",
                "description": "Runs one reflection in the requested mode and returns the finished result.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ReflectRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ReflectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "415": {"description": "Unsupported Media Type", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/reflect/stream": {
            "post": {
                "tags": ["reflect"],
                "summary": "Reflect (streaming)",
                "description": "Streams reply tokens as NDJSON lines, then a final line with done=true and the result.",
                "consumes": ["application/json"],
                "produces": ["application/x-ndjson"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ReflectRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StreamLine"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/scroll/{n}": {
            "get": {
                "tags": ["reflect"],
                "summary": "Scroll quote",
                "description": "Quotes scroll n (1-13) in scroll mode.",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "n", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ReflectResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/encryption/{code}": {
            "get": {
                "tags": ["lore"],
                "summary": "Lore code lookup",
                "description": "Reports which lore mode a numeric code activates.",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "code", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.EncryptionResponse"}}}
            }
        },
        "/debug/format": {
            "post": {
                "tags": ["debug"],
                "summary": "Format dry run",
                "description": "Applies the reply cleaner for the requested mode to canned output. The model is not called.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ReflectRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.FormatPreviewResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/modes": {
            "get": {
                "tags": ["meta"],
                "summary": "List modes",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModesResponse"}}}
            }
        },
        "/status": {
            "get": {
                "tags": ["meta"],
                "summary": "Orchestrator status",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.ReflectRequest": {
            "type": "object",
            "required": ["mode", "user_text"],
            "properties": {
                "mode": {"type": "string", "example": "reflect"},
                "user_text": {"type": "string", "example": "Why do I feel so alone?"},
                "temperature": {"type": "number", "example": 0.7},
                "top_p": {"type": "number", "example": 0.95},
                "top_k": {"type": "integer", "example": 40},
                "max_tokens": {"type": "integer", "example": 300},
                "stop": {"type": "array", "items": {"type": "string"}},
                "encryption": {"type": "string", "example": "1635"}
            }
        },
        "types.Usage": {
            "type": "object",
            "properties": {
                "prompt_tokens": {"type": "integer"},
                "completion_tokens": {"type": "integer"},
                "total_tokens": {"type": "integer"}
            }
        },
        "types.ReflectResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "reply_text": {"type": "string", "example": "Loneliness is the space before the narrow gate."},
                "guiding_question": {"type": "string", "example": "What is your loneliness telling you?"},
                "mode_used": {"type": "string", "example": "reflect"},
                "usage": {"$ref": "#/definitions/types.Usage"},
                "scroll_number": {"type": "integer", "example": 3},
                "encryption_hash": {"type": "string", "example": "9F1C0A7B"},
                "duration_ms": {"type": "integer", "example": 2350}
            }
        },
        "types.StreamLine": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "done": {"type": "boolean"},
                "result": {"$ref": "#/definitions/types.ReflectResponse"},
                "error": {"$ref": "#/definitions/types.ErrorResponse"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "user_text is required"},
                "code": {"type": "integer", "example": 400}
            }
        },
        "types.EncryptionResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "9876"},
                "mode": {"type": "string", "example": "REVELATION_MODE"},
                "description": {"type": "string"},
                "valid": {"type": "boolean", "example": true}
            }
        },
        "types.FormatPreviewResponse": {
            "type": "object",
            "properties": {
                "mode": {"type": "string", "example": "reflect"},
                "user_text": {"type": "string"},
                "emits_guiding_question": {"type": "boolean"},
                "raw_reply": {"type": "string"},
                "formatted_reply": {"type": "string"},
                "guiding_question": {"type": "string"},
                "formatting_applied": {"type": "boolean"}
            }
        },
        "types.ModeInfo": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "temperature": {"type": "number"},
                "top_p": {"type": "number"},
                "max_tokens": {"type": "integer"},
                "emits_guiding_question": {"type": "boolean"}
            }
        },
        "types.ModesResponse": {
            "type": "object",
            "properties": {"modes": {"type": "array", "items": {"$ref": "#/definitions/types.ModeInfo"}}}
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "model": {"type": "string"},
                "error": {"type": "string"},
                "queue_len": {"type": "integer"},
                "inflight": {"type": "integer"},
                "max_queue_depth": {"type": "integer"},
                "generation_timeout_seconds": {"type": "integer"},
                "requests_total": {"type": "integer"},
                "failures_total": {"type": "integer"},
                "guiding_questions_total": {"type": "integer"},
                "session_resets_total": {"type": "integer"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"},
                "llama_built": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "mirrorpond API",
	Description:      "Reflection assistant over a local GGUF model.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
