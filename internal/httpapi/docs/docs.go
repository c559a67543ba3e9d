// Package docs holds the Swagger spec for the diagnostics API, registered
// with swag. Regenerate with `swag init -g cmd/workerd/docs.go -o internal/httpapi/docs`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "workerd maintainers"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/device": {
            "get": {
                "description": "Result of the one-shot device probe, including the recommended backend.",
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Device capabilities",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/device.Capabilities"}}
                }
            }
        },
        "/models": {
            "get": {
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Discovered model assets",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}
                }
            }
        },
        "/reap": {
            "post": {
                "description": "Ignores the pressure and interval conditions; the idle timeout still applies.",
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Evict idle workers now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ReapResponse"}}
                }
            }
        },
        "/reports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Latest execution report per model",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ReportsResponse"}}
                }
            }
        },
        "/reports/{model}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Latest execution report for one model",
                "parameters": [
                    {"type": "string", "description": "Model id", "name": "model", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ExecutionReport"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["diagnostics"],
                "summary": "Worker pool resource usage",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ResourceStats"}}
                }
            }
        }
    },
    "definitions": {
        "device.Capabilities": {
            "type": "object",
            "properties": {
                "platform": {"type": "string"},
                "mobile": {"type": "boolean"},
                "cpu_brand": {"type": "string"},
                "logical_cores": {"type": "integer"},
                "cpu_features": {"type": "array", "items": {"type": "string"}},
                "has_cpu_optimized": {"type": "boolean"},
                "has_accelerator": {"type": "boolean"},
                "accelerator_vendor": {"type": "string"},
                "accelerator_name": {"type": "string"},
                "has_vendor_path": {"type": "boolean"},
                "vendor_path": {"type": "string"},
                "has_native_runtime": {"type": "boolean"},
                "native_runtime": {"type": "string"},
                "best_backend": {"type": "string"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer", "example": 404},
                "error": {"type": "string", "example": "not found"}
            }
        },
        "types.LayerStat": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "encoder.block3"},
                "duration_ms": {"type": "number", "example": 1.25},
                "output_bytes": {"type": "integer", "example": 4194304}
            }
        },
        "types.ExecutionReport": {
            "type": "object",
            "properties": {
                "model_id": {"type": "string", "example": "midas-small.onnx"},
                "worker_id": {"type": "string"},
                "backend": {"type": "string", "example": "gpu_vendor"},
                "preprocess_ms": {"type": "number"},
                "inference_ms": {"type": "number"},
                "postprocess_ms": {"type": "number"},
                "total_ms": {"type": "number"},
                "success": {"type": "boolean"},
                "error": {"type": "string"},
                "layer_stats": {"type": "array", "items": {"$ref": "#/definitions/types.LayerStat"}},
                "timestamp": {"type": "string"}
            }
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "midas-small.onnx"},
                "name": {"type": "string"},
                "path": {"type": "string"},
                "format": {"type": "string", "example": "onnx"},
                "type": {"type": "string", "example": "depth"},
                "size_bytes": {"type": "integer"},
                "requires_acceleration": {"type": "boolean"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}
            }
        },
        "types.ReapResponse": {
            "type": "object",
            "properties": {
                "evicted": {"type": "integer", "example": 2}
            }
        },
        "types.ReportsResponse": {
            "type": "object",
            "properties": {
                "reports": {"type": "object", "additionalProperties": {"$ref": "#/definitions/types.ExecutionReport"}}
            }
        },
        "types.WorkerStat": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "model_id": {"type": "string"},
                "model_type": {"type": "string"},
                "backend": {"type": "string"},
                "in_use": {"type": "boolean"},
                "specialized": {"type": "boolean"},
                "est_memory_mb": {"type": "integer"},
                "last_used_unix": {"type": "integer"},
                "executions": {"type": "integer"}
            }
        },
        "types.ResourceStats": {
            "type": "object",
            "properties": {
                "active_workers": {"type": "integer"},
                "in_use_workers": {"type": "integer"},
                "total_memory_mb": {"type": "integer"},
                "max_workers": {"type": "integer"},
                "max_memory_mb": {"type": "integer"},
                "over_budget": {"type": "boolean"},
                "evictions_total": {"type": "integer"},
                "last_reap_unix": {"type": "integer"},
                "workers": {"type": "array", "items": {"$ref": "#/definitions/types.WorkerStat"}}
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
	Title:            "workerd diagnostics API",
	Description:      "Read-mostly diagnostics for the inference worker manager.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
