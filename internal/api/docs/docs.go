// Package docs holds the Swagger spec of the status API in the layout swag init emits.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "description": "Get run id, version and capabilities",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "health"
                ],
                "summary": "Counter information",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.InfoResponse"
                        }
                    }
                }
            }
        },
        "/api/v1/status": {
            "get": {
                "description": "Get a snapshot of the running pipeline: state, frame index, active tracks and count",
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "status"
                ],
                "summary": "Pipeline status",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/models.PipelineStatus"
                        }
                    },
                    "503": {
                        "description": "Service Unavailable",
                        "schema": {
                            "$ref": "#/definitions/handlers.ErrorResponse"
                        }
                    }
                }
            }
        },
        "/health": {
            "get": {
                "description": "Check if the counter is healthy and responsive",
                "consumes": [
                    "application/json"
                ],
                "produces": [
                    "application/json"
                ],
                "tags": [
                    "health"
                ],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/handlers.HealthResponse"
                        }
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "description": "Frame, detection, track and crossing collectors in the Prometheus text format",
                "produces": [
                    "text/plain"
                ],
                "tags": [
                    "metrics"
                ],
                "summary": "Prometheus metrics",
                "responses": {
                    "200": {
                        "description": "Prometheus exposition",
                        "schema": {
                            "type": "string"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "string",
                    "example": "pipeline not started"
                }
            }
        },
        "handlers.HealthResponse": {
            "type": "object",
            "properties": {
                "run_id": {
                    "type": "string",
                    "example": "3f1c2a9e-5b7d-4e0a-9c61-0d2f8b4a7e15"
                },
                "status": {
                    "type": "string",
                    "example": "healthy"
                }
            }
        },
        "handlers.InfoResponse": {
            "type": "object",
            "properties": {
                "capabilities": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "run_id": {
                    "type": "string",
                    "example": "3f1c2a9e-5b7d-4e0a-9c61-0d2f8b4a7e15"
                },
                "status": {
                    "type": "string",
                    "example": "running"
                },
                "version": {
                    "type": "string",
                    "example": "1.0.0"
                }
            }
        },
        "models.PipelineState": {
            "type": "string",
            "enum": [
                "idle",
                "skipping",
                "processing",
                "done"
            ],
            "x-enum-varnames": [
                "PipelineStateIdle",
                "PipelineStateSkipping",
                "PipelineStateProcessing",
                "PipelineStateDone"
            ]
        },
        "models.PipelineStatus": {
            "type": "object",
            "properties": {
                "active_tracks": {
                    "type": "integer"
                },
                "count": {
                    "type": "integer"
                },
                "fps": {
                    "type": "number"
                },
                "frame_index": {
                    "type": "integer"
                },
                "frames_processed": {
                    "type": "integer"
                },
                "last_error": {
                    "type": "string"
                },
                "run_id": {
                    "type": "string"
                },
                "started_at": {
                    "type": "string"
                },
                "state": {
                    "$ref": "#/definitions/models.PipelineState"
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Kepler Counter API",
	Description:      "Status, health and metrics of a running line-crossing counter",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
