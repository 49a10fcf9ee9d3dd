// Package docs holds the swagger document served under /swagger.
// Regenerate with `swag init -g internal/api/server/server.go`.
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
        "/files/upload-file": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Upload an audio file",
                "parameters": [
                    {"type": "file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "name": "name", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/dto.FileResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/files": {
            "get": {
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "List file records",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ListFilesResponse"}}
                }
            }
        },
        "/files/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["files"],
                "summary": "Get a file record",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.FileResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            },
            "delete": {
                "tags": ["files"],
                "summary": "Delete a file record and its folder",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/files/{stage}/{id}": {
            "put": {
                "produces": ["application/json"],
                "tags": ["pipeline"],
                "summary": "Start a pipeline stage",
                "parameters": [
                    {"enum": ["speaker-diarization", "speaker-identification", "speech-recognition", "neural-translation", "format-conversion"], "type": "string", "name": "stage", "in": "path", "required": true},
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.FileResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/errors.APIError"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/files/process/{id}": {
            "put": {
                "tags": ["pipeline"],
                "summary": "Run every stage in order",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"202": {"description": "Accepted", "schema": {"$ref": "#/definitions/dto.FileResponse"}}}
            },
            "delete": {
                "tags": ["pipeline"],
                "summary": "Cancel the running stage",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/files/result/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["result"],
                "summary": "Get the assembled result",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ResultResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/files/{id}/publish": {
            "post": {
                "tags": ["download"],
                "summary": "Publish an export to object storage",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.PublishResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.APIError"}}
                }
            }
        },
        "/download/{id}": {
            "get": {
                "tags": ["download"],
                "summary": "Download the original upload",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/download/{id}/{filename}": {
            "get": {
                "tags": ["download"],
                "summary": "Download a converted export",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "dto.FileResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "filename": {"type": "string"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"},
                "status": {"type": "string"},
                "url": {"type": "string"},
                "stage": {"type": "string"},
                "cause": {"type": "string"}
            }
        },
        "dto.ListFilesResponse": {
            "type": "object",
            "properties": {
                "files": {"type": "array", "items": {"$ref": "#/definitions/dto.FileResponse"}},
                "total": {"type": "integer"},
                "offset": {"type": "integer"},
                "limit": {"type": "integer"}
            }
        },
        "dto.SegmentResponse": {
            "type": "object",
            "properties": {
                "speaker": {"type": "string"},
                "start": {"type": "integer"},
                "end": {"type": "integer"},
                "transcript": {"type": "string"},
                "language": {"type": "string"},
                "translated_text": {"type": "string"},
                "translation_error": {"type": "string"}
            }
        },
        "dto.ResultResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "totalSpeakers": {"type": "integer"},
                "segment": {"type": "array", "items": {"$ref": "#/definitions/dto.SegmentResponse"}}
            }
        },
        "dto.PublishResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "bucket": {"type": "string"},
                "objects": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "errors.APIError": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": {"type": "string"}},
                "request_id": {"type": "string"},
                "code": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Smart Audio API",
	Description:      "Speaker diarization, identification, recognition and translation of uploaded audio.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
