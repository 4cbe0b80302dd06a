package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ClassBridge Report Card API",
        "description": "Multi-tenant report card generation and ranking service",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Authentication"},
        {"name": "Report Cards", "description": "Report card generation and ranking"},
        {"name": "Report Exports", "description": "Asynchronous CSV/PDF exports"},
        {"name": "Assessments", "description": "Assessment definitions"},
        {"name": "Marks", "description": "Score entry"},
        {"name": "Grade Scale", "description": "Grade band configuration"},
        {"name": "Enrollments", "description": "Section membership"},
        {"name": "Attendance", "description": "Daily attendance"},
        {"name": "Students", "description": "Student roster"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {"200": {"description": "Ready"}, "503": {"description": "Degraded"}}
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshTokenRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{school}/api/v1/report-cards/sections/{id}": {
            "get": {
                "tags": ["Report Cards"],
                "summary": "Generate ranked report cards for a section",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "school", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "No published assessments or no active students"}
                }
            }
        },
        "/{school}/api/v1/report-cards/students/{id}": {
            "get": {
                "tags": ["Report Cards"],
                "summary": "Generate a single student report card",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "school", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "term", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found"},
                    "422": {"description": "No active enrollment, assessments, or marks"}
                }
            }
        },
        "/{school}/api/v1/report-exports": {
            "post": {
                "tags": ["Report Exports"],
                "summary": "Queue a section export",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "school", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/{school}/api/v1/report-exports/{id}": {
            "get": {
                "tags": ["Report Exports"],
                "summary": "Export job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "school", "in": "path", "required": true, "type": "string"},
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/report-exports/download/{token}": {
            "get": {
                "tags": ["Report Exports"],
                "summary": "Download a finished export",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/{school}/api/v1/grade-scale": {
            "get": {
                "tags": ["Grade Scale"],
                "summary": "Current grade scale",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "school", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Grade Scale"],
                "summary": "Replace the grade scale",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "school", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/GradeThresholdInput"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Overlapping or malformed bands"}
                }
            }
        },
        "/{school}/api/v1/marks/batch": {
            "post": {
                "tags": ["Marks"],
                "summary": "Record a batch of marks",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "school", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/MarkInput"}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshTokenRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "required": ["section_id", "format"],
            "properties": {
                "section_id": {"type": "string"},
                "term_label": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "pdf"]}
            }
        },
        "GradeThresholdInput": {
            "type": "object",
            "required": ["label"],
            "properties": {
                "label": {"type": "string"},
                "min_percentage": {"type": "number"},
                "max_percentage": {"type": "number"}
            }
        },
        "MarkInput": {
            "type": "object",
            "required": ["student_id", "assessment_id"],
            "properties": {
                "student_id": {"type": "string"},
                "assessment_id": {"type": "string"},
                "score": {"type": "number"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
