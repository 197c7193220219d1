// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/api/main.go -o internal/handler/http/docs
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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "paths": {
        "/attendance/status": {
            "get": {"tags": ["attendance"], "summary": "Current status of the caller", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/attendance/board": {
            "get": {"tags": ["attendance"], "summary": "Current status of every active employee", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}
        },
        "/attendance/employees/{employeeID}/status": {
            "get": {"tags": ["attendance"], "summary": "Current status of any employee in the caller's company",
                "parameters": [{"type": "string", "name": "employeeID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Employee not found"}}}
        },
        "/attendance/events": {
            "get": {"tags": ["attendance"], "summary": "Raw ledger of the caller",
                "parameters": [
                    {"type": "string", "name": "start_date", "in": "query"},
                    {"type": "string", "name": "end_date", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "422": {"description": "Validation failed"}}},
            "post": {"tags": ["attendance"], "summary": "Record a clock event for the caller",
                "consumes": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "Idempotency-Key", "in": "header"},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/attendance.RecordEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "Replayed"},
                    "201": {"description": "Created"},
                    "409": {"description": "INVALID_TRANSITION"},
                    "422": {"description": "Validation failed"}
                }}
        },
        "/attendance/events/{id}": {
            "patch": {"tags": ["attendance"], "summary": "Edit a ledger event (admin)",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Event not found"}, "422": {"description": "NO_CHANGES"}}},
            "delete": {"tags": ["attendance"], "summary": "Delete a ledger event (admin)",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Event not found"}}}
        },
        "/attendance/employees/{employeeID}/events": {
            "get": {"tags": ["attendance"], "summary": "Raw ledger of any employee",
                "parameters": [{"type": "string", "name": "employeeID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/attendance/cycles": {
            "get": {"tags": ["attendance"], "summary": "Work cycles of the caller",
                "parameters": [
                    {"type": "string", "name": "start_date", "in": "query"},
                    {"type": "string", "name": "end_date", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/attendance/employees/{employeeID}/cycles": {
            "get": {"tags": ["attendance"], "summary": "Work cycles of any employee",
                "parameters": [{"type": "string", "name": "employeeID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/corrections": {
            "get": {"tags": ["corrections"], "summary": "List correction requests",
                "parameters": [
                    {"type": "string", "name": "employee_id", "in": "query"},
                    {"type": "string", "name": "state", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["corrections"], "summary": "File a correction request",
                "responses": {"201": {"description": "Created"}, "422": {"description": "Validation failed"}}}
        },
        "/corrections/{id}": {
            "get": {"tags": ["corrections"], "summary": "Get a correction request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}}
        },
        "/corrections/{id}/resolve": {
            "post": {"tags": ["corrections"], "summary": "Approve or reject a correction request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "ALREADY_RESOLVED"}}}
        },
        "/corrections/{id}/approve": {
            "post": {"tags": ["corrections"], "summary": "Approve a correction request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "ALREADY_RESOLVED"}}}
        },
        "/corrections/{id}/reject": {
            "post": {"tags": ["corrections"], "summary": "Reject a correction request",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "ALREADY_RESOLVED"}}}
        },
        "/audit/events/{eventID}": {
            "get": {"tags": ["audit"], "summary": "Audit trail of one event, newest first",
                "parameters": [{"type": "string", "name": "eventID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}}
        },
        "/audit/employees/{employeeID}": {
            "get": {"tags": ["audit"], "summary": "Audit trail of one employee over local days",
                "parameters": [
                    {"type": "string", "name": "employeeID", "in": "path", "required": true},
                    {"type": "string", "name": "start_date", "in": "query", "required": true},
                    {"type": "string", "name": "end_date", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/audit/me": {
            "get": {"tags": ["audit"], "summary": "Audit trail of the caller's own ledger",
                "parameters": [
                    {"type": "string", "name": "start_date", "in": "query", "required": true},
                    {"type": "string", "name": "end_date", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}}
        },
        "/notifications/stream": {
            "get": {"tags": ["notifications"], "summary": "Live notifications over server-sent events",
                "produces": ["text/event-stream"],
                "parameters": [{"type": "string", "name": "token", "in": "query"}],
                "responses": {"200": {"description": "Event stream"}}}
        }
    },
    "definitions": {
        "attendance.RecordEventRequest": {
            "type": "object",
            "required": ["kind"],
            "properties": {
                "kind": {"type": "string", "enum": ["CLOCK_IN", "CLOCK_OUT", "PAUSE_START", "PAUSE_END"]},
                "latitude": {"type": "number"},
                "longitude": {"type": "number"},
                "observation": {"type": "string"},
                "justification": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Attendance Ledger API",
	Description:      "Clock events, work cycles, corrections and audit trail.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
