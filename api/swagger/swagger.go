package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Hall Pass API",
        "description": "Multi-tenant hall pass admission and scheduling engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"},
        "KioskToken": {"type": "apiKey", "name": "X-Kiosk-Token", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Admin authentication"},
        {"name": "Kiosk", "description": "Scan and status surface for room kiosks"},
        {"name": "Queue", "description": "Waitlist management"},
        {"name": "Schedule", "description": "Availability rules"},
        {"name": "Sessions", "description": "Pass history and overrides"},
        {"name": "Settings", "description": "Per-tenant configuration"},
        {"name": "Roster", "description": "Student directory and bans"},
        {"name": "Stats", "description": "Dashboard and overdue controls"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Admin login",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/kiosk/scan": {
            "post": {
                "tags": ["Kiosk"],
                "summary": "Resolve a scan event",
                "security": [{"KioskToken": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "Scan outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/kiosk/status": {
            "get": {
                "tags": ["Kiosk"],
                "summary": "Poll room status",
                "security": [{"KioskToken": []}],
                "parameters": [
                    {"name": "student", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Status payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/stats": {
            "get": {
                "tags": ["Stats"],
                "summary": "Dashboard summary",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/overdue/ban-all": {
            "post": {
                "tags": ["Stats"],
                "summary": "Ban every currently overdue student",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get settings",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "patch": {
                "tags": ["Settings"],
                "summary": "Update settings",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SettingsUpdate"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/suspend": {
            "post": {
                "tags": ["Settings"],
                "summary": "Toggle manual suspension",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"suspended": {"type": "boolean"}}}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/schedules": {
            "get": {
                "tags": ["Schedule"],
                "summary": "List schedule rules",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Schedule"],
                "summary": "Create schedule rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRuleInput"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/schedules/{id}": {
            "put": {
                "tags": ["Schedule"],
                "summary": "Update schedule rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRuleInput"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Schedule"],
                "summary": "Delete schedule rule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/admin/availability": {
            "get": {
                "tags": ["Schedule"],
                "summary": "Evaluate current availability",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/queue": {
            "get": {
                "tags": ["Queue"],
                "summary": "List the waitlist",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/queue/order": {
            "put": {
                "tags": ["Queue"],
                "summary": "Reorder the waitlist",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"order": {"type": "array", "items": {"type": "string"}}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Stale order list"}
                }
            }
        },
        "/admin/queue/{studentRef}": {
            "delete": {
                "tags": ["Queue"],
                "summary": "Remove a student from the waitlist",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentRef", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Removed"}}
            }
        },
        "/admin/logs": {
            "get": {
                "tags": ["Sessions"],
                "summary": "List pass history",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Sessions"],
                "summary": "Purge ended sessions",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/logs/export": {
            "get": {
                "tags": ["Sessions"],
                "summary": "Export pass history",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File download"}}
            }
        },
        "/admin/sessions/{id}/end": {
            "post": {
                "tags": ["Sessions"],
                "summary": "Force-end a session",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already ended"}
                }
            }
        },
        "/admin/roster": {
            "get": {
                "tags": ["Roster"],
                "summary": "List the roster",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/admin/roster/{studentRef}/ban": {
            "post": {
                "tags": ["Roster"],
                "summary": "Ban or unban a student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "studentRef", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"banned": {"type": "boolean"}}}}
                ],
                "responses": {"204": {"description": "Updated"}}
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
        "ScanRequest": {
            "type": "object",
            "required": ["code"],
            "properties": {
                "code": {"type": "string", "description": "Opaque student reference from the scanned badge"}
            }
        },
        "ScheduleRuleInput": {
            "type": "object",
            "required": ["label", "start_time", "end_time", "start_date", "recurrence"],
            "properties": {
                "label": {"type": "string"},
                "start_time": {"type": "string", "example": "08:00"},
                "end_time": {"type": "string", "example": "15:00"},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "recurrence": {"type": "string", "enum": ["none", "weekdays", "weekly", "custom"]},
                "custom_days": {"type": "array", "items": {"type": "integer"}},
                "enabled": {"type": "boolean"}
            }
        },
        "SettingsUpdate": {
            "type": "object",
            "properties": {
                "capacity": {"type": "integer", "minimum": 1, "maximum": 50},
                "overdue_minutes": {"type": "integer", "minimum": 1, "maximum": 240},
                "enable_queue": {"type": "boolean"},
                "auto_promote_queue": {"type": "boolean"},
                "auto_ban_overdue": {"type": "boolean"},
                "schedule_enabled": {"type": "boolean"},
                "timezone": {"type": "string"},
                "allow_queue_while_suspended": {"type": "boolean"}
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
