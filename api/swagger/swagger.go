package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Lesson move validation, room resolution and versioned commits for the weekly timetable",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetable", "description": "Validation over caller-supplied snapshots"},
        {"name": "Schedules", "description": "Stored, versioned schedules"},
        {"name": "Drag", "description": "Per-client drag sessions"}
    ],
    "paths": {
        "/timetable/check-move": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Validate every slot of the week for a lesson move",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CheckMoveRequest"}}
                ],
                "responses": {
                    "200": {"description": "30 verdicts in day-major order", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Malformed slot or assignment", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Lesson not at source slot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/move-lesson": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Apply a lesson move to a supplied snapshot",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveLessonRequest"}}
                ],
                "responses": {
                    "200": {"description": "Move result; conflicts are reported with success=false", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Stale schedule version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/rooms": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Rank rooms for a lesson at a target slot",
                "responses": {
                    "200": {"description": "Ranked room options", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Store a schedule snapshot with its catalogs",
                "responses": {
                    "201": {"description": "Created at version 1", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Snapshot already violates an invariant", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Get a stored schedule",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Snapshot with version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown schedule", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/check-move": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Validate a lesson move against a stored schedule",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Verdicts", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schedules/{id}/rooms": {
            "post": {
                "tags": ["Schedules"],
                "summary": "Rank rooms for a move on a stored schedule",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "Ranked room options", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schedules/{id}/moves": {
            "get": {
                "tags": ["Schedules"],
                "summary": "List committed moves, newest first",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "Move history", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Commit a move when expected_version matches",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "Move result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Stale schedule version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/schedules/{id}/audit": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Latest audit report, running one when none is stored",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "refresh", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "Audit report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Schedules"],
                "summary": "Run an audit now",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"201": {"description": "Audit report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schedules/{id}/export": {
            "get": {
                "tags": ["Schedules"],
                "summary": "Download the timetable grid",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "group", "in": "query", "type": "string"},
                    {"name": "teacher", "in": "query", "type": "string"}
                ],
                "responses": {"200": {"description": "Rendered file"}}
            }
        },
        "/schedules/{id}/drag-sessions/{client}": {
            "get": {
                "tags": ["Drag"],
                "summary": "Session state and verdicts",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "client", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "Session view", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/schedules/{id}/drag-sessions/{client}/start": {
            "post": {"tags": ["Drag"], "summary": "Pick up a lesson", "responses": {"200": {"description": "Session view"}}}
        },
        "/schedules/{id}/drag-sessions/{client}/hover": {
            "post": {"tags": ["Drag"], "summary": "Verdict for the slot under the pointer", "responses": {"200": {"description": "valid, invalid or unknown"}}}
        },
        "/schedules/{id}/drag-sessions/{client}/drop": {
            "post": {"tags": ["Drag"], "summary": "Drop on a target slot", "responses": {"200": {"description": "Awaiting confirmation"}, "409": {"description": "Target has conflicts"}}}
        },
        "/schedules/{id}/drag-sessions/{client}/confirm": {
            "post": {"tags": ["Drag"], "summary": "Commit the dropped move", "responses": {"200": {"description": "Move result"}, "409": {"description": "Stale schedule"}}}
        },
        "/schedules/{id}/drag-sessions/{client}/cancel": {
            "post": {"tags": ["Drag"], "summary": "Abandon the drag", "responses": {"204": {"description": "Cancelled"}}}
        }
    },
    "definitions": {
        "Slot": {
            "type": "object",
            "properties": {
                "day": {"type": "integer", "minimum": 0, "maximum": 4},
                "period": {"type": "integer", "minimum": 1, "maximum": 6}
            }
        },
        "Assignment": {
            "type": "object",
            "properties": {
                "lesson_id": {"type": "string"},
                "day": {"type": "integer"},
                "period": {"type": "integer"},
                "teacher_code": {"type": "string"},
                "teacher_name": {"type": "string"},
                "room": {"type": "string"},
                "student_group": {"type": "string"},
                "subject": {"type": "string"},
                "subject_id": {"type": "string"}
            }
        },
        "CheckMoveRequest": {
            "type": "object",
            "required": ["lesson_id"],
            "properties": {
                "lesson_id": {"type": "string"},
                "source_day": {"type": "integer"},
                "source_period": {"type": "integer"},
                "current_assignments": {"type": "array", "items": {"$ref": "#/definitions/Assignment"}},
                "policy": {"type": "string", "enum": ["move-one", "move-all-instances"]},
                "session_id": {"type": "string"}
            }
        },
        "MoveLessonRequest": {
            "type": "object",
            "required": ["lesson_id"],
            "properties": {
                "lesson_id": {"type": "string"},
                "source_day": {"type": "integer"},
                "source_period": {"type": "integer"},
                "target_day": {"type": "integer"},
                "target_period": {"type": "integer"},
                "current_assignments": {"type": "array", "items": {"$ref": "#/definitions/Assignment"}},
                "room": {"type": "string"},
                "schedule_version": {"type": "integer"},
                "policy": {"type": "string", "enum": ["move-one", "move-all-instances"]}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "retryable": {"type": "boolean"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
