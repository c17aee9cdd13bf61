// Package docs holds the OpenAPI document of the surveyflow API
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
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in as the survey owner",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/model.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/surveys": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "List the surveys of the owner's tenant",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "Create a survey",
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.SurveyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/handler.SurveyResponse"}},
                    "422": {"description": "Invalid question graph", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/surveys/validate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "Check a question graph without saving it",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/surveys/{surveyId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "Get a survey",
                "parameters": [{"type": "string", "name": "surveyId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.SurveyResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "Replace a survey",
                "parameters": [
                    {"type": "string", "name": "surveyId", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.SurveyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.SurveyResponse"}},
                    "422": {"description": "Invalid question graph", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "Delete a survey",
                "parameters": [{"type": "string", "name": "surveyId", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/surveys/{surveyId}/submissions": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "List the stored submissions of a survey",
                "parameters": [{"type": "string", "name": "surveyId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/surveys/{surveyId}/stats": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "Response funnel of a survey",
                "parameters": [{"type": "string", "name": "surveyId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SurveyStats"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["surveys"],
                "summary": "Reset the funnel counters of a survey",
                "parameters": [{"type": "string", "name": "surveyId", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/t/{tenantId}/surveys/{surveyId}/responses": {
            "post": {
                "tags": ["responses"],
                "summary": "Start a response session",
                "parameters": [
                    {"type": "string", "name": "tenantId", "in": "path", "required": true},
                    {"type": "string", "name": "surveyId", "in": "path", "required": true},
                    {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/service.StartRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.ResponseView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "Immediate submission failed, retry it", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/responses/{sessionId}": {
            "get": {
                "tags": ["responses"],
                "summary": "Read a response session",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ResponseView"}}}
            },
            "delete": {
                "tags": ["responses"],
                "summary": "Abandon a response session",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/responses/{sessionId}/contact": {
            "post": {
                "tags": ["responses"],
                "summary": "Submit contact information",
                "parameters": [
                    {"type": "string", "name": "sessionId", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.ContactRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ResponseView"}},
                    "400": {"description": "Missing or invalid fields", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/responses/{sessionId}/answers": {
            "post": {
                "tags": ["responses"],
                "summary": "Answer the current question",
                "parameters": [
                    {"type": "string", "name": "sessionId", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handler.AnswerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ResponseView"}},
                    "400": {"description": "Answer rejected", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Wrong step, busy or already submitted", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "502": {"description": "Submission failed, retry it", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/responses/{sessionId}/retry": {
            "post": {
                "tags": ["responses"],
                "summary": "Resend a failed submission",
                "parameters": [{"type": "string", "name": "sessionId", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ResponseView"}},
                    "502": {"description": "Submission failed again", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "object"}
            }
        },
        "handler.AnswerRequest": {
            "type": "object",
            "properties": {"answer": {"type": "string"}}
        },
        "handler.ContactRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "phone": {"type": "string"}
            }
        },
        "handler.SurveyRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "description": {"type": "string"},
                "contactInfo": {"$ref": "#/definitions/model.ContactSettings"},
                "questions": {"type": "array", "items": {"$ref": "#/definitions/model.Question"}},
                "visitorContext": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "handler.SurveyResponse": {
            "type": "object",
            "properties": {
                "survey": {"type": "object"},
                "warnings": {"type": "array", "items": {"type": "object"}}
            }
        },
        "model.ContactSettings": {
            "type": "object",
            "properties": {
                "name": {"$ref": "#/definitions/model.FieldSetting"},
                "email": {"$ref": "#/definitions/model.FieldSetting"},
                "phone": {"$ref": "#/definitions/model.FieldSetting"}
            }
        },
        "model.FieldSetting": {
            "type": "object",
            "properties": {
                "collect": {"type": "boolean"},
                "required": {"type": "boolean"}
            }
        },
        "model.LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "model.LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "ownerId": {"type": "string"},
                "tenantId": {"type": "string"}
            }
        },
        "model.Option": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "label": {"type": "string"},
                "nextQuestionId": {"type": "string"}
            }
        },
        "model.Question": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "questionText": {"type": "string"},
                "type": {"type": "string", "enum": ["multiple-choice", "text", "classifier", "finish"]},
                "options": {"type": "array", "items": {"$ref": "#/definitions/model.Option"}},
                "required": {"type": "boolean"},
                "order": {"type": "integer"},
                "nextQuestionId": {"type": "string"}
            }
        },
        "model.ResponseView": {
            "type": "object",
            "properties": {
                "sessionId": {"type": "string"},
                "step": {"type": "string", "enum": ["contact", "question", "done"]},
                "question": {"$ref": "#/definitions/model.Question"},
                "contact": {"$ref": "#/definitions/model.ContactSettings"},
                "progress": {"type": "integer"},
                "done": {"type": "boolean"},
                "retryable": {"type": "boolean"}
            }
        },
        "model.SurveyStats": {
            "type": "object",
            "properties": {
                "surveyId": {"type": "string"},
                "started": {"type": "integer"},
                "completed": {"type": "integer"},
                "completionRate": {"type": "number"},
                "questions": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "questionId": {"type": "string"},
                            "type": {"type": "string"},
                            "answered": {"type": "integer"},
                            "options": {"type": "object", "additionalProperties": {"type": "integer"}}
                        }
                    }
                },
                "exits": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "questionId": {"type": "string"},
                            "abandoned": {"type": "integer"}
                        }
                    }
                }
            }
        },
        "service.StartRequest": {
            "type": "object",
            "properties": {
                "visitorContext": {"type": "object", "additionalProperties": {"type": "string"}},
                "antiAbuse": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "surveyflow API",
	Description:      "Branching survey responses with classifier routing.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
