// Package swagger holds the OpenAPI document for the SmartBid API.
// Regenerate with: swag init -g cmd/smartbid/main.go -o docs/swagger
package swagger

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
        "/api/analyze": {
            "post": {
                "description": "Forwards the body to the generative-AI endpoint and returns its JSON verbatim. Not metered.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Analysis"],
                "summary": "Relay analysis request",
                "responses": {
                    "200": {"description": "Provider response", "schema": {"type": "object", "additionalProperties": true}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/jsonapi.Document"}},
                    "500": {"description": "Relay failed or API key missing", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/audits": {
            "post": {
                "description": "Checks the trial gate, runs the model, stores the report and counts the audit.",
                "consumes": ["application/json"],
                "produces": ["application/vnd.api+json"],
                "tags": ["Audits"],
                "summary": "Run metered audit",
                "parameters": [
                    {"description": "Audit request", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.AuditRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/jsonapi.Document"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/jsonapi.Document"}},
                    "402": {"description": "Free trial exhausted", "schema": {"$ref": "#/definitions/jsonapi.Document"}},
                    "409": {"description": "Usage transaction conflict, audit not counted", "schema": {"$ref": "#/definitions/jsonapi.Document"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/jsonapi.Document"}},
                    "502": {"description": "Model call failed", "schema": {"$ref": "#/definitions/jsonapi.Document"}}
                }
            }
        },
        "/api/create-portal-session": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Billing"],
                "summary": "Create billing portal session",
                "parameters": [
                    {"description": "User", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.PortalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.PortalResponse"}},
                    "400": {"description": "Missing userId", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "404": {"description": "No subscription found", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "500": {"description": "Billing not configured or provider failure", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/api/reports": {
            "get": {
                "produces": ["application/vnd.api+json"],
                "tags": ["Reports"],
                "summary": "List reports",
                "parameters": [
                    {"type": "string", "description": "Owner login", "name": "owner", "in": "query", "required": true},
                    {"type": "integer", "description": "Maximum number of reports", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/jsonapi.Document"}}
                }
            }
        },
        "/api/reports/{id}": {
            "get": {
                "produces": ["application/vnd.api+json"],
                "tags": ["Reports"],
                "summary": "Get report",
                "parameters": [
                    {"type": "string", "description": "Report ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Owner login", "name": "owner", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/jsonapi.Document"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/jsonapi.Document"}}
                }
            },
            "delete": {
                "tags": ["Reports"],
                "summary": "Delete report",
                "parameters": [
                    {"type": "string", "description": "Report ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Owner login", "name": "owner", "in": "query", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/jsonapi.Document"}}
                }
            }
        },
        "/api/usage/{userID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Usage"],
                "summary": "Get usage snapshot",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/app.Snapshot"}}
                }
            }
        },
        "/api/usage/{userID}/live": {
            "get": {
                "description": "Websocket. Sends the snapshot, then one message per committed change.",
                "tags": ["Usage"],
                "summary": "Live usage feed",
                "parameters": [
                    {"type": "string", "description": "User ID", "name": "userID", "in": "path", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching protocols", "schema": {"$ref": "#/definitions/http.LiveMessage"}}
                }
            }
        },
        "/api/webhook": {
            "post": {
                "description": "Verifies the Stripe-Signature header and applies checkout and subscription events. Always 200 once verified.",
                "consumes": ["application/json"],
                "tags": ["Billing"],
                "summary": "Billing webhook",
                "parameters": [
                    {"type": "string", "description": "Webhook signature", "name": "Stripe-Signature", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "Acknowledged"},
                    "400": {"description": "Missing or invalid signature"},
                    "500": {"description": "Webhook secret not configured"}
                }
            }
        },
        "/health": {
            "get": {
                "description": "Returns OK if the service is running",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthResponse"}}}
            }
        },
        "/health/live": {
            "get": {
                "description": "Returns OK if the service is running",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Liveness check",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthResponse"}}}
            }
        },
        "/health/ready": {
            "get": {
                "description": "Pings the usage store",
                "produces": ["application/json"],
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/version": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Get service version",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/http.VersionResponse"}}}
            }
        }
    },
    "definitions": {
        "app.Snapshot": {
            "type": "object",
            "properties": {
                "usage": {"$ref": "#/definitions/usage.Record"},
                "decision": {"$ref": "#/definitions/entitlement.Decision"}
            }
        },
        "entitlement.Decision": {
            "type": "object",
            "properties": {
                "allowed": {"type": "boolean"},
                "used": {"type": "integer"},
                "limit": {"type": "integer"},
                "remaining": {"type": "integer"},
                "subscribed": {"type": "boolean"},
                "reason": {"type": "string", "enum": ["subscribed", "trial", "trial_exhausted"]}
            }
        },
        "usage.Record": {
            "type": "object",
            "properties": {
                "userId": {"type": "string"},
                "initiatorChecks": {"type": "integer"},
                "bidderChecks": {"type": "integer"},
                "isSubscribed": {"type": "boolean"},
                "billingCustomerId": {"type": "string"},
                "updatedAt": {"type": "string"},
                "version": {"type": "integer"}
            }
        },
        "http.AuditRequest": {
            "type": "object",
            "properties": {
                "userId": {"type": "string", "example": "vendor-42"},
                "role": {"type": "string", "example": "bidder"},
                "rfq": {"type": "string"},
                "bid": {"type": "string"},
                "request": {"type": "object"}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "billing not configured"}}
        },
        "http.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}, "error": {"type": "string"}}
        },
        "http.LiveMessage": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "example": "usage"},
                "usage": {"$ref": "#/definitions/usage.Record"},
                "decision": {"$ref": "#/definitions/entitlement.Decision"}
            }
        },
        "http.PortalRequest": {
            "type": "object",
            "properties": {"userId": {"type": "string", "example": "alice"}}
        },
        "http.PortalResponse": {
            "type": "object",
            "properties": {"url": {"type": "string", "example": "https://billing.stripe.com/p/session/test_123"}}
        },
        "http.VersionResponse": {
            "type": "object",
            "properties": {
                "version": {"type": "string", "example": "1.0.0"},
                "commit": {"type": "string", "example": "a1b2c3d"},
                "service": {"type": "string", "example": "smartbid"}
            }
        },
        "jsonapi.Document": {
            "type": "object",
            "properties": {
                "data": {},
                "errors": {"type": "array", "items": {"$ref": "#/definitions/jsonapi.Error"}},
                "meta": {"type": "object", "additionalProperties": true}
            }
        },
        "jsonapi.Error": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string"},
                "code": {"type": "string"},
                "title": {"type": "string"},
                "detail": {"type": "string"}
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
	Title:            "SmartBid Compliance API",
	Description:      "Bid-compliance auditing with trial metering and subscription gating.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
