// Package docs registers the OpenAPI document for the drift bottle API
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
                "description": "Liveness check returning a static welcome message",
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Welcome message",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.WelcomeResponse"}}
                }
            }
        },
        "/bottles/": {
            "post": {
                "description": "Persist a new bottle with the next sequential id. It starts unpicked.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Bottles"],
                "summary": "Throw a bottle",
                "parameters": [
                    {
                        "description": "Bottle to throw",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/dto.CreateBottleRequest"}
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Bottle created",
                        "schema": {"$ref": "#/definitions/dto.BottleResponse"}
                    },
                    "400": {"description": "Validation error or invalid request", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Storage failure", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/bottles/pick/{sender_id}": {
            "post": {
                "description": "Claim one random unpicked bottle not thrown by sender_id. A bottle is handed out at most once.",
                "produces": ["application/json"],
                "tags": ["Bottles"],
                "summary": "Pick a random bottle",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Requester id, its own bottles are excluded",
                        "name": "sender_id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Bottle picked",
                        "schema": {"$ref": "#/definitions/dto.BottleResponse"}
                    },
                    "400": {"description": "Malformed sender_id", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "No bottles available", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Storage failure", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "503": {"description": "Lost every race to concurrent pickers, retry", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/bottles/counts/active": {
            "get": {
                "description": "Point-in-time number of bottles that have not been picked yet",
                "produces": ["application/json"],
                "tags": ["Bottles"],
                "summary": "Count unpicked bottles",
                "responses": {
                    "200": {
                        "description": "Active bottle count",
                        "schema": {"$ref": "#/definitions/dto.BottleCountResponse"}
                    },
                    "500": {"description": "Storage failure", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "dto.BottleCountResponse": {
            "type": "object",
            "properties": {
                "total_active_bottles": {"type": "integer"}
            }
        },
        "dto.BottleResponse": {
            "type": "object",
            "properties": {
                "bottle_id": {"type": "integer"},
                "content": {"type": "string"},
                "images": {"type": "array", "items": {"$ref": "#/definitions/dto.ImageDTO"}},
                "picked": {"type": "boolean"},
                "poke": {"type": "boolean"},
                "sender": {"type": "string"},
                "sender_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "dto.CreateBottleRequest": {
            "type": "object",
            "required": ["content", "poke", "sender", "sender_id"],
            "properties": {
                "content": {"type": "string"},
                "images": {"type": "array", "items": {"$ref": "#/definitions/dto.ImageDTO"}},
                "poke": {"type": "boolean"},
                "sender": {"type": "string", "maxLength": 255},
                "sender_id": {"type": "string", "maxLength": 255}
            }
        },
        "dto.ImageDTO": {
            "type": "object",
            "required": ["data", "type"],
            "properties": {
                "data": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "dto.WelcomeResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"}
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
	Title:            "Drift Bottle Core API",
	Description:      "Throw bottles into a shared sea, pick a random one thrown by someone else, and count what is still floating.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
