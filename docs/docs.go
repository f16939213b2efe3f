// Package docs is generated by swag from the handler annotations.
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
		"/auth/register": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Register a user",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"description": "payload",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/auth.RegisterRequest"
						}
					}
				]
			}
		},
		"/auth/login": {
			"post": {
				"tags": [
					"auth"
				],
				"summary": "Log in",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"401": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"description": "payload",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/auth.LoginRequest"
						}
					}
				]
			}
		},
		"/auth/me": {
			"get": {
				"tags": [
					"auth"
				],
				"summary": "Current user",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/events": {
			"get": {
				"tags": [
					"events"
				],
				"summary": "List events",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				}
			}
		},
		"/events/{id}": {
			"get": {
				"tags": [
					"events"
				],
				"summary": "Get an event",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/events/{id}/seats": {
			"get": {
				"tags": [
					"seats"
				],
				"summary": "Seat map of an event",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/events/{id}/reservations": {
			"post": {
				"tags": [
					"reservations"
				],
				"summary": "Reserve a seat",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"202": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"503": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "payload",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/reservations.ReserveRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			},
			"delete": {
				"tags": [
					"reservations"
				],
				"summary": "Cancel my reservation",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/events/{id}/reservations/me": {
			"get": {
				"tags": [
					"reservations"
				],
				"summary": "My reservation for an event",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/events/{id}/waitlist/position": {
			"get": {
				"tags": [
					"reservations"
				],
				"summary": "My waitlist position",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/events/{id}/waitlist": {
			"delete": {
				"tags": [
					"reservations"
				],
				"summary": "Leave the waitlist",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/me/reservations": {
			"get": {
				"tags": [
					"reservations"
				],
				"summary": "My reservations",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/me/logs": {
			"get": {
				"tags": [
					"reservations"
				],
				"summary": "My activity history",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "integer",
						"name": "limit",
						"in": "query"
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/events": {
			"post": {
				"tags": [
					"admin"
				],
				"summary": "Create an event",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"400": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"409": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"description": "payload",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/events.CreateEventRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/events/{id}": {
			"put": {
				"tags": [
					"admin"
				],
				"summary": "Update an event",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"description": "payload",
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/events.UpdateEventRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/events/{id}/reservations": {
			"get": {
				"tags": [
					"admin"
				],
				"summary": "Reservations of an event",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					},
					"404": {
						"description": "StandardApiResponse envelope",
						"schema": {
							"$ref": "#/definitions/response.StandardApiResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"description": "Event ID",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		}
	},
	"definitions": {
		"response.StandardApiResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"status_code": {
					"type": "integer"
				},
				"message": {
					"type": "string"
				},
				"data": {},
				"errors": {}
			}
		},
		"auth.RegisterRequest": {
			"type": "object",
			"required": [
				"username",
				"password"
			],
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"auth.LoginRequest": {
			"type": "object",
			"required": [
				"username",
				"password"
			],
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"reservations.ReserveRequest": {
			"type": "object",
			"required": [
				"seat_number"
			],
			"properties": {
				"seat_number": {
					"type": "string",
					"maxLength": 8
				}
			}
		},
		"events.CreateEventRequest": {
			"type": "object",
			"required": [
				"name",
				"date",
				"capacity"
			],
			"properties": {
				"name": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"date": {
					"type": "string"
				},
				"capacity": {
					"type": "integer",
					"minimum": 1,
					"maximum": 234
				}
			}
		},
		"events.UpdateEventRequest": {
			"type": "object",
			"properties": {
				"name": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"date": {
					"type": "string"
				}
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
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ticketly API",
	Description:      "Seat reservation backend with waitlist promotion.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
