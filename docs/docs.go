// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/main.go -o docs
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
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Регистрация пользователя",
                "parameters": [
                    {"description": "Данные пользователя", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.RegisterUserInput"}}
                ],
                "responses": {
                    "201": {"description": "Созданный пользователь", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Ошибка валидации", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Имя или email заняты", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Вход по имени пользователя или email",
                "parameters": [
                    {"description": "Учетные данные", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.LoginInput"}}
                ],
                "responses": {
                    "200": {"description": "Токен и пользователь", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Неверные учетные данные", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/tournaments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tournaments"],
                "summary": "Список турниров",
                "parameters": [
                    {"type": "integer", "description": "Game ID", "name": "game_id", "in": "query"},
                    {"type": "string", "description": "upcoming | live | completed | canceled", "name": "status", "in": "query"},
                    {"type": "integer", "description": "Лимит", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "Смещение", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/tournaments/{tournamentID}/register": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["participants"],
                "summary": "Зарегистрироваться на турнир",
                "parameters": [
                    {"type": "integer", "description": "Tournament ID", "name": "tournamentID", "in": "path", "required": true}
                ],
                "responses": {
                    "201": {"description": "Участник создан", "schema": {"type": "object", "additionalProperties": true}},
                    "402": {"description": "Нужна оплата взноса", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Уже зарегистрирован / турнир заполнен", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/matches/{matchID}/result": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Записать результат матча",
                "parameters": [
                    {"type": "integer", "description": "Match ID", "name": "matchID", "in": "path", "required": true},
                    {"description": "Результат", "name": "input", "in": "body", "required": true, "schema": {"$ref": "#/definitions/services.RecordResultInput"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Результат уже записан", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/leaderboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["leaderboard"],
                "summary": "Рейтинг игроков",
                "parameters": [
                    {"type": "string", "description": "Код страны или all", "name": "country", "in": "query"},
                    {"type": "integer", "description": "Лимит", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "services.RegisterUserInput": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "display_name": {"type": "string"},
                "country": {"type": "string"}
            }
        },
        "services.LoginInput": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "services.RecordResultInput": {
            "type": "object",
            "properties": {
                "winner_id": {"type": "integer"},
                "score": {"type": "string"},
                "player1_score": {"type": "integer"},
                "player2_score": {"type": "integer"}
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
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Esports Platform API",
	Description:      "Турниры, регистрация, матчи и рейтинг игроков.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
