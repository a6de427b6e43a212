// Package docs registra el documento OpenAPI que sirve /swagger/.
// Las operaciones se describen en los comentarios @Router de cada handler.
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
        "/register": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["identity"],
                "summary": "Registro con confirmación por email",
                "responses": {"202": {"description": "Accepted"}, "400": {"description": "Bad Request"}}
            }
        },
        "/confirm/{token}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["identity"],
                "summary": "Confirma el email y abre sesión",
                "parameters": [{"type": "string", "name": "token", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}}
            }
        },
        "/login": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["identity"],
                "summary": "Inicio de sesión",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "429": {"description": "Too Many Requests"}}
            }
        },
        "/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["identity"],
                "summary": "Cierra la sesión",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/restore_password": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["identity"],
                "summary": "Envía el link para restablecer el password",
                "responses": {"202": {"description": "Accepted"}, "404": {"description": "Not Found"}}
            }
        },
        "/reset_password/{token}": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["identity"],
                "summary": "Restablece el password",
                "parameters": [{"type": "string", "name": "token", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pets"],
                "summary": "Mascotas del usuario",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/new_pet": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["pets"],
                "summary": "Alta de mascota",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/pets/{petID}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["pets"],
                "summary": "Perfil de la mascota",
                "parameters": [{"type": "string", "name": "petID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/delete_pet/{petID}": {
            "post": {
                "produces": ["application/json"],
                "tags": ["pets"],
                "summary": "Borra la mascota con sus registros y fotos",
                "parameters": [{"type": "string", "name": "petID", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}
            }
        },
        "/upload_photo/{petID}": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["photos"],
                "summary": "Sube una foto a la galería",
                "parameters": [{"type": "string", "name": "petID", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "413": {"description": "Request Entity Too Large"}}
            }
        },
        "/new_entry/{petID}": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["journal"],
                "summary": "Nueva entrada del diario",
                "parameters": [{"type": "string", "name": "petID", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/add/{type}/{petID}": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["trackers"],
                "summary": "Agregar registro a un tracker",
                "parameters": [
                    {"type": "string", "name": "type", "in": "path", "required": true},
                    {"type": "string", "name": "petID", "in": "path", "required": true}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}
            }
        },
        "/{petID}/weight_graph": {
            "get": {
                "produces": ["application/json"],
                "tags": ["trackers"],
                "summary": "Gráfico mensual de peso",
                "parameters": [
                    {"type": "string", "name": "petID", "in": "path", "required": true},
                    {"type": "integer", "name": "month", "in": "query"},
                    {"type": "integer", "name": "year", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/pets/{petID}/grants": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["grants"],
                "summary": "Comparte la mascota con otro usuario",
                "parameters": [{"type": "string", "name": "petID", "in": "path", "required": true}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "403": {"description": "Forbidden"}}
            }
        }
    }
}`

// SwaggerInfo guarda los datos exportados del documento.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "PetPal API",
	Description:      "Mascotas, diario, fotos y trackers de cuidado con acceso delegado.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
