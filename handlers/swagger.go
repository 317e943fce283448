package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the OpenAPI endpoints of the back-office API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>tourcraft — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "tourcraft", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "parameters": {
      "collection": { "name": "collection", "in": "path", "required": true, "schema": { "type": "string", "enum": ["contacts","structures","lieux","artistes","dates","contrats","taches"] } },
      "id": { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } }
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/api/schemas": { "get": { "summary": "List entity schemas", "responses": { "200": { "description": "schemas" } } } },
    "/api/entities/{collection}": {
      "parameters": [ { "$ref": "#/components/parameters/collection" } ],
      "get": { "summary": "List entities; ?sort, ?limit and field equality filters", "responses": { "200": { "description": "entities" }, "404": { "description": "unknown collection" } } },
      "post": { "summary": "Create an entity", "responses": { "201": { "description": "created id" }, "422": { "description": "validation failed" } } }
    },
    "/api/entities/{collection}/{id}": {
      "parameters": [ { "$ref": "#/components/parameters/collection" }, { "$ref": "#/components/parameters/id" } ],
      "get": { "summary": "Get an entity", "responses": { "200": { "description": "entity" }, "404": { "description": "not found" } } },
      "put": { "summary": "Merge fields into an entity", "responses": { "200": { "description": "updated" }, "404": { "description": "not found" }, "422": { "description": "validation failed" } } },
      "delete": { "summary": "Delete an entity unless it is referenced", "responses": { "204": { "description": "deleted" }, "404": { "description": "not found" }, "409": { "description": "blocking relations" } } }
    },
    "/api/entities/{collection}/{id}/can-delete": {
      "parameters": [ { "$ref": "#/components/parameters/collection" }, { "$ref": "#/components/parameters/id" } ],
      "get": { "summary": "Check whether an entity can be deleted", "responses": { "200": { "description": "verdict with blockingRelations" } } }
    },
    "/api/search/{collection}": {
      "parameters": [ { "$ref": "#/components/parameters/collection" }, { "name": "q", "in": "query", "schema": { "type": "string" } } ],
      "get": { "summary": "Ranked search", "responses": { "200": { "description": "results" } } }
    },
    "/api/ws/search/{collection}": {
      "parameters": [ { "$ref": "#/components/parameters/collection" } ],
      "get": { "summary": "Debounced search websocket (input, select, clear)", "responses": { "101": { "description": "switching protocols" } } }
    },
    "/api/bookings/{id}/status": {
      "parameters": [ { "$ref": "#/components/parameters/id" } ],
      "post": { "summary": "Change booking status and evaluate relances", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"statut":{"type":"string"}}}}}}, "responses": { "200": { "description": "relance result" }, "422": { "description": "invalid status" } } }
    },
    "/api/bookings/{id}/relances": {
      "parameters": [ { "$ref": "#/components/parameters/id" } ],
      "get": { "summary": "List automatic relances", "responses": { "200": { "description": "taches" } } },
      "delete": { "summary": "Remove automatic relances", "responses": { "200": { "description": "removed count" } } }
    },
    "/api/contracts/{id}/document": {
      "parameters": [ { "$ref": "#/components/parameters/id" } ],
      "put": { "summary": "Upload the contract document (multipart field file)", "responses": { "200": { "description": "stored" } } },
      "get": { "summary": "Download the contract document", "responses": { "200": { "description": "document" }, "404": { "description": "no document" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "security": [], "responses": { "200": { "description": "metrics" } } } }
  }
}`
