package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"casevault/internal/http/middleware"
	"casevault/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay thin; lifecycle rules live in the service.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, production bool) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Every document route runs behind the gateway-auth check; the owner id
	// is established before any storage or metadata access.
	docs := app.Group("/documents", middleware.Auth())
	docs.Get("/", ListDocuments(docSvc, production))
	docs.Post("/", CreateDocument(docSvc, production))
	docs.Get("/:id", GetDocument(docSvc, production))
	docs.Put("/:id", UpdateDocument(docSvc, production))
	docs.Delete("/:id", DeleteDocument(docSvc, production))
	docs.Get("/:id/download", DownloadDocument(docSvc, production))
}
