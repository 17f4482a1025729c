package handlers

import (
	"github.com/wikimedia/klaxon/apis/admin"
	"github.com/wikimedia/klaxon/apis/health"
	"github.com/wikimedia/klaxon/apis/incidents"
	"github.com/wikimedia/klaxon/apis/pages"
	"github.com/wikimedia/klaxon/internal/version"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all HTTP routes for the Klaxon server.
// It registers the public incident feed, the identity-protected paging and
// admin endpoints, and the health check using the API machinery pattern.
// This function should be called during server initialization.
func SetupRoutes(app *fiber.App, identity fiber.Handler,
	incidentsHandler *incidents.Handler,
	pagesHandler *pages.Handler,
	adminHandler *admin.Handler) {
	// Register all APIs here - just add one line per API
	health.RegisterRoutes(app)
	incidents.RegisterRoutes(app, incidentsHandler)
	pages.RegisterRoutes(app, pagesHandler, identity)
	admin.RegisterRoutes(app, adminHandler, identity)

	// Root endpoint
	app.Get("/", RootHandler)
}

// RootHandler handles requests to the root endpoint ("/").
// It returns basic server information including name, version, and available API endpoints.
func RootHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Klaxon",
		"version": version.GetShortVersion(),
		"docs":    "/api/v1/health",
	})
}
