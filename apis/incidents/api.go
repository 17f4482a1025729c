package incidents

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the incident feed API routes with the Fiber
// application. The feed endpoints are public; authorization applies only to
// paging.
func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/recent_incidents", handler.RecentIncidents)
	app.Post("/recent_incidents/refresh", handler.RefreshIncidents)
}
