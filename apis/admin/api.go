package admin

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the admin API routes with the Fiber application
// under the identity-protected group.
func RegisterRoutes(app *fiber.App, handler *Handler, identity fiber.Handler) {
	adminGroup := app.Group("/protected/admin", identity)
	adminGroup.Post("/escalate_unpaged", handler.EscalateUnpaged)
	adminGroup.Get("/policy_check/:slug", handler.PolicyCheck)
}
