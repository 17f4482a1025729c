package pages

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes registers the paging API routes with the Fiber application.
// The identity middleware runs on the /protected group; the flash endpoint
// stays public so the front end can poll it without credentials.
func RegisterRoutes(app *fiber.App, handler *Handler, identity fiber.Handler) {
	protected := app.Group("/protected", identity)
	protected.Get("/page_form", handler.PageForm)
	protected.Post("/submit_page", handler.SubmitPage)

	app.Get("/flash", handler.Flash)
}
