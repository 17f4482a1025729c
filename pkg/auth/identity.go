package auth

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// identityLocal is the fiber locals key the middleware stores the caller
// identity under.
const identityLocal = "klaxon_identity"

// Identity is the authenticated caller as asserted by the SSO proxy in
// front of the application.
type Identity struct {
	// Username from the CAS user header
	Username string `json:"username"`

	// Email from the CAS mail header, if available
	Email string `json:"email,omitempty"`
}

// String renders the identity for headlines and audit logs,
// e.g. "jdoe (jdoe@example.org)".
func (id Identity) String() string {
	if id.Email != "" {
		return fmt.Sprintf("%s (%s)", id.Username, id.Email)
	}
	return id.Username
}

// HeaderConfig names the trusted proxy headers carrying the caller identity.
type HeaderConfig struct {
	// UserHeader carries the authenticated username (e.g. "CAS-User")
	UserHeader string

	// EmailHeader carries the authenticated email (e.g. "X-CAS-Mail")
	EmailHeader string

	// Require rejects requests missing the user header. Enabled in
	// production; disabled for local testing, where the username falls
	// back to "unknown".
	Require bool
}

// Middleware extracts the caller identity from the configured headers and
// stores it in the request locals. Authorization happens server-side on
// these routes; the front end treats them purely as links.
func Middleware(cfg HeaderConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username := c.Get(cfg.UserHeader)
		if username == "" {
			if cfg.Require {
				return fiber.NewError(fiber.StatusForbidden, "authentication required")
			}
			username = "unknown"
		}
		c.Locals(identityLocal, Identity{
			Username: username,
			Email:    c.Get(cfg.EmailHeader),
		})
		return c.Next()
	}
}

// IdentityFromContext returns the identity stored by Middleware.
func IdentityFromContext(c *fiber.Ctx) Identity {
	if id, ok := c.Locals(identityLocal).(Identity); ok {
		return id
	}
	return Identity{}
}
