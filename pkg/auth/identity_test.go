package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityApp(cfg HeaderConfig) *fiber.App {
	app := fiber.New()
	app.Get("/whoami", Middleware(cfg), func(c *fiber.Ctx) error {
		return c.JSON(IdentityFromContext(c))
	})
	return app
}

func TestMiddleware_ExtractsIdentity(t *testing.T) {
	app := identityApp(HeaderConfig{
		UserHeader:  "CAS-User",
		EmailHeader: "X-CAS-Mail",
		Require:     true,
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("CAS-User", "alice")
	req.Header.Set("X-CAS-Mail", "alice@example.org")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var id Identity
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&id))
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, "alice@example.org", id.Email)
}

func TestMiddleware_MissingHeaderRejectedWhenRequired(t *testing.T) {
	app := identityApp(HeaderConfig{
		UserHeader:  "CAS-User",
		EmailHeader: "X-CAS-Mail",
		Require:     true,
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMiddleware_MissingHeaderFallsBackWhenOptional(t *testing.T) {
	app := identityApp(HeaderConfig{
		UserHeader:  "CAS-User",
		EmailHeader: "X-CAS-Mail",
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var id Identity
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&id))
	assert.Equal(t, "unknown", id.Username)
}

func TestIdentityString(t *testing.T) {
	assert.Equal(t, "alice (alice@example.org)",
		Identity{Username: "alice", Email: "alice@example.org"}.String())
	assert.Equal(t, "alice", Identity{Username: "alice"}.String())
}
