package pages

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
)

const flashCookie = "klaxon_flash"

// setFlash stores a one-shot notice in a cookie so the next page load can
// display it. The value is query-escaped; cookie values cannot carry spaces.
func setFlash(c *fiber.Ctx, notice string) {
	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(notice),
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// popFlash reads and clears the flash notice.
func popFlash(c *fiber.Ctx) string {
	raw := c.Cookies(flashCookie)
	if raw == "" {
		return ""
	}

	c.Cookie(&fiber.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	notice, err := url.QueryUnescape(raw)
	if err != nil {
		return ""
	}
	return notice
}
