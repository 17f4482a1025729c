package incidents

import (
	"context"

	"github.com/wikimedia/klaxon/apis/common"
	"github.com/wikimedia/klaxon/pkg/feed"
	"github.com/wikimedia/klaxon/pkg/victorops"

	"github.com/gofiber/fiber/v2"
)

// FeedSource provides incident feed snapshots. *feed.Cache satisfies it.
type FeedSource interface {
	Get(ctx context.Context) feed.Feed
	Refresh(ctx context.Context) feed.Feed
}

// Handler handles incident feed API requests.
type Handler struct {
	feed FeedSource
}

// NewHandler creates a new incident feed API handler.
func NewHandler(source FeedSource) *Handler {
	return &Handler{feed: source}
}

// RecentIncidents handles GET /recent_incidents.
// It serves the cached feed, refreshing it when stale. A stale snapshot
// with a refresh error still renders, with the error alongside it.
func (h *Handler) RecentIncidents(c *fiber.Ctx) error {
	return renderFeed(c, h.feed.Get(c.UserContext()))
}

// RefreshIncidents handles POST /recent_incidents/refresh.
// It forces a blocking upstream refresh regardless of snapshot age and
// renders the resulting feed.
func (h *Handler) RefreshIncidents(c *fiber.Ctx) error {
	return renderFeed(c, h.feed.Refresh(c.UserContext()))
}

func renderFeed(c *fiber.Ctx, snap feed.Feed) error {
	// No snapshot was ever fetched: nothing to serve stale.
	if snap.Err != nil && snap.FetchedAt.IsZero() {
		return c.Status(fiber.StatusBadGateway).JSON(common.ErrorResponse{
			Error:   true,
			Message: snap.Err.Error(),
		})
	}

	resp := FeedResponse{
		Incidents: snap.Incidents,
		FetchedAt: snap.FetchedAt,
	}
	if resp.Incidents == nil {
		resp.Incidents = []victorops.Incident{}
	}
	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}
	return c.JSON(resp)
}
