package admin

import (
	"context"
	"strings"

	"github.com/wikimedia/klaxon/pkg/auth"
	"github.com/wikimedia/klaxon/pkg/victorops"

	"github.com/gofiber/fiber/v2"
)

// Escalator covers the upstream admin operations. *victorops.Client
// satisfies it.
type Escalator interface {
	EscalateUnpaged(ctx context.Context, policySlug, username string) ([]victorops.Incident, error)
	PolicyPagesImmediately(ctx context.Context, policySlug string) (bool, error)
}

// Authorizer decides whether a username may use admin operations.
// *auth.Gate satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, username string) auth.Decision
}

// Handler handles admin API requests. Admin operations share the paging
// trust list; there is no separate admin role.
type Handler struct {
	upstream Escalator
	gate     Authorizer
}

// NewHandler creates a new admin API handler.
func NewHandler(upstream Escalator, gate Authorizer) *Handler {
	return &Handler{upstream: upstream, gate: gate}
}

// EscalateUnpaged handles POST /protected/admin/escalate_unpaged.
// It reroutes every open incident that has paged nobody to the given
// escalation policy, attributed to the caller.
func (h *Handler) EscalateUnpaged(c *fiber.Ctx) error {
	id := auth.IdentityFromContext(c)
	if decision := h.gate.Authorize(c.UserContext(), id.Username); !decision.Allowed {
		return fiber.NewError(fiber.StatusForbidden, decision.Reason)
	}

	var body EscalateRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}
	body.PolicySlug = strings.TrimSpace(body.PolicySlug)
	if body.PolicySlug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "policy_slug is required")
	}

	escalated, err := h.upstream.EscalateUnpaged(c.UserContext(), body.PolicySlug, id.Username)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	if escalated == nil {
		escalated = []victorops.Incident{}
	}

	return c.JSON(EscalateResponse{
		Escalated: escalated,
		Count:     len(escalated),
	})
}

// PolicyCheck handles GET /protected/admin/policy_check/:slug.
// It reports whether the policy's first step pages a human with no delay,
// which is what makes a policy safe to escalate to.
func (h *Handler) PolicyCheck(c *fiber.Ctx) error {
	id := auth.IdentityFromContext(c)
	if decision := h.gate.Authorize(c.UserContext(), id.Username); !decision.Allowed {
		return fiber.NewError(fiber.StatusForbidden, decision.Reason)
	}

	slug := strings.TrimSpace(c.Params("slug"))
	if slug == "" {
		return fiber.NewError(fiber.StatusBadRequest, "policy slug is required")
	}

	immediate, err := h.upstream.PolicyPagesImmediately(c.UserContext(), slug)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}

	return c.JSON(PolicyCheckResponse{
		PolicySlug:       slug,
		PagesImmediately: immediate,
	})
}
