package pages

import (
	"context"
	"strings"
	"time"

	"github.com/wikimedia/klaxon/pkg/auth"
	"github.com/wikimedia/klaxon/pkg/paging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Notices shown to the requester. Delivery is asynchronous upstream, so a
// fresh page may lag the incident feed by a minute or two.
const (
	noticeSent = "Your page was sent. It may take a minute or two to show up in recent alerts."

	noticeDenied = "You are not authorized to page."
)

// Pager processes a page request to its terminal result.
// *paging.Dispatcher satisfies it.
type Pager interface {
	Dispatch(ctx context.Context, req paging.Request) paging.Result
}

// Handler handles page form and submission requests.
type Handler struct {
	pager Pager
}

// NewHandler creates a new paging API handler.
func NewHandler(pager Pager) *Handler {
	return &Handler{pager: pager}
}

// PageForm handles GET /protected/page_form.
// It returns the authenticated identity the form will attribute the page to.
func (h *Handler) PageForm(c *fiber.Ctx) error {
	id := auth.IdentityFromContext(c)
	return c.JSON(FormResponse{
		Username:       id.Username,
		Email:          id.Email,
		IdempotencyKey: uuid.NewString(),
	})
}

// SubmitPage handles POST /protected/submit_page.
// It validates the submission, dispatches it, and maps the terminal result
// onto an HTTP status: delivered and duplicate-suppressed render 200, a
// denied requester renders 403, and delivery failure renders 502.
func (h *Handler) SubmitPage(c *fiber.Ctx) error {
	var body SubmitRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "malformed request body")
	}

	body.Summary = strings.TrimSpace(body.Summary)
	if body.Summary == "" {
		return fiber.NewError(fiber.StatusBadRequest, "summary is required")
	}

	key := strings.TrimSpace(body.IdempotencyKey)
	if key == "" {
		// A submission without a key still gets one, so the recorded
		// result is retrievable; it just won't dedup anything.
		key = uuid.NewString()
	}

	req := paging.Request{
		Requester:           auth.IdentityFromContext(c),
		Summary:             body.Summary,
		Description:         strings.TrimSpace(body.Description),
		ReferenceIncidentID: strings.TrimSpace(body.ReferenceIncidentID),
		IdempotencyKey:      key,
		SubmittedAt:         time.Now().UTC(),
	}

	res := h.pager.Dispatch(c.UserContext(), req)

	switch res.Status {
	case paging.StatusDelivered:
		setFlash(c, noticeSent)
		return c.JSON(SubmitResponse{Notice: noticeSent, Result: res})

	case paging.StatusDuplicateSuppressed:
		notice := "Not paged: " + res.Reason
		setFlash(c, notice)
		return c.JSON(SubmitResponse{Notice: notice, Result: res})

	case paging.StatusDenied:
		return c.Status(fiber.StatusForbidden).JSON(SubmitResponse{
			Notice: noticeDenied,
			Result: res,
		})

	default:
		return c.Status(fiber.StatusBadGateway).JSON(SubmitResponse{
			Notice: "Paging failed: " + res.Reason,
			Result: res,
		})
	}
}

// Flash handles GET /flash.
// It pops the one-shot notice left by a prior submission; the notice is
// cleared as it is read.
func (h *Handler) Flash(c *fiber.Ctx) error {
	notice := popFlash(c)
	return c.JSON(FlashResponse{Notice: notice})
}
