package pages

import (
	"github.com/wikimedia/klaxon/pkg/paging"
)

// FormResponse describes the page form for the authenticated caller.
// The front end renders the identity so the requester can see who the
// page will be attributed to.
type FormResponse struct {
	// Username of the authenticated caller
	Username string `json:"username"`

	// Email of the authenticated caller, if the SSO proxy supplied one
	Email string `json:"email,omitempty"`

	// IdempotencyKey is a fresh key for this form render; submitting it
	// back makes a double-POST of the same form harmless
	IdempotencyKey string `json:"idempotency_key"`
}

// SubmitRequest is the JSON body for POST /protected/submit_page.
type SubmitRequest struct {
	// Summary is the required one-line page title
	Summary string `json:"summary"`

	// Description is optional longer free-form text
	Description string `json:"description"`

	// ReferenceIncidentID optionally names an already-known incident;
	// an exact match against an open cached incident suppresses the page
	ReferenceIncidentID string `json:"reference_incident_id"`

	// IdempotencyKey deduplicates client-side retries of the same
	// submission; empty disables idempotency for this request
	IdempotencyKey string `json:"idempotency_key"`
}

// SubmitResponse is the JSON body returned for a page submission.
type SubmitResponse struct {
	// Notice is the human-readable outcome message, also stored as the
	// flash notice for the next page load
	Notice string `json:"notice"`

	// Result is the full terminal outcome of the request
	Result paging.Result `json:"result"`
}

// FlashResponse carries the one-shot notice from a prior submission.
type FlashResponse struct {
	Notice string `json:"notice"`
}
