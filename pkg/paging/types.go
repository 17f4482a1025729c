package paging

import (
	"fmt"
	"time"

	"github.com/wikimedia/klaxon/pkg/auth"
	"github.com/wikimedia/klaxon/pkg/oncall"
)

// Status is the terminal state of a page request.
type Status string

const (
	// StatusDelivered means at least one channel accepted the page
	StatusDelivered Status = "delivered"

	// StatusDuplicateSuppressed means the request matched an already
	// known incident or a previously dispatched idempotency key
	StatusDuplicateSuppressed Status = "duplicate-suppressed"

	// StatusDenied means the authorization gate rejected the requester
	StatusDenied Status = "denied"

	// StatusFailed means every configured channel failed, or the on-call
	// rotation could not be resolved
	StatusFailed Status = "failed"
)

// Request is a single human-submitted page. It is created at submission and
// never mutated; exactly one Result is produced for it.
type Request struct {
	// ID identifies this request in logs and audit trails
	ID string `json:"id"`

	// Requester is the authenticated identity submitting the page
	Requester auth.Identity `json:"requester"`

	// Summary is a one-line terse title; it appears in push notifications
	Summary string `json:"summary"`

	// Description is longer free-form text
	Description string `json:"description"`

	// ReferenceIncidentID optionally names an already-known incident the
	// requester is reporting. An exact match against an open cached
	// incident suppresses the page.
	ReferenceIncidentID string `json:"reference_incident_id,omitempty"`

	// IdempotencyKey deduplicates client-side retries of the same
	// submission. Empty disables idempotency for this request.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// SubmittedAt is when the request was received
	SubmittedAt time.Time `json:"submitted_at"`
}

// Headline renders the notification title sent to every channel.
func (r Request) Headline() string {
	return fmt.Sprintf("Manual #page by %s: %s", r.Requester.String(), r.Summary)
}

// ChannelOutcome records what happened on one delivery channel.
type ChannelOutcome struct {
	// OK reports whether the channel accepted the page
	OK bool `json:"ok"`

	// Error holds the final delivery error when OK is false
	Error string `json:"error,omitempty"`

	// Attempts is how many sends were made (1 or 2)
	Attempts int `json:"attempts"`
}

// Result is the terminal outcome of a page request.
type Result struct {
	// RequestID echoes the Request.ID this result belongs to
	RequestID string `json:"request_id"`

	// Status is the overall outcome
	Status Status `json:"status"`

	// Reason explains denied, suppressed and failed outcomes
	Reason string `json:"reason,omitempty"`

	// ChannelResults maps channel name to its delivery outcome
	ChannelResults map[string]ChannelOutcome `json:"channel_results,omitempty"`

	// PagedOnCall is the on-call snapshot the page was delivered to
	PagedOnCall *oncall.Set `json:"paged_on_call,omitempty"`
}

// Delivered reports whether at least one channel accepted the page.
func (r Result) Delivered() bool {
	return r.Status == StatusDelivered
}
