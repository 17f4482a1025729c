package admin

import (
	"github.com/wikimedia/klaxon/pkg/victorops"
)

// EscalateRequest is the JSON body for POST /protected/admin/escalate_unpaged.
type EscalateRequest struct {
	// PolicySlug is the escalation policy to reroute unpaged incidents to
	PolicySlug string `json:"policy_slug"`
}

// EscalateResponse reports which incidents were rerouted.
type EscalateResponse struct {
	// Escalated lists the incidents that were rerouted to the policy
	Escalated []victorops.Incident `json:"escalated"`

	// Count is len(Escalated), for convenience
	Count int `json:"count"`
}

// PolicyCheckResponse reports whether an escalation policy pages a human
// immediately on its first step.
type PolicyCheckResponse struct {
	// PolicySlug echoes the checked policy
	PolicySlug string `json:"policy_slug"`

	// PagesImmediately is true when the first step pages with no delay
	PagesImmediately bool `json:"pages_immediately"`
}
