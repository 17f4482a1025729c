// Package auth decides whether a caller identity may submit a page.
//
// The policy is an explicit trust list: staff plus enumerated trusted
// individuals, resolved from pluggable sources. The gate looks only at the
// identity, never at incident or on-call state, and it is consulted before
// any paging side effect.
package auth

import (
	"context"

	"github.com/wikimedia/klaxon/pkg/logger"
)

// Deny reasons surfaced to the requester.
const (
	ReasonAnonymous  = "anonymous requests may not page"
	ReasonNotTrusted = "identity is not on the trust list"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// Allow returns an allowing decision.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny returns a denying decision with the given reason.
func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// TrustSource answers whether an identity is trusted. Implementations may be
// a static list or a live group-directory query; the gate does not care.
type TrustSource interface {
	IsTrusted(ctx context.Context, username string) (bool, error)
}

// Gate is the authorization gate consulted before every page dispatch.
type Gate struct {
	sources []TrustSource
}

// NewGate creates a gate over the given trust sources. An identity is
// allowed if any source trusts it.
func NewGate(sources ...TrustSource) *Gate {
	return &Gate{sources: sources}
}

// Authorize decides whether the identity may page. A source error counts as
// "not trusted by that source" (fail closed) but does not short-circuit the
// remaining sources.
func (g *Gate) Authorize(ctx context.Context, username string) Decision {
	if username == "" {
		return Deny(ReasonAnonymous)
	}

	for _, source := range g.sources {
		trusted, err := source.IsTrusted(ctx, username)
		if err != nil {
			logger.Warnf("Trust source lookup failed for %q: %v", username, err)
			continue
		}
		if trusted {
			return Allow()
		}
	}
	return Deny(ReasonNotTrusted)
}
