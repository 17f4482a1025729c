// Package oncall resolves the currently scheduled responder set.
//
// Resolution is deliberately uncached: a stale on-call answer pages the
// wrong person, which is a correctness bug rather than a performance
// problem. Every paging attempt resolves fresh, and an unreachable or empty
// schedule fails the attempt instead of silently paging nobody.
package oncall

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrScheduleUnavailable is returned when the schedule source is unreachable
// or resolves to an empty rotation.
var ErrScheduleUnavailable = errors.New("on-call schedule unavailable")

// Set is a snapshot of who is on call right now.
type Set struct {
	// Names of the responders, deduplicated and sorted
	Names []string `json:"names"`

	// ResolvedAt is when this resolution was computed
	ResolvedAt time.Time `json:"resolved_at"`
}

// Source fetches the raw on-call usernames from the schedule system.
// *victorops.Client satisfies it.
type Source interface {
	FetchOnCall(ctx context.Context) ([]string, error)
}

// Resolver turns a schedule source into Set snapshots.
type Resolver struct {
	source Source
	clock  clock.Clock
}

// NewResolver creates a resolver over the given schedule source.
func NewResolver(source Source) *Resolver {
	return &Resolver{source: source, clock: clock.New()}
}

// NewResolverWithClock is like NewResolver with an injectable clock.
func NewResolverWithClock(source Source, clk clock.Clock) *Resolver {
	return &Resolver{source: source, clock: clk}
}

// Resolve returns the current on-call set. It fails closed: any source
// error, and an empty rotation, wrap ErrScheduleUnavailable.
func (r *Resolver) Resolve(ctx context.Context) (Set, error) {
	names, err := r.source.FetchOnCall(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("%w: %w", ErrScheduleUnavailable, err)
	}

	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	if len(unique) == 0 {
		return Set{}, fmt.Errorf("%w: schedule resolved to an empty rotation", ErrScheduleUnavailable)
	}
	sort.Strings(unique)

	return Set{Names: unique, ResolvedAt: r.clock.Now()}, nil
}
