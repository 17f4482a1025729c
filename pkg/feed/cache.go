package feed

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff"
	"golang.org/x/sync/singleflight"

	"github.com/wikimedia/klaxon/pkg/logger"
	"github.com/wikimedia/klaxon/pkg/victorops"
)

// Default cache behavior. VictorOps rate-limits its API, so the incident
// list is reused for a brief interval instead of re-fetched per request.
const (
	DefaultTTL            = 60 * time.Second
	DefaultRecencyWindow  = 60 * time.Minute
	DefaultBackoffInitial = 2 * time.Second
	DefaultBackoffMax     = 60 * time.Second
)

// Feed is a point-in-time snapshot of the recent-incidents list.
// If Err is set the Incidents still hold the last-known-good list;
// stale-but-available beats empty.
type Feed struct {
	// Incidents ordered most-recent-first by start time
	Incidents []victorops.Incident `json:"incidents"`

	// FetchedAt is when the snapshot was last successfully refreshed
	FetchedAt time.Time `json:"fetched_at"`

	// Err is the error from the most recent refresh attempt, if it failed
	Err error `json:"-"`
}

// Fetcher fetches the current incident list from the upstream alerting
// system. *victorops.Client satisfies it.
type Fetcher interface {
	FetchIncidents(ctx context.Context) ([]victorops.Incident, error)
}

// Options tunes cache behavior. Zero values take the defaults above.
type Options struct {
	// TTL is how long a snapshot is served before a background refresh
	TTL time.Duration

	// RecencyWindow drops incidents older than this from the feed.
	// Negative disables the filter.
	RecencyWindow time.Duration

	// BackoffInitial and BackoffMax bound the exponential backoff
	// applied between failed refresh attempts
	BackoffInitial time.Duration
	BackoffMax     time.Duration

	// Clock is injectable for tests
	Clock clock.Clock
}

// Cache holds the shared incident feed behind a single-writer refresh
// discipline: one refresh in flight at a time, concurrent requests coalesced
// onto it. Construct one per process and access the feed only through Get
// and Refresh.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	recency time.Duration
	clock   clock.Clock

	group singleflight.Group

	mu          sync.RWMutex
	snapshot    Feed
	hasData     bool
	forceStale  bool
	nextAttempt time.Time
	retry       *backoff.ExponentialBackOff
}

// New creates an incident cache in front of the given fetcher.
func New(fetcher Fetcher, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.RecencyWindow == 0 {
		opts.RecencyWindow = DefaultRecencyWindow
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = DefaultBackoffInitial
	}
	if opts.BackoffMax <= 0 {
		opts.BackoffMax = DefaultBackoffMax
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = opts.BackoffInitial
	retry.MaxInterval = opts.BackoffMax
	// Full jitter, never give up
	retry.RandomizationFactor = 1
	retry.MaxElapsedTime = 0
	retry.Reset()

	return &Cache{
		fetcher: fetcher,
		ttl:     opts.TTL,
		recency: opts.RecencyWindow,
		clock:   opts.Clock,
		retry:   retry,
	}
}

// Get returns the current feed snapshot. Once a snapshot exists it never
// blocks on the network: expired snapshots are served as-is while a refresh
// runs in the background. The very first call blocks on the initial fetch,
// since there is nothing stale to serve yet.
func (c *Cache) Get(ctx context.Context) Feed {
	c.mu.RLock()
	snap := c.snapshot
	hasData := c.hasData
	stale := c.forceStale
	next := c.nextAttempt
	c.mu.RUnlock()

	now := c.clock.Now()
	if !hasData {
		if now.Before(next) {
			// Upstream is failing and there is no good data yet;
			// don't hammer it, just report the error state.
			return snap
		}
		return c.refresh(ctx)
	}

	if (stale || now.Sub(snap.FetchedAt) >= c.ttl) && !now.Before(next) {
		// Refresh for future callers; detached from this request so a
		// disconnecting caller doesn't abandon it for other waiters.
		go c.refresh(context.WithoutCancel(ctx))
	}
	return snap
}

// Refresh forces a refresh and blocks until the in-flight fetch completes or
// fails, coalescing with any refresh already running. Used for the explicit
// manual-refresh action, so it ignores the failure backoff gate.
func (c *Cache) Refresh(ctx context.Context) Feed {
	return c.refresh(ctx)
}

// Invalidate marks the snapshot stale so the next Get triggers a refresh
// while still serving the current data. Called after a page is sent; the
// upstream API is only eventually consistent, so the new incident may still
// take a moment to appear.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.forceStale = true
	c.mu.Unlock()
}

func (c *Cache) refresh(ctx context.Context) Feed {
	v, _, _ := c.group.Do("refresh", func() (interface{}, error) {
		incidents, err := c.fetcher.FetchIncidents(ctx)
		now := c.clock.Now()

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			// Keep the last-known-good incidents, only record the
			// error and arm the backoff gate.
			c.snapshot.Err = err
			c.nextAttempt = now.Add(c.retry.NextBackOff())
			logger.Warnf("Incident feed refresh failed, serving stale data until %s: %v",
				c.nextAttempt.Format(time.RFC3339), err)
		} else {
			c.snapshot = Feed{
				Incidents: c.normalize(incidents, now),
				FetchedAt: now,
			}
			c.hasData = true
			c.forceStale = false
			c.retry.Reset()
			c.nextAttempt = time.Time{}
		}
		return c.snapshot, nil
	})
	return v.(Feed)
}

// normalize applies the recency window and orders most-recent-first.
func (c *Cache) normalize(incidents []victorops.Incident, now time.Time) []victorops.Incident {
	recent := make([]victorops.Incident, 0, len(incidents))
	for _, incident := range incidents {
		if c.recency > 0 && now.Sub(incident.StartedAt) >= c.recency {
			continue
		}
		recent = append(recent, incident)
	}
	sort.Slice(recent, func(i, j int) bool {
		return recent[i].StartedAt.After(recent[j].StartedAt)
	})
	return recent
}
