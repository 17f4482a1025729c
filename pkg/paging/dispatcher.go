// Package paging turns a human-submitted "wake up an SRE" request into a
// reliable, deduplicated, idempotent notification to the current on-call
// rotation.
//
// Each request moves through authorize -> dedup -> resolve -> deliver.
// Denial is terminal before any resolver or channel call, so unauthorized
// requests neither learn who is on call nor incur delivery cost. Channel
// deliveries are the system's entire reason for existing and every terminal
// outcome is audit-logged.
package paging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wikimedia/klaxon/pkg/auth"
	"github.com/wikimedia/klaxon/pkg/feed"
	"github.com/wikimedia/klaxon/pkg/logger"
	"github.com/wikimedia/klaxon/pkg/oncall"
)

// Delivery bounds. A stuck channel call is worse than a missed page, since
// the human will resubmit through the UI.
const (
	DefaultChannelTimeout = 10 * time.Second
	DefaultRetryDelay     = 2 * time.Second
)

// FeedReader is the read-only view of the incident cache the dispatcher
// consults for duplicate suppression.
type FeedReader interface {
	Get(ctx context.Context) feed.Feed
	Invalidate()
}

// OnCallResolver resolves the current responder set.
type OnCallResolver interface {
	Resolve(ctx context.Context) (oncall.Set, error)
}

// Authorizer decides whether an identity may page.
type Authorizer interface {
	Authorize(ctx context.Context, username string) auth.Decision
}

// DispatcherConfig assembles a Dispatcher's collaborators and tuning.
type DispatcherConfig struct {
	Gate     Authorizer
	Feed     FeedReader
	Resolver OnCallResolver
	Channels []Channel
	Store    Store

	// Announcers receive best-effort headline broadcasts (e.g. IRC/SAL)
	Announcers []Announcer

	// ChannelTimeout bounds each delivery attempt
	ChannelTimeout time.Duration

	// RetryDelay is the fixed delay before the single delivery retry
	RetryDelay time.Duration

	// Clock is injectable for tests
	Clock clock.Clock
}

// Dispatcher validates, deduplicates and delivers page requests.
// Request processing is independent per request; the only shared state it
// touches is the read-only feed snapshot and the idempotency store.
type Dispatcher struct {
	gate       Authorizer
	feed       FeedReader
	resolver   OnCallResolver
	channels   []Channel
	store      Store
	announcers []Announcer

	channelTimeout time.Duration
	retryDelay     time.Duration
	clock          clock.Clock
}

// NewDispatcher creates a paging dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = DefaultChannelTimeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore(0)
	}

	return &Dispatcher{
		gate:           cfg.Gate,
		feed:           cfg.Feed,
		resolver:       cfg.Resolver,
		channels:       cfg.Channels,
		store:          cfg.Store,
		announcers:     cfg.Announcers,
		channelTimeout: cfg.ChannelTimeout,
		retryDelay:     cfg.RetryDelay,
		clock:          cfg.Clock,
	}
}

// Dispatch processes one page request to its terminal Result.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = d.clock.Now()
	}

	// Authorizing. Denial must short-circuit before the resolver or any
	// channel is touched.
	decision := d.gate.Authorize(ctx, req.Requester.Username)
	if !decision.Allowed {
		return d.finish(req, Result{
			RequestID: req.ID,
			Status:    StatusDenied,
			Reason:    decision.Reason,
		}, false)
	}

	// Deduplicating: idempotency key first, then known-incident match.
	if req.IdempotencyKey != "" {
		if suppressed, res := d.checkIdempotency(ctx, req); suppressed {
			return d.finish(req, res, false)
		}
	}
	if req.ReferenceIncidentID != "" {
		snapshot := d.feed.Get(ctx)
		for _, incident := range snapshot.Incidents {
			if incident.ID == req.ReferenceIncidentID && incident.IsOpen() {
				return d.finish(req, Result{
					RequestID: req.ID,
					Status:    StatusDuplicateSuppressed,
					Reason:    fmt.Sprintf("incident %s is already open upstream", incident.ID),
				}, true)
			}
		}
	}

	// Resolving. An unreachable schedule fails the page; silently paging
	// an empty rotation would be a safety defect.
	onCall, err := d.resolver.Resolve(ctx)
	if err != nil {
		return d.finish(req, Result{
			RequestID: req.ID,
			Status:    StatusFailed,
			Reason:    err.Error(),
		}, true)
	}

	d.announce(ctx, req)

	// Delivering. Detached from the caller's context: once dispatch has
	// begun, a page completes or fails independently of the HTTP request
	// that triggered it.
	deliverCtx := context.WithoutCancel(ctx)
	outcomes := make(map[string]ChannelOutcome, len(d.channels))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, channel := range d.channels {
		wg.Add(1)
		go func(channel Channel) {
			defer wg.Done()
			outcome := d.deliver(deliverCtx, channel, req)
			mu.Lock()
			outcomes[channel.Name()] = outcome
			mu.Unlock()
		}(channel)
	}
	wg.Wait()

	delivered := false
	for _, outcome := range outcomes {
		if outcome.OK {
			delivered = true
			break
		}
	}

	res := Result{
		RequestID:      req.ID,
		Status:         StatusFailed,
		ChannelResults: outcomes,
		PagedOnCall:    &onCall,
	}
	if delivered {
		res.Status = StatusDelivered
		// The freshly created incident should show up in the feed on
		// the next read.
		d.feed.Invalidate()
	} else if len(d.channels) == 0 {
		res.Reason = "no paging channels configured"
	} else {
		res.Reason = "all paging channels failed"
	}
	return d.finish(req, res, true)
}

// checkIdempotency reserves the request's key. A key whose recorded outcome
// is failed may be retried; any other reuse is suppressed with no channel
// calls.
func (d *Dispatcher) checkIdempotency(ctx context.Context, req Request) (bool, Result) {
	fresh, err := d.store.Reserve(ctx, req.IdempotencyKey)
	if err != nil {
		// Paging matters more than strict dedup; a broken store must
		// not block a legitimate page.
		logger.Warnf("Idempotency store unavailable for request %s, proceeding without dedup: %v", req.ID, err)
		return false, Result{}
	}
	if fresh {
		return false, Result{}
	}

	prior, err := d.store.LookupResult(ctx, req.IdempotencyKey)
	if err == nil && prior != nil && prior.Status == StatusFailed {
		return false, Result{}
	}
	return true, Result{
		RequestID: req.ID,
		Status:    StatusDuplicateSuppressed,
		Reason:    "a page with this idempotency key was already dispatched",
	}
}

// deliver sends to one channel with a bounded timeout and at most one retry
// after a short fixed delay.
func (d *Dispatcher) deliver(ctx context.Context, channel Channel, req Request) ChannelOutcome {
	attempts := 0
	operation := func() error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, d.channelTimeout)
		defer cancel()
		return channel.Send(attemptCtx, req)
	}

	retry := backoff.WithMaxRetries(backoff.NewConstantBackOff(d.retryDelay), 1)
	err := backoff.Retry(operation, backoff.WithContext(retry, ctx))

	outcome := ChannelOutcome{OK: err == nil, Attempts: attempts}
	if err != nil {
		outcome.Error = err.Error()
		logger.Errorf("Page %s delivery via %s failed after %d attempt(s): %v", req.ID, channel.Name(), attempts, err)
	}
	return outcome
}

func (d *Dispatcher) announce(ctx context.Context, req Request) {
	for _, announcer := range d.announcers {
		if err := announcer.Announce(ctx, req.Headline()); err != nil {
			logger.Warnf("Announcement for page %s failed: %v", req.ID, err)
		}
	}
}

// finish records the result against the idempotency key when asked and
// audit-logs the terminal outcome.
func (d *Dispatcher) finish(req Request, res Result, record bool) Result {
	if record && req.IdempotencyKey != "" {
		if err := d.store.RecordResult(context.Background(), req.IdempotencyKey, res); err != nil {
			logger.Warnf("Failed to record result for page %s: %v", req.ID, err)
		}
	}

	fields := []zap.Field{
		zap.String("request_id", req.ID),
		zap.String("identity", req.Requester.String()),
		zap.String("status", string(res.Status)),
		zap.Time("submitted_at", req.SubmittedAt),
	}
	if res.Reason != "" {
		fields = append(fields, zap.String("reason", res.Reason))
	}
	for name, outcome := range res.ChannelResults {
		fields = append(fields, zap.Bool("channel_"+name+"_ok", outcome.OK))
	}
	logger.Info("Page request finished", fields...)
	return res
}
