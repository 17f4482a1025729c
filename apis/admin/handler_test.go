package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/klaxon/pkg/auth"
	"github.com/wikimedia/klaxon/pkg/victorops"
)

type fakeEscalator struct {
	escalated  []victorops.Incident
	immediate  bool
	err        error
	policySlug string
	username   string
}

func (f *fakeEscalator) EscalateUnpaged(_ context.Context, policySlug, username string) ([]victorops.Incident, error) {
	f.policySlug = policySlug
	f.username = username
	return f.escalated, f.err
}

func (f *fakeEscalator) PolicyPagesImmediately(_ context.Context, policySlug string) (bool, error) {
	f.policySlug = policySlug
	return f.immediate, f.err
}

type fakeGate struct {
	decision auth.Decision
}

func (g *fakeGate) Authorize(_ context.Context, _ string) auth.Decision {
	return g.decision
}

func newApp(upstream *fakeEscalator, gate *fakeGate) *fiber.App {
	app := fiber.New()
	identity := auth.Middleware(auth.HeaderConfig{
		UserHeader:  "CAS-User",
		EmailHeader: "X-CAS-Mail",
		Require:     true,
	})
	RegisterRoutes(app, NewHandler(upstream, gate), identity)
	return app
}

func adminRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("CAS-User", "alice")
	return req
}

func TestEscalateUnpaged(t *testing.T) {
	upstream := &fakeEscalator{escalated: []victorops.Incident{{ID: "125", Title: "paging nobody"}}}
	app := newApp(upstream, &fakeGate{decision: auth.Allow()})

	resp, err := app.Test(adminRequest(http.MethodPost, "/protected/admin/escalate_unpaged",
		`{"policy_slug": "pol-fallback"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body EscalateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Escalated, 1)
	assert.Equal(t, "125", body.Escalated[0].ID)

	assert.Equal(t, "pol-fallback", upstream.policySlug)
	assert.Equal(t, "alice", upstream.username, "The reroute is attributed to the caller")
}

func TestEscalateUnpaged_NothingEscalatable(t *testing.T) {
	app := newApp(&fakeEscalator{}, &fakeGate{decision: auth.Allow()})

	resp, err := app.Test(adminRequest(http.MethodPost, "/protected/admin/escalate_unpaged",
		`{"policy_slug": "pol-fallback"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["escalated"]), "No escalations render as [], not null")
}

func TestEscalateUnpaged_Validation(t *testing.T) {
	upstream := &fakeEscalator{}
	app := newApp(upstream, &fakeGate{decision: auth.Allow()})

	resp, err := app.Test(adminRequest(http.MethodPost, "/protected/admin/escalate_unpaged",
		`{"policy_slug": ""}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, upstream.policySlug, "Validation failures must not reach the upstream")
}

func TestEscalateUnpaged_DeniedCaller(t *testing.T) {
	upstream := &fakeEscalator{}
	app := newApp(upstream, &fakeGate{decision: auth.Deny(auth.ReasonNotTrusted)})

	resp, err := app.Test(adminRequest(http.MethodPost, "/protected/admin/escalate_unpaged",
		`{"policy_slug": "pol-fallback"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, upstream.policySlug)
}

func TestEscalateUnpaged_UpstreamFailure(t *testing.T) {
	upstream := &fakeEscalator{err: errors.New("upstream down")}
	app := newApp(upstream, &fakeGate{decision: auth.Allow()})

	resp, err := app.Test(adminRequest(http.MethodPost, "/protected/admin/escalate_unpaged",
		`{"policy_slug": "pol-fallback"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestPolicyCheck(t *testing.T) {
	upstream := &fakeEscalator{immediate: true}
	app := newApp(upstream, &fakeGate{decision: auth.Allow()})

	resp, err := app.Test(adminRequest(http.MethodGet, "/protected/admin/policy_check/pol-sre", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body PolicyCheckResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "pol-sre", body.PolicySlug)
	assert.True(t, body.PagesImmediately)
	assert.Equal(t, "pol-sre", upstream.policySlug)
}

func TestPolicyCheck_DeniedCaller(t *testing.T) {
	upstream := &fakeEscalator{}
	app := newApp(upstream, &fakeGate{decision: auth.Deny(auth.ReasonNotTrusted)})

	resp, err := app.Test(adminRequest(http.MethodGet, "/protected/admin/policy_check/pol-sre", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, upstream.policySlug)
}
