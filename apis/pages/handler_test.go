package pages

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/klaxon/pkg/auth"
	"github.com/wikimedia/klaxon/pkg/paging"
)

type fakePager struct {
	result  paging.Result
	request paging.Request
	calls   int
}

func (f *fakePager) Dispatch(_ context.Context, req paging.Request) paging.Result {
	f.calls++
	f.request = req
	return f.result
}

func newApp(pager *fakePager) *fiber.App {
	app := fiber.New()
	identity := auth.Middleware(auth.HeaderConfig{
		UserHeader:  "CAS-User",
		EmailHeader: "X-CAS-Mail",
		Require:     true,
	})
	RegisterRoutes(app, NewHandler(pager), identity)
	return app
}

func submitRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/protected/submit_page", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CAS-User", "alice")
	req.Header.Set("X-CAS-Mail", "alice@example.org")
	return req
}

func flashValue(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == flashCookie {
			value, err := url.QueryUnescape(cookie.Value)
			require.NoError(t, err)
			return value
		}
	}
	return ""
}

func TestPageForm(t *testing.T) {
	app := newApp(&fakePager{})

	req := httptest.NewRequest(http.MethodGet, "/protected/page_form", nil)
	req.Header.Set("CAS-User", "alice")
	req.Header.Set("X-CAS-Mail", "alice@example.org")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body FormResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "alice", body.Username)
	assert.Equal(t, "alice@example.org", body.Email)
	assert.NotEmpty(t, body.IdempotencyKey, "Every form render must carry a fresh idempotency key")
}

func TestSubmitPage_GeneratesKeyWhenAbsent(t *testing.T) {
	pager := &fakePager{result: paging.Result{Status: paging.StatusDelivered}}
	app := newApp(pager)

	_, err := app.Test(submitRequest(`{"summary": "site is down"}`))
	require.NoError(t, err)
	assert.NotEmpty(t, pager.request.IdempotencyKey,
		"A keyless submission still gets a generated key")
}

func TestPageForm_RequiresIdentity(t *testing.T) {
	app := newApp(&fakePager{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/protected/page_form", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSubmitPage_Delivered(t *testing.T) {
	pager := &fakePager{result: paging.Result{RequestID: "req-1", Status: paging.StatusDelivered}}
	app := newApp(pager)

	resp, err := app.Test(submitRequest(
		`{"summary": "site is down", "description": "details", "idempotency_key": "key-1"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, noticeSent, body.Notice)
	assert.Equal(t, paging.StatusDelivered, body.Result.Status)

	assert.Equal(t, noticeSent, flashValue(t, resp), "Delivery must leave a flash notice")

	require.Equal(t, 1, pager.calls)
	assert.Equal(t, "alice", pager.request.Requester.Username)
	assert.Equal(t, "site is down", pager.request.Summary)
	assert.Equal(t, "key-1", pager.request.IdempotencyKey)
	assert.False(t, pager.request.SubmittedAt.IsZero())
}

func TestSubmitPage_MissingSummary(t *testing.T) {
	pager := &fakePager{}
	app := newApp(pager)

	resp, err := app.Test(submitRequest(`{"summary": "   "}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, pager.calls, "An invalid submission must never reach the dispatcher")
}

func TestSubmitPage_Denied(t *testing.T) {
	pager := &fakePager{result: paging.Result{
		Status: paging.StatusDenied,
		Reason: auth.ReasonNotTrusted,
	}}
	app := newApp(pager)

	resp, err := app.Test(submitRequest(`{"summary": "site is down"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, flashValue(t, resp), "Denial must not leave a flash notice")
}

func TestSubmitPage_DuplicateSuppressed(t *testing.T) {
	pager := &fakePager{result: paging.Result{
		Status: paging.StatusDuplicateSuppressed,
		Reason: "incident 123 is already open upstream",
	}}
	app := newApp(pager)

	resp, err := app.Test(submitRequest(`{"summary": "site is down", "reference_incident_id": "123"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "Suppression is a successful, non-paging outcome")

	var body SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Notice, "Not paged")
	assert.Contains(t, body.Notice, "already open")
}

func TestSubmitPage_Failed(t *testing.T) {
	pager := &fakePager{result: paging.Result{
		Status: paging.StatusFailed,
		Reason: "all paging channels failed",
	}}
	app := newApp(pager)

	resp, err := app.Test(submitRequest(`{"summary": "site is down"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body SubmitResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Notice, "Paging failed")
}

func TestFlash(t *testing.T) {
	app := newApp(&fakePager{})

	req := httptest.NewRequest(http.MethodGet, "/flash", nil)
	req.AddCookie(&http.Cookie{Name: flashCookie, Value: url.QueryEscape("Your page was sent.")})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body FlashResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Your page was sent.", body.Notice)

	// Reading the notice clears the cookie.
	cleared := false
	for _, cookie := range resp.Cookies() {
		if cookie.Name == flashCookie {
			cleared = cookie.Value == "" || cookie.Expires.Unix() <= 0
		}
	}
	assert.True(t, cleared, "The flash notice must be one-shot")
}

func TestFlash_EmptyWithoutNotice(t *testing.T) {
	app := newApp(&fakePager{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/flash", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body FlashResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body.Notice)
}
