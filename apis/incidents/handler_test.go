package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/klaxon/pkg/feed"
	"github.com/wikimedia/klaxon/pkg/victorops"
)

type fakeSource struct {
	snapshot  feed.Feed
	gets      int
	refreshes int
}

func (f *fakeSource) Get(_ context.Context) feed.Feed {
	f.gets++
	return f.snapshot
}

func (f *fakeSource) Refresh(_ context.Context) feed.Feed {
	f.refreshes++
	return f.snapshot
}

func newApp(source *fakeSource) *fiber.App {
	app := fiber.New()
	RegisterRoutes(app, NewHandler(source))
	return app
}

func TestRecentIncidents(t *testing.T) {
	fetchedAt := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	source := &fakeSource{snapshot: feed.Feed{
		Incidents: []victorops.Incident{
			{ID: "123", Title: "db1001 is down", Status: victorops.StatusOpen},
		},
		FetchedAt: fetchedAt,
	}}
	app := newApp(source)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/recent_incidents", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body FeedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Incidents, 1)
	assert.Equal(t, "123", body.Incidents[0].ID)
	assert.True(t, body.FetchedAt.Equal(fetchedAt))
	assert.Empty(t, body.Error)

	assert.Equal(t, 1, source.gets)
	assert.Zero(t, source.refreshes)
}

func TestRecentIncidents_StaleWithError(t *testing.T) {
	source := &fakeSource{snapshot: feed.Feed{
		Incidents: []victorops.Incident{{ID: "123"}},
		FetchedAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC),
		Err:       errors.New("upstream down"),
	}}
	app := newApp(source)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/recent_incidents", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "Stale data still renders as success")

	var body FeedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Incidents, 1)
	assert.Equal(t, "upstream down", body.Error, "The refresh error rides along with the stale data")
}

func TestRecentIncidents_NoDataAtAll(t *testing.T) {
	source := &fakeSource{snapshot: feed.Feed{Err: errors.New("upstream down")}}
	app := newApp(source)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/recent_incidents", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode, "With no snapshot to serve the error is the response")
}

func TestRecentIncidents_EmptyFeedRendersEmptyList(t *testing.T) {
	source := &fakeSource{snapshot: feed.Feed{FetchedAt: time.Now()}}
	app := newApp(source)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/recent_incidents", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.JSONEq(t, `[]`, string(raw["incidents"]), "An empty feed is [], not null")
}

func TestRefreshIncidents(t *testing.T) {
	source := &fakeSource{snapshot: feed.Feed{FetchedAt: time.Now()}}
	app := newApp(source)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/recent_incidents/refresh", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1, source.refreshes, "The refresh endpoint must force a blocking refresh")
	assert.Zero(t, source.gets)
}
