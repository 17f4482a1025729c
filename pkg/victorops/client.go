package victorops

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wikimedia/klaxon/internal/version"
	"github.com/wikimedia/klaxon/pkg/logger"
)

// DefaultBaseURL is the root of the public VictorOps API, used for fetching
// incidents and on-call rotations but not for creating new incidents.
const DefaultBaseURL = "https://api.victorops.com/"

// DefaultTimeout bounds every outbound call. The client never retries
// internally; retry policy belongs to the caller.
const DefaultTimeout = 10 * time.Second

// ErrUpstreamUnavailable is returned when the alerting API cannot be reached
// or returns a malformed response.
var ErrUpstreamUnavailable = errors.New("upstream alerting API unavailable")

// ErrPageRejected is returned when the REST integration endpoint accepted the
// HTTP request but reported a non-success result.
var ErrPageRejected = errors.New("upstream rejected the page")

// Config holds the settings for a VictorOps API client.
type Config struct {
	// APIID and APIKey authenticate read calls against the public API
	APIID  string
	APIKey string

	// BaseURL is the public API root. Defaults to DefaultBaseURL.
	BaseURL string

	// CreateIncidentURL is the REST integration endpoint used to create
	// new paging incidents. Read calls never use it.
	CreateIncidentURL string

	// AdminEmail identifies the operator of this instance in the
	// outgoing User-Agent
	AdminEmail string

	// TeamIDs filters incidents and on-call rotations to the given team
	// id slugs. Empty means no filter.
	TeamIDs []string

	// EscalationPolicyIDs filters on-call resolution to the given
	// escalation policy slugs. Empty means no filter.
	EscalationPolicyIDs []string

	// Timeout bounds each outbound call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Client is a shim over the VictorOps (Splunk On-Call) API.
// It normalizes upstream vocabulary into the Incident shape and applies the
// configured team and escalation policy filters.
type Client struct {
	httpClient        *http.Client
	baseURL           string
	createIncidentURL string
	apiID             string
	apiKey            string
	userAgent         string
	teamIDs           map[string]struct{}
	policyIDs         map[string]struct{}
}

// NewClient creates a VictorOps API client from the given configuration.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient:        &http.Client{Timeout: timeout},
		baseURL:           baseURL,
		createIncidentURL: cfg.CreateIncidentURL,
		apiID:             cfg.APIID,
		apiKey:            cfg.APIKey,
		userAgent: fmt.Sprintf("klaxon/%s instance administered by %s",
			version.GetShortVersion(), cfg.AdminEmail),
		teamIDs:   toSet(cfg.TeamIDs),
		policyIDs: toSet(cfg.EscalationPolicyIDs),
	}
}

func toSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}

// FetchIncidents fetches the current incidents and returns them normalized,
// filtered by the configured team ids. Ordering is whatever the upstream
// returned; callers sort. Errors wrap ErrUpstreamUnavailable.
func (c *Client) FetchIncidents(ctx context.Context) ([]Incident, error) {
	var resp incidentsResponse
	if err := c.getJSON(ctx, "api-public/v1/incidents", &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	incidents := make([]Incident, 0, len(resp.Incidents))
	for _, raw := range resp.Incidents {
		incident := normalizeIncident(raw)
		if c.matchesTeams(incident.Teams) {
			incidents = append(incidents, incident)
		}
	}
	return incidents, nil
}

// FetchOnCall fetches the usernames currently on call, filtered by the
// configured team ids and escalation policy ids.
func (c *Client) FetchOnCall(ctx context.Context) ([]string, error) {
	var resp oncallResponse
	if err := c.getJSON(ctx, "api-public/v1/oncall/current", &resp); err != nil {
		return nil, err
	}

	var names []string
	for _, team := range resp.TeamsOnCall {
		if c.teamIDs != nil {
			if _, ok := c.teamIDs[team.Team.Slug]; !ok {
				continue
			}
		}
		for _, rotation := range team.OnCallNow {
			if c.policyIDs != nil {
				if _, ok := c.policyIDs[rotation.EscalationPolicy.Slug]; !ok {
					continue
				}
			}
			for _, u := range rotation.Users {
				if u.OnCallUser.Username != "" {
					names = append(names, u.OnCallUser.Username)
				}
			}
		}
	}
	return names, nil
}

// CreatePage creates a new paging incident through the REST integration
// endpoint. The summary appears in push notifications; the description is
// longer free-form text.
func (c *Client) CreatePage(ctx context.Context, summary, description string) error {
	if c.createIncidentURL == "" {
		return errors.New("no create incident URL configured")
	}

	payload := map[string]string{
		"message_type":        "CRITICAL",
		"entity_display_name": summary,
		"state_message":       description,
	}
	logger.Infof("Sending a page: %s", summary)

	var resp createIncidentResponse
	if err := c.postJSON(ctx, c.createIncidentURL, payload, &resp); err != nil {
		return err
	}
	if resp.Result != "success" {
		return fmt.Errorf("%w: %s", ErrPageRejected, resp.Message)
	}
	return nil
}

// RerouteIncidents reroutes the given incidents to an escalation policy.
func (c *Client) RerouteIncidents(ctx context.Context, incidentIDs []string, policySlug, username string) error {
	if len(incidentIDs) == 0 {
		return nil
	}

	req := rerouteRequest{UserName: username}
	for _, id := range incidentIDs {
		req.Reroutes = append(req.Reroutes, rerouteEntry{
			IncidentNumber: id,
			Targets:        []rerouteTarget{{Type: "EscalationPolicy", Slug: policySlug}},
		})
	}

	endpoint, err := url.JoinPath(c.baseURL, "api-public/v1/incidents/reroute")
	if err != nil {
		return err
	}
	return c.postJSON(ctx, endpoint, req, nil)
}

// EscalateUnpaged reroutes incidents that are unacked but paging nobody to
// the given escalation policy. An escalation policy that pages immediately
// during business hours may be empty off-hours, leaving UNACKED incidents
// with no paged users; those get rerouted to the fallback policy.
// Returns the incidents that were rerouted.
func (c *Client) EscalateUnpaged(ctx context.Context, policySlug, username string) ([]Incident, error) {
	incidents, err := c.FetchIncidents(ctx)
	if err != nil {
		return nil, err
	}

	var escalatable []Incident
	var ids []string
	for _, incident := range incidents {
		if !incident.Acked && len(incident.PagedUsers) == 0 {
			escalatable = append(escalatable, incident)
			ids = append(ids, incident.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := c.RerouteIncidents(ctx, ids, policySlug, username); err != nil {
		return nil, err
	}
	logger.Infof("Escalated %d unpaged incident(s) to policy %s", len(ids), policySlug)
	return escalatable, nil
}

// PolicyPagesImmediately checks that the given escalation policy has at
// least one rotation-group step with timeout 0.
func (c *Client) PolicyPagesImmediately(ctx context.Context, policySlug string) (bool, error) {
	var resp policyResponse
	if err := c.getJSON(ctx, "api-public/v1/policies/"+url.PathEscape(policySlug), &resp); err != nil {
		return false, err
	}

	for _, step := range resp.Steps {
		if step.Timeout != 0 {
			continue
		}
		for _, entry := range step.Entries {
			if entry.ExecutionType == "rotation_group" {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *Client) matchesTeams(teams []string) bool {
	if c.teamIDs == nil {
		return true
	}
	for _, team := range teams {
		if _, ok := c.teamIDs[team]; ok {
			return true
		}
	}
	return false
}

func normalizeIncident(raw apiIncident) Incident {
	title := raw.Service
	if title == "" {
		title = raw.EntityDisplayName
	}
	if title == "" {
		title = raw.MonitorName
	}
	if title == "" {
		title = "unknown alert"
	}

	status := StatusOpen
	if raw.CurrentPhase == "RESOLVED" {
		status = StatusResolved
	}

	var severity string
	switch strings.ToUpper(raw.EntityState) {
	case "CRITICAL":
		severity = "critical"
	case "WARNING":
		severity = "warning"
	default:
		severity = "info"
	}

	return Incident{
		ID:         raw.IncidentNumber,
		Title:      title,
		Severity:   severity,
		Status:     status,
		StartedAt:  raw.StartTime,
		SourceURL:  raw.IncidentLink,
		Teams:      raw.PagedTeams,
		PagedUsers: raw.PagedUsers,
		Acked:      raw.CurrentPhase != "UNACKED",
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// setHeaders applies the auth and User-Agent headers. The create-incident
// endpoint neither needs nor uses the API id/key but including them is
// harmless.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-VO-Api-Id", c.apiID)
	req.Header.Set("X-VO-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
}
