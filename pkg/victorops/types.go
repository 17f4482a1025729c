package victorops

import "time"

// Incident status values after normalization.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Incident is a single upstream-reported alert, normalized from the
// VictorOps (Splunk On-Call) incident representation.
type Incident struct {
	// ID is the upstream-assigned incident identifier. The API calls it
	// incidentNumber but it is a string.
	ID string `json:"id"`

	// Title is a one-line summary of the incident
	Title string `json:"title"`

	// Severity is the normalized severity: "critical", "warning" or "info"
	Severity string `json:"severity"`

	// Status is "open" or "resolved"
	Status string `json:"status"`

	// StartedAt is when the incident started upstream
	StartedAt time.Time `json:"started_at"`

	// SourceURL links back to the incident in the upstream portal
	SourceURL string `json:"source_url,omitempty"`

	// Teams are the team id slugs the incident paged
	Teams []string `json:"teams,omitempty"`

	// PagedUsers are the usernames currently being notified.
	// Once an incident is acked this is always empty.
	PagedUsers []string `json:"paged_users,omitempty"`

	// Acked reports whether the incident was acknowledged or resolved
	Acked bool `json:"acked"`
}

// IsOpen reports whether the incident is still open upstream.
func (i *Incident) IsOpen() bool {
	return i.Status == StatusOpen
}

// incidentsResponse is the wire format of GET api-public/v1/incidents.
type incidentsResponse struct {
	Incidents []apiIncident `json:"incidents"`
}

// apiIncident is a raw VictorOps incident before normalization.
type apiIncident struct {
	IncidentNumber    string    `json:"incidentNumber"`
	Service           string    `json:"service"`
	EntityDisplayName string    `json:"entityDisplayName"`
	MonitorName       string    `json:"monitorName"`
	EntityState       string    `json:"entityState"`
	CurrentPhase      string    `json:"currentPhase"`
	StartTime         time.Time `json:"startTime"`
	PagedTeams        []string  `json:"pagedTeams"`
	PagedUsers        []string  `json:"pagedUsers"`
	IncidentLink      string    `json:"incidentLink"`
}

// oncallResponse is the wire format of GET api-public/v1/oncall/current.
type oncallResponse struct {
	TeamsOnCall []teamOnCall `json:"teamsOnCall"`
}

type teamOnCall struct {
	Team      teamRef     `json:"team"`
	OnCallNow []oncallNow `json:"oncallNow"`
}

type teamRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type oncallNow struct {
	EscalationPolicy policyRef    `json:"escalationPolicy"`
	Users            []oncallUser `json:"users"`
}

type policyRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type oncallUser struct {
	OnCallUser userRef `json:"onCalluser"`
}

type userRef struct {
	Username string `json:"username"`
}

// createIncidentResponse is the wire format of the REST integration endpoint.
type createIncidentResponse struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// rerouteRequest is the wire format of POST api-public/v1/incidents/reroute.
type rerouteRequest struct {
	UserName string         `json:"userName"`
	Reroutes []rerouteEntry `json:"reroutes"`
}

type rerouteEntry struct {
	IncidentNumber string          `json:"incidentNumber"`
	Targets        []rerouteTarget `json:"targets"`
}

type rerouteTarget struct {
	Type string `json:"type"`
	Slug string `json:"slug"`
}

// policyResponse is the wire format of GET api-public/v1/policies/{slug}.
type policyResponse struct {
	Steps []policyStep `json:"steps"`
}

type policyStep struct {
	Timeout int           `json:"timeout"`
	Entries []policyEntry `json:"entries"`
}

type policyEntry struct {
	ExecutionType string `json:"executionType"`
}
