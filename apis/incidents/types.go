package incidents

import (
	"time"

	"github.com/wikimedia/klaxon/pkg/victorops"
)

// FeedResponse is the JSON body for the recent-incidents endpoints.
type FeedResponse struct {
	// Incidents ordered most-recent-first by start time
	Incidents []victorops.Incident `json:"incidents"`

	// FetchedAt is when the list was last successfully refreshed upstream
	FetchedAt time.Time `json:"fetched_at"`

	// Error carries the most recent refresh failure when the incidents
	// shown are a stale snapshot
	Error string `json:"error,omitempty"`
}
