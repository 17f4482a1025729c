package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultDirectoryTimeout bounds group-directory lookups.
const DefaultDirectoryTimeout = 10 * time.Second

// StaticTrustList is a TrustSource backed by an enumerated list of
// usernames, matched case-insensitively.
type StaticTrustList struct {
	members map[string]struct{}
}

// NewStaticTrustList creates a trust list from the given usernames.
func NewStaticTrustList(usernames []string) *StaticTrustList {
	members := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			members[name] = struct{}{}
		}
	}
	return &StaticTrustList{members: members}
}

// IsTrusted reports whether the username is on the list.
func (l *StaticTrustList) IsTrusted(_ context.Context, username string) (bool, error) {
	_, ok := l.members[strings.ToLower(username)]
	return ok, nil
}

// Len returns the number of listed usernames.
func (l *StaticTrustList) Len() int {
	return len(l.members)
}

// DirectorySource is a TrustSource backed by an HTTP group directory.
// The endpoint is expected to return {"members": ["user1", "user2", ...]}.
// Swapping the directory technology means swapping this type, not the gate.
type DirectorySource struct {
	url        string
	httpClient *http.Client
}

// NewDirectorySource creates a directory-backed trust source.
func NewDirectorySource(url string, timeout time.Duration) *DirectorySource {
	if timeout <= 0 {
		timeout = DefaultDirectoryTimeout
	}
	return &DirectorySource{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// IsTrusted queries the directory for the group membership list and checks
// the username against it.
func (d *DirectorySource) IsTrusted(ctx context.Context, username string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read directory response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("directory returned status %d: %s", resp.StatusCode, string(body))
	}

	var memberList struct {
		Members []string `json:"members"`
	}
	if err := json.Unmarshal(body, &memberList); err != nil {
		return false, fmt.Errorf("failed to parse directory response: %w", err)
	}

	for _, member := range memberList.Members {
		if strings.EqualFold(member, username) {
			return true, nil
		}
	}
	return false, nil
}
