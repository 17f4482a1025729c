package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	trusted map[string]bool
	err     error
	calls   int
}

func (f *fakeSource) IsTrusted(_ context.Context, username string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.trusted[username], nil
}

func TestGate_Authorize(t *testing.T) {
	tests := []struct {
		name     string
		sources  []TrustSource
		username string
		allowed  bool
		reason   string
	}{
		{
			name:     "anonymous is denied before any source",
			sources:  []TrustSource{&fakeSource{trusted: map[string]bool{"": true}}},
			username: "",
			allowed:  false,
			reason:   ReasonAnonymous,
		},
		{
			name:     "trusted by first source",
			sources:  []TrustSource{&fakeSource{trusted: map[string]bool{"alice": true}}},
			username: "alice",
			allowed:  true,
		},
		{
			name: "trusted by a later source",
			sources: []TrustSource{
				&fakeSource{},
				&fakeSource{trusted: map[string]bool{"alice": true}},
			},
			username: "alice",
			allowed:  true,
		},
		{
			name:     "unknown identity is denied",
			sources:  []TrustSource{&fakeSource{trusted: map[string]bool{"alice": true}}},
			username: "mallory",
			allowed:  false,
			reason:   ReasonNotTrusted,
		},
		{
			name: "failing source is skipped, not trusted",
			sources: []TrustSource{
				&fakeSource{err: errors.New("directory down")},
			},
			username: "alice",
			allowed:  false,
			reason:   ReasonNotTrusted,
		},
		{
			name: "failing source does not block a later trusting source",
			sources: []TrustSource{
				&fakeSource{err: errors.New("directory down")},
				&fakeSource{trusted: map[string]bool{"alice": true}},
			},
			username: "alice",
			allowed:  true,
		},
		{
			name:     "no sources denies everyone",
			sources:  nil,
			username: "alice",
			allowed:  false,
			reason:   ReasonNotTrusted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewGate(tt.sources...)

			decision := gate.Authorize(context.Background(), tt.username)
			assert.Equal(t, tt.allowed, decision.Allowed)
			assert.Equal(t, tt.reason, decision.Reason)
		})
	}
}

func TestGate_AnonymousSkipsSources(t *testing.T) {
	source := &fakeSource{}
	gate := NewGate(source)

	gate.Authorize(context.Background(), "")
	assert.Zero(t, source.calls, "Anonymous denial must not consult any trust source")
}

func TestStaticTrustList(t *testing.T) {
	list := NewStaticTrustList([]string{"Alice", " bob ", "", "alice"})
	assert.Equal(t, 2, list.Len(), "Duplicates, blanks and case variants collapse")

	trusted, err := list.IsTrusted(context.Background(), "ALICE")
	require.NoError(t, err)
	assert.True(t, trusted, "Matching is case-insensitive")

	trusted, err = list.IsTrusted(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, trusted, "Whitespace is trimmed at construction")

	trusted, err = list.IsTrusted(context.Background(), "mallory")
	require.NoError(t, err)
	assert.False(t, trusted)
}

func TestDirectorySource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"members": ["Alice", "bob"]}`))
	}))
	defer server.Close()

	source := NewDirectorySource(server.URL, 0)

	trusted, err := source.IsTrusted(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, trusted, "Directory matching is case-insensitive")

	trusted, err = source.IsTrusted(context.Background(), "mallory")
	require.NoError(t, err)
	assert.False(t, trusted)
}

func TestDirectorySource_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-200 status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			source := NewDirectorySource(server.URL, 0)

			trusted, err := source.IsTrusted(context.Background(), "alice")
			assert.Error(t, err)
			assert.False(t, trusted, "Directory failures must never trust")
		})
	}
}
