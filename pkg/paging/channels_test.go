package paging

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wikimedia/klaxon/pkg/auth"
)

type fakeCreator struct {
	summary     string
	description string
	err         error
}

func (f *fakeCreator) CreatePage(_ context.Context, summary, description string) error {
	f.summary = summary
	f.description = description
	return f.err
}

func TestVictorOpsChannel(t *testing.T) {
	creator := &fakeCreator{}
	channel := NewVictorOpsChannel(creator)
	assert.Equal(t, "victorops", channel.Name())

	req := Request{
		Requester:   auth.Identity{Username: "alice"},
		Summary:     "site is down",
		Description: "everything is on fire",
	}
	require.NoError(t, channel.Send(context.Background(), req))

	assert.Equal(t, "Manual #page by alice: site is down", creator.summary,
		"The upstream summary is the full headline, not just the raw summary")
	assert.Equal(t, "everything is on fire", creator.description)
}

func TestWebhookChannel(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer server.Close()

	channel := NewWebhookChannel("chat", server.URL, time.Second)
	assert.Equal(t, "chat", channel.Name())

	req := Request{
		ID:          "req-1",
		Requester:   auth.Identity{Username: "alice", Email: "alice@example.org"},
		Summary:     "site is down",
		Description: "details",
	}
	require.NoError(t, channel.Send(context.Background(), req))

	assert.Equal(t, "Manual #page by alice (alice@example.org): site is down", got.Text)
	assert.Equal(t, "site is down", got.Summary)
	assert.Equal(t, "details", got.Description)
	assert.Equal(t, "req-1", got.RequestID)
}

func TestWebhookChannel_Non2xxIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	defer server.Close()

	channel := NewWebhookChannel("chat", server.URL, time.Second)
	err := channel.Send(context.Background(), Request{Summary: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSALAnnouncer(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		lines <- line
	}()

	addr := listener.Addr().(*net.TCPAddr)
	announcer := NewSALAnnouncer("127.0.0.1", addr.Port, "klaxon", time.Second)

	require.NoError(t, announcer.Announce(context.Background(), "Manual #page by alice: site is down"))

	select {
	case line := <-lines:
		assert.Equal(t, "!log klaxon: Manual #page by alice: site is down\n", line)
	case <-time.After(time.Second):
		t.Fatal("no announcement received")
	}
}

func TestSALAnnouncer_Unreachable(t *testing.T) {
	announcer := NewSALAnnouncer("127.0.0.1", 1, "klaxon", 100*time.Millisecond)
	err := announcer.Announce(context.Background(), "message")
	assert.Error(t, err, "An unreachable relay must report an error, not hang")
}
