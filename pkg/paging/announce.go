package paging

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Announcer broadcasts a page headline to an out-of-band audit channel.
// Announcements are best-effort: failures are logged, never surfaced to the
// requester and never counted as a delivery channel.
type Announcer interface {
	Announce(ctx context.Context, message string) error
}

// SALAnnouncer announces page headlines to the server-admin-log IRC relay
// (tcpircbot), which accepts one plain-text line per message over TCP.
type SALAnnouncer struct {
	addr    string
	nick    string
	timeout time.Duration
}

// NewSALAnnouncer creates an announcer for the tcpircbot at host:port.
func NewSALAnnouncer(host string, port int, nick string, timeout time.Duration) *SALAnnouncer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if nick == "" {
		nick = "klaxon"
	}
	return &SALAnnouncer{
		addr:    net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		nick:    nick,
		timeout: timeout,
	}
}

// Announce implements Announcer.
func (a *SALAnnouncer) Announce(ctx context.Context, message string) error {
	dialer := net.Dialer{Timeout: a.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", a.addr)
	if err != nil {
		return fmt.Errorf("failed to reach tcpircbot: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
	} else {
		_ = conn.SetWriteDeadline(time.Now().Add(a.timeout))
	}

	line := fmt.Sprintf("!log %s: %s\n", a.nick, message)
	if _, err := conn.Write([]byte(line)); err != nil {
		return fmt.Errorf("failed to write announcement: %w", err)
	}
	return nil
}
