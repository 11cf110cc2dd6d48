package client

import (
	"errors"
	"net"
	"time"
)

// ErrConnExpired is returned by connections that outlived their lifetime.
// retryTransport retries it without counting an attempt.
var ErrConnExpired = errors.New("connection expired")

// expiringConn refuses reads and writes once its deadline passed, so the
// transport dials again and picks up DNS changes.
type expiringConn struct {
	net.Conn
	expiresAt time.Time
}

func newExpiringConn(conn net.Conn, lifetime time.Duration) *expiringConn {
	return &expiringConn{Conn: conn, expiresAt: time.Now().Add(lifetime)}
}

func (c *expiringConn) expired() bool {
	return time.Now().After(c.expiresAt)
}

func (c *expiringConn) Read(b []byte) (int, error) {
	if c.expired() {
		_ = c.Close()
		return 0, ErrConnExpired
	}
	return c.Conn.Read(b)
}

func (c *expiringConn) Write(b []byte) (int, error) {
	if c.expired() {
		_ = c.Close()
		return 0, ErrConnExpired
	}
	return c.Conn.Write(b)
}
