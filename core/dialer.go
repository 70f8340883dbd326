package core

import (
	"context"
	"fmt"
	"net"
	"time"
)

// Dialer opens outbound TCP connections to a node's service address. It is
// deliberately a thin wrapper over net.Dialer — TLS/authentication
// handshake details are out of scope (spec.md §1) and belong to a layer
// above this one if the caller needs them.
type Dialer struct {
	Timeout   time.Duration
	KeepAlive time.Duration
}

// NewDialer builds a Dialer with the given connect timeout and TCP
// keepalive interval.
func NewDialer(timeout, keepAlive time.Duration) *Dialer {
	return &Dialer{Timeout: timeout, KeepAlive: keepAlive}
}

// Dial connects to addr, honoring ctx's deadline in addition to d.Timeout.
func (d *Dialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	nd := &net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialer: connect to %s: %w", addr, err)
	}
	return conn, nil
}
