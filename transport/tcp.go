// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
)

// DialTCP connects to addr over TCP, or over TLS when cfg is not nil.
func DialTCP(ctx context.Context, addr string, cfg *tls.Config, opts ...Option) (*Stream, error) {
	var conn net.Conn
	var err error

	if cfg != nil {
		d := &tls.Dialer{Config: cfg}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return NewStream(conn, opts...), nil
}
