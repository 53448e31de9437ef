// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Subprotocol is the WebSocket subprotocol negotiated for MQTT.
const Subprotocol = "mqtt"

const handshakeTimeout = 10 * time.Second

// ErrUnexpectedFrame is returned when the broker sends a non-binary frame.
var ErrUnexpectedFrame = errors.New("unexpected websocket frame type")

// DialWebSocket connects to a ws:// or wss:// URL. MQTT packets travel in
// binary frames; a frame may carry any part of the packet stream.
func DialWebSocket(ctx context.Context, url string, header http.Header, cfg *tls.Config, opts ...Option) (*Stream, error) {
	d := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		Subprotocols:     []string{Subprotocol},
		TLSClientConfig:  cfg,
	}

	ws, resp, err := d.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}

	return NewStream(&wsConn{ws: ws}, opts...), nil
}

// wsConn adapts a WebSocket connection to a byte stream.
type wsConn struct {
	ws *websocket.Conn
	r  io.Reader
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.r == nil {
			mt, r, err := c.ws.NextReader()
			if err != nil {
				return 0, err
			}
			if mt != websocket.BinaryMessage {
				return 0, ErrUnexpectedFrame
			}
			c.r = r
		}

		n, err := c.r.Read(p)
		if errors.Is(err, io.EOF) {
			c.r = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
