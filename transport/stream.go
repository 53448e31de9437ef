// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package transport carries MQTT packets between the client and a broker
// over TCP, TLS or WebSocket connections.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/absmach/mqttsub/packets"
	"github.com/absmach/mqttsub/packets/codec"
	v3 "github.com/absmach/mqttsub/packets/v3"
	"github.com/absmach/mqttsub/timer"
)

// DefaultMaxPacketSize bounds the size of an inbound packet.
const DefaultMaxPacketSize = 1 << 20

const incomingQueue = 16

var (
	// ErrClosed is returned once the stream is closed or the connection failed.
	ErrClosed = errors.New("transport closed")

	// ErrPacketTooLarge is returned when the broker announces a packet larger
	// than the configured maximum.
	ErrPacketTooLarge = errors.New("packet too large")

	// ErrBufferTooShort is returned by WaitFor when the packet does not fit in
	// the caller's buffer.
	ErrBufferTooShort = packets.ErrBufferTooShort
)

// Conn is a deadline-capable byte stream. net.Conn satisfies it.
type Conn interface {
	io.ReadWriteCloser
	SetWriteDeadline(t time.Time) error
}

// PacketHook receives complete packets that arrive while WaitFor waits for a
// different packet type. It runs on the goroutine calling WaitFor and may call
// Send. pkt is only valid for the duration of the call.
type PacketHook func(pkt []byte)

// Option configures a Stream.
type Option func(*Stream)

// WithPacketHook sets the hook for packets WaitFor is not waiting for.
func WithPacketHook(h PacketHook) Option {
	return func(s *Stream) {
		s.onPacket = h
	}
}

// WithLogger sets the stream logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Stream) {
		s.logger = l
	}
}

// WithMaxPacketSize sets the largest accepted inbound packet.
func WithMaxPacketSize(n int) Option {
	return func(s *Stream) {
		s.maxPacketSize = n
	}
}

// Stream implements client.Transport over a Conn. A background goroutine
// frames inbound packets; Send and WaitFor are bounded by the caller's timer.
type Stream struct {
	conn          Conn
	logger        *slog.Logger
	onPacket      PacketHook
	maxPacketSize int

	wmu       sync.Mutex
	incoming  chan []byte
	done      chan struct{}
	closeOnce sync.Once
	connected atomic.Bool

	errMu sync.Mutex
	err   error
}

// NewStream starts reading packets from conn.
func NewStream(conn Conn, opts ...Option) *Stream {
	s := &Stream{
		conn:          conn,
		logger:        slog.Default(),
		maxPacketSize: DefaultMaxPacketSize,
		incoming:      make(chan []byte, incomingQueue),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.connected.Store(true)

	go s.readLoop()

	return s
}

// IsConnected reports whether the stream can still carry packets.
func (s *Stream) IsConnected() bool {
	return s.connected.Load()
}

// Send writes p as a whole. A failed or timed out write marks the stream
// disconnected, since the peer may have received part of the packet.
func (s *Stream) Send(p []byte, t *timer.Timer) error {
	if !s.IsConnected() {
		return s.closedErr()
	}
	if t.Expired() {
		return timer.ErrTimeout
	}

	s.wmu.Lock()
	defer s.wmu.Unlock()

	if err := s.conn.SetWriteDeadline(t.Deadline()); err != nil {
		return s.fail(err)
	}
	_, err := s.conn.Write(p)
	if err != nil {
		err = s.fail(err)
		if isTimeout(err) {
			return fmt.Errorf("%w: %w", timer.ErrTimeout, err)
		}
		return err
	}
	if err := s.conn.SetWriteDeadline(time.Time{}); err != nil {
		return s.fail(err)
	}

	return nil
}

// WaitFor copies the next packet of packetType into p and returns its length.
// Other packets are handed to the packet hook, or dropped without one.
func (s *Stream) WaitFor(packetType byte, p []byte, t *timer.Timer) (int, error) {
	for {
		if t.Expired() {
			return 0, timer.ErrTimeout
		}

		select {
		case pkt, ok := <-s.incoming:
			if !ok {
				return 0, s.closedErr()
			}
			if pkt[0]>>4 != packetType {
				s.deliver(pkt)
				continue
			}
			if len(pkt) > len(p) {
				return 0, fmt.Errorf("%w: %d byte %s", ErrBufferTooShort, len(pkt), packets.PacketNames[packetType])
			}
			return copy(p, pkt), nil
		case <-t.After():
			return 0, timer.ErrTimeout
		}
	}
}

// Connect performs the CONNECT/CONNACK handshake.
func (s *Stream) Connect(pkt *v3.Connect, t *timer.Timer) (*v3.ConnAck, error) {
	if err := s.Send(pkt.Encode(), t); err != nil {
		return nil, err
	}

	var buf [4]byte
	n, err := s.WaitFor(packets.ConnAckType, buf[:], t)
	if err != nil {
		return nil, err
	}
	return v3.DecodeConnAck(buf[:n])
}

// Ping sends PINGREQ and waits for PINGRESP.
func (s *Stream) Ping(t *timer.Timer) error {
	if err := s.Send(v3.PingReq, t); err != nil {
		return err
	}
	var buf [2]byte
	_, err := s.WaitFor(packets.PingRespType, buf[:], t)
	return err
}

// Disconnect sends DISCONNECT and closes the stream.
func (s *Stream) Disconnect(t *timer.Timer) error {
	d := &v3.Disconnect{}
	err := s.Send(d.Encode(), t)
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close closes the underlying connection.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.errMu.Lock()
		if s.err == nil {
			s.err = ErrClosed
		}
		s.errMu.Unlock()

		s.connected.Store(false)
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

func (s *Stream) readLoop() {
	defer close(s.incoming)

	r := bufio.NewReader(s.conn)
	for {
		pkt, err := readPacket(r, s.maxPacketSize)
		if err != nil {
			s.fail(err)
			return
		}
		select {
		case s.incoming <- pkt:
		case <-s.done:
			return
		}
	}
}

func readPacket(r *bufio.Reader, maxSize int) ([]byte, error) {
	first, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	rem, _, err := codec.DecodeVBI(r)
	if err != nil {
		return nil, fmt.Errorf("%w: remaining length: %w", packets.ErrProtocol, err)
	}

	size := codec.PacketSize(rem)
	if size > maxSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, size)
	}
	pkt := make([]byte, size)
	pkt[0] = first
	off := 1 + codec.PutVBI(pkt[1:], rem)
	if _, err := io.ReadFull(r, pkt[off:]); err != nil {
		return nil, err
	}

	return pkt, nil
}

func (s *Stream) deliver(pkt []byte) {
	if s.onPacket == nil {
		s.logger.Debug("packet_dropped", slog.String("type", packets.PacketNames[pkt[0]>>4]))
		return
	}
	s.onPacket(pkt)
}

// fail records the first connection error and marks the stream closed.
func (s *Stream) fail(err error) error {
	s.errMu.Lock()
	first := s.err == nil
	if first {
		s.err = err
	}
	s.errMu.Unlock()

	if first {
		s.logger.Warn("transport_failed", slog.String("error", err.Error()))
	}
	s.connected.Store(false)
	return err
}

func (s *Stream) closedErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil || errors.Is(s.err, ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %w", ErrClosed, s.err)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
