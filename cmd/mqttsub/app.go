// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/absmach/mqttsub/client"
	"github.com/absmach/mqttsub/config"
	"github.com/absmach/mqttsub/packets"
	v3 "github.com/absmach/mqttsub/packets/v3"
	"github.com/absmach/mqttsub/timer"
	"github.com/absmach/mqttsub/topics"
	"github.com/absmach/mqttsub/transport"
	"golang.org/x/time/rate"
)

const defaultPollInterval = 500 * time.Millisecond

type dialFunc func(ctx context.Context, opts ...transport.Option) (*transport.Stream, error)

// messageFunc receives inbound messages for a configured filter.
type messageFunc func(topic string, payload []byte, qos byte, filter string)

// app runs one subscriber session: connect, subscribe, poll, shut down.
type app struct {
	cfg          *config.Config
	logger       *slog.Logger
	dial         dialFunc
	onMessage    messageFunc
	pollInterval time.Duration

	sm     *client.StateManager
	stream *transport.Stream
	client *client.Client
}

func newApp(cfg *config.Config, logger *slog.Logger, tlsCfg *tls.Config) *app {
	a := &app{
		cfg:          cfg,
		logger:       logger,
		pollInterval: defaultPollInterval,
		sm:           client.NewStateManager(),
	}
	a.dial = func(ctx context.Context, opts ...transport.Option) (*transport.Stream, error) {
		if cfg.Transport.Type == config.TransportWebSocket {
			return transport.DialWebSocket(ctx, cfg.Transport.URL, nil, tlsCfg, opts...)
		}
		return transport.DialTCP(ctx, cfg.Transport.Address, tlsCfg, opts...)
	}
	a.onMessage = func(topic string, payload []byte, qos byte, filter string) {
		logger.Info("message_received",
			slog.String("topic", topic),
			slog.String("filter", filter),
			slog.Int("qos", int(qos)),
			slog.Int("size", len(payload)))
	}
	return a
}

// connect dials the broker, performs the CONNECT handshake and builds the
// subscribe client on the resulting stream.
func (a *app) connect(ctx context.Context) error {
	if err := a.sm.BeginConnect(); err != nil {
		return err
	}

	dctx, cancel := context.WithTimeout(ctx, a.cfg.Client.ConnectTimeout)
	defer cancel()

	stream, err := a.dial(dctx,
		transport.WithLogger(a.logger),
		transport.WithMaxPacketSize(a.cfg.Transport.MaxPacketSize),
		transport.WithPacketHook(a.onPacket),
	)
	if err != nil {
		a.sm.Set(client.StateDisconnectedError)
		return err
	}
	a.stream = stream

	cc := a.cfg.Client
	pkt := &v3.Connect{
		ClientID:     cc.ClientID,
		CleanSession: cc.CleanSession,
		KeepAlive:    uint16(cc.KeepAlive / time.Second),
		Username:     cc.Username,
	}
	if cc.Password != "" {
		pkt.Password = []byte(cc.Password)
	}

	ack, err := stream.Connect(pkt, timer.Start(nil, cc.ConnectTimeout))
	if err != nil {
		stream.Close()
		a.sm.Set(client.StateDisconnectedError)
		return fmt.Errorf("connect: %w", err)
	}
	if err := a.sm.Connected(); err != nil {
		return err
	}

	opts := client.NewOptions().
		SetCommandTimeout(cc.CommandTimeout).
		SetBufferSizes(cc.WriteBufferSize, cc.ReadBufferSize).
		SetMaxSubscriptions(cc.MaxSubscriptions).
		SetVerifyPacketID(cc.VerifyPacketID).
		SetResubscribeRate(rate.Limit(cc.ResubscribeRate), cc.ResubscribeBurst).
		SetStateMachine(a.sm).
		SetLogger(a.logger)

	c, err := client.New(stream, opts)
	if err != nil {
		return err
	}
	a.client = c

	a.logger.Info("connected",
		slog.String("client_id", cc.ClientID),
		slog.Bool("session_present", ack.SessionPresent))

	return nil
}

// subscribeAll subscribes every configured filter in order.
func (a *app) subscribeAll(ctx context.Context) error {
	for _, s := range a.cfg.Subscriptions {
		filter := s.Filter
		h := func(topic string, payload []byte, qos byte, _ any) {
			a.onMessage(topic, payload, qos, filter)
		}
		if err := a.client.Subscribe(ctx, filter, s.QoS, h, nil); err != nil {
			return fmt.Errorf("subscribe %q: %w", filter, err)
		}
		a.logger.Info("subscribed", slog.String("filter", filter), slog.Int("qos", int(s.QoS)))
	}
	return nil
}

// run polls the connection until ctx is done. A value on hup resubscribes
// every active binding.
func (a *app) run(ctx context.Context, hup <-chan os.Signal) error {
	lastPing := time.Now()
	keepAlive := a.cfg.Client.KeepAlive

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			if err := a.client.Resubscribe(ctx); err != nil {
				a.logger.Error("resubscribe_failed", slog.String("error", err.Error()))
			} else {
				a.logger.Info("resubscribed", slog.Int("subscriptions", a.client.Registry().Count()))
			}
			continue
		default:
		}

		ping := keepAlive > 0 && time.Since(lastPing) >= keepAlive/2
		if err := a.yield(ping); err != nil {
			return err
		}
		if ping {
			lastPing = time.Now()
		}
	}
}

// yield waits one poll interval for inbound packets, which reach onPacket.
// With ping set it sends PINGREQ and waits for the response instead.
func (a *app) yield(ping bool) error {
	if err := a.sm.Transition(client.StateConnectedIdle, client.StateConnectedYieldInProgress); err != nil {
		return err
	}

	var err error
	if ping {
		err = a.stream.Ping(timer.Start(nil, a.cfg.Client.CommandTimeout))
	} else {
		var buf [2]byte
		_, err = a.stream.WaitFor(packets.PingRespType, buf[:], timer.Start(nil, a.pollInterval))
		if errors.Is(err, timer.ErrTimeout) {
			err = nil
		}
	}

	if !a.stream.IsConnected() {
		a.sm.Set(client.StateDisconnectedError)
		return fmt.Errorf("connection lost: %w", err)
	}
	if rerr := a.sm.Transition(client.StateConnectedYieldInProgress, client.StateConnectedIdle); rerr != nil && err == nil {
		err = rerr
	}
	return err
}

// onPacket handles packets that arrive while the stream waits for another
// type: inbound publishes are acknowledged and handed to the bindings whose
// filter equals the topic.
func (a *app) onPacket(pkt []byte) {
	switch pkt[0] >> 4 {
	case packets.PublishType:
		pub, err := v3.DecodePublish(pkt)
		if err != nil {
			a.logger.Warn("publish_decode_failed", slog.String("error", err.Error()))
			return
		}
		if err := topics.ValidateTopicName(pub.TopicName); err != nil {
			a.logger.Warn("publish_invalid_topic", slog.String("topic", pub.TopicName))
			return
		}
		a.deliver(pub)

		switch pub.QoS {
		case 1:
			a.ack(packets.PubAckType, pub.ID)
		case 2:
			a.ack(packets.PubRecType, pub.ID)
		}
	case packets.PubRelType:
		rel, err := v3.DecodeAck(pkt)
		if err != nil {
			a.logger.Warn("pubrel_decode_failed", slog.String("error", err.Error()))
			return
		}
		a.ack(packets.PubCompType, rel.ID)
	default:
		a.logger.Debug("packet_ignored", slog.String("type", packets.PacketNames[pkt[0]>>4]))
	}
}

func (a *app) deliver(pub *v3.Publish) {
	if a.client == nil {
		return
	}

	// Handlers may subscribe, which is allowed while a callback runs.
	inYield := a.sm.Transition(client.StateConnectedYieldInProgress, client.StateConnectedWaitForCallbackReturn) == nil
	defer func() {
		if !inYield {
			return
		}
		if err := a.sm.Transition(client.StateConnectedWaitForCallbackReturn, client.StateConnectedYieldInProgress); err != nil {
			a.logger.Warn("callback_state_restore_failed",
				slog.String("topic", pub.TopicName),
				slog.String("error", err.Error()))
		}
	}()

	var delivered int
	for _, b := range a.client.Subscriptions() {
		if b.Filter == pub.TopicName {
			b.Handler(pub.TopicName, pub.Payload, pub.QoS, b.Data)
			delivered++
		}
	}
	if delivered == 0 {
		a.onMessage(pub.TopicName, pub.Payload, pub.QoS, "")
	}
}

func (a *app) ack(packetType byte, id uint16) {
	pkt := &v3.Ack{FixedHeader: packets.FixedHeader{PacketType: packetType}, ID: id}
	if err := a.stream.Send(pkt.Encode(), timer.Start(nil, a.cfg.Client.CommandTimeout)); err != nil {
		a.logger.Warn("ack_failed",
			slog.String("type", packets.PacketNames[packetType]),
			slog.Int("packet_id", int(id)),
			slog.String("error", err.Error()))
	}
}

// shutdown sends DISCONNECT and closes the stream.
func (a *app) shutdown() error {
	if a.stream == nil {
		return nil
	}
	if err := a.sm.Transition(client.StateConnectedIdle, client.StateDisconnecting); err != nil {
		// Lost connections have nothing to say goodbye to.
		return a.stream.Close()
	}
	err := a.stream.Disconnect(timer.Start(nil, a.cfg.Client.CommandTimeout))
	a.sm.Set(client.StateDisconnectedManually)
	return err
}
