// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/absmach/mqttsub/client"

// metrics holds OpenTelemetry instruments for subscribe operations.
type metrics struct {
	subscribeTotal      metric.Int64Counter
	resubscribeTotal    metric.Int64Counter
	unsubscribeTotal    metric.Int64Counter
	subscriptionsActive metric.Int64ObservableGauge
	subscribeDuration   metric.Float64Histogram
}

func newMetrics(mp metric.MeterProvider, reg *Registry) (*metrics, error) {
	meter := mp.Meter(instrumentationName)
	m := &metrics{}

	var err error
	m.subscribeTotal, err = meter.Int64Counter(
		"mqtt.client.subscribe.total",
		metric.WithDescription("Total SUBSCRIBE round trips by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscribeTotal counter: %w", err)
	}

	m.resubscribeTotal, err = meter.Int64Counter(
		"mqtt.client.resubscribe.total",
		metric.WithDescription("Total resubscribe sweeps by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resubscribeTotal counter: %w", err)
	}

	m.unsubscribeTotal, err = meter.Int64Counter(
		"mqtt.client.unsubscribe.total",
		metric.WithDescription("Total UNSUBSCRIBE round trips by result"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create unsubscribeTotal counter: %w", err)
	}

	m.subscriptionsActive, err = meter.Int64ObservableGauge(
		"mqtt.client.subscriptions.active",
		metric.WithDescription("Number of occupied subscription slots"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(reg.Count()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptionsActive gauge: %w", err)
	}

	m.subscribeDuration, err = meter.Float64Histogram(
		"mqtt.client.subscribe.duration",
		metric.WithDescription("SUBSCRIBE to SUBACK latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscribeDuration histogram: %w", err)
	}

	return m, nil
}

func (m *metrics) recordSubscribe(ctx context.Context, elapsed time.Duration, err error) {
	m.subscribeTotal.Add(ctx, 1, metric.WithAttributes(resultAttr(err)))
	m.subscribeDuration.Record(ctx, elapsed.Seconds())
}

func (m *metrics) recordResubscribe(ctx context.Context, err error) {
	m.resubscribeTotal.Add(ctx, 1, metric.WithAttributes(resultAttr(err)))
}

func (m *metrics) recordUnsubscribe(ctx context.Context, err error) {
	m.unsubscribeTotal.Add(ctx, 1, metric.WithAttributes(resultAttr(err)))
}

func resultAttr(err error) attribute.KeyValue {
	if err != nil {
		return attribute.String("result", "error")
	}
	return attribute.String("result", "success")
}
