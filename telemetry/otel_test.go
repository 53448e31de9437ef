// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/mqttsub/config"
	"github.com/absmach/mqttsub/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestInitProviderDisabled(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Enabled = false

	shutdown, err := telemetry.InitProvider(context.Background(), cfg, "node-1")
	require.NoError(t, err)
	assert.IsType(t, tracenoop.TracerProvider{}, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitProviderEnabled(t *testing.T) {
	cfg := config.Default().Telemetry
	cfg.Enabled = true
	cfg.TracesEnabled = true
	cfg.MetricsEnabled = true
	cfg.TraceSampleRate = 1

	// Exporters connect lazily, so no collector is needed to build them.
	shutdown, err := telemetry.InitProvider(context.Background(), cfg, "node-1")
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, otel.GetTracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, otel.GetMeterProvider())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = shutdown(ctx)
}
