package game

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	l4g "github.com/alecthomas/log4go"
)

const meterName = "github.com/byebyebruce/rollbackserver/logic/game"

type metrics struct {
	attrs metric.MeasurementOption

	ticks    metric.Int64Counter
	replayed metric.Int64Counter
	dropped  metric.Int64Counter
	bytes    metric.Int64Histogram
	queue    metric.Int64Gauge
	peers    metric.Int64Gauge

	lastDropped uint64
}

func newMetrics(roomID uint64) *metrics {
	m, err := buildMetrics(otel.Meter(meterName))
	if err != nil {
		l4g.Warn("[game(%d)] metrics disabled: %v", roomID, err)
		m, _ = buildMetrics(noop.NewMeterProvider().Meter(meterName))
	}
	m.attrs = metric.WithAttributes(attribute.Int64("room", int64(roomID)))
	return m
}

func buildMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error
	if m.ticks, err = meter.Int64Counter("rollbackserver.ticks",
		metric.WithDescription("simulated ticks, not counting replays")); err != nil {
		return nil, err
	}
	if m.replayed, err = meter.Int64Counter("rollbackserver.replayed_ticks",
		metric.WithDescription("ticks resimulated because of late input")); err != nil {
		return nil, err
	}
	if m.dropped, err = meter.Int64Counter("rollbackserver.dropped_inputs",
		metric.WithDescription("inputs outside the rollback window")); err != nil {
		return nil, err
	}
	if m.bytes, err = meter.Int64Histogram("rollbackserver.state_bytes",
		metric.WithDescription("state packet size"), metric.WithUnit("By")); err != nil {
		return nil, err
	}
	if m.queue, err = meter.Int64Gauge("rollbackserver.queue_length",
		metric.WithDescription("peers waiting for a free slot")); err != nil {
		return nil, err
	}
	if m.peers, err = meter.Int64Gauge("rollbackserver.peers",
		metric.WithDescription("connected peers")); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) onTick(ctx context.Context, replayed int, stateBytes int, dropped uint64) {
	m.ticks.Add(ctx, 1, m.attrs)
	if replayed > 0 {
		m.replayed.Add(ctx, int64(replayed), m.attrs)
	}
	if dropped > m.lastDropped {
		m.dropped.Add(ctx, int64(dropped-m.lastDropped), m.attrs)
		m.lastDropped = dropped
	}
	m.bytes.Record(ctx, int64(stateBytes), m.attrs)
}

func (m *metrics) onPeers(ctx context.Context, peers, queued int) {
	m.peers.Record(ctx, int64(peers), m.attrs)
	m.queue.Record(ctx, int64(queued), m.attrs)
}
