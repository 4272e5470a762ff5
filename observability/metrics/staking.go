package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/PuppyCerberus/token-staking-contract/staking"

// StakingMetrics records lifecycle command outcomes and reward flows.
type StakingMetrics struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	rewards    *prometheus.CounterVec
	whitelist  *prometheus.CounterVec

	// OTLP mirrors of the command counters, exported when telemetry is on.
	opCounter   metric.Int64Counter
	opHistogram metric.Float64Histogram
}

var (
	stakingOnce     sync.Once
	stakingRegistry *StakingMetrics
)

// Staking returns the lazily-registered staking metrics.
func Staking() *StakingMetrics {
	stakingOnce.Do(func() {
		stakingRegistry = &StakingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "staking",
				Name:      "operations_total",
				Help:      "Count of staking commands by operation and outcome.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "staking",
				Name:      "operation_duration_seconds",
				Help:      "Latency of staking commands including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
			rewards: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "staking",
				Name:      "rewards_units_total",
				Help:      "Reward units settled, split by payout mode.",
			}, []string{"mode"}),
			whitelist: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "staking",
				Name:      "whitelist_changes_total",
				Help:      "Allow-list mutations by action.",
			}, []string{"action"}),
		}
		prometheus.MustRegister(
			stakingRegistry.operations,
			stakingRegistry.latency,
			stakingRegistry.rewards,
			stakingRegistry.whitelist,
		)
		stakingRegistry.initMeter()
	})
	return stakingRegistry
}

func (m *StakingMetrics) initMeter() {
	meter := otel.GetMeterProvider().Meter(meterName)
	counter, err := meter.Int64Counter("staking.operations")
	if err != nil {
		meter = noop.NewMeterProvider().Meter(meterName)
		counter, _ = meter.Int64Counter("staking.operations")
	}
	histogram, err := meter.Float64Histogram("staking.operation.duration", metric.WithUnit("s"))
	if err != nil {
		histogram, _ = noop.NewMeterProvider().Meter(meterName).Float64Histogram("staking.operation.duration")
	}
	m.opCounter = counter
	m.opHistogram = histogram
}

// ObserveOperation records the outcome of one command.
func (m *StakingMetrics) ObserveOperation(op string, started time.Time, err error) {
	if m == nil {
		return
	}
	if op == "" {
		op = "unknown"
	}
	result := outcome(err)
	elapsed := time.Since(started).Seconds()
	m.operations.WithLabelValues(op, result).Inc()
	m.latency.WithLabelValues(op).Observe(elapsed)
	if m.opCounter != nil {
		m.opCounter.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", result),
		))
	}
	if m.opHistogram != nil {
		m.opHistogram.Record(context.Background(), elapsed, metric.WithAttributes(attribute.String("op", op)))
	}
}

// AddReward records settled reward units for mode "claim" or "compound".
func (m *StakingMetrics) AddReward(mode string, units *uint256.Int) {
	if m == nil || units == nil || units.IsZero() {
		return
	}
	m.rewards.WithLabelValues(mode).Add(units.Float64())
}

// ObserveWhitelist records an allow-list mutation.
func (m *StakingMetrics) ObserveWhitelist(action string) {
	if m == nil {
		return
	}
	m.whitelist.WithLabelValues(action).Inc()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
