package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/PuppyCerberus/token-staking-contract/core/events"
)

func TestEventsCountsByType(t *testing.T) {
	m := Events()
	before := testutil.ToFloat64(m.emitted.WithLabelValues(events.TypeStakeRestaked))
	m.Emit(events.StakeRestaked{ID: 1, Owner: "alice"})
	m.Emit(events.StakeRestaked{ID: 2, Owner: "alice"})
	after := testutil.ToFloat64(m.emitted.WithLabelValues(events.TypeStakeRestaked))
	if after-before != 2 {
		t.Fatalf("expected 2 restake events counted, got %v", after-before)
	}
}

func TestAPIObserveCountsErrors(t *testing.T) {
	m := API()
	before := testutil.ToFloat64(m.errors.WithLabelValues("/v1/stakes", "POST", "409"))
	m.Observe("/v1/stakes", "POST", 409, 0)
	if got := testutil.ToFloat64(m.errors.WithLabelValues("/v1/stakes", "POST", "409")); got-before != 1 {
		t.Fatalf("expected one error recorded, got %v", got-before)
	}
}
