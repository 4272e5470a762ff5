package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAddRewardKeepsWideAmounts(t *testing.T) {
	m := Staking()
	counter := m.rewards.WithLabelValues("claim")
	before := testutil.ToFloat64(counter)

	wide := new(uint256.Int).Lsh(uint256.NewInt(1), 70)
	m.AddReward("claim", wide)
	m.AddReward("claim", new(uint256.Int))
	m.AddReward("claim", nil)

	got := testutil.ToFloat64(counter) - before
	if want := math.Ldexp(1, 70); got != want {
		t.Fatalf("expected %g reward units, got %g", want, got)
	}
}

func TestObserveOperationCountsOutcome(t *testing.T) {
	m := Staking()
	okBefore := testutil.ToFloat64(m.operations.WithLabelValues("claim", "ok"))
	errBefore := testutil.ToFloat64(m.operations.WithLabelValues("claim", "error"))

	m.ObserveOperation("claim", time.Now(), nil)
	m.ObserveOperation("claim", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(m.operations.WithLabelValues("claim", "ok")) - okBefore; got != 1 {
		t.Fatalf("expected one ok operation, got %v", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("claim", "error")) - errBefore; got != 1 {
		t.Fatalf("expected one failed operation, got %v", got)
	}

	var nilMetrics *StakingMetrics
	nilMetrics.AddReward("claim", uint256.NewInt(1))
	nilMetrics.ObserveOperation("claim", time.Now(), nil)
}
