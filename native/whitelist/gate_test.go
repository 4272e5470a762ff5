package whitelist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PuppyCerberus/token-staking-contract/core/events"
	"github.com/PuppyCerberus/token-staking-contract/core/host"
	"github.com/PuppyCerberus/token-staking-contract/core/state"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/storage"
)

type capture struct{ events []events.Event }

func (c *capture) Emit(evt events.Event) { c.events = append(c.events, evt) }

func newTestGate(t *testing.T) (*Gate, *capture) {
	t.Helper()
	exec := host.NewExecutor(state.NewManager(storage.NewMemDB()),
		host.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }))
	rec := &capture{}
	return NewGate(exec, "ghoststaking", rec), rec
}

func TestGateAddRemove(t *testing.T) {
	gate, rec := newTestGate(t)
	admin := host.WithCaller(context.Background(), "ghoststaking")

	if err := gate.Add(admin, "alice"); err != nil {
		t.Fatalf("add: %v", err)
	}
	allowed, err := gate.Lookup(context.Background(), "alice")
	if err != nil || !allowed {
		t.Fatalf("expected alice allowed, allowed=%v err=%v", allowed, err)
	}
	if err := gate.Add(admin, "alice"); !errors.Is(err, ErrAlreadyWhitelisted) {
		t.Fatalf("expected ErrAlreadyWhitelisted, got %v", err)
	}
	if err := gate.Remove(admin, "alice"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := gate.Remove(admin, "alice"); !errors.Is(err, ErrNotWhitelistedForRemoval) {
		t.Fatalf("expected ErrNotWhitelistedForRemoval, got %v", err)
	}
	allowed, err = gate.Lookup(context.Background(), "alice")
	if err != nil || allowed {
		t.Fatalf("expected alice removed, allowed=%v err=%v", allowed, err)
	}
	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rec.events))
	}
	if rec.events[0].EventType() != events.TypeWhitelistAdded || rec.events[1].EventType() != events.TypeWhitelistRemoved {
		t.Fatalf("unexpected event sequence %v", rec.events)
	}
}

func TestGateRequiresAdmin(t *testing.T) {
	gate, rec := newTestGate(t)
	user := host.WithCaller(context.Background(), "alice")

	if err := gate.Add(user, "alice"); !errors.Is(err, host.ErrMissingAuthority) {
		t.Fatalf("expected missing authority, got %v", err)
	}
	if err := gate.Remove(context.Background(), "alice"); !errors.Is(err, host.ErrMissingAuthority) {
		t.Fatalf("expected missing authority without caller, got %v", err)
	}
	if _, err := gate.Members(user); !errors.Is(err, host.ErrMissingAuthority) {
		t.Fatalf("expected members to require admin, got %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatalf("rejected mutations must not emit events")
	}
}

func TestGateMembersSorted(t *testing.T) {
	gate, _ := newTestGate(t)
	admin := host.WithCaller(context.Background(), "ghoststaking")
	for _, name := range []string{"carol", "alice", "bob"} {
		if err := gate.Add(admin, types.Name(name)); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
	members, err := gate.Members(admin)
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 3 || members[0] != "alice" || members[2] != "carol" {
		t.Fatalf("unexpected members %v", members)
	}
}

func TestGateRejectsInvalidName(t *testing.T) {
	gate, _ := newTestGate(t)
	admin := host.WithCaller(context.Background(), "ghoststaking")
	if err := gate.Add(admin, "Not Valid"); err == nil {
		t.Fatalf("expected invalid name rejected")
	}
}
