package staking

import (
	"testing"

	"github.com/PuppyCerberus/token-staking-contract/core/state"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/storage"
)

func TestRegistryCreateIndexesByOwner(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	reg := NewRegistry(mgr)

	owners := []types.Name{"alice", "bob", "alice"}
	for i, owner := range owners {
		rec := &StakeRecord{Owner: owner, Principal: units(uint64(10 * (i + 1))), PendingReward: units(0)}
		if err := reg.Create(rec); err != nil {
			t.Fatalf("create: %v", err)
		}
		if rec.ID != uint64(i) {
			t.Fatalf("expected id %d, got %d", i, rec.ID)
		}
	}

	ids, err := reg.IDsByOwner("alice")
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != 0 || ids[1] != 2 {
		t.Fatalf("unexpected alice ids %v", ids)
	}

	rec, ok, err := reg.Get(2)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if rec.Owner != "alice" || rec.Principal.Amount.Uint64() != 30 || rec.Principal.Symbol != ghost {
		t.Fatalf("unexpected decoded record %+v", rec)
	}

	if err := reg.Delete(rec); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := reg.Get(2); ok {
		t.Fatalf("expected record deleted")
	}
	records, err := reg.ByOwner("alice")
	if err != nil {
		t.Fatalf("by owner: %v", err)
	}
	if len(records) != 1 || records[0].ID != 0 {
		t.Fatalf("unexpected records after delete %+v", records)
	}

	next := &StakeRecord{Owner: "carol", Principal: units(1), PendingReward: units(0)}
	if err := reg.Create(next); err != nil {
		t.Fatalf("create: %v", err)
	}
	if next.ID != 3 {
		t.Fatalf("ids must never be reused, got %d", next.ID)
	}

	all, err := reg.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 || all[0].ID != 0 || all[1].ID != 1 || all[2].ID != 3 {
		t.Fatalf("unexpected all records %+v", all)
	}
}

func TestRegistryGetMissing(t *testing.T) {
	reg := NewRegistry(state.NewManager(storage.NewMemDB()))
	rec, ok, err := reg.Get(5)
	if err != nil || ok || rec != nil {
		t.Fatalf("expected missing record, got rec=%v ok=%v err=%v", rec, ok, err)
	}
	ids, err := reg.IDsByOwner("nobody")
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty index, got %v err=%v", ids, err)
	}
}
