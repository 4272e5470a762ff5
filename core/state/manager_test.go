package state

import (
	"testing"

	"github.com/PuppyCerberus/token-staking-contract/storage"
)

type sample struct {
	Name  string
	Value uint64
}

func TestManagerKVRoundTripAndCommit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("sample/a"), sample{Name: "a", Value: 7}); err != nil {
		t.Fatalf("put: %v", err)
	}
	var got sample
	ok, err := mgr.KVGet([]byte("sample/a"), &got)
	if err != nil || !ok {
		t.Fatalf("expected pending value visible: ok=%v err=%v", ok, err)
	}
	if got.Name != "a" || got.Value != 7 {
		t.Fatalf("unexpected value %+v", got)
	}
	if has, _ := db.Has([]byte("sample/a")); has {
		t.Fatalf("value reached database before commit")
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if has, _ := db.Has([]byte("sample/a")); !has {
		t.Fatalf("value missing after commit")
	}
	if mgr.Pending() != 0 {
		t.Fatalf("expected clean overlay after commit")
	}

	reopened := NewManager(db)
	ok, err = reopened.KVGet([]byte("sample/a"), &got)
	if err != nil || !ok || got.Value != 7 {
		t.Fatalf("expected committed value, ok=%v err=%v got=%+v", ok, err, got)
	}
}

func TestManagerRevertToSnapshot(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.KVPut([]byte("k"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	snap := mgr.Snapshot()
	if err := mgr.KVPut([]byte("k"), uint64(2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.KVPut([]byte("fresh"), uint64(3)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.KVDelete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := mgr.KVGet([]byte("k"), nil); ok {
		t.Fatalf("expected k hidden by pending delete")
	}

	mgr.RevertToSnapshot(snap)

	var value uint64
	ok, err := mgr.KVGet([]byte("k"), &value)
	if err != nil || !ok || value != 1 {
		t.Fatalf("expected committed value 1, ok=%v err=%v value=%d", ok, err, value)
	}
	if ok, _ := mgr.KVGet([]byte("fresh"), nil); ok {
		t.Fatalf("expected fresh key reverted")
	}
	if mgr.Pending() != 0 {
		t.Fatalf("expected empty overlay, got %d", mgr.Pending())
	}
}

func TestManagerListHelpers(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	key := []byte("index/alice")

	var empty [][]byte
	if err := mgr.KVGetList(key, &empty); err != nil {
		t.Fatalf("get empty list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected non-nil empty list")
	}

	for _, v := range []string{"a", "b", "a", "c"} {
		if err := mgr.KVAppend(key, []byte(v)); err != nil {
			t.Fatalf("append %s: %v", v, err)
		}
	}
	var list [][]byte
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 3 || string(list[0]) != "a" || string(list[2]) != "c" {
		t.Fatalf("unexpected list %q", list)
	}

	if err := mgr.KVRemove(key, []byte("b")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 || string(list[1]) != "c" {
		t.Fatalf("unexpected list after remove %q", list)
	}
	if err := mgr.KVRemove(key, []byte("a")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := mgr.KVRemove(key, []byte("c")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if ok, _ := mgr.KVGet(key, nil); ok {
		t.Fatalf("expected key deleted once list empty")
	}
}

func TestManagerKeysMergesOverlay(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	for _, k := range []string{"p/1", "p/2", "q/1"} {
		if err := mgr.KVPut([]byte(k), uint64(1)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mgr.KVDelete([]byte("p/1")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mgr.KVPut([]byte("p/0"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	keys, err := mgr.KVKeys([]byte("p/"))
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || string(keys[0]) != "p/0" || string(keys[1]) != "p/2" {
		t.Fatalf("unexpected keys %q", keys)
	}
}
