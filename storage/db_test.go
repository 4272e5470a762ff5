package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func exerciseDatabase(t *testing.T, db Database) {
	t.Helper()

	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := db.Put([]byte("stake/2"), []byte("b")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.Put([]byte("stake/1"), []byte("a")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := db.Put([]byte("other"), []byte("c")); err != nil {
		t.Fatalf("put: %v", err)
	}
	value, err := db.Get([]byte("stake/1"))
	if err != nil || string(value) != "a" {
		t.Fatalf("unexpected get result %q err=%v", value, err)
	}
	keys, err := db.Keys([]byte("stake/"))
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if len(keys) != 2 || string(keys[0]) != "stake/1" || string(keys[1]) != "stake/2" {
		t.Fatalf("unexpected keys %q", keys)
	}

	batch := db.NewBatch()
	batch.Delete([]byte("stake/1"))
	batch.Put([]byte("stake/3"), []byte("d"))
	if batch.Len() != 2 {
		t.Fatalf("expected 2 batched ops, got %d", batch.Len())
	}
	if ok, _ := db.Has([]byte("stake/3")); ok {
		t.Fatalf("batch applied before Write")
	}
	if err := batch.Write(); err != nil {
		t.Fatalf("write batch: %v", err)
	}
	if ok, _ := db.Has([]byte("stake/1")); ok {
		t.Fatalf("expected stake/1 deleted")
	}
	if ok, _ := db.Has([]byte("stake/3")); !ok {
		t.Fatalf("expected stake/3 present")
	}
	if err := db.Delete([]byte("other")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := db.Has([]byte("other")); ok {
		t.Fatalf("expected other deleted")
	}
}

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestMemDBReturnsCopies(t *testing.T) {
	db := NewMemDB()
	value := []byte("abc")
	if err := db.Put([]byte("k"), value); err != nil {
		t.Fatalf("put: %v", err)
	}
	value[0] = 'z'
	got, _ := db.Get([]byte("k"))
	if string(got) != "abc" {
		t.Fatalf("stored value aliased caller slice: %q", got)
	}
}
