package staking

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

type registryState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	KVKeys(prefix []byte) ([][]byte, error)
}

var (
	sequenceKey = []byte("staking/sequence")
	stakePrefix = []byte("staking/stake/")
	ownerPrefix = "staking/owner/"
)

func encodeID(id uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	return buf[:]
}

func stakeKey(id uint64) []byte {
	key := make([]byte, 0, len(stakePrefix)+8)
	key = append(key, stakePrefix...)
	return append(key, encodeID(id)...)
}

func ownerKey(owner types.Name) []byte {
	return []byte(ownerPrefix + owner.String())
}

// Registry stores stake records by id alongside a per-owner index of ids.
// Both are written through the same state so they stay consistent inside one
// command.
type Registry struct {
	state registryState
}

// NewRegistry constructs a registry backed by the provided state accessor.
func NewRegistry(state registryState) *Registry {
	return &Registry{state: state}
}

// Create assigns the next id to rec, stores it and indexes it by owner.
func (r *Registry) Create(rec *StakeRecord) error {
	if r == nil || r.state == nil {
		return errors.New("staking: registry not initialised")
	}
	if rec == nil {
		return fmt.Errorf("staking: nil record")
	}
	var next uint64
	if _, err := r.state.KVGet(sequenceKey, &next); err != nil {
		return err
	}
	rec.ID = next
	if err := r.state.KVPut(sequenceKey, next+1); err != nil {
		return err
	}
	if err := r.Put(rec); err != nil {
		return err
	}
	return r.state.KVAppend(ownerKey(rec.Owner), encodeID(rec.ID))
}

// Get loads a record. The boolean reports whether it exists.
func (r *Registry) Get(id uint64) (*StakeRecord, bool, error) {
	if r == nil || r.state == nil {
		return nil, false, errors.New("staking: registry not initialised")
	}
	rec := new(StakeRecord)
	ok, err := r.state.KVGet(stakeKey(id), rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return rec, true, nil
}

// Put overwrites an existing record.
func (r *Registry) Put(rec *StakeRecord) error {
	if r == nil || r.state == nil {
		return errors.New("staking: registry not initialised")
	}
	return r.state.KVPut(stakeKey(rec.ID), rec)
}

// Delete removes a record and its owner index entry.
func (r *Registry) Delete(rec *StakeRecord) error {
	if r == nil || r.state == nil {
		return errors.New("staking: registry not initialised")
	}
	if err := r.state.KVDelete(stakeKey(rec.ID)); err != nil {
		return err
	}
	return r.state.KVRemove(ownerKey(rec.Owner), encodeID(rec.ID))
}

// IDsByOwner returns the ids of the owner's records in ascending order.
func (r *Registry) IDsByOwner(owner types.Name) ([]uint64, error) {
	if r == nil || r.state == nil {
		return nil, errors.New("staking: registry not initialised")
	}
	var raw [][]byte
	if err := r.state.KVGetList(ownerKey(owner), &raw); err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 8 {
			return nil, fmt.Errorf("staking: corrupt owner index entry for %s", owner)
		}
		ids = append(ids, binary.BigEndian.Uint64(entry))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ByOwner loads the owner's records ordered by id.
func (r *Registry) ByOwner(owner types.Name) ([]*StakeRecord, error) {
	ids, err := r.IDsByOwner(owner)
	if err != nil {
		return nil, err
	}
	records := make([]*StakeRecord, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("staking: owner index for %s references missing stake %d", owner, id)
		}
		records = append(records, rec)
	}
	return records, nil
}

// All loads every live record ordered by id.
func (r *Registry) All() ([]*StakeRecord, error) {
	if r == nil || r.state == nil {
		return nil, errors.New("staking: registry not initialised")
	}
	keys, err := r.state.KVKeys(stakePrefix)
	if err != nil {
		return nil, err
	}
	records := make([]*StakeRecord, 0, len(keys))
	for _, key := range keys {
		rec := new(StakeRecord)
		if _, err := r.state.KVGet(key, rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
