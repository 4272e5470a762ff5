package staking

import (
	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

// Status is the lifecycle state of a stake.
type Status string

const (
	// StatusActive stakes accrue reward and may be unstaked.
	StatusActive Status = "active"
	// StatusUnstaking stakes are in their cooling-off window.
	StatusUnstaking Status = "unstaking"
)

// StakeRecord is one locked position. Timestamps are unix seconds and zero
// means unset.
type StakeRecord struct {
	ID                 uint64
	Owner              types.Name
	Principal          types.Asset
	Term               uint64
	OpenedAt           uint64
	UnstakeRequestedAt uint64
	UnstakeReadyAt     uint64
	PendingReward      types.Asset
	// AccrualAnchor is where reward accrual restarts. It matches OpenedAt
	// after open and restake, and moves to the settlement time on claim and
	// compound.
	AccrualAnchor uint64
}

// Status derives the lifecycle state from the unstake request time.
func (r *StakeRecord) Status() Status {
	if r.UnstakeRequestedAt == 0 {
		return StatusActive
	}
	return StatusUnstaking
}

// Withdrawable reports whether the cooling-off window has elapsed at now.
func (r *StakeRecord) Withdrawable(now uint64) bool {
	return r.Status() == StatusUnstaking && now >= r.UnstakeReadyAt
}

// Copy returns a deep copy of the record.
func (r *StakeRecord) Copy() *StakeRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.Principal = r.Principal.Copy()
	out.PendingReward = r.PendingReward.Copy()
	return &out
}

// Position is a read model of a stake with its reward recomputed at AsOf.
type Position struct {
	Record       StakeRecord
	Status       Status
	Reward       types.Asset
	Withdrawable bool
	AsOf         uint64
}
