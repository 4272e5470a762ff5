package events

import (
	"strconv"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

const (
	// TypeStakeOpened is emitted when tokens are locked into a new stake.
	TypeStakeOpened = "stake.opened"
	// TypeStakeUnstakeRequested marks the start of the cooling-off window.
	TypeStakeUnstakeRequested = "stake.unstake_requested"
	// TypeStakeRestaked is emitted when a stake is reset to active.
	TypeStakeRestaked = "stake.restaked"
	// TypeStakeRewardClaimed is emitted when accrued reward is paid out.
	TypeStakeRewardClaimed = "stake.reward_claimed"
	// TypeStakeRewardCompounded is emitted when accrued reward joins principal.
	TypeStakeRewardCompounded = "stake.reward_compounded"
	// TypeStakeWithdrawn is emitted when principal leaves custody.
	TypeStakeWithdrawn = "stake.withdrawn"
	// TypeWhitelistAdded and TypeWhitelistRemoved track allow-list changes.
	TypeWhitelistAdded   = "whitelist.added"
	TypeWhitelistRemoved = "whitelist.removed"
)

// StakeOpened captures a newly created stake.
type StakeOpened struct {
	ID        uint64
	Owner     types.Name
	Principal types.Asset
	Term      uint64
	OpenedAt  uint64
}

// EventType satisfies the Event interface.
func (StakeOpened) EventType() string { return TypeStakeOpened }

// Event converts the structured payload into a broadcastable event.
func (e StakeOpened) Event() *types.Event {
	return &types.Event{Type: TypeStakeOpened, Attributes: map[string]string{
		"id":        formatUint(e.ID),
		"owner":     e.Owner.String(),
		"principal": e.Principal.String(),
		"term":      formatUint(e.Term),
		"openedAt":  formatUint(e.OpenedAt),
	}}
}

// StakeUnstakeRequested captures the cooling-off window of a stake.
type StakeUnstakeRequested struct {
	ID          uint64
	Owner       types.Name
	RequestedAt uint64
	ReadyAt     uint64
}

// EventType satisfies the Event interface.
func (StakeUnstakeRequested) EventType() string { return TypeStakeUnstakeRequested }

// Event converts the structured payload into a broadcastable event.
func (e StakeUnstakeRequested) Event() *types.Event {
	return &types.Event{Type: TypeStakeUnstakeRequested, Attributes: map[string]string{
		"id":          formatUint(e.ID),
		"owner":       e.Owner.String(),
		"requestedAt": formatUint(e.RequestedAt),
		"readyAt":     formatUint(e.ReadyAt),
	}}
}

// StakeRestaked captures the new accrual anchor of a restaked position.
type StakeRestaked struct {
	ID       uint64
	Owner    types.Name
	OpenedAt uint64
}

// EventType satisfies the Event interface.
func (StakeRestaked) EventType() string { return TypeStakeRestaked }

// Event converts the structured payload into a broadcastable event.
func (e StakeRestaked) Event() *types.Event {
	return &types.Event{Type: TypeStakeRestaked, Attributes: map[string]string{
		"id":       formatUint(e.ID),
		"owner":    e.Owner.String(),
		"openedAt": formatUint(e.OpenedAt),
	}}
}

// StakeRewardClaimed captures a reward payout.
type StakeRewardClaimed struct {
	ID     uint64
	Owner  types.Name
	Reward types.Asset
}

// EventType satisfies the Event interface.
func (StakeRewardClaimed) EventType() string { return TypeStakeRewardClaimed }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardClaimed) Event() *types.Event {
	return &types.Event{Type: TypeStakeRewardClaimed, Attributes: map[string]string{
		"id":     formatUint(e.ID),
		"owner":  e.Owner.String(),
		"reward": e.Reward.String(),
	}}
}

// StakeRewardCompounded captures reward folded into principal.
type StakeRewardCompounded struct {
	ID        uint64
	Owner     types.Name
	Reward    types.Asset
	Principal types.Asset
}

// EventType satisfies the Event interface.
func (StakeRewardCompounded) EventType() string { return TypeStakeRewardCompounded }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewardCompounded) Event() *types.Event {
	return &types.Event{Type: TypeStakeRewardCompounded, Attributes: map[string]string{
		"id":        formatUint(e.ID),
		"owner":     e.Owner.String(),
		"reward":    e.Reward.String(),
		"principal": e.Principal.String(),
	}}
}

// StakeWithdrawn captures principal returned after the cooling-off window.
type StakeWithdrawn struct {
	ID        uint64
	Owner     types.Name
	Principal types.Asset
}

// EventType satisfies the Event interface.
func (StakeWithdrawn) EventType() string { return TypeStakeWithdrawn }

// Event converts the structured payload into a broadcastable event.
func (e StakeWithdrawn) Event() *types.Event {
	return &types.Event{Type: TypeStakeWithdrawn, Attributes: map[string]string{
		"id":        formatUint(e.ID),
		"owner":     e.Owner.String(),
		"principal": e.Principal.String(),
	}}
}

// WhitelistChanged captures an allow-list mutation.
type WhitelistChanged struct {
	Account types.Name
	Added   bool
}

// EventType satisfies the Event interface.
func (e WhitelistChanged) EventType() string {
	if e.Added {
		return TypeWhitelistAdded
	}
	return TypeWhitelistRemoved
}

// Event converts the structured payload into a broadcastable event.
func (e WhitelistChanged) Event() *types.Event {
	return &types.Event{Type: e.EventType(), Attributes: map[string]string{
		"account": e.Account.String(),
	}}
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
