package staking

import (
	"github.com/holiman/uint256"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

var rewardDenominator = uint256.NewInt(SecondsPerYear * BasisPointsDenom)

// ComputeReward returns the simple interest earned by principal between
// anchor and now at rateBps per year:
//
//	floor(principal * rateBps * elapsed / (SecondsPerYear * 10_000))
//
// A clock that moves backwards yields zero.
func ComputeReward(principal *uint256.Int, anchor, now, rateBps uint64) (*uint256.Int, error) {
	if principal == nil || principal.IsZero() || rateBps == 0 || now <= anchor {
		return new(uint256.Int), nil
	}
	elapsed := now - anchor
	factor := new(uint256.Int).Mul(uint256.NewInt(rateBps), uint256.NewInt(elapsed))
	reward, overflow := new(uint256.Int).MulDivOverflow(principal, factor, rewardDenominator)
	if overflow {
		return nil, ErrRewardOverflow
	}
	return reward, nil
}

// RewardEngine binds ComputeReward to a fixed rate.
type RewardEngine struct {
	RateBps uint64
}

// Accrued returns the reward earned by principal since anchor, denominated
// like principal.
func (e RewardEngine) Accrued(principal types.Asset, anchor, now uint64) (types.Asset, error) {
	reward, err := ComputeReward(principal.Amount, anchor, now, e.RateBps)
	if err != nil {
		return types.Asset{}, err
	}
	return types.Asset{Amount: reward, Symbol: principal.Symbol}, nil
}
