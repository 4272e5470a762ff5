package staking

import (
	"fmt"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

const (
	SecondsPerDay = 24 * 60 * 60
	// SecondsPerYear fixes a year at 365 days for reward accrual.
	SecondsPerYear = 365 * SecondsPerDay
	// BasisPointsDenom expresses rates in hundredths of a percent.
	BasisPointsDenom = 10_000
)

// Params is the deployment configuration of the staking contract. It is fixed
// for the lifetime of an Engine.
type Params struct {
	// Contract is the custody account holding staked principal and reward
	// reserves. It is also the administrator of the allow-list.
	Contract types.Name
	// TokenContract is the issuer of the staked token.
	TokenContract types.Name
	Denomination  types.Symbol
	// AllowedTerms lists the selectable lock terms in seconds.
	AllowedTerms []uint64
	// CoolingOffDelay is the wait between an unstake request and withdrawal.
	CoolingOffDelay uint64
	// RewardRateBps is the annual simple-interest rate in basis points.
	RewardRateBps uint64
}

// DefaultParams returns the production deployment: GHOST with 4 decimals,
// 7/30/90/180/365 day terms, a 30 day cooling-off and a 10% annual rate.
func DefaultParams() Params {
	return Params{
		Contract:      "ghoststaking",
		TokenContract: "pupadventure",
		Denomination:  types.Symbol{Code: "GHOST", Precision: 4},
		AllowedTerms: []uint64{
			7 * SecondsPerDay,
			30 * SecondsPerDay,
			90 * SecondsPerDay,
			180 * SecondsPerDay,
			365 * SecondsPerDay,
		},
		CoolingOffDelay: 30 * SecondsPerDay,
		RewardRateBps:   1_000,
	}
}

// Validate checks that the params describe a usable deployment.
func (p Params) Validate() error {
	if err := p.Contract.Validate(); err != nil {
		return fmt.Errorf("%w: contract: %v", ErrInvalidParams, err)
	}
	if err := p.TokenContract.Validate(); err != nil {
		return fmt.Errorf("%w: token contract: %v", ErrInvalidParams, err)
	}
	if err := p.Denomination.Validate(); err != nil {
		return fmt.Errorf("%w: denomination: %v", ErrInvalidParams, err)
	}
	if len(p.AllowedTerms) == 0 {
		return fmt.Errorf("%w: at least one term required", ErrInvalidParams)
	}
	seen := make(map[uint64]struct{}, len(p.AllowedTerms))
	for _, term := range p.AllowedTerms {
		if term == 0 {
			return fmt.Errorf("%w: term must be positive", ErrInvalidParams)
		}
		if _, dup := seen[term]; dup {
			return fmt.Errorf("%w: duplicate term %d", ErrInvalidParams, term)
		}
		seen[term] = struct{}{}
	}
	if p.RewardRateBps == 0 {
		return fmt.Errorf("%w: reward rate must be positive", ErrInvalidParams)
	}
	return nil
}

// TermAllowed reports whether term is one of the configured lock terms.
func (p Params) TermAllowed(term uint64) bool {
	for _, allowed := range p.AllowedTerms {
		if allowed == term {
			return true
		}
	}
	return false
}

func (p Params) clone() Params {
	out := p
	out.AllowedTerms = append([]uint64(nil), p.AllowedTerms...)
	return out
}
