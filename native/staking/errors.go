package staking

import "errors"

var (
	ErrInvalidAmount       = errors.New("staking: invalid amount")
	ErrInvalidDenomination = errors.New("staking: invalid denomination")
	ErrInvalidTerm         = errors.New("staking: invalid term")
	ErrNotWhitelisted      = errors.New("staking: account not whitelisted")
	ErrNotFound            = errors.New("staking: stake not found")
	ErrUnauthorized        = errors.New("staking: stake not owned by caller")
	ErrAlreadyUnstaking    = errors.New("staking: stake already unstaking")
	ErrNoRewardsAvailable  = errors.New("staking: no rewards available")
	ErrNotUnstaking        = errors.New("staking: stake is not unstaking")
	ErrCoolingOff          = errors.New("staking: cooling-off period not elapsed")
	ErrRewardOverflow      = errors.New("staking: reward overflow")
	ErrAmountOverflow      = errors.New("staking: principal overflow")
	ErrInvalidParams       = errors.New("staking: invalid params")
	ErrNotInitialised      = errors.New("staking: engine not initialised")
)
