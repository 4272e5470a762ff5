package main

import (
	"context"
	"log/slog"

	"github.com/PuppyCerberus/token-staking-contract/config"
	"github.com/PuppyCerberus/token-staking-contract/core/host"
	"github.com/PuppyCerberus/token-staking-contract/native/bank"
)

var genesisMarker = []byte("stakingd/genesis")

type genesisRecord struct {
	AppliedAt uint64
	Accounts  uint64
}

// applyGenesis mints the configured allocations the first time the state is
// opened. It reports whether anything was minted.
func applyGenesis(ctx context.Context, exec *host.Executor, ledger *bank.Ledger, balances []config.Balance, logger *slog.Logger) (bool, error) {
	applied := false
	err := exec.Execute(ctx, "genesis", func(now uint64) error {
		st := exec.State()
		seen, err := st.KVGet(genesisMarker, nil)
		if err != nil || seen {
			return err
		}
		for _, bal := range balances {
			if err := ledger.Mint(bal.Account, bal.Quantity); err != nil {
				return err
			}
			logger.Info("genesis allocation",
				slog.String("account", bal.Account.String()),
				slog.String("quantity", bal.Quantity.String()))
		}
		applied = true
		return st.KVPut(genesisMarker, genesisRecord{AppliedAt: now, Accounts: uint64(len(balances))})
	})
	return applied, err
}
