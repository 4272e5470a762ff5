package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/PuppyCerberus/token-staking-contract/config"
	"github.com/PuppyCerberus/token-staking-contract/core/host"
	"github.com/PuppyCerberus/token-staking-contract/core/state"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/native/bank"
	stakingdconfig "github.com/PuppyCerberus/token-staking-contract/services/stakingd/config"
	"github.com/PuppyCerberus/token-staking-contract/storage"
)

func TestApplyGenesisRunsOnce(t *testing.T) {
	dir := t.TempDir()
	ghost := types.Symbol{Code: "GHOST", Precision: 4}
	balances := []config.Balance{
		{Account: "alice", Quantity: types.NewAssetUnits(1_000, ghost)},
		{Account: "ghoststaking", Quantity: types.NewAssetUnits(50, ghost)},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := host.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) })

	db, err := openState(dir)
	require.NoError(t, err)
	exec := host.NewExecutor(state.NewManager(db), clock)
	ledger := bank.NewLedger(exec.State(), logger)

	minted, err := applyGenesis(context.Background(), exec, ledger, balances, logger)
	require.NoError(t, err)
	require.True(t, minted)
	minted, err = applyGenesis(context.Background(), exec, ledger, balances, logger)
	require.NoError(t, err)
	require.False(t, minted)
	db.Close()

	reopened, err := openState(dir)
	require.NoError(t, err)
	defer reopened.Close()
	exec = host.NewExecutor(state.NewManager(reopened), clock)
	ledger = bank.NewLedger(exec.State(), logger)
	minted, err = applyGenesis(context.Background(), exec, ledger, balances, logger)
	require.NoError(t, err)
	require.False(t, minted)

	bal, err := ledger.Balance("alice", ghost)
	require.NoError(t, err)
	require.EqualValues(t, 1_000, bal.Amount.Uint64())
	supply, err := ledger.Supply(ghost)
	require.NoError(t, err)
	require.EqualValues(t, 1_050, supply.Amount.Uint64())
}

func TestOpenStateMemory(t *testing.T) {
	db, err := openState(stakingdconfig.MemoryDataDir)
	require.NoError(t, err)
	defer db.Close()
	_, ok := db.(*storage.MemDB)
	require.True(t, ok)

	disk, err := openState(filepath.Join(t.TempDir(), "nested"))
	require.NoError(t, err)
	disk.Close()
}
