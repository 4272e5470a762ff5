package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/native/staking"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ghost := types.Symbol{Code: "GHOST", Precision: 4}
	positions := []staking.Position{
		{
			Record: staking.StakeRecord{
				ID:        0,
				Owner:     "alice",
				Principal: types.NewAssetUnits(10_000_000, ghost),
				Term:      30 * staking.SecondsPerDay,
				OpenedAt:  1_700_000_000,
			},
			Status: staking.StatusActive,
			Reward: types.NewAssetUnits(2_739, ghost),
			AsOf:   1_700_086_400,
		},
		{
			Record: staking.StakeRecord{
				ID:                 3,
				Owner:              "bob",
				Principal:          types.NewAssetUnits(500, ghost),
				Term:               7 * staking.SecondsPerDay,
				OpenedAt:           1_700_000_000,
				UnstakeRequestedAt: 1_700_000_100,
				UnstakeReadyAt:     1_700_000_100 + 30*staking.SecondsPerDay,
			},
			Status:       staking.StatusUnstaking,
			Reward:       types.NewAssetUnits(0, ghost),
			Withdrawable: false,
			AsOf:         1_700_086_400,
		},
	}

	dir := filepath.Join(t.TempDir(), "exports")
	path, err := Snapshot(dir, positions, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "positions-20240301T120000Z.parquet"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NotZero(t, info.Size())

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()
	pr, err := reader.NewParquetReader(fr, new(Row), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.EqualValues(t, 2, pr.GetNumRows())
	rows := make([]Row, 2)
	require.NoError(t, pr.Read(&rows))

	require.Equal(t, "alice", rows[0].Owner)
	require.Equal(t, "1000.0000 GHOST", rows[0].Principal)
	require.Equal(t, "10000000", rows[0].PrincipalUnits)
	require.Equal(t, "0.2739 GHOST", rows[0].PendingReward)
	require.EqualValues(t, 30, rows[0].TermDays)
	require.Equal(t, "active", rows[0].Status)

	require.EqualValues(t, 3, rows[1].StakeID)
	require.Equal(t, "unstaking", rows[1].Status)
	require.Equal(t, "4,GHOST", rows[1].Symbol)
	require.False(t, rows[1].Withdrawable)
}

func TestSnapshotEmpty(t *testing.T) {
	path, err := Snapshot(t.TempDir(), nil, time.Unix(0, 0))
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)
}
