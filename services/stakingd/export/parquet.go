package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/writerfile"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/PuppyCerberus/token-staking-contract/native/staking"
)

// Row is the columnar form of one stake position.
type Row struct {
	StakeID            int64  `parquet:"name=stake_id, type=INT64"`
	Owner              string `parquet:"name=owner, type=BYTE_ARRAY, convertedtype=UTF8"`
	Status             string `parquet:"name=status, type=BYTE_ARRAY, convertedtype=UTF8"`
	Symbol             string `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	Principal          string `parquet:"name=principal, type=BYTE_ARRAY, convertedtype=UTF8"`
	PrincipalUnits     string `parquet:"name=principal_units, type=BYTE_ARRAY, convertedtype=UTF8"`
	PendingReward      string `parquet:"name=pending_reward, type=BYTE_ARRAY, convertedtype=UTF8"`
	TermDays           int64  `parquet:"name=term_days, type=INT64"`
	OpenedAt           int64  `parquet:"name=opened_at, type=INT64"`
	UnstakeRequestedAt int64  `parquet:"name=unstake_requested_at, type=INT64"`
	UnstakeReadyAt     int64  `parquet:"name=unstake_ready_at, type=INT64"`
	Withdrawable       bool   `parquet:"name=withdrawable, type=BOOLEAN"`
	AsOf               int64  `parquet:"name=as_of, type=INT64"`
}

// RowFromPosition flattens a position into an export row.
func RowFromPosition(pos staking.Position) Row {
	rec := pos.Record
	return Row{
		StakeID:            int64(rec.ID),
		Owner:              rec.Owner.String(),
		Status:             string(pos.Status),
		Symbol:             rec.Principal.Symbol.String(),
		Principal:          rec.Principal.String(),
		PrincipalUnits:     rec.Principal.Units().Dec(),
		PendingReward:      pos.Reward.String(),
		TermDays:           int64(rec.Term / staking.SecondsPerDay),
		OpenedAt:           int64(rec.OpenedAt),
		UnstakeRequestedAt: int64(rec.UnstakeRequestedAt),
		UnstakeReadyAt:     int64(rec.UnstakeReadyAt),
		Withdrawable:       pos.Withdrawable,
		AsOf:               int64(pos.AsOf),
	}
}

// Snapshot writes positions into a timestamped parquet file under dir and
// returns its path.
func Snapshot(dir string, positions []staking.Position, at time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("positions-%s.parquet", at.UTC().Format("20060102T150405Z")))
	rows := make([]Row, 0, len(positions))
	for _, pos := range positions {
		rows = append(rows, RowFromPosition(pos))
	}
	if err := WriteParquet(path, rows); err != nil {
		return "", err
	}
	return path, nil
}

// WriteParquet writes rows to path with snappy compression.
func WriteParquet(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create parquet: %w", err)
	}
	fw := writerfile.NewWriterFile(file)
	pw, err := writer.NewParquetWriter(fw, new(Row), 1)
	if err != nil {
		file.Close()
		return fmt.Errorf("export: parquet schema: %w", err)
	}
	pw.RowGroupSize = 16 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(&rows[i]); err != nil {
			pw.WriteStop()
			file.Close()
			return fmt.Errorf("export: parquet write: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		file.Close()
		return fmt.Errorf("export: parquet flush: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("export: close parquet file: %w", err)
	}
	return nil
}
