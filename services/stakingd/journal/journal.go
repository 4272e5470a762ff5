package journal

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"github.com/PuppyCerberus/token-staking-contract/core/events"
)

// DefaultHistoryLimit caps history queries without an explicit limit.
const DefaultHistoryLimit = 100

// Activity is one committed lifecycle event as stored in the journal.
type Activity struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Digest     string    `gorm:"size:64;uniqueIndex" json:"digest"`
	Sequence   uint64    `gorm:"index" json:"sequence"`
	Type       string    `gorm:"size:64;index" json:"type"`
	StakeID    *uint64   `gorm:"index" json:"stake_id,omitempty"`
	Account    string    `gorm:"size:12;index" json:"account"`
	Attributes string    `gorm:"type:text" json:"-"`
	OccurredAt time.Time `gorm:"index" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Attrs decodes the stored attribute map.
func (a Activity) Attrs() map[string]string {
	out := map[string]string{}
	if a.Attributes == "" {
		return out
	}
	_ = json.Unmarshal([]byte(a.Attributes), &out)
	return out
}

// Journal persists lifecycle events for history queries. It is an append-only
// audit trail and never feeds back into staking state.
type Journal struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to dsn, using PostgreSQL when postgres is set and SQLite
// otherwise, and migrates the schema.
func Open(dsn string, usePostgres bool, log *slog.Logger) (*Journal, error) {
	var dialector gorm.Dialector
	if usePostgres {
		dialector = postgres.Open(dsn)
	} else {
		dialector = sqlite.Open(dsn)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return New(db, log)
}

// New wraps an existing gorm handle and migrates the schema.
func New(db *gorm.DB, log *slog.Logger) (*Journal, error) {
	if db == nil {
		return nil, errors.New("journal: nil database")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := db.AutoMigrate(&Activity{}); err != nil {
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return &Journal{db: db, logger: log}, nil
}

// Digest fingerprints an envelope so replays of the same event are stored once.
func Digest(env events.Envelope) string {
	keys := make([]string, 0, len(env.Event.Attributes))
	for k := range env.Event.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := blake3.New(32, nil)
	_, _ = h.Write([]byte(env.Event.Type))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatUint(env.Sequence, 10)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatInt(env.Timestamp, 10)))
	for _, k := range keys {
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(k))
		_, _ = h.Write([]byte{'='})
		_, _ = h.Write([]byte(env.Event.Attributes[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Record stores env. It reports false when an identical event was already
// journaled.
func (j *Journal) Record(ctx context.Context, env events.Envelope) (bool, error) {
	attrs, err := json.Marshal(env.Event.Attributes)
	if err != nil {
		return false, err
	}
	row := Activity{
		ID:         uuid.New(),
		Digest:     Digest(env),
		Sequence:   env.Sequence,
		Type:       env.Event.Type,
		Account:    accountOf(env.Event.Attributes),
		Attributes: string(attrs),
		OccurredAt: time.Unix(env.Timestamp, 0).UTC(),
	}
	if raw, ok := env.Event.Attributes["id"]; ok {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			row.StakeID = &id
		}
	}
	res := j.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "digest"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("journal: record %s: %w", env.Event.Type, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Run records envelopes until updates closes or ctx ends. Feed it from
// Bus.SubscribeDurable so bursts larger than a subscriber buffer are kept.
func (j *Journal) Run(ctx context.Context, backlog []events.Envelope, updates <-chan events.Envelope) {
	for _, env := range backlog {
		j.record(ctx, env)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-updates:
			if !ok {
				return
			}
			j.record(ctx, env)
		}
	}
}

func (j *Journal) record(ctx context.Context, env events.Envelope) {
	if _, err := j.Record(ctx, env); err != nil {
		j.logger.Error("journal write failed",
			slog.String("type", env.Event.Type),
			slog.Uint64("sequence", env.Sequence),
			slog.Any("error", err))
	}
}

// StakeHistory returns the events of one stake owned by account, oldest first.
func (j *Journal) StakeHistory(ctx context.Context, account string, stakeID uint64, limit int) ([]Activity, error) {
	var rows []Activity
	err := j.db.WithContext(ctx).
		Where("stake_id = ? AND account = ?", stakeID, account).
		Order("occurred_at ASC").Order("sequence ASC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

// AccountHistory returns the most recent events touching account, newest first.
func (j *Journal) AccountHistory(ctx context.Context, account string, limit int) ([]Activity, error) {
	var rows []Activity
	err := j.db.WithContext(ctx).
		Where("account = ?", account).
		Order("occurred_at DESC").Order("sequence DESC").
		Limit(clampLimit(limit)).
		Find(&rows).Error
	return rows, err
}

// Close releases the underlying connection pool.
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func accountOf(attrs map[string]string) string {
	if owner := attrs["owner"]; owner != "" {
		return owner
	}
	return attrs["account"]
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultHistoryLimit {
		return DefaultHistoryLimit
	}
	return limit
}
