package staking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/PuppyCerberus/token-staking-contract/core/events"
	"github.com/PuppyCerberus/token-staking-contract/core/host"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/observability/metrics"
)

// Transfer memos recorded on the token ledger.
const (
	MemoStake    = "Stake tokens"
	MemoClaim    = "Claim staking rewards"
	MemoWithdraw = "Withdraw staked tokens"
)

// Ledger moves tokens into and out of the contract's custody. Any error
// aborts the enclosing command.
type Ledger interface {
	Transfer(ctx context.Context, from, to types.Name, quantity types.Asset, memo string) error
}

// Gate reports allow-list membership from inside an executing command.
type Gate interface {
	IsAllowed(account types.Name) (bool, error)
}

// Option customises an Engine.
type Option func(*Engine)

// WithEmitter routes committed lifecycle events to emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics overrides the metrics sink. A nil sink disables metrics.
func WithMetrics(m *metrics.StakingMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine runs the stake lifecycle commands. Each command executes inside one
// host.Executor section, so the record mutation, the owner index and any
// ledger transfer on the shared state commit or revert together.
type Engine struct {
	params   Params
	exec     *host.Executor
	registry *Registry
	gate     Gate
	ledger   Ledger
	rewards  RewardEngine
	emitter  events.Emitter
	logger   *slog.Logger
	metrics  *metrics.StakingMetrics
	tracer   trace.Tracer
}

// NewEngine validates params and wires the engine to its collaborators.
func NewEngine(params Params, exec *host.Executor, gate Gate, ledger Ledger, opts ...Option) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if exec == nil || gate == nil || ledger == nil {
		return nil, ErrNotInitialised
	}
	e := &Engine{
		params:   params.clone(),
		exec:     exec,
		registry: NewRegistry(exec.State()),
		gate:     gate,
		ledger:   ledger,
		rewards:  RewardEngine{RateBps: params.RewardRateBps},
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		metrics:  metrics.Staking(),
		tracer:   otel.Tracer("github.com/PuppyCerberus/token-staking-contract/native/staking"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e, nil
}

// Params returns a copy of the deployment params.
func (e *Engine) Params() Params { return e.params.clone() }

func (e *Engine) run(ctx context.Context, op string, user types.Name, id *uint64, fn func(now uint64) error) error {
	attrs := []attribute.KeyValue{attribute.String("staking.user", user.String())}
	if id != nil {
		attrs = append(attrs, attribute.Int64("staking.stake_id", int64(*id)))
	}
	ctx, span := e.tracer.Start(ctx, "staking."+op, trace.WithAttributes(attrs...))
	defer span.End()

	started := time.Now()
	err := e.exec.Execute(ctx, "staking."+op, func(now uint64) error {
		if err := host.RequireCaller(ctx, user); err != nil {
			return err
		}
		return fn(now)
	})
	e.metrics.ObserveOperation(op, started, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.Debug("staking command rejected",
			slog.String("op", op),
			slog.String("user", user.String()),
			slog.Any("error", err))
		return err
	}
	return nil
}

// loadOwned fetches a record and checks that user owns it.
func (e *Engine) loadOwned(user types.Name, id uint64) (*StakeRecord, error) {
	rec, ok, err := e.registry.Get(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if rec.Owner != user {
		return nil, fmt.Errorf("%w: stake %d", ErrUnauthorized, id)
	}
	return rec, nil
}

// settle recomputes the pending reward from the accrual anchor.
func (e *Engine) settle(rec *StakeRecord, now uint64) error {
	reward, err := e.rewards.Accrued(rec.Principal, rec.AccrualAnchor, now)
	if err != nil {
		return err
	}
	rec.PendingReward = reward
	return nil
}

// Open locks quantity from user for term seconds and returns the new record.
func (e *Engine) Open(ctx context.Context, user types.Name, quantity types.Asset, term uint64) (*StakeRecord, error) {
	var created *StakeRecord
	err := e.run(ctx, "open", user, nil, func(now uint64) error {
		if quantity.IsZero() {
			return ErrInvalidAmount
		}
		if quantity.Symbol != e.params.Denomination {
			return fmt.Errorf("%w: got %s, want %s", ErrInvalidDenomination, quantity.Symbol, e.params.Denomination)
		}
		if !e.params.TermAllowed(term) {
			return fmt.Errorf("%w: %d seconds", ErrInvalidTerm, term)
		}
		allowed, err := e.gate.IsAllowed(user)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("%w: %s", ErrNotWhitelisted, user)
		}
		if err := e.ledger.Transfer(ctx, user, e.params.Contract, quantity, MemoStake); err != nil {
			return fmt.Errorf("staking: stake transfer: %w", err)
		}
		rec := &StakeRecord{
			Owner:         user,
			Principal:     quantity.Copy(),
			Term:          term,
			OpenedAt:      now,
			PendingReward: types.ZeroAsset(quantity.Symbol),
			AccrualAnchor: now,
		}
		if err := e.registry.Create(rec); err != nil {
			return err
		}
		created = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("stake opened",
		slog.Uint64("id", created.ID),
		slog.String("owner", user.String()),
		slog.String("principal", created.Principal.String()),
		slog.Uint64("term", term))
	e.emitter.Emit(events.StakeOpened{
		ID:        created.ID,
		Owner:     created.Owner,
		Principal: created.Principal.Copy(),
		Term:      created.Term,
		OpenedAt:  created.OpenedAt,
	})
	return created.Copy(), nil
}

// RequestUnstake starts the cooling-off window. Reward keeps accruing.
func (e *Engine) RequestUnstake(ctx context.Context, user types.Name, id uint64) (*StakeRecord, error) {
	var updated *StakeRecord
	err := e.run(ctx, "unstake", user, &id, func(now uint64) error {
		rec, err := e.loadOwned(user, id)
		if err != nil {
			return err
		}
		if rec.Status() != StatusActive {
			return fmt.Errorf("%w: %d", ErrAlreadyUnstaking, id)
		}
		rec.UnstakeRequestedAt = now
		rec.UnstakeReadyAt = now + e.params.CoolingOffDelay
		if err := e.registry.Put(rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.StakeUnstakeRequested{
		ID:          updated.ID,
		Owner:       updated.Owner,
		RequestedAt: updated.UnstakeRequestedAt,
		ReadyAt:     updated.UnstakeReadyAt,
	})
	return updated, nil
}

// Restake returns a stake to active from any state and restarts accrual at
// now. Reward accrued since the last settlement is forfeited.
func (e *Engine) Restake(ctx context.Context, user types.Name, id uint64) (*StakeRecord, error) {
	var updated *StakeRecord
	err := e.run(ctx, "restake", user, &id, func(now uint64) error {
		rec, err := e.loadOwned(user, id)
		if err != nil {
			return err
		}
		rec.UnstakeRequestedAt = 0
		rec.UnstakeReadyAt = 0
		rec.OpenedAt = now
		rec.AccrualAnchor = now
		rec.PendingReward = types.ZeroAsset(rec.Principal.Symbol)
		if err := e.registry.Put(rec); err != nil {
			return err
		}
		updated = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.emitter.Emit(events.StakeRestaked{ID: updated.ID, Owner: updated.Owner, OpenedAt: updated.OpenedAt})
	return updated, nil
}

// Claim pays the reward accrued since the last settlement and returns it.
func (e *Engine) Claim(ctx context.Context, user types.Name, id uint64) (types.Asset, error) {
	var paid types.Asset
	err := e.run(ctx, "claim", user, &id, func(now uint64) error {
		rec, err := e.loadOwned(user, id)
		if err != nil {
			return err
		}
		if err := e.settle(rec, now); err != nil {
			return err
		}
		if rec.PendingReward.IsZero() {
			return fmt.Errorf("%w: stake %d", ErrNoRewardsAvailable, id)
		}
		paid = rec.PendingReward.Copy()
		if err := e.ledger.Transfer(ctx, e.params.Contract, user, paid, MemoClaim); err != nil {
			return fmt.Errorf("staking: reward transfer: %w", err)
		}
		rec.PendingReward = types.ZeroAsset(rec.Principal.Symbol)
		rec.AccrualAnchor = now
		return e.registry.Put(rec)
	})
	if err != nil {
		return types.Asset{}, err
	}
	e.metrics.AddReward("claim", paid.Amount)
	e.logger.Info("staking reward claimed",
		slog.Uint64("id", id),
		slog.String("owner", user.String()),
		slog.String("reward", paid.String()))
	e.emitter.Emit(events.StakeRewardClaimed{ID: id, Owner: user, Reward: paid.Copy()})
	return paid, nil
}

// CompoundReward folds the reward accrued since the last settlement into the
// principal and returns the amount compounded.
func (e *Engine) CompoundReward(ctx context.Context, user types.Name, id uint64) (types.Asset, error) {
	var (
		compounded types.Asset
		principal  types.Asset
	)
	err := e.run(ctx, "compound", user, &id, func(now uint64) error {
		rec, err := e.loadOwned(user, id)
		if err != nil {
			return err
		}
		if err := e.settle(rec, now); err != nil {
			return err
		}
		if rec.PendingReward.IsZero() {
			return fmt.Errorf("%w: stake %d", ErrNoRewardsAvailable, id)
		}
		sum, err := rec.Principal.Add(rec.PendingReward)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAmountOverflow, err)
		}
		compounded = rec.PendingReward.Copy()
		rec.Principal = sum
		rec.PendingReward = types.ZeroAsset(sum.Symbol)
		rec.AccrualAnchor = now
		principal = sum.Copy()
		return e.registry.Put(rec)
	})
	if err != nil {
		return types.Asset{}, err
	}
	e.metrics.AddReward("compound", compounded.Amount)
	e.emitter.Emit(events.StakeRewardCompounded{ID: id, Owner: user, Reward: compounded.Copy(), Principal: principal})
	return compounded, nil
}

// Withdraw returns the principal of a stake whose cooling-off window has
// elapsed and removes the record. Unclaimed reward is not paid; claim first.
func (e *Engine) Withdraw(ctx context.Context, user types.Name, id uint64) (types.Asset, error) {
	var returned types.Asset
	err := e.run(ctx, "withdraw", user, &id, func(now uint64) error {
		rec, err := e.loadOwned(user, id)
		if err != nil {
			return err
		}
		if rec.Status() != StatusUnstaking {
			return fmt.Errorf("%w: %d", ErrNotUnstaking, id)
		}
		if !rec.Withdrawable(now) {
			return fmt.Errorf("%w: ready at %d", ErrCoolingOff, rec.UnstakeReadyAt)
		}
		returned = rec.Principal.Copy()
		if err := e.ledger.Transfer(ctx, e.params.Contract, user, returned, MemoWithdraw); err != nil {
			return fmt.Errorf("staking: withdraw transfer: %w", err)
		}
		return e.registry.Delete(rec)
	})
	if err != nil {
		return types.Asset{}, err
	}
	e.logger.Info("stake withdrawn",
		slog.Uint64("id", id),
		slog.String("owner", user.String()),
		slog.String("principal", returned.String()))
	e.emitter.Emit(events.StakeWithdrawn{ID: id, Owner: user, Principal: returned.Copy()})
	return returned, nil
}

// List returns the caller's stakes ordered by id with rewards recomputed at
// the current time. Nothing is written.
func (e *Engine) List(ctx context.Context, user types.Name) ([]Position, error) {
	var positions []Position
	err := e.exec.View(ctx, func(now uint64) error {
		if err := host.RequireCaller(ctx, user); err != nil {
			return err
		}
		records, err := e.registry.ByOwner(user)
		if err != nil {
			return err
		}
		positions, err = e.positions(records, now)
		return err
	})
	return positions, err
}

// Positions returns every live stake. Restricted to the contract account.
func (e *Engine) Positions(ctx context.Context) ([]Position, error) {
	var positions []Position
	err := e.exec.View(ctx, func(now uint64) error {
		if err := host.RequireCaller(ctx, e.params.Contract); err != nil {
			return err
		}
		records, err := e.registry.All()
		if err != nil {
			return err
		}
		positions, err = e.positions(records, now)
		return err
	})
	return positions, err
}

func (e *Engine) positions(records []*StakeRecord, now uint64) ([]Position, error) {
	out := make([]Position, 0, len(records))
	for _, rec := range records {
		if err := e.settle(rec, now); err != nil {
			return nil, err
		}
		out = append(out, Position{
			Record:       *rec,
			Status:       rec.Status(),
			Reward:       rec.PendingReward.Copy(),
			Withdrawable: rec.Withdrawable(now),
			AsOf:         now,
		})
	}
	return out, nil
}
