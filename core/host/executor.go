package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/PuppyCerberus/token-staking-contract/core/state"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

var (
	// ErrMissingAuthority is returned when the acting identity does not match
	// the identity an operation requires.
	ErrMissingAuthority = errors.New("host: missing required authority")
	// ErrClockUnset guards against a zero timestamp, which state uses to mean
	// "unset".
	ErrClockUnset = errors.New("host: clock returned zero time")
)

type callerKey struct{}

// WithCaller attaches the authenticated acting identity to ctx.
func WithCaller(ctx context.Context, caller types.Name) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Caller returns the acting identity attached to ctx.
func Caller(ctx context.Context) (types.Name, bool) {
	if ctx == nil {
		return "", false
	}
	caller, ok := ctx.Value(callerKey{}).(types.Name)
	return caller, ok && caller != ""
}

// RequireCaller fails unless ctx carries exactly the required identity.
func RequireCaller(ctx context.Context, required types.Name) error {
	caller, ok := Caller(ctx)
	if !ok {
		return fmt.Errorf("%w: no caller for %s", ErrMissingAuthority, required)
	}
	if caller != required {
		return fmt.Errorf("%w: %s cannot act for %s", ErrMissingAuthority, caller, required)
	}
	return nil
}

// Option customises an Executor.
type Option func(*Executor)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(x *Executor) {
		if now != nil {
			x.now = now
		}
	}
}

// WithLogger sets the logger used for commit failures.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Executor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// Executor serialises commands over a state manager. Each command runs in one
// exclusive section against a snapshot; an error reverts every write made by
// the command and a success commits them in one batch.
type Executor struct {
	mu     sync.Mutex
	state  *state.Manager
	now    func() time.Time
	logger *slog.Logger
}

// NewExecutor wraps the state manager.
func NewExecutor(st *state.Manager, opts ...Option) *Executor {
	x := &Executor{state: st, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(x)
		}
	}
	return x
}

// State exposes the managed state for components that read and write through
// the executor.
func (x *Executor) State() *state.Manager { return x.state }

// Execute runs fn atomically. fn receives the command timestamp in unix
// seconds; it is read once so every write in the command agrees on "now".
func (x *Executor) Execute(ctx context.Context, op string, fn func(now uint64) error) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	now := x.now().Unix()
	if now <= 0 {
		return ErrClockUnset
	}
	snap := x.state.Snapshot()
	if err := fn(uint64(now)); err != nil {
		x.state.RevertToSnapshot(snap)
		return err
	}
	if err := x.state.Commit(); err != nil {
		x.state.RevertToSnapshot(snap)
		x.logger.Error("state commit failed", slog.String("op", op), slog.Any("error", err))
		return err
	}
	return nil
}

// View runs a read-only fn under the executor lock. Any writes fn makes are
// discarded.
func (x *Executor) View(ctx context.Context, fn func(now uint64) error) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	now := x.now().Unix()
	if now <= 0 {
		return ErrClockUnset
	}
	snap := x.state.Snapshot()
	defer x.state.RevertToSnapshot(snap)
	return fn(uint64(now))
}
