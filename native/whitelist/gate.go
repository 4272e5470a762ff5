package whitelist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuppyCerberus/token-staking-contract/core/events"
	"github.com/PuppyCerberus/token-staking-contract/core/host"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/observability/metrics"
)

var (
	ErrAlreadyWhitelisted       = errors.New("whitelist: account already whitelisted")
	ErrNotWhitelistedForRemoval = errors.New("whitelist: account not whitelisted")
	ErrNotInitialised           = errors.New("whitelist: gate not initialised")
)

const memberPrefix = "whitelist/member/"

type gateState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVKeys(prefix []byte) ([][]byte, error)
}

// Entry is the stored allow-list membership record.
type Entry struct {
	AddedAt uint64
}

func memberKey(account types.Name) []byte {
	return []byte(memberPrefix + account.String())
}

// Gate maintains the set of accounts allowed to open stakes. Mutations are
// restricted to the administrator account.
type Gate struct {
	exec    *host.Executor
	state   gateState
	admin   types.Name
	emitter events.Emitter
	metrics *metrics.StakingMetrics
}

// NewGate builds a gate sharing the executor (and therefore the atomic scope)
// of the staking engine.
func NewGate(exec *host.Executor, admin types.Name, emitter events.Emitter) *Gate {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	return &Gate{
		exec:    exec,
		state:   exec.State(),
		admin:   admin,
		emitter: emitter,
		metrics: metrics.Staking(),
	}
}

// Admin returns the administrator account.
func (g *Gate) Admin() types.Name { return g.admin }

// IsAllowed reports membership reading state directly. It is meant for use
// inside an executing command; external callers use Lookup.
func (g *Gate) IsAllowed(account types.Name) (bool, error) {
	if g == nil || g.state == nil {
		return false, ErrNotInitialised
	}
	return g.state.KVGet(memberKey(account), nil)
}

// Lookup reports membership under the executor lock.
func (g *Gate) Lookup(ctx context.Context, account types.Name) (bool, error) {
	if g == nil || g.exec == nil {
		return false, ErrNotInitialised
	}
	var allowed bool
	err := g.exec.View(ctx, func(uint64) error {
		var err error
		allowed, err = g.IsAllowed(account)
		return err
	})
	return allowed, err
}

// Add admits account. Only the administrator may call it.
func (g *Gate) Add(ctx context.Context, account types.Name) error {
	if g == nil || g.exec == nil {
		return ErrNotInitialised
	}
	if err := account.Validate(); err != nil {
		return err
	}
	err := g.exec.Execute(ctx, "whitelist.add", func(now uint64) error {
		if err := host.RequireCaller(ctx, g.admin); err != nil {
			return err
		}
		exists, err := g.IsAllowed(account)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyWhitelisted, account)
		}
		return g.state.KVPut(memberKey(account), Entry{AddedAt: now})
	})
	if err != nil {
		return err
	}
	g.metrics.ObserveWhitelist("add")
	g.emitter.Emit(events.WhitelistChanged{Account: account, Added: true})
	return nil
}

// Remove revokes account. Only the administrator may call it.
func (g *Gate) Remove(ctx context.Context, account types.Name) error {
	if g == nil || g.exec == nil {
		return ErrNotInitialised
	}
	err := g.exec.Execute(ctx, "whitelist.remove", func(uint64) error {
		if err := host.RequireCaller(ctx, g.admin); err != nil {
			return err
		}
		exists, err := g.IsAllowed(account)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotWhitelistedForRemoval, account)
		}
		return g.state.KVDelete(memberKey(account))
	})
	if err != nil {
		return err
	}
	g.metrics.ObserveWhitelist("remove")
	g.emitter.Emit(events.WhitelistChanged{Account: account, Added: false})
	return nil
}

// Members lists the allowed accounts in ascending order. Administrator only.
func (g *Gate) Members(ctx context.Context) ([]types.Name, error) {
	if g == nil || g.exec == nil {
		return nil, ErrNotInitialised
	}
	var members []types.Name
	err := g.exec.View(ctx, func(uint64) error {
		if err := host.RequireCaller(ctx, g.admin); err != nil {
			return err
		}
		keys, err := g.state.KVKeys([]byte(memberPrefix))
		if err != nil {
			return err
		}
		members = make([]types.Name, 0, len(keys))
		for _, key := range keys {
			members = append(members, types.Name(strings.TrimPrefix(string(key), memberPrefix)))
		}
		return nil
	})
	return members, err
}
