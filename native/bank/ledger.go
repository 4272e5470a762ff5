package bank

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/holiman/uint256"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

// MaxMemoBytes bounds transfer memos.
const MaxMemoBytes = 256

var (
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	ErrInvalidTransfer     = errors.New("bank: invalid transfer")
	ErrSupplyOverflow      = errors.New("bank: supply overflow")
	ErrNilState            = errors.New("bank: state not initialised")
)

type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

func balanceKey(account types.Name, code string) []byte {
	return []byte("bank/balance/" + account.String() + "/" + code)
}

func supplyKey(code string) []byte {
	return []byte("bank/supply/" + code)
}

// Ledger keeps token balances in the same journaled state as the staking
// records, so a transfer commits or reverts together with the command that
// issued it.
type Ledger struct {
	state  ledgerState
	logger *slog.Logger
}

// NewLedger constructs a ledger over the supplied state.
func NewLedger(state ledgerState, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{state: state, logger: logger}
}

// Balance returns the holdings of account in sym.
func (l *Ledger) Balance(account types.Name, sym types.Symbol) (types.Asset, error) {
	if l == nil || l.state == nil {
		return types.Asset{}, ErrNilState
	}
	amount, err := l.load(balanceKey(account, sym.Code))
	if err != nil {
		return types.Asset{}, err
	}
	return types.NewAsset(amount, sym), nil
}

// Supply returns the total issued amount of sym.
func (l *Ledger) Supply(sym types.Symbol) (types.Asset, error) {
	if l == nil || l.state == nil {
		return types.Asset{}, ErrNilState
	}
	amount, err := l.load(supplyKey(sym.Code))
	if err != nil {
		return types.Asset{}, err
	}
	return types.NewAsset(amount, sym), nil
}

// Mint issues quantity to account and grows the supply.
func (l *Ledger) Mint(to types.Name, quantity types.Asset) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if err := to.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTransfer, err)
	}
	if quantity.IsZero() {
		return fmt.Errorf("%w: mint amount must be positive", ErrInvalidTransfer)
	}
	code := quantity.Symbol.Code
	supply, err := l.load(supplyKey(code))
	if err != nil {
		return err
	}
	if _, overflow := supply.AddOverflow(supply, quantity.Amount); overflow {
		return ErrSupplyOverflow
	}
	balance, err := l.load(balanceKey(to, code))
	if err != nil {
		return err
	}
	balance.Add(balance, quantity.Amount)
	if err := l.state.KVPut(supplyKey(code), supply); err != nil {
		return err
	}
	return l.state.KVPut(balanceKey(to, code), balance)
}

// Transfer moves quantity from one account to another.
func (l *Ledger) Transfer(ctx context.Context, from, to types.Name, quantity types.Asset, memo string) error {
	if l == nil || l.state == nil {
		return ErrNilState
	}
	if err := from.Validate(); err != nil {
		return fmt.Errorf("%w: from: %v", ErrInvalidTransfer, err)
	}
	if err := to.Validate(); err != nil {
		return fmt.Errorf("%w: to: %v", ErrInvalidTransfer, err)
	}
	if from == to {
		return fmt.Errorf("%w: cannot transfer to self", ErrInvalidTransfer)
	}
	if quantity.IsZero() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidTransfer)
	}
	if len(memo) > MaxMemoBytes {
		return fmt.Errorf("%w: memo exceeds %d bytes", ErrInvalidTransfer, MaxMemoBytes)
	}
	code := quantity.Symbol.Code
	fromBal, err := l.load(balanceKey(from, code))
	if err != nil {
		return err
	}
	if fromBal.Lt(quantity.Amount) {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from,
			types.NewAsset(fromBal, quantity.Symbol), quantity)
	}
	toBal, err := l.load(balanceKey(to, code))
	if err != nil {
		return err
	}
	fromBal.Sub(fromBal, quantity.Amount)
	toBal.Add(toBal, quantity.Amount)
	if err := l.state.KVPut(balanceKey(from, code), fromBal); err != nil {
		return err
	}
	if err := l.state.KVPut(balanceKey(to, code), toBal); err != nil {
		return err
	}
	l.logger.Debug("ledger transfer",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.String("quantity", quantity.String()),
		slog.String("memo", strings.TrimSpace(memo)))
	return nil
}

func (l *Ledger) load(key []byte) (*uint256.Int, error) {
	amount := new(uint256.Int)
	if _, err := l.state.KVGet(key, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// Viewer runs read-only sections over the ledger state.
type Viewer interface {
	View(ctx context.Context, fn func(now uint64) error) error
}

// Reader serves balance queries for one token from outside a command.
type Reader struct {
	viewer Viewer
	ledger *Ledger
	symbol types.Symbol
}

// NewReader binds ledger reads of sym to viewer.
func NewReader(viewer Viewer, ledger *Ledger, sym types.Symbol) *Reader {
	return &Reader{viewer: viewer, ledger: ledger, symbol: sym}
}

// Balance returns the holdings of account.
func (r *Reader) Balance(ctx context.Context, account types.Name) (types.Asset, error) {
	if r == nil || r.viewer == nil || r.ledger == nil {
		return types.Asset{}, ErrNilState
	}
	if err := account.Validate(); err != nil {
		return types.Asset{}, err
	}
	var out types.Asset
	err := r.viewer.View(ctx, func(uint64) error {
		var err error
		out, err = r.ledger.Balance(account, r.symbol)
		return err
	})
	return out, err
}
