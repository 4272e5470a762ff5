package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/native/staking"
)

// Params is the on-disk deployment configuration of the staking contract.
// The values are read once at start-up and fixed for the life of the process.
type Params struct {
	Contract       string       `toml:"Contract"`
	TokenContract  string       `toml:"TokenContract"`
	Symbol         string       `toml:"Symbol"`
	TermDays       []uint64     `toml:"TermDays"`
	CoolingOffDays uint64       `toml:"CoolingOffDays"`
	RewardRateBps  uint64       `toml:"RewardRateBps"`
	Genesis        []Allocation `toml:"Genesis"`
}

// Allocation seeds a token balance the first time the state is created.
type Allocation struct {
	Account  string `toml:"Account"`
	Quantity string `toml:"Quantity"`
}

// Balance is a validated genesis allocation.
type Balance struct {
	Account  types.Name
	Quantity types.Asset
}

// DefaultParams mirrors staking.DefaultParams in file form.
func DefaultParams() *Params {
	def := staking.DefaultParams()
	days := make([]uint64, 0, len(def.AllowedTerms))
	for _, term := range def.AllowedTerms {
		days = append(days, term/staking.SecondsPerDay)
	}
	return &Params{
		Contract:       def.Contract.String(),
		TokenContract:  def.TokenContract.String(),
		Symbol:         def.Denomination.String(),
		TermDays:       days,
		CoolingOffDays: def.CoolingOffDelay / staking.SecondsPerDay,
		RewardRateBps:  def.RewardRateBps,
		Genesis:        []Allocation{},
	}
}

// LoadParams loads the deployment params from path, writing the defaults when
// the file does not exist yet.
func LoadParams(path string) (*Params, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		params := DefaultParams()
		if err := persist(path, params); err != nil {
			return nil, err
		}
		return params, nil
	}

	params := &Params{}
	meta, err := toml.DecodeFile(path, params)
	if err != nil {
		return nil, fmt.Errorf("decode params %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("params %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if _, err := params.Staking(); err != nil {
		return nil, err
	}
	if _, err := params.Balances(); err != nil {
		return nil, err
	}
	return params, nil
}

// Staking converts the file form into validated engine params.
func (p *Params) Staking() (staking.Params, error) {
	contract, err := types.ParseName(p.Contract)
	if err != nil {
		return staking.Params{}, fmt.Errorf("Contract: %w", err)
	}
	token, err := types.ParseName(p.TokenContract)
	if err != nil {
		return staking.Params{}, fmt.Errorf("TokenContract: %w", err)
	}
	sym, err := types.ParseSymbol(p.Symbol)
	if err != nil {
		return staking.Params{}, fmt.Errorf("Symbol: %w", err)
	}
	terms := make([]uint64, 0, len(p.TermDays))
	for _, days := range p.TermDays {
		terms = append(terms, days*staking.SecondsPerDay)
	}
	out := staking.Params{
		Contract:        contract,
		TokenContract:   token,
		Denomination:    sym,
		AllowedTerms:    terms,
		CoolingOffDelay: p.CoolingOffDays * staking.SecondsPerDay,
		RewardRateBps:   p.RewardRateBps,
	}
	if err := out.Validate(); err != nil {
		return staking.Params{}, err
	}
	return out, nil
}

// Balances validates the genesis allocations against the configured symbol.
func (p *Params) Balances() ([]Balance, error) {
	sym, err := types.ParseSymbol(p.Symbol)
	if err != nil {
		return nil, fmt.Errorf("Symbol: %w", err)
	}
	out := make([]Balance, 0, len(p.Genesis))
	seen := make(map[types.Name]struct{}, len(p.Genesis))
	for i, alloc := range p.Genesis {
		account, err := types.ParseName(alloc.Account)
		if err != nil {
			return nil, fmt.Errorf("Genesis[%d].Account: %w", i, err)
		}
		if _, dup := seen[account]; dup {
			return nil, fmt.Errorf("Genesis[%d]: duplicate account %s", i, account)
		}
		seen[account] = struct{}{}
		quantity, err := types.ParseQuantity(alloc.Quantity, sym)
		if err != nil {
			return nil, fmt.Errorf("Genesis[%d].Quantity: %w", i, err)
		}
		if quantity.IsZero() {
			return nil, fmt.Errorf("Genesis[%d].Quantity must be positive", i)
		}
		out = append(out, Balance{Account: account, Quantity: quantity})
	}
	return out, nil
}

func persist(path string, params *Params) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(params)
}
