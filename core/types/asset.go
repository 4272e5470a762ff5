package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
)

// MaxPrecision bounds the number of decimals a symbol may carry.
const MaxPrecision = 18

var (
	ErrInvalidSymbol  = errors.New("types: invalid symbol")
	ErrInvalidAsset   = errors.New("types: invalid asset")
	ErrAssetOverflow  = errors.New("types: asset overflow")
	ErrAssetUnderflow = errors.New("types: asset underflow")
	ErrSymbolMismatch = errors.New("types: symbol mismatch")
)

// Symbol is a token code with its decimal precision, rendered "4,GHOST".
type Symbol struct {
	Code      string
	Precision uint8
}

// ParseSymbol parses the "precision,CODE" form.
func ParseSymbol(raw string) (Symbol, error) {
	precision, code, found := strings.Cut(strings.TrimSpace(raw), ",")
	if !found {
		return Symbol{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, raw)
	}
	p, err := strconv.ParseUint(strings.TrimSpace(precision), 10, 8)
	if err != nil {
		return Symbol{}, fmt.Errorf("%w: precision %q", ErrInvalidSymbol, precision)
	}
	sym := Symbol{Code: strings.TrimSpace(code), Precision: uint8(p)}
	if err := sym.Validate(); err != nil {
		return Symbol{}, err
	}
	return sym, nil
}

// Validate checks that the code is 1-7 upper-case letters and the precision
// is in range.
func (s Symbol) Validate() error {
	if len(s.Code) == 0 || len(s.Code) > 7 {
		return fmt.Errorf("%w: code %q must be 1-7 characters", ErrInvalidSymbol, s.Code)
	}
	for _, r := range s.Code {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("%w: code %q must be upper-case letters", ErrInvalidSymbol, s.Code)
		}
	}
	if s.Precision > MaxPrecision {
		return fmt.Errorf("%w: precision %d exceeds %d", ErrInvalidSymbol, s.Precision, MaxPrecision)
	}
	return nil
}

func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

// Asset is an amount of a token expressed in its smallest unit.
type Asset struct {
	Amount *uint256.Int
	Symbol Symbol
}

// NewAsset copies amount into a new asset.
func NewAsset(amount *uint256.Int, sym Symbol) Asset {
	out := Asset{Amount: new(uint256.Int), Symbol: sym}
	if amount != nil {
		out.Amount.Set(amount)
	}
	return out
}

// NewAssetUnits builds an asset from a raw unit count.
func NewAssetUnits(units uint64, sym Symbol) Asset {
	return Asset{Amount: uint256.NewInt(units), Symbol: sym}
}

// ZeroAsset returns an empty amount of sym.
func ZeroAsset(sym Symbol) Asset {
	return Asset{Amount: new(uint256.Int), Symbol: sym}
}

func (a Asset) amount() *uint256.Int {
	if a.Amount == nil {
		return new(uint256.Int)
	}
	return a.Amount
}

// Units returns a copy of the raw amount.
func (a Asset) Units() *uint256.Int {
	return new(uint256.Int).Set(a.amount())
}

// IsZero reports whether the amount is zero.
func (a Asset) IsZero() bool { return a.amount().IsZero() }

// Copy returns a deep copy.
func (a Asset) Copy() Asset { return NewAsset(a.Amount, a.Symbol) }

// Cmp compares two amounts of the same symbol.
func (a Asset) Cmp(b Asset) int { return a.amount().Cmp(b.amount()) }

// Add returns a+b, failing on symbol mismatch or overflow.
func (a Asset) Add(b Asset) (Asset, error) {
	if a.Symbol != b.Symbol {
		return Asset{}, fmt.Errorf("%w: %s vs %s", ErrSymbolMismatch, a.Symbol, b.Symbol)
	}
	sum, overflow := new(uint256.Int).AddOverflow(a.amount(), b.amount())
	if overflow {
		return Asset{}, ErrAssetOverflow
	}
	return Asset{Amount: sum, Symbol: a.Symbol}, nil
}

// Sub returns a-b, failing on symbol mismatch or underflow.
func (a Asset) Sub(b Asset) (Asset, error) {
	if a.Symbol != b.Symbol {
		return Asset{}, fmt.Errorf("%w: %s vs %s", ErrSymbolMismatch, a.Symbol, b.Symbol)
	}
	diff, underflow := new(uint256.Int).SubOverflow(a.amount(), b.amount())
	if underflow {
		return Asset{}, ErrAssetUnderflow
	}
	return Asset{Amount: diff, Symbol: a.Symbol}, nil
}

// String renders the asset as "1000.0000 GHOST".
func (a Asset) String() string {
	digits := a.amount().Dec()
	p := int(a.Symbol.Precision)
	if p == 0 {
		return digits + " " + a.Symbol.Code
	}
	if len(digits) <= p {
		digits = strings.Repeat("0", p-len(digits)+1) + digits
	}
	cut := len(digits) - p
	return digits[:cut] + "." + digits[cut:] + " " + a.Symbol.Code
}

// ParseAsset parses "1000.0000 GHOST". The precision is taken from the number
// of decimals written.
func ParseAsset(raw string) (Asset, error) {
	number, code, found := strings.Cut(strings.TrimSpace(raw), " ")
	if !found {
		return Asset{}, fmt.Errorf("%w: %q missing symbol", ErrInvalidAsset, raw)
	}
	precision := 0
	if _, frac, ok := strings.Cut(number, "."); ok {
		precision = len(frac)
	}
	if precision > MaxPrecision {
		return Asset{}, fmt.Errorf("%w: %q has too many decimals", ErrInvalidAsset, raw)
	}
	sym := Symbol{Code: strings.TrimSpace(code), Precision: uint8(precision)}
	if err := sym.Validate(); err != nil {
		return Asset{}, err
	}
	return parseAmount(number, sym)
}

// ParseQuantity parses an amount for a known symbol. The symbol code is
// optional and fewer decimals than the precision are accepted, so "12.5",
// "12.5 GHOST" and "12.5000 GHOST" are equal for "4,GHOST".
func ParseQuantity(raw string, sym Symbol) (Asset, error) {
	number, code, found := strings.Cut(strings.TrimSpace(raw), " ")
	if found && strings.TrimSpace(code) != sym.Code {
		return Asset{}, fmt.Errorf("%w: %q is not %s", ErrSymbolMismatch, raw, sym.Code)
	}
	whole, frac, _ := strings.Cut(number, ".")
	if len(frac) > int(sym.Precision) {
		return Asset{}, fmt.Errorf("%w: %q exceeds %d decimals", ErrInvalidAsset, raw, sym.Precision)
	}
	frac += strings.Repeat("0", int(sym.Precision)-len(frac))
	if sym.Precision == 0 {
		return parseAmount(whole, sym)
	}
	return parseAmount(whole+"."+frac, sym)
}

func parseAmount(number string, sym Symbol) (Asset, error) {
	digits := strings.Replace(number, ".", "", 1)
	if digits == "" {
		return Asset{}, fmt.Errorf("%w: empty amount", ErrInvalidAsset)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return Asset{}, fmt.Errorf("%w: %q", ErrInvalidAsset, number)
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}
	amount, err := uint256.FromDecimal(digits)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	return Asset{Amount: amount, Symbol: sym}, nil
}

// MarshalJSON renders the asset in its string form.
func (a Asset) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts the string form produced by MarshalJSON.
func (a *Asset) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseAsset(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
