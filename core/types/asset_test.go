package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

var ghost = Symbol{Code: "GHOST", Precision: 4}

func TestAssetString(t *testing.T) {
	cases := []struct {
		units uint64
		sym   Symbol
		want  string
	}{
		{units: 10_000_000, sym: ghost, want: "1000.0000 GHOST"},
		{units: 5, sym: ghost, want: "0.0005 GHOST"},
		{units: 0, sym: ghost, want: "0.0000 GHOST"},
		{units: 42, sym: Symbol{Code: "EOS", Precision: 0}, want: "42 EOS"},
	}
	for _, tc := range cases {
		if got := NewAssetUnits(tc.units, tc.sym).String(); got != tc.want {
			t.Fatalf("units %d: expected %q, got %q", tc.units, tc.want, got)
		}
	}
}

func TestParseAsset(t *testing.T) {
	asset, err := ParseAsset("12.3456 GHOST")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if asset.Symbol != ghost {
		t.Fatalf("unexpected symbol %v", asset.Symbol)
	}
	if asset.Amount.Uint64() != 123456 {
		t.Fatalf("unexpected amount %s", asset.Amount)
	}

	for _, raw := range []string{"12.3456", "-1.0000 GHOST", "1.00x0 GHOST", "1.0000 ghost", ". GHOST"} {
		if _, err := ParseAsset(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestParseQuantityScalesToPrecision(t *testing.T) {
	for _, raw := range []string{"12.5", "12.5 GHOST", "12.5000 GHOST"} {
		asset, err := ParseQuantity(raw, ghost)
		if err != nil {
			t.Fatalf("parse %q: %v", raw, err)
		}
		if asset.Amount.Uint64() != 125_000 {
			t.Fatalf("%q: unexpected amount %s", raw, asset.Amount)
		}
	}
	if _, err := ParseQuantity("1.00001", ghost); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("expected too many decimals to fail, got %v", err)
	}
	if _, err := ParseQuantity("1 EOS", ghost); !errors.Is(err, ErrSymbolMismatch) {
		t.Fatalf("expected symbol mismatch, got %v", err)
	}
}

func TestAssetArithmetic(t *testing.T) {
	a := NewAssetUnits(10, ghost)
	b := NewAssetUnits(4, ghost)
	sum, err := a.Add(b)
	if err != nil || sum.Amount.Uint64() != 14 {
		t.Fatalf("unexpected sum %v err=%v", sum, err)
	}
	if a.Amount.Uint64() != 10 {
		t.Fatalf("add mutated operand")
	}
	if _, err := b.Sub(a); !errors.Is(err, ErrAssetUnderflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	ceiling := NewAsset(new(uint256.Int).SetAllOne(), ghost)
	if _, err := ceiling.Add(NewAssetUnits(1, ghost)); !errors.Is(err, ErrAssetOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := a.Add(NewAssetUnits(1, Symbol{Code: "EOS", Precision: 4})); !errors.Is(err, ErrSymbolMismatch) {
		t.Fatalf("expected symbol mismatch, got %v", err)
	}
}

func TestAssetJSON(t *testing.T) {
	encoded, err := json.Marshal(NewAssetUnits(1_000_000, ghost))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(encoded) != `"100.0000 GHOST"` {
		t.Fatalf("unexpected json %s", encoded)
	}
	var decoded Asset
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Amount.Uint64() != 1_000_000 || decoded.Symbol != ghost {
		t.Fatalf("unexpected decoded asset %v", decoded)
	}
}

func TestParseSymbol(t *testing.T) {
	sym, err := ParseSymbol("4,GHOST")
	if err != nil || sym != ghost {
		t.Fatalf("unexpected symbol %v err=%v", sym, err)
	}
	if sym.String() != "4,GHOST" {
		t.Fatalf("unexpected string %s", sym)
	}
	for _, raw := range []string{"GHOST", "x,GHOST", "4,ghost", "19,GHOST", "4,TOOLONGCODE"} {
		if _, err := ParseSymbol(raw); err == nil {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestParseName(t *testing.T) {
	name, err := ParseName("  Alice ")
	if err != nil || name != "alice" {
		t.Fatalf("unexpected name %q err=%v", name, err)
	}
	for _, raw := range []string{"", "thirteenchars", "bob6", "bob.", "b_b"} {
		if _, err := ParseName(raw); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected %q rejected, got %v", raw, err)
		}
	}
}
