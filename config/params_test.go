package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuppyCerberus/token-staking-contract/native/staking"
)

func TestLoadParamsCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "params.toml")
	params, err := LoadParams(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected defaults persisted: %v", err)
	}
	converted, err := params.Staking()
	if err != nil {
		t.Fatalf("staking params: %v", err)
	}
	def := staking.DefaultParams()
	if converted.Contract != def.Contract || converted.Denomination != def.Denomination {
		t.Fatalf("unexpected identity %+v", converted)
	}
	if len(converted.AllowedTerms) != 5 || converted.AllowedTerms[4] != 365*staking.SecondsPerDay {
		t.Fatalf("unexpected terms %v", converted.AllowedTerms)
	}
	if converted.CoolingOffDelay != def.CoolingOffDelay || converted.RewardRateBps != 1_000 {
		t.Fatalf("unexpected schedule %+v", converted)
	}

	reloaded, err := LoadParams(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Symbol != "4,GHOST" {
		t.Fatalf("unexpected reloaded symbol %q", reloaded.Symbol)
	}
}

func TestLoadParamsParsesGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.toml")
	contents := `Contract = "ghoststaking"
TokenContract = "pupadventure"
Symbol = "4,GHOST"
TermDays = [7, 30]
CoolingOffDays = 2
RewardRateBps = 500

[[Genesis]]
Account = "alice"
Quantity = "1000.0000 GHOST"

[[Genesis]]
Account = "ghoststaking"
Quantity = "50"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	params, err := LoadParams(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	converted, err := params.Staking()
	if err != nil {
		t.Fatalf("staking: %v", err)
	}
	if converted.CoolingOffDelay != 2*staking.SecondsPerDay || converted.RewardRateBps != 500 {
		t.Fatalf("unexpected params %+v", converted)
	}
	balances, err := params.Balances()
	if err != nil {
		t.Fatalf("balances: %v", err)
	}
	if len(balances) != 2 {
		t.Fatalf("expected 2 balances, got %d", len(balances))
	}
	if balances[0].Account != "alice" || balances[0].Quantity.Amount.Uint64() != 10_000_000 {
		t.Fatalf("unexpected first balance %+v", balances[0])
	}
	if balances[1].Quantity.Amount.Uint64() != 500_000 {
		t.Fatalf("unexpected second balance %s", balances[1].Quantity)
	}
}

func TestLoadParamsRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key": `Contract = "ghoststaking"
TokenContract = "pupadventure"
Symbol = "4,GHOST"
TermDays = [7]
CoolingOffDays = 30
RewardRateBps = 1000
Slashing = true
`,
		"bad symbol": `Contract = "ghoststaking"
TokenContract = "pupadventure"
Symbol = "GHOST"
TermDays = [7]
RewardRateBps = 1000
`,
		"no terms": `Contract = "ghoststaking"
TokenContract = "pupadventure"
Symbol = "4,GHOST"
TermDays = []
RewardRateBps = 1000
`,
		"duplicate genesis": `Contract = "ghoststaking"
TokenContract = "pupadventure"
Symbol = "4,GHOST"
TermDays = [7]
RewardRateBps = 1000

[[Genesis]]
Account = "alice"
Quantity = "1"

[[Genesis]]
Account = "alice"
Quantity = "2"
`,
	}
	for name, contents := range cases {
		path := filepath.Join(t.TempDir(), strings.ReplaceAll(name, " ", "_")+".toml")
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("%s: write: %v", name, err)
		}
		if _, err := LoadParams(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
