package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuppyCerberus/token-staking-contract/cmd/internal/passphrase"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/auth"
)

// secretSource is swapped in tests.
var secretSource = func() (string, error) {
	return passphrase.NewSource("STAKINGD_JWT_SECRET", "stakingd signing secret").Get()
}

var tokenNow = time.Now

func runTokenCommand(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(stderr)
	admin := fs.Bool("admin", false, "grant the admin scope")
	adminScope := fs.String("admin-scope", "staking:admin", "scope name treated as admin by stakingd")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	issuer := fs.String("issuer", "stakingd", "token issuer")
	audience := fs.String("audience", "staking-api", "token audience")
	var positional []string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		positional, args = args[:1], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}
	positional = append(positional, fs.Args()...)
	if len(positional) != 1 {
		fmt.Fprintln(stderr, "Usage: stakingctl token <account> [--admin] [--ttl 1h]")
		return 1
	}
	account, err := types.ParseName(positional[0])
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	secret, err := secretSource()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	scopes := []string{"staking:user"}
	if *admin {
		scopes = append(scopes, *adminScope)
	}
	token, err := auth.Mint(auth.Config{Secret: secret, Issuer: *issuer, Audience: *audience}, account, scopes, *ttl, tokenNow())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, token)
	return 0
}
