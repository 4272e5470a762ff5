package main

import (
	"fmt"
	"io"
	"os"
	"strings"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if env := strings.TrimSpace(os.Getenv("STAKINGCTL_ENDPOINT")); env != "" {
		apiEndpoint = env
	}
	if env := strings.TrimSpace(os.Getenv("STAKINGCTL_TOKEN")); env != "" {
		apiToken = env
	}
	args, err := applyGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage())
		return 1
	}

	switch args[0] {
	case "stake":
		return runStakeCommand(args[1:], stdout, stderr)
	case "unstake", "restake", "claim", "compound", "withdraw":
		return runStakeAction(args[0], args[1:], stdout, stderr)
	case "list":
		return runListCommand(args[1:], stdout, stderr)
	case "history":
		return runHistoryCommand(args[1:], stdout, stderr)
	case "balance":
		return runBalanceCommand(args[1:], stdout, stderr)
	case "whitelist":
		return runWhitelistCommand(args[1:], stdout, stderr)
	case "positions":
		return runPositionsCommand(args[1:], stdout, stderr)
	case "export":
		return runExportCommand(args[1:], stdout, stderr)
	case "token":
		return runTokenCommand(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage())
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n%s\n", args[0], usage())
		return 1
	}
}

func applyGlobalFlags(args []string) ([]string, error) {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		var name, value string
		switch {
		case arg == "--endpoint" || arg == "--token":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("%s requires a value", arg)
			}
			name, value = arg, args[i+1]
			i++
		case strings.HasPrefix(arg, "--endpoint="):
			name, value = "--endpoint", strings.TrimPrefix(arg, "--endpoint=")
		case strings.HasPrefix(arg, "--token="):
			name, value = "--token", strings.TrimPrefix(arg, "--token=")
		default:
			out = append(out, arg)
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("%s requires a value", name)
		}
		if name == "--endpoint" {
			apiEndpoint = value
		} else {
			apiToken = value
		}
	}
	return out, nil
}

func usage() string {
	return `Usage: stakingctl [--endpoint URL] [--token JWT] <command> [args]

Account commands:
  stake <quantity> <term-days>     Lock tokens, e.g. "stake 1000.0000 30"
  unstake <id>                     Start the cooling-off window
  restake <id>                     Return a stake to active
  claim <id>                       Pay out accrued reward
  compound <id>                    Add accrued reward to principal
  withdraw <id>                    Release principal after cooling-off
  list                             Show your stakes
  history <id>                     Show the journaled events of a stake
  balance                          Show your token balance

Admin commands:
  whitelist add|remove <account>
  whitelist list
  positions                        Show every stake
  export                           Write a parquet snapshot on the server

Tokens:
  token <account> [--admin] [--ttl 1h]   Mint a bearer token (reads STAKINGD_JWT_SECRET or prompts)`
}
