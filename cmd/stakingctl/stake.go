package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type stakeResponse struct {
	ID                 uint64 `json:"id"`
	Owner              string `json:"owner"`
	Principal          string `json:"principal"`
	TermDays           uint64 `json:"term_days"`
	Status             string `json:"status"`
	OpenedAt           int64  `json:"opened_at"`
	UnstakeRequestedAt int64  `json:"unstake_requested_at"`
	UnstakeReadyAt     int64  `json:"unstake_ready_at"`
	Reward             string `json:"reward"`
	Withdrawable       bool   `json:"withdrawable"`
}

type stakeListResponse struct {
	Stakes []stakeResponse `json:"stakes"`
}

func runStakeCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(stderr, "Usage: stakingctl stake <quantity> <term-days>")
		return 1
	}
	quantity := strings.TrimSpace(args[0])
	if quantity == "" {
		fmt.Fprintln(stderr, "Error: quantity is required")
		return 1
	}
	days, err := strconv.ParseUint(strings.TrimSpace(args[1]), 10, 64)
	if err != nil || days == 0 {
		fmt.Fprintln(stderr, "Error: term must be a positive number of days")
		return 1
	}
	result, err := apiCall(http.MethodPost, "/v1/stakes", map[string]interface{}{
		"quantity":  quantity,
		"term_days": days,
	})
	if err != nil {
		return handleCallError(stderr, err)
	}
	var stake stakeResponse
	if err := json.Unmarshal(result, &stake); err != nil {
		fmt.Fprintf(stderr, "Failed to decode response: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Opened stake %d: %s for %d days\n", stake.ID, stake.Principal, stake.TermDays)
	return 0
}

func parseStakeID(command string, args []string, stderr io.Writer) (uint64, bool) {
	if len(args) != 1 {
		fmt.Fprintf(stderr, "Usage: stakingctl %s <id>\n", command)
		return 0, false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(args[0]), 10, 64)
	if err != nil {
		fmt.Fprintf(stderr, "Error: invalid stake id %q\n", args[0])
		return 0, false
	}
	return id, true
}

func runStakeAction(action string, args []string, stdout, stderr io.Writer) int {
	id, ok := parseStakeID(action, args, stderr)
	if !ok {
		return 1
	}
	result, err := apiCall(http.MethodPost, fmt.Sprintf("/v1/stakes/%d/%s", id, action), nil)
	if err != nil {
		return handleCallError(stderr, err)
	}

	switch action {
	case "claim", "compound", "withdraw":
		var payload struct {
			Reward    string `json:"reward"`
			Principal string `json:"principal"`
		}
		if err := json.Unmarshal(result, &payload); err != nil {
			fmt.Fprintf(stderr, "Failed to decode response: %v\n", err)
			return 1
		}
		switch action {
		case "claim":
			fmt.Fprintf(stdout, "Claimed %s from stake %d\n", payload.Reward, id)
		case "compound":
			fmt.Fprintf(stdout, "Compounded %s into stake %d\n", payload.Reward, id)
		default:
			fmt.Fprintf(stdout, "Withdrew %s from stake %d\n", payload.Principal, id)
		}
	default:
		var stake stakeResponse
		if err := json.Unmarshal(result, &stake); err != nil {
			fmt.Fprintf(stderr, "Failed to decode response: %v\n", err)
			return 1
		}
		if stake.Status == "unstaking" {
			fmt.Fprintf(stdout, "Stake %d is unstaking; withdrawable from %s\n", id, formatTimestamp(stake.UnstakeReadyAt))
		} else {
			fmt.Fprintf(stdout, "Stake %d is active again from %s\n", id, formatTimestamp(stake.OpenedAt))
		}
	}
	return 0
}

func runListCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "Usage: stakingctl list")
		return 1
	}
	return printStakes("/v1/stakes", stdout, stderr)
}

func runPositionsCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "Usage: stakingctl positions")
		return 1
	}
	return printStakes("/v1/admin/positions", stdout, stderr)
}

func printStakes(path string, stdout, stderr io.Writer) int {
	result, err := apiCall(http.MethodGet, path, nil)
	if err != nil {
		return handleCallError(stderr, err)
	}
	var list stakeListResponse
	if err := json.Unmarshal(result, &list); err != nil {
		fmt.Fprintf(stderr, "Failed to decode response: %v\n", err)
		return 1
	}
	if len(list.Stakes) == 0 {
		fmt.Fprintln(stdout, "No stakes")
		return 0
	}
	for _, stake := range list.Stakes {
		fmt.Fprintf(stdout, "#%d %-12s %-10s principal %s reward %s term %dd",
			stake.ID, stake.Owner, stake.Status, stake.Principal, stake.Reward, stake.TermDays)
		if stake.Withdrawable {
			fmt.Fprint(stdout, " (withdrawable)")
		}
		fmt.Fprintln(stdout)
	}
	return 0
}

func runHistoryCommand(args []string, stdout, stderr io.Writer) int {
	id, ok := parseStakeID("history", args, stderr)
	if !ok {
		return 1
	}
	result, err := apiCall(http.MethodGet, fmt.Sprintf("/v1/stakes/%d/history", id), nil)
	if err != nil {
		return handleCallError(stderr, err)
	}
	var payload struct {
		Events []struct {
			Type       string            `json:"type"`
			OccurredAt string            `json:"occurred_at"`
			Attributes map[string]string `json:"attributes"`
		} `json:"events"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		fmt.Fprintf(stderr, "Failed to decode response: %v\n", err)
		return 1
	}
	if len(payload.Events) == 0 {
		fmt.Fprintf(stdout, "No recorded events for stake %d\n", id)
		return 0
	}
	for _, evt := range payload.Events {
		detail := evt.Attributes["reward"]
		if detail == "" {
			detail = evt.Attributes["principal"]
		}
		fmt.Fprintf(stdout, "%s  %-24s %s\n", evt.OccurredAt, evt.Type, detail)
	}
	return 0
}

func runBalanceCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "Usage: stakingctl balance")
		return 1
	}
	result, err := apiCall(http.MethodGet, "/v1/balance", nil)
	if err != nil {
		return handleCallError(stderr, err)
	}
	var payload struct {
		Account string `json:"account"`
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		fmt.Fprintf(stderr, "Failed to decode response: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "%s: %s\n", payload.Account, payload.Balance)
	return 0
}

func formatTimestamp(ts int64) string {
	if ts <= 0 {
		return "never"
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
