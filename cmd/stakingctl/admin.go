package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

func runWhitelistCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Usage: stakingctl whitelist add|remove <account> | list")
		return 1
	}
	switch args[0] {
	case "list":
		result, err := apiCall(http.MethodGet, "/v1/admin/whitelist", nil)
		if err != nil {
			return handleCallError(stderr, err)
		}
		var payload struct {
			Accounts []string `json:"accounts"`
		}
		if err := json.Unmarshal(result, &payload); err != nil {
			fmt.Fprintf(stderr, "Failed to decode response: %v\n", err)
			return 1
		}
		for _, account := range payload.Accounts {
			fmt.Fprintln(stdout, account)
		}
		return 0
	case "add", "remove":
		if len(args) != 2 || strings.TrimSpace(args[1]) == "" {
			fmt.Fprintf(stderr, "Usage: stakingctl whitelist %s <account>\n", args[0])
			return 1
		}
		account := strings.TrimSpace(args[1])
		var err error
		if args[0] == "add" {
			_, err = apiCall(http.MethodPost, "/v1/admin/whitelist", map[string]string{"account": account})
		} else {
			_, err = apiCall(http.MethodDelete, "/v1/admin/whitelist/"+url.PathEscape(account), nil)
		}
		if err != nil {
			return handleCallError(stderr, err)
		}
		verb := "Added"
		if args[0] == "remove" {
			verb = "Removed"
		}
		fmt.Fprintf(stdout, "%s %s\n", verb, account)
		return 0
	default:
		fmt.Fprintf(stderr, "Unknown whitelist command: %s\n", args[0])
		return 1
	}
}

func runExportCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) != 0 {
		fmt.Fprintln(stderr, "Usage: stakingctl export")
		return 1
	}
	result, err := apiCall(http.MethodPost, "/v1/admin/export", nil)
	if err != nil {
		return handleCallError(stderr, err)
	}
	var payload struct {
		Path string `json:"path"`
		Rows int    `json:"rows"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		fmt.Fprintf(stderr, "Failed to decode response: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Exported %d positions to %s\n", payload.Rows, payload.Path)
	return 0
}
