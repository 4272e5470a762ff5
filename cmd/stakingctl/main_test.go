package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/auth"
)

type recordedCall struct {
	method string
	path   string
	body   interface{}
}

func stubAPI(t *testing.T, response string, callErr error) *[]recordedCall {
	t.Helper()
	calls := &[]recordedCall{}
	original := apiCall
	apiCall = func(method, path string, body interface{}) (json.RawMessage, error) {
		*calls = append(*calls, recordedCall{method: method, path: path, body: body})
		if callErr != nil {
			return nil, callErr
		}
		return json.RawMessage(response), nil
	}
	t.Cleanup(func() { apiCall = original })
	return calls
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestStakeCommandPostsQuantityAndTerm(t *testing.T) {
	calls := stubAPI(t, `{"id":4,"principal":"1000.0000 GHOST","term_days":30,"status":"active"}`, nil)
	code, out, errOut := runCLI("stake", "1000.0000", "30")
	if code != 0 {
		t.Fatalf("unexpected exit %d: %s", code, errOut)
	}
	if len(*calls) != 1 || (*calls)[0].method != http.MethodPost || (*calls)[0].path != "/v1/stakes" {
		t.Fatalf("unexpected calls %+v", *calls)
	}
	body := (*calls)[0].body.(map[string]interface{})
	if body["quantity"] != "1000.0000" || body["term_days"] != uint64(30) {
		t.Fatalf("unexpected body %+v", body)
	}
	if !strings.Contains(out, "Opened stake 4: 1000.0000 GHOST for 30 days") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestStakeCommandValidatesArgs(t *testing.T) {
	stubAPI(t, `{}`, nil)
	if code, _, _ := runCLI("stake", "10"); code == 0 {
		t.Fatalf("expected usage error")
	}
	if code, _, errOut := runCLI("stake", "10", "zero"); code == 0 || !strings.Contains(errOut, "term") {
		t.Fatalf("expected term error, got %q", errOut)
	}
	if code, _, errOut := runCLI("claim", "x"); code == 0 || !strings.Contains(errOut, "invalid stake id") {
		t.Fatalf("expected id error, got %q", errOut)
	}
}

func TestStakeActionsUseStakePaths(t *testing.T) {
	cases := []struct {
		action   string
		response string
		want     string
	}{
		{"claim", `{"id":2,"reward":"0.2739 GHOST"}`, "Claimed 0.2739 GHOST from stake 2"},
		{"compound", `{"id":2,"reward":"1.0000 GHOST"}`, "Compounded 1.0000 GHOST into stake 2"},
		{"withdraw", `{"id":2,"principal":"5.0000 GHOST"}`, "Withdrew 5.0000 GHOST from stake 2"},
		{"unstake", `{"id":2,"status":"unstaking","unstake_ready_at":1700000000}`, "withdrawable from 2023-11-14T22:13:20Z"},
		{"restake", `{"id":2,"status":"active","opened_at":1700000000}`, "active again"},
	}
	for _, tc := range cases {
		calls := stubAPI(t, tc.response, nil)
		code, out, errOut := runCLI(tc.action, "2")
		if code != 0 {
			t.Fatalf("%s: exit %d: %s", tc.action, code, errOut)
		}
		if (*calls)[0].path != "/v1/stakes/2/"+tc.action {
			t.Fatalf("%s: unexpected path %s", tc.action, (*calls)[0].path)
		}
		if !strings.Contains(out, tc.want) {
			t.Fatalf("%s: unexpected output %q", tc.action, out)
		}
	}
}

func TestAPIErrorsAreReported(t *testing.T) {
	stubAPI(t, "", &apiError{Status: http.StatusUnprocessableEntity, Message: "staking: no rewards available", Code: "no_rewards"})
	code, _, errOut := runCLI("claim", "1")
	if code != 1 || !strings.Contains(errOut, "no_rewards") || !strings.Contains(errOut, "422") {
		t.Fatalf("unexpected error output %q", errOut)
	}
}

func TestListAndWhitelistOutput(t *testing.T) {
	stubAPI(t, `{"stakes":[{"id":0,"owner":"alice","status":"unstaking","principal":"1.0000 GHOST","reward":"0.0001 GHOST","term_days":7,"withdrawable":true}]}`, nil)
	_, out, _ := runCLI("list")
	if !strings.Contains(out, "#0 alice") || !strings.Contains(out, "(withdrawable)") {
		t.Fatalf("unexpected list output %q", out)
	}

	calls := stubAPI(t, `{"account":"bob","whitelisted":false}`, nil)
	code, out, _ := runCLI("whitelist", "remove", "bob")
	if code != 0 || (*calls)[0].method != http.MethodDelete || (*calls)[0].path != "/v1/admin/whitelist/bob" {
		t.Fatalf("unexpected remove call %+v", *calls)
	}
	if !strings.Contains(out, "Removed bob") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestGlobalFlags(t *testing.T) {
	originalEndpoint, originalToken := apiEndpoint, apiToken
	t.Cleanup(func() { apiEndpoint, apiToken = originalEndpoint, originalToken })

	rest, err := applyGlobalFlags([]string{"--endpoint", "http://example.test", "--token=abc", "list"})
	if err != nil {
		t.Fatalf("flags: %v", err)
	}
	if len(rest) != 1 || rest[0] != "list" || apiEndpoint != "http://example.test" || apiToken != "abc" {
		t.Fatalf("unexpected state rest=%v endpoint=%s token=%s", rest, apiEndpoint, apiToken)
	}
	if _, err := applyGlobalFlags([]string{"--token"}); err == nil {
		t.Fatalf("expected missing value error")
	}
}

func TestCallAPISendsBearerAndDecodesErrors(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path == "/v1/balance" {
			_, _ = io.WriteString(w, `{"account":"alice","balance":"1.0000 GHOST"}`)
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"staking: account not whitelisted","code":"not_whitelisted"}`)
	}))
	defer ts.Close()

	originalEndpoint, originalToken := apiEndpoint, apiToken
	apiEndpoint, apiToken = ts.URL, "tok"
	t.Cleanup(func() { apiEndpoint, apiToken = originalEndpoint, originalToken })

	data, err := callAPI(http.MethodGet, "/v1/balance", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if gotAuth != "Bearer tok" || !strings.Contains(string(data), "1.0000 GHOST") {
		t.Fatalf("unexpected auth %q data %s", gotAuth, data)
	}

	_, err = callAPI(http.MethodPost, "/v1/stakes", map[string]string{"quantity": "1"})
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden || apiErr.Code != "not_whitelisted" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTokenCommandMintsVerifiableToken(t *testing.T) {
	originalSource, originalNow := secretSource, tokenNow
	secretSource = func() (string, error) { return "cli-secret", nil }
	tokenNow = func() time.Time { return time.Now() }
	t.Cleanup(func() { secretSource, tokenNow = originalSource, originalNow })

	code, out, errOut := runCLI("token", "Alice", "--admin", "--ttl", "10m")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	verifier, err := auth.NewVerifier(auth.Config{Secret: "cli-secret", Issuer: "stakingd", Audience: "staking-api", AdminScope: "staking:admin"})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	principal, err := verifier.Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.Account != "alice" || !principal.Admin {
		t.Fatalf("unexpected principal %+v", principal)
	}

	secretSource = func() (string, error) { return "", errors.New("no secret") }
	if code, _, _ := runCLI("token", "alice"); code == 0 {
		t.Fatalf("expected failure without secret")
	}
}
