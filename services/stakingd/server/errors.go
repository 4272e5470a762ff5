package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuppyCerberus/token-staking-contract/core/host"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/native/bank"
	"github.com/PuppyCerberus/token-staking-contract/native/staking"
	"github.com/PuppyCerberus/token-staking-contract/native/whitelist"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/auth"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

type errorClass struct {
	status int
	code   string
}

var errorClasses = []struct {
	target error
	class  errorClass
}{
	{auth.ErrMissingToken, errorClass{http.StatusUnauthorized, "unauthenticated"}},
	{auth.ErrInvalidToken, errorClass{http.StatusUnauthorized, "unauthenticated"}},
	{host.ErrMissingAuthority, errorClass{http.StatusForbidden, "forbidden"}},
	{staking.ErrUnauthorized, errorClass{http.StatusForbidden, "not_owner"}},
	{staking.ErrNotWhitelisted, errorClass{http.StatusForbidden, "not_whitelisted"}},
	{staking.ErrNotFound, errorClass{http.StatusNotFound, "not_found"}},
	{staking.ErrInvalidAmount, errorClass{http.StatusBadRequest, "invalid_amount"}},
	{staking.ErrInvalidDenomination, errorClass{http.StatusBadRequest, "invalid_denomination"}},
	{staking.ErrInvalidTerm, errorClass{http.StatusBadRequest, "invalid_term"}},
	{types.ErrInvalidName, errorClass{http.StatusBadRequest, "invalid_name"}},
	{types.ErrInvalidAsset, errorClass{http.StatusBadRequest, "invalid_asset"}},
	{types.ErrSymbolMismatch, errorClass{http.StatusBadRequest, "invalid_denomination"}},
	{staking.ErrAlreadyUnstaking, errorClass{http.StatusConflict, "already_unstaking"}},
	{staking.ErrNotUnstaking, errorClass{http.StatusConflict, "not_unstaking"}},
	{whitelist.ErrAlreadyWhitelisted, errorClass{http.StatusConflict, "already_whitelisted"}},
	{whitelist.ErrNotWhitelistedForRemoval, errorClass{http.StatusNotFound, "not_whitelisted"}},
	{staking.ErrNoRewardsAvailable, errorClass{http.StatusUnprocessableEntity, "no_rewards"}},
	{staking.ErrCoolingOff, errorClass{http.StatusUnprocessableEntity, "cooling_off"}},
	{bank.ErrInsufficientBalance, errorClass{http.StatusUnprocessableEntity, "insufficient_balance"}},
	{staking.ErrRewardOverflow, errorClass{http.StatusUnprocessableEntity, "overflow"}},
	{staking.ErrAmountOverflow, errorClass{http.StatusUnprocessableEntity, "overflow"}},
	{context.DeadlineExceeded, errorClass{http.StatusGatewayTimeout, "timeout"}},
}

func classify(err error) errorClass {
	for _, entry := range errorClasses {
		if errors.Is(err, entry.target) {
			return entry.class
		}
	}
	return errorClass{http.StatusInternalServerError, "internal"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	class := classify(err)
	message := strings.TrimSpace(err.Error())
	if class.status == http.StatusInternalServerError {
		message = http.StatusText(class.status)
	}
	writeJSON(w, class.status, errorResponse{Error: message, Code: class.code, RequestID: requestID(r.Context())})
}

func writeBadRequest(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:     fmt.Sprintf(format, args...),
		Code:      "bad_request",
		RequestID: requestID(r.Context()),
	})
}
