package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PuppyCerberus/token-staking-contract/core/host"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
	"github.com/PuppyCerberus/token-staking-contract/native/staking"
	"github.com/PuppyCerberus/token-staking-contract/services/stakingd/journal"
)

const maxBodyBytes = 1 << 16

type stakeView struct {
	ID                 uint64      `json:"id"`
	Owner              string      `json:"owner"`
	Principal          types.Asset `json:"principal"`
	TermDays           uint64      `json:"term_days"`
	Status             string      `json:"status"`
	OpenedAt           uint64      `json:"opened_at"`
	UnstakeRequestedAt uint64      `json:"unstake_requested_at,omitempty"`
	UnstakeReadyAt     uint64      `json:"unstake_ready_at,omitempty"`
	Reward             types.Asset `json:"reward"`
	Withdrawable       bool        `json:"withdrawable"`
	AsOf               uint64      `json:"as_of,omitempty"`
}

func recordView(rec *staking.StakeRecord) stakeView {
	return stakeView{
		ID:                 rec.ID,
		Owner:              rec.Owner.String(),
		Principal:          rec.Principal,
		TermDays:           rec.Term / staking.SecondsPerDay,
		Status:             string(rec.Status()),
		OpenedAt:           rec.OpenedAt,
		UnstakeRequestedAt: rec.UnstakeRequestedAt,
		UnstakeReadyAt:     rec.UnstakeReadyAt,
		Reward:             rec.PendingReward,
	}
}

func positionView(pos staking.Position) stakeView {
	view := recordView(&pos.Record)
	view.Status = string(pos.Status)
	view.Reward = pos.Reward
	view.Withdrawable = pos.Withdrawable
	view.AsOf = pos.AsOf
	return view
}

type activityView struct {
	Type       string            `json:"type"`
	StakeID    *uint64           `json:"stake_id,omitempty"`
	Account    string            `json:"account"`
	Sequence   uint64            `json:"sequence"`
	OccurredAt string            `json:"occurred_at"`
	Attributes map[string]string `json:"attributes"`
}

func activityViews(rows []journal.Activity) []activityView {
	out := make([]activityView, 0, len(rows))
	for _, row := range rows {
		out = append(out, activityView{
			Type:       row.Type,
			StakeID:    row.StakeID,
			Account:    row.Account,
			Sequence:   row.Sequence,
			OccurredAt: row.OccurredAt.UTC().Format("2006-01-02T15:04:05Z"),
			Attributes: row.Attrs(),
		})
	}
	return out
}

// caller returns the identity bound by authenticate.
func caller(r *http.Request) types.Name {
	name, _ := host.Caller(r.Context())
	return name
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func stakeID(r *http.Request) (uint64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New("stake id must be an unsigned integer")
	}
	return id, nil
}

func historyLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type openStakeRequest struct {
	Quantity string `json:"quantity"`
	TermDays uint64 `json:"term_days"`
}

func (s *Server) handleOpenStake(w http.ResponseWriter, r *http.Request) {
	var req openStakeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, r, "invalid payload: %v", err)
		return
	}
	params := s.stakes.Params()
	quantity, err := types.ParseQuantity(req.Quantity, params.Denomination)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.TermDays > math.MaxUint64/staking.SecondsPerDay {
		writeError(w, r, fmt.Errorf("%w: %d days", staking.ErrInvalidTerm, req.TermDays))
		return
	}
	rec, err := s.stakes.Open(r.Context(), caller(r), quantity, req.TermDays*staking.SecondsPerDay)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, recordView(rec))
}

func (s *Server) handleListStakes(w http.ResponseWriter, r *http.Request) {
	positions, err := s.stakes.List(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]stakeView, 0, len(positions))
	for _, pos := range positions {
		views = append(views, positionView(pos))
	}
	writeJSON(w, http.StatusOK, map[string]any{"stakes": views})
}

func (s *Server) handleUnstake(w http.ResponseWriter, r *http.Request) {
	s.recordCommand(w, r, s.stakes.RequestUnstake)
}

func (s *Server) handleRestake(w http.ResponseWriter, r *http.Request) {
	s.recordCommand(w, r, s.stakes.Restake)
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	s.assetCommand(w, r, "reward", s.stakes.Claim)
}

func (s *Server) handleCompound(w http.ResponseWriter, r *http.Request) {
	s.assetCommand(w, r, "reward", s.stakes.CompoundReward)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.assetCommand(w, r, "principal", s.stakes.Withdraw)
}

type recordFunc func(ctx context.Context, user types.Name, id uint64) (*staking.StakeRecord, error)

func (s *Server) recordCommand(w http.ResponseWriter, r *http.Request, fn recordFunc) {
	id, err := stakeID(r)
	if err != nil {
		writeBadRequest(w, r, "%v", err)
		return
	}
	rec, err := fn(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordView(rec))
}

type assetFunc func(ctx context.Context, user types.Name, id uint64) (types.Asset, error)

func (s *Server) assetCommand(w http.ResponseWriter, r *http.Request, field string, fn assetFunc) {
	id, err := stakeID(r)
	if err != nil {
		writeBadRequest(w, r, "%v", err)
		return
	}
	amount, err := fn(r.Context(), caller(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, field: amount})
}

func (s *Server) handleStakeHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "journal disabled", Code: "unavailable", RequestID: requestID(r.Context())})
		return
	}
	id, err := stakeID(r)
	if err != nil {
		writeBadRequest(w, r, "%v", err)
		return
	}
	rows, err := s.history.StakeHistory(r.Context(), caller(r).String(), id, historyLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "events": activityViews(rows)})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "journal disabled", Code: "unavailable", RequestID: requestID(r.Context())})
		return
	}
	rows, err := s.history.AccountHistory(r.Context(), caller(r).String(), historyLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": activityViews(rows)})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := caller(r)
	balance, err := s.balances.Balance(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account.String(), "balance": balance})
}

func (s *Server) handleWhitelistSelf(w http.ResponseWriter, r *http.Request) {
	account := caller(r)
	allowed, err := s.allowlist.Lookup(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account.String(), "whitelisted": allowed})
}
