package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

type whitelistRequest struct {
	Account string `json:"account"`
}

func (s *Server) handleWhitelistList(w http.ResponseWriter, r *http.Request) {
	members, err := s.allowlist.Members(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	names := make([]string, 0, len(members))
	for _, member := range members {
		names = append(names, member.String())
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": names})
}

func (s *Server) handleWhitelistAdd(w http.ResponseWriter, r *http.Request) {
	var req whitelistRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeBadRequest(w, r, "invalid payload: %v", err)
		return
	}
	account, err := types.ParseName(req.Account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.allowlist.Add(r.Context(), account); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"account": account.String(), "whitelisted": true})
}

func (s *Server) handleWhitelistRemove(w http.ResponseWriter, r *http.Request) {
	account, err := types.ParseName(strings.TrimSpace(chi.URLParam(r, "account")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.allowlist.Remove(r.Context(), account); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account": account.String(), "whitelisted": false})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.stakes.Positions(r.Context())
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

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.export == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "export disabled", Code: "unavailable", RequestID: requestID(r.Context())})
		return
	}
	positions, err := s.stakes.Positions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	path, err := s.export(positions, s.now())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "rows": len(positions)})
}
