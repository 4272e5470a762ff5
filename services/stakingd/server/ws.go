package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/PuppyCerberus/token-staking-contract/core/events"
	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

const wsWriteTimeout = 10 * time.Second

// handleEvents streams committed events as JSON text frames. Accounts only
// see events that name them; admins see everything.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "event stream disabled", Code: "unavailable", RequestID: requestID(r.Context())})
		return
	}
	principal, _ := principalFrom(r.Context())
	filter := func(events.Envelope) bool { return true }
	if principal != nil && !principal.Admin {
		filter = visibleTo(principal.Account)
	}
	// Subscribe before the upgrade completes so nothing committed after the
	// handshake is missed.
	updates, cancel, backlog := s.events.Subscribe(r.Context(), strings.TrimSpace(r.URL.Query().Get("cursor")))
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")

	ctx := conn.CloseRead(r.Context())
	if err := streamEvents(ctx, conn, backlog, updates, filter); err != nil {
		if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func visibleTo(account types.Name) func(events.Envelope) bool {
	name := account.String()
	return func(env events.Envelope) bool {
		attrs := env.Event.Attributes
		return attrs["owner"] == name || attrs["account"] == name
	}
}

func streamEvents(ctx context.Context, conn *websocket.Conn, backlog []events.Envelope, updates <-chan events.Envelope, filter func(events.Envelope) bool) error {
	for _, env := range backlog {
		if !filter(env) {
			continue
		}
		if err := writeEnvelope(ctx, conn, env); err != nil {
			return err
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-updates:
			if !ok {
				return nil
			}
			if !filter(env) {
				continue
			}
			if err := writeEnvelope(ctx, conn, env); err != nil {
				return err
			}
		}
	}
}

func writeEnvelope(ctx context.Context, conn *websocket.Conn, env events.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
