package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"rummiscore/internal/engine"
	"rummiscore/internal/hub"
	"rummiscore/internal/session"
	"rummiscore/internal/types"
)

// Handler upgrades the connection and bridges it to the session actor for
// ?code=. A saved but non-resident session is hydrated on first connect.
func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.EnsureSession{Code: code, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		clientID := uuid.NewString()

		sess.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { sess.Inbox() <- session.Leave{ClientID: clientID} }()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				msg := types.ServerMessage{
					Type:    "StateSnapshot",
					Version: snap.Version,
					State:   snap.State,
					Events:  snap.Events,
				}
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, 3*time.Second)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		// Reader loop. No read deadline: a table can sit untouched for
		// minutes between turns while snapshots keep flowing out.
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Otherwise, just exit (session.Leave in defer):
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, "bad json")
				continue
			}

			cmd, ok := toEngineCommand(cm)
			if !ok {
				writeError(r.Context(), conn, "unknown type")
				continue
			}

			errReply := make(chan error, 1)
			sess.Inbox() <- session.FromClient{Cmd: cmd, Reply: errReply}
			select {
			case cmdErr := <-errReply:
				if cmdErr != nil {
					writeError(r.Context(), conn, cmdErr.Error())
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, reason string) {
	payload, _ := json.Marshal(types.ServerMessage{Type: "Error", Error: reason})
	wctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	_ = conn.Write(wctx, websocket.MessageText, payload)
	cancel()
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "AddPlayer":
		return engine.Command{Type: engine.CmdAddPlayer, Name: m.Name}, true
	case "RemovePlayer":
		return engine.Command{Type: engine.CmdRemovePlayer, Player: m.Player}, true
	case "MovePlayer":
		return engine.Command{Type: engine.CmdMovePlayer, Player: m.Player, Delta: m.Delta}, true
	case "RenamePlayer":
		return engine.Command{Type: engine.CmdRenamePlayer, Player: m.Player, Name: m.Name}, true
	case "StartGame":
		return engine.Command{Type: engine.CmdStartGame}, true
	case "ResetGame":
		return engine.Command{Type: engine.CmdResetGame}, true
	case "SetCell":
		return engine.Command{Type: engine.CmdSetCell, Round: m.Round, Player: m.Player, Raw: m.Value}, true
	case "SetTileDetail":
		return engine.Command{Type: engine.CmdSetTileDetail, Round: m.Round, Player: m.Player, Counts: m.Counts}, true
	case "DeclareWinner":
		return engine.Command{Type: engine.CmdDeclareWinner, Round: m.Round, Player: m.Player}, true
	case "ClearWinner":
		return engine.Command{Type: engine.CmdClearWinner, Round: m.Round, Player: m.Player}, true
	case "CloseRound":
		return engine.Command{Type: engine.CmdCloseRound, ConfirmInferred: m.ConfirmInferred}, true
	case "EnableEdit":
		return engine.Command{Type: engine.CmdEnableEdit, Round: m.Round}, true
	case "ConfigureClock":
		return engine.Command{
			Type:          engine.CmdConfigureClock,
			Rule:          engine.TimeRule(m.Rule),
			CustomMinutes: m.CustomMinutes,
			Sound:         m.Sound,
			AutoRotate:    m.AutoRotate,
			ConfirmExpiry: m.ConfirmExpiry,
		}, true
	case "StartClock":
		return engine.Command{Type: engine.CmdStartClock}, true
	case "StopClock":
		return engine.Command{Type: engine.CmdStopClock}, true
	case "SkipTurn":
		return engine.Command{Type: engine.CmdSkipTurn}, true
	case "ConfirmPenalty":
		return engine.Command{Type: engine.CmdConfirmPenalty, Round: m.Round, Player: m.Player, Entry: m.Entry, Accepted: m.Accepted}, true
	default:
		return engine.Command{}, false
	}
}
