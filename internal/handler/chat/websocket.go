package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
)

const maxFrameBytes = 64 * 1024

type inboundFrame struct {
	Message string `json:"message"`
}

type outboundFrame struct {
	Type  string `json:"type"`
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// handleWebSocket 通过 WebSocket 复用同一条转发流程，每个入站帧对应一次 /chat 调用
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Resolve before the upgrade so a freshly issued credential rides on the
	// handshake response.
	sess := h.sessions.Resolve(w, r)

	conn, err := h.upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrameBytes)

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Warn().Err(err).Str("session", sess.ID).Msg("websocket closed unexpectedly")
			}
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			if !h.write(conn, outboundFrame{Type: "error", Error: "invalid message payload"}) {
				return
			}
			continue
		}

		out := outboundFrame{Type: "reply"}
		reply, err := h.relay.Send(ctx, sess.ID, frame.Message)
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			out = outboundFrame{Type: "error", Error: "Empty message"}
		case err != nil:
			out = outboundFrame{Type: "error", Error: "failed to save message"}
		default:
			out.Reply = reply
		}

		if !h.write(conn, out) {
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, frame outboundFrame) bool {
	if err := conn.WriteJSON(frame); err != nil {
		h.log.Warn().Err(err).Msg("failed to write websocket frame")
		return false
	}
	return true
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
