package chat

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
	chatService "github.com/zhouzirui/chat-relay/backend/internal/service/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/service/session"
	"github.com/zhouzirui/chat-relay/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	relay    *chatService.Service
	sessions session.Resolver
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// New 创建聊天处理器
func New(relay *chatService.Service, sessions session.Resolver, allowedOrigins []string, logger zerolog.Logger) *Handler {
	return &Handler{
		relay:    relay,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.With().Str("component", "chat_handler").Logger(),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/messages", h.handleListMessages)
	r.Get("/ws", h.handleWebSocket)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// messageView 对外暴露的消息结构，不包含内部 id 与时间戳
type messageView struct {
	Sender chat.Sender `json:"sender"`
	Text   string      `json:"text"`
}

type messagesResponse struct {
	Messages []messageView `json:"messages"`
}

// handleChat 转发用户消息并返回模型回复
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Resolve(w, r)

	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.relay.Send(r.Context(), sess.ID, payload.Message)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			utils.RespondError(w, http.StatusBadRequest, "Empty message")
			return
		}
		utils.RespondError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// handleListMessages 返回当前会话的历史消息
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	sess := h.sessions.Resolve(w, r)

	turns, err := h.relay.History(r.Context(), sess.ID)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}

	messages := make([]messageView, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, messageView{Sender: turn.Sender, Text: turn.Text})
	}

	utils.RespondJSON(w, http.StatusOK, messagesResponse{Messages: messages})
}
