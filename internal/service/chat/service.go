package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-relay/backend/internal/metrics"
	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
)

// Completer produces a reply for one prompt. It never fails; see ai.Service.
type Completer interface {
	Complete(ctx context.Context, prompt string) string
}

// Service relays user messages to the completion gateway and records both
// sides of the exchange.
type Service struct {
	store     chat.Store
	completer Completer
	log       zerolog.Logger
}

// NewService wires the relay to its store and gateway.
func NewService(store chat.Store, completer Completer, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		completer: completer,
		log:       logger.With().Str("component", "relay").Logger(),
	}
}

// Send runs validate → persist user turn → complete → persist bot turn.
//
// It returns chat.ErrEmptyMessage before any write when the trimmed message
// is empty, and the storage error when the user turn cannot be recorded.
// Once the user turn is stored a reply is always returned, even if the bot
// turn cannot be written.
func (s *Service) Send(ctx context.Context, sessionID, message string) (string, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		metrics.RecordRelay(metrics.OutcomeRejected)
		return "", chat.ErrEmptyMessage
	}

	_, err := s.store.InsertTurn(ctx, sessionID, chat.SenderUser, text)
	metrics.RecordTurn(string(chat.SenderUser), err)
	if err != nil {
		metrics.RecordRelay(metrics.OutcomeFailed)
		s.log.Error().Err(err).Str("session", sessionID).Msg("failed to save user turn")
		return "", err
	}

	// The user turn is durable now; a client disconnect must not leave it unanswered.
	ctx = context.WithoutCancel(ctx)

	reply := s.completer.Complete(ctx, text)

	_, err = s.store.InsertTurn(ctx, sessionID, chat.SenderBot, reply)
	metrics.RecordTurn(string(chat.SenderBot), err)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("failed to save bot turn")
	}

	metrics.RecordRelay(metrics.OutcomeReplied)
	return reply, nil
}

// History returns the session's turns, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	turns, err := s.store.ListTurns(ctx, sessionID)
	if err != nil {
		s.log.Error().Err(err).Str("session", sessionID).Msg("failed to load history")
		return nil, err
	}
	return turns, nil
}
