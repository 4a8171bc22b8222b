package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/metrics"
)

// Fixed replies substituted when the provider yields nothing usable.
const (
	EmptyReply = "Sorry, I couldn't generate a response."
	ErrorReply = "Oops, something went wrong generating the response."
)

// Provider performs one single-turn completion against a remote model.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Service is the completion gateway. It never returns an error: provider
// failures are logged and replaced by a fixed fallback reply.
type Service struct {
	provider Provider
	log      zerolog.Logger
}

// NewService creates a gateway over the given provider.
func NewService(provider Provider, logger zerolog.Logger) *Service {
	return &Service{
		provider: provider,
		log:      logger.With().Str("component", "ai").Str("provider", provider.Name()).Logger(),
	}
}

// Complete sends prompt as a single user message and returns the reply text.
// No retry is attempted.
func (s *Service) Complete(ctx context.Context, prompt string) (reply string) {
	start := time.Now()
	outcome := metrics.CompletionOK
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("completion provider panicked")
			reply = ErrorReply
			outcome = metrics.CompletionError
		}
		metrics.RecordCompletion(s.provider.Name(), outcome, time.Since(start))
	}()

	content, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		s.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("completion failed")
		outcome = metrics.CompletionError
		return ErrorReply
	}

	if strings.TrimSpace(content) == "" {
		s.log.Warn().Msg("completion returned no content")
		outcome = metrics.CompletionEmpty
		return EmptyReply
	}

	s.log.Debug().Int("length", len(content)).Dur("elapsed", time.Since(start)).Msg("generated response")
	return content
}

// NewProvider builds the provider selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.AIConfig) (Provider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%s credentials or model not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderHuggingFace, config.ProviderOpenAI:
		return NewOpenAIProvider(cfg.Provider, cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Timeout), nil
	case config.ProviderArk:
		chatModel, err := cfg.Ark.NewChatModel(ctx, cfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		return NewChatModelProvider(ctx, config.ProviderArk, chatModel)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// UnavailableProvider stands in when no provider could be configured.
type UnavailableProvider struct {
	Reason error
}

func (UnavailableProvider) Name() string { return "unavailable" }

func (u UnavailableProvider) Generate(context.Context, string) (string, error) {
	if u.Reason != nil {
		return "", fmt.Errorf("completion provider unavailable: %w", u.Reason)
	}
	return "", fmt.Errorf("completion provider unavailable")
}
