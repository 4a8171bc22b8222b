package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChatModelProvider runs an eino chat model behind a one-message template.
type ChatModelProvider struct {
	name  string
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChatModelProvider compiles the template → model chain.
func NewChatModelProvider(ctx context.Context, name string, chatModel model.BaseChatModel) (*ChatModelProvider, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ChatModelProvider{name: name, chain: runnable}, nil
}

func (p *ChatModelProvider) Name() string { return p.name }

func (p *ChatModelProvider) Generate(ctx context.Context, text string) (string, error) {
	response, err := p.chain.Invoke(ctx, map[string]any{"query": text})
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}
	if response == nil {
		return "", nil
	}
	return response.Content, nil
}
