package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
	"github.com/zhouzirui/chat-relay/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/chat-relay/backend/internal/service/chat"
)

type fixedCompleter struct {
	mu      sync.Mutex
	reply   string
	prompts []string
	ctxErr  error
}

func (f *fixedCompleter) Complete(ctx context.Context, prompt string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.ctxErr = ctx.Err()
	return f.reply
}

// flakyStore fails inserts for the configured sender.
type flakyStore struct {
	*chat.MemoryStore
	failSender chat.Sender
}

func (f *flakyStore) InsertTurn(ctx context.Context, sessionID string, sender chat.Sender, text string) (uint64, error) {
	if sender == f.failSender {
		return 0, &chat.StorageError{Op: "insert turn", Err: errors.New("database is locked")}
	}
	return f.MemoryStore.InsertTurn(ctx, sessionID, sender, text)
}

func TestSendPersistsUserThenBotTurn(t *testing.T) {
	store := chat.NewMemoryStore()
	completer := &fixedCompleter{reply: "hi there"}
	svc := chatservice.NewService(store, completer, zerolog.Nop())
	ctx := context.Background()

	reply, err := svc.Send(ctx, "s1", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)
	assert.Equal(t, []string{"hello"}, completer.prompts)

	turns, err := svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, chat.SenderUser, turns[0].Sender)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, chat.SenderBot, turns[1].Sender)
	assert.Equal(t, "hi there", turns[1].Text)
	assert.Equal(t, turns[0].ID+1, turns[1].ID)
}

func TestSendRejectsBlankMessage(t *testing.T) {
	store := chat.NewMemoryStore()
	completer := &fixedCompleter{reply: "unused"}
	svc := chatservice.NewService(store, completer, zerolog.Nop())

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err := svc.Send(context.Background(), "s1", message)
		assert.ErrorIs(t, err, chat.ErrEmptyMessage)
	}

	turns, err := svc.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, turns)
	assert.Empty(t, completer.prompts)
}

func TestSendUserTurnFailureSkipsCompletion(t *testing.T) {
	store := &flakyStore{MemoryStore: chat.NewMemoryStore(), failSender: chat.SenderUser}
	completer := &fixedCompleter{reply: "unused"}
	svc := chatservice.NewService(store, completer, zerolog.Nop())

	_, err := svc.Send(context.Background(), "s1", "hello")

	var storageErr *chat.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Empty(t, completer.prompts)
}

func TestSendBotTurnFailureStillReplies(t *testing.T) {
	store := &flakyStore{MemoryStore: chat.NewMemoryStore(), failSender: chat.SenderBot}
	svc := chatservice.NewService(store, &fixedCompleter{reply: "hi there"}, zerolog.Nop())

	reply, err := svc.Send(context.Background(), "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", reply)

	turns, err := svc.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, chat.SenderUser, turns[0].Sender)
}

func TestSendCompletesAfterClientCancellation(t *testing.T) {
	store := chat.NewMemoryStore()
	completer := &fixedCompleter{reply: "late but present"}
	svc := chatservice.NewService(store, completer, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := svc.Send(ctx, "s1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "late but present", reply)
	assert.NoError(t, completer.ctxErr)

	turns, err := svc.History(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, turns, 2)
}

type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }

func (failingProvider) Generate(context.Context, string) (string, error) {
	return "", errors.New("connection reset by peer")
}

func TestSendPersistsFallbackWhenProviderFails(t *testing.T) {
	store := chat.NewMemoryStore()
	gateway := ai.NewService(failingProvider{}, zerolog.Nop())
	svc := chatservice.NewService(store, gateway, zerolog.Nop())

	reply, err := svc.Send(context.Background(), "s1", "x")
	require.NoError(t, err)
	assert.Equal(t, ai.ErrorReply, reply)

	turns, err := svc.History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, ai.ErrorReply, turns[1].Text)
}

func TestConcurrentSendsKeepSessionsApart(t *testing.T) {
	store := chat.NewMemoryStore()
	svc := chatservice.NewService(store, &fixedCompleter{reply: "ok"}, zerolog.Nop())
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, session := range []string{"a", "b", "c"} {
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func(session string) {
				defer wg.Done()
				_, err := svc.Send(ctx, session, "ping")
				assert.NoError(t, err)
			}(session)
		}
	}
	wg.Wait()

	for _, session := range []string{"a", "b", "c"} {
		turns, err := svc.History(ctx, session)
		require.NoError(t, err)
		require.Len(t, turns, 10)
		for i := 1; i < len(turns); i++ {
			assert.Less(t, turns[i-1].ID, turns[i].ID)
		}
		for _, turn := range turns {
			assert.Equal(t, session, turn.SessionID)
		}
	}
}
