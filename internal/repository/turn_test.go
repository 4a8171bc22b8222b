package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
)

func openTestRepository(t *testing.T, path string) *TurnRepository {
	t.Helper()

	db, err := Open(DriverSQLite, path)
	require.NoError(t, err)

	repo := NewTurnRepository(db)
	require.NoError(t, repo.InitSchema(context.Background()))
	return repo
}

func TestTurnRepositoryInitSchemaIsIdempotent(t *testing.T) {
	repo := openTestRepository(t, filepath.Join(t.TempDir(), "chat.db"))
	defer repo.Close()

	require.NoError(t, repo.InitSchema(context.Background()))
	require.NoError(t, repo.InitSchema(context.Background()))
}

func TestTurnRepositoryInsertThenList(t *testing.T) {
	repo := openTestRepository(t, filepath.Join(t.TempDir(), "chat.db"))
	defer repo.Close()
	ctx := context.Background()

	userID, err := repo.InsertTurn(ctx, "session-a", chat.SenderUser, "hello")
	require.NoError(t, err)
	botID, err := repo.InsertTurn(ctx, "session-a", chat.SenderBot, "hi there")
	require.NoError(t, err)
	_, err = repo.InsertTurn(ctx, "session-b", chat.SenderUser, "elsewhere")
	require.NoError(t, err)

	assert.Less(t, userID, botID)

	turns, err := repo.ListTurns(ctx, "session-a")
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.Equal(t, userID, turns[0].ID)
	assert.Equal(t, chat.SenderUser, turns[0].Sender)
	assert.Equal(t, "hello", turns[0].Text)
	assert.Equal(t, "session-a", turns[0].SessionID)
	assert.False(t, turns[0].CreatedAt.IsZero())

	assert.Equal(t, botID, turns[1].ID)
	assert.Equal(t, chat.SenderBot, turns[1].Sender)
	assert.Equal(t, "hi there", turns[1].Text)
	assert.False(t, turns[1].CreatedAt.Before(turns[0].CreatedAt))
}

func TestTurnRepositoryListEmptySession(t *testing.T) {
	repo := openTestRepository(t, filepath.Join(t.TempDir(), "chat.db"))
	defer repo.Close()

	turns, err := repo.ListTurns(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, turns)
	assert.Empty(t, turns)
}

func TestTurnRepositorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.db")
	ctx := context.Background()

	repo := openTestRepository(t, path)
	_, err := repo.InsertTurn(ctx, "durable", chat.SenderUser, "remember me")
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened := openTestRepository(t, path)
	defer reopened.Close()

	turns, err := reopened.ListTurns(ctx, "durable")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "remember me", turns[0].Text)
}

func TestTurnRepositoryRejectsInvalidTurn(t *testing.T) {
	repo := openTestRepository(t, filepath.Join(t.TempDir(), "chat.db"))
	defer repo.Close()

	_, err := repo.InsertTurn(context.Background(), "", chat.SenderUser, "x")
	assert.ErrorIs(t, err, chat.ErrInvalidTurn)
}

func TestTurnRepositoryConcurrentAppends(t *testing.T) {
	repo := openTestRepository(t, filepath.Join(t.TempDir(), "chat.db"))
	defer repo.Close()
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers*2)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.InsertTurn(ctx, "shared", chat.SenderUser, fmt.Sprintf("q%d", i)); err != nil {
				errs <- err
				return
			}
			if _, err := repo.InsertTurn(ctx, "shared", chat.SenderBot, fmt.Sprintf("a%d", i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	turns, err := repo.ListTurns(ctx, "shared")
	require.NoError(t, err)
	require.Len(t, turns, writers*2)
	for i := 1; i < len(turns); i++ {
		assert.Less(t, turns[i-1].ID, turns[i].ID)
	}
}

func TestTurnRepositoryClosedHandleReturnsStorageError(t *testing.T) {
	repo := openTestRepository(t, filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, repo.Close())

	_, err := repo.InsertTurn(context.Background(), "s", chat.SenderUser, "x")
	require.Error(t, err)

	var storageErr *chat.StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "insert turn", storageErr.Op)

	_, err = repo.ListTurns(context.Background(), "s")
	assert.True(t, errors.As(err, &storageErr))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}
