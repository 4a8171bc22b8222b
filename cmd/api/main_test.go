package main

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chat-relay/backend/internal/config"
	"github.com/zhouzirui/chat-relay/backend/internal/model/chat"
)

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()

	mem, err := openStore(ctx, config.StoreConfig{Driver: config.StoreDriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &chat.MemoryStore{}, mem)
	require.NoError(t, mem.Close())

	durable, err := openStore(ctx, config.StoreConfig{
		Driver: config.StoreDriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "chat.db"),
	})
	require.NoError(t, err)
	_, err = durable.InsertTurn(ctx, "s", chat.SenderUser, "hello")
	require.NoError(t, err)
	require.NoError(t, durable.Close())
}

func TestRunServerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	assert.NoError(t, runServer(ctx, srv))
}

func TestModelName(t *testing.T) {
	assert.Equal(t, "doubao", modelName(config.AIConfig{Provider: config.ProviderArk, Ark: config.ArkConfig{Model: "doubao"}}))
	assert.Equal(t, "gpt", modelName(config.AIConfig{Provider: config.ProviderOpenAI, Model: "gpt"}))
}
