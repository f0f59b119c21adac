package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/cache"
	"github.com/postbox/postbox/internal/metrics"
	"github.com/postbox/postbox/internal/repository/memory"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

type testEnv struct {
	store    *memory.Store
	cache    *cache.Cache
	redis    *miniredis.Miniredis
	metrics  *metrics.InMemoryRecorder
	identity *IdentityService
	messages *MessageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens, err := auth.NewTokenIssuer(testSecret)
	require.NoError(t, err)

	store := memory.New()
	c := cache.NewFromClient(client)
	rec := metrics.NewInMemory()

	return &testEnv{
		store:    store,
		cache:    c,
		redis:    mr,
		metrics:  rec,
		identity: NewIdentityService(store, c, tokens, time.Hour, rec),
		messages: NewMessageService(store, rec),
	}
}

// registerAndLogin creates a user and returns its ID and session token.
func (e *testEnv) registerAndLogin(t *testing.T, email, password string) (string, string) {
	t.Helper()
	ctx := context.Background()

	user, err := e.identity.Register(ctx, RegisterInput{Email: email, Name: "Test User", Password: password})
	require.NoError(t, err)

	session, err := e.identity.Authenticate(ctx, email, password)
	require.NoError(t, err)

	return user.ID, session.Token
}
