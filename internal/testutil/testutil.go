package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/postbox/postbox/internal/model"
	"github.com/postbox/postbox/internal/repository/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema rolls back and reapplies all migrations.
func ResetSchema(ctx context.Context, databaseURL string) error {
	if err := migrations.Reset(ctx, databaseURL); err != nil {
		return fmt.Errorf("reset schema: %w", err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a test user with a fake identity.
// PasswordHash is a placeholder; hash a real password when login matters.
func NewTestUser(t testing.TB) *model.User {
	t.Helper()
	return &model.User{
		ID:           ulid.Make().String(),
		Email:        UniqueEmail(),
		Name:         gofakeit.Name(),
		PasswordHash: fmt.Sprintf("hash-%d", time.Now().UnixNano()),
		CreatedAt:    time.Now().UTC(),
	}
}

// NewTestMessage creates an unread test message between two users.
func NewTestMessage(t testing.TB, senderID, receiverID string) *model.Message {
	t.Helper()
	return &model.Message{
		ID:         ulid.Make().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Subject:    truncate(gofakeit.Sentence(4), model.MaxSubjectLength),
		Body:       truncate(gofakeit.Sentence(12), model.MaxBodyLength),
		CreatedAt:  time.Now().UTC(),
	}
}

// UniqueEmail generates a unique, lower-case email for tests.
func UniqueEmail() string {
	return strings.ToLower(fmt.Sprintf("%d.%s", time.Now().UnixNano(), gofakeit.Email()))
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
