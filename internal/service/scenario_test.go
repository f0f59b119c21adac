package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two users exchange a message end to end: send, read twice, delete.
func TestMessagingScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.identity.Register(ctx, RegisterInput{Email: "a@x.io", Name: "A", Password: "pa"})
	require.NoError(t, err)
	userB, err := env.identity.Register(ctx, RegisterInput{Email: "b@x.io", Name: "B", Password: "pb"})
	require.NoError(t, err)

	sessionA, err := env.identity.Authenticate(ctx, "a@x.io", "pa")
	require.NoError(t, err)
	callerA, err := env.identity.ResolveCaller(ctx, sessionA.Token)
	require.NoError(t, err)

	sent, err := env.messages.Send(ctx, callerA.UserID, SendInput{ReceiverID: userB.ID, Subject: "hi", Body: "hello"})
	require.NoError(t, err)

	sessionB, err := env.identity.Authenticate(ctx, "b@x.io", "pb")
	require.NoError(t, err)
	callerB, err := env.identity.ResolveCaller(ctx, sessionB.Token)
	require.NoError(t, err)

	first, err := env.messages.ListInbox(ctx, callerB.UserID, false)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, sent.ID, first[0].ID)
	assert.Equal(t, callerA.UserID, first[0].SenderID)
	assert.False(t, first[0].Read)

	stored, err := env.store.GetMessageByID(ctx, sent.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)

	second, err := env.messages.ListInbox(ctx, callerB.UserID, false)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.True(t, second[0].Read)

	require.NoError(t, env.messages.Delete(ctx, callerB.UserID, sent.ID))

	_, found, err := env.messages.LatestInbox(ctx, callerB.UserID)
	require.NoError(t, err)
	assert.False(t, found)
}
