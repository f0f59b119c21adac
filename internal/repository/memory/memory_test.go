package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/postbox/postbox/internal/model"
	"github.com/postbox/postbox/internal/repository"
	"github.com/postbox/postbox/internal/testutil"
)

func seedUsers(t *testing.T, s *Store, n int) []*model.User {
	t.Helper()
	users := make([]*model.User, n)
	for i := range users {
		users[i] = testutil.NewTestUser(t)
		if err := s.CreateUser(context.Background(), users[i]); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}
	return users
}

func TestStore_DuplicateEmail(t *testing.T) {
	t.Parallel()
	s := New()
	users := seedUsers(t, s, 1)

	dup := testutil.NewTestUser(t)
	dup.Email = users[0].Email

	if err := s.CreateUser(context.Background(), dup); !errors.Is(err, repository.ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestStore_CreateMessage_UnknownReceiver(t *testing.T) {
	t.Parallel()
	s := New()
	users := seedUsers(t, s, 1)

	msg := testutil.NewTestMessage(t, users[0].ID, "ghost")
	if err := s.CreateMessage(context.Background(), msg); !errors.Is(err, repository.ErrReceiverNotFound) {
		t.Errorf("expected ErrReceiverNotFound, got %v", err)
	}
}

func TestStore_ListInbox_OrderAndMarking(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	users := seedUsers(t, s, 2)
	a, b := users[0], users[1]

	var ids []string
	for i := 0; i < 3; i++ {
		msg := testutil.NewTestMessage(t, a.ID, b.ID)
		if err := s.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	first, err := s.ListInbox(ctx, b.ID, true)
	if err != nil {
		t.Fatalf("ListInbox failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 unread, got %d", len(first))
	}
	for i, msg := range first {
		if msg.ID != ids[i] {
			t.Errorf("position %d: got %s, want %s", i, msg.ID, ids[i])
		}
		if msg.Read {
			t.Error("snapshot should carry pre-mark state")
		}
	}

	again, _ := s.ListInbox(ctx, b.ID, true)
	if len(again) != 0 {
		t.Errorf("expected no unread after listing, got %d", len(again))
	}

	all, _ := s.ListInbox(ctx, b.ID, false)
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	for _, msg := range all {
		if !msg.Read {
			t.Error("messages should be read after first listing")
		}
	}
}

func TestStore_LatestInbox(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	users := seedUsers(t, s, 2)
	a, b := users[0], users[1]

	if _, err := s.LatestInbox(ctx, b.ID); !errors.Is(err, repository.ErrMessageNotFound) {
		t.Fatalf("expected ErrMessageNotFound, got %v", err)
	}

	now := time.Now().UTC()
	first := testutil.NewTestMessage(t, a.ID, b.ID)
	first.CreatedAt = now
	second := testutil.NewTestMessage(t, a.ID, b.ID)
	second.CreatedAt = now // tie: insertion order wins
	_ = s.CreateMessage(ctx, first)
	_ = s.CreateMessage(ctx, second)

	latest, err := s.LatestInbox(ctx, b.ID)
	if err != nil {
		t.Fatalf("LatestInbox failed: %v", err)
	}
	if latest.ID != second.ID {
		t.Errorf("expected %s, got %s", second.ID, latest.ID)
	}

	stored, _ := s.GetMessageByID(ctx, second.ID)
	if !stored.Read {
		t.Error("latest should be marked read")
	}
}

func TestStore_DeleteMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	users := seedUsers(t, s, 3)
	a, b, c := users[0], users[1], users[2]

	msg := testutil.NewTestMessage(t, a.ID, b.ID)
	_ = s.CreateMessage(ctx, msg)

	if err := s.DeleteMessage(ctx, msg.ID, c.ID); !errors.Is(err, repository.ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
	if err := s.DeleteMessage(ctx, "missing", a.ID); !errors.Is(err, repository.ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
	if err := s.DeleteMessage(ctx, msg.ID, a.ID); err != nil {
		t.Errorf("sender delete failed: %v", err)
	}
	if _, err := s.GetMessageByID(ctx, msg.ID); !errors.Is(err, repository.ErrMessageNotFound) {
		t.Errorf("message should be gone, got %v", err)
	}
}
