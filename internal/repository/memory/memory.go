// Package memory provides an in-process implementation of the repository
// contracts. It honors the same sentinel errors and atomicity as the
// Postgres repository, guarded by a single mutex.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/postbox/postbox/internal/model"
	"github.com/postbox/postbox/internal/repository"
)

// Store keeps users and messages in memory.
type Store struct {
	mu       sync.Mutex
	users    map[string]*model.User
	emails   map[string]string // email -> user ID
	messages map[string]*storedMessage
	nextSeq  int64
}

type storedMessage struct {
	msg model.Message
	seq int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:    make(map[string]*model.User),
		emails:   make(map[string]string),
		messages: make(map[string]*storedMessage),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreateUser stores a user, enforcing email uniqueness.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[user.Email]; ok {
		return repository.ErrEmailExists
	}

	u := *user
	s.users[u.ID] = &u
	s.emails[u.Email] = u.ID
	return nil
}

// GetUserByID retrieves a user by ID. Used for verification in tests.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.emails[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *s.users[id]
	return &out, nil
}

// CreateMessage stores a message if both participants exist.
func (s *Store) CreateMessage(ctx context.Context, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[msg.SenderID]; !ok {
		return repository.ErrSenderNotFound
	}
	if _, ok := s.users[msg.ReceiverID]; !ok {
		return repository.ErrReceiverNotFound
	}

	s.nextSeq++
	s.messages[msg.ID] = &storedMessage{msg: *msg, seq: s.nextSeq}
	return nil
}

// GetMessageByID retrieves a message without changing its read flag.
// Used for verification in tests.
func (s *Store) GetMessageByID(ctx context.Context, id string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sm, ok := s.messages[id]
	if !ok {
		return nil, repository.ErrMessageNotFound
	}
	out := sm.msg
	return &out, nil
}

// ListInbox returns the receiver's messages in insertion order, marking
// them read. Returned copies carry the pre-mark read flag.
func (s *Store) ListInbox(ctx context.Context, receiverID string, onlyUnread bool) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*storedMessage, 0)
	for _, sm := range s.messages {
		if sm.msg.ReceiverID != receiverID {
			continue
		}
		if onlyUnread && sm.msg.Read {
			continue
		}
		matched = append(matched, sm)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]*model.Message, 0, len(matched))
	for _, sm := range matched {
		snapshot := sm.msg
		out = append(out, &snapshot)
		sm.msg.Read = true
	}
	return out, nil
}

// LatestInbox returns the receiver's newest message and marks it read.
func (s *Store) LatestInbox(ctx context.Context, receiverID string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *storedMessage
	for _, sm := range s.messages {
		if sm.msg.ReceiverID != receiverID {
			continue
		}
		if latest == nil || newer(sm, latest) {
			latest = sm
		}
	}
	if latest == nil {
		return nil, repository.ErrMessageNotFound
	}

	snapshot := latest.msg
	latest.msg.Read = true
	return &snapshot, nil
}

// DeleteMessage removes a message if userID is a participant.
func (s *Store) DeleteMessage(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sm, ok := s.messages[id]
	if !ok {
		return repository.ErrMessageNotFound
	}
	if !sm.msg.IsParticipant(userID) {
		return repository.ErrNotParticipant
	}
	delete(s.messages, id)
	return nil
}

// newer orders by creation time, then insertion sequence.
func newer(a, b *storedMessage) bool {
	if !a.msg.CreatedAt.Equal(b.msg.CreatedAt) {
		return a.msg.CreatedAt.After(b.msg.CreatedAt)
	}
	return a.seq > b.seq
}
