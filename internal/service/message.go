package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/postbox/postbox/internal/metrics"
	"github.com/postbox/postbox/internal/model"
	"github.com/postbox/postbox/internal/repository"
)

// MessageService enforces who may send, read and delete messages.
// Every operation takes the caller's user ID explicitly.
type MessageService struct {
	store   MessageStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewMessageService creates a new MessageService.
func NewMessageService(store MessageStore, recorder metrics.Recorder) *MessageService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &MessageService{
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// SendInput defines input for sending a message.
type SendInput struct {
	ReceiverID string
	Subject    string
	Body       string
}

// Send stores a new unread message from the caller.
func (s *MessageService) Send(ctx context.Context, callerID string, input SendInput) (*model.Message, error) {
	if callerID == "" {
		return nil, ErrNotAuthenticated
	}

	receiverID := strings.TrimSpace(input.ReceiverID)
	if receiverID == "" {
		return nil, fmt.Errorf("%w: receiver is required", ErrInvalidInput)
	}
	if err := validateText("subject", input.Subject, model.MaxSubjectLength); err != nil {
		return nil, err
	}
	if err := validateText("message", input.Body, model.MaxBodyLength); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:         generateULID(),
		SenderID:   callerID,
		ReceiverID: receiverID,
		Subject:    input.Subject,
		Body:       input.Body,
		CreatedAt:  s.now().UTC(),
		Read:       false,
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		switch {
		case errors.Is(err, repository.ErrReceiverNotFound):
			return nil, ErrUnknownRecipient
		case errors.Is(err, repository.ErrSenderNotFound):
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.metrics.IncMessageSent()
	return msg, nil
}

// ListInbox returns the caller's received messages in insertion order and
// marks them read. The result reflects the read state before this call.
func (s *MessageService) ListInbox(ctx context.Context, callerID string, onlyUnread bool) ([]*model.Message, error) {
	if callerID == "" {
		return nil, ErrNotAuthenticated
	}

	msgs, err := s.store.ListInbox(ctx, callerID, onlyUnread)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	if msgs == nil {
		msgs = []*model.Message{}
	}

	s.metrics.AddMessagesRead(countUnread(msgs))
	return msgs, nil
}

// LatestInbox returns the caller's most recent received message and marks
// it read. found is false when the inbox is empty.
func (s *MessageService) LatestInbox(ctx context.Context, callerID string) (*model.Message, bool, error) {
	if callerID == "" {
		return nil, false, ErrNotAuthenticated
	}

	msg, err := s.store.LatestInbox(ctx, callerID)
	if errors.Is(err, repository.ErrMessageNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get latest message: %w", err)
	}

	if !msg.Read {
		s.metrics.AddMessagesRead(1)
	}
	return msg, true, nil
}

// Delete removes a message the caller sent or received.
func (s *MessageService) Delete(ctx context.Context, callerID, messageID string) error {
	if callerID == "" {
		return ErrNotAuthenticated
	}
	if messageID == "" {
		return ErrNotFound
	}

	err := s.store.DeleteMessage(ctx, messageID, callerID)
	switch {
	case err == nil:
		s.metrics.IncMessageDeleted()
		return nil
	case errors.Is(err, repository.ErrMessageNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrNotParticipant):
		return ErrForbidden
	}
	return fmt.Errorf("failed to delete message: %w", err)
}

func countUnread(msgs []*model.Message) int {
	n := 0
	for _, m := range msgs {
		if !m.Read {
			n++
		}
	}
	return n
}
