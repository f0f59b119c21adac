// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/postbox/postbox/internal/model"
)

// Service errors. Handlers map these to HTTP status codes.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateIdentity  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrUnknownRecipient   = errors.New("recipient not found")
	ErrNotFound           = errors.New("message not found")
	ErrForbidden          = errors.New("not a participant of this message")
)

// UserStore persists users.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// SessionStore persists server-side session records.
type SessionStore interface {
	SaveSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) (bool, error)
}

// MessageStore persists messages. ListInbox and LatestInbox mark what
// they return as read and report the state from before the mark.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListInbox(ctx context.Context, receiverID string, onlyUnread bool) ([]*model.Message, error)
	LatestInbox(ctx context.Context, receiverID string) (*model.Message, error)
	DeleteMessage(ctx context.Context, id, userID string) error
}

func generateULID() string {
	return ulid.Make().String()
}
