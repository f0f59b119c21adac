package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/cache"
	"github.com/postbox/postbox/internal/metrics"
	"github.com/postbox/postbox/internal/model"
	"github.com/postbox/postbox/internal/repository"
)

// IdentityService registers users and manages their sessions.
type IdentityService struct {
	users    UserStore
	sessions SessionStore
	tokens   *auth.TokenIssuer
	ttl      time.Duration
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(users UserStore, sessions SessionStore, tokens *auth.TokenIssuer, ttl time.Duration, recorder metrics.Recorder) *IdentityService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &IdentityService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		ttl:      ttl,
		metrics:  recorder,
		now:      time.Now,
	}
}

// RegisterInput defines input for registering a user.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// SessionToken is handed to the client after a successful login.
type SessionToken struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Register creates a user with a hashed password.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := NormalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)

	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validateText("name", name, model.MaxNameLength); err != nil {
		return nil, err
	}
	if input.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           generateULID(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.metrics.IncUserRegistered()
	return user, nil
}

// Authenticate verifies credentials and opens a session.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*SessionToken, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		auth.VerifyDummy(password)
		s.metrics.IncLogin(metrics.LoginFailed)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !ok {
		s.metrics.IncLogin(metrics.LoginFailed)
		return nil, ErrInvalidCredentials
	}

	// Token timestamps have second precision.
	now := s.now().UTC().Truncate(time.Second)
	session := &model.Session{
		ID:        generateULID(),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	token, err := s.tokens.Issue(session)
	if err != nil {
		return nil, err
	}

	s.metrics.IncLogin(metrics.LoginSucceeded)
	return &SessionToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// EndSession invalidates the session named by token.
// Ending an already ended session fails with ErrNotAuthenticated.
func (s *IdentityService) EndSession(ctx context.Context, token string) error {
	caller, err := s.ResolveCaller(ctx, token)
	if err != nil {
		return err
	}

	deleted, err := s.sessions.DeleteSession(ctx, caller.SessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if !deleted {
		return ErrNotAuthenticated
	}

	s.metrics.IncSessionEnded()
	return nil
}

// ResolveCaller maps a session token to the authenticated user.
// Store failures are returned wrapped, not as ErrNotAuthenticated.
func (s *IdentityService) ResolveCaller(ctx context.Context, token string) (*model.Caller, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	session, err := s.sessions.GetSession(ctx, claims.ID)
	if errors.Is(err, cache.ErrSessionNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.UserID != claims.Subject || session.IsExpired(s.now()) {
		return nil, ErrNotAuthenticated
	}

	return &model.Caller{UserID: session.UserID, SessionID: session.ID}, nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(email) > model.MaxEmailLength {
		return fmt.Errorf("%w: email exceeds %d characters", ErrInvalidInput, model.MaxEmailLength)
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") || strings.ContainsAny(email, " \t\r\n") {
		return fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	}
	return nil
}

func validateText(field, value string, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(value) > maxLen {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, field, maxLen)
	}
	return nil
}
