package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/postbox/postbox/internal/model"
)

// MinSecretLength is the minimum HS256 key length accepted for session tokens.
const MinSecretLength = 32

const tokenIssuer = "postbox"

var (
	// ErrInvalidToken indicates a malformed, forged or expired session token.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrWeakSecret indicates the signing secret is too short.
	ErrWeakSecret = errors.New("session secret too short")
)

// TokenIssuer signs and verifies session tokens.
// A token only proves which session it names; the session record
// itself decides whether the session is still active.
type TokenIssuer struct {
	secret []byte
}

// NewTokenIssuer creates a TokenIssuer for the given HS256 secret.
func NewTokenIssuer(secret string) (*TokenIssuer, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}
	return &TokenIssuer{secret: []byte(secret)}, nil
}

// Issue signs a token binding the session ID (jti) to its user (sub).
func (t *TokenIssuer) Issue(session *model.Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   session.UserID,
		ID:        session.ID,
		IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry and returns the claims.
// Every failure is reported as ErrInvalidToken.
func (t *TokenIssuer) Parse(token string) (*jwt.RegisteredClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
