package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/model"
)

const (
	// minAuthDuration is the minimum time to spend on a rejected request to
	// prevent timing attacks.
	minAuthDuration = 200 * time.Millisecond
)

// ErrUnauthenticated is what a CallerResolver returns for any token that
// does not name a live session.
var ErrUnauthenticated = errors.New("unauthenticated")

// CallerResolver maps a session token to the calling user.
type CallerResolver interface {
	ResolveCaller(ctx context.Context, token string) (*model.Caller, error)
}

// CallerResolverFunc adapts a function to CallerResolver.
type CallerResolverFunc func(ctx context.Context, token string) (*model.Caller, error)

// ResolveCaller calls f.
func (f CallerResolverFunc) ResolveCaller(ctx context.Context, token string) (*model.Caller, error) {
	return f(ctx, token)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Resolver CallerResolver
	// CookieName is the session cookie consulted when no bearer token is sent.
	CookieName string
	// IsUnauthenticated classifies resolver errors. Errors it rejects are
	// infrastructure failures and produce 500 instead of 401.
	IsUnauthenticated func(error) bool
	// MinDuration floors the time spent on rejected requests.
	// Zero means minAuthDuration.
	MinDuration time.Duration
}

// Authenticate returns a middleware that resolves the session token
// and injects the caller into the request context.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	floor := cfg.MinDuration
	if floor == 0 {
		floor = minAuthDuration
	}
	isUnauthenticated := cfg.IsUnauthenticated
	if isUnauthenticated == nil {
		isUnauthenticated = func(err error) bool { return errors.Is(err, ErrUnauthenticated) }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			reject := func() {
				// Ensure consistent timing regardless of the failure reason
				if elapsed := time.Since(startTime); elapsed < floor {
					time.Sleep(floor - elapsed)
				}
				writeAuthError(w)
			}

			token := auth.TokenFromRequest(r, cfg.CookieName)
			if token == "" {
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_token"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				reject()
				return
			}

			caller, err := cfg.Resolver.ResolveCaller(r.Context(), token)
			if err != nil {
				if !isUnauthenticated(err) {
					cfg.Logger.Error("session lookup failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeInternalError(w)
					return
				}

				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "invalid_session"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				reject()
				return
			}

			cfg.Logger.Debug("authentication successful",
				slog.String("user_id", caller.UserID),
				slog.String("session_id", caller.SessionID),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			annotateUser(r.Context(), caller.UserID)
			ctx := auth.ContextWithCaller(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes a 401 Unauthorized response.
// Every auth failure gets the same body.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"not authenticated","code":"NOT_AUTHENTICATED"}`))
}

// writeInternalError writes a generic 500 response.
func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"error":"an internal error occurred","code":"INTERNAL_ERROR"}`))
}
