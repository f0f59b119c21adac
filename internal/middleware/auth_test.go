package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedResolver(valid string) CallerResolverFunc {
	return func(ctx context.Context, token string) (*model.Caller, error) {
		switch token {
		case valid:
			return &model.Caller{UserID: "user-1", SessionID: "sess-1"}, nil
		case "boom":
			return nil, errors.New("redis down")
		}
		return nil, ErrUnauthenticated
	}
}

func authTestHandler(t *testing.T, floor time.Duration) http.Handler {
	t.Helper()
	mw := Authenticate(AuthConfig{
		Logger:      discardLogger(),
		Resolver:    fixedResolver("good"),
		CookieName:  "session",
		MinDuration: floor,
	})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := auth.CallerFromContext(r.Context())
		if caller == nil {
			t.Error("caller missing from context")
			return
		}
		_, _ = w.Write([]byte(caller.UserID))
	}))
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
	}{
		{"bearer token", "Bearer good", "", http.StatusOK},
		{"session cookie", "", "good", http.StatusOK},
		{"missing token", "", "", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", "", http.StatusUnauthorized},
		{"wrong scheme", "Token good", "", http.StatusUnauthorized},
		{"store failure", "Bearer boom", "", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "session", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			authTestHandler(t, time.Millisecond).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "user-1", rec.Body.String())
			}
		})
	}
}

func TestAuthenticate_UniformBody(t *testing.T) {
	t.Parallel()

	h := authTestHandler(t, time.Millisecond)

	missing := httptest.NewRecorder()
	h.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/", nil))

	invalidReq := httptest.NewRequest(http.MethodGet, "/", nil)
	invalidReq.Header.Set("Authorization", "Bearer nope")
	invalid := httptest.NewRecorder()
	h.ServeHTTP(invalid, invalidReq)

	assert.Equal(t, missing.Body.String(), invalid.Body.String())
	assert.Contains(t, missing.Body.String(), "NOT_AUTHENTICATED")
}

func TestAuthenticate_FloorsRejections(t *testing.T) {
	t.Parallel()

	floor := 50 * time.Millisecond
	h := authTestHandler(t, floor)

	start := time.Now()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.GreaterOrEqual(t, time.Since(start), floor)
}
