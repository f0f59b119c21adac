package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/handler/dto"
	"github.com/postbox/postbox/internal/middleware"
	"github.com/postbox/postbox/internal/service"
)

// AuthHandler handles registration and session endpoints.
type AuthHandler struct {
	svc    *service.IdentityService
	cookie auth.CookieConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.IdentityService, cookie auth.CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		cookie: cookie,
		logger: logger,
	}
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	user, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		handleServiceError(w, h.logger, middleware.GetRequestID(r.Context()), err)
		return
	}

	h.logger.Info("user_registered",
		slog.String("user_id", user.ID),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	writeJSON(w, http.StatusCreated, dto.ToUserResponse(user))
}

// Login handles POST /api/v1/auth/login.
// The token is returned in the body and set as the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	session, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Warn("login_failed",
				slog.String("email_hash", auth.QuickHash(service.NormalizeEmail(req.Email))),
				slog.String("request_id", middleware.GetRequestID(r.Context())),
			)
		}
		handleServiceError(w, h.logger, middleware.GetRequestID(r.Context()), err)
		return
	}

	h.logger.Info("login_succeeded",
		slog.String("user_id", session.UserID),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	http.SetCookie(w, h.cookie.SessionCookie(session.Token, session.ExpiresAt))
	writeJSON(w, http.StatusOK, dto.LoginResponse{
		Token:     session.Token,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout handles POST /api/v1/auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFromRequest(r, h.cookie.Name)

	if err := h.svc.EndSession(r.Context(), token); err != nil {
		handleServiceError(w, h.logger, middleware.GetRequestID(r.Context()), err)
		return
	}

	h.logger.Info("session_ended",
		slog.String("user_id", auth.UserIDFromContext(r.Context())),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	http.SetCookie(w, h.cookie.ClearCookie())
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		handleServiceError(w, h.logger, middleware.GetRequestID(r.Context()), service.ErrNotAuthenticated)
		return
	}

	writeJSON(w, http.StatusOK, dto.MeResponse{UserID: userID})
}
