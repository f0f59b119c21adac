package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/postbox/postbox/internal/auth"
	"github.com/postbox/postbox/internal/handler/dto"
	"github.com/postbox/postbox/internal/middleware"
	"github.com/postbox/postbox/internal/service"
)

// MessageHandler handles HTTP requests for message operations.
// Every route runs behind the Authenticate middleware.
type MessageHandler struct {
	svc    *service.MessageService
	logger *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(svc *service.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{
		svc:    svc,
		logger: logger,
	}
}

// Send handles POST /api/v1/messages.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req dto.SendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	msg, err := h.svc.Send(r.Context(), auth.UserIDFromContext(r.Context()), service.SendInput{
		ReceiverID: req.Receiver,
		Subject:    req.Subject,
		Body:       req.Message,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.Info("message_sent",
		slog.String("message_id", msg.ID),
		slog.String("sender_id", msg.SenderID),
		slog.String("receiver_id", msg.ReceiverID),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	writeJSON(w, http.StatusCreated, dto.ToMessageResponse(msg))
}

// List handles GET /api/v1/messages. ?unread=true limits the listing to
// unread messages.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	onlyUnread := false
	if v := r.URL.Query().Get("unread"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_INPUT", "unread must be a boolean")
			return
		}
		onlyUnread = parsed
	}

	h.list(w, r, onlyUnread)
}

// ListUnread handles GET /api/v1/messages/unread.
func (h *MessageHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

func (h *MessageHandler) list(w http.ResponseWriter, r *http.Request, onlyUnread bool) {
	userID := auth.UserIDFromContext(r.Context())

	msgs, err := h.svc.ListInbox(r.Context(), userID, onlyUnread)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.Info("inbox_listed",
		slog.String("user_id", userID),
		slog.Bool("only_unread", onlyUnread),
		slog.Int("count", len(msgs)),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	writeJSON(w, http.StatusOK, dto.ToMessageListResponse(msgs))
}

// Latest handles GET /api/v1/messages/latest.
func (h *MessageHandler) Latest(w http.ResponseWriter, r *http.Request) {
	msg, found, err := h.svc.LatestInbox(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	var response dto.LatestMessageResponse
	if found {
		response.Data = dto.ToMessageResponse(msg)
	}
	writeJSON(w, http.StatusOK, response)
}

// Delete handles DELETE /api/v1/messages/{id}.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	userID := auth.UserIDFromContext(r.Context())

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.Info("message_deleted",
		slog.String("message_id", id),
		slog.String("user_id", userID),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	w.WriteHeader(http.StatusNoContent)
}

func (h *MessageHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	handleServiceError(w, h.logger, middleware.GetRequestID(r.Context()), err)
}
