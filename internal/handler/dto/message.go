package dto

import (
	"time"

	"github.com/postbox/postbox/internal/model"
)

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Receiver string `json:"receiver"`
	Subject  string `json:"subject"`
	Message  string `json:"message"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID           string    `json:"id"`
	Sender       string    `json:"sender"`
	Receiver     string    `json:"receiver"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	CreationDate time.Time `json:"creation_date"`
	DidRead      bool      `json:"did_read"`
}

// MessageListResponse wraps an inbox listing.
type MessageListResponse struct {
	Data []MessageResponse `json:"data"`
}

// LatestMessageResponse wraps the latest message; Data is null when the
// inbox is empty.
type LatestMessageResponse struct {
	Data *MessageResponse `json:"data"`
}

// ToMessageResponse converts a Message model to MessageResponse DTO.
func ToMessageResponse(msg *model.Message) *MessageResponse {
	return &MessageResponse{
		ID:           msg.ID,
		Sender:       msg.SenderID,
		Receiver:     msg.ReceiverID,
		Subject:      msg.Subject,
		Message:      msg.Body,
		CreationDate: msg.CreatedAt,
		DidRead:      msg.Read,
	}
}

// ToMessageListResponse converts messages to a list response.
// The data array is never null.
func ToMessageListResponse(msgs []*model.Message) *MessageListResponse {
	data := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		data = append(data, *ToMessageResponse(m))
	}
	return &MessageListResponse{Data: data}
}
