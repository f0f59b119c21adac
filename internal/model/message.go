package model

import "time"

// Message is a short text message from one user to another.
// JSON field names match the wire format clients already consume.
type Message struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender"`
	ReceiverID string    `json:"receiver"`
	Subject    string    `json:"subject"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"creation_date"`
	Read       bool      `json:"did_read"`
}

// IsParticipant reports whether the user sent or received the message.
func (m *Message) IsParticipant(userID string) bool {
	return userID != "" && (m.SenderID == userID || m.ReceiverID == userID)
}
