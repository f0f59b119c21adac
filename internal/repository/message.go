package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/postbox/postbox/internal/model"
)

// Common errors for message repository operations.
var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrReceiverNotFound = errors.New("receiver not found")
	ErrSenderNotFound   = errors.New("sender not found")
	ErrNotParticipant   = errors.New("user is neither sender nor receiver")
)

// Foreign key constraint names from the messages migration.
const (
	messagesSenderFK   = "messages_sender_id_fkey"
	messagesReceiverFK = "messages_receiver_id_fkey"
)

const messageColumns = `id, sender_id, receiver_id, subject, body, created_at, is_read`

// CreateMessage inserts a new message.
// A receiver that does not exist is reported through the foreign key, so
// the existence check and the insert are one statement.
func (r *Repository) CreateMessage(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, receiver_id, subject, body, created_at, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		msg.ID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Subject,
		msg.Body,
		msg.CreatedAt,
		msg.Read,
	)

	if err != nil {
		switch foreignKeyViolation(err) {
		case messagesReceiverFK:
			return ErrReceiverNotFound
		case messagesSenderFK:
			return ErrSenderNotFound
		}
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// GetMessageByID retrieves a message without changing its read flag.
// No service path reads single messages; it exists for verification in tests.
func (r *Repository) GetMessageByID(ctx context.Context, id string) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", err)
	}

	return msg, nil
}

// ListInbox returns the receiver's messages in insertion order and marks
// them read in the same statement. The returned rows carry the read flag
// as it was before marking.
func (r *Repository) ListInbox(ctx context.Context, receiverID string, onlyUnread bool) ([]*model.Message, error) {
	query := `
		WITH inbox AS (
			SELECT ` + messageColumns + `, seq
			FROM messages
			WHERE receiver_id = $1
			  AND (NOT $2::boolean OR is_read = FALSE)
			FOR UPDATE
		), marked AS (
			UPDATE messages m
			SET is_read = TRUE
			FROM inbox
			WHERE m.id = inbox.id AND m.is_read = FALSE
		)
		SELECT ` + messageColumns + `
		FROM inbox
		ORDER BY seq ASC
	`

	rows, err := r.pool.Query(ctx, query, receiverID, onlyUnread)
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}
	defer rows.Close()

	messages := make([]*model.Message, 0)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inbox: %w", err)
	}

	return messages, nil
}

// LatestInbox returns the receiver's most recent message and marks it read.
// Returns ErrMessageNotFound when the inbox is empty.
func (r *Repository) LatestInbox(ctx context.Context, receiverID string) (*model.Message, error) {
	query := `
		WITH latest AS (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE receiver_id = $1
			ORDER BY created_at DESC, seq DESC
			LIMIT 1
			FOR UPDATE
		), marked AS (
			UPDATE messages m
			SET is_read = TRUE
			FROM latest
			WHERE m.id = latest.id AND m.is_read = FALSE
		)
		SELECT ` + messageColumns + ` FROM latest
	`

	msg, err := scanMessage(r.pool.QueryRow(ctx, query, receiverID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to get latest message: %w", err)
	}

	return msg, nil
}

// DeleteMessage removes a message if userID is its sender or receiver.
// The ownership check and the delete run as one statement. Returns
// ErrMessageNotFound if the message does not exist and ErrNotParticipant if
// it exists but belongs to other users.
func (r *Repository) DeleteMessage(ctx context.Context, id, userID string) error {
	query := `
		WITH target AS (
			SELECT id, sender_id, receiver_id
			FROM messages
			WHERE id = $1
		), deleted AS (
			DELETE FROM messages m
			USING target
			WHERE m.id = target.id
			  AND (target.sender_id = $2 OR target.receiver_id = $2)
			RETURNING m.id
		)
		SELECT
			(SELECT sender_id = $2 OR receiver_id = $2 FROM target),
			EXISTS (SELECT 1 FROM deleted)
	`

	var participant *bool
	var deleted bool
	if err := r.pool.QueryRow(ctx, query, id, userID).Scan(&participant, &deleted); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}

	switch {
	case deleted:
		return nil
	case participant == nil:
		return ErrMessageNotFound
	case !*participant:
		return ErrNotParticipant
	default:
		// Removed concurrently between snapshot and delete.
		return ErrMessageNotFound
	}
}

func scanMessage(row pgx.Row) (*model.Message, error) {
	var msg model.Message
	err := row.Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.ReceiverID,
		&msg.Subject,
		&msg.Body,
		&msg.CreatedAt,
		&msg.Read,
	)
	return &msg, err
}
