// Package model defines domain entities for the application.
package model

import "time"

// Field limits shared by validation and the database schema.
const (
	MaxEmailLength   = 100
	MaxNameLength    = 100
	MaxSubjectLength = 100
	MaxBodyLength    = 200
)

// User represents a registered account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}
