package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusPending SessionStatus = "pending"
	SessionStatusOpen    SessionStatus = "open"
	SessionStatusClosed  SessionStatus = "closed"
)

type SenderRole string

const (
	SenderRoleUser  SenderRole = "user"
	SenderRoleAdmin SenderRole = "admin"
)

// ChatSession is a single support-request thread between one customer and at
// most one assigned admin. Status moves pending→open on assignment and
// open|pending→closed on close; a closed session never transitions again.
type ChatSession struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	UserName      string        `db:"user_name" json:"user_name"`
	UserEmail     string        `db:"user_email" json:"user_email"`
	Subject       string        `db:"subject" json:"subject"`
	Status        SessionStatus `db:"status" json:"status"`
	AdminID       *uuid.UUID    `db:"admin_id" json:"admin_id,omitempty"`
	AdminName     *string       `db:"admin_name" json:"admin_name,omitempty"`
	UnreadCount   int           `db:"unread_count" json:"unread_count"`
	LastMessageAt time.Time     `db:"last_message_at" json:"last_message_at"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// ChatMessage belongs to exactly one session. Immutable after creation except
// for the read flag. Seq is assigned by the store and breaks timestamp ties.
type ChatMessage struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	SessionID  uuid.UUID  `db:"session_id" json:"session_id"`
	SenderID   uuid.UUID  `db:"sender_id" json:"sender_id"`
	SenderName string     `db:"sender_name" json:"sender_name"`
	SenderRole SenderRole `db:"sender_role" json:"sender_role"`
	Content    string     `db:"content" json:"content"`
	IsRead     bool       `db:"is_read" json:"is_read"`
	Seq        int64      `db:"seq" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}
