package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Invite is one row of the local invitation audit log. Every attempt is
// recorded, including the ones the backend rejected.
type Invite struct {
	ID        string
	LeadID    string
	LeadName  string
	Message   string
	Status    string // "sent" or "failed"
	CreatedAt time.Time
}

const (
	InviteSent   = "sent"
	InviteFailed = "failed"
)
