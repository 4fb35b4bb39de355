package identity

import "time"

// User statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User represents a registered wallet owner.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash []byte
	Status       string
	TokenVersion int
	CreatedAt    time.Time
	LastLogin    time.Time
}

// Credentials carries registration and login input.
type Credentials struct {
	Email    string
	Name     string
	Password string
}
