package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// PasswordHash holds a bcrypt hash, never the plaintext password.
//
// Confirmed starts false and flips to true once the email address is verified.
// It never reverts.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string

	// Optional profile fields carried on the record; this service never writes them.
	Address string
	City    string
	State   string
	Zip     string

	Confirmed bool
	CreatedAt time.Time
}
