// Package models contains the domain structures shared between the
// business-logic services and the storage layer.
package models

import "time"

// User represents a registered account.
type User struct {
	UID          string    // Unique account identifier
	Email        string    // Account e-mail, unique
	Username     string    // Display name, unique
	PasswordHash string    // bcrypt hash of the account password
	Role         string    // "admin" or "user"
	CreatedAt    time.Time // Registration timestamp
}
