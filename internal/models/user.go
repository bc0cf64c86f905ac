package models

import "time"

const RoleAdmin = "admin"

type contextKey string

// UserContextKey is the key for the authenticated user in a request context.
const UserContextKey = contextKey("user")

// User represents an account in the database.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
