package model

import "time"

// Role is the authorization role carried on an identity and in its tokens.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// User represents an identity record as stored in the `users` table.
//
// Fields:
//
//	ID           – generated uuid, primary key.
//	Email        – unique, stored trimmed and lower-cased.
//	PasswordHash – bcrypt digest; never serialised.
//	FirstName    – display first name.
//	LastName     – display last name.
//	Role         – user or admin.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public returns a copy of u with the password digest cleared, suitable for
// returning to clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
