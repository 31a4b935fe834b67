package users

import "time"

// User represents a managed account.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsActive     bool
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GetID returns the account id.
func (u *User) GetID() int64 { return u.ID }

// IsSuperUser reports whether the account carries the admin flag.
func (u *User) IsSuperUser() bool { return u.IsAdmin }
