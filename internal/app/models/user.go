package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID        int64     `json:"id" db:"id" example:"1"`
	Username  string    `json:"username" db:"username" example:"alice"`
	Password  string    `json:"-" db:"password"` // bcrypt hash, never serialized
	Role      Role      `json:"role" db:"role" example:"lecturer"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" example:"2024-01-01T10:00:00Z"`
}

// IsLecturer reports whether the user holds the lecturer role.
func (u *User) IsLecturer() bool {
	return u != nil && u.Role == RoleLecturer
}

// IsStudent reports whether the user holds the student role.
func (u *User) IsStudent() bool {
	return u != nil && u.Role == RoleStudent
}

// RefreshToken is an opaque, revocable token that can be exchanged for a new access token.
type RefreshToken struct {
	Token      string    `db:"token"`
	UserID     int64     `db:"user_id"`
	ExpiryDate time.Time `db:"expiry_date"`
	IsRevoked  bool      `db:"is_revoked"`
	CreatedAt  time.Time `db:"created_at"`
}
