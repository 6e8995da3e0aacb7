package model

import "time"

// User roles.
const (
	RoleAdmin    = "admin"
	RoleListener = "listener"
)

// User represents a user in the system.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Not exposed in API responses
	Role         string    `json:"role" gorm:"size:20;not null;default:listener"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the user may manage the library.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
