package models

import (
	"time"
)

type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleUser  UserRole = "USER"
)

// User is the local system of record for an account. The external auth
// provider holds a mirrored identity keyed by email.
type User struct {
	ID               uint64     `gorm:"primarykey" json:"id"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name             string     `gorm:"type:varchar(255);not null" json:"name"`
	PasswordHash     string     `gorm:"type:varchar(255);not null" json:"-"`
	Role             UserRole   `gorm:"type:varchar(20);not null;default:'USER'" json:"role"`
	Image            string     `gorm:"type:varchar(512)" json:"image,omitempty"`
	ResetToken       *string    `gorm:"type:varchar(255);index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	InvitedByID      *uint64    `json:"invited_by_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`

	// Relations
	InvitedBy     *User     `gorm:"foreignKey:InvitedByID" json:"-"`
	AssignedTasks []Task    `gorm:"foreignKey:AssignedToID" json:"-"`
	CreatedTasks  []Task    `gorm:"foreignKey:CreatedByID" json:"-"`
	Comments      []Comment `gorm:"foreignKey:AuthorID" json:"-"`
}
