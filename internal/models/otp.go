package models

import "time"

type OTPType string

const (
	OTPTypeProfileUpdate OTPType = "PROFILE_UPDATE"
)

// OTP is a single-use numeric code gating sensitive self-service changes.
// A code is valid until ExpiresAt and is consumed by setting IsUsed.
type OTP struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;index" json:"user_id"`
	Code      string    `gorm:"column:otp;type:varchar(6);not null" json:"-"`
	Type      OTPType   `gorm:"type:varchar(30);not null" json:"type"`
	IsUsed    bool      `gorm:"not null;default:false" json:"is_used"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}
