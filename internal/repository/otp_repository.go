package repository

import (
	"time"

	"github.com/taskflowhq/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormOTPRepository is a GORM implementation of OTPRepository
type GormOTPRepository struct {
	db *gorm.DB
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &GormOTPRepository{db: db}
}

// Create stores a freshly issued code
func (r *GormOTPRepository) Create(otp *models.OTP) error {
	return r.db.Create(otp).Error
}

// FindValid returns the matching unused, unexpired code for a user
func (r *GormOTPRepository) FindValid(userID uint64, code string, otpType models.OTPType, now time.Time) (*models.OTP, error) {
	var otp models.OTP
	err := r.db.
		Where("user_id = ? AND otp = ? AND type = ? AND is_used = ? AND expires_at > ?",
			userID, code, otpType, false, now).
		First(&otp).Error
	if err != nil {
		return nil, err
	}
	return &otp, nil
}

// MarkUsed consumes a code
func (r *GormOTPRepository) MarkUsed(id uint64) error {
	return r.db.Model(&models.OTP{}).
		Where("id = ?", id).
		Update("is_used", true).Error
}
