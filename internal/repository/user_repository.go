package repository

import (
	"time"

	"github.com/taskflowhq/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByIDs returns the users matching the given IDs
func (r *GormUserRepository) FindByIDs(ids []uint64) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}

	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// FindByResetToken finds a user by an unexpired reset token
func (r *GormUserRepository) FindByResetToken(token string, now time.Time) (*models.User, error) {
	var user models.User
	err := r.db.
		Where("reset_token = ? AND reset_token_expiry > ?", token, now).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update persists all fields of the user
func (r *GormUserRepository) Update(user *models.User) error {
	// Save skips zero values for cleared pointer fields, so select
	// everything explicitly: clearing ResetToken must reach the database.
	return r.db.Model(user).Select("*").Omit("id", "created_at").Updates(user).Error
}

// Delete hard-deletes a user row
func (r *GormUserRepository) Delete(id uint64) error {
	return r.db.Unscoped().Delete(&models.User{}, id).Error
}

// List returns all users, newest first
func (r *GormUserRepository) List() ([]models.User, error) {
	var users []models.User
	if err := r.db.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
