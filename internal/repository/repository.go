package repository

import (
	"time"

	"github.com/taskflowhq/taskflow-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)

	// FindByIDs returns the users matching the given IDs
	FindByIDs(ids []uint64) ([]models.User, error)

	// FindByResetToken finds a user whose reset token matches and has not
	// expired as of now
	FindByResetToken(token string, now time.Time) (*models.User, error)

	// Update persists all fields of the user
	Update(user *models.User) error

	// Delete hard-deletes a user row. Used only as a compensating action
	// when external identity provisioning fails mid-invite.
	Delete(id uint64) error

	// List returns all users, newest first
	List() ([]models.User, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// FindByIDFull loads a task with assignee, creator, attachments and
	// comments (incl. comment authors and attachments), comments newest first
	FindByIDFull(id uint64) (*models.Task, error)

	// List returns all tasks with full relations, newest first
	List() ([]models.Task, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete soft deletes a task
	Delete(id uint64) error

	// AddAttachments bulk-inserts attachment rows for a task
	AddAttachments(taskID uint64, attachments []models.Attachment) error
}

// CommentRepository defines the interface for comment data access
type CommentRepository interface {
	// Create persists a comment, then its mention rows, then its attachment
	// rows, inside one transaction
	Create(comment *models.Comment, mentionUserIDs []uint64, attachments []models.CommentAttachment) error

	// FindByID finds a comment by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Comment, error)

	// UpdateOwned updates a comment's content scoped by id AND author.
	// Returns gorm.ErrRecordNotFound when no row matched, which conflates
	// "missing" and "not the author" on purpose.
	UpdateOwned(id, authorID uint64, content string) error

	// DeleteOwned deletes a comment scoped by id AND author, together with
	// its mention and attachment rows. Same not-found semantics as UpdateOwned.
	DeleteOwned(id, authorID uint64) error
}

// OTPRepository defines the interface for one-time code data access
type OTPRepository interface {
	// Create stores a freshly issued code
	Create(otp *models.OTP) error

	// FindValid returns the matching unused, unexpired code for a user
	FindValid(userID uint64, code string, otpType models.OTPType, now time.Time) (*models.OTP, error)

	// MarkUsed consumes a code
	MarkUsed(id uint64) error
}
