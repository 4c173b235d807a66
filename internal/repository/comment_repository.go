package repository

import (
	"github.com/taskflowhq/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

// Create persists the comment first to obtain its ID, then the dependent
// mention and attachment rows, all in one transaction.
func (r *GormCommentRepository) Create(comment *models.Comment, mentionUserIDs []uint64, attachments []models.CommentAttachment) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}

		if len(mentionUserIDs) > 0 {
			mentions := make([]models.Mention, len(mentionUserIDs))
			for i, userID := range mentionUserIDs {
				mentions[i] = models.Mention{
					CommentID: comment.ID,
					UserID:    userID,
				}
			}
			if err := tx.Create(&mentions).Error; err != nil {
				return err
			}
		}

		if len(attachments) > 0 {
			for i := range attachments {
				attachments[i].CommentID = comment.ID
			}
			if err := tx.Create(&attachments).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// FindByID finds a comment by ID with optional preloading
func (r *GormCommentRepository) FindByID(id uint64, preload ...string) (*models.Comment, error) {
	var comment models.Comment
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&comment, id).Error; err != nil {
		return nil, err
	}

	return &comment, nil
}

// UpdateOwned updates a comment's content scoped by id AND author. The
// compound match doubles as the authorization check: zero matched rows
// surface as gorm.ErrRecordNotFound.
func (r *GormCommentRepository) UpdateOwned(id, authorID uint64, content string) error {
	result := r.db.Model(&models.Comment{}).
		Where("id = ? AND author_id = ?", id, authorID).
		Update("content", content)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteOwned deletes a comment scoped by id AND author along with its
// mentions and attachments.
func (r *GormCommentRepository) DeleteOwned(id, authorID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND author_id = ?", id, authorID).
			Delete(&models.Comment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("comment_id = ?", id).Delete(&models.Mention{}).Error; err != nil {
			return err
		}

		return tx.Where("comment_id = ?", id).Delete(&models.CommentAttachment{}).Error
	})
}
