package services

import (
	"errors"
	"fmt"

	"github.com/taskflowhq/taskflow-api/internal/models"
	"github.com/taskflowhq/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	// ErrCommentNotFound covers both a missing comment and a comment owned
	// by someone else: the compound id+author match makes the store report
	// "no matching row" for either.
	ErrCommentNotFound = errors.New("comment not found")
)

// CommentService handles direct comment mutations. Unlike the comment
// fan-out in TaskService.AddComment, these operations send no emails.
type CommentService struct {
	commentRepo repository.CommentRepository
	taskRepo    repository.TaskRepository
}

// NewCommentService creates a new CommentService.
func NewCommentService(commentRepo repository.CommentRepository, taskRepo repository.TaskRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
	}
}

// CreateCommentInput carries a new comment with mentions and attachments.
type CreateCommentInput struct {
	TaskID      uint64
	AuthorID    uint64
	Content     string
	Mentions    []uint64
	Attachments []AttachmentInput
}

// CreateComment persists the comment first, then its mention and attachment
// rows.
func (s *CommentService) CreateComment(input CreateCommentInput) (*models.Comment, error) {
	if input.Content == "" {
		return nil, ErrContentRequired
	}

	if _, err := s.taskRepo.FindByID(input.TaskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	attachments := make([]models.CommentAttachment, len(input.Attachments))
	for i, in := range input.Attachments {
		attachments[i] = models.CommentAttachment{
			FileName: in.FileName,
			FileURL:  in.FileURL,
			FileSize: in.FileSize,
			MimeType: in.MimeType,
		}
	}

	comment := &models.Comment{
		Content:  input.Content,
		TaskID:   input.TaskID,
		AuthorID: input.AuthorID,
	}
	if err := s.commentRepo.Create(comment, input.Mentions, attachments); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return s.commentRepo.FindByID(comment.ID, "Author", "Mentions", "Mentions.User", "Attachments")
}

// UpdateComment rewrites a comment's content, scoped to the author.
func (s *CommentService) UpdateComment(id, authorID uint64, content string) (*models.Comment, error) {
	if content == "" {
		return nil, ErrContentRequired
	}

	if err := s.commentRepo.UpdateOwned(id, authorID, content); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	return s.commentRepo.FindByID(id, "Author")
}

// DeleteComment removes a comment, scoped to the author.
func (s *CommentService) DeleteComment(id, authorID uint64) error {
	if err := s.commentRepo.DeleteOwned(id, authorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	return nil
}
