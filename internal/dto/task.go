package dto

import (
	"time"

	"github.com/taskflowhq/taskflow-api/internal/models"
)

// AttachmentDTO represents a file reference in API responses
type AttachmentDTO struct {
	ID        uint64    `json:"id"`
	FileName  string    `json:"file_name"`
	FileURL   string    `json:"file_url"`
	FileSize  int64     `json:"file_size"`
	MimeType  string    `json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// MentionDTO represents a comment mention in API responses
type MentionDTO struct {
	User UserDTO `json:"user"`
}

// CommentDTO represents a comment in API responses
type CommentDTO struct {
	ID          uint64          `json:"id"`
	Content     string          `json:"content"`
	TaskID      uint64          `json:"task_id"`
	AuthorID    uint64          `json:"author_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Author      *UserDTO        `json:"author,omitempty"`
	Mentions    []MentionDTO    `json:"mentions,omitempty"`
	Attachments []AttachmentDTO `json:"attachments,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID           uint64              `json:"id"`
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Deadline     *time.Time          `json:"deadline"`
	Priority     models.TaskPriority `json:"priority"`
	Status       models.TaskStatus   `json:"status"`
	Tags         []string            `json:"tags"`
	DOD          string              `json:"dod"`
	AssignedToID uint64              `json:"assigned_to_id"`
	CreatedByID  uint64              `json:"created_by_id"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	AssignedTo   *UserDTO            `json:"assigned_to,omitempty"`
	CreatedBy    *UserDTO            `json:"created_by,omitempty"`
	Comments     []CommentDTO        `json:"comments,omitempty"`
	Attachments  []AttachmentDTO     `json:"attachments,omitempty"`
}

// ToTaskAttachmentDTO converts a task attachment
func ToTaskAttachmentDTO(a models.Attachment) AttachmentDTO {
	return AttachmentDTO{
		ID:        a.ID,
		FileName:  a.FileName,
		FileURL:   a.FileURL,
		FileSize:  a.FileSize,
		MimeType:  a.MimeType,
		CreatedAt: a.CreatedAt,
	}
}

// ToCommentAttachmentDTO converts a comment attachment
func ToCommentAttachmentDTO(a models.CommentAttachment) AttachmentDTO {
	return AttachmentDTO{
		ID:        a.ID,
		FileName:  a.FileName,
		FileURL:   a.FileURL,
		FileSize:  a.FileSize,
		MimeType:  a.MimeType,
		CreatedAt: a.CreatedAt,
	}
}

// ToCommentDTO converts a Comment model to CommentDTO
func ToCommentDTO(comment models.Comment) CommentDTO {
	dto := CommentDTO{
		ID:        comment.ID,
		Content:   comment.Content,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}

	// Include author if preloaded
	if comment.Author.ID != 0 {
		author := ToUserDTO(comment.Author)
		dto.Author = &author
	}

	if len(comment.Mentions) > 0 {
		dto.Mentions = make([]MentionDTO, len(comment.Mentions))
		for i, mention := range comment.Mentions {
			dto.Mentions[i] = MentionDTO{User: ToUserDTO(mention.User)}
		}
	}

	if len(comment.Attachments) > 0 {
		dto.Attachments = make([]AttachmentDTO, len(comment.Attachments))
		for i, a := range comment.Attachments {
			dto.Attachments[i] = ToCommentAttachmentDTO(a)
		}
	}

	return dto
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		Deadline:     task.Deadline,
		Priority:     task.Priority,
		Status:       task.Status,
		Tags:         task.Tags,
		DOD:          task.DOD,
		AssignedToID: task.AssignedToID,
		CreatedByID:  task.CreatedByID,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	}

	if dto.Tags == nil {
		dto.Tags = []string{}
	}

	// Include relations if preloaded
	if task.AssignedTo.ID != 0 {
		assignee := ToUserDTO(task.AssignedTo)
		dto.AssignedTo = &assignee
	}
	if task.CreatedBy.ID != 0 {
		creator := ToUserDTO(task.CreatedBy)
		dto.CreatedBy = &creator
	}

	if len(task.Comments) > 0 {
		dto.Comments = make([]CommentDTO, len(task.Comments))
		for i, comment := range task.Comments {
			dto.Comments[i] = ToCommentDTO(comment)
		}
	}

	if len(task.Attachments) > 0 {
		dto.Attachments = make([]AttachmentDTO, len(task.Attachments))
		for i, a := range task.Attachments {
			dto.Attachments[i] = ToTaskAttachmentDTO(a)
		}
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		dtos[i] = ToTaskDTO(task)
	}
	return dtos
}
