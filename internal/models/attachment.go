package models

import "time"

// Attachment is a file attached to a task. FileURL points into external
// object storage; the row only carries metadata.
type Attachment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	TaskID    uint64    `gorm:"not null;index" json:"task_id"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FileURL   string    `gorm:"type:varchar(1024);not null" json:"file_url"`
	FileSize  int64     `gorm:"not null" json:"file_size"`
	MimeType  string    `gorm:"type:varchar(255);not null" json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentAttachment is a file attached to a comment.
type CommentAttachment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	CommentID uint64    `gorm:"not null;index" json:"comment_id"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FileURL   string    `gorm:"type:varchar(1024);not null" json:"file_url"`
	FileSize  int64     `gorm:"not null" json:"file_size"`
	MimeType  string    `gorm:"type:varchar(255);not null" json:"mime_type"`
	CreatedAt time.Time `json:"created_at"`
}
