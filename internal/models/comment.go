package models

import "time"

type Comment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	TaskID    uint64    `gorm:"not null;index" json:"task_id"`
	AuthorID  uint64    `gorm:"not null;index" json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Task        Task                `gorm:"foreignKey:TaskID" json:"-"`
	Author      User                `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Mentions    []Mention           `gorm:"foreignKey:CommentID" json:"mentions,omitempty"`
	Attachments []CommentAttachment `gorm:"foreignKey:CommentID" json:"attachments,omitempty"`
}

// Mention links a comment to a user referenced with @ in its body. Rows are
// created alongside the comment and never mutated on their own.
type Mention struct {
	CommentID uint64 `gorm:"primarykey" json:"comment_id"`
	UserID    uint64 `gorm:"primarykey" json:"user_id"`

	// Relations
	Comment Comment `gorm:"foreignKey:CommentID" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
