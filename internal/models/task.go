package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
)

type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusReview     TaskStatus = "REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
)

// ValidPriority reports whether p is one of the known priorities.
func ValidPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the known statuses.
func ValidStatus(s TaskStatus) bool {
	switch s {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusReview, TaskStatusDone:
		return true
	}
	return false
}

type Task struct {
	ID           uint64                      `gorm:"primarykey" json:"id"`
	Title        string                      `gorm:"not null" json:"title"`
	Description  string                      `gorm:"type:text" json:"description"`
	Deadline     *time.Time                  `json:"deadline"`
	Priority     TaskPriority                `gorm:"type:varchar(10);not null;default:'MEDIUM'" json:"priority"`
	Status       TaskStatus                  `gorm:"type:varchar(20);not null;default:'OPEN'" json:"status"`
	Tags         datatypes.JSONSlice[string] `json:"tags"`
	DOD          string                      `gorm:"type:text" json:"dod"`
	AssignedToID uint64                      `gorm:"not null;index" json:"assigned_to_id"`
	CreatedByID  uint64                      `gorm:"not null;index" json:"created_by_id"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
	DeletedAt    gorm.DeletedAt              `gorm:"index" json:"-"`

	// Relations
	AssignedTo  User         `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	CreatedBy   User         `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	Comments    []Comment    `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
	Attachments []Attachment `gorm:"foreignKey:TaskID" json:"attachments,omitempty"`
}
