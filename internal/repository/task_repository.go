package repository

import (
	"github.com/taskflowhq/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// FindByIDFull loads a task with all relations, comments newest first
func (r *GormTaskRepository) FindByIDFull(id uint64) (*models.Task, error) {
	var task models.Task
	err := r.fullPreload(r.db).First(&task, id).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// List returns all tasks with full relations, newest first
func (r *GormTaskRepository) List() ([]models.Task, error) {
	var tasks []models.Task
	err := r.fullPreload(r.db).
		Order("tasks.created_at DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Delete(&models.Task{}, id).Error
}

// AddAttachments bulk-inserts attachment rows for a task
func (r *GormTaskRepository) AddAttachments(taskID uint64, attachments []models.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}

	for i := range attachments {
		attachments[i].TaskID = taskID
	}

	return r.db.Create(&attachments).Error
}

func (r *GormTaskRepository) fullPreload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("AssignedTo").
		Preload("CreatedBy").
		Preload("Attachments").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("comments.created_at DESC")
		}).
		Preload("Comments.Author").
		Preload("Comments.Attachments")
}
