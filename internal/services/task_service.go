package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflowhq/taskflow-api/internal/mailer"
	"github.com/taskflowhq/taskflow-api/internal/models"
	"github.com/taskflowhq/taskflow-api/internal/policy"
	"github.com/taskflowhq/taskflow-api/internal/repository"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskPermissionDenied = errors.New("user does not have permission to modify this task")
	ErrTitleRequired        = errors.New("title is required")
	ErrInvalidPriority      = errors.New("invalid priority")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrAssigneeNotFound     = errors.New("assigned user not found")
	ErrAuthorNotFound       = errors.New("author not found")
	ErrContentRequired      = errors.New("comment content is required")
)

// TaskService handles task business logic: CRUD, the status workflow, task
// comments and attachments, and the notification fan-out that follows each
// mutation. Notifications go through the outbound mail queue and never fail
// the mutation they announce.
type TaskService struct {
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	commentRepo repository.CommentRepository
	mail        mailer.Enqueuer
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, userRepo repository.UserRepository, commentRepo repository.CommentRepository, mail mailer.Enqueuer) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		commentRepo: commentRepo,
		mail:        mail,
	}
}

// AttachmentInput is a pre-uploaded file reference.
type AttachmentInput struct {
	FileName string
	FileURL  string
	FileSize int64
	MimeType string
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title        string
	Description  string
	Deadline     *time.Time
	Priority     models.TaskPriority
	Tags         []string
	DOD          string
	AssignedToID uint64
	CreatorID    uint64
	Attachments  []AttachmentInput
}

// UpdateTaskInput represents a partial task update. Nil fields are left
// unchanged.
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Deadline     *time.Time
	Priority     *models.TaskPriority
	Tags         *[]string
	DOD          *string
	AssignedToID *uint64
	Status       *models.TaskStatus
}

// ListTasks returns all tasks with their relations, newest first.
func (s *TaskService) ListTasks() ([]models.Task, error) {
	tasks, err := s.taskRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns one task with full relations.
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByIDFull(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// CreateTask persists a task owned by the caller, stores any pre-uploaded
// attachment references, and queues an assignment email to the assignee.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if !models.ValidPriority(input.Priority) {
		return nil, ErrInvalidPriority
	}

	assignee, err := s.userRepo.FindByID(input.AssignedToID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, fmt.Errorf("failed to find assignee: %w", err)
	}

	task := &models.Task{
		Title:        input.Title,
		Description:  input.Description,
		Deadline:     input.Deadline,
		Priority:     input.Priority,
		Status:       models.TaskStatusOpen,
		Tags:         datatypes.NewJSONSlice(input.Tags),
		DOD:          input.DOD,
		AssignedToID: input.AssignedToID,
		CreatedByID:  input.CreatorID,
	}

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if len(input.Attachments) > 0 {
		if err := s.taskRepo.AddAttachments(task.ID, toAttachments(input.Attachments)); err != nil {
			return nil, fmt.Errorf("failed to store attachments: %w", err)
		}
	}

	s.mail.Enqueue(mailer.Message{
		To:      assignee.Email,
		Subject: fmt.Sprintf("New Task Assigned: %s", task.Title),
		Text: fmt.Sprintf("You have been assigned a new task: %s\n\nDescription: %s\nPriority: %s\nDeadline: %s",
			task.Title, descriptionOr(task.Description), task.Priority, deadlineOr(task.Deadline)),
	})

	return s.taskRepo.FindByIDFull(task.ID)
}

// UpdateTask applies a partial update after checking the edit policy. A
// changed assignee triggers a best-effort reassignment email.
func (s *TaskService) UpdateTask(taskID, actorID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "AssignedTo", "CreatedBy")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find actor: %w", err)
	}

	if !policy.Can(actor, task, policy.ActionEditTask) {
		return nil, ErrTaskPermissionDenied
	}

	prevAssigneeID := task.AssignedToID

	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Deadline != nil {
		task.Deadline = input.Deadline
	}
	if input.Priority != nil {
		if !models.ValidPriority(*input.Priority) {
			return nil, ErrInvalidPriority
		}
		task.Priority = *input.Priority
	}
	if input.Tags != nil {
		task.Tags = datatypes.NewJSONSlice(*input.Tags)
	}
	if input.DOD != nil {
		task.DOD = *input.DOD
	}
	if input.Status != nil {
		if !models.ValidStatus(*input.Status) {
			return nil, ErrInvalidStatus
		}
		task.Status = *input.Status
	}
	if input.AssignedToID != nil && *input.AssignedToID != prevAssigneeID {
		if _, err := s.userRepo.FindByID(*input.AssignedToID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssigneeNotFound
			}
			return nil, fmt.Errorf("failed to find assignee: %w", err)
		}
		task.AssignedToID = *input.AssignedToID
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	updated, err := s.taskRepo.FindByIDFull(task.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload task: %w", err)
	}

	if task.AssignedToID != prevAssigneeID {
		s.mail.Enqueue(mailer.Message{
			To:      updated.AssignedTo.Email,
			Subject: fmt.Sprintf("Task Reassigned: %s", updated.Title),
			Text: fmt.Sprintf("You have been assigned to task %q by %s.",
				updated.Title, actor.Name),
			HTML: fmt.Sprintf(`<h2>Task Reassigned</h2>
<p>You have been assigned to task "<strong>%s</strong>" by <strong>%s</strong>.</p>
<p><strong>Description:</strong> %s</p>
<p><strong>Priority:</strong> %s</p>
<p><strong>Deadline:</strong> %s</p>`,
				updated.Title, actor.Name, descriptionOr(updated.Description),
				updated.Priority, deadlineOr(updated.Deadline)),
		})
	}

	return updated, nil
}

// UpdateTaskStatus moves a task across the board after checking the status
// policy. When the actor is not the creator, the creator is notified.
func (s *TaskService) UpdateTaskStatus(taskID, actorID uint64, status models.TaskStatus) (*models.Task, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	task, err := s.taskRepo.FindByID(taskID, "AssignedTo", "CreatedBy")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find actor: %w", err)
	}

	if !policy.Can(actor, task, policy.ActionChangeStatus) {
		return nil, ErrTaskPermissionDenied
	}

	task.Status = status
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	if task.CreatedByID != actorID {
		s.mail.Enqueue(mailer.Message{
			To:      task.CreatedBy.Email,
			Subject: fmt.Sprintf("Task Status Updated: %s", task.Title),
			Text: fmt.Sprintf("The status of task %q has been updated to %s by %s.",
				task.Title, status, actor.Name),
		})
	}

	return s.taskRepo.FindByID(task.ID, "AssignedTo", "CreatedBy")
}

// DeleteTask removes a task. Restricted to admins and the creator.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return fmt.Errorf("failed to find actor: %w", err)
	}

	if !policy.Can(actor, task, policy.ActionDeleteTask) {
		return ErrTaskPermissionDenied
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// AddCommentInput carries a new task comment with @mentions.
type AddCommentInput struct {
	TaskID   uint64
	AuthorID uint64
	Content  string
	Mentions []uint64
}

// AddComment creates a comment with its mention edges, then fans out
// notification emails: one to each mentioned user and one to the task's
// creator and assignee, always excluding the author. Every send goes
// through the queue, so one bad address never blocks the rest.
func (s *TaskService) AddComment(input AddCommentInput) (*models.Comment, error) {
	// Defensive check against stale sessions: the author row must exist.
	author, err := s.userRepo.FindByID(input.AuthorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAuthorNotFound
		}
		return nil, fmt.Errorf("failed to find author: %w", err)
	}

	task, err := s.taskRepo.FindByID(input.TaskID, "AssignedTo", "CreatedBy")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Content == "" {
		return nil, ErrContentRequired
	}

	mentioned, err := s.userRepo.FindByIDs(input.Mentions)
	if err != nil {
		return nil, fmt.Errorf("failed to find mentioned users: %w", err)
	}

	comment := &models.Comment{
		Content:  input.Content,
		TaskID:   task.ID,
		AuthorID: author.ID,
	}
	if err := s.commentRepo.Create(comment, input.Mentions, nil); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	for _, user := range mentioned {
		if user.ID == author.ID || user.Email == "" {
			continue
		}
		s.mail.Enqueue(mailer.Message{
			To:      user.Email,
			Subject: "You were mentioned in a task comment",
			Text: fmt.Sprintf("%s mentioned you in a comment on task %q:\n\n%s",
				author.Name, task.Title, input.Content),
		})
	}

	for _, user := range commentWatchers(task, author.ID) {
		s.mail.Enqueue(mailer.Message{
			To:      user.Email,
			Subject: fmt.Sprintf("New comment on task: %s", task.Title),
			Text: fmt.Sprintf("%s commented on task %q:\n\n%s",
				author.Name, task.Title, input.Content),
		})
	}

	return s.commentRepo.FindByID(comment.ID, "Author", "Mentions", "Mentions.User", "Attachments")
}

// AddAttachments bulk-inserts attachment references after checking the
// attachment policy.
func (s *TaskService) AddAttachments(taskID, actorID uint64, attachments []AttachmentInput) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	actor, err := s.userRepo.FindByID(actorID)
	if err != nil {
		return fmt.Errorf("failed to find actor: %w", err)
	}

	if !policy.Can(actor, task, policy.ActionAddAttachment) {
		return ErrTaskPermissionDenied
	}

	if err := s.taskRepo.AddAttachments(task.ID, toAttachments(attachments)); err != nil {
		return fmt.Errorf("failed to store attachments: %w", err)
	}

	return nil
}

// commentWatchers returns the task's creator and assignee minus the comment
// author, deduplicated.
func commentWatchers(task *models.Task, authorID uint64) []models.User {
	watchers := make([]models.User, 0, 2)
	seen := map[uint64]struct{}{authorID: {}}

	for _, user := range []models.User{task.CreatedBy, task.AssignedTo} {
		if _, ok := seen[user.ID]; ok || user.Email == "" {
			continue
		}
		seen[user.ID] = struct{}{}
		watchers = append(watchers, user)
	}

	return watchers
}

func toAttachments(inputs []AttachmentInput) []models.Attachment {
	attachments := make([]models.Attachment, len(inputs))
	for i, in := range inputs {
		attachments[i] = models.Attachment{
			FileName: in.FileName,
			FileURL:  in.FileURL,
			FileSize: in.FileSize,
			MimeType: in.MimeType,
		}
	}
	return attachments
}

func descriptionOr(description string) string {
	if description == "" {
		return "No description"
	}
	return description
}

func deadlineOr(deadline *time.Time) string {
	if deadline == nil {
		return "No deadline"
	}
	return deadline.Format("2006-01-02")
}
