package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow-api/internal/apperrors"
	"github.com/taskflowhq/taskflow-api/internal/dto"
	"github.com/taskflowhq/taskflow-api/internal/middleware"
	"github.com/taskflowhq/taskflow-api/internal/models"
	"github.com/taskflowhq/taskflow-api/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
	aiService   *services.AIService
}

func NewTaskHandler(taskService *services.TaskService, aiService *services.AIService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		aiService:   aiService,
	}
}

// AttachmentRequest is a pre-uploaded file reference sent by the client.
type AttachmentRequest struct {
	FileName string `json:"file_name" binding:"required"`
	FileURL  string `json:"file_url" binding:"required"`
	FileSize int64  `json:"file_size"`
	MimeType string `json:"mime_type"`
}

func toAttachmentInputs(reqs []AttachmentRequest) []services.AttachmentInput {
	inputs := make([]services.AttachmentInput, len(reqs))
	for i, r := range reqs {
		inputs[i] = services.AttachmentInput{
			FileName: r.FileName,
			FileURL:  r.FileURL,
			FileSize: r.FileSize,
			MimeType: r.MimeType,
		}
	}
	return inputs
}

// respondTaskError maps task service errors onto HTTP responses.
func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrCommentNotFound):
		apperrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskPermissionDenied):
		apperrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrContentRequired),
		errors.Is(err, services.ErrAssigneeNotFound),
		errors.Is(err, services.ErrAuthorNotFound):
		apperrors.BadRequest(c, err.Error())
	default:
		apperrors.InternalError(c, "")
	}
}

func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apperrors.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// ListTasks returns all tasks, newest first
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.taskService.ListTasks()
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": dto.ToTaskDTOs(tasks)})
}

// GetTask returns a single task with its comments and attachments
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task owned by the caller
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	type CreateTaskRequest struct {
		Title        string              `json:"title" binding:"required"`
		Description  string              `json:"description"`
		Deadline     *time.Time          `json:"deadline"`
		Priority     models.TaskPriority `json:"priority" binding:"required"`
		Tags         []string            `json:"tags"`
		DOD          string              `json:"dod"`
		AssignedToID uint64              `json:"assigned_to_id" binding:"required"`
		Attachments  []AttachmentRequest `json:"attachments"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Deadline:     req.Deadline,
		Priority:     req.Priority,
		Tags:         req.Tags,
		DOD:          req.DOD,
		AssignedToID: req.AssignedToID,
		CreatorID:    userID,
		Attachments:  toAttachmentInputs(req.Attachments),
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update to a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title        *string              `json:"title"`
		Description  *string              `json:"description"`
		Deadline     *time.Time           `json:"deadline"`
		Priority     *models.TaskPriority `json:"priority"`
		Tags         *[]string            `json:"tags"`
		DOD          *string              `json:"dod"`
		AssignedToID *uint64              `json:"assigned_to_id"`
		Status       *models.TaskStatus   `json:"status"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(taskID, userID, services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Deadline:     req.Deadline,
		Priority:     req.Priority,
		Tags:         req.Tags,
		DOD:          req.DOD,
		AssignedToID: req.AssignedToID,
		Status:       req.Status,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// UpdateTaskStatus moves a task across the board
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTaskStatus(taskID, userID, req.Status)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask removes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(taskID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// AddComment creates a comment on a task and notifies mentioned users and
// the task's watchers
func (h *TaskHandler) AddComment(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type AddCommentRequest struct {
		Content  string   `json:"content" binding:"required"`
		Mentions []uint64 `json:"mentions"`
	}

	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	comment, err := h.taskService.AddComment(services.AddCommentInput{
		TaskID:   taskID,
		AuthorID: userID,
		Content:  req.Content,
		Mentions: req.Mentions,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCommentDTO(*comment))
}

// AddAttachments stores pre-uploaded file references against a task
func (h *TaskHandler) AddAttachments(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type AddAttachmentsRequest struct {
		Attachments []AttachmentRequest `json:"attachments" binding:"required,min=1,dive"`
	}

	var req AddAttachmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	if err := h.taskService.AddAttachments(taskID, userID, toAttachmentInputs(req.Attachments)); err != nil {
		respondTaskError(c, err)
		return
	}

	task, err := h.taskService.GetTask(taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GenerateTasks extracts task drafts from free text using AI
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, "Invalid request body")
		return
	}

	if h.aiService == nil {
		apperrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
		return
	}

	drafts, err := h.aiService.GenerateTaskDrafts(c.Request.Context(), req.Text)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAIServiceNotConfigured):
			apperrors.ServiceUnavailable(c, err.Error())
		case errors.Is(err, services.ErrAINoTasksGenerated),
			errors.Is(err, services.ErrAINoValidTasks):
			apperrors.BadRequest(c, err.Error())
		default:
			apperrors.InternalError(c, "Failed to generate tasks")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": drafts})
}
