package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/taskflowhq/taskflow-api/internal/apperrors"
	"github.com/taskflowhq/taskflow-api/internal/constants"
	"github.com/taskflowhq/taskflow-api/internal/middleware"
	"github.com/taskflowhq/taskflow-api/internal/storage"
)

type UploadHandler struct {
	store storage.ObjectStore
}

func NewUploadHandler(store storage.ObjectStore) *UploadHandler {
	return &UploadHandler{
		store: store,
	}
}

// Upload streams a multipart file into object storage under a per-user
// prefix and returns its public URL. The file is not yet attached to
// anything; the client links the returned reference to a task or comment
// in a follow-up request.
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "")
		return
	}

	if h.store == nil {
		apperrors.ServiceUnavailable(c, "File storage is not configured")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.BadRequest(c, "No file provided")
		return
	}

	if fileHeader.Size > constants.MaxUploadSize {
		apperrors.BadRequest(c, "File exceeds the 10MB size limit")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apperrors.InternalError(c, "Failed to read file")
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	// Random prefix keeps same-named uploads from clobbering each other.
	ext := filepath.Ext(fileHeader.Filename)
	base := strings.TrimSuffix(filepath.Base(fileHeader.Filename), ext)
	key := fmt.Sprintf("uploads/%d/%s-%s%s", userID, uuid.NewString(), base, ext)

	url, err := h.store.Upload(c.Request.Context(), key, file, fileHeader.Size, contentType)
	if err != nil {
		apperrors.InternalError(c, "Failed to store file")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fileName": fileHeader.Filename,
		"url":      url,
		"fileUrl":  url,
		"fileSize": fileHeader.Size,
		"mimeType": contentType,
	})
}
