package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/taskflowhq/taskflow-api/internal/constants"
)

// fakeObjectStore captures uploads instead of talking to real storage.
type fakeObjectStore struct {
	keys    []string
	content []byte
	err     error
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.content = data
	return "https://storage.example.com/" + key, nil
}

func multipartUpload(t *testing.T, fieldName, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func uploadContext(t *testing.T, body *bytes.Buffer, contentType string, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	c.Request.Header.Set("Content-Type", contentType)
	c.Set(constants.ContextKeyUserID, userID)
	return c, w
}

func TestUploadHandler_Upload(t *testing.T) {
	store := &fakeObjectStore{}
	handler := NewUploadHandler(store)

	body, contentType := multipartUpload(t, "file", "report.pdf", "pdf-bytes")
	c, w := uploadContext(t, body, contentType, 42)

	handler.Upload(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		FileName string `json:"fileName"`
		URL      string `json:"url"`
		FileURL  string `json:"fileUrl"`
		FileSize int64  `json:"fileSize"`
		MimeType string `json:"mimeType"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "report.pdf", response.FileName)
	require.Equal(t, response.URL, response.FileURL)
	require.Equal(t, int64(len("pdf-bytes")), response.FileSize)

	// Stored under the caller's prefix with a random component.
	require.Len(t, store.keys, 1)
	require.True(t, strings.HasPrefix(store.keys[0], "uploads/42/"))
	require.True(t, strings.HasSuffix(store.keys[0], ".pdf"))
	require.Equal(t, []byte("pdf-bytes"), store.content)
}

func TestUploadHandler_Upload_MissingFile(t *testing.T) {
	handler := NewUploadHandler(&fakeObjectStore{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.Close())

	c, w := uploadContext(t, &buf, writer.FormDataContentType(), 42)
	handler.Upload(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadHandler_Upload_StorageUnconfigured(t *testing.T) {
	handler := NewUploadHandler(nil)

	body, contentType := multipartUpload(t, "file", "report.pdf", "pdf-bytes")
	c, w := uploadContext(t, body, contentType, 42)

	handler.Upload(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
