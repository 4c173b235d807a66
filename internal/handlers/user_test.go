package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/taskflowhq/taskflow-api/internal/constants"
	"github.com/taskflowhq/taskflow-api/internal/database"
	"github.com/taskflowhq/taskflow-api/internal/dto"
	"github.com/taskflowhq/taskflow-api/internal/models"
	"github.com/taskflowhq/taskflow-api/internal/repository"
	"github.com/taskflowhq/taskflow-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUserTestEnv(t *testing.T) (*gorm.DB, *UserHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	database.SetDB(db)

	userRepo := repository.NewUserRepository(db)
	handler := NewUserHandler(services.NewUserService(userRepo))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return db, handler
}

func TestUserHandler_ListUsers(t *testing.T) {
	db, handler := setupUserTestEnv(t)

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		require.NoError(t, db.Create(&models.User{Email: email, Name: email, PasswordHash: "x"}).Error)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(constants.ContextKeyUserID, uint64(1))

	handler.ListUsers(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Users []dto.UserDTO `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Users, 3)
}

func TestUserHandler_GetMe(t *testing.T) {
	db, handler := setupUserTestEnv(t)

	user := &models.User{Email: "me@example.com", Name: "Me", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(constants.ContextKeyUserID, user.ID)

	handler.GetMe(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "me@example.com", response.Email)
}

func TestUserHandler_UpdateMe(t *testing.T) {
	db, handler := setupUserTestEnv(t)

	user := &models.User{Email: "me@example.com", Name: "Old Name", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	body, err := json.Marshal(map[string]string{"name": "New Name"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPatch, "/api/users/me", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(constants.ContextKeyUserID, user.ID)

	handler.UpdateMe(c)

	require.Equal(t, http.StatusOK, w.Code)

	var updated models.User
	require.NoError(t, db.First(&updated, user.ID).Error)
	require.Equal(t, "New Name", updated.Name)
}
