package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/taskflowhq/taskflow-api/internal/authprovider"
	"github.com/taskflowhq/taskflow-api/internal/constants"
	"github.com/taskflowhq/taskflow-api/internal/database"
	"github.com/taskflowhq/taskflow-api/internal/dto"
	"github.com/taskflowhq/taskflow-api/internal/mailer"
	"github.com/taskflowhq/taskflow-api/internal/models"
	"github.com/taskflowhq/taskflow-api/internal/repository"
	"github.com/taskflowhq/taskflow-api/internal/services"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeProvider is an in-memory authprovider.Client. Errors can be scripted
// per call to exercise the compensation paths.
type fakeProvider struct {
	mu         sync.Mutex
	identities map[string]*authprovider.Identity
	seq        int

	createErrs []error // popped one per CreateIdentity call
	findErr    error
	updateErr  error
	deleteErr  error

	creates int
	deletes int
	updates []authprovider.IdentityUpdate
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{identities: make(map[string]*authprovider.Identity)}
}

func (f *fakeProvider) addIdentity(email string) *authprovider.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	identity := &authprovider.Identity{ID: fmt.Sprintf("ext-%d", f.seq), Email: email}
	f.identities[email] = identity
	return identity
}

func (f *fakeProvider) CreateIdentity(_ context.Context, email, _ string) (*authprovider.Identity, error) {
	f.mu.Lock()
	f.creates++
	var err error
	if len(f.createErrs) > 0 {
		err = f.createErrs[0]
		f.createErrs = f.createErrs[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if f.hasIdentity(email) {
		return nil, &authprovider.APIError{Status: 422, Message: "A user with this email address has already been registered"}
	}
	return f.addIdentity(email), nil
}

func (f *fakeProvider) FindIdentityByEmail(_ context.Context, email string) (*authprovider.Identity, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	identity, ok := f.identities[email]
	if !ok {
		return nil, authprovider.ErrIdentityNotFound
	}
	return identity, nil
}

func (f *fakeProvider) UpdateIdentity(_ context.Context, id string, update authprovider.IdentityUpdate) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeProvider) DeleteIdentity(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	for email, identity := range f.identities {
		if identity.ID == id {
			delete(f.identities, email)
		}
	}
	return nil
}

func (f *fakeProvider) hasIdentity(email string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.identities[email]
	return ok
}

type authTestEnv struct {
	db       *gorm.DB
	handler  *AuthHandler
	service  *services.AuthService
	userRepo repository.UserRepository
	provider *fakeProvider
	mail     *mailer.Recorder
	router   *gin.Engine
}

func setupAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.OTP{},
	)
	require.NoError(t, err)

	database.SetDB(db)

	userRepo := repository.NewUserRepository(db)
	otpRepo := repository.NewOTPRepository(db)
	provider := newFakeProvider()
	mail := mailer.NewRecorder()
	authService := services.NewAuthService(userRepo, otpRepo, provider, mail, "http://frontend.test")
	handler := NewAuthHandler(authService)

	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	r.POST("/api/auth/signup", handler.Signup)
	r.POST("/api/auth/login", handler.Login)
	r.POST("/api/auth/logout", handler.Logout)
	r.POST("/api/auth/set-password", handler.SetPassword)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return &authTestEnv{
		db:       db,
		handler:  handler,
		service:  authService,
		userRepo: userRepo,
		provider: provider,
		mail:     mail,
		router:   r,
	}
}

func postJSON(t *testing.T, r *gin.Engine, url string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/api/auth/signup", map[string]string{
		"email":    "new@example.com",
		"password": "supersecret",
		"name":     "New User",
	})

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "new@example.com", response.Email)
	require.Equal(t, models.RoleUser, response.Role)
	require.NotEmpty(t, response.Image)

	// The external identity was created first.
	require.True(t, env.provider.hasIdentity("new@example.com"))

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
}

func TestAuthHandler_Signup_DuplicateEmail(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/api/auth/signup", map[string]string{
		"email":    "dup@example.com",
		"password": "supersecret",
		"name":     "First",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, env.router, "/api/auth/signup", map[string]string{
		"email":    "dup@example.com",
		"password": "supersecret",
		"name":     "Second",
	})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Signup_ShortPassword(t *testing.T) {
	env := setupAuthTestEnv(t)

	w := postJSON(t, env.router, "/api/auth/signup", map[string]string{
		"email":    "short@example.com",
		"password": "abc",
		"name":     "Short",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	// Nothing was written anywhere.
	require.False(t, env.provider.hasIdentity("short@example.com"))
	_, err := env.userRepo.FindByEmail("short@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.service.SignUp(context.Background(), services.SignUpInput{
		Email:    "existing@example.com",
		Password: "supersecret",
		Name:     "Existing",
	})
	require.NoError(t, err)

	w := postJSON(t, env.router, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Result().Cookies(), "expected session cookie to be set")

	// Wrong password is indistinguishable from an unknown email.
	w = postJSON(t, env.router, "/api/auth/login", map[string]string{
		"email":    "existing@example.com",
		"password": "wrongpassword",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, env.router, "/api/auth/login", map[string]string{
		"email":    "unknown@example.com",
		"password": "supersecret",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.service.SignUp(context.Background(), services.SignUpInput{
		Email:    "current@example.com",
		Password: "supersecret",
		Name:     "Current",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(constants.ContextKeyUserID, user.ID)

	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.UserDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, user.Email, response.Email)
}

func seedAdminUser(t *testing.T, env *authTestEnv) *models.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	admin := &models.User{
		Email:        "admin@example.com",
		Name:         "Admin",
		PasswordHash: string(hashed),
		Role:         models.RoleAdmin,
	}
	require.NoError(t, env.userRepo.Create(admin))
	return admin
}

func TestAuthHandler_Invite(t *testing.T) {
	env := setupAuthTestEnv(t)
	admin := seedAdminUser(t, env)

	user, err := env.service.InviteUser(context.Background(), services.InviteUserInput{
		ActorID: admin.ID,
		Email:   "invitee@example.com",
		Name:    "Invitee",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleUser, user.Role)
	require.NotNil(t, user.ResetToken)
	require.NotNil(t, user.ResetTokenExpiry)
	require.True(t, user.ResetTokenExpiry.After(time.Now().Add(23*time.Hour)))
	require.Equal(t, &admin.ID, user.InvitedByID)

	require.True(t, env.provider.hasIdentity("invitee@example.com"))

	messages := env.mail.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "invitee@example.com", messages[0].To)
	require.Contains(t, messages[0].Text, "http://frontend.test/auth/set-password?token=")
}

func TestAuthHandler_Invite_RequiresAdmin(t *testing.T) {
	env := setupAuthTestEnv(t)

	member, err := env.service.SignUp(context.Background(), services.SignUpInput{
		Email:    "member@example.com",
		Password: "supersecret",
		Name:     "Member",
	})
	require.NoError(t, err)

	_, err = env.service.InviteUser(context.Background(), services.InviteUserInput{
		ActorID: member.ID,
		Email:   "invitee@example.com",
		Name:    "Invitee",
	})
	require.ErrorIs(t, err, services.ErrNotAdmin)
	require.False(t, env.provider.hasIdentity("invitee@example.com"))
}

func TestAuthHandler_Invite_DuplicateEmail(t *testing.T) {
	env := setupAuthTestEnv(t)
	admin := seedAdminUser(t, env)

	_, err := env.service.InviteUser(context.Background(), services.InviteUserInput{
		ActorID: admin.ID,
		Email:   "invitee@example.com",
		Name:    "Invitee",
	})
	require.NoError(t, err)

	_, err = env.service.InviteUser(context.Background(), services.InviteUserInput{
		ActorID: admin.ID,
		Email:   "invitee@example.com",
		Name:    "Invitee Again",
	})
	require.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestAuthHandler_Invite_ReplacesStrayIdentity(t *testing.T) {
	env := setupAuthTestEnv(t)
	admin := seedAdminUser(t, env)

	// The provider already holds an identity with no matching local row.
	stray := env.provider.addIdentity("drifted@example.com")

	user, err := env.service.InviteUser(context.Background(), services.InviteUserInput{
		ActorID: admin.ID,
		Email:   "drifted@example.com",
		Name:    "Drifted",
	})
	require.NoError(t, err)

	// The stray identity was deleted and a fresh one created.
	require.Equal(t, 1, env.provider.deletes)
	replacement, err := env.provider.FindIdentityByEmail(context.Background(), "drifted@example.com")
	require.NoError(t, err)
	require.NotEqual(t, stray.ID, replacement.ID)

	_, err = env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
}

func TestAuthHandler_Invite_CompensatesOnProviderFailure(t *testing.T) {
	env := setupAuthTestEnv(t)
	admin := seedAdminUser(t, env)

	env.provider.createErrs = []error{&authprovider.APIError{Status: 500, Message: "internal error"}}

	_, err := env.service.InviteUser(context.Background(), services.InviteUserInput{
		ActorID: admin.ID,
		Email:   "doomed@example.com",
		Name:    "Doomed",
	})
	require.ErrorIs(t, err, services.ErrProviderRejected)

	// The local row created before the provider call was compensated away.
	_, err = env.userRepo.FindByEmail("doomed@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// No invitation email went out.
	require.Empty(t, env.mail.Messages())
}

func inviteWithToken(t *testing.T, env *authTestEnv) (*models.User, string) {
	t.Helper()
	admin := seedAdminUser(t, env)
	user, err := env.service.InviteUser(context.Background(), services.InviteUserInput{
		ActorID: admin.ID,
		Email:   "invitee@example.com",
		Name:    "Invitee",
	})
	require.NoError(t, err)
	require.NotNil(t, user.ResetToken)
	return user, *user.ResetToken
}

func TestAuthHandler_SetPassword(t *testing.T) {
	env := setupAuthTestEnv(t)
	user, token := inviteWithToken(t, env)

	w := postJSON(t, env.router, "/api/auth/set-password", map[string]string{
		"token":    token,
		"password": "chosen-password",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// The new password works and the token is consumed.
	updated, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	require.Nil(t, updated.ResetToken)
	require.Nil(t, updated.ResetTokenExpiry)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("chosen-password")))

	// The provider identity was mirrored.
	require.Len(t, env.provider.updates, 1)
	require.NotNil(t, env.provider.updates[0].Password)
	require.Equal(t, "chosen-password", *env.provider.updates[0].Password)

	// A consumed token cannot be replayed.
	w = postJSON(t, env.router, "/api/auth/set-password", map[string]string{
		"token":    token,
		"password": "another-password",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_SetPassword_ExpiredToken(t *testing.T) {
	env := setupAuthTestEnv(t)
	user, token := inviteWithToken(t, env)

	expired := time.Now().Add(-time.Hour)
	user.ResetTokenExpiry = &expired
	require.NoError(t, env.userRepo.Update(user))

	w := postJSON(t, env.router, "/api/auth/set-password", map[string]string{
		"token":    token,
		"password": "chosen-password",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_SetPassword_RevertsOnProviderFailure(t *testing.T) {
	env := setupAuthTestEnv(t)
	user, token := inviteWithToken(t, env)
	prevHash := user.PasswordHash

	env.provider.updateErr = &authprovider.APIError{Status: 500, Message: "internal error"}

	err := env.service.SetPassword(context.Background(), token, "chosen-password")
	require.ErrorIs(t, err, services.ErrProviderUpdateFailed)

	// Local fields were reverted to their pre-update snapshot, so the
	// token is still usable.
	reverted, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, prevHash, reverted.PasswordHash)
	require.NotNil(t, reverted.ResetToken)
	require.Equal(t, token, *reverted.ResetToken)
}

func issueOTP(t *testing.T, env *authTestEnv, userID uint64) string {
	t.Helper()
	env.mail.Reset()
	require.NoError(t, env.service.SendProfileUpdateOTP(userID))

	messages := env.mail.Messages()
	require.Len(t, messages, 1)

	// The code is the only 6-digit run in the message body.
	text := messages[0].Text
	idx := strings.IndexFunc(text, func(r rune) bool { return r >= '0' && r <= '9' })
	require.GreaterOrEqual(t, idx, 0)
	return text[idx : idx+constants.OTPLength]
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.service.SignUp(context.Background(), services.SignUpInput{
		Email:    "profile@example.com",
		Password: "supersecret",
		Name:     "Before",
	})
	require.NoError(t, err)

	code := issueOTP(t, env, user.ID)

	updated, err := env.service.UpdateProfile(context.Background(), user.ID, services.UpdateProfileInput{
		Name:  "After",
		Image: "https://cdn.example.com/avatar.png",
		OTP:   code,
	})
	require.NoError(t, err)
	require.Equal(t, "After", updated.Name)
	require.Equal(t, "https://cdn.example.com/avatar.png", updated.Image)

	// A consumed code cannot be replayed.
	_, err = env.service.UpdateProfile(context.Background(), user.ID, services.UpdateProfileInput{
		Name: "Again",
		OTP:  code,
	})
	require.ErrorIs(t, err, services.ErrInvalidOTP)
}

func TestAuthHandler_UpdateProfile_InvalidOTP(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.service.SignUp(context.Background(), services.SignUpInput{
		Email:    "profile@example.com",
		Password: "supersecret",
		Name:     "Before",
	})
	require.NoError(t, err)

	_, err = env.service.UpdateProfile(context.Background(), user.ID, services.UpdateProfileInput{
		Name: "After",
		OTP:  "000000",
	})
	require.ErrorIs(t, err, services.ErrInvalidOTP)

	unchanged, err := env.userRepo.FindByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, "Before", unchanged.Name)
}

func TestAuthHandler_UpdateProfile_BadImageBurnsOTP(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.service.SignUp(context.Background(), services.SignUpInput{
		Email:    "profile@example.com",
		Password: "supersecret",
		Name:     "Before",
	})
	require.NoError(t, err)

	code := issueOTP(t, env, user.ID)

	// The code is consumed before the image URL is validated, so a bad
	// URL burns it.
	_, err = env.service.UpdateProfile(context.Background(), user.ID, services.UpdateProfileInput{
		Image: "not-a-url",
		OTP:   code,
	})
	require.ErrorIs(t, err, services.ErrInvalidImageURL)

	_, err = env.service.UpdateProfile(context.Background(), user.ID, services.UpdateProfileInput{
		Name: "After",
		OTP:  code,
	})
	require.ErrorIs(t, err, services.ErrInvalidOTP)
}
