package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"time"

	"github.com/taskflowhq/taskflow-api/internal/authprovider"
	"github.com/taskflowhq/taskflow-api/internal/constants"
	"github.com/taskflowhq/taskflow-api/internal/mailer"
	"github.com/taskflowhq/taskflow-api/internal/models"
	"github.com/taskflowhq/taskflow-api/internal/repository"
	"github.com/taskflowhq/taskflow-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = errors.New("a user with this email already exists")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotAdmin             = errors.New("only admins can invite users")
	ErrInvalidResetToken    = errors.New("invalid or expired token")
	ErrInvalidOTP           = errors.New("invalid or expired OTP")
	ErrInvalidImageURL      = errors.New("invalid image URL provided")
	ErrProviderRejected     = errors.New("auth provider rejected the request")
	ErrProviderUpdateFailed = errors.New("failed to update password in authentication service")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService owns authentication and the dual-write user provisioning
// between the local users table and the external auth provider. The two
// systems share no transaction; partial failures are repaired with explicit
// compensation steps (delete the just-created row, revert a password
// snapshot) so callers only ever observe all-or-nothing outcomes.
type AuthService struct {
	userRepo    repository.UserRepository
	otpRepo     repository.OTPRepository
	provider    authprovider.Client
	mail        mailer.Enqueuer
	frontendURL string
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, otpRepo repository.OTPRepository, provider authprovider.Client, mail mailer.Enqueuer, frontendURL string) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		otpRepo:     otpRepo,
		provider:    provider,
		mail:        mail,
		frontendURL: frontendURL,
	}
}

// SignUpInput represents the required information to create a new account.
type SignUpInput struct {
	Email    string
	Password string
	Name     string
}

// SignUp creates the external identity first, then the local user row.
// If the provider rejects the signup nothing is written locally. If the
// local insert fails afterwards an orphan external identity may remain;
// the invite flow knows how to repair that drift.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*models.User, error) {
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	if _, err := s.provider.CreateIdentity(ctx, input.Email, input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	user := &models.User{
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hashed),
		Role:         models.RoleUser,
		Image:        defaultAvatarURL(input.Name),
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials against the local password hash.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// InviteUserInput carries an invitation request.
type InviteUserInput struct {
	ActorID uint64
	Email   string
	Name    string
}

// InviteUser provisions an account on behalf of an admin: a local row with a
// 24h single-use reset token, an external identity with a temporary
// password, and an invitation email carrying the set-password link.
//
// The local row is written first. If the provider reports the email as
// already registered, the stray identity is deleted and creation retried
// once; any other provider failure (or a failed retry) deletes the local
// row again before surfacing the error. A failed invitation email does not
// roll anything back: the account exists even when the email is lost.
func (s *AuthService) InviteUser(ctx context.Context, input InviteUserInput) (*models.User, error) {
	actor, err := s.userRepo.FindByID(input.ActorID)
	if err != nil {
		return nil, fmt.Errorf("failed to find actor: %w", err)
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrNotAdmin
	}

	if _, err := s.userRepo.FindByEmail(input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	tempPassword, err := utils.GenerateTempPassword()
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	resetToken, err := generateResetToken(input.Email)
	if err != nil {
		return nil, err
	}
	resetTokenExpiry := time.Now().Add(constants.ResetTokenTTL)

	user := &models.User{
		Email:            input.Email,
		Name:             input.Name,
		PasswordHash:     string(hashed),
		Role:             models.RoleUser,
		InvitedByID:      &actor.ID,
		ResetToken:       &resetToken,
		ResetTokenExpiry: &resetTokenExpiry,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := s.provider.CreateIdentity(ctx, input.Email, tempPassword); err != nil {
		if authprovider.IsAlreadyRegistered(err) {
			// Drifted systems: the identity exists without a local row.
			// Remove it and retry once.
			if retryErr := s.replaceStrayIdentity(ctx, input.Email, tempPassword); retryErr != nil {
				s.compensateLocalUser(user.ID)
				return nil, fmt.Errorf("%w: %v", ErrProviderRejected, retryErr)
			}
		} else {
			s.compensateLocalUser(user.ID)
			return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
		}
	}

	s.mail.Enqueue(s.invitationEmail(input.Email, resetToken, tempPassword))

	return user, nil
}

// SetPassword exchanges a reset token for a chosen password. The local hash
// is updated first, then mirrored to the external identity; a provider
// failure reverts the local fields to their pre-update snapshot.
func (s *AuthService) SetPassword(ctx context.Context, token, password string) error {
	if len(password) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}

	user, err := s.userRepo.FindByResetToken(token, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	// Snapshot for compensation.
	prevHash := user.PasswordHash
	prevToken := user.ResetToken
	prevExpiry := user.ResetTokenExpiry

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	user.PasswordHash = string(hashed)
	user.ResetToken = nil
	user.ResetTokenExpiry = nil

	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	identity, err := s.provider.FindIdentityByEmail(ctx, user.Email)
	if err != nil {
		s.revertPassword(user, prevHash, prevToken, prevExpiry)
		return fmt.Errorf("%w: %v", ErrProviderUpdateFailed, err)
	}

	if err := s.provider.UpdateIdentity(ctx, identity.ID, authprovider.IdentityUpdate{Password: &password}); err != nil {
		s.revertPassword(user, prevHash, prevToken, prevExpiry)
		return fmt.Errorf("%w: %v", ErrProviderUpdateFailed, err)
	}

	return nil
}

// SendProfileUpdateOTP issues a short-lived numeric code to the caller's own
// address, gating subsequent profile changes.
func (s *AuthService) SendProfileUpdateOTP(userID uint64) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	code, err := utils.GenerateOTP()
	if err != nil {
		return err
	}

	otp := &models.OTP{
		UserID:    user.ID,
		Code:      code,
		Type:      models.OTPTypeProfileUpdate,
		ExpiresAt: time.Now().Add(constants.OTPTTL),
	}
	if err := s.otpRepo.Create(otp); err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}

	s.mail.Enqueue(mailer.Message{
		To:      user.Email,
		Subject: "Profile Update OTP",
		Text:    fmt.Sprintf("Your OTP for profile update is: %s. This OTP will expire in 10 minutes.", code),
		HTML: fmt.Sprintf("<h1>Profile Update OTP</h1><p>Your OTP for profile update is: <strong>%s</strong></p><p>This OTP will expire in 10 minutes.</p>",
			code),
	})

	return nil
}

// UpdateProfileInput carries an OTP-gated profile change.
type UpdateProfileInput struct {
	Name  string
	Image string
	OTP   string
}

// UpdateProfile applies a partial profile update after consuming a valid
// OTP. The code is consumed before field validation, so a bad image URL
// still burns it. Mirroring name/image into the external identity's
// metadata is best-effort: local truth wins.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, input UpdateProfileInput) (*models.User, error) {
	otp, err := s.otpRepo.FindValid(userID, input.OTP, models.OTPTypeProfileUpdate, time.Now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidOTP
		}
		return nil, fmt.Errorf("failed to look up OTP: %w", err)
	}

	if err := s.otpRepo.MarkUsed(otp.ID); err != nil {
		return nil, fmt.Errorf("failed to consume OTP: %w", err)
	}

	if input.Image != "" {
		parsed, err := url.Parse(input.Image)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, ErrInvalidImageURL
		}
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Image != "" {
		user.Image = input.Image
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	if identity, err := s.provider.FindIdentityByEmail(ctx, user.Email); err == nil {
		_ = s.provider.UpdateIdentity(ctx, identity.ID, authprovider.IdentityUpdate{
			Metadata: map[string]any{
				"name":       user.Name,
				"avatar_url": user.Image,
			},
		})
	}

	return user, nil
}

// replaceStrayIdentity deletes the provider identity holding email and
// creates a fresh one with the temporary password.
func (s *AuthService) replaceStrayIdentity(ctx context.Context, email, tempPassword string) error {
	identity, err := s.provider.FindIdentityByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := s.provider.DeleteIdentity(ctx, identity.ID); err != nil {
		return err
	}

	_, err = s.provider.CreateIdentity(ctx, email, tempPassword)
	return err
}

// compensateLocalUser removes the local row created before a failed
// provider call. Best-effort: a failure here leaves the systems diverged,
// which the next invite for the same email repairs.
func (s *AuthService) compensateLocalUser(userID uint64) {
	if err := s.userRepo.Delete(userID); err != nil {
		log.Printf("failed to compensate local user %d: %v", userID, err)
	}
}

// revertPassword restores the pre-update credential fields.
func (s *AuthService) revertPassword(user *models.User, hash string, token *string, expiry *time.Time) {
	user.PasswordHash = hash
	user.ResetToken = token
	user.ResetTokenExpiry = expiry
	_ = s.userRepo.Update(user)
}

func (s *AuthService) invitationEmail(email, resetToken, tempPassword string) mailer.Message {
	resetURL := fmt.Sprintf("%s/auth/set-password?token=%s", s.frontendURL, url.QueryEscape(resetToken))

	return mailer.Message{
		To:      email,
		Subject: "Welcome to Task Management Tool",
		Text:    fmt.Sprintf("You have been invited to join the Task Management Tool. Please set your password by clicking the following link: %s", resetURL),
		HTML: fmt.Sprintf(`<h1>Welcome to Task Management Tool</h1>
<p>You have been invited to join the Task Management Tool.</p>
<p>Please set your password by clicking the following link:</p>
<p>Your temporary password is: %s</p>
<a href="%s">Set Password</a>
<p>This link will expire in 24 hours.</p>`, tempPassword, resetURL),
	}
}

// generateResetToken derives a single-use opaque token from the email and
// the current time.
func generateResetToken(email string) (string, error) {
	seed := email + strconv.FormatInt(time.Now().UnixNano(), 10)
	hashed, err := bcrypt.GenerateFromPassword([]byte(seed), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return string(hashed), nil
}

func defaultAvatarURL(name string) string {
	return fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=random", url.QueryEscape(name))
}
