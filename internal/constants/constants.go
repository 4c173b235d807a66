package constants

import "time"

const (
	// ContextKeyUserID is the key under which the authenticated user ID is
	// stored in both the session and the request context.
	ContextKeyUserID = "user_id"

	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "task_session"

	MinPasswordLength = 6

	// MaxUploadSize caps multipart file uploads.
	MaxUploadSize = 10 << 20 // 10MB

	OTPLength = 6
	OTPTTL    = 10 * time.Minute

	// ResetTokenTTL is how long an invitation's set-password link stays valid.
	ResetTokenTTL = 24 * time.Hour

	MaxAIGeneratedTasks = 20
)
