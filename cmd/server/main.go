package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/taskflowhq/taskflow-api/internal/authprovider"
	"github.com/taskflowhq/taskflow-api/internal/config"
	"github.com/taskflowhq/taskflow-api/internal/constants"
	"github.com/taskflowhq/taskflow-api/internal/database"
	"github.com/taskflowhq/taskflow-api/internal/handlers"
	"github.com/taskflowhq/taskflow-api/internal/mailer"
	"github.com/taskflowhq/taskflow-api/internal/middleware"
	"github.com/taskflowhq/taskflow-api/internal/models"
	"github.com/taskflowhq/taskflow-api/internal/repository"
	"github.com/taskflowhq/taskflow-api/internal/services"
	"github.com/taskflowhq/taskflow-api/internal/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Repositories
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	otpRepo := repository.NewOTPRepository(db)

	// Seed the bootstrap admin so a fresh deployment has someone who can
	// invite the rest of the team.
	if err := seedAdmin(db, userRepo, cfg); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	// Outbound mail: a queue in front of the SMTP transport. Notifications
	// are enqueued by services and delivered with retries in the background.
	smtpSender := mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom)
	mailQueue := mailer.NewQueue(smtpSender)
	mailQueue.Start()
	defer mailQueue.Close()

	// Object storage for attachments. Optional: uploads return 503 until
	// STORAGE_ENDPOINT is configured.
	var store storage.ObjectStore
	if cfg.StorageEndpoint != "" {
		s3, err := storage.NewS3Store(storage.S3Config{
			Endpoint:  cfg.StorageEndpoint,
			AccessKey: cfg.StorageAccessKey,
			SecretKey: cfg.StorageSecretKey,
			Bucket:    cfg.StorageBucket,
			UseSSL:    cfg.StorageUseSSL,
			PublicURL: cfg.StoragePublicURL,
		})
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		store = s3
	}

	// External auth provider for the dual-write provisioning flows.
	provider := authProviderClient(cfg)

	// Services
	authService := services.NewAuthService(userRepo, otpRepo, provider, mailQueue, cfg.FrontendURL)
	taskService := services.NewTaskService(taskRepo, userRepo, commentRepo, mailQueue)
	commentService := services.NewCommentService(commentRepo, taskRepo)
	userService := services.NewUserService(userRepo)

	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	taskHandler := handlers.NewTaskHandler(taskService, aiService)
	commentHandler := handlers.NewCommentHandler(commentService)
	userHandler := handlers.NewUserHandler(userService)
	uploadHandler := handlers.NewUploadHandler(store)
	mailHandler := handlers.NewMailHandler(smtpSender)

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	sessionStore, err := redisStore.NewStore(
		10,
		"tcp",
		redisAddr,
		"",
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, sessionStore))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "TaskFlow API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Email relay (public, used by the frontend)
		api.POST("/send-email", mailHandler.SendEmail)

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/set-password", authHandler.SetPassword)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
			auth.POST("/invite", middleware.RequireAuth(), authHandler.Invite)
			auth.POST("/profile/otp", middleware.RequireAuth(), authHandler.SendProfileOTP)
			auth.PATCH("/profile", middleware.RequireAuth(), authHandler.UpdateProfile)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", taskHandler.CreateTask)
			tasks.POST("/generate", taskHandler.GenerateTasks)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", taskHandler.UpdateTaskStatus)
			tasks.POST("/:id/comments", taskHandler.AddComment)
			tasks.POST("/:id/attachments", taskHandler.AddAttachments)
		}

		// Comment routes (protected)
		comments := api.Group("/comments")
		comments.Use(middleware.RequireAuth())
		{
			comments.POST("", commentHandler.CreateComment)
			comments.PATCH("/:id", commentHandler.UpdateComment)
			comments.DELETE("/:id", commentHandler.DeleteComment)
		}

		// User routes (protected)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth())
		{
			users.GET("", userHandler.ListUsers)
			users.GET("/me", userHandler.GetMe)
			users.PATCH("/me", userHandler.UpdateMe)
		}

		// File upload (protected)
		api.POST("/upload", middleware.RequireAuth(), uploadHandler.Upload)
	}

	// Start server
	log.Println("Starting server on :8080")
	if err := r.Run(":8080"); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// authProviderClient builds the identity service client. Fatal when
// unconfigured: every provisioning flow depends on it.
func authProviderClient(cfg *config.Config) authprovider.Client {
	if cfg.AuthProviderURL == "" || cfg.AuthServiceKey == "" {
		log.Fatal("AUTH_PROVIDER_URL and AUTH_SERVICE_ROLE_KEY must be set")
	}
	return authprovider.NewHTTPClient(cfg.AuthProviderURL, cfg.AuthServiceKey)
}

// seedAdmin creates the bootstrap admin account when no ADMIN user exists
// and admin credentials are configured. Provider registration for this
// account is expected to be done out of band.
func seedAdmin(db *gorm.DB, userRepo repository.UserRepository, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var admins int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
		return err
	}
	if admins > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:        cfg.AdminEmail,
		Name:         cfg.AdminName,
		PasswordHash: string(hashed),
		Role:         models.RoleAdmin,
	}
	if err := userRepo.Create(admin); err != nil {
		return err
	}

	log.Printf("Seeded admin user %s", cfg.AdminEmail)
	return nil
}
