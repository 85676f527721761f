package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/handler"
	"github.com/invigilo/invigilo-backend/internal/middleware"
	"github.com/invigilo/invigilo-backend/internal/response"
	"github.com/invigilo/invigilo-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Exam        *handler.ExamHandler
	Question    *handler.QuestionHandler
	Submission  *handler.SubmissionHandler
	CheatingLog *handler.CheatingLogHandler
	Violation   *handler.ViolationHandler
	Media       *handler.MediaHandler
	MonitorWS   *handler.MonitorWSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve uploaded evidence screenshots statically with aggressive caching (1 year).
	uploadsGroup := router.Group("/uploads")
	uploadsGroup.Use(middleware.CacheControl(31536000))
	{
		uploadsGroup.Static("/", cfg.UploadDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
	}

	// ─── 2. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.GET("/exams", handlers.Exam.ListAvailable)
		studentAPI.POST("/exams/:id/attempts", handlers.Exam.StartAttempt)
		studentAPI.GET("/exams/:id/cheating-log", handlers.CheatingLog.GetOwn)

		studentAPI.POST("/submissions", handlers.Submission.Create)
		studentAPI.GET("/submissions", handlers.Submission.ListOwn)

		studentAPI.POST("/cheating-logs", handlers.CheatingLog.Save)
		studentAPI.POST("/violations", handlers.Violation.Report)
		studentAPI.POST("/screenshots", handlers.Media.Upload)
	}

	// ─── 3. Teacher Group (JWT) ────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(middleware.RequireTeacherJWT(authService))
	{
		teacherAPI.POST("/exams", handlers.Exam.Create)
		teacherAPI.GET("/exams", handlers.Exam.ListOwn)
		teacherAPI.PUT("/exams/:id", handlers.Exam.Update)
		teacherAPI.DELETE("/exams/:id", handlers.Exam.Delete)

		teacherAPI.POST("/exams/:id/questions", handlers.Question.Add)
		teacherAPI.GET("/exams/:id/questions", handlers.Question.List)
		teacherAPI.DELETE("/exams/:id/questions/:question_id", handlers.Question.Delete)

		teacherAPI.GET("/exams/:id/submissions", handlers.Submission.ListByExam)
		teacherAPI.GET("/exams/:id/cheating-logs", handlers.CheatingLog.ListByExam)

		teacherAPI.POST("/submissions/:id/approve-cheating-logs", handlers.Submission.ApproveCheatingLogs)
		teacherAPI.POST("/submissions/:id/approve-failure-reason", handlers.Submission.ApproveFailureReason)
	}

	// ─── 4. Shared (any role) ──────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(authService))
	{
		api.GET("/submissions/:id", handlers.Submission.GetByID)
	}

	// ─── 5. WebSocket Group (query-token auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/teacher/exams/:id/monitor", handlers.MonitorWS.MonitorExam)
	}

	return router
}
