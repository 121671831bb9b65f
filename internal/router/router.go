package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepdeck/prepdeck-backend/internal/config"
	"github.com/prepdeck/prepdeck-backend/internal/handler"
	"github.com/prepdeck/prepdeck-backend/internal/middleware"
	"github.com/prepdeck/prepdeck-backend/internal/response"
	"github.com/prepdeck/prepdeck-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth          *handler.AuthHandler
	StudentPortal *handler.StudentPortalHandler
	Topic         *handler.TopicHandler
	Question      *handler.QuestionHandler
	Test          *handler.TestHandler
	Media         *handler.MediaHandler
	WS            *handler.WSHandler
	Billing       *handler.BillingHandler
	Dashboard     *handler.DashboardHandler
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

	// Serve uploaded media files statically with aggressive caching (1 year).
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
		auth.POST("/student/register", handlers.Auth.StudentRegister)
		auth.POST("/student/login", handlers.Auth.StudentLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/student/logout", middleware.RequireStudentJWT(authService), handlers.Auth.StudentLogout)
		auth.GET("/student/me", middleware.RequireStudentJWT(authService), handlers.Auth.GetStudentProfile)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/portal", handlers.StudentPortal.Portal)
		studentAPI.POST("/tests/:test_id/attempts", handlers.StudentPortal.Start)
		studentAPI.GET("/attempts", handlers.StudentPortal.History)
		studentAPI.GET("/attempts/:attempt_id/paper", handlers.StudentPortal.Paper)
		studentAPI.GET("/attempts/:attempt_id/state", handlers.StudentPortal.State)
		studentAPI.POST("/attempts/:attempt_id/answers", handlers.StudentPortal.Answer)
		studentAPI.POST("/attempts/:attempt_id/navigate", handlers.StudentPortal.Navigate)
		studentAPI.POST("/attempts/:attempt_id/submit", handlers.StudentPortal.Submit)
		studentAPI.POST("/attempts/:attempt_id/abandon", handlers.StudentPortal.Abandon)
		studentAPI.GET("/attempts/:attempt_id/result", handlers.StudentPortal.Result)

		// Billing
		studentAPI.GET("/billing/plans", handlers.Billing.Plans)
		studentAPI.POST("/billing/orders", handlers.Billing.CreateOrder)
		studentAPI.POST("/billing/verify", handlers.Billing.VerifyPayment)
	}

	// ─── 3. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Media upload
		adminAPI.POST("/media/upload", handlers.Media.UploadMedia)

		// Topic management
		adminAPI.GET("/topics", handlers.Topic.List)
		adminAPI.POST("/topics", handlers.Topic.Create)
		adminAPI.PUT("/topics/:id", handlers.Topic.Update)
		adminAPI.DELETE("/topics/:id", handlers.Topic.Delete)

		// Question management
		adminAPI.GET("/topics/:id/questions", handlers.Question.ListByTopic)
		adminAPI.POST("/topics/:id/questions/import", handlers.Question.ImportCSV)
		adminAPI.POST("/questions", handlers.Question.Create)
		adminAPI.POST("/questions/generate", handlers.Question.Generate)
		adminAPI.GET("/questions/:id", handlers.Question.Get)
		adminAPI.PUT("/questions/:id", handlers.Question.Update)
		adminAPI.DELETE("/questions/:id", handlers.Question.Delete)

		// Test management
		adminAPI.GET("/tests", handlers.Test.List)
		adminAPI.POST("/tests", handlers.Test.Create)
		adminAPI.GET("/tests/:id", handlers.Test.Get)
		adminAPI.PUT("/tests/:id", handlers.Test.Update)
		adminAPI.DELETE("/tests/:id", handlers.Test.Delete)
		adminAPI.PUT("/tests/:id/questions", handlers.Test.SetQuestions)
		adminAPI.POST("/tests/:id/publish", handlers.Test.Publish)
		adminAPI.POST("/tests/:id/archive", handlers.Test.Archive)
		adminAPI.GET("/tests/:id/results", handlers.Test.Results)

		// Dashboard
		adminAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)
	}

	return router
}
