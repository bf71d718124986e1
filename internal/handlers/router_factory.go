package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/secure"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"studytrack/internal/config"
	"studytrack/internal/middleware"
	"studytrack/internal/observability"
	"studytrack/internal/serviceinterfaces"
	"studytrack/internal/services"
	"studytrack/internal/version"
)

// NewRouter creates the HTTP router with all middleware and routes wired up.
func NewRouter(
	cfg *config.Config,
	userService services.UserServiceInterface,
	feedbackService serviceinterfaces.FeedbackServiceInterface,
	logger *observability.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.ErrorRecoveryMiddleware(middleware.DefaultErrorRecoveryConfig()))

	// Structured request logging through the observability logger
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()
		fields := map[string]interface{}{
			"http.method":      c.Request.Method,
			"http.path":        c.Request.URL.Path,
			"http.status_code": statusCode,
			"http.latency_ms":  latency.Milliseconds(),
			"http.client_ip":   c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["http.error"] = c.Errors.String()
		}

		switch {
		case statusCode >= 500:
			logger.Error(c.Request.Context(), "HTTP request failed", nil, fields)
		case statusCode >= 400:
			logger.Warn(c.Request.Context(), "HTTP request warning", fields)
		default:
			logger.Info(c.Request.Context(), "HTTP request", fields)
		}
	})

	// Health check endpoint (defined before any middleware)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "studytrack"})
	})

	router.Use(observability.GinMiddlewareWithErrorHandling("studytrack-backend"))

	// Disable automatic redirection for trailing slashes, which is better for APIs
	router.RedirectTrailingSlash = false

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionOpts := sessions.Options{
		Path:     config.SessionPath,
		MaxAge:   int(config.SessionMaxAge.Seconds()),
		HttpOnly: config.SessionHTTPOnly,
		Secure:   config.SessionSecure,
	}
	if cfg.Server.Debug {
		sessionOpts.SameSite = http.SameSiteDefaultMode
	} else {
		sessionOpts.SameSite = http.SameSiteLaxMode
		sessionOpts.Secure = true
	}
	store.Options(sessionOpts)
	router.Use(sessions.Sessions(config.SessionName, store))

	secureConfig := secure.DefaultConfig()
	secureConfig.SSLRedirect = false
	secureConfig.ContentSecurityPolicy = config.DefaultCSP
	router.Use(secure.New(secureConfig))

	authHandler := NewAuthHandler(userService, cfg, logger)
	feedbackHandler := NewFeedbackHandler(feedbackService, userService, cfg, logger)

	v1 := router.Group("/v1")
	{
		v1.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"service":   "studytrack",
				"version":   version.Version,
				"commit":    version.Commit,
				"buildTime": version.BuildTime,
			})
		})

		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RequestValidationMiddleware(logger), authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/status", authHandler.Status)
			auth.GET("/check", middleware.RequireAuth(), authHandler.Check)
			auth.POST("/signup", middleware.RequestValidationMiddleware(logger), authHandler.Signup)
		}

		feedback := v1.Group("/feedback")
		{
			// Listing and stats work without a session; a session only
			// adds per-viewer upvote state.
			feedback.GET("", feedbackHandler.ListFeedback)
			feedback.GET("/stats", feedbackHandler.GetStats)

			feedback.POST("", middleware.RequireAuth(), middleware.RequestValidationMiddleware(logger), feedbackHandler.SubmitFeedback)
			feedback.GET("/has-new", middleware.RequireAuth(), feedbackHandler.HasNewFeedback)
			feedback.PUT("/mark-seen", middleware.RequireAuth(), feedbackHandler.MarkSeen)
			feedback.GET("/:id", feedbackHandler.GetFeedback)
			feedback.PUT("/:id/upvote", middleware.RequireAuth(), feedbackHandler.ToggleUpvote)
			feedback.DELETE("/:id", middleware.RequireAuth(), feedbackHandler.DeleteFeedback)
		}

		admin := v1.Group("/admin", middleware.RequireAdmin(userService))
		{
			admin.GET("/users", authHandler.ListUsers)
		}
	}

	// Automatic route listing at root path
	routeListing := NewRouteListingHandler("StudyTrack")
	routeListing.CollectRoutes(router)
	router.GET("/", func(c *gin.Context) {
		if c.Query("json") == "true" {
			routeListing.GetRouteListingJSON(c)
		} else {
			routeListing.GetRouteListingPage(c)
		}
	})

	return router
}
