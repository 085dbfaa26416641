// Package server contains the HTTP and WebSocket handlers for the threads API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	_ "threads/docs" // swagger docs
	"threads/internal/bootstrap"
	"threads/internal/cache"
	"threads/internal/config"
	"threads/internal/featureflags"
	"threads/internal/mailer"
	"threads/internal/middleware"
	"threads/internal/models"
	"threads/internal/notifications"
	"threads/internal/observability"
	"threads/internal/repository"
	"threads/internal/service"
	"threads/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	tokens         *service.TokenService
	uploads        *storage.LocalStore
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	rateLimiter    *middleware.RateLimiter
	authService    *service.AuthService
	followService  *service.FollowService
	postService    *service.PostService
	commentService *service.CommentService
	userService    *service.UserService
}

// NewServer connects to the configured database and Redis, then builds the server.
// Redis is optional: without it the API runs with caching, rate limiting and
// cross-instance notifications disabled.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{ApplySchema: true, WithRedis: true})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, errors.New("server requires a database")
	}

	userRepo := repository.NewUserRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	audit := observability.NewAuditLogger(observability.GlobalLogger)
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)
	uploads := storage.NewLocalStore(cfg.UploadDir, int64(cfg.MaxUploadMB)<<20)
	flags := featureflags.NewManager(cfg.FeatureFlags)
	userCache := cache.New(redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("threads-api"),
		tokens:         tokens,
		uploads:        uploads,
		featureFlags:   flags,
		rateLimiter:    middleware.NewRateLimiter(redisClient, cfg.Env),
	}

	if flags.EnabledForAnyone(featureflags.RealtimeNotifications) {
		s.hub = notifications.NewHub()
		s.notifier = notifications.NewNotifier(redisClient, s.hub)
	}

	s.authService = service.NewAuthService(userRepo, tokens, mailer.New(cfg, observability.GlobalLogger), audit,
		service.AuthConfig{FrontendURL: cfg.FrontendURL, DefaultAvatar: cfg.DefaultAvatar})
	s.followService = service.NewFollowService(followRepo, userRepo, s.notifier, audit)
	s.postService = service.NewPostService(postRepo, likeRepo, followRepo, userRepo, uploads, s.notifier, audit)
	s.commentService = service.NewCommentService(commentRepo, postRepo, userRepo, s.notifier, audit)
	s.userService = service.NewUserService(userRepo, followRepo, userCache, uploads, audit)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.Tracing())

	// Context Middleware to propagate Request ID and trace IDs
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.StructuredLogger())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// CORS runs before anything that can short-circuit so error responses carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Uploaded images are served from this API, so allow cross-origin embedding.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	if s.config.IsProduction() {
		app.Use(limiter.New(limiter.Config{
			Max:        100,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests, please try again later.",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Static("/"+storage.PublicPrefix, s.uploads.Dir(), fiber.Static{MaxAge: 3600})

	authRequired := middleware.AuthRequired(s.tokens)

	auth := app.Group("/auth")
	auth.Post("/register", s.rateLimiter.Handler(middleware.Limit{
		Name: "register", Max: 5, Window: 10 * time.Minute,
	}), s.Register)
	auth.Post("/login", s.rateLimiter.Handler(middleware.Limit{
		Name: "login", Max: s.config.RateLimitAuth, Window: 5 * time.Minute,
		Keys: []middleware.KeyFunc{middleware.ByClient, middleware.ByEmail},
	}), s.Login)
	auth.Post("/forgot-password", s.rateLimiter.Handler(middleware.Limit{
		Name: "forgot_password", Max: 3, Window: 15 * time.Minute,
		Keys: []middleware.KeyFunc{middleware.ByClient, middleware.ByEmail},
	}), s.ForgotPassword)
	auth.Post("/reset-password", s.ResetPassword)

	users := app.Group("/users")
	users.Get("/allUser", s.GetAllUsers)
	users.Get("/search", s.SearchUsers)
	users.Get("/username/:username", s.GetUserByUsername)
	users.Get("/me", authRequired, s.GetMyProfile)
	users.Get("/following", authRequired, s.GetFollowing)
	users.Get("/followers/:userId", authRequired, s.GetFollowers)
	users.Delete("/followers/:id", authRequired, s.RemoveFollowing)
	users.Post("/follow/:id", authRequired, s.ToggleFollow)
	users.Put("/:id", authRequired, s.UpdateProfile)

	posts := app.Group("/posts")
	posts.Get("/threads", s.GetPosts)
	posts.Get("/threads/:postId", s.GetPost)
	posts.Post("/threads", authRequired, s.CreatePost)
	posts.Get("/following", authRequired, s.GetFollowingFeed)
	// Specific /comments routes before the generic /:postId routes
	posts.Delete("/comments/:commentId", authRequired, s.DeleteComment)
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/:postId/comments", authRequired, s.CreateComment)
	posts.Post("/:postId/like", authRequired, s.LikePost)
	posts.Delete("/:postId/unlike", authRequired, s.UnlikePost)
	posts.Delete("/:postId", authRequired, s.DeletePost)

	follow := app.Group("/follow", authRequired)
	follow.Post("/follow", s.Follow)
	follow.Post("/unfollow", s.Unfollow)

	app.Get("/ws", s.WebsocketUpgrade, s.WebsocketHandler())
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "threads API",
		BodyLimit:    (s.config.MaxUploadMB + 1) << 20,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler renders errors that escaped a handler, including Fiber's own
// 404 and 405 errors, in the JSON error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code := models.CodeInternal
		switch {
		case fiberErr.Code == fiber.StatusNotFound:
			code = models.CodeNotFound
		case fiberErr.Code < fiber.StatusInternalServerError:
			code = models.CodeValidation
		}
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{Error: fiberErr.Message, Code: code})
	}

	observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional; only a configured but unreachable Redis fails readiness.
	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start wires realtime delivery and listens on the configured port.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.hub != nil && s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			observability.GlobalLogger.Warn("failed to start notification wiring", slog.String("error", err.Error()))
		}
	}

	observability.GlobalLogger.Info("Server starting", slog.String("port", s.config.Port), slog.String("env", s.config.Env))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.GlobalLogger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			observability.GlobalLogger.Error("error shutting down notification hub", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.GlobalLogger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.GlobalLogger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	observability.GlobalLogger.Info("Server shutdown complete")
	return nil
}
