package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"todo-backend/internal/ai"
	"todo-backend/internal/cache"
	"todo-backend/internal/config"
	"todo-backend/internal/database"
	"todo-backend/internal/handlers"
	"todo-backend/internal/middleware"
	"todo-backend/internal/monitoring"
	"todo-backend/internal/repositories"
	"todo-backend/internal/services"
)

// Application holds all application dependencies and state.
type Application struct {
	Config *config.Config
	Pool   *database.DatabasePool
	DB     *gorm.DB
	Cache  cache.Cache
	Redis  *redis.Client
	Router *gin.Engine
	Server *http.Server

	// Services
	TokenService    *services.TokenService
	AuthService     services.AuthService
	RegisterService services.RegisterService
	TodoService     services.TodoService
	AIService       *ai.Service
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.setupRoutes()
	app.startServer()
}

func initializeApplication(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	log.Printf("Initializing todo backend (environment: %s)", cfg.Server.Environment)

	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}
	pool, err := database.NewDatabasePool(&database.PoolConfig{
		DSN:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		LogLevel:        logLevel,
	})
	if err != nil {
		return nil, err
	}
	app.Pool = pool
	app.DB = pool.DB

	if err := repositories.RunMigrations(app.DB, nil); err != nil {
		return nil, err
	}
	log.Println("Database ready")

	if cfg.RedisEnabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("Redis unavailable: %v (falling back to in-process cache and limits)", err)
		} else {
			app.Redis = client
			log.Println("Redis connected")
		}
	}

	if app.Redis != nil {
		app.Cache = cache.NewRedisCache(app.Redis)
	} else {
		app.Cache = cache.NewMemoryCache()
	}

	app.TokenService = services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	app.AuthService = services.NewAuthService()
	app.RegisterService = services.NewRegisterService()
	app.TodoService = services.NewCachedTodoService(services.NewTodoService(), app.Cache)
	app.AIService = ai.NewService(cfg.AI.OpenAIAPIKey, cfg.AI.Model, cfg.AI.RequestTimeout)

	if app.AIService.FallbackMode() {
		log.Println("No OPENAI_API_KEY configured, task breakdown runs in fallback mode")
	}

	log.Println("All services initialized")
	return app, nil
}

func (app *Application) setupRoutes() {
	r := gin.New()

	// Global middleware stack (order matters).
	r.Use(gin.Logger())
	r.Use(middleware.RecoveryWithLog())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeader())
	r.Use(monitoring.MetricsMiddleware())

	globalLimit := rate.Limit(float64(app.Config.RateLimit.RequestsPerMin) / 60.0)
	r.Use(middleware.RateLimiter(globalLimit, app.Config.RateLimit.BurstSize))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", app.healthHandler())
	r.GET("/ready", app.readinessHandler())
	r.GET("/metrics", monitoring.MetricsHandler())

	// Register and login share a tighter per-address budget than the rest
	// of the API. With Redis the budget is shared across instances.
	authLimiter := app.authRateLimiter()

	authHandler := handlers.NewAuthHandler(app.DB, app.RegisterService, app.AuthService, app.TokenService)
	authRoutes := r.Group("/auth")
	authRoutes.Use(authLimiter)
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	todoHandler := handlers.NewTodoHandler(app.DB, app.TodoService)
	todoRoutes := r.Group("/todos")
	todoRoutes.Use(middleware.RequireAuth(app.DB, app.TokenService))
	{
		todoRoutes.GET("/", todoHandler.List)
		todoRoutes.POST("/", todoHandler.Create)
		todoRoutes.PATCH("/:id", todoHandler.Update)
		todoRoutes.DELETE("/:id", todoHandler.Delete)
		todoRoutes.POST("/reorder", todoHandler.Reorder)
	}

	aiHandler := handlers.NewAIHandler(app.AIService)
	aiRoutes := r.Group("/ai")
	{
		aiRoutes.POST("/breakdown", aiHandler.Breakdown)
	}

	app.Router = r
}

func (app *Application) authRateLimiter() gin.HandlerFunc {
	perMin := app.Config.RateLimit.AuthRequestsPerMin

	if app.Redis != nil {
		limiter := middleware.NewDistributedRateLimiter(app.Redis)
		return limiter.CreateMiddleware("auth", &middleware.RateLimit{
			Rate:    perMin,
			Window:  time.Minute,
			KeyFunc: middleware.IPKeyFunc,
		})
	}

	return middleware.RateLimiter(rate.Limit(float64(perMin)/60.0), perMin)
}

func (app *Application) startServer() {
	addr := app.Config.GetServerAddr()

	app.Server = &http.Server{
		Addr:         addr,
		Handler:      app.Router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}

		app.cleanup()
		log.Println("Server stopped")
	}()

	log.Printf("Server starting on %s", addr)
	if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed to start: %v", err)
	}
}

func (app *Application) cleanup() {
	if app.Cache != nil {
		if err := app.Cache.Close(); err != nil {
			log.Printf("Error closing cache: %v", err)
		}
	}

	// The redis cache closes the shared client; only close it here when the
	// cache did not own it.
	if app.Redis != nil {
		if _, ok := app.Cache.(*cache.RedisCache); !ok {
			if err := app.Redis.Close(); err != nil {
				log.Printf("Error closing Redis: %v", err)
			}
		}
	}

	if app.Pool != nil {
		if err := app.Pool.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}

func (app *Application) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		health := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "todo-backend",
		}

		if err := app.Pool.Health(); err != nil {
			health["status"] = "unhealthy"
			health["database"] = "down"
			c.JSON(http.StatusServiceUnavailable, health)
			return
		}
		health["database"] = "up"

		if app.Redis != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := app.Redis.Ping(ctx).Err(); err != nil {
				health["redis"] = "down"
			} else {
				health["redis"] = "up"
			}
		}

		c.JSON(http.StatusOK, health)
	}
}

func (app *Application) readinessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := app.Pool.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"reason": "database not ready",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ready": true})
	}
}
