package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dagbok-backend/internal/api"
	"github.com/dagbok-backend/internal/auth"
	"github.com/dagbok-backend/internal/config"
	"github.com/dagbok-backend/internal/llm"
	"github.com/dagbok-backend/internal/middleware"
	"github.com/dagbok-backend/internal/model"
	"github.com/dagbok-backend/internal/ratelimit"
	"github.com/dagbok-backend/internal/scheduler"
	"github.com/dagbok-backend/internal/service"
	"github.com/dagbok-backend/internal/storage"

	_ "github.com/dagbok-backend/docs" // swagger docs
)

// @title Dagbok API
// @version 1.0
// @description Daily notes backend with AI-assisted rewriting, per-user cost control, and cookie-based authentication.

// @contact.name API Support
// @contact.email support@dagbok.cloud

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter your JWT token with the `Bearer ` prefix, e.g. "Bearer eyJhbGci..."

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database
	log.Println("Connecting to database...")
	db, err := storage.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations
	log.Println("Running migrations...")
	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	userRepo := storage.NewUserRepository(db)
	tokenRepo := storage.NewTokenRepository(db)
	noteRepo := storage.NewNoteRepository(db)

	// Token codec and AI provider
	codec := auth.NewCodec(cfg.JWT.Secret)
	provider := llm.NewClient(cfg.OpenRouter)
	guard := llm.NewCostGuard(noteRepo, cfg.Cost.MonthlyLimitUSD)

	// Initialize services
	userService := service.NewUserService(userRepo, tokenRepo, codec, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	noteService := service.NewNoteService(userRepo, noteRepo, provider, guard)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(codec, userRepo)
	limiter := ratelimit.NewLimiter(cfg.RateLimit, func(r *http.Request) *model.Principal {
		if p := middleware.GetPrincipal(r.Context()); p != nil {
			return p
		}
		return authMiddleware.Peek(r)
	})

	// Start background sweeper for demo accounts and idle buckets
	ctx := context.Background()
	sweeper := scheduler.NewSweeper(userRepo, limiter.Cache(), cfg.Demo)
	log.Println("Starting sweeper...")
	if err := sweeper.Start(ctx); err != nil {
		log.Fatalf("Failed to start sweeper: %v", err)
	}

	// Initialize API handlers
	handler := api.NewHandler(
		userService,
		noteService,
		db,
		cfg.Cookie.Secure,
		cfg.JWT.AccessTTL,
		cfg.JWT.RefreshTTL,
		cfg.Demo.TTL,
	)

	// Setup router
	router := api.NewRouter(handler, authMiddleware, limiter, cfg.Server.AllowedOrigin)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Stop sweeper
	sweeper.Stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
