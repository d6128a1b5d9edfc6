// Package main initializes and starts the vault API server, setting up
// configuration, logging, the database, repositories, services and handlers.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/atinyakov/safedrive/internal/config"
	"github.com/atinyakov/safedrive/internal/db"
	"github.com/atinyakov/safedrive/internal/logger"
	"github.com/atinyakov/safedrive/internal/ratelimit"
	"github.com/atinyakov/safedrive/internal/repository"
	"github.com/atinyakov/safedrive/internal/server/handler/http"
	"github.com/atinyakov/safedrive/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file and environment configuration.
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Purge soft-deleted rows past the retention period.
	db.StartSoftDeleteCleaner(ctx, postgresDB, time.Hour, options.Retention, zapLogger)

	if err := os.MkdirAll(options.UploadDir, 0o700); err != nil {
		zapLogger.Fatal("cannot create upload dir", zap.Error(err))
	}

	cipher, err := service.NewCipher(options.EncryptionKey)
	if err != nil {
		zapLogger.Fatal("cannot init credential cipher", zap.Error(err))
	}

	// Initialize business-logic services over their repositories.
	tokens := service.NewTokenIssuer(options.JWTSecret, options.TokenTTL)
	authService := service.NewAuthService(repository.NewPostgresUserRepository(postgresDB), tokens)
	fileService := service.NewFileService(repository.NewPostgresFileRepository(postgresDB), options.UploadDir, options.MaxUploadBytes)
	noteService := service.NewNoteService(repository.NewPostgresNoteRepository(postgresDB))
	credentialService := service.NewCredentialService(repository.NewPostgresCredentialRepository(postgresDB), cipher)

	limiter := newRevealLimiter(options, zapLogger)

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:        &http.AuthHandler{AuthService: authService, Log: zapLogger},
		Files:       &http.FileHandler{Service: fileService, MaxBytes: options.MaxUploadBytes, Log: zapLogger},
		Notes:       &http.NoteHandler{Service: noteService, Log: zapLogger},
		Credentials: &http.CredentialHandler{Service: credentialService, Limiter: limiter, Log: zapLogger},
	}, tokens, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Port), zap.Bool("tls", options.TLSCert != ""))
	if options.TLSCert != "" {
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

// newRevealLimiter returns the password reveal limiter: redis when an
// address is configured and reachable, process memory otherwise, nil when
// the limit is disabled.
func newRevealLimiter(options *config.Options, log *zap.Logger) ratelimit.Limiter {
	if options.RevealPerMinute == 0 {
		return nil
	}
	if options.RedisAddr != "" {
		rl, err := ratelimit.NewRedisLimiter(&redis.Options{Addr: options.RedisAddr}, "safedrive:reveal:", options.RevealPerMinute, time.Minute)
		if err == nil {
			log.Info("reveal limit shared through redis", zap.String("addr", options.RedisAddr))
			return rl
		}
		log.Warn("redis unavailable, limiting reveals in memory", zap.Error(err))
	}
	return ratelimit.NewMemoryLimiter(options.RevealPerMinute, time.Minute)
}
