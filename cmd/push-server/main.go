// cmd/push-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"matchpoint-push/internal/common/config"
	"matchpoint-push/internal/common/database"
	"matchpoint-push/internal/common/errors"
	"matchpoint-push/internal/common/fcm"
	"matchpoint-push/internal/common/httpclient"
	"matchpoint-push/internal/common/logger"
	"matchpoint-push/internal/common/observability"
	"matchpoint-push/internal/dispatch"
	"matchpoint-push/internal/handlers/credentialselftest"
	"matchpoint-push/internal/handlers/reminderscan"
	"matchpoint-push/internal/handlers/sendnotification"
	"matchpoint-push/internal/reminder"
	"matchpoint-push/internal/store"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting push server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("push-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Stores ---
	tokenRepo := store.NewDeviceTokenRepository(pg.GetDB(), log)
	reservationRepo := store.NewReservationRepository(pg.GetDB(), log)

	// --- Optional Redis token cache ---
	var tokenSource dispatch.TokenSource = tokenRepo
	if cfg.Database.Redis.Enabled {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redisClient, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		zapLog.Info("Redis connected successfully")

		ttl := time.Duration(cfg.Database.Redis.TokenTTL) * time.Second
		tokenSource = store.NewCachedTokenLister(tokenRepo, redisClient.Client, ttl, log)
	}

	// --- FCM pipeline ---
	httpClient := httpclient.NewClient(config.GetDuration(cfg.FCM.Timeout))
	exchanger := fcm.NewExchanger(cfg.FCM, httpClient, log)
	tokenCache := fcm.NewTokenCache(exchanger, log)
	fcmClient := fcm.NewClient(cfg.FCM, httpClient, log)

	dispatcher := dispatch.NewDispatcher(cfg.FCM, tokenSource, tokenCache, fcmClient, log)
	scanner := reminder.NewScanner(cfg.Reminder, reservationRepo, dispatcher, log)

	errHandler := errors.NewErrorHandler(log)

	// --- HTTP surface ---
	mux := http.NewServeMux()
	mux.Handle("POST /api/notifications/send", sendnotification.NewHandler(dispatcher, errHandler, obs, log))
	mux.Handle("POST /api/reminders/scan", reminderscan.NewHandler(scanner, errHandler, obs, log))
	mux.Handle("POST /api/credentials/selftest", credentialselftest.NewHandler(cfg.FCM, tokenCache, errHandler, obs, log))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := pg.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  status,
			"service": cfg.App.Name,
			"version": cfg.App.Version,
		})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}

	zapLog.Info("Push server stopped")
}
