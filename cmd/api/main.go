package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pharma-backoffice/internal/core/auth"
	"pharma-backoffice/internal/core/config"
	"pharma-backoffice/internal/core/database"
	"pharma-backoffice/internal/core/logger"
	"pharma-backoffice/internal/core/server"
	"pharma-backoffice/internal/repo"
	"pharma-backoffice/internal/transport/http/router"
)

// 远端函数服务：users 的 source of truth，库用 db.*（postgres / mysql）
func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		Log:                log,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}

	version := repo.SchemaVersion
	if cfg.DB.SchemaVersion > 0 {
		version = cfg.DB.SchemaVersion
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := repo.Open(ctx, db, version)
	cancel()
	if err != nil {
		log.Fatal("store open", zap.Error(err))
	}
	defer func() { _ = store.Close() }()
	log.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.Int("schema", store.Version()))

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL(),
	}
	r := router.NewAPIEngine(log, store.Users(), jwter)

	srv := server.FromConfig(cfg.App.HTTP, r)
	baseURL := server.HumanURL(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	log.Info("function api starting",
		zap.String("addr", srv.Addr),
		zap.String("health", baseURL+"/health"),
		zap.String("manage_users", baseURL+"/functions/manage-users"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("function api start FAILED", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn("function api shutdown", zap.Error(err))
	}
	log.Info("function api stopped gracefully")
}
