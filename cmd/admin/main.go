package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
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
	"pharma-backoffice/internal/core/cache"
	"pharma-backoffice/internal/core/config"
	"pharma-backoffice/internal/core/database"
	"pharma-backoffice/internal/core/logger"
	"pharma-backoffice/internal/core/server"
	"pharma-backoffice/internal/feature/payment"
	"pharma-backoffice/internal/feature/shipping"
	"pharma-backoffice/internal/feature/user"
	"pharma-backoffice/internal/remote"
	"pharma-backoffice/internal/repo"
	"pharma-backoffice/internal/session"
	"pharma-backoffice/internal/transport/http/handler"
	"pharma-backoffice/internal/transport/http/router"
	"pharma-backoffice/pkg/utils"
)

func main() {
	hashPw := flag.String("hash-password", "", "print the bcrypt hash for operator.password_hash and exit")
	flag.Parse()
	if *hashPw != "" {
		h, err := utils.HashPassword(*hashPw)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	// 本地库（sqlite 默认），打不开直接退出
	store := mustOpenStore(cfg, log)
	defer func() { _ = store.Close() }()
	log.Info("local store ready", zap.String("driver", cfg.Local.Driver), zap.Int("schema", store.Version()))

	// redis 可选；没配就只在进程内缓存
	rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rc.Prefix = cfg.App.Name + ":"
	defer func() { _ = rc.Close() }()

	sessTTL := time.Duration(cfg.Redis.SessionTTL) * time.Minute
	var sess session.Store = session.NewMemoryStore(sessTTL)
	if rc.Enabled() {
		sess = session.NewRedisStore(rc.RDB, rc.Key("session:bearer"), sessTTL)
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL(),
	}

	// 用户：远端优先，失败回落本地
	retry := remote.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Remote.MaxAttempts
	remoteClient := remote.NewClient(remote.Options{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: time.Duration(cfg.Remote.TimeoutSec) * time.Second,
		Retry:   retry,
	}, session.Source{Store: sess})
	if !remoteClient.Configured() {
		log.Warn("remote.base_url not set, users are served from the local store only")
	}
	users := user.NewService(user.NewFallbackRepository(
		user.NewRemoteRepository(remoteClient),
		user.NewLocalRepository(store.Users()),
		log.Named("users"),
	))

	payments := payment.NewService(store.Transactions(), rc, 30*time.Second, log.Named("payments"))

	// 物流 OAuth
	sc := cfg.Shipping
	mgr := shipping.NewManager(shipping.Config{
		BaseURL:            sc.BaseURL,
		ClientID:           sc.ClientID,
		ClientSecret:       sc.ClientSecret,
		CallbackPath:       sc.CallbackPath,
		DefaultRedirectURI: sc.DefaultRedirectURI,
		Scopes:             sc.Scopes,
		State:              sc.State,
		Placeholder:        sc.PlaceholderToken,
		Timeout:            time.Duration(sc.TimeoutSec) * time.Second,
	}, store.Tokens(), shipping.WithLogger(log.Named("shipping")))

	job, err := shipping.NewRefreshJob(mgr, sc.RefreshSchedule)
	if err != nil {
		log.Fatal("shipping refresh schedule", zap.String("schedule", sc.RefreshSchedule), zap.Error(err))
	}
	job.Start()
	defer job.Stop()

	r := router.NewAdminEngine(router.AdminDeps{
		Log:      log,
		JWT:      jwter,
		Operator: cfg.Operator,
		Session:  sess,
		Users:    users,
		Payments: payments,
		Shipping: mgr,
		Callback: handler.ShippingCallback{
			M:          mgr,
			SuccessURL: sc.SuccessURL,
			ErrorURL:   sc.ErrorURL,
			Log:        log.Named("shipping"),
		},
		CallbackPath: sc.CallbackPath,
	})

	srv := server.FromConfig(cfg.App.Admin, r)
	baseURL := server.HumanURL(cfg.App.Admin.Host, cfg.App.Admin.Port)
	log.Info("admin api starting",
		zap.String("addr", srv.Addr),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.String("admin_v1", baseURL+"/admin/v1"),
	)

	// 异步启动；失败立即标红退出
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("admin api start FAILED", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("admin api shutdown", zap.Error(err))
	}
	log.Info("admin api stopped gracefully")
}

func mustOpenStore(cfg *config.Config, l *zap.Logger) *repo.Store {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.Local.Driver,
		DSN:                cfg.Local.DSN,
		Username:           cfg.Local.Username,
		Password:           cfg.Local.Password,
		MaxOpenConns:       cfg.Local.MaxOpenConns,
		MaxIdleConns:       cfg.Local.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.Local.ConnMaxLifetimeMin,
		LogLevel:           cfg.Local.LogLevel,
		Log:                l,
	})
	if err != nil {
		l.Fatal("local db open", zap.Error(err))
	}
	version := cfg.Local.SchemaVersion
	if version <= 0 {
		version = repo.SchemaVersion
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s, err := repo.Open(ctx, db, version)
	if err != nil {
		l.Fatal("local store open", zap.Error(err))
	}
	return s
}
