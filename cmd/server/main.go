package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"userhub/internal/auth"
	"userhub/internal/config"
	apphttp "userhub/internal/http"
	"userhub/internal/repository/sqlite"
	"userhub/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Auth.Secret == config.DefaultSecret {
		logger.Warn("running with the default signing secret; set USERHUB_AUTH_SECRET")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	codec, err := auth.NewTokenCodec(auth.TokenCodecConfig{
		Secret:     cfg.Auth.Secret,
		Algorithm:  cfg.Auth.Algorithm,
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
	})
	if err != nil {
		logger.Fatalf("setup token codec: %v", err)
	}

	hasher := auth.NewHasher(0)
	resolver := auth.NewResolver(userRepo)
	userService := service.NewUserService(userRepo, hasher, codec)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(userService, codec, resolver, logger, apphttp.HandlerConfig{
		AppName:     cfg.App.Name,
		AppVersion:  cfg.App.Version,
		Environment: cfg.App.Environment,
		APIPrefix:   cfg.App.APIPrefix,
		CORSEnabled: cfg.CORS.Enabled,
		CORSOrigins: cfg.CORS.Origins,
	})
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}
