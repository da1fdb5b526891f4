package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/passdeck/passdeck/internal/campaign"
	"github.com/passdeck/passdeck/internal/config"
	"github.com/passdeck/passdeck/internal/db"
	relayhttp "github.com/passdeck/passdeck/internal/http"
	"github.com/passdeck/passdeck/internal/logging"
	"github.com/passdeck/passdeck/internal/models"
	"github.com/passdeck/passdeck/internal/notify"
	"github.com/passdeck/passdeck/internal/passconfig"
	"github.com/passdeck/passdeck/internal/passes"
	"github.com/passdeck/passdeck/internal/scheduler"
	"github.com/passdeck/passdeck/internal/security"
	internalsettings "github.com/passdeck/passdeck/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(ctx, configPath)
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the pass service: storage, sweepers and the HTTP API.
func RunServer(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(ctx, configPath)
	if errLoad != nil {
		return errLoad
	}
	logging.Setup(cfg.Log)

	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := internalsettings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return errRefresh
	}
	if errSeed := ensureDefaults(ctx, conn); errSeed != nil {
		return errSeed
	}

	gateway := buildGateway(cfg)
	passSvc := passes.NewService(conn, gateway)
	resolver := passconfig.NewResolver(conn)
	sched := scheduler.NewScheduler(conn, passSvc)
	trigger := campaign.NewTrigger(conn, gateway)

	sched.Start(ctx)
	trigger.Start(ctx)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	relayhttp.RegisterRoutes(engine, relayhttp.RouterDeps{
		DB:        conn,
		JWTSecret: cfg.JWTSecret,
		Resolver:  resolver,
		Scheduler: sched,
		Passes:    passSvc,
		Campaign:  trigger,
	})

	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("passdeck listening on %s", cfg.Listen)
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errCh <- errServe
		}
	}()

	select {
	case <-ctx.Done():
	case errServe := <-errCh:
		return errServe
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return fmt.Errorf("app: shutdown: %w", errShutdown)
	}
	log.Info("passdeck stopped")
	return nil
}

// buildGateway combines the log gateway with the optional Redis publisher.
func buildGateway(cfg *config.Config) notify.Gateway {
	if cfg.Redis.Addr == "" {
		return notify.NewLogGateway()
	}
	redisGateway := notify.NewRedisGateway(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	return notify.NewMultiGateway(notify.NewLogGateway(), redisGateway)
}

// ensureDefaults seeds the rows the engine depends on: a bootstrap admin and
// the system default email templates the campaign sweep falls back to.
func ensureDefaults(ctx context.Context, conn *gorm.DB) error {
	var adminCount int64
	if errCount := conn.WithContext(ctx).Model(&models.Admin{}).Count(&adminCount).Error; errCount != nil {
		return errCount
	}
	if adminCount == 0 {
		password, errGen := generatePassword()
		if errGen != nil {
			return errGen
		}
		hashed, errHash := security.HashPassword(password)
		if errHash != nil {
			return errHash
		}
		admin := models.Admin{Username: "admin", Password: hashed, Active: true}
		if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
			return errCreate
		}
		log.Warnf("bootstrap admin created (username=admin password=%s) - change it", password)
	}

	for _, kind := range []string{models.TemplateWelcome, models.TemplateReminder} {
		var count int64
		if errCount := conn.WithContext(ctx).Model(&models.EmailTemplate{}).
			Where("kind = ? AND is_default = ?", kind, true).
			Count(&count).Error; errCount != nil {
			return errCount
		}
		if count > 0 {
			continue
		}
		template := models.EmailTemplate{
			Kind:      kind,
			Name:      "Default " + kind,
			Subject:   defaultSubject(kind),
			IsDefault: true,
			Active:    true,
		}
		if errCreate := conn.WithContext(ctx).Create(&template).Error; errCreate != nil {
			return errCreate
		}
	}
	return nil
}

func defaultSubject(kind string) string {
	if kind == models.TemplateReminder {
		return "Your pass is about to expire"
	}
	return "Your pass is ready"
}

// generatePassword creates a random bootstrap password.
func generatePassword() (string, error) {
	secret := make([]byte, 12)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("app: generate password: %w", err)
	}
	return hex.EncodeToString(secret), nil
}
