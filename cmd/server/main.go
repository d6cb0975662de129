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

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/nguyenvh/custodesk/internal/api"
	"github.com/nguyenvh/custodesk/internal/app"
	"github.com/nguyenvh/custodesk/internal/app/schedule"
	iauth "github.com/nguyenvh/custodesk/internal/auth"
	"github.com/nguyenvh/custodesk/internal/database"
	"github.com/nguyenvh/custodesk/internal/notifications"
	"github.com/nguyenvh/custodesk/internal/push"
	"github.com/nguyenvh/custodesk/internal/reminders"
	"github.com/nguyenvh/custodesk/internal/services"
	"github.com/nguyenvh/custodesk/pkg/logger"
	"github.com/nguyenvh/custodesk/pkg/mail"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("custodesk-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := database.Open(cfg.DatabaseSettings())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeDatabase(db, log)

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	jwtService, err := iauth.NewJWTService(cfg.JWTConfig())
	if err != nil {
		return fmt.Errorf("initialise jwt service: %w", err)
	}

	provider, err := iauth.NewLocalProvider(db, cfg.LocalConfig())
	if err != nil {
		return fmt.Errorf("initialise auth provider: %w", err)
	}

	mailer, err := mail.NewSMTPMailer(cfg.SMTPSettings())
	if err != nil {
		return fmt.Errorf("initialise mailer: %w", err)
	}
	if !cfg.Email.SMTP.Enabled {
		log.Warn("smtp disabled; reminder emails will be skipped")
	}

	gateway, err := push.NewGateway(db, cfg.PushSettings())
	if err != nil {
		return fmt.Errorf("initialise push gateway: %w", err)
	}

	hub := notifications.NewHub()

	eventSvc, err := services.NewSystemEventService(db)
	if err != nil {
		return fmt.Errorf("initialise system event service: %w", err)
	}

	dispatcher, err := reminders.NewDispatcher(db, mailer, gateway, eventSvc,
		reminders.WithBroadcaster(hub))
	if err != nil {
		return fmt.Errorf("initialise dispatcher: %w", err)
	}

	staffSvc, err := services.NewStaffService(db)
	if err != nil {
		return fmt.Errorf("initialise staff service: %w", err)
	}

	reminderSvc, err := services.NewReminderService(db, dispatcher, staffSvc)
	if err != nil {
		return fmt.Errorf("initialise reminder service: %w", err)
	}

	transactionSvc, err := services.NewTransactionService(db, staffSvc, dispatcher)
	if err != nil {
		return fmt.Errorf("initialise transaction service: %w", err)
	}

	notificationSvc, err := services.NewNotificationService(db, hub)
	if err != nil {
		return fmt.Errorf("initialise notification service: %w", err)
	}

	runner, err := schedule.NewRunner(reminderSvc, schedule.WithSchedule(cfg.Reminders.Schedule))
	if err != nil {
		return fmt.Errorf("initialise reminder schedule: %w", err)
	}
	if err := runner.Start(); err != nil {
		return fmt.Errorf("start reminder schedule: %w", err)
	}
	defer func() {
		stopCtx := runner.Stop()
		select {
		case <-stopCtx.Done():
		case <-time.After(shutdownTimeout):
			log.Warn("reminder schedule did not stop in time")
		}
	}()

	router, err := api.NewRouter(api.Dependencies{
		JWT:            jwtService,
		Provider:       provider,
		Staff:          staffSvc,
		Reminders:      reminderSvc,
		Transactions:   transactionSvc,
		Notifications:  notificationSvc,
		Events:         eventSvc,
		Hub:            hub,
		Push:           gateway,
		VAPIDPublicKey: cfg.Push.VAPIDPublicKey,
	})
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

func loadApplicationConfig(path string) (*app.Config, error) {
	if path == "" {
		return app.LoadConfig()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config path %q: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("config path %q must be a directory", path)
	}
	return app.LoadConfig(path)
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable during shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
