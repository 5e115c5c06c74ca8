package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"onlearn-learner/config"
	httpDelivery "onlearn-learner/internal/delivery/http"
	"onlearn-learner/internal/domain"
	"onlearn-learner/internal/repository"
	"onlearn-learner/internal/usecase"
	"onlearn-learner/pkg/logging"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: cfg.Log.File,
		Level:    cfg.Log.Level,
		Env:      cfg.Env,
		AppID:    cfg.AppID,
	})
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to databases
	db, err := config.ConnectDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			logger.Warn("failed to close databases", zap.Error(err))
		}
	}()

	// Auto migrate
	if err := config.AutoMigrate(db.PG); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// Initialize repositories
	lms := repository.NewLMSClient(cfg.LMS.APIURL, cfg.LMS.APITimeout)
	var (
		snapshotRepo domain.SnapshotRepository
		activityRepo domain.ActivityRepository
	)
	if db.PG != nil {
		snapshotRepo = repository.NewSnapshotRepository(db.PG)
	}
	if db.Mongo != nil {
		activityRepo = repository.NewActivityRepository(db.Mongo)
	}

	// Sessions
	sessions := usecase.NewSessionStore(cfg.SessionIdleTimeout, logger)
	sweeper, err := sessions.StartSweeper(cfg.SessionSweepSpec)
	if err != nil {
		return err
	}
	defer func() {
		<-sweeper.Stop().Done()
		sessions.Close()
	}()

	// Initialize usecases
	reconciler := usecase.NewReconciler(lms, cfg.UploadsURL, logger)
	authUsecase := usecase.NewAuthUsecase(lms, logger)
	courseViewUsecase := usecase.NewCourseViewUsecase(lms, reconciler, sessions, snapshotRepo, activityRepo,
		usecase.CourseViewConfig{QuietWindow: cfg.ProgressDebounce}, logger)
	dashboardUsecase := usecase.NewDashboardUsecase(lms, activityRepo, logger)

	// Initialize handlers and router
	handler := httpDelivery.NewHandler(authUsecase, courseViewUsecase, dashboardUsecase)
	router := httpDelivery.InitRouter(handler, httpDelivery.RouterConfig{
		LoginPath: cfg.LoginPath,
		JWTSecret: cfg.JWTSecret,
		Logger:    logger,
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           corsHandler.Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server running",
			zap.Int("port", cfg.Port),
			zap.String("lms.api_url", cfg.LMS.APIURL),
			zap.Strings("cors.origins", cfg.Origins()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
