package cmd

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

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/kendall-kelly/quickfix-api/config"
	"github.com/kendall-kelly/quickfix-api/database"
	"github.com/kendall-kelly/quickfix-api/dispatch"
	"github.com/kendall-kelly/quickfix-api/notify"
	"github.com/kendall-kelly/quickfix-api/routes"
	"github.com/kendall-kelly/quickfix-api/services"
	"github.com/kendall-kelly/quickfix-api/store"
)

const shutdownTimeout = 15 * time.Second

var autoMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("Starting QuickFix API server...")

	cfg, err := connect()
	if err != nil {
		return err
	}
	db := config.GetDB()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if autoMigrate {
		if err := database.MigrateUp(ctx, db); err != nil {
			return err
		}
	}

	notifier, closer, err := notify.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	outbox := notify.NewOutbox(notifier, cfg.NotifyQueueSize)
	outbox.Start()

	bookings := dispatch.NewService(store.NewGormStore(db), outbox, dispatch.Options{
		StrictTransitions: cfg.StrictTransitions,
	})

	images, err := services.NewImageService(ctx, cfg)
	if err != nil {
		// Photo upload answers 503 without storage
		log.Printf("Image storage disabled: %v", err)
	}

	deps := routes.Dependencies{Bookings: bookings, Images: images}
	if cfg.UsesAuth0() {
		deps.UserInfo = services.NewAuth0Service(cfg)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Server is running on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		log.Println("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := outbox.Close(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("drain notifications: %w", err))
	}
	if err := closer.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close notifiers: %w", err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Println("Server stopped")
	return errors.Join(errs...)
}
