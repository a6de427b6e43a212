// @title PetPal API
// @version 1.0
// @description Mascotas, diario, fotos y trackers de cuidado con acceso delegado.
// @BasePath /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mailadapter "petpal/internal/adapters/mail"
	"petpal/internal/config"
	"petpal/internal/platform/logger"
	"petpal/internal/router"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "petpal",
	Short:         "PetPal: historia de cuidado de mascotas",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Levanta la API HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Aplica el schema SQL y los datos de especies",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

var mailWorkerCmd = &cobra.Command{
	Use:   "mail-worker",
	Short: "Consume la cola de mails y los envía por SMTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMailWorker(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, mailWorkerCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
	})
	return cfg, log, nil
}

func syncLogger(log logger.Logger) {
	if z, ok := log.(*logger.ZapLogger); ok {
		_ = z.Sync()
	}
}

func runServe(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer syncLogger(log)

	backends, err := router.OpenBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Warn("closing backends", map[string]any{"error": err})
		}
	}()

	h, err := router.NewRouter(backends.Options(cfg, log))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "base_url": cfg.BaseURL})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runMigrate(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer syncLogger(log)

	if cfg.DB.Driver == "memory" {
		log.Info("storage is memory, nothing to migrate", nil)
		return nil
	}
	db, err := router.OpenDB(ctx, cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("schema up to date", map[string]any{"driver": cfg.DB.Driver})
	return nil
}

func runMailWorker(ctx context.Context) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer syncLogger(log)

	url := strings.TrimSpace(cfg.Mail.RabbitMQURL)
	if url == "" {
		return errors.New("mail-worker: RABBITMQ_URL is required")
	}
	sender, err := router.NewSMTPSender(cfg.Mail)
	if err != nil {
		return err
	}
	consumer, err := mailadapter.NewConsumer(url, sender, log)
	if err != nil {
		return err
	}
	log.Info("mail worker started", map[string]any{"queue": mailadapter.QueueName})
	return consumer.Run(ctx)
}
