package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/automaton-risk/internal/config"
	"github.com/bryanwahyu/automaton-risk/internal/infra/httpserver"
	"github.com/bryanwahyu/automaton-risk/internal/logging"
	"github.com/bryanwahyu/automaton-risk/internal/middleware"
	"github.com/bryanwahyu/automaton-risk/migrations"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	root := &cobra.Command{
		Use:          "riskmatrix",
		Short:        "Questionnaire risk and control assessment service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&path, "config", "c", path, "path to config.yaml (env CONFIG_PATH)")

	root.AddCommand(serveCommand(&path), statsCommand(&path), migrateCommand(&path))
	return root
}

func loadConfig(path string) (*config.Config, *logging.Logger) {
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger, err := logging.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	return cfg, logger
}

func serveCommand(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := loadConfig(*path)
			defer logger.Sync()

			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			limiter := middleware.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSecond)
			defer limiter.Stop()

			handler := httpserver.NewRouter(a.assess, a.stats, httpserver.Options{
				APIKeys:        cfg.Auth.APIKeys,
				AllowedOrigins: cfg.CORS.AllowedOrigins,
				RateLimiter:    limiter,
				Metrics:        a.metrics,
				MetricsHandler: a.metrics.Handler(),
				HealthCheckers: a.health,
				Log:            logger,
			})

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      handler,
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// run server
			errc := make(chan error, 1)
			go func() {
				logger.Info("server listening", "addr", addr, "driver", cfg.Database.Driver, "provider", cfg.Analysis.Provider)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errc <- err
				}
			}()

			// graceful shutdown
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case <-stop:
			case err := <-errc:
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutting down server")

			ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx2); err != nil {
				logger.Warn("shutdown error", "error", err)
			}
			return nil
		},
	}
}

func statsCommand(path *string) *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print risk level statistics as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := loadConfig(*path)
			defer logger.Sync()

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.stats.Summarize(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "limit to one project")
	return cmd
}

func migrateCommand(path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := loadConfig(*path)
			defer logger.Sync()

			if cfg.Database.Driver == config.DriverMemory {
				logger.Info("memory driver has no schema")
				return nil
			}
			db, err := connectSQL(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := migrations.Apply(cmd.Context(), db, cfg.Database.Driver)
			if err != nil {
				return err
			}
			logger.Info("schema applied", "driver", cfg.Database.Driver, "statements", n)
			return nil
		},
	}
}
