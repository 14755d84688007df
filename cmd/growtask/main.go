package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/verdantops/growtask/internal/config"
	"github.com/verdantops/growtask/internal/database"
	"github.com/verdantops/growtask/internal/domain"
	"github.com/verdantops/growtask/internal/handler"
	"github.com/verdantops/growtask/internal/logger"
	"github.com/verdantops/growtask/internal/repository"
	"github.com/verdantops/growtask/internal/service"
)

func main() {
	app := &cli.App{
		Name:  "growtask",
		Usage: "Cultivation task workflow tracker",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:     "database-url",
				Aliases:  []string{"d"},
				Value:    config.DefaultDatabaseURL,
				Usage:    "PostgreSQL database URL",
				EnvVars:  []string{"DATABASE_URL"},
				Required: true,
			},
		},
		Before: func(c *cli.Context) error {
			logger.Setup(logger.ParseLevel(c.String("log-level")))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the web server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Value:   config.DefaultPort,
						Usage:   "HTTP server port",
						EnvVars: []string{"PORT"},
					},
				},
				Action: runServe,
			},
			{
				Name:  "check-overdue",
				Usage: "Report tasks past their due date for a site",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "site",
						Usage:    "Site ID to check",
						Required: true,
					},
				},
				Action: runCheckOverdue,
			},
		},
		Action: runServe,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func runServe(c *cli.Context) error {
	ctx := c.Context

	port := c.String("port")
	if port == "" {
		port = config.DefaultPort
	}
	databaseURL := c.String("database-url")

	db, err := database.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	h := handler.New(db.Pool())

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "server_addr", "http://localhost:"+port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-done:
		slog.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

func runCheckOverdue(c *cli.Context) error {
	ctx := c.Context
	databaseURL := c.String("database-url")
	siteID := c.String("site")

	db, err := database.New(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db.Pool()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	pool := db.Pool()
	workflow := service.NewWorkflowService(
		pool,
		repository.NewTaskRepository(pool),
		repository.NewStateHistoryRepository(pool),
		repository.NewDependencyRepository(pool),
		repository.NewWatcherRepository(pool),
		repository.NewTimeEntryRepository(pool),
		repository.NewComplianceRepository(pool),
		repository.NewUserRepository(pool),
		repository.NewSiteRepository(pool),
		domain.SystemClock(),
	)

	tasks, err := workflow.FindOverdueTasks(ctx, siteID)
	if err != nil {
		return fmt.Errorf("find overdue tasks: %w", err)
	}

	for _, t := range tasks {
		slog.Info("task overdue",
			"task_id", t.ID,
			"title", t.Title,
			"status", t.Status,
			"due_date", t.DueDate,
		)
	}
	slog.Info("overdue check finished", "site_id", siteID, "overdue_count", len(tasks))

	return nil
}
