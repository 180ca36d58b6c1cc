// Package server initializes and runs the directory application: it opens
// the store, runs migrations, wires the services and the HTTP surface, and
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/beyond/internal/logging"
	"github.com/dmitrijs2005/beyond/internal/server/auth"
	"github.com/dmitrijs2005/beyond/internal/server/config"
	"github.com/dmitrijs2005/beyond/internal/server/httpapi"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/inmemory"
	"github.com/dmitrijs2005/beyond/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/beyond/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

// NewApp wires the application. An empty DatabaseDSN selects the in-memory
// store, which is useful for local development and tests.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	var db *sql.DB
	var rm repomanager.RepositoryManager

	if cfg.DatabaseDSN == "" {
		rm = inmemory.NewManager()
	} else {
		var err error
		db, err = sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		pg := repomanager.NewPostgresRepositoryManager()
		if err := pg.RunMigrations(ctx, db); err != nil {
			return nil, fmt.Errorf("migration error: %w", err)
		}
		rm = pg
	}

	userService := services.NewUserService(db, rm)
	networkService := services.NewNetworkService(db, rm)
	volumeService := services.NewVolumeService(db, rm)
	avatarService := services.NewAvatarService(cfg)
	oauthService := services.NewOAuthService(userService, cfg)

	server := httpapi.NewServer(
		logger, cfg, auth.NewAuthenticator(),
		userService, networkService, volumeService, avatarService, oauthService,
	)

	return &App{config: cfg, logger: logger, db: db, server: server}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	srv := &http.Server{
		Addr:    app.config.EndpointAddrHTTP,
		Handler: app.server.Router(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, err.Error())
		}
	}()

	app.logger.Info(ctx, "listening", "addr", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, err.Error())
		}
	}
}
