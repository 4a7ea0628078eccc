package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rozmowa/relay-server/internal/config"
	"github.com/rozmowa/relay-server/internal/core"
	"github.com/rozmowa/relay-server/internal/store"
	"github.com/rozmowa/relay-server/internal/store/sqlite"
	"github.com/rozmowa/relay-server/internal/transport/admin"
	"github.com/rozmowa/relay-server/internal/transport/tcp"
)

// App wires together the message log, hub, and transports.
type App struct {
	cfg     config.Config
	log     *zerolog.Logger
	store   store.Store
	journal *store.Journal
	hub     *core.Hub
	tcp     *tcp.Server
	admin   *admin.Server // nil when disabled
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init message log: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Msg("message log opened")

	journal := store.NewJournal(st, logger, 256)
	hub := core.NewHub(journal, logger)
	server := tcp.NewServer(cfg, hub, logger)

	a := &App{
		cfg:     cfg,
		log:     logger,
		store:   st,
		journal: journal,
		hub:     hub,
		tcp:     server,
	}
	if cfg.AdminAddr != "" {
		a.admin = admin.NewServer(cfg.AdminAddr, hub, st, logger)
	}
	return a, nil
}

// Run binds the listeners and blocks until context cancellation or a
// fatal error. A bind failure propagates so the process exits non-zero.
func (a *App) Run(ctx context.Context) error {
	if err := a.tcp.Listen(); err != nil {
		a.cleanup()
		return err
	}
	a.log.Info().Str("addr", a.cfg.ListenAddr()).Msg("relay listening")

	serverErr := make(chan error, 2)
	go func() {
		serverErr <- a.tcp.Serve(ctx)
	}()
	if a.admin != nil {
		a.log.Info().Str("addr", a.cfg.AdminAddr).Msg("admin api listening")
		go func() {
			if err := a.admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErr <- err
				return
			}
			serverErr <- nil
		}()
	}

	select {
	case err := <-serverErr:
		a.shutdown()
		return err
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		a.shutdown()
		return nil
	}
}

// shutdown stops transports, drains the journal, and closes the store.
func (a *App) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.tcp.Shutdown(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("tcp shutdown")
	}
	a.hub.CloseAll()

	if a.admin != nil {
		if err := a.admin.Shutdown(shutdownCtx); err != nil {
			a.log.Warn().Err(err).Msg("admin shutdown")
		}
	}
	a.cleanup()
}

func (a *App) cleanup() {
	if a.journal != nil {
		a.journal.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close message log")
		} else {
			a.log.Info().Msg("message log closed")
		}
	}
}
