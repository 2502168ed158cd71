package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/agencydesk/agencydesk/internal/config"
	"github.com/agencydesk/agencydesk/internal/database"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Application wires configuration, database, router, scheduler and server lifecycle.
type Application struct {
	cfg       config.Application
	db        *pgxpool.Pool
	router    *mux.Router
	srv       *http.Server
	scheduler *Scheduler
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication() (*Application, error) {
	cfg, err := config.Load("./config/application.yaml")
	if err != nil {
		return nil, err
	}

	if err := database.Migrate(cfg.Database); err != nil {
		return nil, err
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, err
	}

	deps, err := BuildDependencies(db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	r := mux.NewRouter()
	SetupMiddleware(r, deps.OrganizationService)
	RegisterRoutes(r, deps)

	srv := &http.Server{
		Handler:      r,
		Addr:         ":8181",
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	app := &Application{cfg: cfg, db: db, router: r, srv: srv}
	if cfg.Scheduler.Enabled {
		app.scheduler = NewScheduler(deps.OrganizationService, deps.DeliverableService, deps.Clock)
	}
	return app, nil
}

// Run starts the scheduler and the HTTP server and blocks until the server stops.
func (a *Application) Run() error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(a.cfg.Scheduler.Cron); err != nil {
			return err
		}
	}
	log.Infof("Starting server on %s", a.srv.Addr)
	err := a.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, waits for the scheduler and closes the pool.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.srv.Shutdown(ctx)
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.db.Close()
	return err
}
