package app

import (
	"context"
	"net/http"

	"github.com/SurajPatil2645/VentureFlow/internal/common/logging"
	"github.com/SurajPatil2645/VentureFlow/internal/handlers"
	"github.com/SurajPatil2645/VentureFlow/internal/middleware"
	"github.com/SurajPatil2645/VentureFlow/internal/server"

	"github.com/gorilla/mux"
)

// Handler builds the routed HTTP handler of the application
func (app *App) Handler() http.Handler {
	h := handlers.New(app.Service, app.Auth, app.Storage, logging.GetGlobalLogger())

	router := mux.NewRouter()
	SetupRoutes(router, h, app.Auth.Middleware, middleware.Logging(logging.GetGlobalLogger()), app.Registry)
	return router
}

// RunServer creates the HTTP server and starts the background jobs
func (app *App) RunServer() *server.Server {
	if app.Scheduler != nil {
		app.Scheduler.Start()
	}
	return server.New(app.Handler(), app.Config.Port, app.Config.TLSCert, app.Config.TLSKey, logging.GetGlobalLogger())
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown(ctx context.Context) error {
	if app.Scheduler == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		app.Scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
		app.Logger.Info("Background jobs stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
