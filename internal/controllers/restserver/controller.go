package restserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/ringbiomass/internal/allometry"
	"github.com/chrissnell/ringbiomass/internal/app"
	"github.com/chrissnell/ringbiomass/internal/log"
	"github.com/chrissnell/ringbiomass/pkg/config"
)

// Controller represents the REST server controller
type Controller struct {
	Server   http.Server
	logger   *zap.SugaredLogger
	handlers *Handlers
}

// NewController creates a new REST server controller serving reconstructions through
// pipeline.
func NewController(rc config.RESTServerData, pipeline *app.Pipeline, resolver *allometry.Resolver, logger *zap.SugaredLogger) *Controller {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to :8080")
		rc.ListenAddr = ":8080"
	}

	ctrl := &Controller{
		logger:   logger,
		handlers: NewHandlers(pipeline, resolver, logger),
	}
	ctrl.Server.Addr = rc.ListenAddr
	ctrl.Server.Handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger}),
	)(handlers.CompressHandler(ctrl.setupRouter()))
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second
	return ctrl
}

// Handler returns the router, for embedding or testing.
func (c *Controller) Handler() http.Handler {
	return c.Server.Handler
}

// Run serves until ctx is cancelled, then shuts the server down.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Infof("starting REST server on %s", c.Server.Addr)

	errc := make(chan error, 1)
	go func() {
		if err := c.Server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	c.logger.Info("shutting down the REST server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.Server.Shutdown(shutdownCtx)
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(c.loggingMiddleware)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/reconstruct", c.handlers.Reconstruct).Methods(http.MethodPost)
	api.HandleFunc("/species/{code}", c.handlers.GetSpecies).Methods(http.MethodGet)
	api.HandleFunc("/logs/http", c.handlers.GetHTTPLogs).Methods(http.MethodGet)

	router.HandleFunc("/healthz", c.handlers.Health).Methods(http.MethodGet)

	return router
}

// recoveryLogger adapts zap to the Println logger expected by handlers.RecoveryHandler.
type recoveryLogger struct {
	*zap.SugaredLogger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.Error(v...)
}

// statusRecorder captures the status and size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

// loggingMiddleware records every request in the HTTP log buffer
func (c *Controller) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		log.LogHTTPRequest(r.Method, r.URL.Path, status, time.Since(start), rec.size, r.RemoteAddr, r.UserAgent(), nil)
		c.logger.Debugf("%s %s %d %v", r.Method, r.URL.Path, status, time.Since(start))
	})
}
