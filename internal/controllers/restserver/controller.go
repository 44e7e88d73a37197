package restserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/chrissnell/skywatch/internal/controllers"
	"github.com/chrissnell/skywatch/internal/log"
	"github.com/chrissnell/skywatch/internal/metrics"
	"github.com/chrissnell/skywatch/pkg/config"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller represents the REST server controller
type Controller struct {
	ctx        context.Context
	wg         *sync.WaitGroup
	restConfig config.RESTServerData
	deps       controllers.Deps
	Server     http.Server
	logger     *zap.SugaredLogger
	handlers   *Handlers
}

// NewController creates a new REST server controller
func NewController(ctx context.Context, wg *sync.WaitGroup, rc config.RESTServerData, deps controllers.Deps, logger *zap.SugaredLogger) (*Controller, error) {
	if deps.Service == nil || deps.Locator == nil {
		return nil, fmt.Errorf("REST server requires an observation service and a locator")
	}

	// If a ListenAddr was not provided, listen on all interfaces
	if rc.ListenAddr == "" {
		logger.Info("rest.listen-addr not provided; defaulting to 0.0.0.0 (all interfaces)")
		rc.ListenAddr = "0.0.0.0"
	}

	// Set default HTTP port if not specified
	if rc.Port == 0 {
		logger.Infof("rest.port not provided; defaulting to %d", config.DefaultRESTPort)
		rc.Port = config.DefaultRESTPort
	}

	if (rc.Cert == "") != (rc.Key == "") {
		return nil, fmt.Errorf("rest.cert and rest.key must be set together")
	}

	ctrl := &Controller{
		ctx:        ctx,
		wg:         wg,
		restConfig: rc,
		deps:       deps,
		logger:     logger,
	}
	ctrl.handlers = NewHandlers(ctrl)

	ctrl.Server.Addr = fmt.Sprintf("%v:%v", rc.ListenAddr, rc.Port)
	ctrl.Server.Handler = ctrl.Handler()
	ctrl.Server.ReadHeaderTimeout = 10 * time.Second

	return ctrl, nil
}

// StartController starts the REST server
func (c *Controller) StartController() error {
	log.Info("Starting REST server controller...")
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		if c.restConfig.Cert != "" && c.restConfig.Key != "" {
			if err := c.Server.ListenAndServeTLS(c.restConfig.Cert, c.restConfig.Key); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		} else {
			if err := c.Server.ListenAndServe(); err != http.ErrServerClosed {
				log.Errorf("REST server error: %v", err)
			}
		}
	}()

	go func() {
		<-c.ctx.Done()
		log.Info("Shutting down the REST server...")
		c.Server.Shutdown(context.Background())
	}()

	return nil
}

// Handler returns the complete HTTP handler: the router wrapped in panic
// recovery and response compression.
func (c *Controller) Handler() http.Handler {
	return handlers.RecoveryHandler()(handlers.CompressHandler(c.setupRouter()))
}

// setupRouter configures the HTTP router with all endpoints
func (c *Controller) setupRouter() *mux.Router {
	router := mux.NewRouter()
	router.Use(log.HTTPLogger(c.logger, countRequest))

	router.HandleFunc("/api/observe", c.handlers.GetObservation).Methods(http.MethodGet)
	router.HandleFunc("/api/moon", c.handlers.GetMoon).Methods(http.MethodGet)
	router.HandleFunc("/api/locations", c.handlers.GetLocations).Methods(http.MethodGet)
	router.HandleFunc("/chart.png", c.handlers.GetChartPNG).Methods(http.MethodGet)
	router.HandleFunc("/charts/{file}", c.handlers.GetChartFile).Methods(http.MethodGet)
	router.HandleFunc("/healthz", c.handlers.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return router
}

// countRequest labels requests by route template so that chart file names
// do not explode the label space
func countRequest(req *http.Request, status int, _ time.Duration) {
	route := "unmatched"
	if r := mux.CurrentRoute(req); r != nil {
		if tpl, err := r.GetPathTemplate(); err == nil {
			route = tpl
		}
	}
	metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
