package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/chrissnell/skywatch/internal/controllers"
	"github.com/chrissnell/skywatch/internal/controllers/chartrefresh"
	"github.com/chrissnell/skywatch/internal/controllers/restserver"
	"github.com/chrissnell/skywatch/pkg/config"
	"go.uber.org/zap"
)

// ControllerManager interface for the controller manager
type ControllerManager interface {
	StartControllers() error
}

// Controller is an interface that provides standard methods for various controller backends
type Controller interface {
	StartController() error
}

// NewControllerManager creates a new controller manager
func NewControllerManager(ctx context.Context, wg *sync.WaitGroup, ccs []config.ControllerData, deps controllers.Deps, logger *zap.SugaredLogger) (ControllerManager, error) {
	cm := &controllerManager{
		ctx:         ctx,
		wg:          wg,
		deps:        deps,
		logger:      logger,
		controllers: make([]Controller, 0),
	}

	// Create controllers based on configuration
	for _, con := range ccs {
		controller, err := cm.createController(con)
		if err != nil {
			return nil, fmt.Errorf("error creating controller: %v", err)
		}
		cm.controllers = append(cm.controllers, controller)
	}

	return cm, nil
}

type controllerManager struct {
	ctx         context.Context
	wg          *sync.WaitGroup
	deps        controllers.Deps
	logger      *zap.SugaredLogger
	controllers []Controller
}

func (c *controllerManager) StartControllers() error {
	c.logger.Info("Starting controller manager...")

	for _, controller := range c.controllers {
		err := controller.StartController()
		if err != nil {
			return fmt.Errorf("error starting controller: %v", err)
		}
	}

	c.logger.Infof("Started %d controllers successfully", len(c.controllers))
	return nil
}

// createController creates a controller based on the controller configuration
func (cm *controllerManager) createController(cc config.ControllerData) (Controller, error) {
	switch cc.Type {
	case "rest":
		var rc config.RESTServerData
		if cc.RESTServer != nil {
			rc = *cc.RESTServer
		}
		return restserver.NewController(cm.ctx, cm.wg, rc, cm.deps, cm.logger)
	case "chartrefresh":
		var rc config.ChartRefreshData
		if cc.ChartRefresh != nil {
			rc = *cc.ChartRefresh
		}
		return chartrefresh.NewController(cm.ctx, cm.wg, rc, cm.deps, cm.logger)
	default:
		return nil, fmt.Errorf("unknown controller type: %s", cc.Type)
	}
}
