package restapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/dig"
	"golang.org/x/time/rate"

	"github.com/iotaledger/hive.go/configuration"

	"github.com/slotdao/cycled/pkg/metrics"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/node"
	"github.com/slotdao/cycled/pkg/restapi"
	"github.com/slotdao/cycled/pkg/shutdown"
	v1 "github.com/slotdao/cycled/plugins/restapi/v1"
)

func init() {
	Plugin = &node.Plugin{
		Status: node.StatusEnabled,
		Pluggable: node.Pluggable{
			Name:           "RestAPI",
			DepsFunc:       func(cDeps dependencies) { deps = cDeps },
			Params:         params,
			InitConfigPars: initConfigPars,
			Provide:        provide,
			Configure:      configure,
			Run:            run,
		},
	}
}

const (
	nodeAPIHealthRoute = "/health"
	nodeAPIRouteGroup  = "/api/v1"
)

var (
	Plugin *node.Plugin
	deps   dependencies
)

type dependencies struct {
	dig.In
	NodeConfig         *configuration.Configuration `name:"nodeConfig"`
	Echo               *echo.Echo
	RestAPIMetrics     *metrics.RestAPIMetrics
	Ledger             *ledger.Ledger
	DAO                *dao.DAO
	RestAPIBindAddress string `name:"restAPIBindAddress"`
	MaxResults         int    `name:"restAPILimitsMaxResults"`
}

func initConfigPars(c *dig.Container) {

	type cfgDeps struct {
		dig.In
		NodeConfig *configuration.Configuration `name:"nodeConfig"`
	}

	type cfgResult struct {
		dig.Out
		RestAPIBindAddress      string `name:"restAPIBindAddress"`
		RestAPILimitsMaxResults int    `name:"restAPILimitsMaxResults"`
	}

	if err := c.Provide(func(deps cfgDeps) cfgResult {
		return cfgResult{
			RestAPIBindAddress:      deps.NodeConfig.String(CfgRestAPIBindAddress),
			RestAPILimitsMaxResults: deps.NodeConfig.Int(CfgRestAPILimitsMaxResults),
		}
	}); err != nil {
		Plugin.LogPanic(err)
	}
}

func provide(c *dig.Container) {

	if err := c.Provide(func() *metrics.RestAPIMetrics {
		return &metrics.RestAPIMetrics{}
	}); err != nil {
		Plugin.LogPanic(err)
	}

	type echoDeps struct {
		dig.In
		NodeConfig *configuration.Configuration `name:"nodeConfig"`
	}

	if err := c.Provide(func(deps echoDeps) *echo.Echo {
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Use(middleware.Recover())
		e.Use(middleware.CORS())
		e.Use(middleware.Gzip())
		e.Use(middleware.BodyLimit(deps.NodeConfig.String(CfgRestAPILimitsMaxBodyLength)))
		return e
	}); err != nil {
		Plugin.LogPanic(err)
	}
}

func configure() {
	errorHandler := restapi.ErrorHandler()
	deps.Echo.HTTPErrorHandler = func(err error, c echo.Context) {
		Plugin.LogDebugf("HTTP request failed: %s", err)
		deps.RestAPIMetrics.HTTPRequestErrorCounter.Inc()
		errorHandler(err, c)
	}

	if deps.NodeConfig.Bool(CfgRestAPIDebugRequestLoggerEnabled) {
		deps.Echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Format: "${time_rfc3339} ${remote_ip} ${method} ${uri} ${status} ${latency_human}\n",
		}))
	}

	limiter := rate.NewLimiter(
		rate.Limit(deps.NodeConfig.Float64(CfgRestAPILimitsTransactionsPerSecond)),
		deps.NodeConfig.Int(CfgRestAPILimitsTransactionsBurst),
	)

	setupHealthRoute()
	v1.New(deps.DAO, deps.RestAPIMetrics, limiter, deps.MaxResults).Register(deps.Echo.Group(nodeAPIRouteGroup))
}

func run() {

	Plugin.LogInfo("Starting REST-API server ...")

	if err := Plugin.Daemon().BackgroundWorker("REST-API server", func(ctx context.Context) {
		Plugin.LogInfo("Starting REST-API server ... done")

		bindAddr := deps.RestAPIBindAddress

		go func() {
			Plugin.LogInfof("You can now access the API using: http://%s", bindAddr)
			if err := deps.Echo.Start(bindAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				Plugin.LogWarnf("Stopped REST-API server due to an error (%s)", err)
			}
		}()

		<-ctx.Done()
		Plugin.LogInfo("Stopping REST-API server ...")

		shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := deps.Echo.Shutdown(shutdownCtx); err != nil {
			Plugin.LogWarn(err)
		}
		shutdownCtxCancel()
		Plugin.LogInfo("Stopping REST-API server ... done")
	}, shutdown.PriorityRestAPI); err != nil {
		Plugin.LogPanicf("failed to start worker: %s", err)
	}
}
