package prometheus

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/dig"

	"github.com/iotaledger/hive.go/configuration"

	"github.com/slotdao/cycled/core/app"
	"github.com/slotdao/cycled/pkg/database"
	"github.com/slotdao/cycled/pkg/metrics"
	"github.com/slotdao/cycled/pkg/model/dao"
	"github.com/slotdao/cycled/pkg/model/ledger"
	"github.com/slotdao/cycled/pkg/node"
	"github.com/slotdao/cycled/pkg/relayer"
	"github.com/slotdao/cycled/pkg/shutdown"
	"github.com/slotdao/cycled/pkg/utils"
)

// RouteMetrics is the route for getting the prometheus metrics.
// GET returns metrics.
const (
	RouteMetrics = "/metrics"
)

func init() {
	Plugin = &node.Plugin{
		Status: node.StatusDisabled,
		Pluggable: node.Pluggable{
			Name:      "Prometheus",
			DepsFunc:  func(cDeps dependencies) { deps = cDeps },
			Params:    params,
			Provide:   provide,
			Configure: configure,
			Run:       run,
		},
	}
}

var (
	Plugin *node.Plugin
	deps   dependencies

	registry = prometheus.NewRegistry()
	collects []func()
)

type dependencies struct {
	dig.In
	AppInfo         *app.AppInfo
	NodeConfig      *configuration.Configuration `name:"nodeConfig"`
	Database        *database.Database
	DatabaseMetrics *metrics.DatabaseMetrics
	Ledger          *ledger.Ledger
	LedgerMetrics   *metrics.LedgerMetrics
	DAO             *dao.DAO
	Echo            *echo.Echo              `optional:"true"`
	RestAPIMetrics  *metrics.RestAPIMetrics `optional:"true"`
	RelayerMetrics  *relayer.Metrics        `optional:"true"`
	PrometheusEcho  *echo.Echo              `name:"prometheusEcho"`
}

func provide(c *dig.Container) {

	type depsOut struct {
		dig.Out
		PrometheusEcho *echo.Echo `name:"prometheusEcho"`
	}

	if err := c.Provide(func() depsOut {
		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Use(middleware.Recover())
		return depsOut{
			PrometheusEcho: e,
		}
	}); err != nil {
		Plugin.LogPanic(err)
	}
}

func configure() {
	configureInfo()

	if deps.NodeConfig.Bool(CfgPrometheusDatabase) {
		configureDatabase()
	}
	if deps.NodeConfig.Bool(CfgPrometheusLedger) {
		configureLedger()
	}
	if deps.NodeConfig.Bool(CfgPrometheusRestAPI) && deps.RestAPIMetrics != nil {
		configureRestAPI()
	}
	if deps.NodeConfig.Bool(CfgPrometheusRelayer) && deps.RelayerMetrics != nil {
		if err := deps.RelayerMetrics.Register(registry); err != nil {
			Plugin.LogPanicf("registering relayer metrics failed: %s", err)
		}
	}
	if deps.NodeConfig.Bool(CfgPrometheusGoMetrics) {
		registry.MustRegister(collectors.NewGoCollector())
	}
	if deps.NodeConfig.Bool(CfgPrometheusProcessMetrics) {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
}

func addCollect(collect func()) {
	collects = append(collects, collect)
}

type fileservicediscovery struct {
	Targets []string          `json:"targets"`
	Labels  map[string]string `json:"labels"`
}

func writeFileServiceDiscoveryFile() {
	path := deps.NodeConfig.String(CfgPrometheusFileServiceDiscoveryPath)
	d := []fileservicediscovery{{
		Targets: []string{deps.NodeConfig.String(CfgPrometheusFileServiceDiscoveryTarget)},
		Labels:  make(map[string]string),
	}}

	// this truncates an existing file
	if err := utils.WriteJSONToFile(path, d, 0666); err != nil {
		Plugin.LogPanicf("unable to write file service discovery file: %s", err)
	}

	Plugin.LogInfof("Wrote 'file service discovery' content to %s", path)
}

func metricsHandler() http.Handler {
	handler := promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
	if deps.NodeConfig.Bool(CfgPrometheusPromhttpMetrics) {
		handler = promhttp.InstrumentMetricHandler(registry, handler)
	}
	return handler
}

func run() {
	Plugin.LogInfo("Starting Prometheus exporter ...")

	if deps.NodeConfig.Bool(CfgPrometheusFileServiceDiscoveryEnabled) {
		writeFileServiceDiscoveryFile()
	}

	if err := Plugin.Daemon().BackgroundWorker("Prometheus exporter", func(ctx context.Context) {
		Plugin.LogInfo("Starting Prometheus exporter ... done")

		handler := metricsHandler()
		deps.PrometheusEcho.GET(RouteMetrics, func(c echo.Context) error {
			for _, collect := range collects {
				collect()
			}
			handler.ServeHTTP(c.Response().Writer, c.Request())
			return nil
		})

		bindAddr := deps.NodeConfig.String(CfgPrometheusBindAddress)

		go func() {
			Plugin.LogInfof("You can now access the Prometheus exporter using: http://%s/metrics", bindAddr)
			if err := deps.PrometheusEcho.Start(bindAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				Plugin.LogWarnf("Stopped Prometheus exporter due to an error (%s)", err)
			}
		}()

		<-ctx.Done()
		Plugin.LogInfo("Stopping Prometheus exporter ...")

		shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := deps.PrometheusEcho.Shutdown(shutdownCtx)
		if err != nil {
			Plugin.LogWarn(err)
		}
		shutdownCtxCancel()
		Plugin.LogInfo("Stopping Prometheus exporter ... done")
	}, shutdown.PriorityPrometheus); err != nil {
		Plugin.LogPanicf("failed to start worker: %s", err)
	}
}
