package main

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

	"github.com/iotaledger/hive.go/logger"

	"github.com/slotdao/cycled/pkg/relayer"
)

// setupPrometheus serves the relayer metrics on bindAddress and returns a function stopping the server.
func setupPrometheus(bindAddress string, metrics *relayer.Metrics, log *logger.Logger) (func(), error) {
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return nil, err
	}
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
	e.GET("/metrics", func(c echo.Context) error {
		handler.ServeHTTP(c.Response().Writer, c.Request())
		return nil
	})

	go func() {
		log.Infof("Prometheus exporter listening on %s", bindAddress)
		if err := e.Start(bindAddress); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Stopped Prometheus exporter due to an error (%s)", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			log.Warn(err)
		}
	}, nil
}
