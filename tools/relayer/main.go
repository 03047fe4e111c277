package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iotaledger/hive.go/configuration"
	"github.com/iotaledger/hive.go/logger"

	"github.com/slotdao/cycled/pkg/relayer"
)

func main() {
	cfg, err := relayer.LoadConfig()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	if err := initLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	log := logger.NewLogger("Relayer")

	client, err := cfg.Client()
	if err != nil {
		log.Fatal(err)
	}

	metrics := relayer.NewMetrics()
	orchestrator := relayer.New(client,
		relayer.WithLogger(log),
		relayer.WithMetrics(metrics),
		relayer.WithPollInterval(cfg.PollInterval),
		relayer.WithContentGatewayURL(cfg.ContentGatewayURL),
		relayer.WithBackoff(500*time.Millisecond, 5*time.Second, cfg.BackoffMaxElapsed),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MetricsBindAddress != "" {
		stopPrometheus, err := setupPrometheus(cfg.MetricsBindAddress, metrics, log)
		if err != nil {
			log.Fatal(err)
		}
		defer stopPrometheus()
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Info("Stopping relayer ...")
		cancel()
	}()

	log.Infof("Relayer started for node %s as %s, polling every %s", cfg.NodeURL, client.Caller(), cfg.PollInterval)
	if err := orchestrator.Run(ctx); err != nil {
		log.Errorf("relayer stopped: %s", err)
		cancel()
		os.Exit(1)
	}
	log.Info("Stopping relayer ... done")
}

func initLogger(level string) error {
	config := configuration.New()
	if err := config.Set("logger.level", level); err != nil {
		return err
	}
	if err := config.Set(logger.ConfigurationKeyDisableCaller, true); err != nil {
		return err
	}
	return logger.InitGlobalLogger(config)
}
