package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/golang-io/mqtt"
	"github.com/golang-io/mqtt/internal/config"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	configPath := flag.String("config", "./config/dev.yaml", "Path to config file")
	metricsAddr := flag.String("metrics-addr", "", "Address to serve Prometheus metrics on (empty disables)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("mqtt-server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := mqtt.NewServer(ctx, cfg)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return s.ListenAndServe(cfg.MQTTListenAddr)
	})
	if *metricsAddr != "" {
		group.Go(func() error {
			return mqtt.Httpd(ctx, *metricsAddr)
		})
	}

	if err := group.Wait(); err != nil && err != mqtt.ErrServerClosed {
		log.Fatal(err)
	}
}
