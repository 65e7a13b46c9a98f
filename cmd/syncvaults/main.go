package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"vaultscan/internal/config"
	"vaultscan/internal/hyperliquid"
	"vaultscan/internal/observability"
	"vaultscan/internal/pipeline"
	"vaultscan/internal/storage/migrations"
	pgstore "vaultscan/internal/storage/postgres"
)

func main() {
	detailsLimit := flag.Int("details-limit", -1, "Cap vault detail fetches per run (-1 uses DETAILS_LIMIT)")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()
	if *detailsLimit >= 0 {
		cfg.DetailsLimit = *detailsLimit
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.Register(prometheus.DefaultRegisterer)
	startMetricsServer(cfg.MetricsAddr)

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logrus.Fatalf("Run migrations: %v", err)
	}

	client := hyperliquid.NewClient(hyperliquid.Options{
		InfoURL:  cfg.InfoURL,
		StatsURL: cfg.StatsURL,
		Timeout:  cfg.RequestTimeout,
	})

	syncer := pipeline.NewVaultSyncer(client, pgstore.NewVaultStore(pool), metrics)
	syncer.DetailsConcurrency = int64(cfg.DetailsConcurrency)
	syncer.DetailsLimit = cfg.DetailsLimit

	result, err := syncer.Run(ctx)
	if err != nil {
		logrus.Fatalf("Vault sync failed: %v", err)
	}
	logrus.Infof("Vault sync finished: %d vaults, %d details, %d metrics",
		result.VaultsWritten, result.DetailsFetched, result.MetricsWritten)
}

func startMetricsServer(addr string) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		logrus.Infof("Starting metrics server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logrus.Warnf("Metrics server error: %v", err)
		}
	}()
}
