package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"vaultscan/internal/config"
	"vaultscan/internal/observability"
	"vaultscan/internal/pipeline"
	"vaultscan/internal/storage/migrations"
	pgstore "vaultscan/internal/storage/postgres"
)

func main() {
	topN := flag.Int("n", -1, "Leaderboard depth (-1 uses TOP_N)")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()
	if *topN > 0 {
		cfg.TopN = *topN
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.Register(prometheus.DefaultRegisterer)

	pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logrus.Fatalf("Run migrations: %v", err)
	}

	ranker := pipeline.NewRanker(pgstore.NewRankingStore(pool), metrics)
	count, err := ranker.Run(ctx, cfg.TopN)
	if err != nil {
		logrus.Fatalf("Top vaults recompute failed: %v", err)
	}
	logrus.Infof("Top vaults recompute finished: %d rows", count)
}
