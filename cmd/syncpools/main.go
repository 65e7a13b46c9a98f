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
	"vaultscan/internal/defillama"
	"vaultscan/internal/evm"
	"vaultscan/internal/observability"
	"vaultscan/internal/pipeline"
	"vaultscan/internal/protocols"
	"vaultscan/internal/storage/migrations"
	pgstore "vaultscan/internal/storage/postgres"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Fetch and merge but skip the database write")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	cfg := config.Load()

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

	caller, err := evm.Dial(ctx, cfg.EvmRPCURL, evm.Options{
		RateLimit: cfg.RPCRateLimit,
		Throttle:  cfg.CallThrottle,
	})
	if err != nil {
		logrus.Fatalf("Dial EVM RPC: %v", err)
	}

	// Adapter order is merge precedence: the aggregator first, then
	// the protocol-specific adapters that override it.
	syncer := pipeline.NewPoolSyncer(pgstore.NewPoolStore(pool), metrics,
		defillama.NewClient(defillama.Options{
			BaseURL: cfg.YieldsURL,
			Timeout: cfg.RequestTimeout,
		}),
		protocols.NewHyperlend(caller),
		protocols.NewHypurrfi(caller),
		protocols.NewFelix(caller),
		protocols.NewHyperbeat(caller),
	)

	result, err := syncer.Run(ctx, !*dryRun)
	if err != nil {
		logrus.Fatalf("Pool sync failed: %v", err)
	}
	logrus.Infof("Pool sync finished: %d merged rows, %d pools, %d metrics",
		result.MergedRows, result.PoolsWritten, result.MetricsWritten)
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
