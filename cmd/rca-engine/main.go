package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miradorstack/mirador-rca/internal/aggregator"
	"github.com/miradorstack/mirador-rca/internal/api"
	"github.com/miradorstack/mirador-rca/internal/broker"
	"github.com/miradorstack/mirador-rca/internal/cache"
	"github.com/miradorstack/mirador-rca/internal/config"
	"github.com/miradorstack/mirador-rca/internal/crosshost"
	"github.com/miradorstack/mirador-rca/internal/inferloop"
	"github.com/miradorstack/mirador-rca/internal/keyword"
	"github.com/miradorstack/mirador-rca/internal/metrics"
	"github.com/miradorstack/mirador-rca/internal/obsmeta"
	"github.com/miradorstack/mirador-rca/internal/policy"
	"github.com/miradorstack/mirador-rca/internal/result"
	"github.com/miradorstack/mirador-rca/internal/rules"
	"github.com/miradorstack/mirador-rca/internal/services"
	"github.com/miradorstack/mirador-rca/internal/timeseries"
	"github.com/miradorstack/mirador-rca/internal/topology"
	"github.com/miradorstack/mirador-rca/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting mirador-rca", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	var valkeyCloser cache.Provider
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewValkeyProvider(cache.ValkeyConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("valkey cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
			valkeyCloser = provider
		}
	}
	if valkeyCloser != nil {
		defer valkeyCloser.Close()
	}

	topo, err := topology.NewFalkorClient(topology.FalkorClientConfig{
		Host:            cfg.Topology.Host,
		Port:            cfg.Topology.Port,
		Password:        cfg.Topology.Password,
		GraphName:       cfg.Topology.GraphName,
		DialTimeout:     cfg.Topology.DialTimeout,
		ReadTimeout:     cfg.Topology.ReadTimeout,
		WriteTimeout:    cfg.Topology.WriteTimeout,
		PoolSize:        cfg.Topology.PoolSize,
		EntityCacheSize: cfg.Topology.EntityCacheSize,
	})
	if err != nil {
		logger.Error("failed to build topology client", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := topo.Connect(ctx); err != nil {
		logger.Error("failed to connect to topology store", slog.Any("error", err))
		os.Exit(1)
	}

	registry := obsmeta.NewRegistry(obsmeta.Data{})
	if cfg.Infer.ObserveMetaPath != "" {
		if seed, err := obsmeta.LoadExtensionFile(cfg.Infer.ObserveMetaPath); err != nil {
			logger.Warn("observation-metadata extension file unavailable", slog.Any("error", err))
		} else {
			registry.Replace(seed)
		}
	}

	httpTS := timeseries.NewHTTPClient(cfg.Timeseries.BaseURL, cfg.Timeseries.RangePath, cfg.Timeseries.Timeout, registry)
	var tsClient timeseries.Client = httpTS
	if cfg.Cache.Enabled {
		tsClient = timeseries.NewCachingClient(httpTS, cacheProvider, cfg.Cache.TimeseriesTTL)
	}

	ruleEngine := rules.NewEngine()
	if cfg.Rules.Path != "" {
		if err := ruleEngine.LoadRuleMeta(cfg.Rules.Path); err != nil {
			logger.Error("failed to load rule pack", slog.Any("error", err))
			os.Exit(1)
		}
	}

	keywords := keyword.NewTable()
	if cfg.Infer.KeywordPath != "" {
		if err := keywords.LoadYAML(cfg.Infer.KeywordPath); err != nil {
			logger.Warn("cause keyword file unavailable", slog.Any("error", err))
		}
	}

	var pol policy.Policy
	switch cfg.Infer.Policy {
	case "randomwalk":
		pol = policy.RandomWalk{Rho: 0.85, Rounds: 200}
	default:
		pol = policy.DFS{OnCycle: func(msg string) {
			logger.Warn("cycle detected during cause ranking", slog.String("detail", msg))
		}}
	}
	rankPolicy := policy.NewTimed(pol, cfg.Infer.Policy)

	expander := crosshost.New(topo, tsClient, ruleEngine, rankPolicy, crosshost.Config{
		HostDepth:      cfg.Topology.Depth,
		CorrThreshold:  cfg.Infer.CorrThreshold,
		Step:           cfg.Timeseries.Step,
		SampleDuration: cfg.Timeseries.SampleDuration,
		RootTopK:       cfg.Infer.RootTopK,
	}, logger)

	formatter := result.NewFormatter(keywords)

	kpiChannel := broker.NewChannel(256, cfg.Broker.PollTimeout)
	metricChannel := broker.NewChannel(256, cfg.Broker.PollTimeout)
	metadataChannel := broker.NewChannel(64, cfg.Broker.PollTimeout)
	publisher := broker.NewLoggingPublisher(logger)

	agg := aggregator.New(kpiChannel, metricChannel, registry, cfg.Infer.ValidSec, cfg.Infer.FutureSec, cfg.Infer.AgingSec)

	inferenceService := services.NewInferenceService(logger)

	loop := inferloop.New(agg, expander, formatter, publisher, inferenceService, inferloop.Config{
		NoKPIPollInterval: cfg.Infer.NoKPIPollInterval,
		ToleratedBias:     cfg.Topology.ToleratedBias,
	}, logger)

	metadataRefresher := inferloop.NewMetadataRefresher(metadataChannel, registry, logger)

	server, err := api.NewServer(cfg.Server, inferenceService)
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	go loop.Run(ctx)
	go metadataRefresher.Run(ctx)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Give remaining goroutines time to finish logging
	time.Sleep(100 * time.Millisecond)
	logger.Info("mirador-rca stopped")
}
