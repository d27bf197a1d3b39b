package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"SignalSentinel/internal/advisor"
	"SignalSentinel/internal/api"
	"SignalSentinel/internal/cache"
	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/config"
	"SignalSentinel/internal/evaluator"
	"SignalSentinel/internal/logger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/notifier"
	"SignalSentinel/internal/scheduler"
	"SignalSentinel/internal/store"
	"SignalSentinel/internal/strategy"
	"SignalSentinel/internal/trace"
)

var version = "dev"

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatal().Err(err).Msg("init logger")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("version", version).Msg("SignalSentinel starting")

	if err := trace.Init(cfg.Tracing.Enabled, version, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("init tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("flush traces")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Market data
	httpClient := collector.NewHTTPClient(cfg.Proxy, cfg.Binance.Timeout)
	fetcher := collector.NewBinanceFetcher(cfg.Binance.BaseURL, cfg.Binance.QuoteAsset, httpClient)
	col := collector.NewCollector(fetcher, cfg.Binance.Limit)
	col.Metrics = m

	sources := collector.NewBinanceTickerSources(cfg.Binance.BaseURL, cfg.Oracle.TickerVariants, httpClient)
	sources = append(sources, collector.NewCoinGeckoSource(cfg.Oracle.CoinGecko.BaseURL, cfg.Oracle.CoinGecko.APIKey, httpClient))
	oracle := collector.NewPriceOracle(sources, cfg.Oracle.AttemptTimeout)
	oracle.Metrics = m

	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisQuoteCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.QuoteTTL,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, using in-process quote cache")
			oracle.Cache = cache.NewMemoryQuoteCache(cfg.Redis.QuoteTTL)
		} else {
			oracle.Cache = rc
			defer rc.Close()
		}
	} else {
		oracle.Cache = cache.NewMemoryQuoteCache(cfg.Redis.QuoteTTL)
	}

	// Storage
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("open store")
	}
	defer st.Close()

	// Evaluation
	ev := evaluator.New(st, oracle,
		evaluator.WithRules(evaluator.Rules{
			Expiry:      time.Duration(cfg.Evaluator.ExpiryDays) * 24 * time.Hour,
			HoldMinAge:  time.Duration(cfg.Evaluator.HoldMinDays) * 24 * time.Hour,
			HoldBandPct: cfg.Evaluator.HoldBandPct,
		}),
		evaluator.WithThrottle(cfg.EvaluatorThrottle()),
		evaluator.WithMetrics(m),
	)
	stats := evaluator.NewStatsAggregator(st)

	// Generation
	var gen advisor.Generator
	if cfg.OpenAI.APIKey != "" {
		gen = advisor.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL,
			collector.NewHTTPClient(cfg.Proxy, 60*time.Second))
	} else {
		gen = strategy.NewEngine()
	}
	log.Info().Str("generator", gen.Name()).Msg("recommendation generator ready")

	adv := advisor.New(col, gen, st)
	adv.Quotes = oracle
	adv.Metrics = m

	// Scheduler and chat
	deps := scheduler.Deps{
		Advisor:         adv,
		Evaluator:       ev,
		Stats:           stats,
		Quotes:          oracle,
		Store:           st,
		DefaultInterval: cfg.Binance.Interval,
	}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn, err = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		if err != nil {
			log.Fatal().Err(err).Msg("init telegram")
		}
		deps.Notifier = tn
	} else {
		log.Warn().Msg("telegram not configured, chat commands and pushes disabled")
	}

	sched := scheduler.NewScheduler(ctx, deps)
	if err := sched.RegisterAll(cfg.Schedule.EvaluateCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
	}

	if cfg.Schedule.RunOnStart {
		log.Info().Msg("run_on_start enabled, running evaluation now")
		go func() {
			if _, err := sched.RunEvaluationNow(ctx); err != nil {
				log.Error().Err(err).Msg("startup evaluation")
			}
		}()
	}

	// HTTP
	srv := api.NewServer(api.Deps{
		Advisor:         adv,
		Evaluator:       ev,
		Stats:           stats,
		Quotes:          oracle,
		Fetcher:         fetcher,
		Store:           st,
		Metrics:         m,
		DefaultInterval: cfg.Binance.Interval,
		DefaultLimit:    cfg.Binance.Limit,
		AllowOrigins:    cfg.HTTP.AllowOrigins,
	})
	httpErr := make(chan error, 1)
	go func() { httpErr <- srv.Run(ctx, cfg.HTTP.Addr) }()

	log.Info().Msg("SignalSentinel is running. Press Ctrl+C to stop.")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received, stopping")
		if err := <-httpErr; err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	case err := <-httpErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
		stop()
	}
	log.Info().Msg("SignalSentinel stopped")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case "memory":
		return store.NewMemoryStore(cfg.Database.StateFile)
	case store.DriverSQLite:
		if dir := filepath.Dir(cfg.Database.DSN); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		return store.Open(ctx, store.DriverSQLite, cfg.Database.DSN)
	case store.DriverPostgres:
		return store.Open(ctx, store.DriverPostgres, cfg.Database.DSN)
	}
	return nil, errors.New("unsupported database driver " + cfg.Database.Driver)
}
