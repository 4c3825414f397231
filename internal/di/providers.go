package di

import (
	"context"
	"fmt"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	"TradePulse/internal/handler/api"
	mid "TradePulse/internal/middleware"
	internalrepo "TradePulse/internal/repository"
	"TradePulse/internal/service/finnhub"
	"TradePulse/internal/service/twelvedata"
	"TradePulse/internal/usecase"
	"TradePulse/pkg/cache"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
	"TradePulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache creates the cache layer: Redis-backed when enabled,
// in-process otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(10000),
			cache.WithMemoryCleanup(time.Minute),
		), nil
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Cache.Redis.Host),
		cache.WithRedisPort(cfg.Cache.Redis.Port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
		cache.WithRedisPrefix("tradepulse"),
		cache.WithRedisPool(20, 5, 3*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache, cache.WithLayeredMemorySize(5000)), nil
}

// ProvideFinnhubStream creates the Finnhub WebSocket stream.
func ProvideFinnhubStream(cfg *config.Config, log *applogger.Logger) repository.MarketStream {
	return finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.PingInterval,
		log,
	)
}

// ProvideTwelveData creates the REST market-data client.
func ProvideTwelveData(cfg *config.Config) *twelvedata.Client {
	return twelvedata.New(twelvedata.Config{
		APIKey:       cfg.TwelveData.APIKey,
		BaseURL:      cfg.TwelveData.BaseURL,
		Timeout:      cfg.TwelveData.Timeout,
		CallInterval: cfg.TwelveData.CallInterval,
	})
}

// ProvideSnapshotSource exposes the REST client as the snapshot tier.
func ProvideSnapshotSource(c *twelvedata.Client) repository.SnapshotSource { return c }

// ProvideBarSource exposes the REST client as the bar-history tier.
func ProvideBarSource(c *twelvedata.Client) repository.BarSource { return c }

// ProvideIndicatorSource exposes the REST client for technicals.
func ProvideIndicatorSource(c *twelvedata.Client) repository.IndicatorSource { return c }

// ProvideReconciler creates the volume reconciler.
func ProvideReconciler(
	snapshots repository.SnapshotSource,
	bars repository.BarSource,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.VolumeReconciler {
	return usecase.NewVolumeReconciler(snapshots, bars, m, log)
}

// ProvideResolver creates the tiered quote resolver.
func ProvideResolver(
	stream repository.MarketStream,
	bars repository.BarSource,
	snapshots repository.SnapshotSource,
	reconciler *usecase.VolumeReconciler,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Resolver {
	return usecase.NewResolver(stream, bars, snapshots, reconciler, m, log, usecase.ResolverConfig{
		StreamTimeout:   cfg.Resolver.StreamTimeout,
		BatchWindow:     cfg.Resolver.BatchWindow,
		ActiveStaleness: cfg.Resolver.ActiveStaleness,
		ClosedStaleness: cfg.Resolver.ClosedStaleness,
	})
}

// ProvideTechnicals creates the cached indicator service.
func ProvideTechnicals(
	source repository.IndicatorSource,
	cacheSvc cache.Service,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.TechnicalsService {
	return usecase.NewTechnicalsService(source, cacheSvc, m, log)
}

// ProvideRVOL creates the relative-volume engine.
func ProvideRVOL(
	bars repository.BarSource,
	cacheSvc cache.Service,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.RVOLEngine {
	return usecase.NewRVOLEngine(bars, cacheSvc, m, log, usecase.RVOLConfig{
		BasisDays:    cfg.RVOL.BasisDays,
		IntradayDays: cfg.RVOL.IntradayDays,
		CacheTTL:     cfg.RVOL.CacheTTL,
	})
}

// ProvideQuoteService creates the application facade.
func ProvideQuoteService(
	resolver *usecase.Resolver,
	technicals *usecase.TechnicalsService,
	rvol *usecase.RVOLEngine,
	m repository.Metrics,
	log *applogger.Logger,
) *usecase.QuoteService {
	return usecase.NewQuoteService(resolver, technicals, rvol, m, log)
}

// ProvideClickHouseClient creates a ClickHouse client when the recorder
// uses that backend; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Recorder.Enabled || cfg.Recorder.Backend != usecase.BackendClickHouse {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	table := quoteTable(cfg)
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + table + " (" +
			"ts DateTime, symbol String, price Float64, volume Int64, " +
			"previous_close Float64, change_percent Float64, source String, stale UInt8" +
			") ENGINE=MergeTree ORDER BY (symbol, ts)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func quoteTable(cfg *config.Config) string {
	table := cfg.ClickHouse.Table
	if table == "" {
		table = "quotes"
	}
	return cfg.ClickHouse.Database + "." + table
}

// ProvideHistoryStore creates ClickHouse quote storage, or nil unless the
// recorder runs on the clickhouse backend.
func ProvideHistoryStore(cfg *config.Config, chClient *pkgch.Client) repository.Storage {
	if !cfg.Recorder.Enabled || cfg.Recorder.Backend != usecase.BackendClickHouse || chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseStorage(chClient.DB(), quoteTable(cfg))
}

// ProvideRecorder creates the quote history recorder, or nil when
// recording is disabled.
func ProvideRecorder(
	cfg *config.Config,
	store repository.Storage,
	m repository.Metrics,
) (*usecase.QuoteRecorder, error) {
	if !cfg.Recorder.Enabled {
		return nil, nil
	}

	switch cfg.Recorder.Backend {
	case usecase.BackendKafka:
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
			pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
			pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		pub := internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		return usecase.NewQuoteRecorder(pub, nil, m, usecase.BackendKafka), nil

	case usecase.BackendClickHouse:
		if store == nil {
			return nil, fmt.Errorf("clickhouse backend selected but storage unavailable")
		}
		return usecase.NewQuoteRecorder(nil, store, m, usecase.BackendClickHouse), nil

	default:
		return nil, fmt.Errorf("unknown recorder backend: %s", cfg.Recorder.Backend)
	}
}

// ProvidePipeline fronts the recorder with validation, throttling and
// buffering; nil when recording is disabled.
func ProvidePipeline(recorder *usecase.QuoteRecorder, m repository.Metrics, cfg *config.Config) *mid.QuotePipeline {
	if recorder == nil {
		return nil
	}
	opts := []mid.PipelineOption{}
	if cfg.Recorder.MaxRPS > 0 {
		opts = append(opts, mid.WithMaxRPS(cfg.Recorder.MaxRPS))
	}
	if cfg.Recorder.BufferSize > 0 {
		opts = append(opts, mid.WithBufferSize(cfg.Recorder.BufferSize))
	}
	return mid.NewQuotePipeline(recorder, m, opts...)
}

// ProvideHandler creates the Echo handler and hooks the recorder pipeline
// into the response path.
func ProvideHandler(log *applogger.Logger, svc *usecase.QuoteService, pipeline *mid.QuotePipeline, store repository.Storage) xhttp.Handler {
	h := api.NewQuoteHandler(log, svc)
	if store != nil {
		h.SetHistory(store)
	}
	if pipeline != nil {
		h.SetRecordFunc(func(q *models.Quote) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = pipeline.Record(ctx, q)
			}()
		})
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	stream repository.MarketStream,
	handler xhttp.Handler,
	recorder *usecase.QuoteRecorder,
	pipeline *mid.QuotePipeline,
	chClient *pkgch.Client,
) *server.App {
	return server.New(cfg, log, stream, handler, recorder, pipeline, chClient)
}
