package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	s3blob "github.com/ironcrypto/aero-arb-mm-bot/internal/blob/s3"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/cache/redis"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/config"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/detector"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/domain"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/feed"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/mm"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/output"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/platform/aerodrome"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/platform/binance"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/reliability"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/risk"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/sim"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/store/postgres"
	"github.com/ironcrypto/aero-arb-mm-bot/internal/volatility"
)

// Dependencies bundles every component the running application needs. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Store *feed.Store
	Sink  *output.Sink
	Cycle *Cycle

	// Feed goroutines. Exactly one of CEXPoller / CEXStream is set.
	DEXPoller *feed.Poller
	CEXPoller *feed.Poller
	CEXStream *feed.CEXStreamFeed

	// Archiver is set only when S3 archival is enabled.
	Archiver *s3blob.Archiver
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venue adapters ---
	pool, err := aerodrome.Dial(ctx, cfg.DEX.RPCURL, aerodrome.PoolConfig{
		Pair:          cfg.Market.Pair,
		Address:       aerodrome.ParseAddress(cfg.Market.PoolAddress),
		BaseIsToken0:  cfg.Market.BaseIsToken0,
		BaseDecimals:  int32(cfg.Market.BaseDecimals),
		QuoteDecimals: int32(cfg.Market.QuoteDecimals),
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: aerodrome: %w", err)
	}
	closers = append(closers, pool.Close)

	cexClient := binance.NewClient(cfg.CEX.BaseURL)

	// --- Reliability layer ---
	brkCfg := reliability.BreakerConfig{
		Threshold: cfg.Breaker.Threshold,
		Cooldown:  cfg.Breaker.Cooldown.Duration,
	}
	retrier := reliability.NewRetrier(reliability.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Duration,
		MaxDelay:    cfg.Retry.MaxDelay.Duration,
	}, logger)

	dexBreaker := reliability.NewBreaker("dex_rpc", brkCfg, logger)
	cexBreaker := reliability.NewBreaker("cex_api", brkCfg, logger)
	gasBreaker := reliability.NewBreaker("dex_gas", brkCfg, logger)

	// --- Redis (optional live surface) ---
	var priceCache domain.PriceCache
	var recordBus domain.RecordBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		priceCache = redis.NewPriceCache(redisClient)
		recordBus = redis.NewRecordBus(redisClient)
	}

	// --- PostgreSQL (optional record persistence) ---
	var recordStore domain.RecordStore
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		recordStore = postgres.NewRecordStore(pgClient.Pool())
	}

	// --- Output ---
	deps.Sink = output.NewSink(cfg.Output.Dir, recordStore, recordBus, logger)
	closers = append(closers, func() { _ = deps.Sink.Close() })

	// --- S3 (optional archive of closed JSONL files) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3 health: %w", err)
		}
		deps.Archiver = s3blob.NewArchiver(
			cfg.Output.Dir,
			cfg.S3.KeyPrefix,
			s3blob.NewWriter(s3Client),
			cfg.S3.ArchiveInterval.Duration,
			logger,
		)
	}

	// --- Feeds ---
	deps.Store = feed.NewStore()
	deps.DEXPoller = feed.NewPoller(
		"dex_feed",
		cfg.DEX.PollInterval.Duration,
		pool.Snapshot,
		deps.Store,
		dexBreaker,
		retrier,
		priceCache,
		logger,
	)

	if cfg.CEX.UseWebsocket {
		ws := binance.NewWSClient(cfg.CEX.WSURL, cfg.Market.Symbol)
		deps.CEXStream = feed.NewCEXStreamFeed(cfg.Market.Pair, ws, deps.Store, priceCache, logger)
	} else {
		pair, symbol := cfg.Market.Pair, cfg.Market.Symbol
		fetch := func(ctx context.Context) (domain.PriceSnapshot, error) {
			ticker, err := cexClient.GetBookTicker(ctx, symbol)
			if err != nil {
				return domain.PriceSnapshot{}, err
			}
			return domain.PriceSnapshot{
				Source: domain.SourceCEX,
				Pair:   pair,
				Price:  ticker.Mid(),
			}, nil
		}
		deps.CEXPoller = feed.NewPoller(
			"cex_feed",
			cfg.CEX.PollInterval.Duration,
			fetch,
			deps.Store,
			cexBreaker,
			retrier,
			priceCache,
			logger,
		)
	}

	// --- Engine components ---
	analyzer := volatility.New(cfg.Market.Pair, volatility.Config{
		HighMultiplier: decimal.NewFromFloat(cfg.Volatility.HighMultiplier),
		TrendRatio:     cfg.Volatility.TrendRatio,
		NoiseFloorPct:  cfg.Volatility.NoiseFloorPct,
	})

	det := detector.New(detector.Config{
		Pair:                 cfg.Market.Pair,
		TradeSize:            decimal.NewFromFloat(cfg.Detector.TradeSizeETH),
		MinSpreadPct:         decimal.NewFromFloat(cfg.Detector.MinSpreadPct),
		MaxDeviationPct:      decimal.NewFromFloat(cfg.Detector.MaxPriceDeviationPct),
		MaxPoolFraction:      decimal.NewFromFloat(cfg.Detector.MaxPoolFraction),
		MinProfit:            decimal.NewFromFloat(cfg.Detector.MinProfitUSD),
		GasUnits:             uint64(cfg.Detector.GasUnits),
		SlippageToleranceBps: decimal.NewFromFloat(cfg.Detector.SlippageToleranceBps),
		SafetyChecks:         cfg.Detector.EnableSafetyChecks,
	})

	scorer := risk.New(risk.Weights{
		Inventory:  decimal.NewFromFloat(cfg.Risk.WeightInventory),
		Liquidity:  decimal.NewFromFloat(cfg.Risk.WeightLiquidity),
		Volatility: decimal.NewFromFloat(cfg.Risk.WeightVolatility),
	})

	inv := domain.NewInventory(decimal.NewFromFloat(cfg.MM.MaxPositionSizeETH))

	var quoter *mm.Engine
	if cfg.MM.Enabled {
		quoter = mm.New(mm.Config{
			Pair:               cfg.Market.Pair,
			BaseSpreadBps:      decimal.NewFromFloat(cfg.MM.BaseSpreadBps),
			RebalanceThreshold: decimal.NewFromFloat(cfg.MM.RebalanceThreshold),
			HoldCeiling:        decimal.NewFromFloat(cfg.MM.HoldCeiling),
		})
	}

	var simulator *sim.Simulator
	if cfg.Sim.Enabled {
		seed := cfg.Sim.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		logger.Info("execution simulator enabled", slog.Int64("seed", seed))
		simulator = sim.New(sim.Config{
			BaseGasGwei:          decimal.NewFromFloat(cfg.Sim.BaseGasGwei),
			MaxGasPriceGwei:      decimal.NewFromFloat(cfg.Sim.MaxGasPriceGwei),
			GasUnits:             uint64(cfg.Detector.GasUnits),
			SlippageToleranceBps: decimal.NewFromFloat(cfg.Sim.SlippageToleranceBps),
			RiskCeiling:          decimal.NewFromFloat(cfg.Sim.RiskCeiling),
		}, inv, rand.New(rand.NewSource(seed)))
	}

	deps.Cycle = NewCycle(
		CycleConfig{
			Pair:            cfg.Market.Pair,
			Interval:        cfg.Engine.CycleInterval.Duration,
			StalenessBound:  cfg.Engine.StalenessBound.Duration,
			TradeSize:       decimal.NewFromFloat(cfg.Detector.TradeSizeETH),
			FallbackGasGwei: decimal.NewFromFloat(cfg.Detector.FallbackGasGwei),
		},
		deps.Store,
		analyzer,
		det,
		scorer,
		quoter,
		simulator,
		inv,
		deps.Sink,
		pool,
		gasBreaker,
		logger,
	)

	return deps, cleanup, nil
}
