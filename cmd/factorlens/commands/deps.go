package commands

import (
	"fmt"

	"github.com/wonny/factorlens/internal/batch"
	"github.com/wonny/factorlens/internal/external/fred"
	"github.com/wonny/factorlens/internal/factors"
	"github.com/wonny/factorlens/internal/marketdata"
	"github.com/wonny/factorlens/internal/models"
	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/database"
	"github.com/wonny/factorlens/pkg/httputil"
	"github.com/wonny/factorlens/pkg/logger"
	"github.com/wonny/factorlens/pkg/redis"
)

// deps holds the wired application dependencies shared by the commands
type deps struct {
	cfg    *config.Config
	logger *logger.Logger
	db     *database.DB
	redis  *redis.Client

	prices       *marketdata.PriceRepository
	fundamentals *marketdata.FundamentalsRepository
	universe     *marketdata.UniverseRepository
	results      *marketdata.ResultsRepository
	rates        *fred.Client
	cache        *redis.Cache
}

// setup loads config and connects every shared dependency
func setup() (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	cache := redis.NewCache(redisClient, "factorlens")
	limiter := redis.NewRateLimiter(redisClient, "factorlens")

	httpClient := httputil.New(log).WithRateLimiter(limiter, redis.FREDRateLimit)
	fredClient := fred.New(httpClient, cache, cfg.FRED.APIKey, cfg.FRED.BaseURL, log)

	return &deps{
		cfg:    cfg,
		logger: log,
		db:     db,
		redis:  redisClient,

		prices:       marketdata.NewPriceRepository(db.Pool),
		fundamentals: marketdata.NewFundamentalsRepository(db.Pool),
		universe:     marketdata.NewUniverseRepository(db.Pool),
		results:      marketdata.NewResultsRepository(db.Pool),
		rates:        fredClient,
		cache:        cache,
	}, nil
}

// close releases the shared connections
func (d *deps) close() {
	d.db.Close()
	if err := d.redis.Close(); err != nil {
		d.logger.WithError(err).Warn("Failed to close redis client")
	}
}

// newOrchestrator opens a fresh estimation session
func (d *deps) newOrchestrator() *models.Orchestrator {
	engine := factors.NewEngine(d.prices, d.fundamentals, d.universe, d.logger)
	return models.NewOrchestrator(
		d.prices, d.rates, engine,
		d.cfg.Market.IndexTicker, d.cfg.Market.RiskFreeSeries,
		d.logger,
	)
}

// newEstimator adapts newOrchestrator to the batch runner's factory shape
func (d *deps) newEstimator() batch.Estimator {
	return d.newOrchestrator()
}

// newBatchRunner wires a full-universe batch runner
func (d *deps) newBatchRunner() *batch.Runner {
	return batch.NewRunner(d.universe, d.results, d.newEstimator, d.cfg.Batch, d.logger)
}
