// Package batch estimates models across the whole ticker universe, fanning
// tickers out over a worker pool with rate limiting and per-task retries.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/config"
	"github.com/wonny/factorlens/pkg/logger"
)

// Estimator runs one model variant for a ticker over a window.
// *models.Orchestrator satisfies it.
type Estimator interface {
	Run(ctx context.Context, ticker string, variant contracts.ModelVariant, start, end time.Time) (*contracts.ModelResult, error)
}

// Task is one model estimation unit of work
type Task struct {
	Ticker  string
	Variant contracts.ModelVariant
	Years   int
}

func (t Task) String() string {
	return fmt.Sprintf("%s/%s/%dy", t.Ticker, t.Variant, t.Years)
}

// TaskFailure records a task that exhausted its retries
type TaskFailure struct {
	Task Task
	Err  error
}

// Report summarizes one batch run
type Report struct {
	Succeeded int
	Failed    []TaskFailure
	Duration  time.Duration
}

// defaultWindows are the estimation horizons refreshed by a batch run
var defaultWindows = []int{10, 5}

// defaultVariants are the model variants refreshed by a batch run; the
// five-factor set subsumes the smaller models for reporting purposes
var defaultVariants = []contracts.ModelVariant{contracts.FiveFactor, contracts.SixFactor}

// Runner drives a full-universe estimation pass. Each worker takes whole
// tickers so a fresh estimator session can reuse factor series across that
// ticker's windows and variants.
type Runner struct {
	universe     contracts.TickerUniverseProvider
	store        contracts.ResultsStore
	newEstimator func() Estimator
	logger       *logger.Logger

	workers    int
	maxRetries int
	limiter    *rate.Limiter
	retryDelay time.Duration
}

// NewRunner creates a batch runner. newEstimator is called once per ticker
// to open a fresh estimation session.
func NewRunner(
	universe contracts.TickerUniverseProvider,
	store contracts.ResultsStore,
	newEstimator func() Estimator,
	cfg config.BatchConfig,
	log *logger.Logger,
) *Runner {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		universe:     universe,
		store:        store,
		newEstimator: newEstimator,
		logger:       log.WithComponent("batch"),
		workers:      workers,
		maxRetries:   cfg.MaxRetries,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		retryDelay:   time.Second,
	}
}

// Run estimates the default windows and variants for every ticker in the
// universe, ending at the given date. Individual task failures are collected
// in the report; only universe or context errors abort the run.
func (r *Runner) Run(ctx context.Context, end time.Time) (*Report, error) {
	started := time.Now()

	tickers, err := r.universe.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"tickers": len(tickers),
		"workers": r.workers,
	}).Info("Batch run started")

	tickerCh := make(chan string)
	var mu sync.Mutex
	report := &Report{}

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerCh {
				succeeded, failed := r.runTicker(ctx, ticker, end)
				mu.Lock()
				report.Succeeded += succeeded
				report.Failed = append(report.Failed, failed...)
				mu.Unlock()
			}
		}()
	}

	for _, ticker := range tickers {
		if ctx.Err() != nil {
			close(tickerCh)
			wg.Wait()
			return report, ctx.Err()
		}
		select {
		case <-ctx.Done():
			close(tickerCh)
			wg.Wait()
			return report, ctx.Err()
		case tickerCh <- ticker:
		}
	}
	close(tickerCh)
	wg.Wait()

	report.Duration = time.Since(started)
	r.logger.WithFields(map[string]interface{}{
		"succeeded": report.Succeeded,
		"failed":    len(report.Failed),
		"duration":  report.Duration,
	}).Info("Batch run finished")

	return report, nil
}

// runTicker estimates every window and variant for one ticker with a fresh
// session, so factor construction is shared across that ticker's tasks
func (r *Runner) runTicker(ctx context.Context, ticker string, end time.Time) (succeeded int, failed []TaskFailure) {
	estimator := r.newEstimator()

	for _, years := range defaultWindows {
		start := end.AddDate(-years, 0, 0)
		for _, variant := range defaultVariants {
			task := Task{Ticker: ticker, Variant: variant, Years: years}
			if err := r.runTask(ctx, estimator, task, start, end); err != nil {
				failed = append(failed, TaskFailure{Task: task, Err: err})
				continue
			}
			succeeded++
		}
	}
	return succeeded, failed
}

// runTask runs one task with rate limiting and retries, then persists the
// result. Only provider failures are retried; data and regression failures
// are deterministic and fail the same way every attempt.
func (r *Runner) runTask(ctx context.Context, estimator Estimator, task Task, start, end time.Time) error {
	var lastErr error
	delay := r.retryDelay

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}

		result, err := estimator.Run(ctx, task.Ticker, task.Variant, start, end)
		if err == nil {
			if pushErr := r.store.Push(ctx, result); pushErr != nil {
				return fmt.Errorf("persist %s: %w", task, pushErr)
			}
			return nil
		}
		lastErr = err

		if attempt == r.maxRetries || !isRetryable(err) {
			break
		}
		r.logger.WithError(err).WithFields(map[string]interface{}{
			"task":    task.String(),
			"attempt": attempt + 1,
		}).Warn("Retrying batch task")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("task %s: %w", task, lastErr)
}

// isRetryable reports whether a task error is worth another attempt
func isRetryable(err error) bool {
	var provErr *contracts.ExternalProviderError
	return errors.As(err, &provErr)
}
