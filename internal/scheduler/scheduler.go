package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellcast/internal/config"
	"github.com/mamadbah2/wellcast/internal/domain/models"
	"github.com/mamadbah2/wellcast/internal/service/ingest"
)

const (
	jobTimeout   = 2 * time.Minute
	ingestWindow = 7 * 24 * time.Hour
)

// Ingester pulls market data for a date window.
type Ingester interface {
	Run(ctx context.Context, start, end time.Time) (ingest.Result, error)
}

// RevenueComputer recomputes and stores financial summaries.
type RevenueComputer interface {
	ComputeRevenue(ctx context.Context) ([]models.FinancialSummary, error)
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron       *cron.Cron
	ingester   Ingester
	financials RevenueComputer
	cfg        config.ScheduleConfig
	now        func() time.Time
	logger     *zap.Logger
}

// NewScheduler creates a new scheduler running in the configured timezone.
func NewScheduler(cfg config.ScheduleConfig, ingester Ingester, financials RevenueComputer, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(loc)),
		ingester:   ingester,
		financials: financials,
		cfg:        cfg,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// Start registers the jobs and starts the scheduler. Empty cron expressions disable a job.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.cfg.IngestCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.IngestCron, s.ingestMarketData); err != nil {
			return fmt.Errorf("schedule market data ingest: %w", err)
		}
	}
	if s.cfg.FinancialsCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.FinancialsCron, s.computeFinancials); err != nil {
			return fmt.Errorf("schedule financials: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) ingestMarketData() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	end := s.now()
	res, err := s.ingester.Run(ctx, end.Add(-ingestWindow), end)
	if err != nil {
		s.logger.Error("market data ingest failed", zap.Error(err))
		return
	}
	s.logger.Info("market data ingest completed",
		zap.Int("prices", res.Prices),
		zap.Int("exchange_rates", res.ExchangeRates),
		zap.Int("skipped", res.Skipped))
}

func (s *Scheduler) computeFinancials() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	summaries, err := s.financials.ComputeRevenue(ctx)
	if err != nil {
		s.logger.Error("financials computation failed", zap.Error(err))
		return
	}
	s.logger.Info("financials computation completed", zap.Int("summaries", len(summaries)))
}
