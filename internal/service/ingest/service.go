package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wellcast/internal/domain/models"
	"github.com/mamadbah2/wellcast/pkg/clients/marketdata"
)

const feedDateLayout = "2006-01-02"

// Store persists validated market data.
type Store interface {
	AppendPrices(ctx context.Context, prices []models.PriceRecord) error
	AppendExchangeRates(ctx context.Context, rates []models.ExchangeRateRecord) error
}

// Result summarizes one ingest run.
type Result struct {
	Prices        int
	ExchangeRates int
	Skipped       int
}

// Service copies market data from the feed into the sheet store.
type Service struct {
	client marketdata.Client
	store  Store
	logger *zap.Logger
}

// NewService wires a new ingest service instance.
func NewService(client marketdata.Client, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, store: store, logger: logger}
}

// Run fetches prices and exchange rates quoted in [start, end] and appends the valid ones.
// Invalid feed items are skipped and counted.
func (s *Service) Run(ctx context.Context, start, end time.Time) (Result, error) {
	var res Result

	feedPrices, err := s.client.FetchOilPrices(ctx, start, end)
	if err != nil {
		return res, err
	}
	prices := make([]models.PriceRecord, 0, len(feedPrices))
	for _, p := range feedPrices {
		record, err := priceRecord(p)
		if err != nil {
			s.logger.Warn("skip invalid price from feed", zap.String("date", p.Date), zap.Error(err))
			res.Skipped++
			continue
		}
		prices = append(prices, record)
	}
	if err := s.store.AppendPrices(ctx, prices); err != nil {
		return res, fmt.Errorf("store prices: %w", err)
	}
	res.Prices = len(prices)

	feedRates, err := s.client.FetchExchangeRates(ctx, start, end)
	if err != nil {
		return res, err
	}
	rates := make([]models.ExchangeRateRecord, 0, len(feedRates))
	for _, r := range feedRates {
		record, err := exchangeRateRecord(r)
		if err != nil {
			s.logger.Warn("skip invalid exchange rate from feed", zap.String("date", r.Date), zap.Error(err))
			res.Skipped++
			continue
		}
		rates = append(rates, record)
	}
	if err := s.store.AppendExchangeRates(ctx, rates); err != nil {
		return res, fmt.Errorf("store exchange rates: %w", err)
	}
	res.ExchangeRates = len(rates)

	s.logger.Info("market data ingested",
		zap.Int("prices", res.Prices),
		zap.Int("exchange_rates", res.ExchangeRates),
		zap.Int("skipped", res.Skipped))
	return res, nil
}

func priceRecord(p marketdata.OilPrice) (models.PriceRecord, error) {
	date, err := time.Parse(feedDateLayout, strings.TrimSpace(p.Date))
	if err != nil {
		return models.PriceRecord{}, fmt.Errorf("parse date: %w", err)
	}
	record := models.PriceRecord{
		ReferenceDate: date,
		FieldCode:     p.FieldCode,
		FieldName:     p.FieldName,
		Price:         p.Price,
	}
	return record, record.Validate()
}

func exchangeRateRecord(r marketdata.ExchangeRate) (models.ExchangeRateRecord, error) {
	date, err := time.Parse(feedDateLayout, strings.TrimSpace(r.Date))
	if err != nil {
		return models.ExchangeRateRecord{}, fmt.Errorf("parse date: %w", err)
	}
	record := models.ExchangeRateRecord{ReferenceDate: date, Rate: r.Rate}
	return record, record.Validate()
}
