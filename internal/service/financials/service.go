package financials

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellcast/internal/domain/models"
	"github.com/mamadbah2/wellcast/internal/tabular"
)

// SourceStore exposes the datasets a revenue run reads.
type SourceStore interface {
	ListProduction(ctx context.Context) ([]models.ProductionRecord, error)
	ListPrices(ctx context.Context) ([]models.PriceRecord, error)
	ListExchangeRates(ctx context.Context) ([]models.ExchangeRateRecord, error)
	ListWells(ctx context.Context) ([]models.Well, error)
}

// SummaryStore persists computed summaries.
type SummaryStore interface {
	SaveFinancialSummaries(ctx context.Context, summaries []models.FinancialSummary) error
}

// Service computes oil revenue from production, prices and exchange rates.
type Service struct {
	source    SourceStore
	summaries SummaryStore
	engine    *tabular.Engine
	now       func() time.Time
	logger    *zap.Logger
}

// NewService wires a new financials service instance.
func NewService(source SourceStore, summaries SummaryStore, engine *tabular.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = tabular.NewEngine(logger.Named("tabular"))
	}
	return &Service{source: source, summaries: summaries, engine: engine, now: time.Now, logger: logger}
}

// ComputeRevenue joins production with prices and rates, prices each matched row in USD and
// BRL and stores the result. Rows without a price or rate for their date are skipped. A price
// quoted for a field only applies to wells of that field.
func (s *Service) ComputeRevenue(ctx context.Context) ([]models.FinancialSummary, error) {
	production, err := s.source.ListProduction(ctx)
	if err != nil {
		return nil, fmt.Errorf("load production: %w", err)
	}
	prices, err := s.source.ListPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	rates, err := s.source.ListExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exchange rates: %w", err)
	}

	wells, err := s.wellsOf(ctx, production)
	if err != nil {
		return nil, err
	}

	createdAt := s.now().UTC()
	skipped := 0
	summaries := make([]models.FinancialSummary, 0, len(production))
	for _, row := range tabular.Join(s.engine, production, prices, rates) {
		price, okPrice := row[models.ColPrice].(float64)
		rate, okRate := row[models.ColRate].(float64)
		if !okPrice || !okRate {
			skipped++
			continue
		}

		wellCode, _ := row[models.ColWellCode].(string)
		fieldCode, _ := row[models.ColFieldCode].(string)
		if well := wells[wellCode]; well != nil && fieldCode != "" && well.FieldCode != "" && fieldCode != well.FieldCode {
			continue
		}

		date, _ := row[models.ColReferenceDate].(time.Time)
		oil, _ := row[models.ColOilProd].(float64)

		usd := decimal.NewFromFloat(oil).Mul(decimal.NewFromFloat(price))
		brl := usd.Mul(decimal.NewFromFloat(rate))
		summaries = append(summaries, models.FinancialSummary{
			ReferenceDate: date,
			WellCode:      wellCode,
			FieldCode:     fieldCode,
			OilProd:       oil,
			Price:         price,
			Rate:          rate,
			RevenueUSD:    usd.StringFixed(2),
			RevenueBRL:    brl.StringFixed(2),
			CreatedAt:     createdAt,
		})
	}

	if err := s.summaries.SaveFinancialSummaries(ctx, summaries); err != nil {
		return nil, fmt.Errorf("save financial summaries: %w", err)
	}

	s.logger.Info("financial summaries computed",
		zap.Int("summaries", len(summaries)),
		zap.Int("skipped", skipped))
	return summaries, nil
}

// FieldTotals groups production by the field of each well, ordered by field code. Wells
// missing from the registry are grouped under an empty field code.
func (s *Service) FieldTotals(ctx context.Context) ([]models.FieldProduction, error) {
	production, err := s.source.ListProduction(ctx)
	if err != nil {
		return nil, fmt.Errorf("load production: %w", err)
	}
	wells, err := s.wellsOf(ctx, production)
	if err != nil {
		return nil, err
	}

	byField := make(map[string]*models.FieldProduction)
	for _, p := range production {
		fieldCode := ""
		if well := wells[p.WellCode]; well != nil {
			fieldCode = well.FieldCode
		}
		group, ok := byField[fieldCode]
		if !ok {
			group = &models.FieldProduction{FieldCode: fieldCode}
			byField[fieldCode] = group
		}
		group.Productions = append(group.Productions, p)
	}

	out := make([]models.FieldProduction, 0, len(byField))
	for _, group := range byField {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FieldCode < out[j].FieldCode })
	return out, nil
}

// wellsOf indexes the registry by upper-cased well code with a single read, keeping only the
// wells that appear in production.
func (s *Service) wellsOf(ctx context.Context, production []models.ProductionRecord) (map[string]*models.Well, error) {
	registry, err := s.source.ListWells(ctx)
	if err != nil {
		return nil, fmt.Errorf("load wells: %w", err)
	}

	byCode := make(map[string]*models.Well, len(registry))
	for i := range registry {
		byCode[strings.ToUpper(registry[i].WellCode)] = &registry[i]
	}

	wells := make(map[string]*models.Well)
	for _, p := range production {
		if _, ok := wells[p.WellCode]; ok {
			continue
		}
		well := byCode[strings.ToUpper(p.WellCode)]
		if well == nil {
			s.logger.Debug("well missing from registry", zap.String("well_code", p.WellCode))
		}
		wells[p.WellCode] = well
	}
	return wells, nil
}
