package sheets

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wellcast/internal/config"
	"github.com/mamadbah2/wellcast/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Store maps spreadsheet tabs onto production, price, exchange-rate and well records.
// Header rows and malformed or invalid rows are skipped.
type Store struct {
	repo   Repository
	ranges config.SheetRanges
	logger *zap.Logger
}

// NewStore wires a Store over repo.
func NewStore(repo Repository, ranges config.SheetRanges, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{repo: repo, ranges: ranges, logger: logger}
}

// ListProduction returns every production row in sheet order.
func (s *Store) ListProduction(ctx context.Context) ([]models.ProductionRecord, error) {
	rows, err := s.repo.ReadRange(ctx, s.ranges.Production)
	if err != nil {
		return nil, fmt.Errorf("load production range: %w", err)
	}

	out := make([]models.ProductionRecord, 0, len(rows))
	for _, row := range rows {
		record, err := parseProductionRow(row)
		if err != nil {
			s.logger.Debug("skip production row", zap.Any("row", row), zap.Error(err))
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// FindByWellCode returns a well's production within [start, end], ascending by date. Codes
// match case-insensitively, like GetByWellCode.
func (s *Store) FindByWellCode(ctx context.Context, wellCode string, start, end *time.Time) ([]models.ProductionRecord, error) {
	all, err := s.ListProduction(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.ProductionRecord
	for _, p := range all {
		if !strings.EqualFold(p.WellCode, wellCode) {
			continue
		}
		if start != nil && p.ReferenceDate.Before(*start) {
			continue
		}
		if end != nil && p.ReferenceDate.After(*end) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReferenceDate.Before(out[j].ReferenceDate)
	})
	return out, nil
}

// ListPrices returns every price row.
func (s *Store) ListPrices(ctx context.Context) ([]models.PriceRecord, error) {
	rows, err := s.repo.ReadRange(ctx, s.ranges.Prices)
	if err != nil {
		return nil, fmt.Errorf("load prices range: %w", err)
	}

	out := make([]models.PriceRecord, 0, len(rows))
	for _, row := range rows {
		if len(row) < 4 {
			continue
		}
		date, err := parseDate(row[0])
		if err != nil {
			s.logger.Debug("skip price row with invalid date", zap.Any("value", row[0]), zap.Error(err))
			continue
		}
		price, err := parseFloat(row[3])
		if err != nil {
			s.logger.Debug("skip price row with invalid price", zap.Any("value", row[3]), zap.Error(err))
			continue
		}
		record := models.PriceRecord{
			ReferenceDate: date,
			FieldCode:     cell(row, 1),
			FieldName:     cell(row, 2),
			Price:         price,
		}
		if err := record.Validate(); err != nil {
			s.logger.Warn("reject invalid price row", zap.Any("row", row), zap.Error(err))
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// ListExchangeRates returns every exchange-rate row.
func (s *Store) ListExchangeRates(ctx context.Context) ([]models.ExchangeRateRecord, error) {
	rows, err := s.repo.ReadRange(ctx, s.ranges.ExchangeRates)
	if err != nil {
		return nil, fmt.Errorf("load exchange rates range: %w", err)
	}

	out := make([]models.ExchangeRateRecord, 0, len(rows))
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		date, err := parseDate(row[0])
		if err != nil {
			s.logger.Debug("skip rate row with invalid date", zap.Any("value", row[0]), zap.Error(err))
			continue
		}
		rate, err := parseFloat(row[1])
		if err != nil {
			s.logger.Debug("skip rate row with invalid rate", zap.Any("value", row[1]), zap.Error(err))
			continue
		}
		record := models.ExchangeRateRecord{ReferenceDate: date, Rate: rate}
		if err := record.Validate(); err != nil {
			s.logger.Warn("reject invalid rate row", zap.Any("row", row), zap.Error(err))
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

// ListWells returns every well in the registry. The header row and rows without a code are skipped.
func (s *Store) ListWells(ctx context.Context) ([]models.Well, error) {
	rows, err := s.repo.ReadRange(ctx, s.ranges.Wells)
	if err != nil {
		return nil, fmt.Errorf("load wells range: %w", err)
	}

	out := make([]models.Well, 0, len(rows))
	for _, row := range rows {
		code := cell(row, 0)
		if code == "" || strings.EqualFold(code, models.ColWellCode) {
			continue
		}
		out = append(out, models.Well{
			WellCode:  code,
			WellName:  cell(row, 1),
			FieldCode: cell(row, 2),
			FieldName: cell(row, 3),
		})
	}
	return out, nil
}

// GetByWellCode returns the well or nil when the code is unknown. Codes match case-insensitively.
func (s *Store) GetByWellCode(ctx context.Context, wellCode string) (*models.Well, error) {
	wells, err := s.ListWells(ctx)
	if err != nil {
		return nil, err
	}

	for i := range wells {
		if strings.EqualFold(wells[i].WellCode, wellCode) {
			return &wells[i], nil
		}
	}
	return nil, nil
}

// AppendPrices writes price records to the prices tab.
func (s *Store) AppendPrices(ctx context.Context, prices []models.PriceRecord) error {
	rows := make([][]interface{}, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, []interface{}{p.ReferenceDate.Format(dateLayout), p.FieldCode, p.FieldName, p.Price})
	}
	return s.repo.WriteRows(ctx, s.ranges.Prices, rows)
}

// AppendExchangeRates writes exchange-rate records to the rates tab.
func (s *Store) AppendExchangeRates(ctx context.Context, rates []models.ExchangeRateRecord) error {
	rows := make([][]interface{}, 0, len(rates))
	for _, r := range rates {
		rows = append(rows, []interface{}{r.ReferenceDate.Format(dateLayout), r.Rate})
	}
	return s.repo.WriteRows(ctx, s.ranges.ExchangeRates, rows)
}

func parseProductionRow(row []interface{}) (models.ProductionRecord, error) {
	if len(row) < 3 {
		return models.ProductionRecord{}, fmt.Errorf("expected at least 3 cells, got %d", len(row))
	}
	date, err := parseDate(row[0])
	if err != nil {
		return models.ProductionRecord{}, err
	}

	volumes := [3]float64{}
	for i := range volumes {
		if len(row) <= 2+i || cell(row, 2+i) == "" {
			continue
		}
		v, err := parseFloat(row[2+i])
		if err != nil {
			return models.ProductionRecord{}, err
		}
		volumes[i] = v
	}

	record := models.ProductionRecord{
		ReferenceDate: date,
		WellCode:      cell(row, 1),
		OilProd:       volumes[0],
		GasProd:       volumes[1],
		WaterProd:     volumes[2],
	}
	return record, record.Validate()
}

func cell(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}

func parseDate(value interface{}) (time.Time, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return time.Parse(dateLayout, str)
}

func parseFloat(value interface{}) (float64, error) {
	str := strings.ReplaceAll(strings.TrimSpace(fmt.Sprint(value)), ",", "")
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.ParseFloat(str, 64)
}
