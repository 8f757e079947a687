package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/wellcast/internal/config"
)

const queryDateLayout = "2006-01-02"

// Client exposes the market-data feed operations used by the application.
type Client interface {
	FetchOilPrices(ctx context.Context, start, end time.Time) ([]OilPrice, error)
	FetchExchangeRates(ctx context.Context, start, end time.Time) ([]ExchangeRate, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient       *resty.Client
	oilPricePath     string
	exchangeRatePath string
}

// NewClient builds a market-data client using the provided configuration values.
func NewClient(cfg config.MarketDataConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if cfg.APIKey != "" {
		restyClient.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &APIClient{
		httpClient:       restyClient,
		oilPricePath:     cfg.OilPricePath,
		exchangeRatePath: cfg.ExchangeRatePath,
	}
}

// OilPrice is one quoted price as published by the feed.
type OilPrice struct {
	Date      string  `json:"date"`
	FieldCode string  `json:"field_code"`
	FieldName string  `json:"field_name"`
	Price     float64 `json:"price"`
}

// ExchangeRate is one BRL/USD quote as published by the feed.
type ExchangeRate struct {
	Date string  `json:"date"`
	Rate float64 `json:"rate"`
}

type oilPriceResponse struct {
	Data []OilPrice `json:"data"`
}

type exchangeRateResponse struct {
	Data []ExchangeRate `json:"data"`
}

// apiError represents the feed's error payload.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchOilPrices returns the prices quoted between start and end inclusive.
func (c *APIClient) FetchOilPrices(ctx context.Context, start, end time.Time) ([]OilPrice, error) {
	result := new(oilPriceResponse)
	if err := c.get(ctx, c.oilPricePath, start, end, result); err != nil {
		return nil, fmt.Errorf("fetch oil prices: %w", err)
	}
	return result.Data, nil
}

// FetchExchangeRates returns the exchange rates quoted between start and end inclusive.
func (c *APIClient) FetchExchangeRates(ctx context.Context, start, end time.Time) ([]ExchangeRate, error) {
	result := new(exchangeRateResponse)
	if err := c.get(ctx, c.exchangeRatePath, start, end, result); err != nil {
		return nil, fmt.Errorf("fetch exchange rates: %w", err)
	}
	return result.Data, nil
}

func (c *APIClient) get(ctx context.Context, path string, start, end time.Time, result any) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"start": start.Format(queryDateLayout),
			"end":   end.Format(queryDateLayout),
		}).
		SetResult(result).
		SetError(apiErr).
		Get(path)
	if err != nil {
		return err
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Error.Message
		if message == "" {
			message = resp.Status()
		}
		return fmt.Errorf("market data api error: status=%d, message=%s", resp.StatusCode(), message)
	}
	return nil
}
