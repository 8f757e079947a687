package models

import (
	"errors"
	"fmt"
	"time"
)

// Column names shared by the record types and the tabular engine.
const (
	ColReferenceDate = "reference_date"
	ColWellCode      = "well_code"
	ColOilProd       = "oil_prod"
	ColGasProd       = "gas_prod"
	ColWaterProd     = "water_prod"
	ColFieldCode     = "field_code"
	ColFieldName     = "field_name"
	ColPrice         = "price"
	ColRate          = "rate"
)

var (
	productionColumns   = []string{ColReferenceDate, ColWellCode, ColOilProd, ColGasProd, ColWaterProd}
	priceColumns        = []string{ColReferenceDate, ColFieldCode, ColFieldName, ColPrice}
	exchangeRateColumns = []string{ColReferenceDate, ColRate}
)

// ProductionRecord captures monthly volumes reported for a well.
type ProductionRecord struct {
	ReferenceDate time.Time `json:"reference_date" bson:"reference_date"`
	WellCode      string    `json:"well_code" bson:"well_code"`
	OilProd       float64   `json:"oil_prod" bson:"oil_prod"`
	GasProd       float64   `json:"gas_prod" bson:"gas_prod"`
	WaterProd     float64   `json:"water_prod" bson:"water_prod"`
}

// Fields lists the production columns.
func (p ProductionRecord) Fields() []string { return productionColumns }

// Value returns the column value by name.
func (p ProductionRecord) Value(field string) (any, bool) {
	switch field {
	case ColReferenceDate:
		return p.ReferenceDate, true
	case ColWellCode:
		return p.WellCode, true
	case ColOilProd:
		return p.OilProd, true
	case ColGasProd:
		return p.GasProd, true
	case ColWaterProd:
		return p.WaterProd, true
	}
	return nil, false
}

// Validate rejects negative volumes and missing keys.
func (p ProductionRecord) Validate() error {
	var errs []error
	if p.WellCode == "" {
		errs = append(errs, errors.New("well_code must be provided"))
	}
	if p.ReferenceDate.IsZero() {
		errs = append(errs, errors.New("reference_date must be provided"))
	}
	for name, v := range map[string]float64{ColOilProd: p.OilProd, ColGasProd: p.GasProd, ColWaterProd: p.WaterProd} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must be non-negative, got %v", name, v))
		}
	}
	return errors.Join(errs...)
}

// PriceRecord is a commodity price quoted for a field on a date.
type PriceRecord struct {
	ReferenceDate time.Time `json:"reference_date" bson:"reference_date"`
	FieldCode     string    `json:"field_code" bson:"field_code"`
	FieldName     string    `json:"field_name" bson:"field_name"`
	Price         float64   `json:"price" bson:"price"`
}

// Fields lists the price columns.
func (p PriceRecord) Fields() []string { return priceColumns }

// Value returns the column value by name.
func (p PriceRecord) Value(field string) (any, bool) {
	switch field {
	case ColReferenceDate:
		return p.ReferenceDate, true
	case ColFieldCode:
		return p.FieldCode, true
	case ColFieldName:
		return p.FieldName, true
	case ColPrice:
		return p.Price, true
	}
	return nil, false
}

// Validate rejects non-positive prices.
func (p PriceRecord) Validate() error {
	if p.ReferenceDate.IsZero() {
		return errors.New("reference_date must be provided")
	}
	if p.Price <= 0 {
		return fmt.Errorf("price must be positive, got %v", p.Price)
	}
	return nil
}

// ExchangeRateRecord is the BRL/USD rate on a date.
type ExchangeRateRecord struct {
	ReferenceDate time.Time `json:"reference_date" bson:"reference_date"`
	Rate          float64   `json:"rate" bson:"rate"`
}

// Fields lists the exchange-rate columns.
func (e ExchangeRateRecord) Fields() []string { return exchangeRateColumns }

// Value returns the column value by name.
func (e ExchangeRateRecord) Value(field string) (any, bool) {
	switch field {
	case ColReferenceDate:
		return e.ReferenceDate, true
	case ColRate:
		return e.Rate, true
	}
	return nil, false
}

// Validate rejects non-positive rates.
func (e ExchangeRateRecord) Validate() error {
	if e.ReferenceDate.IsZero() {
		return errors.New("reference_date must be provided")
	}
	if e.Rate <= 0 {
		return fmt.Errorf("rate must be positive, got %v", e.Rate)
	}
	return nil
}

// Well is the metadata of a producing well.
type Well struct {
	WellCode  string `json:"well_code"`
	WellName  string `json:"well_name"`
	FieldCode string `json:"field_code"`
	FieldName string `json:"field_name"`
}

// ProductionResponse is the outward shape of a production record.
type ProductionResponse struct {
	ReferenceDate string  `json:"reference_date"`
	WellCode      string  `json:"well_code"`
	OilProd       float64 `json:"oil_prod"`
	GasProd       float64 `json:"gas_prod"`
	WaterProd     float64 `json:"water_prod"`
}

// NewProductionResponse converts a record into its response DTO.
func NewProductionResponse(p ProductionRecord) ProductionResponse {
	return ProductionResponse{
		ReferenceDate: p.ReferenceDate.Format(time.DateOnly),
		WellCode:      p.WellCode,
		OilProd:       p.OilProd,
		GasProd:       p.GasProd,
		WaterProd:     p.WaterProd,
	}
}
