package models

import "time"

// daysPerMonth converts monthly volumes into daily ones.
const daysPerMonth = 30.0

// FinancialSummary is the oil revenue of one production row, stored in MongoDB.
type FinancialSummary struct {
	ReferenceDate time.Time `bson:"reference_date" json:"reference_date"`
	WellCode      string    `bson:"well_code" json:"well_code"`
	FieldCode     string    `bson:"field_code" json:"field_code"`
	OilProd       float64   `bson:"oil_prod" json:"oil_prod"`
	Price         float64   `bson:"price" json:"price"`
	Rate          float64   `bson:"rate" json:"rate"`
	RevenueUSD    string    `bson:"revenue_usd" json:"revenue_usd"`
	RevenueBRL    string    `bson:"revenue_brl" json:"revenue_brl"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
}

// FieldProduction groups the production records of a field.
type FieldProduction struct {
	FieldCode   string             `json:"field_code"`
	Productions []ProductionRecord `json:"-"`
}

// TotalOilKBD converts the summed monthly barrels into thousand barrels per day.
func (f FieldProduction) TotalOilKBD() float64 {
	if len(f.Productions) == 0 {
		return 0
	}
	var total float64
	for _, p := range f.Productions {
		total += p.OilProd
	}
	return total / daysPerMonth / 1000
}
