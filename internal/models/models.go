package models

import (
	"github.com/shopspring/decimal"
)

// Exchange is the listing venue a source file was exported from.
type Exchange string

const (
	ExchangeNYSE   Exchange = "NYSE"
	ExchangeNASDAQ Exchange = "NASDAQ"
)

// Source column names recognised in the exchange CSV exports.
const (
	ColSymbol   = "Symbol"
	ColName     = "Name"
	ColLastSale = "Last Sale"
	ColVolume   = "Volume"
	ColIPOYear  = "IPO Year"
	ColCountry  = "Country"
	ColIndustry = "Industry"
	ColSector   = "Sector"
)

// RawRecord is one row of a source file, keyed by source column name.
// A nil value means the cell held a missing-value token.
type RawRecord struct {
	Exchange Exchange
	Fields   map[string]*string
}

// Field returns the raw cell for col, nil when absent or missing.
func (r RawRecord) Field(col string) *string {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[col]
}

// MarketSymbol is a normalized listing row ready for insertion.
// nil is the only null representation used by any field.
type MarketSymbol struct {
	Symbol       *string          `json:"symbol"`
	Name         *string          `json:"stock_name"`
	LastPrice    *decimal.Decimal `json:"last_price"`
	Volume       *int64           `json:"last_volume"`
	IPOYear      *string          `json:"ipo_year"`
	Country      *string          `json:"country"` // projected but not stored
	Industry     *string          `json:"industry"`
	Sector       *string          `json:"sector"`
	Exchange     Exchange         `json:"exchange"`
	ETLTimestamp string           `json:"extraction_timestamp"`
}

// Columns is the target table column list, in Row order.
var Columns = []string{
	"symbol",
	"stock_name",
	"LastPrice",
	"LastVolume",
	"IPO_year",
	"industry",
	"sector",
	"exchange",
	"Extraction_Timestamp",
}

// Row returns the positional insert values for the symbol, one per Columns entry.
func (m MarketSymbol) Row() []any {
	return []any{
		strPtr(m.Symbol),
		strPtr(m.Name),
		decimalPtr(m.LastPrice),
		int64Ptr(m.Volume),
		strPtr(m.IPOYear),
		strPtr(m.Industry),
		strPtr(m.Sector),
		string(m.Exchange),
		m.ETLTimestamp,
	}
}

// The helpers below turn nil pointers into untyped nil so drivers bind SQL NULL.

func strPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func decimalPtr(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

func int64Ptr(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}
