package ingest

import (
	"github.com/mauv0809/symbol-loader/internal/models"
)

// Source is one exchange export to be read.
type Source struct {
	Path     string
	Exchange models.Exchange
}

// missingTokens are cell values read as "no value" on extraction.
var missingTokens = map[string]struct{}{
	"N/A":  {},
	"null": {},
	"":     {},
	"n/a":  {},
	"NULL": {},
	"Null": {},
}

// nullLiterals are values collapsed to nil after all coercions.
var nullLiterals = map[string]struct{}{
	"":     {},
	"nan":  {},
	"<NA>": {},
}

// projected is the column set retained from the source files.
var projected = []string{
	models.ColSymbol,
	models.ColName,
	models.ColLastSale,
	models.ColVolume,
	models.ColIPOYear,
	models.ColCountry,
	models.ColIndustry,
	models.ColSector,
}

const (
	// DefaultCurrency is stripped from price cells before parsing.
	DefaultCurrency = "$"
	// MaxNameLength is the stock_name column width.
	MaxNameLength = 65
	// TimestampLayout renders the capture time as an SQL datetime literal.
	TimestampLayout = "2006-01-02 15:04:05.000"
)
