package ingest

import (
	"fmt"
	"time"

	"github.com/mauv0809/symbol-loader/internal/models"
)

// Normalizer turns raw exchange rows into insert-ready market symbols.
type Normalizer struct {
	currency string
	now      func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithCurrency overrides the currency symbol stripped from prices.
func WithCurrency(symbol string) Option {
	return func(n *Normalizer) { n.currency = symbol }
}

// WithClock overrides the capture-time source.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

// NewNormalizer creates a normalizer using "$" and the wall clock.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{currency: DefaultCurrency, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// CaptureTimestamp formats t as an SQL datetime literal with millisecond precision.
func CaptureTimestamp(t time.Time) string {
	return t.Truncate(time.Millisecond).Format(TimestampLayout)
}

// Normalize concatenates the sources in order and normalizes every row.
// All rows share the capture timestamp taken when the call starts. The
// first row with an unparseable number aborts the whole call.
func (n *Normalizer) Normalize(sources ...[]models.RawRecord) ([]models.MarketSymbol, error) {
	ts := CaptureTimestamp(n.now())

	total := 0
	for _, src := range sources {
		total += len(src)
	}

	out := make([]models.MarketSymbol, 0, total)
	for _, src := range sources {
		for _, rec := range src {
			sym, err := n.normalizeRecord(rec, ts)
			if err != nil {
				return nil, fmt.Errorf("row %d (%s): %w", len(out)+1, rec.Exchange, err)
			}
			out = append(out, sym)
		}
	}
	return out, nil
}

func (n *Normalizer) normalizeRecord(rec models.RawRecord, ts string) (models.MarketSymbol, error) {
	fields := make(map[string]*string, len(projected))
	for _, col := range projected {
		fields[col] = trimmed(rec.Field(col))
	}

	sym := models.MarketSymbol{
		Symbol:       Canonical(fields[models.ColSymbol]),
		Country:      Canonical(fields[models.ColCountry]),
		Industry:     Canonical(fields[models.ColIndustry]),
		Sector:       Canonical(fields[models.ColSector]),
		Exchange:     rec.Exchange,
		ETLTimestamp: ts,
	}

	if name := fields[models.ColName]; name != nil {
		t := TruncateName(*name, MaxNameLength)
		sym.Name = Canonical(&t)
	}

	if raw := Canonical(fields[models.ColLastSale]); raw != nil {
		price, err := ParsePrice(*raw, n.currency)
		if err != nil {
			return models.MarketSymbol{}, err
		}
		sym.LastPrice = &price
	}

	if raw := Canonical(fields[models.ColVolume]); raw != nil {
		vol, err := ParseVolume(*raw)
		if err != nil {
			return models.MarketSymbol{}, err
		}
		sym.Volume = &vol
	}

	if raw := fields[models.ColIPOYear]; raw != nil {
		if year, ok := ParseIPOYear(*raw); ok {
			sym.IPOYear = Canonical(&year)
		}
	}

	return sym, nil
}
