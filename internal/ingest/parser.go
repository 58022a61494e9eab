package ingest

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mauv0809/symbol-loader/internal/etlerr"
	"github.com/shopspring/decimal"
)

// buildColumnIndex creates a map from column name to row index.
func buildColumnIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, col := range columns {
		idx[col] = i
	}
	return idx
}

// getCell safely extracts a cell, returning nil for absent columns and
// missing-value tokens.
func getCell(row []string, idx map[string]int, col string) *string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return nil
	}
	v := row[i]
	if _, missing := missingTokens[v]; missing {
		return nil
	}
	return &v
}

// ParsePrice strips the currency symbol and thousands separators from s and
// returns the value rounded half up to 2 decimal places.
func ParsePrice(s, currency string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	if currency != "" {
		clean = strings.ReplaceAll(clean, currency, "")
	}
	clean = strings.ReplaceAll(clean, ",", "")
	d, err := decimal.NewFromString(strings.TrimSpace(clean))
	if err != nil {
		return decimal.Decimal{}, etlerr.Format("price", s, err)
	}
	return d.Round(2), nil
}

// ParseVolume parses an integer share count. A decimal form with no
// fractional part ("1200.0") is accepted.
func ParseVolume(s string) (int64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, etlerr.Format("volume", s, err)
	}
	if !d.IsInteger() {
		return 0, etlerr.Format("volume", s, errors.New("not an integer"))
	}
	return d.IntPart(), nil
}

// ParseIPOYear renders the listing year as an integer string. Anything that
// is not a whole number yields false.
func ParseIPOYear(s string) (string, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsInteger() {
		return "", false
	}
	return strconv.FormatInt(d.IntPart(), 10), true
}

// TruncateName keeps the first limit characters of s.
func TruncateName(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}

// Canonical maps the blank and not-a-number literals to nil. Applying it to
// its own output is a no-op.
func Canonical(s *string) *string {
	if s == nil {
		return nil
	}
	if _, ok := nullLiterals[*s]; ok {
		return nil
	}
	return s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
