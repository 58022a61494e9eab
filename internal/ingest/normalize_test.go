package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/mauv0809/symbol-loader/internal/etlerr"
	"github.com/mauv0809/symbol-loader/internal/models"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 8, 14, 5, 9, 123456789, time.UTC)

func fixedClock() time.Time { return fixedNow }

func raw(exchange models.Exchange, kv ...string) models.RawRecord {
	fields := make(map[string]*string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		v := kv[i+1]
		fields[kv[i]] = &v
	}
	return models.RawRecord{Exchange: exchange, Fields: fields}
}

func TestCaptureTimestamp(t *testing.T) {
	require.Equal(t, "2024-03-08 14:05:09.123", CaptureTimestamp(fixedNow))
	require.Equal(t, "2024-03-08 14:05:09.000",
		CaptureTimestamp(time.Date(2024, 3, 8, 14, 5, 9, 0, time.UTC)))
}

func TestNormalize_TwoSources(t *testing.T) {
	nyse := []models.RawRecord{
		raw(models.ExchangeNYSE, "Symbol", "AAA", "Last Sale", "$10.005", "IPO Year", "2020"),
	}
	nasdaq := []models.RawRecord{
		raw(models.ExchangeNASDAQ, "Symbol", "BBB", "Last Sale", "$20", "IPO Year", ""),
	}

	n := NewNormalizer(WithClock(fixedClock))
	out, err := n.Normalize(nyse, nasdaq)
	require.NoError(t, err)
	require.Len(t, out, 2)

	aaa, bbb := out[0], out[1]
	require.Equal(t, "AAA", *aaa.Symbol)
	require.Equal(t, models.ExchangeNYSE, aaa.Exchange)
	require.Equal(t, "10.01", aaa.LastPrice.StringFixed(2))
	require.Equal(t, "2020", *aaa.IPOYear)

	require.Equal(t, "BBB", *bbb.Symbol)
	require.Equal(t, models.ExchangeNASDAQ, bbb.Exchange)
	require.Equal(t, "20.00", bbb.LastPrice.StringFixed(2))
	require.Nil(t, bbb.IPOYear)

	require.Equal(t, aaa.ETLTimestamp, bbb.ETLTimestamp)
	require.Equal(t, "2024-03-08 14:05:09.123", aaa.ETLTimestamp)
}

func TestNormalize_ProjectionAndNulls(t *testing.T) {
	rec := raw(models.ExchangeNYSE,
		"Symbol", " XYZ ",
		"Name", strings.Repeat("N", 80),
		"Net Change", "0.5",
		"Volume", "1,500",
		"Country", "nan",
		"Industry", "<NA>",
		"Sector", "  ",
	)
	rec.Fields["Last Sale"] = nil

	out, err := NewNormalizer(WithClock(fixedClock)).Normalize([]models.RawRecord{rec})
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	require.Equal(t, "XYZ", *got.Symbol)
	require.Len(t, *got.Name, MaxNameLength)
	require.Nil(t, got.LastPrice)
	require.Equal(t, int64(1500), *got.Volume)
	require.Nil(t, got.IPOYear)
	require.Nil(t, got.Country)
	require.Nil(t, got.Industry)
	require.Nil(t, got.Sector)

	row := got.Row()
	require.Len(t, row, 9)
	for _, v := range row {
		require.NotEqual(t, "", v)
		require.NotEqual(t, "nan", v)
	}
}

func TestNormalize_UnparseableIPOYearIsNull(t *testing.T) {
	rec := raw(models.ExchangeNASDAQ, "Symbol", "CCC", "IPO Year", "unknown")
	out, err := NewNormalizer().Normalize([]models.RawRecord{rec})
	require.NoError(t, err)
	require.Nil(t, out[0].IPOYear)
}

func TestNormalize_FormatErrorAborts(t *testing.T) {
	records := []models.RawRecord{
		raw(models.ExchangeNYSE, "Symbol", "OK", "Last Sale", "$1.00"),
		raw(models.ExchangeNYSE, "Symbol", "BAD", "Last Sale", "$abc"),
	}

	out, err := NewNormalizer().Normalize(records)
	require.Error(t, err)
	require.Nil(t, out)
	require.True(t, etlerr.IsKind(err, etlerr.KindFormat))
	require.Contains(t, err.Error(), "row 2")
}

func TestNormalize_Empty(t *testing.T) {
	out, err := NewNormalizer().Normalize(nil, []models.RawRecord{})
	require.NoError(t, err)
	require.Empty(t, out)
}
