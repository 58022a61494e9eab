package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mauv0809/symbol-loader/internal/etlerr"
	"github.com/mauv0809/symbol-loader/internal/models"
)

// ReadSource reads a whole exchange export into memory, tagging every row
// with the source's exchange. Paths that are http(s) URLs are downloaded
// with DefaultClient.
func ReadSource(ctx context.Context, src Source) ([]models.RawRecord, error) {
	f, err := open(ctx, src.Path)
	if err != nil {
		return nil, etlerr.SourceRead(src.Path, err)
	}
	defer f.Close()

	records, err := ParseCSV(f, src.Exchange)
	if err != nil {
		return nil, etlerr.SourceRead(src.Path, err)
	}
	return records, nil
}

// ReadSources reads every source in order and concatenates the rows.
func ReadSources(ctx context.Context, sources ...Source) ([]models.RawRecord, error) {
	var all []models.RawRecord
	for _, src := range sources {
		records, err := ReadSource(ctx, src)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func open(ctx context.Context, path string) (io.ReadCloser, error) {
	if IsRemote(path) {
		return DefaultClient.Fetch(ctx, path)
	}
	return os.Open(path)
}

// ParseCSV parses a header-first delimited stream into raw records.
// Missing-value tokens are stored as nil.
func ParseCSV(r io.Reader, exchange models.Exchange) ([]models.RawRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	idx := buildColumnIndex(header)

	var records []models.RawRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", line, err)
		}

		fields := make(map[string]*string, len(idx))
		for col := range idx {
			fields[col] = getCell(row, idx, col)
		}
		records = append(records, models.RawRecord{Exchange: exchange, Fields: fields})
	}

	return records, nil
}
