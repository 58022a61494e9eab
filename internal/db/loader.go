package db

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/mauv0809/symbol-loader/internal/etlerr"
	"github.com/mauv0809/symbol-loader/internal/metrics"
	"github.com/mauv0809/symbol-loader/internal/models"
)

// Postgres SQLSTATEs that mean the target table does not match what we insert.
var schemaCodes = map[string]struct{}{
	"42P01": {}, // undefined_table
	"42703": {}, // undefined_column
	"3F000": {}, // invalid_schema_name
	"42804": {}, // datatype_mismatch
}

// MaxBatchRows is the most rows one INSERT can bind within the 65535
// parameter limit of the Postgres protocol.
var MaxBatchRows = 65535 / len(models.Columns)

// Target names the table a loader writes to.
type Target struct {
	Database string
	Schema   string
	Table    string
}

// QualifiedName returns the quoted schema.table identifier.
func (t Target) QualifiedName() string {
	if t.Schema == "" {
		return pgx.Identifier{t.Table}.Sanitize()
	}
	return pgx.Identifier{t.Schema, t.Table}.Sanitize()
}

func (t Target) String() string {
	name := t.Table
	if t.Schema != "" {
		name = t.Schema + "." + name
	}
	if t.Database != "" {
		name = t.Database + ":" + name
	}
	return name
}

// BatchProgress is reported after each batch insert succeeds. It says nothing
// about durability: the batch is visible only once the load commits.
type BatchProgress struct {
	Batch     int
	Batches   int
	Rows      int
	RowsSoFar int
}

// LoadResult summarises a committed load.
type LoadResult struct {
	Batches int
	Rows    int
	Elapsed time.Duration
}

// TableLoader replaces the contents of one table with a batch sequence.
type TableLoader struct {
	db      TxBeginner
	target  Target
	logger  zerolog.Logger
	onBatch func(BatchProgress)
}

// NewTableLoader creates a loader writing to target through db. The loader
// does not own db.
func NewTableLoader(db TxBeginner, target Target, logger zerolog.Logger) *TableLoader {
	return &TableLoader{
		db:     db,
		target: target,
		logger: logger.With().Str("table", target.Table).Str("database", target.Database).Logger(),
	}
}

// OnBatch registers a progress callback invoked after every batch insert.
func (l *TableLoader) OnBatch(fn func(BatchProgress)) {
	l.onBatch = fn
}

// Target returns the table the loader writes to.
func (l *TableLoader) Target() Target { return l.target }

// Load truncates the target table and inserts every batch in order, all in
// one transaction. Any failure rolls everything back, the truncate included.
// With no rows to insert, Load does nothing at all.
func (l *TableLoader) Load(ctx context.Context, batches [][]models.MarketSymbol) (LoadResult, error) {
	start := time.Now()

	total := 0
	for _, b := range batches {
		total += len(b)
	}
	if total == 0 {
		l.logger.Info().Msgf("No new data to load to %s", l.target)
		return LoadResult{}, nil
	}

	for i, b := range batches {
		if len(b) > MaxBatchRows {
			return LoadResult{}, etlerr.Transaction("load", l.target.String(), 0,
				fmt.Errorf("batch %d has %d rows, at most %d fit one statement", i+1, len(b), MaxBatchRows))
		}
	}

	name := l.target.QualifiedName()
	res := LoadResult{}

	err := WithTx(ctx, l.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "TRUNCATE TABLE "+name); err != nil {
			return l.classify("truncate", start, err)
		}
		l.logger.Info().Dur("elapsed", time.Since(start)).Msgf("Table %s truncated (pending commit)", l.target)

		for i, batch := range batches {
			if len(batch) == 0 {
				continue
			}

			args := make([]any, 0, len(batch)*len(models.Columns))
			for _, m := range batch {
				args = append(args, m.Row()...)
			}

			op := fmt.Sprintf("insert batch %d/%d", i+1, len(batches))
			if _, err := tx.Exec(ctx, insertStatement(name, len(batch)), args...); err != nil {
				return l.classify(op, start, err)
			}

			res.Batches++
			res.Rows += len(batch)
			metrics.BatchesLoaded.WithLabelValues(l.target.Table).Inc()
			metrics.RowsInserted.WithLabelValues(l.target.Table).Add(float64(len(batch)))

			l.logger.Info().
				Int("batch", i+1).
				Int("batches", len(batches)).
				Int("rows", len(batch)).
				Int("rows_so_far", res.Rows).
				Msg("Batch inserted")
			if l.onBatch != nil {
				l.onBatch(BatchProgress{Batch: i + 1, Batches: len(batches), Rows: len(batch), RowsSoFar: res.Rows})
			}
		}
		return nil
	})
	if err != nil {
		if etlerr.KindOf(err) == "" {
			err = etlerr.Transaction("load", l.target.String(), time.Since(start), err)
		}
		l.logger.Error().Err(err).Dur("elapsed", time.Since(start)).Msgf("Load of %s rolled back", l.target)
		return LoadResult{}, err
	}

	res.Elapsed = time.Since(start)
	metrics.RowsCommitted.WithLabelValues(l.target.Table).Add(float64(res.Rows))
	l.logger.Info().
		Int("rows", res.Rows).
		Int("batches", res.Batches).
		Dur("elapsed", res.Elapsed).
		Msgf("INSERT operation on %s completed successfully", l.target)
	return res, nil
}

func (l *TableLoader) classify(op string, start time.Time, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := schemaCodes[pgErr.Code]; ok {
			return etlerr.Schema(op, l.target.String(), time.Since(start), err)
		}
	}
	return etlerr.Transaction(op, l.target.String(), time.Since(start), err)
}

// insertStatement builds a multi-row INSERT for rows rows of the target columns.
func insertStatement(table string, rows int) string {
	cols := make([]string, len(models.Columns))
	for i, c := range models.Columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table)
	b.WriteString(" (")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(") VALUES ")

	n := len(cols)
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < n; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(r*n + c + 1))
		}
		b.WriteByte(')')
	}
	return b.String()
}
