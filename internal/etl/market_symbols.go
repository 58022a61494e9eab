package etl

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/mauv0809/symbol-loader/internal/db"
	"github.com/mauv0809/symbol-loader/internal/ingest"
	"github.com/mauv0809/symbol-loader/internal/models"
	"github.com/mauv0809/symbol-loader/internal/partition"
)

// Loader writes the transformed batches to the sink.
type Loader interface {
	Load(ctx context.Context, batches [][]models.MarketSymbol) (db.LoadResult, error)
}

// MarketSymbolsConfig wires a MarketSymbols job.
type MarketSymbolsConfig struct {
	Sources    []ingest.Source
	Normalizer *ingest.Normalizer
	// Loader may be nil for jobs that never reach the load stage.
	Loader    Loader
	ChunkSize int
}

// MarketSymbols loads the exchange listing exports into the market symbols
// table. Logs go to the zerolog logger carried by the stage context.
type MarketSymbols struct {
	cfg   MarketSymbolsConfig
	state State
	stats Stats

	raw     [][]models.RawRecord
	records []models.MarketSymbol
	batches [][]models.MarketSymbol
}

// NewMarketSymbols creates an idle job.
func NewMarketSymbols(cfg MarketSymbolsConfig) *MarketSymbols {
	if cfg.Normalizer == nil {
		cfg.Normalizer = ingest.NewNormalizer()
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = partition.DefaultChunkSize
	}
	return &MarketSymbols{cfg: cfg}
}

func (j *MarketSymbols) State() State { return j.state }

func (j *MarketSymbols) Stats() Stats { return j.stats }

// Batches returns the transformed batches, nil before Transform succeeds.
func (j *MarketSymbols) Batches() [][]models.MarketSymbol { return j.batches }

// SymbolSplit partitions the transformed records by distinct symbol into the
// 15/35/20/30 percent groups. Records without a symbol share the empty key.
func (j *MarketSymbols) SymbolSplit() partition.Split[models.MarketSymbol, string] {
	return partition.SplitProportional(j.records, func(m models.MarketSymbol) string {
		if m.Symbol == nil {
			return ""
		}
		return *m.Symbol
	})
}

// Extract reads every source file, in order.
func (j *MarketSymbols) Extract(ctx context.Context) error {
	if err := j.enter(ctx, StageExtract, StateIdle); err != nil {
		return err
	}
	log := zerolog.Ctx(ctx)

	raw := make([][]models.RawRecord, 0, len(j.cfg.Sources))
	for _, src := range j.cfg.Sources {
		start := time.Now()
		records, err := ingest.ReadSource(ctx, src)
		if err != nil {
			return j.abort(err)
		}
		log.Info().
			Str("source", src.Path).
			Str("exchange", string(src.Exchange)).
			Int("rows", len(records)).
			Dur("elapsed", time.Since(start)).
			Msg("Source read")
		raw = append(raw, records)
		j.stats.Extracted += len(records)
	}

	j.raw = raw
	j.state = StateExtracted
	return nil
}

// Transform normalizes the extracted rows and cuts them into batches. On
// failure nothing staged survives.
func (j *MarketSymbols) Transform(ctx context.Context) error {
	if err := j.enter(ctx, StageTransform, StateExtracted); err != nil {
		return err
	}

	records, err := j.cfg.Normalizer.Normalize(j.raw...)
	if err != nil {
		return j.abort(err)
	}
	batches, err := partition.Chunk(records, j.cfg.ChunkSize)
	if err != nil {
		return j.abort(err)
	}

	j.raw = nil
	j.records = records
	j.batches = batches
	j.stats.Transformed = len(records)
	j.stats.Batches = len(batches)
	j.state = StateTransformed

	zerolog.Ctx(ctx).Info().
		Int("rows", len(records)).
		Int("batches", len(batches)).
		Int("chunk_size", j.cfg.ChunkSize).
		Msg("Records normalized")
	return nil
}

// Load replaces the table contents with the transformed batches. With no
// records it logs and leaves the table untouched.
func (j *MarketSymbols) Load(ctx context.Context) error {
	if err := j.enter(ctx, StageLoad, StateTransformed); err != nil {
		return err
	}

	if len(j.records) == 0 {
		zerolog.Ctx(ctx).Info().Msg("No new data to load")
		j.state = StateLoaded
		return nil
	}
	if j.cfg.Loader == nil {
		return j.abort(errors.New("no loader configured"))
	}

	res, err := j.cfg.Loader.Load(ctx, j.batches)
	if err != nil {
		return j.abort(err)
	}
	j.stats.Loaded = res.Rows
	j.state = StateLoaded
	return nil
}

func (j *MarketSymbols) enter(ctx context.Context, stage Stage, want State) error {
	if j.state != want {
		return j.abort(&stateError{stage: stage, got: j.state, want: want})
	}
	if err := ctx.Err(); err != nil {
		return j.abort(err)
	}
	return nil
}

func (j *MarketSymbols) abort(err error) error {
	j.state = StateAborted
	j.raw = nil
	j.records = nil
	j.batches = nil
	return err
}
