package etl

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mauv0809/symbol-loader/internal/etlerr"
	"github.com/mauv0809/symbol-loader/internal/metrics"
)

// Status is the outcome of a run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result describes one run of a job.
type Result struct {
	RunID     string        `json:"run_id"`
	Status    Status        `json:"status"`
	DryRun    bool          `json:"dry_run,omitempty"`
	Stage     Stage         `json:"failed_stage,omitempty"`
	Kind      etlerr.Kind   `json:"error_kind,omitempty"`
	Stats     Stats         `json:"stats"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"-"`
	Err       error         `json:"-"`
}

// OK reports whether the run succeeded.
func (r Result) OK() bool { return r.Status == StatusSuccess }

type runOptions struct {
	dryRun bool
}

// RunOption configures Run.
type RunOption func(*runOptions)

// DryRun stops the run after the transform stage.
func DryRun() RunOption {
	return func(o *runOptions) { o.dryRun = true }
}

// Run drives job through its stages in order and stops at the first error.
// The logger carried by ctx is tagged with the run ID and handed to every
// stage.
func Run(ctx context.Context, job Job, opts ...RunOption) Result {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	res := Result{
		RunID:     uuid.NewString(),
		DryRun:    o.dryRun,
		StartedAt: time.Now(),
	}
	log := zerolog.Ctx(ctx).With().Str("run_id", res.RunID).Logger()
	ctx = log.WithContext(ctx)

	stages := []struct {
		stage Stage
		fn    func(context.Context) error
	}{
		{StageExtract, job.Extract},
		{StageTransform, job.Transform},
		{StageLoad, job.Load},
	}
	if o.dryRun {
		stages = stages[:2]
	}

	log.Info().Bool("dry_run", o.dryRun).Msg("Run started")
	for _, s := range stages {
		start := time.Now()
		err := s.fn(ctx)
		elapsed := time.Since(start)
		metrics.StageDuration.WithLabelValues(string(s.stage)).Observe(elapsed.Seconds())

		if err != nil {
			res.Status = StatusFailed
			res.Stage = s.stage
			res.Kind = etlerr.KindOf(err)
			res.Err = err
			break
		}
		log.Info().Str("stage", string(s.stage)).Dur("elapsed", elapsed).Msg("Stage completed")
	}
	if res.Err == nil {
		res.Status = StatusSuccess
	}

	if r, ok := job.(StatsReporter); ok {
		res.Stats = r.Stats()
	}
	res.Elapsed = time.Since(res.StartedAt)
	metrics.Runs.WithLabelValues(string(res.Status)).Inc()

	if res.Err != nil {
		log.Error().
			Err(res.Err).
			Str("stage", string(res.Stage)).
			Str("kind", string(res.Kind)).
			Dur("elapsed", res.Elapsed).
			Msg("Run failed")
		return res
	}
	log.Info().
		Int("rows", res.Stats.Loaded).
		Int("batches", res.Stats.Batches).
		Dur("elapsed", res.Elapsed).
		Msg("Run completed")
	return res
}
