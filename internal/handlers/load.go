package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mauv0809/symbol-loader/internal/etl"
)

// LoadHandler triggers pipeline runs over HTTP. Only one run may be in
// flight at a time.
type LoadHandler struct {
	newJob func() etl.Job
	logger zerolog.Logger

	run sync.Mutex

	mu      sync.RWMutex
	running bool
	last    *LoadResponse
}

// NewLoadHandler creates a load handler. newJob is called once per run and
// must return a fresh idle job.
func NewLoadHandler(newJob func() etl.Job, logger zerolog.Logger) *LoadHandler {
	return &LoadHandler{
		newJob: newJob,
		logger: logger,
	}
}

// LoadResponse is the JSON response for load endpoints.
type LoadResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id,omitempty"`
	DryRun    bool      `json:"dry_run,omitempty"`
	Count     int       `json:"count"`
	Batches   int       `json:"batches"`
	Stage     string    `json:"failed_stage,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Elapsed   string    `json:"elapsed,omitempty"`
}

// StatusResponse is the JSON response for GET /admin/load/status.
type StatusResponse struct {
	Running bool          `json:"running"`
	Last    *LoadResponse `json:"last,omitempty"`
}

// LoadMarketSymbols handles POST /admin/load/market-symbols
// Replaces the market symbols table from the configured exchange files.
// Query params:
// - dry_run: if "true", extract and transform only
func (h *LoadHandler) LoadMarketSymbols(c echo.Context) error {
	if !h.run.TryLock() {
		return c.JSON(http.StatusConflict, LoadResponse{
			Success: false,
			Message: "A load is already running",
		})
	}
	defer h.run.Unlock()

	h.setRunning(true)
	defer h.setRunning(false)

	var opts []etl.RunOption
	dryRun := c.QueryParam("dry_run") == "true"
	if dryRun {
		opts = append(opts, etl.DryRun())
	}

	ctx := h.logger.WithContext(c.Request().Context())
	res := etl.Run(ctx, h.newJob(), opts...)
	resp := toResponse(res)
	h.setLast(resp)

	if !res.OK() {
		return c.JSON(http.StatusInternalServerError, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

// LoadStatus handles GET /admin/load/status
// Returns whether a run is in flight and the outcome of the last one.
func (h *LoadHandler) LoadStatus(c echo.Context) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.JSON(http.StatusOK, StatusResponse{
		Running: h.running,
		Last:    h.last,
	})
}

func (h *LoadHandler) setRunning(v bool) {
	h.mu.Lock()
	h.running = v
	h.mu.Unlock()
}

func (h *LoadHandler) setLast(resp LoadResponse) {
	h.mu.Lock()
	h.last = &resp
	h.mu.Unlock()
}

func toResponse(res etl.Result) LoadResponse {
	resp := LoadResponse{
		Success:   res.OK(),
		RunID:     res.RunID,
		DryRun:    res.DryRun,
		Count:     res.Stats.Loaded,
		Batches:   res.Stats.Batches,
		Stage:     string(res.Stage),
		ErrorKind: string(res.Kind),
		StartedAt: res.StartedAt,
		Elapsed:   res.Elapsed.String(),
	}
	switch {
	case !res.OK():
		resp.Message = fmt.Sprintf("Load failed during %s: %v", res.Stage, res.Err)
	case res.DryRun:
		resp.Count = res.Stats.Transformed
		resp.Message = fmt.Sprintf("Dry run transformed %d records into %d batches", res.Stats.Transformed, res.Stats.Batches)
	case res.Stats.Loaded == 0:
		resp.Message = "No new data to load"
	default:
		resp.Message = fmt.Sprintf("Successfully loaded %d market symbols", res.Stats.Loaded)
	}
	return resp
}
