package handler

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	registerapp "github.com/mpoffice/backend/internal/application/register"
	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/interfaces/http/dto"
)

// SyncTrigger starts a connector run on demand.
type SyncTrigger interface {
	TriggerNow(ctx context.Context, source ingest.Source) (ingest.SyncRunOutcome, error)
}

// SyncHandler handles sync orchestration API endpoints
type SyncHandler struct {
	BaseHandler
	trigger     SyncTrigger
	queries     *registerapp.QueryService
	checkpoints ingest.CheckpointStore
	failures    ingest.IngestFailureStore
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(trigger SyncTrigger, queries *registerapp.QueryService, checkpoints ingest.CheckpointStore, failures ingest.IngestFailureStore) *SyncHandler {
	return &SyncHandler{
		trigger:     trigger,
		queries:     queries,
		checkpoints: checkpoints,
		failures:    failures,
	}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/sync")
	{
		group.POST("/:connector/run", h.TriggerRun)
		group.GET("/runs", h.ListRuns)
		group.GET("/checkpoints", h.ListCheckpoints)
		group.GET("/failures", h.ListFailures)
	}
}

// TriggerRun starts a connector sync and waits for its outcome
func (h *SyncHandler) TriggerRun(c *gin.Context) {
	source := ingest.Source(c.Param("connector"))
	if !source.IsValid() {
		h.NotFound(c, "Unknown connector: "+c.Param("connector"))
		return
	}

	outcome, err := h.trigger.TriggerNow(c.Request.Context(), source)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnknownSource):
			h.NotFound(c, "Connector is not configured: "+source.String())
		case errors.Is(err, ingest.ErrConnectorBusy):
			h.Conflict(c, dto.ErrCodeSyncInProgress, "A sync run is already in progress for "+source.String())
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, dto.SyncRunResponseFromDomain(outcome))
}

// ListRuns returns the newest run outcomes
func (h *SyncHandler) ListRuns(c *gin.Context) {
	connector, ok := h.connectorFilter(c)
	if !ok {
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "Invalid limit: expected a positive integer")
			return
		}
		limit = parsed
	}

	runs, err := h.queries.RecentRuns(c.Request.Context(), connector, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.SyncRunsFromDomain(runs))
}

// ListCheckpoints returns the checkpoint of every known connector
func (h *SyncHandler) ListCheckpoints(c *gin.Context) {
	out := make([]dto.CheckpointResponse, 0, len(ingest.AllSources()))
	for _, source := range ingest.AllSources() {
		checkpoint, err := h.checkpoints.Get(c.Request.Context(), source)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		out = append(out, dto.CheckpointResponseFromDomain(checkpoint))
	}

	h.Success(c, out)
}

// ListFailures returns open ingest failures for a connector
func (h *SyncHandler) ListFailures(c *gin.Context) {
	source := ingest.Source(c.Query("connector"))
	if !source.IsValid() {
		h.BadRequest(c, "Invalid or missing connector")
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			h.BadRequest(c, "Invalid limit: expected a positive integer")
			return
		}
		limit = parsed
	}

	failures, err := h.failures.Unresolved(c.Request.Context(), source, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.IngestFailuresFromDomain(failures))
}

// connectorFilter parses the optional connector query parameter.
func (h *SyncHandler) connectorFilter(c *gin.Context) (*ingest.Source, bool) {
	raw := c.Query("connector")
	if raw == "" {
		return nil, true
	}
	source := ingest.Source(raw)
	if !source.IsValid() {
		h.BadRequest(c, "Invalid connector: "+raw)
		return nil, false
	}
	return &source, true
}
