package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	registerapp "github.com/mpoffice/backend/internal/application/register"
	"github.com/mpoffice/backend/internal/domain/ingest"
	"github.com/mpoffice/backend/internal/domain/register"
	"github.com/mpoffice/backend/internal/interfaces/http/dto"
)

// RegisterHandler handles sales register API endpoints
type RegisterHandler struct {
	BaseHandler
	queries *registerapp.QueryService
}

// NewRegisterHandler creates a new RegisterHandler
func NewRegisterHandler(queries *registerapp.QueryService) *RegisterHandler {
	return &RegisterHandler{queries: queries}
}

// RegisterRoutes registers sales register routes
func (h *RegisterHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/register")
	{
		group.GET("", h.List)
		group.GET("/summary", h.Summary)
		group.GET("/:marketplace/:document_no/:line_id", h.Get)
	}
}

// List returns register rows matching the filter
func (h *RegisterHandler) List(c *gin.Context) {
	var req dto.ListRegisterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter := register.QueryFilter{
		StatusNorm: req.StatusNorm,
		SellerSKU:  req.SellerSKU,
		SortBy:     req.SortBy,
		SortOrder:  req.SortOrder,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}

	var ok bool
	if filter.DateFrom, ok = h.parseDate(c, req.DateFrom, "date_from"); !ok {
		return
	}
	if filter.DateTo, ok = h.parseDate(c, req.DateTo, "date_to"); !ok {
		return
	}
	if req.Marketplace != "" {
		mp := ingest.Marketplace(req.Marketplace)
		filter.Marketplace = &mp
	}

	page, err := h.queries.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, dto.RegisterEntriesFromDomain(page.Entries), page.Total, page.Page, page.Size)
}

// Summary returns per-day per-marketplace delivered aggregates
func (h *RegisterHandler) Summary(c *gin.Context) {
	var req dto.SummaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	from, ok := h.parseDate(c, req.DateFrom, "date_from")
	if !ok {
		return
	}
	to, ok := h.parseDate(c, req.DateTo, "date_to")
	if !ok {
		return
	}

	var marketplace *ingest.Marketplace
	if req.Marketplace != "" {
		mp := ingest.Marketplace(req.Marketplace)
		marketplace = &mp
	}

	rows, err := h.queries.Summarize(c.Request.Context(), from, to, marketplace)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.SummaryRowsFromDomain(rows))
}

// Get returns the current row for one natural key
func (h *RegisterHandler) Get(c *gin.Context) {
	key := register.NaturalKey{
		Marketplace: ingest.Marketplace(c.Param("marketplace")),
		DocumentNo:  c.Param("document_no"),
		LineID:      c.Param("line_id"),
	}

	entry, err := h.queries.Entry(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if entry == nil {
		h.NotFound(c, "Register entry not found")
		return
	}

	h.Success(c, dto.RegisterEntryResponseFromDomain(*entry))
}

// parseDate parses a yyyy-mm-dd query value; empty input yields the
// zero time, meaning the bound is open.
func (h *RegisterHandler) parseDate(c *gin.Context, value, field string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, true
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		h.BadRequest(c, "Invalid "+field+": expected yyyy-mm-dd")
		return time.Time{}, false
	}
	return t, true
}
