package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ketracker/backend/internal/domain"
	"github.com/ketracker/backend/internal/infrastructure/targets"
)

const (
	serviceName     = "ketracker-backend"
	serviceVersion  = "1.0.0"
	defaultRowLimit = 100
)

// Tracker runs the tracking operations on demand
type Tracker interface {
	RefreshReport(ctx context.Context, targets []domain.TrackedTarget) *domain.BatchRun
	RunStockCheck(ctx context.Context, targets []domain.TrackedTarget) *domain.CheckRun
	RunChangeCheck(ctx context.Context, targets []domain.TrackedTarget) *domain.CheckRun
}

// RatingProvider builds the per-SKU rating table of a product
type RatingProvider interface {
	SkuRatings(ctx context.Context, link string) (*domain.SkuRatings, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	tracker Tracker
	ratings RatingProvider
	targets domain.TargetSource
	journal domain.Journal
	logger  *slog.Logger
}

// runRequest is the optional body of the refresh and check endpoints
type runRequest struct {
	Targets []domain.TrackedTarget `json:"targets"`
}

// NewHandler creates a new HTTP handler. Any dependency may be nil; the
// endpoints that need it then answer 503.
func NewHandler(tracker Tracker, ratings RatingProvider, source domain.TargetSource, journal domain.Journal, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		tracker: tracker,
		ratings: ratings,
		targets: source,
		journal: journal,
		logger:  logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": serviceName,
		"version": serviceVersion,
	})
}

// ListTargets returns the configured targets
func (h *Handler) ListTargets(c *gin.Context) {
	if h.targets == nil {
		notConfigured(c, "target source")
		return
	}
	list, err := h.targets.Targets(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"targets": list})
}

// Refresh runs the batch refresh and appends the report rows
func (h *Handler) Refresh(c *gin.Context) {
	list, ok := h.runTargets(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.tracker.RefreshReport(c.Request.Context(), list))
}

// CheckStock runs the low-stock check
func (h *Handler) CheckStock(c *gin.Context) {
	list, ok := h.runTargets(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.tracker.RunStockCheck(c.Request.Context(), list))
}

// CheckChanges runs the price change check
func (h *Handler) CheckChanges(c *gin.Context) {
	list, ok := h.runTargets(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.tracker.RunChangeCheck(c.Request.Context(), list))
}

// SkuRatings returns the per-SKU rating table for ?link=
func (h *Handler) SkuRatings(c *gin.Context) {
	if h.ratings == nil {
		notConfigured(c, "rating service")
		return
	}
	link := c.Query("link")
	if link == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "link query parameter is required"})
		return
	}

	table, err := h.ratings.SkuRatings(c.Request.Context(), link)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, table)
}

// JournalRows returns the newest rows of one journal sheet, ?limit= (default 100)
func (h *Handler) JournalRows(c *gin.Context) {
	if h.journal == nil {
		notConfigured(c, "journal")
		return
	}
	kind := domain.JournalKind(c.Param("kind"))

	limit := defaultRowLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	rows, err := h.journal.Rows(c.Request.Context(), kind, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "rows": rows})
}

// runTargets resolves the targets of a run: the request body's list when
// given, the configured targets otherwise. It writes the error response itself.
func (h *Handler) runTargets(c *gin.Context) ([]domain.TrackedTarget, bool) {
	if h.tracker == nil {
		notConfigured(c, "tracker")
		return nil, false
	}

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return nil, false
	}
	if len(req.Targets) > 0 {
		if err := targets.ValidateAll(req.Targets); err != nil {
			h.writeError(c, err)
			return nil, false
		}
		return req.Targets, true
	}

	if h.targets == nil {
		notConfigured(c, "target source")
		return nil, false
	}
	list, err := h.targets.Targets(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return list, true
}

// writeError maps domain errors to status codes
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrMalformedLink):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownJournal), domain.IsNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamTimeout):
		status = http.StatusGatewayTimeout
	case domain.IsContractViolation(err), errors.Is(err, domain.ErrUpstream):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func notConfigured(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not configured"})
}
