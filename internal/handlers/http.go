// Package handlers exposes the analytics and archival operations over
// HTTP for the clinic CRUD layer.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics"
	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/abc"
	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/spc"
	"github.com/SanathAishu/clinic-administration-sub006/internal/analytics/waittime"
	"github.com/SanathAishu/clinic-administration-sub006/internal/archival"
	"github.com/SanathAishu/clinic-administration-sub006/internal/audit"
	"github.com/SanathAishu/clinic-administration-sub006/internal/cache"
	"github.com/SanathAishu/clinic-administration-sub006/internal/metrics"
)

// Handler serves the analytics and archival API
type Handler struct {
	estimator  *waittime.Estimator
	classifier *abc.Classifier
	monitor    *spc.Monitor
	tracker    *archival.Tracker
	cache      *cache.DashboardCache
	collector  *metrics.Collector
	audit      *audit.Logger
	logger     *zap.Logger
}

// NewHandler creates the API handler. The dashboard cache is optional;
// a nil cache disables caching without changing response shapes.
func NewHandler(
	estimator *waittime.Estimator,
	classifier *abc.Classifier,
	monitor *spc.Monitor,
	tracker *archival.Tracker,
	dashboardCache *cache.DashboardCache,
	collector *metrics.Collector,
	auditLog *audit.Logger,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		estimator:  estimator,
		classifier: classifier,
		monitor:    monitor,
		tracker:    tracker,
		cache:      dashboardCache,
		collector:  collector,
		audit:      auditLog,
		logger:     logger,
	}
}

// RegisterRoutes mounts the versioned API on the router
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")

	analyticsGroup := v1.Group("/analytics")
	{
		analyticsGroup.POST("/wait-time", h.EstimateWaitTime)
		analyticsGroup.POST("/inventory/abc", h.ClassifyInventory)
		analyticsGroup.POST("/compliance/dashboard", h.BuildComplianceDashboard)
	}

	archivalGroup := v1.Group("/archival")
	{
		archivalGroup.POST("/executions", h.StartExecution)
		archivalGroup.GET("/executions/:id", h.GetExecution)
		archivalGroup.PUT("/executions/:id/progress", h.RecordProgress)
		archivalGroup.PUT("/executions/:id/complete", h.CompleteExecution)
		archivalGroup.PUT("/executions/:id/fail", h.FailExecution)
	}
}

// EstimateWaitTime computes a queue wait estimate for one appointment
func (h *Handler) EstimateWaitTime(c *gin.Context) {
	var req WaitTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	estimate, err := h.estimator.Estimate(req.toSnapshot())
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.collector.RecordEstimate(string(estimate.Confidence), estimate.Unstable, estimate.EstimatedWaitMinutes)
	c.JSON(http.StatusOK, estimate)
}

// ClassifyInventory recomputes the full ABC ranking for the submitted
// inventory
func (h *Handler) ClassifyInventory(c *gin.Context) {
	var req ABCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	previous, err := req.toPrevious()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid previous classification", Details: err.Error()})
		return
	}

	rankings, err := h.classifier.Classify(req.toItems(), previous)
	if err != nil {
		h.respondError(c, err)
		return
	}

	changes := 0
	for _, ranking := range rankings {
		if ranking.ClassificationChanged {
			changes++
		}
	}

	h.collector.RecordABCRun(len(rankings), changes)
	h.audit.ClassificationRun(len(rankings), changes)
	c.JSON(http.StatusOK, ABCResponse{Rankings: rankings, Changes: changes})
}

// BuildComplianceDashboard runs control chart analysis over the
// submitted observation window and returns the aggregated dashboard.
// Results are cached under the request's scope when a cache is wired.
func (h *Handler) BuildComplianceDashboard(c *gin.Context) {
	var req DashboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	scope := req.CacheScope
	if scope == "" {
		scope = requestScope(req)
	}

	if h.cache != nil {
		if cached, err := h.cache.Get(c.Request.Context(), scope, req.DaysAnalyzed); err == nil {
			c.JSON(http.StatusOK, DashboardResponse{Dashboard: cached, Cached: true})
			return
		}
	}

	series := req.toSeries()

	dashboard, analyses, err := h.monitor.BuildDashboard(series, req.DaysAnalyzed)
	if err != nil {
		h.respondError(c, err)
		return
	}

	for _, analysis := range analyses {
		for _, violation := range analysis.Violations {
			h.audit.ViolationDetected(violation.ViolationID, violation.MetricType,
				string(violation.Severity), violation.ComplianceRate,
				violation.LowerControlLimit, violation.ViolationDate)
		}
	}

	bySeverity := make(map[string]int)
	outOfControl := 0
	for _, analysis := range analyses {
		if analysis.OutOfControl {
			outOfControl++
		}
		for _, violation := range analysis.Violations {
			bySeverity[string(violation.Severity)]++
		}
	}
	h.collector.RecordDashboard(bySeverity, outOfControl)

	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), scope, req.DaysAnalyzed, &dashboard); err != nil {
			h.logger.Warn("Failed to cache compliance dashboard", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, DashboardResponse{Dashboard: &dashboard, Analyses: analyses})
}

// StartExecution begins tracking an archival run
func (h *Handler) StartExecution(c *gin.Context) {
	var req StartExecutionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	now := time.Now()
	executionDate := now
	if req.ExecutionDate != nil {
		executionDate = *req.ExecutionDate
	}

	log, err := h.tracker.Start(c.Request.Context(), archival.StartParams{
		PolicyID:      req.PolicyID,
		EntityType:    req.EntityType,
		ExecutionDate: executionDate,
		StartTime:     now,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit.ArchivalStarted(log.ID, log.PolicyID, log.EntityType, log.ExecutionDate)
	c.JSON(http.StatusCreated, log)
}

// GetExecution returns one execution log
func (h *Handler) GetExecution(c *gin.Context) {
	log, err := h.tracker.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}

// RecordProgress updates in-flight counts for a running execution
func (h *Handler) RecordProgress(c *gin.Context) {
	var req ProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	log, err := h.tracker.RecordProgress(c.Request.Context(), c.Param("id"),
		req.RecordsProcessed, req.RecordsArchived, req.RecordsFailed)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, log)
}

// CompleteExecution finalizes a run as COMPLETED
func (h *Handler) CompleteExecution(c *gin.Context) {
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	endTime := time.Now()
	if req.EndTime != nil {
		endTime = *req.EndTime
	}

	log, err := h.tracker.Complete(c.Request.Context(), c.Param("id"),
		req.RecordsArchived, req.RecordsFailed, endTime)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit.ArchivalCompleted(log.ID, log.RecordsArchived, log.RecordsFailed, *log.DurationSeconds)
	h.collector.RecordArchivalRun(string(log.Status), log.RecordsArchived, endTime.Sub(log.StartTime))
	c.JSON(http.StatusOK, log)
}

// FailExecution finalizes a run as FAILED
func (h *Handler) FailExecution(c *gin.Context) {
	var req FailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBindError(c, err)
		return
	}

	endTime := time.Now()
	if req.EndTime != nil {
		endTime = *req.EndTime
	}

	log, err := h.tracker.Fail(c.Request.Context(), c.Param("id"), req.ErrorMessage, endTime)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.audit.ArchivalFailed(log.ID, req.ErrorMessage)
	h.collector.RecordArchivalRun(string(log.Status), log.RecordsArchived, endTime.Sub(log.StartTime))
	c.JSON(http.StatusOK, log)
}

// respondBindError formats request binding failures, expanding
// validator tag violations into field-level messages
func (h *Handler) respondBindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]string, len(validationErrs))
		for i, fieldErr := range validationErrs {
			details[i] = fmt.Sprintf("%s failed %s validation", fieldErr.Field(), fieldErr.Tag())
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request",
			Details: strings.Join(details, "; "),
		})
		return
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request", Details: err.Error()})
}

// respondError maps domain errors to HTTP statuses
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case analytics.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid input", Details: err.Error()})
	case errors.Is(err, abc.ErrNoAnalyzableValue):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: err.Error()})
	case errors.Is(err, archival.ErrDuplicateExecution):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "execution already recorded for this policy and date"})
	case errors.Is(err, archival.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "execution already finalized"})
	case archival.IsInvariantViolation(err):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "invariant violation", Details: err.Error()})
	case errors.Is(err, archival.ErrExecutionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "execution not found"})
	default:
		h.logger.Error("Unhandled API error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

// requestScope derives a stable cache scope from the request body so
// identical windows share a cache entry
func requestScope(req DashboardRequest) string {
	req.CacheScope = ""
	payload, err := json.Marshal(req)
	if err != nil {
		return "default"
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}
