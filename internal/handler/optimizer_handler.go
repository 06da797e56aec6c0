package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/uvems/uvems-api/internal/dto"
	"github.com/uvems/uvems-api/internal/models"
	"github.com/uvems/uvems-api/internal/service"
	appErrors "github.com/uvems/uvems-api/pkg/errors"
	"github.com/uvems/uvems-api/pkg/response"
)

type weekOptimizer interface {
	OptimizeWeek(ctx context.Context, req dto.OptimizeWeekRequest, requestedBy string) (*dto.OptimizationProposalResponse, error)
	EnqueueWeek(ctx context.Context, req dto.OptimizeWeekRequest, requestedBy string) (*dto.OptimizationRunQueuedResponse, error)
	AcceptProposal(ctx context.Context, req dto.AcceptProposalRequest) (*dto.AcceptProposalResponse, error)
	GetRun(ctx context.Context, id string) (*models.OptimizationRun, error)
	ListRuns(ctx context.Context, query dto.OptimizationRunQuery) ([]models.OptimizationRun, *models.Pagination, error)
}

type runExporter interface {
	ExportRun(ctx context.Context, runID, format string) (*service.ExportFile, error)
}

// OptimizerHandler exposes the weekly optimization endpoints.
type OptimizerHandler struct {
	service  weekOptimizer
	exporter runExporter
}

// NewOptimizerHandler constructs the handler.
func NewOptimizerHandler(svc *service.OptimizerService, exporter *service.ExportService) *OptimizerHandler {
	return &OptimizerHandler{service: svc, exporter: exporter}
}

// OptimizeWeek triggers a run for the requested week. With async set the run
// is queued and acknowledged with 202.
func (h *OptimizerHandler) OptimizeWeek(c *gin.Context) {
	var req dto.OptimizeWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid optimization payload"))
		return
	}

	requestedBy := currentUserID(c)
	if req.Async {
		resp, err := h.service.EnqueueWeek(c.Request.Context(), req, requestedBy)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, resp)
		return
	}

	resp, err := h.service.OptimizeWeek(c.Request.Context(), req, requestedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// AcceptProposal persists a previously proposed schedule.
func (h *OptimizerHandler) AcceptProposal(c *gin.Context) {
	var req dto.AcceptProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid accept payload"))
		return
	}

	resp, err := h.service.AcceptProposal(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// GetRun returns a stored run record including its report.
func (h *OptimizerHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// ListRuns pages through stored runs, newest first.
func (h *OptimizerHandler) ListRuns(c *gin.Context) {
	var query dto.OptimizationRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid run query"))
		return
	}

	runs, pagination, err := h.service.ListRuns(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// ExportRun streams the proposed schedule of a completed run as csv or pdf.
func (h *OptimizerHandler) ExportRun(c *gin.Context) {
	file, err := h.exporter.ExportRun(c.Request.Context(), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
