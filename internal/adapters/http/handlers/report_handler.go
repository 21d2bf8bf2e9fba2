package handlers

import (
	"errors"

	"smpc-microfin/internal/core/domain"
	"smpc-microfin/internal/core/services"
	"smpc-microfin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ReportHandler handles reporting endpoints
type ReportHandler struct {
	reportService  *services.ReportService
	accrualService *services.AccrualService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService, accrualService *services.AccrualService) *ReportHandler {
	return &ReportHandler{
		reportService:  reportService,
		accrualService: accrualService,
	}
}

// Portfolio returns the portfolio dashboard snapshot
// @Summary Portfolio report
// @Description Totals, day collections and per-group breakdown
// @Tags Reports
// @Produce json
// @Security BearerAuth
// @Param as_of query string false "Report time (RFC3339), defaults to now"
// @Success 200 {object} response.Response
// @Router /reports/portfolio [get]
func (h *ReportHandler) Portfolio(c *fiber.Ctx) error {
	asOf, err := parseAsOf(c.Query("as_of"))
	if err != nil {
		return response.BadRequest(c, "Invalid as_of time (use RFC3339)")
	}

	report, err := h.reportService.Portfolio(c.Context(), asOf)
	if err != nil {
		return response.InternalServerError(c, "Failed to build report")
	}

	return response.Success(c, "Report built", report)
}

// RunAccrualRequest represents a manual accrual run body
type RunAccrualRequest struct {
	Period string `json:"period"`
}

// RunAccrual triggers a savings accrual run for a period
// @Summary Run savings accrual
// @Description Compute savings accrual for a period ("2006-01"); idempotent per member
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RunAccrualRequest true "Accrual period"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /reports/accrual [post]
func (h *ReportHandler) RunAccrual(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req RunAccrualRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Period == "" {
		return response.BadRequest(c, "Period is required")
	}

	result, err := h.accrualService.RunForPeriod(c.Context(), req.Period, actor)
	if err != nil {
		if errors.Is(err, domain.ErrAccrualAlreadyDone) {
			return response.Conflict(c, "Accrual already computed for period")
		}
		return response.InternalServerError(c, "Failed to run accrual")
	}

	return response.Success(c, "Accrual computed", result)
}
