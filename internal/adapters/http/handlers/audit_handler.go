package handlers

import (
	"smpc-microfin/internal/core/services"
	"smpc-microfin/internal/pkg/pagination"
	"smpc-microfin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AuditHandler handles audit trail browsing endpoints
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List lists audit events
// @Summary List audit events
// @Description List audit events, filterable by action
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param action query string false "Action filter"
// @Success 200 {object} response.Response
// @Router /audit [get]
func (h *AuditHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	items, total, err := h.auditService.List(c.Context(), c.Query("action"), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list audit events")
	}

	return response.Success(c, "Audit events retrieved", pagination.NewResponse(items, params, total))
}

// ListByEntity lists audit events for one entity
// @Summary List entity audit events
// @Tags Audit
// @Produce json
// @Security BearerAuth
// @Param type path string true "Entity type"
// @Param id path int true "Entity ID"
// @Success 200 {object} response.Response
// @Router /audit/{type}/{id} [get]
func (h *AuditHandler) ListByEntity(c *fiber.Ctx) error {
	entityID, err := c.ParamsInt("id")
	if err != nil || entityID < 0 {
		return response.BadRequest(c, "Invalid entity ID")
	}

	params := pagination.GetParams(c)
	items, total, err := h.auditService.ListByEntity(c.Context(), c.Params("type"), uint(entityID), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list audit events")
	}

	return response.Success(c, "Audit events retrieved", pagination.NewResponse(items, params, total))
}
