package handlers

import (
	"errors"
	"strings"

	"smpc-microfin/internal/core/domain"
	"smpc-microfin/internal/core/services"
	"smpc-microfin/internal/pkg/pagination"
	"smpc-microfin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// GroupHandler handles lending group endpoints
type GroupHandler struct {
	groupService *services.GroupService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *services.GroupService) *GroupHandler {
	return &GroupHandler{groupService: groupService}
}

// CreateGroupRequest represents a group creation request body
type CreateGroupRequest struct {
	Name       string `json:"name"`
	Leader     string `json:"leader"`
	MeetingDay string `json:"meeting_day"`
}

// Create registers a new lending group
// @Summary Create group
// @Tags Groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateGroupRequest true "Group data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /groups [post]
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	var req CreateGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if req.Name == "" {
		return response.BadRequest(c, "Group name is required")
	}

	group, err := h.groupService.Create(c.Context(), &services.CreateGroupInput{
		Name:       strings.TrimSpace(req.Name),
		Leader:     strings.TrimSpace(req.Leader),
		MeetingDay: req.MeetingDay,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrGroupNameTaken):
			return response.Conflict(c, "Group name already taken")
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to create group")
		}
	}

	return response.Created(c, "Group created successfully", group)
}

// Get fetches one group
// @Summary Get group
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid group ID")
	}

	group, err := h.groupService.Get(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrGroupNotFound) {
			return response.NotFound(c, "Group not found")
		}
		return response.InternalServerError(c, "Failed to get group")
	}

	return response.Success(c, "Group retrieved", group)
}

// List lists lending groups
// @Summary List groups
// @Tags Groups
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Router /groups [get]
func (h *GroupHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	groups, total, err := h.groupService.List(c.Context(), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list groups")
	}

	return response.Success(c, "Groups retrieved", pagination.NewResponse(groups, params, total))
}
