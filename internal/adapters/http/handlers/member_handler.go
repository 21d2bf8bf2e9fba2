package handlers

import (
	"errors"
	"strings"

	"smpc-microfin/internal/core/domain"
	"smpc-microfin/internal/core/services"
	"smpc-microfin/internal/pkg/pagination"
	"smpc-microfin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// MemberHandler handles member endpoints
type MemberHandler struct {
	memberService  *services.MemberService
	accrualService *services.AccrualService
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(memberService *services.MemberService, accrualService *services.AccrualService) *MemberHandler {
	return &MemberHandler{
		memberService:  memberService,
		accrualService: accrualService,
	}
}

// OnboardRequest represents a member registration request body
type OnboardRequest struct {
	MembNo         string `json:"memb_no"`
	FullName       string `json:"full_name"`
	GroupID        uint   `json:"group_id"`
	InitialBalance string `json:"initial_balance"`
	InitialSavings string `json:"initial_savings"`
}

// Onboard registers a new member
// @Summary Onboard member
// @Description Register a new member under a lending group
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body OnboardRequest true "Member data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /members [post]
func (h *MemberHandler) Onboard(c *fiber.Ctx) error {
	var req OnboardRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if req.MembNo == "" {
		return response.BadRequest(c, "Member number is required")
	}
	if req.FullName == "" {
		return response.BadRequest(c, "Full name is required")
	}

	balance := decimal.Zero
	savings := decimal.Zero
	var err error
	if req.InitialBalance != "" {
		balance, err = decimal.NewFromString(req.InitialBalance)
		if err != nil {
			return response.BadRequest(c, "Invalid initial balance")
		}
	}
	if req.InitialSavings != "" {
		savings, err = decimal.NewFromString(req.InitialSavings)
		if err != nil {
			return response.BadRequest(c, "Invalid initial savings")
		}
	}

	member, err := h.memberService.Onboard(c.Context(), &services.OnboardInput{
		MembNo:         strings.TrimSpace(req.MembNo),
		FullName:       strings.TrimSpace(req.FullName),
		GroupID:        req.GroupID,
		InitialBalance: balance,
		InitialSavings: savings,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrGroupNotFound):
			return response.NotFound(c, "Group not found")
		case errors.Is(err, domain.ErrMemberNumberInUse):
			return response.Conflict(c, "Member number already in use")
		case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, err.Error())
		default:
			return response.InternalServerError(c, "Failed to onboard member")
		}
	}

	return response.Created(c, "Member onboarded successfully", member)
}

// Get fetches one member
// @Summary Get member
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id} [get]
func (h *MemberHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member ID")
	}

	member, err := h.memberService.Get(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return response.NotFound(c, "Member not found")
		}
		return response.InternalServerError(c, "Failed to get member")
	}

	return response.Success(c, "Member retrieved", member)
}

// List lists members with optional filters
// @Summary List members
// @Description List members, filterable by group and name/number search
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param group_id query int false "Group ID"
// @Param search query string false "Name or member number search"
// @Success 200 {object} response.Response
// @Router /members [get]
func (h *MemberHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)

	var groupID *uint
	if raw := c.QueryInt("group_id"); raw > 0 {
		id := uint(raw)
		groupID = &id
	}

	members, total, err := h.memberService.List(c.Context(), groupID, c.Query("search"), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list members")
	}

	return response.Success(c, "Members retrieved", pagination.NewResponse(members, params, total))
}

// Summary returns a member's ledger summary
// @Summary Member ledger summary
// @Description Current account values plus lifetime savings accrual
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id}/summary [get]
func (h *MemberHandler) Summary(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member ID")
	}

	summary, err := h.memberService.Summary(c.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return response.NotFound(c, "Member not found")
		}
		return response.InternalServerError(c, "Failed to get summary")
	}

	return response.Success(c, "Summary retrieved", summary)
}

// SetActiveRequest represents an activation toggle body
type SetActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetActive activates or deactivates a member
// @Summary Set member active state
// @Tags Members
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Param body body SetActiveRequest true "Active state"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /members/{id}/active [patch]
func (h *MemberHandler) SetActive(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member ID")
	}

	var req SetActiveRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.memberService.SetActive(c.Context(), uint(id), req.IsActive); err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return response.NotFound(c, "Member not found")
		}
		return response.InternalServerError(c, "Failed to update member")
	}

	return response.Success(c, "Member updated", nil)
}

// ListAccruals lists a member's savings accrual history
// @Summary List member accruals
// @Tags Members
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Router /members/{id}/accruals [get]
func (h *MemberHandler) ListAccruals(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid member ID")
	}

	params := pagination.GetParams(c)
	items, total, err := h.accrualService.ListByMember(c.Context(), uint(id), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list accruals")
	}

	return response.Success(c, "Accruals retrieved", pagination.NewResponse(items, params, total))
}
