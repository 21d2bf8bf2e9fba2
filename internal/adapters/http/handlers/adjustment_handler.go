package handlers

import (
	"errors"
	"time"

	"smpc-microfin/internal/core/domain"
	"smpc-microfin/internal/core/services"
	"smpc-microfin/internal/pkg/pagination"
	"smpc-microfin/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// AdjustmentHandler handles ledger adjustment endpoints
type AdjustmentHandler struct {
	adjustments *services.AdjustmentService
	bulk        *services.BulkUpdateService
	reversals   *services.ReversalService
}

// NewAdjustmentHandler creates a new adjustment handler
func NewAdjustmentHandler(
	adjustments *services.AdjustmentService,
	bulk *services.BulkUpdateService,
	reversals *services.ReversalService,
) *AdjustmentHandler {
	return &AdjustmentHandler{
		adjustments: adjustments,
		bulk:        bulk,
		reversals:   reversals,
	}
}

// actorFromCtx builds the audit attribution from the auth middleware locals
func actorFromCtx(c *fiber.Ctx) (domain.Actor, bool) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return domain.Actor{}, false
	}
	role, _ := c.Locals("role").(string)
	return domain.Actor{
		ID:        userID,
		Role:      domain.Role(role),
		IPAddress: c.IP(),
	}, true
}

// parseAsOf parses an optional RFC3339 posting time; empty means "now"
func parseAsOf(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// ApplyAdjustmentRequest represents a single adjustment request body
type ApplyAdjustmentRequest struct {
	MemberID uint   `json:"member_id"`
	Type     string `json:"type"`
	Amount   string `json:"amount"`
	Remark   string `json:"remark"`
	AsOf     string `json:"as_of"`
}

// ApplyBalance posts one loan balance adjustment
// @Summary Apply balance adjustment
// @Description Post one INCREASE or DEDUCT against a member's loan balance
// @Tags Adjustments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ApplyAdjustmentRequest true "Adjustment data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /adjustments/balance [post]
func (h *AdjustmentHandler) ApplyBalance(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ApplyAdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.BadRequest(c, "Invalid amount")
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return response.BadRequest(c, "Invalid as_of time (use RFC3339)")
	}

	result, err := h.adjustments.ApplyBalance(c.Context(), &services.ApplyBalanceInput{
		MemberID: req.MemberID,
		Type:     domain.BalanceAdjustType(req.Type),
		Amount:   amount,
		Remark:   req.Remark,
		AsOf:     asOf,
		Actor:    actor,
	})
	if err != nil {
		return adjustmentError(c, err)
	}

	return response.Created(c, "Balance adjustment applied", result)
}

// ApplySavings posts one savings adjustment
// @Summary Apply savings adjustment
// @Description Post one INCREASE, WITHDRAW or APPLY_TO_BALANCE against a member's savings
// @Tags Adjustments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ApplyAdjustmentRequest true "Adjustment data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /adjustments/savings [post]
func (h *AdjustmentHandler) ApplySavings(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ApplyAdjustmentRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return response.BadRequest(c, "Invalid amount")
	}
	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return response.BadRequest(c, "Invalid as_of time (use RFC3339)")
	}

	result, err := h.adjustments.ApplySavings(c.Context(), &services.ApplySavingsInput{
		MemberID: req.MemberID,
		Type:     domain.SavingsAdjustType(req.Type),
		Amount:   amount,
		Remark:   req.Remark,
		AsOf:     asOf,
		Actor:    actor,
	})
	if err != nil {
		return adjustmentError(c, err)
	}

	return response.Created(c, "Savings adjustment applied", result)
}

// BatchEntryRequest is one collection-sheet row in the request body
type BatchEntryRequest struct {
	MemberID          uint   `json:"member_id"`
	BalanceDeduct     string `json:"balance_deduct"`
	SavingsIncrease   string `json:"savings_increase"`
	DaysCountOverride *int   `json:"days_count_override"`
	Remark            string `json:"remark"`
}

// ApplyBatchRequest represents a collection-sheet posting
type ApplyBatchRequest struct {
	Entries []BatchEntryRequest `json:"entries"`
	AsOf    string              `json:"as_of"`
}

// ApplyBatch posts a collection sheet as one batch
// @Summary Post bulk collection
// @Description Post one collection sheet; rejected rows are reported, the rest commit
// @Tags Adjustments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ApplyBatchRequest true "Collection sheet"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /adjustments/batch [post]
func (h *AdjustmentHandler) ApplyBatch(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req ApplyBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if len(req.Entries) == 0 {
		return response.BadRequest(c, "Entries are required")
	}

	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return response.BadRequest(c, "Invalid as_of time (use RFC3339)")
	}

	entries := make([]services.BatchEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entry := services.BatchEntry{
			MemberID:          e.MemberID,
			BalanceDeduct:     decimal.Zero,
			SavingsIncrease:   decimal.Zero,
			DaysCountOverride: e.DaysCountOverride,
			Remark:            e.Remark,
		}
		if e.BalanceDeduct != "" {
			entry.BalanceDeduct, err = decimal.NewFromString(e.BalanceDeduct)
			if err != nil {
				return response.BadRequest(c, "Invalid balance_deduct amount")
			}
		}
		if e.SavingsIncrease != "" {
			entry.SavingsIncrease, err = decimal.NewFromString(e.SavingsIncrease)
			if err != nil {
				return response.BadRequest(c, "Invalid savings_increase amount")
			}
		}
		entries = append(entries, entry)
	}

	result, err := h.bulk.ApplyBatch(c.Context(), &services.BatchInput{
		Entries: entries,
		AsOf:    asOf,
		Actor:   actor,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return response.BadRequest(c, "Entries are required")
		}
		return response.InternalServerError(c, "Failed to post batch")
	}

	return response.Success(c, "Batch posted", result)
}

// RevertRequest represents a reversal request body
type RevertRequest struct {
	AdjustmentID uint   `json:"adjustment_id"`
	MemberID     uint   `json:"member_id"`
	Account      string `json:"account"`
	Remark       string `json:"remark"`
	AsOf         string `json:"as_of"`
}

// Revert undoes one ledger adjustment
// @Summary Revert adjustment
// @Description Undo one ledger entry by its inverse delta and free the day slot
// @Tags Adjustments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body RevertRequest true "Reversal data"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /adjustments/revert [post]
func (h *AdjustmentHandler) Revert(c *fiber.Ctx) error {
	actor, ok := actorFromCtx(c)
	if !ok {
		return response.Unauthorized(c, "Unauthorized")
	}

	var req RevertRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	asOf, err := parseAsOf(req.AsOf)
	if err != nil {
		return response.BadRequest(c, "Invalid as_of time (use RFC3339)")
	}

	result, err := h.reversals.Revert(c.Context(), &services.RevertInput{
		AdjustmentID: req.AdjustmentID,
		MemberID:     req.MemberID,
		Account:      domain.AccountKind(req.Account),
		Remark:       req.Remark,
		AsOf:         asOf,
		Actor:        actor,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAdjustmentNotFound):
			return response.NotFound(c, "Adjustment not found")
		case errors.Is(err, domain.ErrAdjustmentMismatch):
			return response.BadRequest(c, "Adjustment does not belong to member")
		default:
			return adjustmentError(c, err)
		}
	}

	return response.Success(c, "Adjustment reverted", result)
}

// ListBalance lists a member's balance ledger entries
// @Summary List balance adjustments
// @Tags Adjustments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Router /members/{id}/adjustments/balance [get]
func (h *AdjustmentHandler) ListBalance(c *fiber.Ctx) error {
	memberID, err := c.ParamsInt("id")
	if err != nil || memberID < 1 {
		return response.BadRequest(c, "Invalid member ID")
	}

	params := pagination.GetParams(c)
	items, total, err := h.adjustments.ListBalanceAdjustments(c.Context(), uint(memberID), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list adjustments")
	}

	return response.Success(c, "Adjustments retrieved", pagination.NewResponse(items, params, total))
}

// ListSavings lists a member's savings ledger entries
// @Summary List savings adjustments
// @Tags Adjustments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Member ID"
// @Success 200 {object} response.Response
// @Router /members/{id}/adjustments/savings [get]
func (h *AdjustmentHandler) ListSavings(c *fiber.Ctx) error {
	memberID, err := c.ParamsInt("id")
	if err != nil || memberID < 1 {
		return response.BadRequest(c, "Invalid member ID")
	}

	params := pagination.GetParams(c)
	items, total, err := h.adjustments.ListSavingsAdjustments(c.Context(), uint(memberID), params.Offset, params.Limit)
	if err != nil {
		return response.InternalServerError(c, "Failed to list adjustments")
	}

	return response.Success(c, "Adjustments retrieved", pagination.NewResponse(items, params, total))
}

// adjustmentError maps engine errors to HTTP responses
func adjustmentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrMemberNotFound):
		return response.NotFound(c, "Member not found")
	case errors.Is(err, domain.ErrDuplicateToday):
		return response.Conflict(c, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds):
		return response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAdjustType),
		errors.Is(err, domain.ErrBackdatedAsOf),
		errors.Is(err, domain.ErrInvalidInput):
		return response.BadRequest(c, err.Error())
	default:
		return response.InternalServerError(c, "Failed to apply adjustment")
	}
}
