package services

import (
	"context"
	"errors"
	"log"

	"smpc-microfin/internal/adapters/persistence/models"
	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MemberService handles member onboarding and account lookups
type MemberService struct {
	memberRepo  repositories.MemberRepository
	groupRepo   repositories.GroupRepository
	accrualRepo repositories.SavingsAccrualRepository
}

// NewMemberService creates a new member service
func NewMemberService(
	memberRepo repositories.MemberRepository,
	groupRepo repositories.GroupRepository,
	accrualRepo repositories.SavingsAccrualRepository,
) *MemberService {
	return &MemberService{
		memberRepo:  memberRepo,
		groupRepo:   groupRepo,
		accrualRepo: accrualRepo,
	}
}

// OnboardInput represents a new member registration
type OnboardInput struct {
	MembNo         string
	FullName       string
	GroupID        uint
	InitialBalance decimal.Decimal
	InitialSavings decimal.Decimal
}

// Onboard registers a new member under an existing group
func (s *MemberService) Onboard(ctx context.Context, input *OnboardInput) (*models.Member, error) {
	if input.MembNo == "" || input.FullName == "" {
		return nil, domain.ErrInvalidInput
	}
	if input.InitialBalance.IsNegative() || input.InitialSavings.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	if _, err := s.groupRepo.GetByID(ctx, input.GroupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrGroupNotFound
		}
		return nil, err
	}

	exists, err := s.memberRepo.ExistsByMembNo(ctx, input.MembNo)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrMemberNumberInUse
	}

	member := &models.Member{
		MembNo:   input.MembNo,
		FullName: input.FullName,
		GroupID:  input.GroupID,
		Balance:  input.InitialBalance,
		Savings:  input.InitialSavings,
		IsActive: true,
	}

	if err := s.memberRepo.Create(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.ErrMemberNumberInUse
		}
		return nil, err
	}

	log.Printf("✅ Member onboarded: %s (%s)", member.FullName, member.MembNo)
	return member, nil
}

// Get fetches a member by ID
func (s *MemberService) Get(ctx context.Context, id uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// GetByMembNo fetches a member by member number
func (s *MemberService) GetByMembNo(ctx context.Context, membNo string) (*models.Member, error) {
	member, err := s.memberRepo.GetByMembNo(ctx, membNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// List lists members with optional group filter and name/number search
func (s *MemberService) List(ctx context.Context, groupID *uint, search string, offset, limit int) ([]*models.Member, int64, error) {
	return s.memberRepo.List(ctx, groupID, search, offset, limit)
}

// LedgerSummary is a member's account snapshot plus lifetime accruals
type LedgerSummary struct {
	Member       *models.Member  `json:"member"`
	TotalAccrued decimal.Decimal `json:"total_accrued"`
}

// Summary returns a member's current account values and accrual total
func (s *MemberService) Summary(ctx context.Context, id uint) (*LedgerSummary, error) {
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	accrued, err := s.accrualRepo.TotalByMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}

	return &LedgerSummary{Member: member, TotalAccrued: accrued}, nil
}

// SetActive activates or deactivates a member. Deactivation does not
// touch the ledgers; history stays queryable.
func (s *MemberService) SetActive(ctx context.Context, id uint, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.memberRepo.UpdateFields(ctx, id, map[string]interface{}{"is_active": active}); err != nil {
		return err
	}
	log.Printf("✅ Member %d active=%t", id, active)
	return nil
}
