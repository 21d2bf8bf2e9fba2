package services

import (
	"context"
	"time"

	"smpc-microfin/internal/adapters/persistence/repositories"
	"smpc-microfin/internal/config"
	"smpc-microfin/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ReportService builds read-only portfolio reports
type ReportService struct {
	memberRepo  repositories.MemberRepository
	balanceRepo repositories.BalanceAdjustmentRepository
	savingsRepo repositories.SavingsAdjustmentRepository
	ledger      config.LedgerConfig
}

// NewReportService creates a new report service
func NewReportService(
	memberRepo repositories.MemberRepository,
	balanceRepo repositories.BalanceAdjustmentRepository,
	savingsRepo repositories.SavingsAdjustmentRepository,
	ledger config.LedgerConfig,
) *ReportService {
	return &ReportService{
		memberRepo:  memberRepo,
		balanceRepo: balanceRepo,
		savingsRepo: savingsRepo,
		ledger:      ledger,
	}
}

// PortfolioReport is the back-office dashboard snapshot. Day figures
// cover the ledger calendar day containing AsOf.
type PortfolioReport struct {
	AsOf             time.Time                     `json:"as_of"`
	Totals           *repositories.PortfolioTotals `json:"totals"`
	DayCollections   decimal.Decimal               `json:"day_collections"`
	DaySavingsPosted decimal.Decimal               `json:"day_savings_posted"`
	Groups           []*repositories.GroupTotals   `json:"groups"`
}

// Portfolio builds the portfolio summary for the day containing asOf
func (s *ReportService) Portfolio(ctx context.Context, asOf time.Time) (*PortfolioReport, error) {
	totals, err := s.memberRepo.Totals(ctx)
	if err != nil {
		return nil, err
	}

	start, end := domain.DayWindow(asOf, s.ledger.Location())

	collections, err := s.balanceRepo.SumByTypeInWindow(ctx, string(domain.BalanceAdjustDeduct), start, end)
	if err != nil {
		return nil, err
	}

	savingsPosted, err := s.savingsRepo.SumByTypeInWindow(ctx, string(domain.SavingsAdjustIncrease), start, end)
	if err != nil {
		return nil, err
	}

	groups, err := s.memberRepo.TotalsByGroup(ctx)
	if err != nil {
		return nil, err
	}

	return &PortfolioReport{
		AsOf:             asOf,
		Totals:           totals,
		DayCollections:   collections,
		DaySavingsPosted: savingsPosted,
		Groups:           groups,
	}, nil
}
