package repositories

import (
	"context"

	"smpc-microfin/internal/adapters/persistence/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// savingsAccrualRepository implements SavingsAccrualRepository interface
type savingsAccrualRepository struct {
	db *gorm.DB
}

// NewSavingsAccrualRepository creates a new savings accrual repository
func NewSavingsAccrualRepository(db *gorm.DB) SavingsAccrualRepository {
	return &savingsAccrualRepository{db: db}
}

// Create inserts a computed accrual row
func (r *savingsAccrualRepository) Create(ctx context.Context, accrual *models.SavingsAccrual) error {
	return r.db.WithContext(ctx).Create(accrual).Error
}

// ExistsForPeriod checks if an accrual was already computed for the period
func (r *savingsAccrualRepository) ExistsForPeriod(ctx context.Context, memberID uint, period string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SavingsAccrual{}).
		Where("member_id = ? AND period = ?", memberID, period).
		Count(&count).Error
	return count > 0, err
}

// TotalByMember sums all accruals for a member
func (r *savingsAccrualRepository) TotalByMember(ctx context.Context, memberID uint) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.SavingsAccrual{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("member_id = ?", memberID).
		Scan(&total).Error
	return total, err
}

// ListByMember lists a member's accruals, newest period first
func (r *savingsAccrualRepository) ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsAccrual, int64, error) {
	var accruals []*models.SavingsAccrual
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.SavingsAccrual{}).
		Where("member_id = ?", memberID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("period DESC").
		Offset(offset).
		Limit(limit).
		Find(&accruals).Error
	if err != nil {
		return nil, 0, err
	}

	return accruals, total, nil
}
