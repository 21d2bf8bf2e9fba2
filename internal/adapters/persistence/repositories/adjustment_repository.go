package repositories

import (
	"context"
	"time"

	"smpc-microfin/internal/adapters/persistence/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Balance adjustment ledger
// ============================================================

// balanceAdjustmentRepository implements BalanceAdjustmentRepository
type balanceAdjustmentRepository struct {
	db *gorm.DB
}

// NewBalanceAdjustmentRepository creates a new balance adjustment repository
func NewBalanceAdjustmentRepository(db *gorm.DB) BalanceAdjustmentRepository {
	return &balanceAdjustmentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *balanceAdjustmentRepository) WithTx(tx *gorm.DB) BalanceAdjustmentRepository {
	return &balanceAdjustmentRepository{db: tx}
}

// Create appends a ledger entry. A lost duplicate-day race surfaces here
// as gorm.ErrDuplicatedKey via the (member_id, adjust_day) unique index.
func (r *balanceAdjustmentRepository) Create(ctx context.Context, adj *models.BalanceAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

// GetByID gets an adjustment by ID
func (r *balanceAdjustmentRepository) GetByID(ctx context.Context, id uint) (*models.BalanceAdjustment, error) {
	var adj models.BalanceAdjustment
	err := r.db.WithContext(ctx).First(&adj, id).Error
	if err != nil {
		return nil, err
	}
	return &adj, nil
}

// ExistsInWindow checks whether the member already has an entry with
// created_at inside [start, end)
func (r *balanceAdjustmentRepository) ExistsInWindow(ctx context.Context, memberID uint, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BalanceAdjustment{}).
		Where("member_id = ? AND created_at >= ? AND created_at < ?", memberID, start, end).
		Count(&count).Error
	return count > 0, err
}

// LatestByMember returns the member's most recent entry, nil when none exists
func (r *balanceAdjustmentRepository) LatestByMember(ctx context.Context, memberID uint) (*models.BalanceAdjustment, error) {
	var adj models.BalanceAdjustment
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		First(&adj).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &adj, nil
}

// Delete removes a ledger entry (reversal only)
func (r *balanceAdjustmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.BalanceAdjustment{}, id).Error
}

// ListByMember lists a member's entries, newest first
func (r *balanceAdjustmentRepository) ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.BalanceAdjustment, int64, error) {
	var adjs []*models.BalanceAdjustment
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.BalanceAdjustment{}).
		Where("member_id = ?", memberID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&adjs).Error
	if err != nil {
		return nil, 0, err
	}

	return adjs, total, nil
}

// SumByTypeInWindow totals entry amounts of one type within [start, end)
func (r *balanceAdjustmentRepository) SumByTypeInWindow(ctx context.Context, adjType string, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.BalanceAdjustment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("type = ? AND created_at >= ? AND created_at < ?", adjType, start, end).
		Scan(&total).Error
	return total, err
}

// ============================================================
// Savings adjustment ledger
// ============================================================

// savingsAdjustmentRepository implements SavingsAdjustmentRepository
type savingsAdjustmentRepository struct {
	db *gorm.DB
}

// NewSavingsAdjustmentRepository creates a new savings adjustment repository
func NewSavingsAdjustmentRepository(db *gorm.DB) SavingsAdjustmentRepository {
	return &savingsAdjustmentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *savingsAdjustmentRepository) WithTx(tx *gorm.DB) SavingsAdjustmentRepository {
	return &savingsAdjustmentRepository{db: tx}
}

// Create appends a ledger entry
func (r *savingsAdjustmentRepository) Create(ctx context.Context, adj *models.SavingsAdjustment) error {
	return r.db.WithContext(ctx).Create(adj).Error
}

// GetByID gets an adjustment by ID
func (r *savingsAdjustmentRepository) GetByID(ctx context.Context, id uint) (*models.SavingsAdjustment, error) {
	var adj models.SavingsAdjustment
	err := r.db.WithContext(ctx).First(&adj, id).Error
	if err != nil {
		return nil, err
	}
	return &adj, nil
}

// ExistsInWindow checks whether the member already has an entry with
// created_at inside [start, end)
func (r *savingsAdjustmentRepository) ExistsInWindow(ctx context.Context, memberID uint, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.SavingsAdjustment{}).
		Where("member_id = ? AND created_at >= ? AND created_at < ?", memberID, start, end).
		Count(&count).Error
	return count > 0, err
}

// LatestByMember returns the member's most recent entry, nil when none exists
func (r *savingsAdjustmentRepository) LatestByMember(ctx context.Context, memberID uint) (*models.SavingsAdjustment, error) {
	var adj models.SavingsAdjustment
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_at DESC").
		First(&adj).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &adj, nil
}

// Delete removes a ledger entry (reversal only)
func (r *savingsAdjustmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.SavingsAdjustment{}, id).Error
}

// ListByMember lists a member's entries, newest first
func (r *savingsAdjustmentRepository) ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsAdjustment, int64, error) {
	var adjs []*models.SavingsAdjustment
	var total int64

	query := r.db.WithContext(ctx).
		Model(&models.SavingsAdjustment{}).
		Where("member_id = ?", memberID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&adjs).Error
	if err != nil {
		return nil, 0, err
	}

	return adjs, total, nil
}

// SumByTypeInWindow totals entry amounts of one type within [start, end)
func (r *savingsAdjustmentRepository) SumByTypeInWindow(ctx context.Context, adjType string, start, end time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.SavingsAdjustment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("type = ? AND created_at >= ? AND created_at < ?", adjType, start, end).
		Scan(&total).Error
	return total, err
}
