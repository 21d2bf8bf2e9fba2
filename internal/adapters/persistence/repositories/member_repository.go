package repositories

import (
	"context"

	"smpc-microfin/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

// memberRepository implements MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *memberRepository) WithTx(tx *gorm.DB) MemberRepository {
	return &memberRepository{db: tx}
}

// Create inserts a new member with zero ledger balances
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetByID gets a member by ID
func (r *memberRepository) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).First(&member, id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByMembNo gets a member by member number
func (r *memberRepository) GetByMembNo(ctx context.Context, membNo string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Where("memb_no = ?", membNo).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ExistsByMembNo checks if a member number is already taken
func (r *memberRepository) ExistsByMembNo(ctx context.Context, membNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("memb_no = ?", membNo).
		Count(&count).Error
	return count > 0, err
}

// UpdateFields writes selected member columns only. The adjustment
// engines use this so the member rewrite stays inside their transaction.
func (r *memberRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// List lists members with optional group filter and name/number search
func (r *memberRepository) List(ctx context.Context, groupID *uint, search string, offset, limit int) ([]*models.Member, int64, error) {
	var members []*models.Member
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Member{})
	if groupID != nil {
		query = query.Where("group_id = ?", *groupID)
	}
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("memb_no LIKE ? OR full_name LIKE ?", like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Group").
		Order("full_name ASC").
		Offset(offset).
		Limit(limit).
		Find(&members).Error
	if err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

// Totals aggregates balance and savings across active members
func (r *memberRepository) Totals(ctx context.Context) (*PortfolioTotals, error) {
	var totals PortfolioTotals
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("is_active = ?", true).
		Select("COUNT(*) AS active_members, COALESCE(SUM(balance), 0) AS total_balance, COALESCE(SUM(savings), 0) AS total_savings").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// TotalsByGroup aggregates member ledger values per lending group
func (r *memberRepository) TotalsByGroup(ctx context.Context) ([]*GroupTotals, error) {
	var rows []*GroupTotals
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Select("members.group_id AS group_id, groups.name AS group_name, COUNT(*) AS members, COALESCE(SUM(members.balance), 0) AS total_balance, COALESCE(SUM(members.savings), 0) AS total_savings").
		Joins("JOIN groups ON groups.id = members.group_id").
		Where("members.is_active = ?", true).
		Group("members.group_id, groups.name").
		Order("groups.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListActiveIDs returns the IDs of all active members (accrual run input)
func (r *memberRepository) ListActiveIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("is_active = ?", true).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
