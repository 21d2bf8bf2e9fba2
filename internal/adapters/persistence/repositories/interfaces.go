package repositories

import (
	"context"
	"time"

	"smpc-microfin/internal/adapters/persistence/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Each repository exposes WithTx so the engines can rebind it to an open
// transaction: every read and write of one engine call shares one *gorm.DB.

// UserRepository defines user repository interface
type UserRepository interface {
	WithTx(tx *gorm.DB) UserRepository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context) error
}

// GroupRepository defines lending group repository interface
type GroupRepository interface {
	Create(ctx context.Context, group *models.Group) error
	GetByID(ctx context.Context, id uint) (*models.Group, error)
	List(ctx context.Context, offset, limit int) ([]*models.Group, int64, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
}

// PortfolioTotals aggregates the member ledger values
type PortfolioTotals struct {
	ActiveMembers int64           `json:"active_members"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
	TotalSavings  decimal.Decimal `json:"total_savings"`
}

// GroupTotals aggregates member ledger values per lending group
type GroupTotals struct {
	GroupID      uint            `json:"group_id"`
	GroupName    string          `json:"group_name"`
	Members      int64           `json:"members"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	TotalSavings decimal.Decimal `json:"total_savings"`
}

// MemberRepository defines member aggregate repository interface
type MemberRepository interface {
	WithTx(tx *gorm.DB) MemberRepository
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	GetByMembNo(ctx context.Context, membNo string) (*models.Member, error)
	ExistsByMembNo(ctx context.Context, membNo string) (bool, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	List(ctx context.Context, groupID *uint, search string, offset, limit int) ([]*models.Member, int64, error)
	ListActiveIDs(ctx context.Context) ([]uint, error)
	Totals(ctx context.Context) (*PortfolioTotals, error)
	TotalsByGroup(ctx context.Context) ([]*GroupTotals, error)
}

// BalanceAdjustmentRepository defines the balance ledger interface
type BalanceAdjustmentRepository interface {
	WithTx(tx *gorm.DB) BalanceAdjustmentRepository
	Create(ctx context.Context, adj *models.BalanceAdjustment) error
	GetByID(ctx context.Context, id uint) (*models.BalanceAdjustment, error)
	ExistsInWindow(ctx context.Context, memberID uint, start, end time.Time) (bool, error)
	LatestByMember(ctx context.Context, memberID uint) (*models.BalanceAdjustment, error)
	Delete(ctx context.Context, id uint) error
	ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.BalanceAdjustment, int64, error)
	SumByTypeInWindow(ctx context.Context, adjType string, start, end time.Time) (decimal.Decimal, error)
}

// SavingsAdjustmentRepository defines the savings ledger interface
type SavingsAdjustmentRepository interface {
	WithTx(tx *gorm.DB) SavingsAdjustmentRepository
	Create(ctx context.Context, adj *models.SavingsAdjustment) error
	GetByID(ctx context.Context, id uint) (*models.SavingsAdjustment, error)
	ExistsInWindow(ctx context.Context, memberID uint, start, end time.Time) (bool, error)
	LatestByMember(ctx context.Context, memberID uint) (*models.SavingsAdjustment, error)
	Delete(ctx context.Context, id uint) error
	ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsAdjustment, int64, error)
	SumByTypeInWindow(ctx context.Context, adjType string, start, end time.Time) (decimal.Decimal, error)
}

// SavingsAccrualRepository defines the accrual aggregate interface
type SavingsAccrualRepository interface {
	Create(ctx context.Context, accrual *models.SavingsAccrual) error
	ExistsForPeriod(ctx context.Context, memberID uint, period string) (bool, error)
	TotalByMember(ctx context.Context, memberID uint) (decimal.Decimal, error)
	ListByMember(ctx context.Context, memberID uint, offset, limit int) ([]*models.SavingsAccrual, int64, error)
}

// AuditLogRepository defines the audit sink storage interface
type AuditLogRepository interface {
	WithTx(tx *gorm.DB) AuditLogRepository
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, action string, offset, limit int) ([]*models.AuditLog, int64, error)
	ListByEntity(ctx context.Context, entityType string, entityID uint, offset, limit int) ([]*models.AuditLog, int64, error)
}
