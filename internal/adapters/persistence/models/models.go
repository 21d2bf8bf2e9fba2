package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table (back-office staff)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'ENCODER'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Member & Group Tables
// ============================================================

// Group represents a lending group/center members belong to
type Group struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Name       string         `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Leader     string         `gorm:"size:100" json:"leader"`
	MeetingDay string         `gorm:"size:20" json:"meeting_day"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Group) TableName() string {
	return "groups"
}

// Member holds the two mutable ledger aggregates: the outstanding loan
// balance and the savings balance. Both are mutated only through
// adjustment postings; neither may ever go negative.
type Member struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	MembNo    string          `gorm:"uniqueIndex;size:20;not null" json:"memb_no"`
	FullName  string          `gorm:"size:100;not null" json:"full_name"`
	GroupID   uint            `gorm:"index;not null" json:"group_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance"`
	Savings   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"savings"`
	DaysCount int             `gorm:"not null;default:0" json:"days_count"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Group *Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

func (Member) TableName() string {
	return "members"
}

// ============================================================
// Adjustment Ledger Tables (append-only)
// ============================================================

// BalanceAdjustment is an immutable ledger entry against the loan balance.
// AdjustDay is the ledger calendar day (UTC+8) the entry was posted on;
// the composite unique index enforces at most one entry per member per day
// even when two applies race past the read check.
type BalanceAdjustment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	MemberID      uint            `gorm:"not null;index;uniqueIndex:uq_balance_adj_member_day" json:"member_id"`
	Type          string          `gorm:"size:20;not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"balance_after"`
	AdjustDay     string          `gorm:"size:10;not null;uniqueIndex:uq_balance_adj_member_day" json:"adjust_day"`
	EncodedByID   uint            `gorm:"not null" json:"encoded_by_id"`
	Remark        string          `gorm:"type:text" json:"remark"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Member  *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Encoder *User   `gorm:"foreignKey:EncodedByID" json:"encoder,omitempty"`
}

func (BalanceAdjustment) TableName() string {
	return "balance_adjustments"
}

// SavingsAdjustment is an immutable ledger entry against the savings
// account. An APPLY_TO_BALANCE entry always has a correlated
// BalanceAdjustment(DEDUCT) created in the same transaction.
type SavingsAdjustment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	MemberID      uint            `gorm:"not null;index;uniqueIndex:uq_savings_adj_member_day" json:"member_id"`
	Type          string          `gorm:"size:20;not null" json:"type"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	SavingsBefore decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"savings_before"`
	SavingsAfter  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"savings_after"`
	AdjustDay     string          `gorm:"size:10;not null;uniqueIndex:uq_savings_adj_member_day" json:"adjust_day"`
	EncodedByID   uint            `gorm:"not null" json:"encoded_by_id"`
	Remark        string          `gorm:"type:text" json:"remark"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Member  *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Encoder *User   `gorm:"foreignKey:EncodedByID" json:"encoder,omitempty"`
}

func (SavingsAdjustment) TableName() string {
	return "savings_adjustments"
}

// ============================================================
// Savings Accrual (read-mostly aggregate, not a ledger entry)
// ============================================================

// SavingsAccrual records the periodic interest computed on a member's
// savings. It never mutates the savings balance through the adjustment
// engine; reports read it as a separate aggregate.
type SavingsAccrual struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	MemberID   uint            `gorm:"not null;index;uniqueIndex:uq_accrual_member_period" json:"member_id"`
	Period     string          `gorm:"size:7;not null;uniqueIndex:uq_accrual_member_period" json:"period"`
	Rate       decimal.Decimal `gorm:"type:decimal(8,5);not null" json:"rate"`
	Amount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	ComputedAt time.Time       `gorm:"autoCreateTime" json:"computed_at"`

	// Relations
	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (SavingsAccrual) TableName() string {
	return "savings_accruals"
}

// ============================================================
// Audit Trail
// ============================================================

// AuditLog is one structured event per committed mutation and per
// rejected attempt. Written inside the mutating transaction so the
// ledger and the trail cannot diverge.
type AuditLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ActorID    uint      `gorm:"not null;index" json:"actor_id"`
	Action     string    `gorm:"size:50;not null;index" json:"action"`
	EntityType string    `gorm:"size:50;not null" json:"entity_type"`
	EntityID   uint      `gorm:"not null;index" json:"entity_id"`
	Metadata   string    `gorm:"type:text" json:"metadata"`
	IPAddress  string    `gorm:"size:50" json:"ip_address"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Actor *User `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit actions
const (
	AuditBalanceAdjustApplied   = "BALANCE_ADJUST_APPLIED"
	AuditSavingsAdjustApplied   = "SAVINGS_ADJUST_APPLIED"
	AuditAdjustRejectedDup      = "ADJUST_REJECTED_DUPLICATE"
	AuditAdjustRejectedFunds    = "ADJUST_REJECTED_INSUFFICIENT"
	AuditAdjustReverted         = "ADJUST_REVERTED"
	AuditDaysCountOverride      = "DAYS_COUNT_OVERRIDE"
	AuditDaysCountThreshold     = "DAYS_COUNT_THRESHOLD"
	AuditBulkCollectionPosted   = "BULK_COLLECTION_POSTED"
	AuditSavingsAccrualComputed = "SAVINGS_ACCRUAL_COMPUTED"
)

// Audit entity types
const (
	EntityMember            = "MEMBER"
	EntityBalanceAdjustment = "BALANCE_ADJUSTMENT"
	EntitySavingsAdjustment = "SAVINGS_ADJUSTMENT"
	EntityBatch             = "ADJUSTMENT_BATCH"
	EntityAccrualRun        = "ACCRUAL_RUN"
)

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Auth
		&User{},
		&RefreshToken{},
		// Members
		&Group{},
		&Member{},
		// Ledger
		&BalanceAdjustment{},
		&SavingsAdjustment{},
		&SavingsAccrual{},
		// Audit
		&AuditLog{},
	)
}
