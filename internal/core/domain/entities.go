package domain

// Role represents user role in the system
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleEncoder    Role = "ENCODER"
	RoleViewer     Role = "VIEWER"
)

// CanEncode reports whether the role may post ledger adjustments
func (r Role) CanEncode() bool {
	return r == RoleSuperAdmin || r == RoleEncoder
}

// AccountKind identifies which member account an adjustment affects
type AccountKind string

const (
	AccountBalance AccountKind = "BALANCE"
	AccountSavings AccountKind = "SAVINGS"
)

// BalanceAdjustType enumerates valid balance adjustment types
type BalanceAdjustType string

const (
	BalanceAdjustIncrease BalanceAdjustType = "INCREASE"
	BalanceAdjustDeduct   BalanceAdjustType = "DEDUCT"
)

// IsValid reports whether the balance adjustment type is known
func (t BalanceAdjustType) IsValid() bool {
	return t == BalanceAdjustIncrease || t == BalanceAdjustDeduct
}

// IsIncrease reports whether the type adds to the balance account
func (t BalanceAdjustType) IsIncrease() bool {
	return t == BalanceAdjustIncrease
}

// SavingsAdjustType enumerates valid savings adjustment types
type SavingsAdjustType string

const (
	SavingsAdjustIncrease SavingsAdjustType = "INCREASE"
	SavingsAdjustWithdraw SavingsAdjustType = "WITHDRAW"
	// SavingsAdjustApplyToBalance withdraws from savings and pays down the
	// member's outstanding balance in the same transaction (cross-posting).
	SavingsAdjustApplyToBalance SavingsAdjustType = "APPLY_TO_BALANCE"
)

// IsValid reports whether the savings adjustment type is known
func (t SavingsAdjustType) IsValid() bool {
	return t == SavingsAdjustIncrease || t == SavingsAdjustWithdraw || t == SavingsAdjustApplyToBalance
}

// IsIncrease reports whether the type adds to the savings account
func (t SavingsAdjustType) IsIncrease() bool {
	return t == SavingsAdjustIncrease
}

// Actor is the already-authenticated user a mutation is attributed to.
// The ledger treats it as opaque attribution data; role checks happen at
// the HTTP layer.
type Actor struct {
	ID        uint
	Role      Role
	IPAddress string
}
