package types

import (
	"fmt"

	"github.com/samber/lo"
)

// UserRole represents the platform role of a user
type UserRole string

const (
	UserRoleInvestor      UserRole = "INVESTOR"
	UserRoleBusinessOwner UserRole = "BUSINESS_OWNER"
	UserRoleAdmin         UserRole = "ADMIN"
	UserRoleSuperAdmin    UserRole = "SUPER_ADMIN"
)

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) Validate() error {
	allowed := []UserRole{
		UserRoleInvestor,
		UserRoleBusinessOwner,
		UserRoleAdmin,
		UserRoleSuperAdmin,
	}
	if !lo.Contains(allowed, r) {
		return fmt.Errorf("invalid user role: %s", r)
	}
	return nil
}

// IsOperator reports whether the role is a back-office role. Operators
// bypass entitlement checks entirely and never hold subscriptions.
func (r UserRole) IsOperator() bool {
	return r == UserRoleAdmin || r == UserRoleSuperAdmin
}

// TrialEligible reports whether the role may start a free trial.
func (r UserRole) TrialEligible() bool {
	return r == UserRoleInvestor
}
