package user

import (
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

// User is the read-only projection of a platform user the engine needs:
// identity and role. Profile CRUD lives outside this module.
type User struct {
	ID    string         `json:"id"`
	Email string         `json:"email"`
	Role  types.UserRole `json:"role"`

	types.BaseModel
}

// TableName returns the table name for the user
func (u *User) TableName() string {
	return "users"
}
