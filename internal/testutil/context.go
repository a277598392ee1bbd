package testutil

import (
	"context"

	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	ctx = context.WithValue(ctx, types.CtxUserID, types.DefaultUserID)
	ctx = context.WithValue(ctx, types.CtxUserRole, types.UserRoleInvestor)
	return ctx
}

// SetupContextWith returns a context acting as the given user in the given
// role.
func SetupContextWith(userID string, role types.UserRole) context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, types.CtxRequestID, types.GenerateUUID())
	ctx = context.WithValue(ctx, types.CtxUserID, userID)
	ctx = context.WithValue(ctx, types.CtxUserRole, role)
	return ctx
}
