package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID ContextKey = "ctx_request_id"
	CtxUserID    ContextKey = "ctx_user_id"
	CtxUserRole  ContextKey = "ctx_user_role"

	// Default values
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// GetUserRole returns the caller role from the context. An empty role is
// treated as an unprivileged caller everywhere role checks happen.
func GetUserRole(ctx context.Context) UserRole {
	if role, ok := ctx.Value(CtxUserRole).(UserRole); ok {
		return role
	}
	return ""
}

// SetUserID sets the user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetUserRole sets the caller role in the context
func SetUserRole(ctx context.Context, role UserRole) context.Context {
	return context.WithValue(ctx, CtxUserRole, role)
}
