package auth

import (
	"context"
	"strings"

	"hrleave/internal/domain/errs"
)

type Role string

const (
	RoleEmployee Role = "employee"
	RoleAdmin    Role = "admin"
	RoleMD       Role = "md"
)

var Roles = []Role{RoleEmployee, RoleAdmin, RoleMD}

func ParseRole(value string) (Role, error) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	for _, role := range Roles {
		if normalized == role {
			return role, nil
		}
	}
	return "", errs.Validation("unknown role %q", value)
}

// Privileged reports whether the role may act on other employees' records.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleMD
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

type Caller struct {
	ID    string
	Role  Role
	Email string
}

// SystemCaller is used by scheduled jobs that act without a request.
var SystemCaller = Caller{ID: "system", Role: RoleAdmin, Email: "system@localhost"}

type ctxKey string

const callerKey ctxKey = "caller"

func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	return caller, ok && caller.ID != ""
}

// RequireCaller fails with ErrUnauthorized when no identity is attached.
func RequireCaller(ctx context.Context) (Caller, error) {
	caller, ok := CallerFromContext(ctx)
	if !ok {
		return Caller{}, errs.Unauthorized("authentication required")
	}
	return caller, nil
}
