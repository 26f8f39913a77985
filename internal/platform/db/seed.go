package db

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"hrleave/internal/domain/auth"
	"hrleave/internal/domain/employee"
	"hrleave/internal/domain/errs"
)

// SeedAdmin creates the first admin account when it does not exist yet.
// It works against any employee store.
func SeedAdmin(ctx context.Context, employees *employee.Service, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	if _, err := employees.Store.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return err
	}

	ctx = auth.WithCaller(ctx, auth.SystemCaller)
	_, err := employees.Create(ctx, employee.NewEmployee{
		Email:       email,
		Name:        "Administrator",
		Password:    password,
		Role:        auth.RoleAdmin,
		Designation: "Administrator",
	})
	if errors.Is(err, errs.ErrConflict) {
		return nil
	}
	if err == nil {
		slog.Info("seeded admin account", "email", employee.NormalizeEmail(email))
	}
	return err
}
